package provision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idmail/backend/internal/domain"
)

func TestResolveSecret(t *testing.T) {
	t.Run("普通值原样返回", func(t *testing.T) {
		got, err := ResolveSecret("$2b$12$abcdefg")
		require.NoError(t, err)
		assert.Equal(t, "$2b$12$abcdefg", got)
	})

	t.Run("文件引用读取内容并去空白", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "secret")
		require.NoError(t, os.WriteFile(path, []byte("  hunter2-hash\n"), 0o600))

		got, err := ResolveSecret("%{file:" + path + "}%")
		require.NoError(t, err)
		assert.Equal(t, "hunter2-hash", got)
	})

	t.Run("只有前缀不算引用", func(t *testing.T) {
		got, err := ResolveSecret("%{file:/etc/passwd")
		require.NoError(t, err)
		assert.Equal(t, "%{file:/etc/passwd", got)
	})

	t.Run("只有后缀不算引用", func(t *testing.T) {
		got, err := ResolveSecret("literal}%")
		require.NoError(t, err)
		assert.Equal(t, "literal}%", got)
	})

	t.Run("文件不存在报解析错误", func(t *testing.T) {
		_, err := ResolveSecret("%{file:" + filepath.Join(t.TempDir(), "missing") + "}%")
		assert.ErrorIs(t, err, domain.ErrSecretResolution)
	})

	t.Run("空字符串原样返回", func(t *testing.T) {
		got, err := ResolveSecret("")
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})
}
