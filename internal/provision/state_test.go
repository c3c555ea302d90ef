package provision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idmail/backend/internal/domain"
)

func writeStateFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "provision.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadState(t *testing.T) {
	t.Run("完整文件解析并应用默认值", func(t *testing.T) {
		path := writeStateFile(t, `
[users.admin]
password_hash = "$2b$12$hash"
admin = true

[users.alice]
password_hash = "$2b$12$hash"
active = false

[domains."example.com"]
owner = "admin"
public = true

[mailboxes."box@example.com"]
password_hash = "$2b$12$hash"
owner = "alice"

[aliases."fwd@example.com"]
target = "box@example.com"
owner = "box@example.com"
comment = "forwarding"
`)
		state, err := LoadState(path)
		require.NoError(t, err)

		assert.True(t, state.Users["admin"].Admin)
		assert.True(t, active(state.Users["admin"].Active), "active 缺省为 true")
		assert.False(t, active(state.Users["alice"].Active))
		assert.True(t, state.Domains["example.com"].Public)
		assert.Equal(t, "alice", state.Mailboxes["box@example.com"].Owner)
		assert.Equal(t, "box@example.com", state.Aliases["fwd@example.com"].Target)
	})

	t.Run("文件不存在报错", func(t *testing.T) {
		_, err := LoadState(filepath.Join(t.TempDir(), "missing.toml"))
		assert.Error(t, err)
	})
}

func TestStateValidate(t *testing.T) {
	base := func() *State {
		activeTrue := true
		return &State{
			Users: map[string]UserState{
				"admin": {PasswordHash: "$2b$12$hash", Admin: true, Active: &activeTrue},
			},
			Domains: map[string]DomainState{
				"example.com": {Owner: "admin"},
			},
			Mailboxes: map[string]MailboxState{
				"box@example.com": {PasswordHash: "$2b$12$hash", Owner: "admin"},
			},
			Aliases: map[string]AliasState{
				"fwd@example.com": {Target: "box@example.com", Owner: "admin"},
			},
		}
	}

	t.Run("合法状态通过", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("用户缺密码哈希", func(t *testing.T) {
		s := base()
		s.Users["nopass"] = UserState{}
		assert.ErrorIs(t, s.Validate(), domain.ErrValidation)
	})

	t.Run("用户名含 @", func(t *testing.T) {
		s := base()
		s.Users["bad@name"] = UserState{PasswordHash: "h"}
		assert.ErrorIs(t, s.Validate(), domain.ErrValidation)
	})

	t.Run("域所有者必须是期望用户", func(t *testing.T) {
		s := base()
		s.Domains["other.com"] = DomainState{Owner: "ghost"}
		assert.ErrorIs(t, s.Validate(), domain.ErrValidation)
	})

	t.Run("邮箱的域必须是期望域", func(t *testing.T) {
		s := base()
		s.Mailboxes["x@other.com"] = MailboxState{PasswordHash: "h", Owner: "admin"}
		assert.ErrorIs(t, s.Validate(), domain.ErrValidation)
	})

	t.Run("别名缺 target", func(t *testing.T) {
		s := base()
		s.Aliases["y@example.com"] = AliasState{Owner: "admin"}
		assert.ErrorIs(t, s.Validate(), domain.ErrValidation)
	})

	t.Run("别名所有者可以是期望邮箱", func(t *testing.T) {
		s := base()
		s.Aliases["y@example.com"] = AliasState{Target: "box@example.com", Owner: "box@example.com"}
		assert.NoError(t, s.Validate())
	})

	t.Run("别名所有者既非用户也非邮箱", func(t *testing.T) {
		s := base()
		s.Aliases["y@example.com"] = AliasState{Target: "box@example.com", Owner: "ghost"}
		assert.ErrorIs(t, s.Validate(), domain.ErrValidation)
	})
}
