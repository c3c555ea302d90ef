package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// 保存原始环境变量
	originalEnvs := make(map[string]string)
	envKeys := []string{
		"IDMAIL_SERVER_HOST",
		"IDMAIL_SERVER_PORT",
		"IDMAIL_DATABASE_PATH",
		"IDMAIL_DATABASE_BUSY_TIMEOUT",
		"IDMAIL_DATABASE_QUERY_TIMEOUT",
		"IDMAIL_CORS_ALLOWED_ORIGINS",
		"IDMAIL_LOG_LEVEL",
		"IDMAIL_LOG_DEVELOPMENT",
		"IDMAIL_PROVISION",
	}

	for _, key := range envKeys {
		originalEnvs[key] = os.Getenv(key)
	}

	// 测试后恢复环境变量
	defer func() {
		for key, value := range originalEnvs {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	t.Run("加载默认配置成功", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "./data/idmail.db", cfg.Database.Path)
		assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
		assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
		assert.Empty(t, cfg.Provision)
	})

	t.Run("环境变量覆盖默认值", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
		os.Setenv("IDMAIL_SERVER_PORT", "9090")
		os.Setenv("IDMAIL_DATABASE_PATH", "/var/lib/idmail/idmail.db")
		os.Setenv("IDMAIL_PROVISION", "/etc/idmail/state.toml")
		os.Setenv("IDMAIL_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "/var/lib/idmail/idmail.db", cfg.Database.Path)
		assert.Equal(t, "/etc/idmail/state.toml", cfg.Provision)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	})

	t.Run("非法超时报错", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
		os.Setenv("IDMAIL_DATABASE_BUSY_TIMEOUT", "not-a-duration")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseList("a, b"))
	assert.Empty(t, parseList(" ,, "))
}
