package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage/memory"
)

const testPassword = "correct-horse-battery"

func newAuthEnv(t *testing.T) (*memory.Store, *Service) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	hash, err := HashPassword(testPassword)
	require.NoError(t, err)

	require.NoError(t, store.CreateUser(ctx, &domain.User{
		Username: "alice", PasswordHash: hash, Active: true,
	}))
	require.NoError(t, store.CreateUser(ctx, &domain.User{
		Username: "sleepy", PasswordHash: hash, Active: false,
	}))
	require.NoError(t, store.CreateMailbox(ctx, &domain.Mailbox{
		Address: "box@example.com", Domain: "example.com",
		PasswordHash: hash, APIToken: "token-0123456789abcdef",
		Active: true, Owner: "alice",
	}))
	require.NoError(t, store.CreateMailbox(ctx, &domain.Mailbox{
		Address: "off@example.com", Domain: "example.com",
		PasswordHash: hash, APIToken: "token-fedcba9876543210",
		Active: false, Owner: "alice",
	}))

	return store, NewService(store, nil)
}

func TestService_Authenticate(t *testing.T) {
	_, svc := newAuthEnv(t)
	ctx := context.Background()

	t.Run("用户名加密码登录", func(t *testing.T) {
		id, err := svc.Authenticate(ctx, "alice", testPassword)
		require.NoError(t, err)
		assert.Equal(t, "alice", id.Username)
		assert.False(t, id.IsMailbox())
		assert.Equal(t, "alice", id.OwningUser())
	})

	t.Run("邮箱地址加密码登录", func(t *testing.T) {
		id, err := svc.Authenticate(ctx, "box@example.com", testPassword)
		require.NoError(t, err)
		assert.True(t, id.IsMailbox())
		assert.Equal(t, "alice", id.OwningUser())
	})

	t.Run("错误密码返回笼统错误", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "alice", "wrong-password-00")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("不存在的账户返回同样的错误", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "nobody", testPassword)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("停用账户即使密码正确也拒绝", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "sleepy", testPassword)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestService_LookupByAPIToken(t *testing.T) {
	_, svc := newAuthEnv(t)
	ctx := context.Background()

	t.Run("有效 token 解析出邮箱身份", func(t *testing.T) {
		id, err := svc.LookupByAPIToken(ctx, "token-0123456789abcdef")
		require.NoError(t, err)
		assert.Equal(t, "box@example.com", id.Username)
		assert.True(t, id.IsMailbox())
	})

	t.Run("过短的 token 不查库直接拒绝", func(t *testing.T) {
		_, err := svc.LookupByAPIToken(ctx, "short")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("未知 token 被拒绝", func(t *testing.T) {
		_, err := svc.LookupByAPIToken(ctx, "token-ffffffffffffffff")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("停用邮箱的 token 被拒绝", func(t *testing.T) {
		_, err := svc.LookupByAPIToken(ctx, "token-fedcba9876543210")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}
