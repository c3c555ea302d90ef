package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idmail/backend/internal/domain"
)

func TestUserService_Create(t *testing.T) {
	store, authSvc := newTestEnv(t)
	svc := NewUserService(store, authSvc, nil)
	ctx := context.Background()

	t.Run("管理员创建用户成功", func(t *testing.T) {
		user, err := svc.Create(ctx, adminActor(), CreateUserInput{
			Username: "carol",
			Password: "a-long-enough-password",
			Active:   true,
		})
		require.NoError(t, err)
		assert.Equal(t, "carol", user.Username)
		assert.False(t, user.Admin)
		assert.False(t, user.Provisioned)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEqual(t, "a-long-enough-password", user.PasswordHash)
	})

	t.Run("非管理员被拒绝", func(t *testing.T) {
		_, err := svc.Create(ctx, userActor("alice"), CreateUserInput{
			Username: "eve",
			Password: "a-long-enough-password",
			Active:   true,
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("用户名含 @ 被拒绝", func(t *testing.T) {
		_, err := svc.Create(ctx, adminActor(), CreateUserInput{
			Username: "eve@example.com",
			Password: "a-long-enough-password",
			Active:   true,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("密码过短被拒绝", func(t *testing.T) {
		_, err := svc.Create(ctx, adminActor(), CreateUserInput{
			Username: "eve",
			Password: "short",
			Active:   true,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("重复用户名冲突", func(t *testing.T) {
		_, err := svc.Create(ctx, adminActor(), CreateUserInput{
			Username: "alice",
			Password: "a-long-enough-password",
			Active:   true,
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestUserService_UpdateDelete(t *testing.T) {
	store, authSvc := newTestEnv(t)
	svc := NewUserService(store, authSvc, nil)
	ctx := context.Background()

	t.Run("管理员提升与停用用户", func(t *testing.T) {
		require.NoError(t, svc.Update(ctx, adminActor(), UpdateUserInput{
			Username: "bob",
			Admin:    true,
			Active:   false,
		}))
		bob, err := store.GetUser(ctx, "bob")
		require.NoError(t, err)
		assert.True(t, bob.Admin)
		assert.False(t, bob.Active)
	})

	t.Run("非管理员更新被拒绝", func(t *testing.T) {
		err := svc.Update(ctx, userActor("alice"), UpdateUserInput{Username: "alice", Active: true})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("非管理员删除被拒绝", func(t *testing.T) {
		err := svc.Delete(ctx, userActor("alice"), "bob")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("管理员删除后实体消失", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, adminActor(), "bob"))
		_, err := store.GetUser(ctx, "bob")
		assert.Error(t, err)
	})
}

func TestUserService_ChangePassword(t *testing.T) {
	store, authSvc := newTestEnv(t)
	svc := NewUserService(store, authSvc, nil)
	ctx := context.Background()

	t.Run("当前密码错误被拒绝", func(t *testing.T) {
		err := svc.ChangePassword(ctx, userActor("alice"), "wrong-password-here", "the-new-password-1")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("用户改密后新密码生效", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(ctx, userActor("alice"), testPassword, "the-new-password-1"))
		_, err := authSvc.Authenticate(ctx, "alice", "the-new-password-1")
		assert.NoError(t, err)
		_, err = authSvc.Authenticate(ctx, "alice", testPassword)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("邮箱身份改自己的密码", func(t *testing.T) {
		actor := mailboxActor("box@example.com", "alice")
		require.NoError(t, svc.ChangePassword(ctx, actor, testPassword, "the-new-password-2"))
		_, err := authSvc.Authenticate(ctx, "box@example.com", "the-new-password-2")
		assert.NoError(t, err)
	})
}
