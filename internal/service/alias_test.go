package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idmail/backend/internal/domain"
)

func TestAliasService_Create(t *testing.T) {
	store, authSvc := newTestEnv(t)
	svc := NewAliasService(store, authSvc, nil)
	ctx := context.Background()

	t.Run("用户为自己的邮箱建别名", func(t *testing.T) {
		a, err := svc.Create(ctx, userActor("alice"), CreateAliasInput{
			LocalPart: "shopping",
			Domain:    "example.com",
			Target:    "box@example.com",
			Comment:   "网购注册用",
			Active:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, "shopping@example.com", a.Address)
		assert.Equal(t, "box@example.com", a.Target)
		assert.Equal(t, "alice", a.Owner)
		assert.False(t, a.Provisioned)
	})

	t.Run("不能指向别人的邮箱", func(t *testing.T) {
		_, err := svc.Create(ctx, userActor("bob"), CreateAliasInput{
			LocalPart: "spam",
			Domain:    "example.com",
			Target:    "box@example.com",
			Active:    true,
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("target 必须存在", func(t *testing.T) {
		_, err := svc.Create(ctx, userActor("alice"), CreateAliasInput{
			LocalPart: "dangling",
			Domain:    "example.com",
			Target:    "missing@example.com",
			Active:    true,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("邮箱身份指向自己", func(t *testing.T) {
		actor := mailboxActor("box@example.com", "alice")
		a, err := svc.Create(ctx, actor, CreateAliasInput{
			LocalPart: "newsletter",
			Domain:    "example.com",
			Target:    "box@example.com",
			Active:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, "box@example.com", a.Owner)
	})

	t.Run("非所有者占用保留名被拒绝", func(t *testing.T) {
		_, err := svc.Create(ctx, userActor("bob"), CreateAliasInput{
			LocalPart: "webmaster",
			Domain:    "example.com",
			Target:    "box@example.com",
			Active:    true,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestAliasService_TransitiveOwnership(t *testing.T) {
	store, authSvc := newTestEnv(t)
	svc := NewAliasService(store, authSvc, nil)
	ctx := context.Background()

	// box@example.com 属于 alice，由邮箱自己创建的别名
	// owner 是邮箱地址，alice 间接拥有
	boxActor := mailboxActor("box@example.com", "alice")
	a, err := svc.Create(ctx, boxActor, CreateAliasInput{
		LocalPart: "indirect",
		Domain:    "example.com",
		Target:    "box@example.com",
		Active:    true,
	})
	require.NoError(t, err)
	require.Equal(t, "box@example.com", a.Owner)

	t.Run("所属用户可以管理", func(t *testing.T) {
		require.NoError(t, svc.SetActive(ctx, userActor("alice"), a.Address, false))
		got, err := store.GetAlias(ctx, a.Address)
		require.NoError(t, err)
		assert.False(t, got.Active)
	})

	t.Run("其他用户被拒绝", func(t *testing.T) {
		err := svc.SetActive(ctx, userActor("bob"), a.Address, true)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("邮箱自己可以管理", func(t *testing.T) {
		require.NoError(t, svc.Update(ctx, boxActor, UpdateAliasInput{
			Address: a.Address, Comment: "更新备注", Active: true,
		}))
		got, err := store.GetAlias(ctx, a.Address)
		require.NoError(t, err)
		assert.Equal(t, "更新备注", got.Comment)
		assert.True(t, got.Active)
	})

	t.Run("用户列表含间接拥有的别名", func(t *testing.T) {
		aliases, err := svc.List(ctx, userActor("alice"))
		require.NoError(t, err)
		require.Len(t, aliases, 1)
		assert.Equal(t, a.Address, aliases[0].Address)
	})

	t.Run("所属用户可以删除", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, userActor("alice"), a.Address))
		_, err := store.GetAlias(ctx, a.Address)
		assert.Error(t, err)
	})
}

func TestAliasService_UpdateTargetAuthorization(t *testing.T) {
	store, authSvc := newTestEnv(t)
	svc := NewAliasService(store, authSvc, nil)
	ctx := context.Background()

	// bob 在公开域下有自己的邮箱和别名
	require.NoError(t, store.CreateMailbox(ctx, &domain.Mailbox{
		Address: "bob@example.com", Domain: "example.com",
		PasswordHash: "x", Active: true, Owner: "bob",
	}))
	a, err := svc.Create(ctx, userActor("bob"), CreateAliasInput{
		LocalPart: "bobalias",
		Domain:    "example.com",
		Target:    "bob@example.com",
		Active:    true,
	})
	require.NoError(t, err)

	t.Run("改指向到别人的邮箱被拒绝", func(t *testing.T) {
		err := svc.Update(ctx, userActor("bob"), UpdateAliasInput{
			Address: a.Address, Target: "box@example.com", Active: true,
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("管理员任意改指向", func(t *testing.T) {
		require.NoError(t, svc.Update(ctx, adminActor(), UpdateAliasInput{
			Address: a.Address, Target: "box@example.com", Active: true,
		}))
		got, err := store.GetAlias(ctx, a.Address)
		require.NoError(t, err)
		assert.Equal(t, "box@example.com", got.Target)
	})
}
