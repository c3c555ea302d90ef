package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Options{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_UserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &domain.User{Username: "alice", PasswordHash: "h", Active: true}
	require.NoError(t, s.CreateUser(ctx, u))

	t.Run("重复创建冲突", func(t *testing.T) {
		err := s.CreateUser(ctx, &domain.User{Username: "alice", PasswordHash: "h"})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("读取回填时间戳", func(t *testing.T) {
		got, err := s.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("更新生效", func(t *testing.T) {
		u.Admin = true
		u.Active = false
		require.NoError(t, s.UpdateUser(ctx, u))
		got, err := s.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, got.Admin)
		assert.False(t, got.Active)
	})

	t.Run("不存在的键", func(t *testing.T) {
		_, err := s.GetUser(ctx, "nobody")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
		assert.ErrorIs(t, s.UpdateUser(ctx, &domain.User{Username: "nobody"}), storage.ErrUserNotFound)
		assert.ErrorIs(t, s.DeleteUser(ctx, "nobody"), storage.ErrUserNotFound)
	})

	t.Run("删除后消失", func(t *testing.T) {
		require.NoError(t, s.DeleteUser(ctx, "alice"))
		_, err := s.GetUser(ctx, "alice")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})
}

func TestStore_AdminQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, u := range []domain.User{
		{Username: "a", Admin: true, Active: true},
		{Username: "b", Admin: true, Active: false},
		{Username: "c", Admin: false, Active: true},
	} {
		u.PasswordHash = fmt.Sprintf("h%d", i)
		u := u
		require.NoError(t, s.CreateUser(ctx, &u))
	}

	total, err := s.CountAdmins(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	activeCount, err := s.CountAdmins(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, activeCount)

	admins, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Equal(t, "a", admins[0].Username)
	assert.Equal(t, "b", admins[1].Username)
}

func TestStore_MailboxAPIToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateMailbox(ctx, &domain.Mailbox{
		Address: "a@x.com", Domain: "x.com", PasswordHash: "h",
		APIToken: "token-0123456789abcdef", Active: true, Owner: "alice",
	}))

	t.Run("token 唯一约束", func(t *testing.T) {
		err := s.CreateMailbox(ctx, &domain.Mailbox{
			Address: "b@x.com", Domain: "x.com", PasswordHash: "h",
			APIToken: "token-0123456789abcdef", Owner: "alice",
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("空 token 不参与唯一约束", func(t *testing.T) {
		for _, addr := range []string{"c@x.com", "d@x.com"} {
			require.NoError(t, s.CreateMailbox(ctx, &domain.Mailbox{
				Address: addr, Domain: "x.com", PasswordHash: "h", Owner: "alice",
			}))
		}
	})

	t.Run("按 token 查找", func(t *testing.T) {
		mb, err := s.GetMailboxByAPIToken(ctx, "token-0123456789abcdef")
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", mb.Address)

		_, err = s.GetMailboxByAPIToken(ctx, "token-unknown-unknown")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})

	t.Run("空 token 查不出任何行", func(t *testing.T) {
		_, err := s.GetMailboxByAPIToken(ctx, "")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})
}

func TestStore_ProvisionedUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// 交互创建的行 provisioned=FALSE
	require.NoError(t, s.CreateUser(ctx, &domain.User{
		Username: "alice", PasswordHash: "old", Active: true,
	}))

	t.Run("upsert 接管已有行并保留时间戳", func(t *testing.T) {
		before, err := s.GetUser(ctx, "alice")
		require.NoError(t, err)

		require.NoError(t, s.UpsertProvisionedUser(ctx, &domain.User{
			Username: "alice", PasswordHash: "new", Active: true,
		}))
		after, err := s.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, after.Provisioned)
		assert.Equal(t, "new", after.PasswordHash)
		assert.Equal(t, before.CreatedAt, after.CreatedAt)
	})

	t.Run("upsert 新键等价创建", func(t *testing.T) {
		require.NoError(t, s.UpsertProvisionedUser(ctx, &domain.User{
			Username: "bob", PasswordHash: "h", Active: true,
		}))
		got, err := s.GetUser(ctx, "bob")
		require.NoError(t, err)
		assert.True(t, got.Provisioned)
	})

	t.Run("provisioned 键集合", func(t *testing.T) {
		keys, err := s.ProvisionedUsernames(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, keys)
	})
}

func TestStore_AliasCountersPreserved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateAlias(ctx, &domain.Alias{
		Address: "a@x.com", Domain: "x.com", Target: "t@x.com",
		Owner: "alice", Active: true,
	}))
	// 邮件服务器在旁路累加计数，更新别名不许把它归零
	_, err := s.db.ExecContext(ctx, `UPDATE aliases SET n_recv = 7, n_sent = 3 WHERE address = ?`, "a@x.com")
	require.NoError(t, err)

	require.NoError(t, s.UpdateAlias(ctx, &domain.Alias{
		Address: "a@x.com", Domain: "x.com", Target: "t@x.com",
		Comment: "changed", Owner: "alice", Active: false,
	}))
	require.NoError(t, s.UpsertProvisionedAlias(ctx, &domain.Alias{
		Address: "a@x.com", Domain: "x.com", Target: "t@x.com",
		Owner: "alice", Active: true,
	}))

	got, err := s.GetAlias(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.NumRecv)
	assert.Equal(t, int64(3), got.NumSent)
	assert.True(t, got.Provisioned)
}

func TestStore_ListAliasesByOwners(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, a := range []domain.Alias{
		{Address: "a@x.com", Domain: "x.com", Target: "t@x.com", Owner: "alice"},
		{Address: "b@x.com", Domain: "x.com", Target: "t@x.com", Owner: "box@x.com"},
		{Address: "c@x.com", Domain: "x.com", Target: "t@x.com", Owner: "bob"},
	} {
		a := a
		require.NoError(t, s.CreateAlias(ctx, &a))
	}

	got, err := s.ListAliasesByOwners(ctx, []string{"alice", "box@x.com"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a@x.com", got[0].Address)
	assert.Equal(t, "b@x.com", got[1].Address)

	got, err = s.ListAliasesByOwners(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_InTx(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("回调报错时回滚", func(t *testing.T) {
		err := s.InTx(ctx, func(tx storage.Store) error {
			if err := tx.CreateUser(ctx, &domain.User{Username: "x", PasswordHash: "h"}); err != nil {
				return err
			}
			return fmt.Errorf("boom")
		})
		require.Error(t, err)
		_, err = s.GetUser(ctx, "x")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})

	t.Run("成功时提交", func(t *testing.T) {
		err := s.InTx(ctx, func(tx storage.Store) error {
			return tx.CreateUser(ctx, &domain.User{Username: "y", PasswordHash: "h"})
		})
		require.NoError(t, err)
		_, err = s.GetUser(ctx, "y")
		assert.NoError(t, err)
	})

	t.Run("嵌套调用复用当前事务", func(t *testing.T) {
		err := s.InTx(ctx, func(tx storage.Store) error {
			return tx.InTx(ctx, func(inner storage.Store) error {
				return inner.CreateUser(ctx, &domain.User{Username: "z", PasswordHash: "h"})
			})
		})
		require.NoError(t, err)
		_, err = s.GetUser(ctx, "z")
		assert.NoError(t, err)
	})
}
