package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idmail/backend/internal/domain"
)

func TestAliasService_CreateRandom(t *testing.T) {
	store, authSvc := newTestEnv(t)
	svc := NewAliasService(store, authSvc, nil)
	ctx := context.Background()
	actor := mailboxActor("box@example.com", "alice")

	t.Run("用户身份被拒绝", func(t *testing.T) {
		_, err := svc.CreateRandom(ctx, userActor("alice"), "", "x")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("随机域生成新地址", func(t *testing.T) {
		address, err := svc.CreateRandom(ctx, actor, "", "注册用")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(address, "@example.com"))

		a, err := store.GetAlias(ctx, address)
		require.NoError(t, err)
		assert.Equal(t, "box@example.com", a.Target)
		assert.Equal(t, "box@example.com", a.Owner)
		assert.Equal(t, "注册用", a.Comment)
		assert.True(t, a.Active)
		assert.False(t, a.Provisioned)
	})

	t.Run("random 标记等价于省略", func(t *testing.T) {
		address, err := svc.CreateRandom(ctx, actor, "random", "")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(address, "@example.com"))
	})

	t.Run("显式域必须可用", func(t *testing.T) {
		_, err := svc.CreateRandom(ctx, actor, "bob.net", "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("显式域不存在", func(t *testing.T) {
		_, err := svc.CreateRandom(ctx, actor, "missing.org", "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("没有可用域时报错", func(t *testing.T) {
		d, err := store.GetDomain(ctx, "example.com")
		require.NoError(t, err)
		d.Active = false
		require.NoError(t, store.UpdateDomain(ctx, d))
		defer func() {
			d.Active = true
			require.NoError(t, store.UpdateDomain(ctx, d))
		}()

		_, err = svc.CreateRandom(ctx, actor, "", "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestAliasService_CreateRandomConcurrent(t *testing.T) {
	store, authSvc := newTestEnv(t)
	svc := NewAliasService(store, authSvc, nil)
	ctx := context.Background()
	actor := mailboxActor("box@example.com", "alice")

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		addresses = make(map[string]struct{}, n)
		errs      []error
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			address, err := svc.CreateRandom(ctx, actor, "", "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			addresses[address] = struct{}{}
		}()
	}
	wg.Wait()

	// 键冲突靠重试吸收，组合空间远大于 n，不应耗尽
	require.Empty(t, errs)
	assert.Len(t, addresses, n)

	aliases, err := store.ListAliases(ctx)
	require.NoError(t, err)
	assert.Len(t, aliases, n)
}
