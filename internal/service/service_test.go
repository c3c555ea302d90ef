package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"idmail/backend/internal/auth"
	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage/memory"
)

// 测试夹具：一个管理员、两个普通用户、两个域名和一个邮箱。
// alice 拥有 example.com（public），bob 拥有 bob.net（私有），
// box@example.com 属于 alice 并带 API token。

const testPassword = "correct-horse-battery"

func newTestEnv(t *testing.T) (*memory.Store, *auth.Service) {
	t.Helper()
	store := memory.NewStore()
	authSvc := auth.NewService(store, nil)
	ctx := context.Background()

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	for _, u := range []domain.User{
		{Username: "root", PasswordHash: hash, Admin: true, Active: true},
		{Username: "alice", PasswordHash: hash, Active: true},
		{Username: "bob", PasswordHash: hash, Active: true},
	} {
		u := u
		require.NoError(t, store.CreateUser(ctx, &u))
	}
	for _, d := range []domain.Domain{
		{Domain: "example.com", Owner: "alice", Public: true, Active: true},
		{Domain: "bob.net", Owner: "bob", Public: false, Active: true},
	} {
		d := d
		require.NoError(t, store.CreateDomain(ctx, &d))
	}
	require.NoError(t, store.CreateMailbox(ctx, &domain.Mailbox{
		Address:      "box@example.com",
		Domain:       "example.com",
		PasswordHash: hash,
		APIToken:     "token-box-0123456789abcdef",
		Active:       true,
		Owner:        "alice",
	}))

	return store, authSvc
}

func adminActor() *auth.Identity {
	return &auth.Identity{Username: "root", Admin: true, Active: true}
}

func userActor(name string) *auth.Identity {
	return &auth.Identity{Username: name, Active: true}
}

func mailboxActor(address, owner string) *auth.Identity {
	return &auth.Identity{Username: address, MailboxOwner: owner, Active: true}
}
