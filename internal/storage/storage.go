package storage

import (
	"context"
	"errors"

	"idmail/backend/internal/domain"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrDomainNotFound 域名不存在
	ErrDomainNotFound = errors.New("domain not found")
	// ErrMailboxNotFound 邮箱不存在
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrAliasNotFound 别名不存在
	ErrAliasNotFound = errors.New("alias not found")
)

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, username string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]domain.User, error)
	// CountAdmins 统计 admin=TRUE 的用户数，activeOnly 时再要求 active=TRUE。
	CountAdmins(ctx context.Context, activeOnly bool) (int, error)
	// ListAdmins 返回所有 admin=TRUE 的用户（不限 active）。
	ListAdmins(ctx context.Context) ([]domain.User, error)

	// 调和器专用：读取 provisioned=TRUE 的主键集合，以及
	// 强制 provisioned=TRUE 的插入或覆盖。
	ProvisionedUsernames(ctx context.Context) ([]string, error)
	UpsertProvisionedUser(ctx context.Context, user *domain.User) error
}

// DomainRepository 定义域名数据存取操作。
type DomainRepository interface {
	CreateDomain(ctx context.Context, d *domain.Domain) error
	GetDomain(ctx context.Context, name string) (*domain.Domain, error)
	UpdateDomain(ctx context.Context, d *domain.Domain) error
	DeleteDomain(ctx context.Context, name string) error
	ListDomains(ctx context.Context) ([]domain.Domain, error)

	ProvisionedDomains(ctx context.Context) ([]string, error)
	UpsertProvisionedDomain(ctx context.Context, d *domain.Domain) error
}

// MailboxRepository 定义邮箱数据存取操作。
type MailboxRepository interface {
	CreateMailbox(ctx context.Context, mb *domain.Mailbox) error
	GetMailbox(ctx context.Context, address string) (*domain.Mailbox, error)
	GetMailboxByAPIToken(ctx context.Context, token string) (*domain.Mailbox, error)
	UpdateMailbox(ctx context.Context, mb *domain.Mailbox) error
	DeleteMailbox(ctx context.Context, address string) error
	ListMailboxes(ctx context.Context) ([]domain.Mailbox, error)
	ListMailboxesByOwner(ctx context.Context, owner string) ([]domain.Mailbox, error)

	ProvisionedMailboxes(ctx context.Context) ([]string, error)
	UpsertProvisionedMailbox(ctx context.Context, mb *domain.Mailbox) error
}

// AliasRepository 定义别名数据存取操作。
type AliasRepository interface {
	CreateAlias(ctx context.Context, a *domain.Alias) error
	GetAlias(ctx context.Context, address string) (*domain.Alias, error)
	UpdateAlias(ctx context.Context, a *domain.Alias) error
	DeleteAlias(ctx context.Context, address string) error
	ListAliases(ctx context.Context) ([]domain.Alias, error)
	ListAliasesByOwners(ctx context.Context, owners []string) ([]domain.Alias, error)

	ProvisionedAliases(ctx context.Context) ([]string, error)
	UpsertProvisionedAlias(ctx context.Context, a *domain.Alias) error
}

// Store 定义完整的存储接口。
type Store interface {
	UserRepository
	DomainRepository
	MailboxRepository
	AliasRepository

	// InTx 在单个事务内执行 fn；fn 返回错误时回滚。
	// 调和器用它保证每个实体种类的 pass 原子提交。
	InTx(ctx context.Context, fn func(tx Store) error) error

	Close() error
	Health(ctx context.Context) error
}
