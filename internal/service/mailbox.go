package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"idmail/backend/internal/auth"
	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// MailboxService 封装邮箱管理操作。
type MailboxService struct {
	store storage.Store
	log   *zap.Logger
}

// NewMailboxService 创建邮箱业务服务。
func NewMailboxService(store storage.Store, log *zap.Logger) *MailboxService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MailboxService{store: store, log: log}
}

// List 列出操作者可见的邮箱：管理员全部，用户自己拥有的，
// 邮箱身份只看到自己。
func (s *MailboxService) List(ctx context.Context, actor *auth.Identity) ([]domain.Mailbox, error) {
	switch {
	case actor.Admin:
		return s.store.ListMailboxes(ctx)
	case actor.IsMailbox():
		mb, err := s.store.GetMailbox(ctx, actor.Username)
		if err != nil {
			return nil, err
		}
		return []domain.Mailbox{*mb}, nil
	default:
		return s.store.ListMailboxesByOwner(ctx, actor.Username)
	}
}

// CreateMailboxInput 定义创建邮箱的输入。
// Owner 只有管理员可以指定，为空时归操作者自己。
type CreateMailboxInput struct {
	LocalPart string
	Domain    string
	Password  string
	Owner     string
	Active    bool
}

// Create 创建新邮箱。域必须对操作者可用；保留本地部分只有
// 域所有者或管理员可以占用。
func (s *MailboxService) Create(ctx context.Context, actor *auth.Identity, input CreateMailboxInput) (*domain.Mailbox, error) {
	if actor.IsMailbox() {
		return nil, domain.Unauthorizedf("mailbox accounts may not create mailboxes")
	}

	// 只有管理员可以指定其他所有者
	owner := actor.Username
	if actor.Admin && strings.TrimSpace(input.Owner) != "" {
		owner = strings.TrimSpace(input.Owner)
	}

	domainName := strings.ToLower(strings.TrimSpace(input.Domain))
	d, err := s.store.GetDomain(ctx, domainName)
	if err != nil {
		if errors.Is(err, storage.ErrDomainNotFound) {
			return nil, domain.Validationf("domain %q does not exist", domainName)
		}
		return nil, err
	}
	if !actor.CanUseDomain(d) {
		return nil, domain.Validationf("domain %q does not exist or is not allowed to be used", domainName)
	}

	address, err := domain.ValidateAddress(input.LocalPart, domainName, actor.AllowReservedIn(d))
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	mb := &domain.Mailbox{
		Address:      address,
		Domain:       domainName,
		PasswordHash: hash,
		Active:       input.Active,
		Owner:        owner,
		Provisioned:  false,
	}
	if err := s.store.CreateMailbox(ctx, mb); err != nil {
		return nil, err
	}

	s.log.Info("mailbox created",
		zap.String("mailbox", mb.Address),
		zap.String("owner", mb.Owner),
		zap.String("by", actor.Username))
	return mb, nil
}

// UpdateMailboxInput 定义更新邮箱的输入。Password 为空表示不改密码，
// Owner 只有管理员可以改，传空保持不变。
type UpdateMailboxInput struct {
	Address  string
	Password string
	Owner    string
	Active   bool
}

// Update 更新邮箱。管理员或所有者可用。
func (s *MailboxService) Update(ctx context.Context, actor *auth.Identity, input UpdateMailboxInput) error {
	mb, err := s.store.GetMailbox(ctx, input.Address)
	if err != nil {
		return err
	}
	if actor.IsMailbox() || !actor.CanManageMailbox(mb) {
		return domain.Unauthorizedf("not allowed to modify mailbox %q", input.Address)
	}

	if input.Owner != "" && input.Owner != mb.Owner {
		if !actor.Admin {
			return domain.Unauthorizedf("only admins may change mailbox ownership")
		}
		if _, err := s.store.GetUser(ctx, input.Owner); err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return domain.Validationf("owner %q must be an existing user", input.Owner)
			}
			return err
		}
		mb.Owner = input.Owner
	}

	if input.Password != "" {
		hash, err := auth.HashPassword(input.Password)
		if err != nil {
			return err
		}
		mb.PasswordHash = hash
	}
	mb.Active = input.Active
	return s.store.UpdateMailbox(ctx, mb)
}

// SetActive 切换邮箱启用状态。
func (s *MailboxService) SetActive(ctx context.Context, actor *auth.Identity, address string, activeFlag bool) error {
	mb, err := s.store.GetMailbox(ctx, address)
	if err != nil {
		return err
	}
	if actor.IsMailbox() || !actor.CanManageMailbox(mb) {
		return domain.Unauthorizedf("not allowed to modify mailbox %q", address)
	}
	mb.Active = activeFlag
	return s.store.UpdateMailbox(ctx, mb)
}

// RegenerateAPIToken 为邮箱生成新的 API token 并返回明文。
// 只有邮箱身份本身可以调用。token 的全局唯一性由存储层的
// UNIQUE 约束保证，这里不做预检查。
func (s *MailboxService) RegenerateAPIToken(ctx context.Context, actor *auth.Identity) (string, error) {
	if !actor.IsMailbox() {
		return "", domain.Unauthorizedf("must be a mailbox account")
	}

	mb, err := s.store.GetMailbox(ctx, actor.Username)
	if err != nil {
		return "", err
	}
	token, err := auth.GenerateAPIToken()
	if err != nil {
		return "", err
	}
	mb.APIToken = token
	if err := s.store.UpdateMailbox(ctx, mb); err != nil {
		return "", err
	}

	s.log.Info("api token regenerated", zap.String("mailbox", mb.Address))
	return token, nil
}

// Delete 删除邮箱。管理员或所有者可用；指向它的别名保持不动。
func (s *MailboxService) Delete(ctx context.Context, actor *auth.Identity, address string) error {
	mb, err := s.store.GetMailbox(ctx, address)
	if err != nil {
		return err
	}
	if actor.IsMailbox() || !actor.CanManageMailbox(mb) {
		return domain.Unauthorizedf("not allowed to delete mailbox %q", address)
	}
	if err := s.store.DeleteMailbox(ctx, address); err != nil {
		return err
	}
	s.log.Info("mailbox deleted", zap.String("mailbox", address), zap.String("by", actor.Username))
	return nil
}
