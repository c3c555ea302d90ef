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

// DomainService 封装域名管理操作。
// 域名的创建与删除是管理员专属；所有者只能调整
// catch_all/active，public 是管理员专属开关。
type DomainService struct {
	store storage.Store
	log   *zap.Logger
}

// NewDomainService 创建域名业务服务。
func NewDomainService(store storage.Store, log *zap.Logger) *DomainService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DomainService{store: store, log: log}
}

// List 列出操作者可见的域名：管理员全部，用户只看自己拥有的。
func (s *DomainService) List(ctx context.Context, actor *auth.Identity) ([]domain.Domain, error) {
	if actor.IsMailbox() {
		return nil, domain.Unauthorizedf("mailbox accounts may not list domains")
	}
	domains, err := s.store.ListDomains(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Admin {
		return domains, nil
	}
	var owned []domain.Domain
	for _, d := range domains {
		if d.Owner == actor.Username {
			owned = append(owned, d)
		}
	}
	return owned, nil
}

// Usable 列出操作者可用于创建邮箱/别名的域名。
func (s *DomainService) Usable(ctx context.Context, actor *auth.Identity) ([]domain.Domain, error) {
	domains, err := s.store.ListDomains(ctx)
	if err != nil {
		return nil, err
	}
	return actor.UsableDomains(domains, false), nil
}

// CreateDomainInput 定义创建域名的输入。
type CreateDomainInput struct {
	Domain   string
	Owner    string
	CatchAll string
	Public   bool
	Active   bool
}

// Create 创建新域名（管理员专属）。
func (s *DomainService) Create(ctx context.Context, actor *auth.Identity, input CreateDomainInput) (*domain.Domain, error) {
	if !actor.Admin {
		return nil, domain.Unauthorizedf("only admins may create domains")
	}

	name := strings.ToLower(strings.TrimSpace(input.Domain))
	if err := domain.ValidateDomainName(name); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, input.Owner); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, domain.Validationf("owner %q must be an existing user", input.Owner)
		}
		return nil, err
	}
	if err := s.validateCatchAll(ctx, input.CatchAll); err != nil {
		return nil, err
	}

	d := &domain.Domain{
		Domain:      name,
		CatchAll:    input.CatchAll,
		Public:      input.Public,
		Active:      input.Active,
		Owner:       input.Owner,
		Provisioned: false,
	}
	if err := s.store.CreateDomain(ctx, d); err != nil {
		return nil, err
	}

	s.log.Info("domain created",
		zap.String("domain", d.Domain),
		zap.String("owner", d.Owner),
		zap.String("by", actor.Username))
	return d, nil
}

// UpdateDomainInput 定义更新域名的输入。
// Owner 只有管理员可以改，传空保持不变。
type UpdateDomainInput struct {
	Domain   string
	CatchAll string
	Public   bool
	Active   bool
	Owner    string
}

// Update 更新域名。所有者（非管理员）只能改 catch_all/active；
// public 决定任何用户都能在这个域下建邮箱和别名，
// 只有管理员可以改。
func (s *DomainService) Update(ctx context.Context, actor *auth.Identity, input UpdateDomainInput) error {
	d, err := s.store.GetDomain(ctx, input.Domain)
	if err != nil {
		return err
	}
	if !actor.CanManageDomain(d) {
		return domain.Unauthorizedf("not allowed to modify domain %q", d.Domain)
	}

	if input.Owner != "" && input.Owner != d.Owner {
		if !actor.Admin {
			return domain.Unauthorizedf("only admins may change domain ownership")
		}
		if _, err := s.store.GetUser(ctx, input.Owner); err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return domain.Validationf("owner %q must be an existing user", input.Owner)
			}
			return err
		}
		d.Owner = input.Owner
	}
	if err := s.validateCatchAll(ctx, input.CatchAll); err != nil {
		return err
	}

	d.CatchAll = input.CatchAll
	if actor.Admin {
		d.Public = input.Public
	}
	d.Active = input.Active
	return s.store.UpdateDomain(ctx, d)
}

// SetPublicAndActive 切换域名的公开与启用状态。
// 非管理员所有者只能切 active，public 保持原值。
func (s *DomainService) SetPublicAndActive(ctx context.Context, actor *auth.Identity, name string, public, activeFlag bool) error {
	d, err := s.store.GetDomain(ctx, name)
	if err != nil {
		return err
	}
	if !actor.CanManageDomain(d) {
		return domain.Unauthorizedf("not allowed to modify domain %q", name)
	}
	if actor.Admin {
		d.Public = public
	}
	d.Active = activeFlag
	return s.store.UpdateDomain(ctx, d)
}

// Delete 删除域名（管理员专属）。其下的邮箱和别名不级联删除。
func (s *DomainService) Delete(ctx context.Context, actor *auth.Identity, name string) error {
	if !actor.Admin {
		return domain.Unauthorizedf("only admins may delete domains")
	}
	if err := s.store.DeleteDomain(ctx, name); err != nil {
		return err
	}
	s.log.Info("domain deleted", zap.String("domain", name), zap.String("by", actor.Username))
	return nil
}

// validateCatchAll 校验 catch_all 指向一个存在的邮箱（软约束）。
func (s *DomainService) validateCatchAll(ctx context.Context, catchAll string) error {
	if catchAll == "" {
		return nil
	}
	if _, err := s.store.GetMailbox(ctx, catchAll); err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			return domain.Validationf("catch_all %q must reference an existing mailbox", catchAll)
		}
		return err
	}
	return nil
}
