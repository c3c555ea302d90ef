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

// AliasService 封装转发别名的管理操作。
type AliasService struct {
	store storage.Store
	auth  *auth.Service
	log   *zap.Logger
}

// NewAliasService 创建别名业务服务。
func NewAliasService(store storage.Store, authSvc *auth.Service, log *zap.Logger) *AliasService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AliasService{store: store, auth: authSvc, log: log}
}

// List 列出操作者可见的别名：管理员全部；邮箱身份只看 owner 是
// 自己的；用户看到直接拥有的以及经由自己邮箱间接拥有的。
func (s *AliasService) List(ctx context.Context, actor *auth.Identity) ([]domain.Alias, error) {
	if actor.Admin {
		return s.store.ListAliases(ctx)
	}
	if actor.IsMailbox() {
		return s.store.ListAliasesByOwners(ctx, []string{actor.Username})
	}

	mailboxes, err := s.store.ListMailboxesByOwner(ctx, actor.Username)
	if err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(mailboxes)+1)
	owners = append(owners, actor.Username)
	for _, mb := range mailboxes {
		owners = append(owners, mb.Address)
	}
	return s.store.ListAliasesByOwners(ctx, owners)
}

// CreateAliasInput 定义创建别名的输入。
// Owner 只有管理员可以指定；为空时邮箱身份归自己的地址，
// 用户身份归自己的用户名。
type CreateAliasInput struct {
	LocalPart string
	Domain    string
	Target    string
	Comment   string
	Owner     string
	Active    bool
}

// Create 创建新别名。域必须对操作者可用，保留本地部分只有域所有者
// 或管理员可以占用，target 必须是操作者能支配的邮箱。
func (s *AliasService) Create(ctx context.Context, actor *auth.Identity, input CreateAliasInput) (*domain.Alias, error) {
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

	target := strings.ToLower(strings.TrimSpace(input.Target))
	if err := s.authorizeTarget(ctx, actor, target); err != nil {
		return nil, err
	}

	owner := actor.Username
	if actor.Admin && strings.TrimSpace(input.Owner) != "" {
		owner = strings.TrimSpace(input.Owner)
	}

	a := &domain.Alias{
		Address:     address,
		Domain:      domainName,
		Target:      target,
		Comment:     input.Comment,
		Active:      input.Active,
		Owner:       owner,
		Provisioned: false,
	}
	if err := s.store.CreateAlias(ctx, a); err != nil {
		return nil, err
	}

	s.log.Info("alias created",
		zap.String("alias", a.Address),
		zap.String("target", a.Target),
		zap.String("owner", a.Owner))
	return a, nil
}

// authorizeTarget 检查操作者能否把别名指向该邮箱：
// 管理员任意，其他身份只能指向自己支配的邮箱。
func (s *AliasService) authorizeTarget(ctx context.Context, actor *auth.Identity, target string) error {
	mb, err := s.store.GetMailbox(ctx, target)
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			return domain.Validationf("target mailbox %q does not exist", target)
		}
		return err
	}
	if !actor.CanManageMailbox(mb) {
		return domain.Unauthorizedf("not allowed to target mailbox %q", target)
	}
	return nil
}

// UpdateAliasInput 定义更新别名的输入。Target 为空表示不改指向。
type UpdateAliasInput struct {
	Address string
	Target  string
	Comment string
	Active  bool
}

// Update 更新别名。target 变化时重新做指向授权。
func (s *AliasService) Update(ctx context.Context, actor *auth.Identity, input UpdateAliasInput) error {
	a, err := s.store.GetAlias(ctx, input.Address)
	if err != nil {
		return err
	}
	allowed, err := s.auth.CanManageAlias(ctx, actor, a)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.Unauthorizedf("not allowed to modify alias %q", input.Address)
	}

	if target := strings.ToLower(strings.TrimSpace(input.Target)); target != "" && target != a.Target {
		if err := s.authorizeTarget(ctx, actor, target); err != nil {
			return err
		}
		a.Target = target
	}
	a.Comment = input.Comment
	a.Active = input.Active
	return s.store.UpdateAlias(ctx, a)
}

// SetActive 切换别名启用状态。
func (s *AliasService) SetActive(ctx context.Context, actor *auth.Identity, address string, activeFlag bool) error {
	a, err := s.store.GetAlias(ctx, address)
	if err != nil {
		return err
	}
	allowed, err := s.auth.CanManageAlias(ctx, actor, a)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.Unauthorizedf("not allowed to modify alias %q", address)
	}
	a.Active = activeFlag
	return s.store.UpdateAlias(ctx, a)
}

// Delete 删除别名。
func (s *AliasService) Delete(ctx context.Context, actor *auth.Identity, address string) error {
	a, err := s.store.GetAlias(ctx, address)
	if err != nil {
		return err
	}
	allowed, err := s.auth.CanManageAlias(ctx, actor, a)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.Unauthorizedf("not allowed to delete alias %q", address)
	}
	if err := s.store.DeleteAlias(ctx, address); err != nil {
		return err
	}
	s.log.Info("alias deleted", zap.String("alias", address), zap.String("by", actor.Username))
	return nil
}
