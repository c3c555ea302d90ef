package auth

import (
	"context"
	"errors"
	"strings"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// 能力模型：给定操作者身份、目标实体和动作，决定允许与否。
// 声明式调和器（隐式管理员权限）与交互路径使用完全相同的检查。

// CanUseDomain 判断操作者能否在该域下创建邮箱或别名：
// 管理员、域所有者，或域是 public 且 active。
func (id *Identity) CanUseDomain(d *domain.Domain) bool {
	if id.Admin {
		return true
	}
	if d.Owner == id.OwningUser() {
		return true
	}
	return d.Public && d.Active
}

// AllowReservedIn 判断操作者能否占用该域下的保留本地部分：
// 只有管理员和域所有者可以。
func (id *Identity) AllowReservedIn(d *domain.Domain) bool {
	return id.Admin || d.Owner == id.OwningUser()
}

// CanManageDomain 判断操作者能否修改该域。
// 非管理员的所有者只能改 catch_all/public/active，字段级限制由服务层执行；
// 域的创建和删除始终是管理员专属。
func (id *Identity) CanManageDomain(d *domain.Domain) bool {
	if id.IsMailbox() {
		return false
	}
	return id.Admin || d.Owner == id.Username
}

// CanManageMailbox 判断操作者能否修改该邮箱。
// 邮箱身份只能操作自己（且仅限密码和 API token，由服务层限定字段）。
func (id *Identity) CanManageMailbox(mb *domain.Mailbox) bool {
	if id.Admin {
		return true
	}
	if id.IsMailbox() {
		return id.Username == mb.Address
	}
	return mb.Owner == id.Username
}

// ResolveOwningUser 解析别名所有者对应的用户：
// owner 是邮箱地址时查出该邮箱的所属用户，否则 owner 本身就是用户名。
// 显式的两步解析，不做类型层级。
func (s *Service) ResolveOwningUser(ctx context.Context, owner string) (string, error) {
	if !strings.Contains(owner, "@") {
		return owner, nil
	}
	mb, err := s.store.GetMailbox(ctx, owner)
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			// 所有者邮箱已被删除，别名成为孤儿，只有管理员可及
			return "", nil
		}
		return "", err
	}
	return mb.Owner, nil
}

// CanManageAlias 判断操作者能否修改该别名：
// 管理员任意；邮箱身份仅限 owner 是自己的别名；
// 用户身份可以管理直接拥有以及经由自己邮箱间接拥有的别名。
func (s *Service) CanManageAlias(ctx context.Context, id *Identity, a *domain.Alias) (bool, error) {
	if id.Admin {
		return true, nil
	}
	if id.IsMailbox() {
		return a.Owner == id.Username, nil
	}
	if a.Owner == id.Username {
		return true, nil
	}
	owningUser, err := s.ResolveOwningUser(ctx, a.Owner)
	if err != nil {
		return false, err
	}
	return owningUser != "" && owningUser == id.Username, nil
}

// UsableDomains 过滤出操作者可用的域。requireActive 时额外要求
// active=TRUE（随机别名分配只在启用的域里选择）。
func (id *Identity) UsableDomains(domains []domain.Domain, requireActive bool) []domain.Domain {
	var usable []domain.Domain
	for _, d := range domains {
		if requireActive && !d.Active {
			continue
		}
		if id.CanUseDomain(&d) {
			usable = append(usable, d)
		}
	}
	return usable
}
