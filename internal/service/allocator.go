package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"idmail/backend/internal/auth"
	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// maxAllocAttempts 是随机别名分配在放弃前的最大重试次数。
const maxAllocAttempts = 10

// CreateRandom 代表已认证邮箱生成一个随机别名，返回新地址。
// explicitDomain 为空或 "random" 时在可用且启用的域里均匀随机选择，
// 否则要求该域对邮箱的所属用户可用。唯一性由别名主键约束保证，
// 冲突时换名重试，重试耗尽返回容量错误。
func (s *AliasService) CreateRandom(ctx context.Context, actor *auth.Identity, explicitDomain, comment string) (string, error) {
	if !actor.IsMailbox() {
		return "", domain.Unauthorizedf("must be a mailbox account")
	}

	domainName, err := s.resolveTargetDomain(ctx, actor, explicitDomain)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		localPart, err := randomLocalPart()
		if err != nil {
			return "", err
		}
		address, err := domain.ValidateAddress(localPart, domainName, false)
		if err != nil {
			return "", err
		}

		// 同名邮箱存在时直接换名，跨表没有联合约束
		if _, err := s.store.GetMailbox(ctx, address); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrMailboxNotFound) {
			return "", err
		}

		a := &domain.Alias{
			Address:     address,
			Domain:      domainName,
			Target:      actor.Username,
			Comment:     comment,
			Active:      true,
			Owner:       actor.Username,
			Provisioned: false,
		}
		err = s.store.CreateAlias(ctx, a)
		if err == nil {
			s.log.Info("random alias allocated",
				zap.String("alias", address),
				zap.String("mailbox", actor.Username),
				zap.Int("attempt", attempt+1))
			return address, nil
		}
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		return "", err
	}

	return "", domain.Conflictf("could not allocate a free alias under %q after %d attempts", domainName, maxAllocAttempts)
}

// resolveTargetDomain 确定随机别名落在哪个域。
func (s *AliasService) resolveTargetDomain(ctx context.Context, actor *auth.Identity, explicitDomain string) (string, error) {
	explicitDomain = strings.ToLower(strings.TrimSpace(explicitDomain))

	if explicitDomain != "" && explicitDomain != "random" {
		d, err := s.store.GetDomain(ctx, explicitDomain)
		if err != nil {
			if errors.Is(err, storage.ErrDomainNotFound) {
				return "", domain.Validationf("domain %q does not exist", explicitDomain)
			}
			return "", err
		}
		if !actor.CanUseDomain(d) {
			return "", domain.Validationf("domain %q does not exist or is not allowed to be used", explicitDomain)
		}
		return d.Domain, nil
	}

	all, err := s.store.ListDomains(ctx)
	if err != nil {
		return "", err
	}
	usable := actor.UsableDomains(all, true)
	if len(usable) == 0 {
		return "", domain.Validationf("no usable domain for random alias")
	}
	i, err := rand.Int(rand.Reader, big.NewInt(int64(len(usable))))
	if err != nil {
		return "", err
	}
	return usable[i.Int64()].Domain, nil
}
