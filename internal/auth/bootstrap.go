package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// BootstrapResult 描述引导守卫做出的恢复动作。
type BootstrapResult struct {
	// Username 被激活或新建的管理员用户名
	Username string
	// Password 新合成管理员的明文初始密码，只在这里出现一次；
	// 激活既有管理员时为空。
	Password string
	// Promoted 为 true 表示激活了已有的管理员行而不是新建
	Promoted bool
}

// EnsureAdmin 保证系统至少有一个 active 的管理员。
// 必须在调和之后执行，否则声明式配置里的管理员会被误判为缺失。
//
// 恢复策略：已有 active 管理员则什么都不做；存在唯一一个
// admin=TRUE 的行则重新激活它；否则合成一个新管理员，随机密码
// 的明文通过返回值交给调用方输出一次，之后不可再推导。
func EnsureAdmin(ctx context.Context, store storage.Store, log *zap.Logger) (*BootstrapResult, error) {
	if log == nil {
		log = zap.NewNop()
	}

	active, err := store.CountAdmins(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count active admins: %w", err)
	}
	if active > 0 {
		return nil, nil
	}

	admins, err := store.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	if len(admins) == 1 {
		admin := admins[0]
		admin.Active = true
		if err := store.UpdateUser(ctx, &admin); err != nil {
			return nil, fmt.Errorf("failed to reactivate admin %q: %w", admin.Username, err)
		}
		log.Warn("no active admin found, reactivated existing admin",
			zap.String("user", admin.Username))
		return &BootstrapResult{Username: admin.Username, Promoted: true}, nil
	}

	password, err := GeneratePassword()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	// 用户名可能被普通用户占用，带序号重试
	for i := 0; i < 10; i++ {
		username := "admin"
		if i > 0 {
			username = fmt.Sprintf("admin-%d", i)
		}

		user := &domain.User{
			Username:     username,
			PasswordHash: hash,
			Admin:        true,
			Active:       true,
			Provisioned:  false,
		}
		err := store.CreateUser(ctx, user)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Warn("no admin user found, created a new one", zap.String("user", username))
		return &BootstrapResult{Username: username, Password: password}, nil
	}

	return nil, fmt.Errorf("failed to find a free admin username")
}
