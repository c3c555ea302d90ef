package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// Identity 表示一次请求的操作者身份：用户或邮箱。
// 登录入口统一接受用户名或邮箱地址，两张表在这里合并成一个视图。
type Identity struct {
	// Username 用户名或邮箱地址
	Username string
	// PasswordHash 对应的密码哈希
	PasswordHash string
	// MailboxOwner 邮箱身份时为所属用户名，用户身份时为空
	MailboxOwner string
	// Admin 是否管理员（邮箱身份永远为 false）
	Admin bool
	// Active 是否启用
	Active bool
}

// IsMailbox 判断是否邮箱身份。
func (id *Identity) IsMailbox() bool {
	return id.MailboxOwner != ""
}

// OwningUser 返回承担所有权的用户名：
// 用户身份是自己，邮箱身份是它的所属用户。
func (id *Identity) OwningUser() string {
	if id.IsMailbox() {
		return id.MailboxOwner
	}
	return id.Username
}

// Service 负责身份解析与口令验证。
type Service struct {
	store storage.Store
	log   *zap.Logger
}

// NewService 创建认证服务。
func NewService(store storage.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

// Lookup 按用户名或邮箱地址解析身份。
// 用户名不含 @，邮箱地址必含 @，两个命名空间不会重叠。
func (s *Service) Lookup(ctx context.Context, username string) (*Identity, error) {
	if !strings.Contains(username, "@") {
		user, err := s.store.GetUser(ctx, username)
		if err != nil {
			return nil, err
		}
		return &Identity{
			Username:     user.Username,
			PasswordHash: user.PasswordHash,
			Admin:        user.Admin,
			Active:       user.Active,
		}, nil
	}

	mb, err := s.store.GetMailbox(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &Identity{
		Username:     mb.Address,
		PasswordHash: mb.PasswordHash,
		MailboxOwner: mb.Owner,
		Active:       mb.Active,
	}, nil
}

// LookupByAPIToken 按 API token 解析邮箱身份。
// 过短的 token 直接拒绝，不做存储查询；停用的邮箱同样拒绝。
func (s *Service) LookupByAPIToken(ctx context.Context, token string) (*Identity, error) {
	if len(token) < domain.MinAPITokenLength {
		return nil, domain.Unauthorizedf("invalid API token")
	}

	mb, err := s.store.GetMailboxByAPIToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			return nil, domain.Unauthorizedf("invalid API token")
		}
		return nil, err
	}
	if !mb.Active {
		s.log.Warn("denying valid api token because mailbox is inactive",
			zap.String("mailbox", mb.Address))
		return nil, domain.Unauthorizedf("invalid API token")
	}

	return &Identity{
		Username:     mb.Address,
		PasswordHash: mb.PasswordHash,
		MailboxOwner: mb.Owner,
		Active:       mb.Active,
	}, nil
}

// Authenticate 验证用户名（或邮箱地址）加密码。
// 所有失败路径返回同一个笼统错误，避免向客户端泄露账户是否存在。
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	genericErr := domain.Unauthorizedf("wrong password or invalid user")

	id, err := s.Lookup(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, genericErr
		}
		return nil, err
	}

	if !CheckPassword(password, id.PasswordHash) {
		s.log.Warn("failed authentication", zap.String("user", username))
		return nil, genericErr
	}
	if !id.Active {
		s.log.Warn("denying successful login attempt because user is inactive",
			zap.String("user", username))
		return nil, genericErr
	}

	s.log.Info("login successful", zap.String("user", username))
	return id, nil
}
