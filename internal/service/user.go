package service

import (
	"context"

	"go.uber.org/zap"

	"idmail/backend/internal/auth"
	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// UserService 封装用户管理操作。除改密码外全部是管理员专属。
type UserService struct {
	store storage.Store
	auth  *auth.Service
	log   *zap.Logger
}

// NewUserService 创建用户业务服务。
func NewUserService(store storage.Store, authService *auth.Service, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{store: store, auth: authService, log: log}
}

// List 列出全部用户（管理员专属）。
func (s *UserService) List(ctx context.Context, actor *auth.Identity) ([]domain.User, error) {
	if !actor.Admin {
		return nil, domain.Unauthorizedf("only admins may list users")
	}
	return s.store.ListUsers(ctx)
}

// CreateUserInput 定义创建用户的输入。
type CreateUserInput struct {
	Username string
	Password string
	Admin    bool
	Active   bool
}

// Create 创建新用户（管理员专属）。交互创建的行 provisioned=FALSE，
// 调和器永远不会删除它。
func (s *UserService) Create(ctx context.Context, actor *auth.Identity, input CreateUserInput) (*domain.User, error) {
	if !actor.Admin {
		return nil, domain.Unauthorizedf("only admins may create users")
	}
	if err := domain.ValidateUsername(input.Username); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     input.Username,
		PasswordHash: hash,
		Admin:        input.Admin,
		Active:       input.Active,
		Provisioned:  false,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user created",
		zap.String("user", user.Username),
		zap.Bool("admin", user.Admin),
		zap.String("by", actor.Username))
	return user, nil
}

// UpdateUserInput 定义更新用户的输入。Password 为空表示不改密码。
type UpdateUserInput struct {
	Username string
	Password string
	Admin    bool
	Active   bool
}

// Update 更新用户（管理员专属）。
func (s *UserService) Update(ctx context.Context, actor *auth.Identity, input UpdateUserInput) error {
	if !actor.Admin {
		return domain.Unauthorizedf("only admins may update users")
	}

	user, err := s.store.GetUser(ctx, input.Username)
	if err != nil {
		return err
	}
	if input.Password != "" {
		hash, err := auth.HashPassword(input.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}
	user.Admin = input.Admin
	user.Active = input.Active

	return s.store.UpdateUser(ctx, user)
}

// Delete 删除用户（管理员专属）。其域名、邮箱、别名保持不动。
func (s *UserService) Delete(ctx context.Context, actor *auth.Identity, username string) error {
	if !actor.Admin {
		return domain.Unauthorizedf("only admins may delete users")
	}
	if err := s.store.DeleteUser(ctx, username); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user", username), zap.String("by", actor.Username))
	return nil
}

// ChangePassword 修改自己的密码。用户和邮箱身份都可用，
// 需要先验证当前密码。
func (s *UserService) ChangePassword(ctx context.Context, actor *auth.Identity, currentPassword, newPassword string) error {
	if _, err := s.auth.Authenticate(ctx, actor.Username, currentPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if actor.IsMailbox() {
		mb, err := s.store.GetMailbox(ctx, actor.Username)
		if err != nil {
			return err
		}
		mb.PasswordHash = hash
		return s.store.UpdateMailbox(ctx, mb)
	}

	user, err := s.store.GetUser(ctx, actor.Username)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.store.UpdateUser(ctx, user)
}
