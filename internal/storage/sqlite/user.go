package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// CreateUser 插入新用户，主键冲突返回 domain.ErrConflict。
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, admin, active, provisioned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username, user.PasswordHash, user.Admin, user.Active, user.Provisioned, user.CreatedAt)
	return mapError(err)
}

// GetUser 按用户名查询。
func (s *Store) GetUser(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.q.QueryRowContext(ctx,
		`SELECT username, password_hash, admin, active, provisioned, created_at
		 FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// UpdateUser 覆盖用户的全部可变字段。
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, admin = ?, active = ?, provisioned = ?
		 WHERE username = ?`,
		user.PasswordHash, user.Admin, user.Active, user.Provisioned, user.Username)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res, storage.ErrUserNotFound)
}

// DeleteUser 删除用户。不级联删除其域名、邮箱或别名。
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.q.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res, storage.ErrUserNotFound)
}

// ListUsers 返回全部用户。
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.q.QueryContext(ctx,
		`SELECT username, password_hash, admin, active, provisioned, created_at
		 FROM users ORDER BY username`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.Admin, &u.Active, &u.Provisioned, &u.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		users = append(users, u)
	}
	return users, mapError(rows.Err())
}

// CountAdmins 统计管理员数量。
func (s *Store) CountAdmins(ctx context.Context, activeOnly bool) (int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM users WHERE admin = TRUE`
	if activeOnly {
		query += ` AND active = TRUE`
	}
	var count int
	if err := s.q.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// ListAdmins 返回所有管理员行。
func (s *Store) ListAdmins(ctx context.Context) ([]domain.User, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.q.QueryContext(ctx,
		`SELECT username, password_hash, admin, active, provisioned, created_at
		 FROM users WHERE admin = TRUE ORDER BY username`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.Admin, &u.Active, &u.Provisioned, &u.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		users = append(users, u)
	}
	return users, mapError(rows.Err())
}

// ProvisionedUsernames 返回 provisioned=TRUE 的用户名集合。
func (s *Store) ProvisionedUsernames(ctx context.Context) ([]string, error) {
	return s.provisionedKeys(ctx, `SELECT username FROM users WHERE provisioned = TRUE`)
}

// UpsertProvisionedUser 按调和语义写入：不存在则插入，存在则覆盖
// 全部可变字段并强制 provisioned=TRUE。
func (s *Store) UpsertProvisionedUser(ctx context.Context, user *domain.User) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, admin, active, provisioned, created_at)
		 VALUES (?, ?, ?, ?, TRUE, ?)
		 ON CONFLICT (username) DO UPDATE SET
		   password_hash = excluded.password_hash,
		   admin = excluded.admin,
		   active = excluded.active,
		   provisioned = TRUE`,
		user.Username, user.PasswordHash, user.Admin, user.Active, user.CreatedAt)
	return mapError(err)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.Username, &u.PasswordHash, &u.Admin, &u.Active, &u.Provisioned, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// provisionedKeys 读取单列字符串结果集。
func (s *Store) provisionedKeys(ctx context.Context, query string) ([]string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, mapError(err)
		}
		keys = append(keys, key)
	}
	return keys, mapError(rows.Err())
}

// requireAffected 把零行影响翻译为 notFound。
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
