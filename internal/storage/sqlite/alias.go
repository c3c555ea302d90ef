package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

const aliasColumns = `address, domain, target, comment, n_recv, n_sent, active, owner, provisioned, created_at`

// CreateAlias 插入新别名，地址冲突返回 domain.ErrConflict。
// 随机别名分配器依赖这里的冲突语义做有界重试。
func (s *Store) CreateAlias(ctx context.Context, a *domain.Alias) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO aliases (`+aliasColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Address, a.Domain, a.Target, a.Comment, a.NumRecv, a.NumSent,
		a.Active, a.Owner, a.Provisioned, a.CreatedAt)
	return mapError(err)
}

// GetAlias 按地址查询。
func (s *Store) GetAlias(ctx context.Context, address string) (*domain.Alias, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.q.QueryRowContext(ctx,
		`SELECT `+aliasColumns+` FROM aliases WHERE address = ?`, address)
	return scanAlias(row)
}

// UpdateAlias 覆盖别名的全部可变字段（计数器除外）。
func (s *Store) UpdateAlias(ctx context.Context, a *domain.Alias) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.q.ExecContext(ctx,
		`UPDATE aliases SET target = ?, comment = ?, active = ?, owner = ?, provisioned = ?
		 WHERE address = ?`,
		a.Target, a.Comment, a.Active, a.Owner, a.Provisioned, a.Address)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res, storage.ErrAliasNotFound)
}

// DeleteAlias 删除别名。
func (s *Store) DeleteAlias(ctx context.Context, address string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.q.ExecContext(ctx, `DELETE FROM aliases WHERE address = ?`, address)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res, storage.ErrAliasNotFound)
}

// ListAliases 返回全部别名。
func (s *Store) ListAliases(ctx context.Context) ([]domain.Alias, error) {
	return s.listAliases(ctx, `SELECT `+aliasColumns+` FROM aliases ORDER BY address`)
}

// ListAliasesByOwners 返回 owner 在给定集合内的别名。
// 调用方传入用户名及该用户所有邮箱地址即可得到其直接与间接拥有的别名。
func (s *Store) ListAliasesByOwners(ctx context.Context, owners []string) ([]domain.Alias, error) {
	if len(owners) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(owners)), ", ")
	args := make([]any, len(owners))
	for i, o := range owners {
		args[i] = o
	}
	return s.listAliases(ctx,
		`SELECT `+aliasColumns+` FROM aliases WHERE owner IN (`+placeholders+`) ORDER BY address`,
		args...)
}

// ProvisionedAliases 返回 provisioned=TRUE 的地址集合。
func (s *Store) ProvisionedAliases(ctx context.Context) ([]string, error) {
	return s.provisionedKeys(ctx, `SELECT address FROM aliases WHERE provisioned = TRUE`)
}

// UpsertProvisionedAlias 调和语义写入别名。收发计数器保留原值。
func (s *Store) UpsertProvisionedAlias(ctx context.Context, a *domain.Alias) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO aliases (`+aliasColumns+`)
		 VALUES (?, ?, ?, ?, 0, 0, ?, ?, TRUE, ?)
		 ON CONFLICT (address) DO UPDATE SET
		   target = excluded.target,
		   comment = excluded.comment,
		   active = excluded.active,
		   owner = excluded.owner,
		   provisioned = TRUE`,
		a.Address, a.Domain, a.Target, a.Comment, a.Active, a.Owner, a.CreatedAt)
	return mapError(err)
}

func (s *Store) listAliases(ctx context.Context, query string, args ...any) ([]domain.Alias, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var aliases []domain.Alias
	for rows.Next() {
		var a domain.Alias
		if err := rows.Scan(&a.Address, &a.Domain, &a.Target, &a.Comment, &a.NumRecv, &a.NumSent,
			&a.Active, &a.Owner, &a.Provisioned, &a.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		aliases = append(aliases, a)
	}
	return aliases, mapError(rows.Err())
}

func scanAlias(row *sql.Row) (*domain.Alias, error) {
	var a domain.Alias
	err := row.Scan(&a.Address, &a.Domain, &a.Target, &a.Comment, &a.NumRecv, &a.NumSent,
		&a.Active, &a.Owner, &a.Provisioned, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrAliasNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &a, nil
}
