package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// CreateDomain 插入新域名，主键冲突返回 domain.ErrConflict。
func (s *Store) CreateDomain(ctx context.Context, d *domain.Domain) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO domains (domain, catch_all, public, active, owner, provisioned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.Domain, d.CatchAll, d.Public, d.Active, d.Owner, d.Provisioned, d.CreatedAt)
	return mapError(err)
}

// GetDomain 按域名查询。
func (s *Store) GetDomain(ctx context.Context, name string) (*domain.Domain, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.q.QueryRowContext(ctx,
		`SELECT domain, catch_all, public, active, owner, provisioned, created_at
		 FROM domains WHERE domain = ?`, name)
	return scanDomain(row)
}

// UpdateDomain 覆盖域名的全部可变字段。
func (s *Store) UpdateDomain(ctx context.Context, d *domain.Domain) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.q.ExecContext(ctx,
		`UPDATE domains SET catch_all = ?, public = ?, active = ?, owner = ?, provisioned = ?
		 WHERE domain = ?`,
		d.CatchAll, d.Public, d.Active, d.Owner, d.Provisioned, d.Domain)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res, storage.ErrDomainNotFound)
}

// DeleteDomain 删除域名。其下邮箱与别名保持不动。
func (s *Store) DeleteDomain(ctx context.Context, name string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.q.ExecContext(ctx, `DELETE FROM domains WHERE domain = ?`, name)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res, storage.ErrDomainNotFound)
}

// ListDomains 返回全部域名。
func (s *Store) ListDomains(ctx context.Context) ([]domain.Domain, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.q.QueryContext(ctx,
		`SELECT domain, catch_all, public, active, owner, provisioned, created_at
		 FROM domains ORDER BY domain`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var domains []domain.Domain
	for rows.Next() {
		var d domain.Domain
		if err := rows.Scan(&d.Domain, &d.CatchAll, &d.Public, &d.Active, &d.Owner, &d.Provisioned, &d.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		domains = append(domains, d)
	}
	return domains, mapError(rows.Err())
}

// ProvisionedDomains 返回 provisioned=TRUE 的域名集合。
func (s *Store) ProvisionedDomains(ctx context.Context) ([]string, error) {
	return s.provisionedKeys(ctx, `SELECT domain FROM domains WHERE provisioned = TRUE`)
}

// UpsertProvisionedDomain 调和语义写入域名。
func (s *Store) UpsertProvisionedDomain(ctx context.Context, d *domain.Domain) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO domains (domain, catch_all, public, active, owner, provisioned, created_at)
		 VALUES (?, ?, ?, ?, ?, TRUE, ?)
		 ON CONFLICT (domain) DO UPDATE SET
		   catch_all = excluded.catch_all,
		   public = excluded.public,
		   active = excluded.active,
		   owner = excluded.owner,
		   provisioned = TRUE`,
		d.Domain, d.CatchAll, d.Public, d.Active, d.Owner, d.CreatedAt)
	return mapError(err)
}

func scanDomain(row *sql.Row) (*domain.Domain, error) {
	var d domain.Domain
	err := row.Scan(&d.Domain, &d.CatchAll, &d.Public, &d.Active, &d.Owner, &d.Provisioned, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrDomainNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &d, nil
}
