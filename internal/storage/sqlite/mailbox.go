package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// CreateMailbox 插入新邮箱。地址或 api_token 冲突返回 domain.ErrConflict。
func (s *Store) CreateMailbox(ctx context.Context, mb *domain.Mailbox) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if mb.CreatedAt.IsZero() {
		mb.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO mailboxes (address, domain, password_hash, api_token, active, owner, provisioned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		mb.Address, mb.Domain, mb.PasswordHash, nullIfEmpty(mb.APIToken),
		mb.Active, mb.Owner, mb.Provisioned, mb.CreatedAt)
	return mapError(err)
}

// GetMailbox 按地址查询。
func (s *Store) GetMailbox(ctx context.Context, address string) (*domain.Mailbox, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.q.QueryRowContext(ctx,
		`SELECT address, domain, password_hash, api_token, active, owner, provisioned, created_at
		 FROM mailboxes WHERE address = ?`, address)
	return scanMailbox(row)
}

// GetMailboxByAPIToken 按 API token 查询。token 全局唯一。
func (s *Store) GetMailboxByAPIToken(ctx context.Context, token string) (*domain.Mailbox, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.q.QueryRowContext(ctx,
		`SELECT address, domain, password_hash, api_token, active, owner, provisioned, created_at
		 FROM mailboxes WHERE api_token = ?`, token)
	return scanMailbox(row)
}

// UpdateMailbox 覆盖邮箱的全部可变字段。
func (s *Store) UpdateMailbox(ctx context.Context, mb *domain.Mailbox) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.q.ExecContext(ctx,
		`UPDATE mailboxes SET domain = ?, password_hash = ?, api_token = ?, active = ?, owner = ?, provisioned = ?
		 WHERE address = ?`,
		mb.Domain, mb.PasswordHash, nullIfEmpty(mb.APIToken), mb.Active, mb.Owner, mb.Provisioned, mb.Address)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res, storage.ErrMailboxNotFound)
}

// DeleteMailbox 删除邮箱。指向它的别名保持不动。
func (s *Store) DeleteMailbox(ctx context.Context, address string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.q.ExecContext(ctx, `DELETE FROM mailboxes WHERE address = ?`, address)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res, storage.ErrMailboxNotFound)
}

// ListMailboxes 返回全部邮箱。
func (s *Store) ListMailboxes(ctx context.Context) ([]domain.Mailbox, error) {
	return s.listMailboxes(ctx,
		`SELECT address, domain, password_hash, api_token, active, owner, provisioned, created_at
		 FROM mailboxes ORDER BY address`)
}

// ListMailboxesByOwner 返回某用户拥有的全部邮箱。
func (s *Store) ListMailboxesByOwner(ctx context.Context, owner string) ([]domain.Mailbox, error) {
	return s.listMailboxes(ctx,
		`SELECT address, domain, password_hash, api_token, active, owner, provisioned, created_at
		 FROM mailboxes WHERE owner = ? ORDER BY address`, owner)
}

// ProvisionedMailboxes 返回 provisioned=TRUE 的地址集合。
func (s *Store) ProvisionedMailboxes(ctx context.Context) ([]string, error) {
	return s.provisionedKeys(ctx, `SELECT address FROM mailboxes WHERE provisioned = TRUE`)
}

// UpsertProvisionedMailbox 调和语义写入邮箱。
func (s *Store) UpsertProvisionedMailbox(ctx context.Context, mb *domain.Mailbox) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if mb.CreatedAt.IsZero() {
		mb.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO mailboxes (address, domain, password_hash, api_token, active, owner, provisioned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, TRUE, ?)
		 ON CONFLICT (address) DO UPDATE SET
		   password_hash = excluded.password_hash,
		   api_token = excluded.api_token,
		   active = excluded.active,
		   owner = excluded.owner,
		   provisioned = TRUE`,
		mb.Address, mb.Domain, mb.PasswordHash, nullIfEmpty(mb.APIToken),
		mb.Active, mb.Owner, mb.CreatedAt)
	return mapError(err)
}

func (s *Store) listMailboxes(ctx context.Context, query string, args ...any) ([]domain.Mailbox, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var mailboxes []domain.Mailbox
	for rows.Next() {
		var mb domain.Mailbox
		var token sql.NullString
		if err := rows.Scan(&mb.Address, &mb.Domain, &mb.PasswordHash, &token,
			&mb.Active, &mb.Owner, &mb.Provisioned, &mb.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		mb.APIToken = token.String
		mailboxes = append(mailboxes, mb)
	}
	return mailboxes, mapError(rows.Err())
}

func scanMailbox(row *sql.Row) (*domain.Mailbox, error) {
	var mb domain.Mailbox
	var token sql.NullString
	err := row.Scan(&mb.Address, &mb.Domain, &mb.PasswordHash, &token,
		&mb.Active, &mb.Owner, &mb.Provisioned, &mb.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrMailboxNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	mb.APIToken = token.String
	return &mb, nil
}

// nullIfEmpty 空 token 存成 NULL，避免 UNIQUE 约束把空串当成冲突。
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
