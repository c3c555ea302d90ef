package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// Store SQLite 存储实现。整个地址空间保存在单个数据库文件里，
// 以 WAL 模式打开，邮件服务器可以并发只读同一文件做投递查询。
type Store struct {
	db *sql.DB
	q  queryer
	// queryTimeout 单条语句的超时上限，超时以 domain.ErrStore 上报。
	queryTimeout time.Duration
}

// queryer 抽象 *sql.DB 与 *sql.Tx 的共同查询接口。
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Options SQLite 打开参数。
type Options struct {
	Path         string
	BusyTimeout  time.Duration
	QueryTimeout time.Duration
}

// NewStore 打开（必要时创建）数据库文件并确保 schema 存在。
func NewStore(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	queryTimeout := opts.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=off&_loc=UTC",
		opts.Path, busy.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite 单写者，限制连接数避免写锁竞争退化成 busy 循环。
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	s := &Store{db: db, q: db, queryTimeout: queryTimeout}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema 建表。四张表全部使用自然字符串主键。
func (s *Store) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		username      TEXT PRIMARY KEY NOT NULL,
		password_hash TEXT NOT NULL,
		admin         BOOLEAN NOT NULL DEFAULT FALSE,
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		provisioned   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS domains (
		domain      TEXT PRIMARY KEY NOT NULL,
		catch_all   TEXT NOT NULL DEFAULT '',
		public      BOOLEAN NOT NULL DEFAULT FALSE,
		active      BOOLEAN NOT NULL DEFAULT TRUE,
		owner       TEXT NOT NULL,
		provisioned BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS mailboxes (
		address       TEXT PRIMARY KEY NOT NULL,
		domain        TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		api_token     TEXT UNIQUE,
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		owner         TEXT NOT NULL,
		provisioned   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS aliases (
		address     TEXT PRIMARY KEY NOT NULL,
		domain      TEXT NOT NULL,
		target      TEXT NOT NULL,
		comment     TEXT NOT NULL DEFAULT '',
		n_recv      INTEGER NOT NULL DEFAULT 0,
		n_sent      INTEGER NOT NULL DEFAULT 0,
		active      BOOLEAN NOT NULL DEFAULT TRUE,
		owner       TEXT NOT NULL,
		provisioned BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_mailboxes_domain ON mailboxes(domain);
	CREATE INDEX IF NOT EXISTS idx_mailboxes_owner  ON mailboxes(owner);
	CREATE INDEX IF NOT EXISTS idx_aliases_domain   ON aliases(domain);
	CREATE INDEX IF NOT EXISTS idx_aliases_owner    ON aliases(owner);
	`
	_, err := s.q.ExecContext(ctx, schema)
	return err
}

// InTx 在单个事务内执行 fn。已处于事务中时直接复用当前事务。
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	txStore := &Store{db: s.db, q: tx, queryTimeout: s.queryTimeout}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

// Close 关闭数据库。
func (s *Store) Close() error {
	return s.db.Close()
}

// Health 检查数据库连通性。
func (s *Store) Health(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// opCtx 给单条语句加超时。
func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// mapError 把驱动层错误翻译成业务错误分类。
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %v", domain.ErrStore, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return err
}
