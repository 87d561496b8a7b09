// Package sqlite implements a SQLite-backed storage.Repository on top of
// sqlx. Statements arrive with "?" placeholders, which SQLite accepts
// natively.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bitnick10/pbsqlite/internal/storage"
)

// Dialect renders SQLite statements: TEXT, INTEGER and REAL columns and the
// native REPLACE INTO.
var Dialect = storage.StandardDialect{DialectName: "sqlite"}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sqlx.DB
	cfg Config
}

// Open opens a SQLite database with the compiled-in driver.
func Open(dsn string) (*sqlx.DB, error) {
	return sqlx.Open(DriverName, dsn)
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
//
// DSN is passed directly to the driver; for example:
//
//	"file:people.db?_pragma=busy_timeout(5000)"
//	":memory:"
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := Open(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	conns := cfg.MaxOpenConns
	if conns <= 0 {
		conns = 1
	}
	db.SetMaxOpenConns(conns)

	// Apply a basic ping with context to fail fast on invalid DSNs.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// Exec executes a statement with "?" placeholders bound to args.
func (r *Repository) Exec(ctx context.Context, query string, args ...any) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// Query runs a statement and returns its cursor. The caller closes it.
func (r *Repository) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	return rows, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() storage.Dialect { return Dialect }

// Schema returns the CREATE statement SQLite stored for table, as recorded in
// sqlite_master.
func (r *Repository) Schema(ctx context.Context, table string) (string, error) {
	var ddl string
	err := r.db.GetContext(ctx, &ddl, `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("sqlite: table %q not found", table)
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: schema %s: %w", table, err)
	}
	return ddl, nil
}
