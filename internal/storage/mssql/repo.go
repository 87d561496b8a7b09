// Package mssql implements a Microsoft SQL Server repository on sqlx with the
// go-mssqldb driver. Statements with arguments arrive with "?" placeholders
// and are rebound to @pN before execution.
package mssql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/bitnick10/pbsqlite/internal/storage"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN          string
	MaxOpenConns int
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sqlx.DB
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sqlx.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlx.Open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	close := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, close, nil
}

// Exec implements storage.Repository.Exec for MSSQL.
func (r *Repository) Exec(ctx context.Context, query string, args ...any) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, rebind(query, args), args...); err != nil {
		return msError("exec", err)
	}
	return nil
}

// Query implements storage.Repository.Query for MSSQL.
func (r *Repository) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	rows, err := r.db.QueryxContext(ctx, rebind(query, args), args...)
	if err != nil {
		return nil, msError("query", err)
	}
	return rows, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() storage.Dialect { return Dialect }

// rebind turns "?" into @pN only when there is something to bind.
func rebind(query string, args []any) string {
	if len(args) == 0 {
		return query
	}
	return sqlx.Rebind(sqlx.AT, query)
}

// msError keeps the server error number in the message.
func msError(op string, err error) error {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return fmt.Errorf("mssql: %s: error %d: %w", op, msErr.Number, err)
	}
	return fmt.Errorf("mssql: %s: %w", op, err)
}
