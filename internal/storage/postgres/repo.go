// Package postgres implements a Postgres repository using pgx v5. Statements
// with arguments arrive with "?" placeholders and are rebound to $n before
// execution.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/bitnick10/pbsqlite/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN          string // connection string for pgxpool
	MaxOpenConns int    // pool_max_conns override; 0 keeps the pgxpool default
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	close := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, close, nil
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, query string, args ...any) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, rebind(query, args), args...); err != nil {
		return pgError("exec", err)
	}
	return nil
}

// Query implements storage.Repository.Query for Postgres.
func (r *Repository) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	rs, err := r.pool.Query(ctx, rebind(query, args), args...)
	if err != nil {
		return nil, pgError("query", err)
	}
	return rows{Rows: rs}, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() storage.Dialect { return Dialect }

// rebind turns "?" into $n. A statement without arguments is sent as is:
// a select condition or a literal value may contain a "?" of its own.
func rebind(query string, args []any) string {
	if len(args) == 0 {
		return query
	}
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

// pgError keeps the server's detail and SQLSTATE in the message.
func pgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg := pgErr.Message
		if pgErr.Detail != "" {
			msg += ": " + pgErr.Detail
		}
		return fmt.Errorf("postgres: %s: %s (%s): %w", op, msg, pgErr.SQLState(), err)
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

// rows adapts pgx.Rows to storage.Rows.
type rows struct {
	pgx.Rows
}

// Columns returns the result column names from the row description.
func (r rows) Columns() ([]string, error) {
	fds := r.FieldDescriptions()
	names := make([]string, len(fds))
	for i, fd := range fds {
		names[i] = fd.Name
	}
	return names, nil
}

// Close releases the connection back to the pool.
func (r rows) Close() error {
	r.Rows.Close()
	return nil
}
