// Package mysql implements a MySQL-backed storage.Repository on sqlx with
// go-sql-driver/mysql. MySQL accepts "?" placeholders and REPLACE INTO
// natively.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/bitnick10/pbsqlite/internal/ddl"
	"github.com/bitnick10/pbsqlite/internal/storage"
)

// Dialect renders MySQL statements. String columns are LONGTEXT except a
// string primary key, which must be VARCHAR(255) to be indexed.
var Dialect = storage.StandardDialect{
	DialectName: "mysql",
	Types: map[ddl.ColumnType]string{
		ddl.Text:    "LONGTEXT",
		ddl.Integer: "BIGINT",
		ddl.Real:    "DOUBLE",
	},
	KeyTypes: map[ddl.ColumnType]string{ddl.Text: "VARCHAR(255)"},
}

// Config holds MySQL repository configuration.
type Config struct {
	DSN          string // go-sql-driver DSN, e.g. "user:pass@tcp(host:3306)/db"
	MaxOpenConns int
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sqlx.DB
	cfg Config
}

// NewRepository parses the DSN, connects and pings. It returns the
// Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mcfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	conn, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sqlx.NewDb(sql.OpenDB(conn), "mysql")
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}
	close := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, close, nil
}

// Exec implements storage.Repository.Exec for MySQL.
func (r *Repository) Exec(ctx context.Context, query string, args ...any) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return myError("exec", err)
	}
	return nil
}

// Query implements storage.Repository.Query for MySQL.
func (r *Repository) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, myError("query", err)
	}
	return rows, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() storage.Dialect { return Dialect }

func myError(op string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fmt.Errorf("mysql: %s: error %d: %w", op, myErr.Number, err)
	}
	return fmt.Errorf("mysql: %s: %w", op, err)
}
