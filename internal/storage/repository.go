// Package storage abstracts the relational engine behind a small Repository
// interface and a registry of backends.
//
// Backends (sqlite, postgres, mysql, mssql) register a Factory at init time;
// callers open one with New and never import the backend directly:
//
//	import _ "github.com/bitnick10/pbsqlite/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "people.db"})
//
// Every Repository speaks "?" placeholders; backends rebind them to their
// driver's syntax. Statement text is produced by the backend's Dialect.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bitnick10/pbsqlite/internal/rowcodec"
)

// Rows is a result cursor. It must be closed by the caller.
type Rows interface {
	rowcodec.Rows
	Close() error
}

// Repository executes statements against one database.
type Repository interface {
	// Exec runs a statement that returns no rows. Driver errors are returned
	// wrapped, never swallowed.
	Exec(ctx context.Context, query string, args ...any) error
	// Query runs a statement and returns its rows.
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	// Dialect returns the statement renderer for this backend.
	Dialect() Dialect
	// Close releases the underlying connection pool.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name: "sqlite", "postgres", "mysql", "mssql".
	Kind string
	// DSN is passed to the backend's driver unchanged.
	DSN string
	// MaxOpenConns caps the pool size; 0 keeps the backend default.
	MaxOpenConns int
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind. Backends call it from
// init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// ListKinds returns the registered backend kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
