// Package store maps message types to relational tables.
//
// A Store owns one storage.Repository and exposes the four table operations
// over any descriptor.Type: CreateTableIfNotExists, Insert, Replace and
// SelectType. Column order, value order and decode order all come from the
// type's field list, so the three derivations cannot disagree.
//
//	s, err := store.Open(ctx, storage.Config{Kind: "sqlite", DSN: "people.db"})
//	if err != nil { ... }
//	defer s.Close()
//
//	if err := store.CreateTable[*pb.Person](ctx, s, "id"); err != nil { ... }
//	if err := store.ReplaceProto(ctx, s, &pb.Person{Id: 0, Name: "John"}); err != nil { ... }
//	people, err := store.Select[*pb.Person](ctx, s, "WHERE id >= 0")
//
// Writes bind values as statement arguments by default. WithLiteralStatements
// switches to statements with embedded literals; those refuse strings that
// contain a single quote. The select condition is always appended verbatim
// and must be trusted input.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bitnick10/pbsqlite/internal/ddl"
	"github.com/bitnick10/pbsqlite/internal/descriptor"
	"github.com/bitnick10/pbsqlite/internal/metrics"
	"github.com/bitnick10/pbsqlite/internal/rowcodec"
	"github.com/bitnick10/pbsqlite/internal/sqlgen"
	"github.com/bitnick10/pbsqlite/internal/storage"
)

// ErrNoPrimaryKey is returned by Replace on backends that need the table's
// primary key (postgres, mssql) when the key is unknown to this Store. Create
// the table through the Store or pass WithPrimaryKey.
var ErrNoPrimaryKey = storage.ErrNoPrimaryKey

// Store runs generated statements against a Repository.
type Store struct {
	repo    storage.Repository
	log     *slog.Logger
	literal bool

	mu   sync.RWMutex
	keys map[string]string // table -> primary key column
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for per-statement debug records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLiteralStatements makes writes embed values as SQL literals instead of
// binding them. Literal REPLACE uses the REPLACE INTO form, so it is only
// understood by SQLite and MySQL.
func WithLiteralStatements() Option {
	return func(s *Store) { s.literal = true }
}

// WithPrimaryKey records the primary key of a table that already exists.
func WithPrimaryKey(table, column string) Option {
	return func(s *Store) { s.keys[table] = column }
}

// Open opens a repository with storage.New and wraps it.
func Open(ctx context.Context, cfg storage.Config, opts ...Option) (*Store, error) {
	repo, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Kind, err)
	}
	return New(repo, opts...), nil
}

// New wraps an open repository. The Store takes ownership of repo.
func New(repo storage.Repository, opts ...Option) *Store {
	s := &Store{
		repo: repo,
		log:  slog.Default(),
		keys: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository returns the underlying repository.
func (s *Store) Repository() storage.Repository { return s.repo }

// Close closes the underlying repository.
func (s *Store) Close() error { return s.repo.Close() }

// CreateTableIfNotExists creates the table for t with primaryKey as its
// primary key. Unsupported field kinds, invalid identifiers and an unknown
// primary key are rejected before anything is sent to the database. Calling
// it again for the same type is a no-op.
func (s *Store) CreateTableIfNotExists(ctx context.Context, t descriptor.Type, primaryKey string) error {
	def, err := ddl.FromType(t, primaryKey)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", t.Name(), err)
	}
	start := time.Now()
	err = storage.EnsureTable(ctx, s.repo, def)
	s.observe(ctx, "create", def.Name, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", def.Name, err)
	}

	s.mu.Lock()
	s.keys[def.Name] = def.PrimaryKey
	s.mu.Unlock()
	return nil
}

// Insert writes m as a new row. A row with the same primary key makes the
// database reject the statement.
func (s *Store) Insert(ctx context.Context, m descriptor.Message) error {
	return s.write(ctx, m, sqlgen.Insert)
}

// Replace writes m, overwriting any row with the same primary key.
func (s *Store) Replace(ctx context.Context, m descriptor.Message) error {
	return s.write(ctx, m, sqlgen.Replace)
}

func (s *Store) write(ctx context.Context, m descriptor.Message, mode sqlgen.Mode) error {
	t := m.Type()
	op := mode.String()

	var (
		stmt string
		args []any
		err  error
	)
	if s.literal {
		stmt, err = sqlgen.BuildWrite(m, mode)
	} else {
		stmt, err = s.repo.Dialect().Write(t, s.primaryKey(t.Name()), mode)
		if err == nil {
			args, err = sqlgen.Args(m)
		}
	}
	if err != nil {
		return fmt.Errorf("store: %s %s: %w", op, t.Name(), err)
	}

	if err := s.exec(ctx, op, t.Name(), stmt, args...); err != nil {
		return err
	}
	metrics.RecordRows(op, 1)
	return nil
}

// SelectType runs SELECT * FROM <table> <condition> and decodes every row
// into a new instance of t. An empty condition selects all rows.
func (s *Store) SelectType(ctx context.Context, t descriptor.Type, condition string) ([]descriptor.Message, error) {
	q, err := sqlgen.BuildSelect(t, condition)
	if err != nil {
		return nil, fmt.Errorf("store: select %s: %w", t.Name(), err)
	}

	start := time.Now()
	msgs, err := s.query(ctx, q, t)
	d := time.Since(start)
	metrics.RecordStatement("select", err, d)
	s.log.DebugContext(ctx, "statement",
		slog.String("op", "select"),
		slog.String("table", t.Name()),
		slog.Duration("duration", d),
		slog.Int("rows", len(msgs)),
		slog.Any("err", err),
	)
	if err != nil {
		return nil, fmt.Errorf("store: select %s: %w", t.Name(), err)
	}
	metrics.RecordRows("select", len(msgs))
	return msgs, nil
}

func (s *Store) query(ctx context.Context, q string, t descriptor.Type) ([]descriptor.Message, error) {
	rows, err := s.repo.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rowcodec.Decode(rows, t)
}

func (s *Store) exec(ctx context.Context, op, table, stmt string, args ...any) error {
	start := time.Now()
	err := s.repo.Exec(ctx, stmt, args...)
	s.observe(ctx, op, table, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("store: %s %s: %w", op, table, err)
	}
	return nil
}

func (s *Store) observe(ctx context.Context, op, table string, d time.Duration, err error) {
	metrics.RecordStatement(op, err, d)
	s.log.DebugContext(ctx, "statement",
		slog.String("op", op),
		slog.String("table", table),
		slog.Duration("duration", d),
		slog.Any("err", err),
	)
}

func (s *Store) primaryKey(table string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[table]
}
