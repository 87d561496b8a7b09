package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"

	protoV1 "github.com/golang/protobuf/proto"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/bitnick10/pbsqlite/internal/ddl"
	"github.com/bitnick10/pbsqlite/internal/descriptor"
	"github.com/bitnick10/pbsqlite/internal/metrics"
	"github.com/bitnick10/pbsqlite/internal/pbreflect"
	"github.com/bitnick10/pbsqlite/internal/pbreflect/pbtest"
	"github.com/bitnick10/pbsqlite/internal/sqlgen"
	"github.com/bitnick10/pbsqlite/internal/storage"
	"github.com/bitnick10/pbsqlite/internal/storage/postgres"
	_ "github.com/bitnick10/pbsqlite/internal/storage/sqlite"
)

func openMemory(tb testing.TB, opts ...Option) *Store {
	tb.Helper()
	s, err := Open(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:"}, opts...)
	if err != nil {
		tb.Fatalf("Open(sqlite :memory:) error = %v", err)
	}
	tb.Cleanup(func() { _ = s.Close() })
	return s
}

var personType = pbreflect.TypeFor(pbtest.PersonType())

func people(tb testing.TB, msgs []descriptor.Message) map[int32]string {
	tb.Helper()
	out := make(map[int32]string, len(msgs))
	for _, m := range msgs {
		id, name := pbtest.PersonFields(m.(*pbreflect.Message).Interface())
		out[id] = name
	}
	return out
}

// TestPersonScenario creates the Person table, writes three rows with one
// overwrite and selects them back by condition.
func TestPersonScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	if err := s.CreateTableIfNotExists(ctx, personType, "id"); err != nil {
		t.Fatalf("CreateTableIfNotExists() error = %v", err)
	}
	for _, p := range []struct {
		id   int32
		name string
	}{{0, "John"}, {2, "David"}, {0, "Johnny"}} {
		if err := ReplaceProto(ctx, s, pbtest.NewPerson(p.id, p.name)); err != nil {
			t.Fatalf("ReplaceProto(%d) error = %v", p.id, err)
		}
	}

	got, err := s.SelectType(ctx, personType, "WHERE id >= 0")
	if err != nil {
		t.Fatalf("SelectType() error = %v", err)
	}
	want := map[int32]string{0: "Johnny", 2: "David"}
	if m := people(t, got); len(m) != len(want) || m[0] != want[0] || m[2] != want[2] {
		t.Fatalf("SelectType() = %v, want %v", m, want)
	}

	got, err = s.SelectType(ctx, personType, "WHERE id > 0")
	if err != nil {
		t.Fatalf("SelectType() error = %v", err)
	}
	if m := people(t, got); len(m) != 1 || m[2] != "David" {
		t.Fatalf("SelectType(id > 0) = %v", m)
	}
}

func TestInsertConflictKeepsRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	if err := s.CreateTableIfNotExists(ctx, personType, "id"); err != nil {
		t.Fatalf("CreateTableIfNotExists() error = %v", err)
	}
	if err := InsertProto(ctx, s, pbtest.NewPerson(1, "first")); err != nil {
		t.Fatalf("InsertProto() error = %v", err)
	}
	err := InsertProto(ctx, s, pbtest.NewPerson(1, "second"))
	if err == nil {
		t.Fatalf("InsertProto() on duplicate key succeeded")
	}
	if !strings.Contains(err.Error(), "store: insert Person") {
		t.Fatalf("InsertProto() error = %q, want store: insert Person prefix", err)
	}

	got, err := s.SelectType(ctx, personType, "")
	if err != nil {
		t.Fatalf("SelectType() error = %v", err)
	}
	if m := people(t, got); len(m) != 1 || m[1] != "first" {
		t.Fatalf("rows after conflict = %v, want {1: first}", m)
	}
}

func TestSelectEmptyTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	if err := s.CreateTableIfNotExists(ctx, personType, "id"); err != nil {
		t.Fatalf("CreateTableIfNotExists() error = %v", err)
	}
	got, err := s.SelectType(ctx, personType, "")
	if err != nil {
		t.Fatalf("SelectType() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("SelectType() = %d rows, want 0", len(got))
	}
}

// TestCreateIsIdempotent creates the same table twice and checks the stored
// schema did not change.
func TestCreateIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	schema := func() string {
		t.Helper()
		rows, err := s.Repository().Query(ctx, "SELECT sql FROM sqlite_master WHERE name = ?", "Person")
		if err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		defer rows.Close()
		var sql string
		for rows.Next() {
			if err := rows.Scan(&sql); err != nil {
				t.Fatalf("scan: %v", err)
			}
		}
		return sql
	}

	if err := s.CreateTableIfNotExists(ctx, personType, "id"); err != nil {
		t.Fatalf("first create error = %v", err)
	}
	first := schema()
	if err := InsertProto(ctx, s, pbtest.NewPerson(7, "kept")); err != nil {
		t.Fatalf("InsertProto() error = %v", err)
	}
	if err := s.CreateTableIfNotExists(ctx, personType, "id"); err != nil {
		t.Fatalf("second create error = %v", err)
	}
	if second := schema(); second != first || first == "" {
		t.Fatalf("schema changed: %q -> %q", first, second)
	}
	got, _ := s.SelectType(ctx, personType, "")
	if m := people(t, got); m[7] != "kept" {
		t.Fatalf("rows after second create = %v", m)
	}
}

// TestScalarsRoundTrip writes the extremes of every supported kind and reads
// them back unchanged.
func TestScalarsRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	typ := pbreflect.TypeFor(pbtest.ScalarsType())
	values := []any{
		int64(1), "héllo wörld", int32(math.MinInt32), int64(math.MaxInt64),
		uint32(math.MaxUint32), uint64(math.MaxUint64), float32(0.1), -0.375,
		int32(-1), int64(math.MinInt64 + 1), uint32(42),
	}

	for _, literal := range []bool{false, true} {
		literal := literal
		name := "bound"
		var opts []Option
		if literal {
			name = "literal"
			opts = append(opts, WithLiteralStatements())
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s := openMemory(t, opts...)

			if err := s.CreateTableIfNotExists(ctx, typ, "key"); err != nil {
				t.Fatalf("CreateTableIfNotExists() error = %v", err)
			}
			m := typ.New()
			for i, v := range values {
				if err := m.Set(i, v); err != nil {
					t.Fatalf("Set(%d) error = %v", i, err)
				}
			}
			if err := s.Insert(ctx, m); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}

			got, err := s.SelectType(ctx, typ, "WHERE key = 1")
			if err != nil {
				t.Fatalf("SelectType() error = %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("SelectType() = %d rows, want 1", len(got))
			}
			for i, want := range values {
				if v := got[0].Get(i); v != want {
					t.Fatalf("field %d = %v (%T), want %v (%T)", i, v, v, want, want)
				}
			}
		})
	}
}

func TestLiteralStatementsRefuseQuotes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t, WithLiteralStatements())

	if err := s.CreateTableIfNotExists(ctx, personType, "id"); err != nil {
		t.Fatalf("CreateTableIfNotExists() error = %v", err)
	}
	if err := InsertProto(ctx, s, pbtest.NewPerson(1, "O'Brien")); !errors.Is(err, sqlgen.ErrUnsafeLiteral) {
		t.Fatalf("InsertProto() error = %v, want ErrUnsafeLiteral", err)
	}

	bound := New(s.Repository())
	if err := InsertProto(ctx, bound, pbtest.NewPerson(1, "O'Brien")); err != nil {
		t.Fatalf("bound InsertProto() error = %v", err)
	}
	got, err := bound.SelectType(ctx, personType, "")
	if err != nil {
		t.Fatalf("SelectType() error = %v", err)
	}
	if m := people(t, got); m[1] != "O'Brien" {
		t.Fatalf("rows = %v", m)
	}
}

// TestGeneratedMessages drives the generic helpers with a generated type.
func TestGeneratedMessages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	if err := CreateTable[*durationpb.Duration](ctx, s, "seconds"); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	for _, d := range []*durationpb.Duration{
		{Seconds: 1, Nanos: 500},
		{Seconds: 2, Nanos: 0},
		{Seconds: 1, Nanos: 900},
	} {
		if err := ReplaceProto(ctx, s, d); err != nil {
			t.Fatalf("ReplaceProto() error = %v", err)
		}
	}

	got, err := Select[*durationpb.Duration](ctx, s, "ORDER BY seconds")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Select() = %d rows, want 2", len(got))
	}
	if got[0].GetSeconds() != 1 || got[0].GetNanos() != 900 || got[1].GetSeconds() != 2 {
		t.Fatalf("Select() = %v", got)
	}
	if got[0] == got[1] {
		t.Fatalf("Select() reused one instance")
	}
}

// TestLegacyMessages writes messages through the github.com/golang/protobuf
// API and reads them back as generated messages.
func TestLegacyMessages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	if err := CreateTable[*durationpb.Duration](ctx, s, "seconds"); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	if err := InsertProtoV1(ctx, s, protoV1.MessageV1(&durationpb.Duration{Seconds: 7, Nanos: 1})); err != nil {
		t.Fatalf("InsertProtoV1() error = %v", err)
	}
	if err := InsertProtoV1(ctx, s, protoV1.MessageV1(&durationpb.Duration{Seconds: 7, Nanos: 2})); err == nil {
		t.Fatal("InsertProtoV1() duplicate key: expected error")
	}
	if err := ReplaceProtoV1(ctx, s, protoV1.MessageV1(&durationpb.Duration{Seconds: 7, Nanos: 3})); err != nil {
		t.Fatalf("ReplaceProtoV1() error = %v", err)
	}

	got, err := Select[*durationpb.Duration](ctx, s, "")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(got) != 1 || got[0].GetSeconds() != 7 || got[0].GetNanos() != 3 {
		t.Fatalf("Select() = %v", got)
	}
}

// countingRepo records statements without a database.
type countingRepo struct {
	dialect storage.Dialect

	mu        sync.Mutex
	execs     []string
	args      [][]any
	queries   []string
	queryArgs [][]any
	execErr   error
}

func (r *countingRepo) Exec(_ context.Context, query string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs = append(r.execs, query)
	r.args = append(r.args, args)
	return r.execErr
}

func (r *countingRepo) Query(_ context.Context, query string, args ...any) (storage.Rows, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	r.queryArgs = append(r.queryArgs, args)
	return nil, errors.New("no rows in countingRepo")
}

func (r *countingRepo) Dialect() storage.Dialect { return r.dialect }
func (r *countingRepo) Close() error { return nil }

// TestCreateFailureKeepsKeyUnknown checks that a failed CREATE is reported
// with the table name and does not register the primary key.
func TestCreateFailureKeepsKeyUnknown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	boom := errors.New("disk full")
	repo := &countingRepo{dialect: postgres.Dialect, execErr: boom}
	s := New(repo)
	err := s.CreateTableIfNotExists(ctx, personType, "id")
	if !errors.Is(err, boom) || !strings.HasPrefix(err.Error(), "store: create Person:") {
		t.Fatalf("CreateTableIfNotExists() error = %v", err)
	}
	if len(repo.execs) != 1 || !strings.HasPrefix(repo.execs[0], "CREATE TABLE IF NOT EXISTS Person") {
		t.Fatalf("executed %q", repo.execs)
	}

	repo.execErr = nil
	if err := ReplaceProto(ctx, s, pbtest.NewPerson(1, "a")); !errors.Is(err, ErrNoPrimaryKey) {
		t.Fatalf("ReplaceProto() error = %v, want ErrNoPrimaryKey", err)
	}
}

// TestSelectConditionVerbatim checks that the condition reaches the
// repository unchanged and without bind arguments.
func TestSelectConditionVerbatim(t *testing.T) {
	t.Parallel()

	repo := &countingRepo{dialect: postgres.Dialect}
	_, _ = New(repo).SelectType(context.Background(), personType, "WHERE name = 'who?' OR id IN (1, 2)")
	if len(repo.queries) != 1 {
		t.Fatalf("queries = %q, want one", repo.queries)
	}
	if want := "SELECT * FROM Person WHERE name = 'who?' OR id IN (1, 2);"; repo.queries[0] != want {
		t.Fatalf("query = %q, want %q", repo.queries[0], want)
	}
	if len(repo.queryArgs[0]) != 0 {
		t.Fatalf("query args = %#v, want none", repo.queryArgs[0])
	}
}

func TestQuestionMarksRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, opts := range [][]Option{nil, {WithLiteralStatements()}} {
		s := openMemory(t, opts...)
		if err := s.CreateTableIfNotExists(ctx, personType, "id"); err != nil {
			t.Fatalf("CreateTableIfNotExists() error = %v", err)
		}
		if err := InsertProto(ctx, s, pbtest.NewPerson(1, "who?")); err != nil {
			t.Fatalf("InsertProto() error = %v", err)
		}
		if err := InsertProto(ctx, s, pbtest.NewPerson(2, "who")); err != nil {
			t.Fatalf("InsertProto() error = %v", err)
		}
		got, err := s.SelectType(ctx, personType, "WHERE name = 'who?'")
		if err != nil {
			t.Fatalf("SelectType() error = %v", err)
		}
		if m := people(t, got); len(m) != 1 || m[1] != "who?" {
			t.Fatalf("SelectType() = %v, want {1: who?}", m)
		}
	}
}

// TestRejectedBeforeExec checks that bad input never reaches the database.
func TestRejectedBeforeExec(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mixed := pbreflect.TypeFor(pbtest.MixedType())
	tests := []struct {
		name string
		run  func(s *Store) error
		want error
	}{
		{
			name: "create unsupported",
			run:  func(s *Store) error { return s.CreateTableIfNotExists(ctx, mixed, "id") },
			want: ddl.ErrUnsupportedType,
		},
		{
			name: "insert unsupported",
			run:  func(s *Store) error { return s.Insert(ctx, mixed.New()) },
			want: ddl.ErrUnsupportedType,
		},
		{
			name: "replace unsupported",
			run:  func(s *Store) error { return s.Replace(ctx, mixed.New()) },
			want: ddl.ErrUnsupportedType,
		},
		{
			name: "select unsupported",
			run: func(s *Store) error {
				_, err := s.SelectType(ctx, mixed, "")
				return err
			},
			want: ddl.ErrUnsupportedType,
		},
		{
			name: "unknown primary key",
			run:  func(s *Store) error { return s.CreateTableIfNotExists(ctx, personType, "age") },
			want: ddl.ErrBadPrimaryKey,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &countingRepo{dialect: storage.StandardDialect{DialectName: "sqlite"}}
			err := tt.run(New(repo))
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if len(repo.execs) != 0 {
				t.Fatalf("executed %q", repo.execs)
			}
		})
	}
}

// TestReplaceNeedsKnownKey covers dialects whose REPLACE names the key.
func TestReplaceNeedsKnownKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := &countingRepo{dialect: postgres.Dialect}
	s := New(repo)
	if err := ReplaceProto(ctx, s, pbtest.NewPerson(1, "a")); !errors.Is(err, ErrNoPrimaryKey) {
		t.Fatalf("ReplaceProto() error = %v, want ErrNoPrimaryKey", err)
	}
	if err := InsertProto(ctx, s, pbtest.NewPerson(1, "a")); err != nil {
		t.Fatalf("InsertProto() error = %v", err)
	}

	if err := s.CreateTableIfNotExists(ctx, personType, "id"); err != nil {
		t.Fatalf("CreateTableIfNotExists() error = %v", err)
	}
	if err := ReplaceProto(ctx, s, pbtest.NewPerson(1, "b")); err != nil {
		t.Fatalf("ReplaceProto() after create error = %v", err)
	}

	preset := &countingRepo{dialect: postgres.Dialect}
	if err := ReplaceProto(ctx, New(preset, WithPrimaryKey("Person", "id")), pbtest.NewPerson(1, "c")); err != nil {
		t.Fatalf("ReplaceProto() with WithPrimaryKey error = %v", err)
	}

	last := repo.execs[len(repo.execs)-1]
	if !strings.Contains(last, "ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name") {
		t.Fatalf("replace statement = %q", last)
	}
	if args := repo.args[len(repo.args)-1]; len(args) != 2 || args[0] != int64(1) || args[1] != "b" {
		t.Fatalf("replace args = %#v", args)
	}
}

func TestDebugLogging(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := New(&countingRepo{dialect: storage.StandardDialect{DialectName: "sqlite"}}, WithLogger(logger))

	if err := InsertProto(ctx, s, pbtest.NewPerson(3, "x")); err != nil {
		t.Fatalf("InsertProto() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"msg":"statement"`, `"op":"insert"`, `"table":"Person"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q missing %s", out, want)
		}
	}
}

func TestOpenUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), storage.Config{Kind: "nosuchdb"})
	if err == nil || !strings.Contains(err.Error(), "unsupported storage.kind=nosuchdb") {
		t.Fatalf("Open() error = %v", err)
	}
}

type statementCounter struct {
	mu     sync.Mutex
	counts map[string]float64 // name/op/status -> total
}

func (c *statementCounter) IncCounter(name string, delta float64, labels metrics.Labels) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[name+"/"+labels["op"]+"/"+labels["status"]] += delta
}

func (c *statementCounter) ObserveHistogram(string, float64, metrics.Labels) {}
func (c *statementCounter) Flush() error { return nil }

// TestMetricsRecorded is not parallel: it installs a global metrics backend.
func TestMetricsRecorded(t *testing.T) {
	ctx := context.Background()
	c := &statementCounter{counts: map[string]float64{}}
	metrics.SetBackend(c)

	s := openMemory(t)
	if err := s.CreateTableIfNotExists(ctx, personType, "id"); err != nil {
		t.Fatalf("CreateTableIfNotExists() error = %v", err)
	}
	_ = InsertProto(ctx, s, pbtest.NewPerson(1, "a"))
	_ = InsertProto(ctx, s, pbtest.NewPerson(2, "b"))
	_ = InsertProto(ctx, s, pbtest.NewPerson(1, "dup"))
	if _, err := s.SelectType(ctx, personType, ""); err != nil {
		t.Fatalf("SelectType() error = %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	want := map[string]float64{
		metrics.StatementsTotal + "/create/success": 1,
		metrics.StatementsTotal + "/insert/success": 2,
		metrics.StatementsTotal + "/insert/failure": 1,
		metrics.StatementsTotal + "/select/success": 1,
		metrics.RowsTotal + "/insert/":              2,
		metrics.RowsTotal + "/select/":              2,
	}
	for k, v := range want {
		if c.counts[k] != v {
			t.Fatalf("counts[%s] = %v, want %v (all: %v)", k, c.counts[k], v, c.counts)
		}
	}
}
