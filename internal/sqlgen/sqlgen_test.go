package sqlgen

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"strconv"
	"testing"

	"github.com/bitnick10/pbsqlite/internal/ddl"
	"github.com/bitnick10/pbsqlite/internal/descriptor"
	"github.com/bitnick10/pbsqlite/internal/pbreflect"
	"github.com/bitnick10/pbsqlite/internal/pbreflect/pbtest"
)

type person struct {
	ID   int32
	Name string
}

var personType = descriptor.NewType("Person",
	descriptor.Int32("id", func(p *person) int32 { return p.ID }, func(p *person, v int32) { p.ID = v }),
	descriptor.String("name", func(p *person) string { return p.Name }, func(p *person, v string) { p.Name = v }),
)

// TestBuildWritePerson checks the exact literal statements for the Person
// example in both modes.
func TestBuildWritePerson(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    person
		mode Mode
		want string
	}{
		{name: "insert", p: person{ID: 0, Name: "John"}, mode: Insert, want: "INSERT INTO Person VALUES(0, 'John');"},
		{name: "replace", p: person{ID: 2, Name: "David"}, mode: Replace, want: "REPLACE INTO Person VALUES(2, 'David');"},
		{name: "empty string", p: person{ID: -1}, mode: Insert, want: "INSERT INTO Person VALUES(-1, '');"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := tt.p
			got, err := BuildWrite(personType.Wrap(&p), tt.mode)
			if err != nil {
				t.Fatalf("BuildWrite() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("BuildWrite() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaceholdersAndArgs(t *testing.T) {
	t.Parallel()

	got, err := Placeholders(personType, Replace)
	if err != nil {
		t.Fatalf("Placeholders() error = %v", err)
	}
	if want := "REPLACE INTO Person VALUES(?, ?);"; got != want {
		t.Fatalf("Placeholders() = %q, want %q", got, want)
	}

	p := person{ID: 5, Name: "O'Brien"}
	args, err := Args(personType.Wrap(&p))
	if err != nil {
		t.Fatalf("Args() error = %v", err)
	}
	if want := []any{int64(5), "O'Brien"}; !reflect.DeepEqual(args, want) {
		t.Fatalf("Args() = %#v, want %#v", args, want)
	}
}

// TestScalarsValueOrder checks that literal values and bound args follow
// field order for a type with every supported kind.
func TestScalarsValueOrder(t *testing.T) {
	t.Parallel()

	m := pbreflect.TypeFor(pbtest.ScalarsType()).New()
	values := []any{
		int64(1), "s", int32(-3), int64(-4), uint32(5), uint64(math.MaxUint64),
		float32(0.5), 0.25, int32(-9), int64(10), uint32(11),
	}
	for i, v := range values {
		if err := m.Set(i, v); err != nil {
			t.Fatalf("Set(%d) error = %v", i, err)
		}
	}

	got, err := BuildWrite(m, Insert)
	if err != nil {
		t.Fatalf("BuildWrite() error = %v", err)
	}
	want := "INSERT INTO Scalars VALUES(1, 's', -3, -4, 5, -1, 0.5, 0.25, -9, 10, 11);"
	if got != want {
		t.Fatalf("BuildWrite() =\n%s\nwant\n%s", got, want)
	}

	args, err := Args(m)
	if err != nil {
		t.Fatalf("Args() error = %v", err)
	}
	wantArgs := []any{
		int64(1), "s", int64(-3), int64(-4), int64(5), int64(-1),
		float64(0.5), 0.25, int64(-9), int64(10), int64(11),
	}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("Args() = %#v, want %#v", args, wantArgs)
	}

	ph, _ := Placeholders(m.Type(), Insert)
	if want := "INSERT INTO Scalars VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);"; ph != want {
		t.Fatalf("Placeholders() = %q, want %q", ph, want)
	}
}

func TestLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		kind    descriptor.Kind
		v       any
		want    string
		wantErr error
	}{
		{name: "string", kind: descriptor.KindString, v: "héllo", want: "'héllo'"},
		{name: "quote", kind: descriptor.KindString, v: "it's", wantErr: ErrUnsafeLiteral},
		{name: "int32 min", kind: descriptor.KindInt32, v: int32(math.MinInt32), want: "-2147483648"},
		{name: "int64 max", kind: descriptor.KindInt64, v: int64(math.MaxInt64), want: "9223372036854775807"},
		{name: "uint32 max", kind: descriptor.KindUint32, v: uint32(math.MaxUint32), want: "4294967295"},
		{name: "uint64 small", kind: descriptor.KindUint64, v: uint64(42), want: "42"},
		{name: "uint64 high bit", kind: descriptor.KindUint64, v: uint64(1 << 63), want: "-9223372036854775808"},
		{name: "float shortest", kind: descriptor.KindFloat, v: float32(0.1), want: "0.1"},
		{name: "double shortest", kind: descriptor.KindDouble, v: 0.1, want: "0.1"},
		{name: "double exponent", kind: descriptor.KindDouble, v: 1e21, want: "1e+21"},
		{name: "double tiny", kind: descriptor.KindDouble, v: 5e-324, want: "5e-324"},
		{name: "nan", kind: descriptor.KindDouble, v: math.NaN(), wantErr: ErrUnsafeLiteral},
		{name: "inf", kind: descriptor.KindFloat, v: float32(math.Inf(1)), wantErr: ErrUnsafeLiteral},
		{name: "wrong go type", kind: descriptor.KindInt32, v: int64(1), wantErr: descriptor.ErrValueType},
		{name: "other kind", kind: descriptor.KindOther, v: true, wantErr: ddl.ErrUnsupportedType},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Literal(tt.kind, tt.v)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Literal() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Literal() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("Literal() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestFloatLiteralsRoundTrip verifies that the chosen float formatting parses
// back to the exact same value.
func TestFloatLiteralsRoundTrip(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		d := math.Float64frombits(r.Uint64())
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		lit, err := Literal(descriptor.KindDouble, d)
		if err != nil {
			t.Fatalf("Literal(%v) error = %v", d, err)
		}
		back, err := strconv.ParseFloat(lit, 64)
		if err != nil || back != d {
			t.Fatalf("double %v -> %q -> %v (%v)", d, lit, back, err)
		}

		f := math.Float32frombits(r.Uint32())
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			continue
		}
		lit, err = Literal(descriptor.KindFloat, f)
		if err != nil {
			t.Fatalf("Literal(%v) error = %v", f, err)
		}
		back32, err := strconv.ParseFloat(lit, 32)
		if err != nil || float32(back32) != f {
			t.Fatalf("float %v -> %q -> %v (%v)", f, lit, back32, err)
		}
	}
}

// TestUnsupportedTypeRejectedEverywhere verifies that a message with an
// unmappable field fails on every statement path instead of dropping it.
func TestUnsupportedTypeRejectedEverywhere(t *testing.T) {
	t.Parallel()

	typ := pbreflect.TypeFor(pbtest.MixedType())
	m := typ.New()

	if _, err := BuildWrite(m, Insert); !errors.Is(err, ddl.ErrUnsupportedType) {
		t.Errorf("BuildWrite() error = %v, want ErrUnsupportedType", err)
	}
	if _, err := Placeholders(typ, Replace); !errors.Is(err, ddl.ErrUnsupportedType) {
		t.Errorf("Placeholders() error = %v, want ErrUnsupportedType", err)
	}
	if _, err := Args(m); !errors.Is(err, ddl.ErrUnsupportedType) {
		t.Errorf("Args() error = %v, want ErrUnsupportedType", err)
	}
	if _, err := BuildSelect(typ, ""); !errors.Is(err, ddl.ErrUnsupportedType) {
		t.Errorf("BuildSelect() error = %v, want ErrUnsupportedType", err)
	}
}

func TestBuildSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cond string
		want string
	}{
		{cond: "", want: "SELECT * FROM Person;"},
		{cond: "   ", want: "SELECT * FROM Person;"},
		{cond: "WHERE id >= 0", want: "SELECT * FROM Person WHERE id >= 0;"},
		{cond: "  ORDER BY id DESC ", want: "SELECT * FROM Person ORDER BY id DESC;"},
	}
	for _, tt := range tests {
		got, err := BuildSelect(personType, tt.cond)
		if err != nil {
			t.Fatalf("BuildSelect(%q) error = %v", tt.cond, err)
		}
		if got != tt.want {
			t.Fatalf("BuildSelect(%q) = %q, want %q", tt.cond, got, tt.want)
		}
	}
}

func TestWriteStatementCountMismatch(t *testing.T) {
	t.Parallel()

	if _, err := writeStatement("T", Insert, []string{"1"}, 2); !errors.Is(err, ErrValueCount) {
		t.Fatalf("writeStatement() error = %v, want ErrValueCount", err)
	}
}

func TestModeVerb(t *testing.T) {
	t.Parallel()

	if Insert.Verb() != "INSERT INTO" || Replace.Verb() != "REPLACE INTO" {
		t.Fatalf("Verb() = %q, %q", Insert.Verb(), Replace.Verb())
	}
	if Insert.String() != "insert" || Replace.String() != "replace" {
		t.Fatalf("String() = %q, %q", Insert.String(), Replace.String())
	}
}

func BenchmarkBuildWrite(b *testing.B) {
	m := pbreflect.TypeFor(pbtest.ScalarsType()).New()
	_ = m.Set(1, "benchmark")

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := BuildWrite(m, Replace); err != nil {
			b.Fatalf("BuildWrite() error = %v", err)
		}
	}
}

func BenchmarkArgs(b *testing.B) {
	m := pbreflect.TypeFor(pbtest.ScalarsType()).New()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Args(m); err != nil {
			b.Fatalf("Args() error = %v", err)
		}
	}
}
