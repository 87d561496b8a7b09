package descriptor

import "fmt"

// Accessor is one row of a hand-written (or generated) mapping table for a Go
// struct type T: the field's name and kind plus a typed getter and setter.
type Accessor[T any] struct {
	field Field
	get   func(*T) any
	set   func(*T, any) error
}

func accessor[T, V any](name string, k Kind, get func(*T) V, set func(*T, V)) Accessor[T] {
	return Accessor[T]{
		field: Field{Name: name, Kind: k},
		get:   func(p *T) any { return get(p) },
		set: func(p *T, v any) error {
			x, ok := v.(V)
			if !ok {
				return fmt.Errorf("%w: %s field %q got %T", ErrValueType, k, name, v)
			}
			set(p, x)
			return nil
		},
	}
}

// String maps a string field.
func String[T any](name string, get func(*T) string, set func(*T, string)) Accessor[T] {
	return accessor(name, KindString, get, set)
}

// Int32 maps an int32 field.
func Int32[T any](name string, get func(*T) int32, set func(*T, int32)) Accessor[T] {
	return accessor(name, KindInt32, get, set)
}

// Int64 maps an int64 field.
func Int64[T any](name string, get func(*T) int64, set func(*T, int64)) Accessor[T] {
	return accessor(name, KindInt64, get, set)
}

// Uint32 maps a uint32 field.
func Uint32[T any](name string, get func(*T) uint32, set func(*T, uint32)) Accessor[T] {
	return accessor(name, KindUint32, get, set)
}

// Uint64 maps a uint64 field.
func Uint64[T any](name string, get func(*T) uint64, set func(*T, uint64)) Accessor[T] {
	return accessor(name, KindUint64, get, set)
}

// Float maps a float32 field.
func Float[T any](name string, get func(*T) float32, set func(*T, float32)) Accessor[T] {
	return accessor(name, KindFloat, get, set)
}

// Double maps a float64 field.
func Double[T any](name string, get func(*T) float64, set func(*T, float64)) Accessor[T] {
	return accessor(name, KindDouble, get, set)
}

// Other declares a field that has no scalar column mapping. It lets a type
// describe its full shape; the engine rejects such types with an
// unsupported-type error.
func Other[T any](name string) Accessor[T] {
	return Accessor[T]{
		field: Field{Name: name, Kind: KindOther},
		get:   func(*T) any { return nil },
		set: func(_ *T, v any) error {
			return fmt.Errorf("%w: other field %q got %T", ErrValueType, name, v)
		},
	}
}

// StructType is a Type backed by a Go struct and an explicit mapping table.
// It is immutable after NewType and safe for concurrent use.
type StructType[T any] struct {
	name      string
	fields    []Field
	accessors []Accessor[T]
}

// NewType builds a StructType. Accessor order is field (and column) order.
func NewType[T any](name string, accessors ...Accessor[T]) *StructType[T] {
	fields := make([]Field, len(accessors))
	for i, a := range accessors {
		fields[i] = a.field
	}
	return &StructType[T]{name: name, fields: fields, accessors: accessors}
}

func (t *StructType[T]) Name() string { return t.name }
func (t *StructType[T]) Fields() []Field { return t.fields }

// New returns a Message wrapping a new zero T.
func (t *StructType[T]) New() Message { return t.Wrap(new(T)) }

// Wrap exposes v as a Message. Writes through the Message mutate *v.
func (t *StructType[T]) Wrap(v *T) Message {
	return &structMessage[T]{typ: t, v: v}
}

// Value returns the struct behind a Message created by this type.
func (t *StructType[T]) Value(m Message) (*T, bool) {
	sm, ok := m.(*structMessage[T])
	if !ok || sm.typ != t {
		return nil, false
	}
	return sm.v, true
}

type structMessage[T any] struct {
	typ *StructType[T]
	v   *T
}

func (m *structMessage[T]) Type() Type { return m.typ }

func (m *structMessage[T]) Get(i int) any {
	if i < 0 || i >= len(m.typ.accessors) {
		return nil
	}
	return m.typ.accessors[i].get(m.v)
}

func (m *structMessage[T]) Set(i int, v any) error {
	if i < 0 || i >= len(m.typ.accessors) {
		return fmt.Errorf("%w: %d of %d", ErrFieldIndex, i, len(m.typ.accessors))
	}
	return m.typ.accessors[i].set(m.v, v)
}
