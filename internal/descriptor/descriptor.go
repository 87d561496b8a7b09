// Package descriptor defines the narrow view of a message type that the
// mapping engine consumes: a type name, an ordered list of scalar fields, and
// typed get/set access to the fields of an instance.
//
// Field order is the single source of truth for column order. Every consumer
// (schema generation, statement generation, row decoding) reads it through
// Enumerate and never re-sorts it.
package descriptor

import (
	"errors"
	"fmt"
	"slices"
)

// Kind is the primitive type tag of a field.
type Kind int

const (
	// KindOther marks any field the mapping engine cannot store in a single
	// scalar column (bool, bytes, enum, nested, repeated, map, ...).
	KindOther Kind = iota
	KindString
	KindInt32
	KindInt64
	KindUint32
	KindUint64
	KindFloat
	KindDouble
)

var kindNames = [...]string{
	KindOther:  "other",
	KindString: "string",
	KindInt32:  "int32",
	KindInt64:  "int64",
	KindUint32: "uint32",
	KindUint64: "uint64",
	KindFloat:  "float",
	KindDouble: "double",
}

// String returns the protobuf-style scalar name of k ("int32", "double", ...).
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Field is one field of a message type.
type Field struct {
	Name string
	Kind Kind
}

// Type describes a message type. Implementations must return the same field
// slice contents, in the same order, for the lifetime of the process.
type Type interface {
	// Name is the type name; it becomes the table name.
	Name() string
	// Fields returns the fields in declaration order.
	Fields() []Field
	// New returns a fresh zero-valued instance.
	New() Message
}

// Message is a mutable instance of a Type. Values are exchanged as Go
// scalars matching the field kind: string, int32, int64, uint32, uint64,
// float32 or float64. Get on a KindOther field returns nil.
type Message interface {
	Type() Type
	Get(i int) any
	Set(i int, v any) error
}

var (
	// ErrFieldIndex is returned when a field index is outside the type's field list.
	ErrFieldIndex = errors.New("descriptor: field index out of range")
	// ErrValueType is returned when Set receives a value whose Go type does not
	// match the field kind.
	ErrValueType = errors.New("descriptor: value type does not match field kind")
)

// Enumerate returns the fields of t in declaration order. The returned slice
// is a copy and may be modified by the caller.
func Enumerate(t Type) []Field {
	return slices.Clone(t.Fields())
}

// ColumnNames returns the field names of t in declaration order.
func ColumnNames(t Type) []string {
	fields := t.Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// KindNames returns the kind names of t's fields in declaration order.
func KindNames(t Type) []string {
	fields := t.Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Kind.String()
	}
	return out
}

// CheckValue reports whether v is the Go representation of kind k.
func CheckValue(k Kind, v any) error {
	ok := false
	switch k {
	case KindString:
		_, ok = v.(string)
	case KindInt32:
		_, ok = v.(int32)
	case KindInt64:
		_, ok = v.(int64)
	case KindUint32:
		_, ok = v.(uint32)
	case KindUint64:
		_, ok = v.(uint64)
	case KindFloat:
		_, ok = v.(float32)
	case KindDouble:
		_, ok = v.(float64)
	}
	if !ok {
		return fmt.Errorf("%w: %s field got %T", ErrValueType, k, v)
	}
	return nil
}
