package ddl

import (
	"errors"
	"fmt"

	"github.com/bitnick10/pbsqlite/internal/descriptor"
)

// ColumnType is the relational storage class a field kind maps to.
type ColumnType string

const (
	Text    ColumnType = "TEXT"
	Integer ColumnType = "INTEGER"
	Real    ColumnType = "REAL"
)

// ErrUnsupportedType is returned for any field whose kind has no column
// mapping. Schema generation, statement generation and row decoding all
// check kinds through MapType, so the same type is rejected the same way on
// every path.
var ErrUnsupportedType = errors.New("unsupported field type")

// MapType maps a field kind to a column type:
//   - string                         -> TEXT
//   - int32, int64, uint32, uint64   -> INTEGER
//   - float, double                  -> REAL
//
// Any other kind yields ErrUnsupportedType.
func MapType(k descriptor.Kind) (ColumnType, error) {
	switch k {
	case descriptor.KindString:
		return Text, nil
	case descriptor.KindInt32, descriptor.KindInt64, descriptor.KindUint32, descriptor.KindUint64:
		return Integer, nil
	case descriptor.KindFloat, descriptor.KindDouble:
		return Real, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, k)
	}
}

// CheckFields validates that every field of t has a column mapping and a
// usable identifier. It returns the first problem found, naming the field.
func CheckFields(t descriptor.Type) error {
	if err := ValidIdent(t.Name()); err != nil {
		return fmt.Errorf("table %q: %w", t.Name(), err)
	}
	for _, f := range t.Fields() {
		if _, err := MapType(f.Kind); err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), f.Name, err)
		}
		if err := ValidIdent(f.Name); err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), f.Name, err)
		}
	}
	return nil
}
