// Package rowcodec decodes query result rows into message instances.
//
// Decoding is positional: column i of a row is written to field i of the
// message type. It is only correct for SELECT * over a table whose columns
// were created from the same type, so Decode checks the result set's column
// names against the field list before reading any row.
package rowcodec

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bitnick10/pbsqlite/internal/ddl"
	"github.com/bitnick10/pbsqlite/internal/descriptor"
)

// Rows is the cursor consumed by Decode. *sql.Rows and *sqlx.Rows satisfy it.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// ErrColumnMismatch is returned when the result set's columns do not match
// the message type's fields in number, name or order.
var ErrColumnMismatch = errors.New("rowcodec: result columns do not match message fields")

// Decode reads every remaining row of rows into a new instance of t and
// returns the instances in cursor order. Each row gets its own instance.
// SQL NULL decodes to the field's zero value.
func Decode(rows Rows, t descriptor.Type) ([]descriptor.Message, error) {
	fields := descriptor.Enumerate(t)
	if err := ddl.CheckFields(t); err != nil {
		return nil, fmt.Errorf("rowcodec: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("rowcodec: columns: %w", err)
	}
	if err := CheckColumns(cols, fields); err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name(), err)
	}

	var out []descriptor.Message
	for rows.Next() {
		m, err := DecodeRow(rows, t, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rowcodec: iterate %s: %w", t.Name(), err)
	}
	return out, nil
}

// CheckColumns compares result column names with fields, position by
// position. Names are compared case-insensitively because some engines fold
// unquoted identifiers.
func CheckColumns(cols []string, fields []descriptor.Field) error {
	if len(cols) != len(fields) {
		return fmt.Errorf("%w: %d columns, %d fields", ErrColumnMismatch, len(cols), len(fields))
	}
	for i, f := range fields {
		if !strings.EqualFold(cols[i], f.Name) {
			return fmt.Errorf("%w: column %d is %q, field is %q", ErrColumnMismatch, i, cols[i], f.Name)
		}
	}
	return nil
}

// DecodeRow scans the current row into a fresh instance of t. fields must be
// t's field list; the caller has already validated the kinds.
func DecodeRow(rows Rows, t descriptor.Type, fields []descriptor.Field) (descriptor.Message, error) {
	dest := make([]any, len(fields))
	for i, f := range fields {
		d, err := scanDest(f.Kind)
		if err != nil {
			return nil, fmt.Errorf("rowcodec: %s.%s: %w", t.Name(), f.Name, err)
		}
		dest[i] = d
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("rowcodec: scan %s: %w", t.Name(), err)
	}

	m := t.New()
	for i, f := range fields {
		if err := m.Set(i, fieldValue(f.Kind, dest[i])); err != nil {
			return nil, fmt.Errorf("rowcodec: set %s.%s: %w", t.Name(), f.Name, err)
		}
	}
	return m, nil
}

func scanDest(k descriptor.Kind) (any, error) {
	typ, err := ddl.MapType(k)
	if err != nil {
		return nil, err
	}
	switch typ {
	case ddl.Text:
		return new(sql.NullString), nil
	case ddl.Integer:
		return new(sql.NullInt64), nil
	default:
		return new(sql.NullFloat64), nil
	}
}

// fieldValue converts a scanned column into the Go value for kind k.
// Integer narrowing truncates like a C cast; uint64 reinterprets the int64
// bit pattern written by sqlgen.
func fieldValue(k descriptor.Kind, dest any) any {
	switch d := dest.(type) {
	case *sql.NullString:
		return d.String
	case *sql.NullInt64:
		switch k {
		case descriptor.KindInt32:
			return int32(d.Int64)
		case descriptor.KindUint32:
			return uint32(d.Int64)
		case descriptor.KindUint64:
			return uint64(d.Int64)
		default:
			return d.Int64
		}
	case *sql.NullFloat64:
		if k == descriptor.KindFloat {
			return float32(d.Float64)
		}
		return d.Float64
	}
	return nil
}
