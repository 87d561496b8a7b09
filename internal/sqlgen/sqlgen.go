// Package sqlgen renders INSERT, REPLACE and SELECT statements for message
// types.
//
// Two write forms are produced from the same field enumeration:
//
//	INSERT INTO Person VALUES(0, 'John');   // BuildWrite: values embedded as literals
//	INSERT INTO Person VALUES(?, ?);        // Placeholders + Args: values bound separately
//
// The bound form is what the store uses. The literal form exists for
// inspection and for collaborators that can only execute complete statement
// text; see Literal for its limits.
package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bitnick10/pbsqlite/internal/ddl"
	"github.com/bitnick10/pbsqlite/internal/descriptor"
)

// Mode selects the write verb.
type Mode int

const (
	// Insert fails when a row with the same primary key exists.
	Insert Mode = iota
	// Replace inserts or overwrites the row with the same primary key.
	Replace
)

// Verb returns the statement prefix for the mode.
func (m Mode) Verb() string {
	if m == Replace {
		return "REPLACE INTO"
	}
	return "INSERT INTO"
}

func (m Mode) String() string {
	if m == Replace {
		return "replace"
	}
	return "insert"
}

// ErrValueCount is returned when the number of rendered values differs from
// the number of columns.
var ErrValueCount = errors.New("sqlgen: value count does not match column count")

// BuildWrite renders a complete INSERT or REPLACE statement for m with every
// field value embedded as a SQL literal, in field order.
func BuildWrite(m descriptor.Message, mode Mode) (string, error) {
	t := m.Type()
	if err := ddl.CheckFields(t); err != nil {
		return "", fmt.Errorf("sqlgen: %w", err)
	}
	fields := descriptor.Enumerate(t)
	values := make([]string, 0, len(fields))
	for i, f := range fields {
		lit, err := Literal(f.Kind, m.Get(i))
		if err != nil {
			return "", fmt.Errorf("sqlgen: %s.%s: %w", t.Name(), f.Name, err)
		}
		values = append(values, lit)
	}
	return writeStatement(t.Name(), mode, values, len(fields))
}

// Placeholders renders the bound form of the write statement for t, with one
// "?" per column.
func Placeholders(t descriptor.Type, mode Mode) (string, error) {
	if err := ddl.CheckFields(t); err != nil {
		return "", fmt.Errorf("sqlgen: %w", err)
	}
	n := len(t.Fields())
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	return writeStatement(t.Name(), mode, marks, n)
}

// Args returns m's field values in column order, converted to the values
// bound for Placeholders.
func Args(m descriptor.Message) ([]any, error) {
	t := m.Type()
	if err := ddl.CheckFields(t); err != nil {
		return nil, fmt.Errorf("sqlgen: %w", err)
	}
	fields := descriptor.Enumerate(t)
	args := make([]any, len(fields))
	for i, f := range fields {
		a, err := Arg(f.Kind, m.Get(i))
		if err != nil {
			return nil, fmt.Errorf("sqlgen: %s.%s: %w", t.Name(), f.Name, err)
		}
		args[i] = a
	}
	return args, nil
}

func writeStatement(table string, mode Mode, values []string, columns int) (string, error) {
	if len(values) != columns {
		return "", fmt.Errorf("%w: %d values for %d columns of %s", ErrValueCount, len(values), columns, table)
	}
	return fmt.Sprintf("%s %s VALUES(%s);", mode.Verb(), table, strings.Join(values, ", ")), nil
}

// BuildSelect renders SELECT * FROM <table> <condition>; for t.
//
// condition is appended verbatim (for example "WHERE id >= 0 ORDER BY id")
// and must come from a trusted source: it is not parsed, escaped or
// validated. An empty condition selects every row.
//
// Rows come back in table column order, which is t's field order when the
// table was created from t; decoding relies on that.
func BuildSelect(t descriptor.Type, condition string) (string, error) {
	if err := ddl.CheckFields(t); err != nil {
		return "", fmt.Errorf("sqlgen: %w", err)
	}
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return fmt.Sprintf("SELECT * FROM %s;", t.Name()), nil
	}
	return fmt.Sprintf("SELECT * FROM %s %s;", t.Name(), condition), nil
}
