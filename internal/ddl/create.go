// Package ddl derives relational table definitions from message types and
// renders CREATE TABLE statements for them.
//
// The generic renderer here emits the SQLite form used throughout the
// project:
//
//	CREATE TABLE IF NOT EXISTS Person (id INTEGER, name TEXT, PRIMARY KEY (id));
//
// Identifiers are emitted unquoted, so every table and column name must pass
// ValidIdent. Backends with a different dialect reuse ColumnList with their
// own type names.
package ddl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/bitnick10/pbsqlite/internal/descriptor"
)

var (
	// ErrBadPrimaryKey is returned when the primary key is empty or does not
	// name one of the table's columns.
	ErrBadPrimaryKey = errors.New("bad primary key")
	// ErrBadIdentifier is returned for table or column names that cannot be
	// embedded in SQL text unquoted.
	ErrBadIdentifier = errors.New("bad identifier")
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent returns ErrBadIdentifier unless name can be used as an unquoted
// SQL identifier.
func ValidIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrBadIdentifier, name)
	}
	return nil
}

// Columns maps each field of t, in declaration order, to a column.
func Columns(t descriptor.Type) ([]ColumnDef, error) {
	if err := CheckFields(t); err != nil {
		return nil, err
	}
	fields := descriptor.Enumerate(t)
	cols := make([]ColumnDef, len(fields))
	for i, f := range fields {
		typ, _ := MapType(f.Kind)
		cols[i] = ColumnDef{Name: f.Name, Type: typ, Kind: f.Kind}
	}
	return cols, nil
}

// FromType derives the table definition for t keyed by primaryKey.
// The primary key must name one of t's fields.
func FromType(t descriptor.Type, primaryKey string) (TableDef, error) {
	cols, err := Columns(t)
	if err != nil {
		return TableDef{}, err
	}
	def := TableDef{Name: t.Name(), Columns: cols, PrimaryKey: primaryKey}
	if err := checkPrimaryKey(def); err != nil {
		return TableDef{}, err
	}
	return def, nil
}

func checkPrimaryKey(def TableDef) error {
	if def.PrimaryKey == "" {
		return fmt.Errorf("%w: table %s has no primary key", ErrBadPrimaryKey, def.Name)
	}
	for _, c := range def.Columns {
		if c.Name == def.PrimaryKey {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not a column of %s", ErrBadPrimaryKey, def.PrimaryKey, def.Name)
}

// ColumnList renders the body of a CREATE TABLE statement:
//
//	<col1> <type1>, <col2> <type2>, ..., PRIMARY KEY (<pk>)
//
// typeName chooses the SQL type for each column.
func ColumnList(def TableDef, typeName func(ColumnDef) string) (string, error) {
	if err := ValidIdent(def.Name); err != nil {
		return "", fmt.Errorf("ddl: table: %w", err)
	}
	if len(def.Columns) == 0 {
		return "", fmt.Errorf("ddl: table %s: at least one column is required", def.Name)
	}
	if err := checkPrimaryKey(def); err != nil {
		return "", fmt.Errorf("ddl: %w", err)
	}

	parts := make([]string, 0, len(def.Columns)+1)
	for _, c := range def.Columns {
		if err := ValidIdent(c.Name); err != nil {
			return "", fmt.Errorf("ddl: column of %s: %w", def.Name, err)
		}
		typ := typeName(c)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQL type", c.Name)
		}
		parts = append(parts, c.Name+" "+typ)
	}
	parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", def.PrimaryKey))
	return strings.Join(parts, ", "), nil
}

// BuildCreateTableSQL renders the CREATE TABLE IF NOT EXISTS statement for
// def using the column types chosen by MapType.
func BuildCreateTableSQL(def TableDef) (string, error) {
	body, err := ColumnList(def, func(c ColumnDef) string { return string(c.Type) })
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", def.Name, body), nil
}

// Fingerprint hashes the canonical CREATE statement of def. Two definitions
// with the same fingerprint produce the same schema. Invalid definitions
// hash to 0.
func Fingerprint(def TableDef) uint64 {
	stmt, err := BuildCreateTableSQL(def)
	if err != nil {
		return 0
	}
	return xxh3.HashString(stmt)
}
