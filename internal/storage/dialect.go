package storage

import (
	"errors"
	"fmt"

	"github.com/bitnick10/pbsqlite/internal/ddl"
	"github.com/bitnick10/pbsqlite/internal/descriptor"
	"github.com/bitnick10/pbsqlite/internal/sqlgen"
)

// ErrNoPrimaryKey is returned by dialects that cannot express REPLACE without
// knowing the table's primary key when none was supplied.
var ErrNoPrimaryKey = errors.New("storage: replace needs the table's primary key")

// Dialect renders backend-specific statement text. Column order is always
// the message type's field order; only spelling differs between backends.
type Dialect interface {
	Name() string
	// CreateTable renders an idempotent CREATE TABLE for def.
	CreateTable(def ddl.TableDef) (string, error)
	// Write renders a write statement for t with one "?" per column, bound in
	// field order. primaryKey may be empty unless the dialect needs it for
	// Replace, in which case ErrNoPrimaryKey is returned.
	Write(t descriptor.Type, primaryKey string, mode sqlgen.Mode) (string, error)
}

// StandardDialect renders the statement shapes shared by SQLite and MySQL:
//
//	CREATE TABLE IF NOT EXISTS T (c1 TYPE1, ..., PRIMARY KEY (pk));
//	INSERT INTO T VALUES(?, ...);
//	REPLACE INTO T VALUES(?, ...);
type StandardDialect struct {
	DialectName string
	// Types renames column types; a nil map keeps TEXT, INTEGER and REAL.
	Types map[ddl.ColumnType]string
	// KeyTypes overrides Types for the primary-key column only, for engines
	// that cannot index an unbounded string.
	KeyTypes map[ddl.ColumnType]string
}

func (d StandardDialect) Name() string { return d.DialectName }

func (d StandardDialect) CreateTable(def ddl.TableDef) (string, error) {
	if d.Types == nil && d.KeyTypes == nil {
		return ddl.BuildCreateTableSQL(def)
	}
	body, err := ddl.ColumnList(def, d.ColumnTypes(def))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", def.Name, body), nil
}

// ColumnTypes returns the SQL type chooser for the columns of def.
func (d StandardDialect) ColumnTypes(def ddl.TableDef) func(ddl.ColumnDef) string {
	return func(c ddl.ColumnDef) string {
		if c.Name == def.PrimaryKey {
			if name, ok := d.KeyTypes[c.Type]; ok {
				return name
			}
		}
		if name, ok := d.Types[c.Type]; ok {
			return name
		}
		return string(c.Type)
	}
}

func (d StandardDialect) Write(t descriptor.Type, _ string, mode sqlgen.Mode) (string, error) {
	return sqlgen.Placeholders(t, mode)
}
