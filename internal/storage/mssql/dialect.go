package mssql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bitnick10/pbsqlite/internal/ddl"
	"github.com/bitnick10/pbsqlite/internal/descriptor"
	"github.com/bitnick10/pbsqlite/internal/sqlgen"
	"github.com/bitnick10/pbsqlite/internal/storage"
)

// Dialect renders SQL Server statements. CREATE is guarded by OBJECT_ID and
// Replace becomes a MERGE on the primary key.
var Dialect storage.Dialect = dialect{
	StandardDialect: storage.StandardDialect{
		DialectName: "mssql",
		Types: map[ddl.ColumnType]string{
			ddl.Text:    "NVARCHAR(MAX)",
			ddl.Integer: "BIGINT",
			ddl.Real:    "FLOAT",
		},
		KeyTypes: map[ddl.ColumnType]string{ddl.Text: "NVARCHAR(450)"},
	},
}

type dialect struct {
	storage.StandardDialect
}

func (d dialect) CreateTable(def ddl.TableDef) (string, error) {
	body, err := ddl.ColumnList(def, d.ColumnTypes(def))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s);", def.Name, def.Name, body), nil
}

func (d dialect) Write(t descriptor.Type, primaryKey string, mode sqlgen.Mode) (string, error) {
	insert, err := sqlgen.Placeholders(t, sqlgen.Insert)
	if err != nil || mode == sqlgen.Insert {
		return insert, err
	}
	if primaryKey == "" {
		return "", fmt.Errorf("%s: %w", t.Name(), storage.ErrNoPrimaryKey)
	}
	cols := descriptor.ColumnNames(t)
	if !slices.Contains(cols, primaryKey) {
		return "", fmt.Errorf("%w: %q is not a column of %s", ddl.ErrBadPrimaryKey, primaryKey, t.Name())
	}

	marks := make([]string, len(cols))
	src := make([]string, len(cols))
	var sets []string
	for i, c := range cols {
		marks[i] = "?"
		src[i] = "s." + c
		if c != primaryKey {
			sets = append(sets, fmt.Sprintf("t.%s = s.%s", c, c))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE INTO %s AS t USING (VALUES(%s)) AS s (%s) ON t.%s = s.%s",
		t.Name(), strings.Join(marks, ", "), strings.Join(cols, ", "), primaryKey, primaryKey)
	if len(sets) > 0 {
		fmt.Fprintf(&b, " WHEN MATCHED THEN UPDATE SET %s", strings.Join(sets, ", "))
	}
	fmt.Fprintf(&b, " WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);", strings.Join(cols, ", "), strings.Join(src, ", "))
	return b.String(), nil
}
