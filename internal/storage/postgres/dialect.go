package postgres

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bitnick10/pbsqlite/internal/ddl"
	"github.com/bitnick10/pbsqlite/internal/descriptor"
	"github.com/bitnick10/pbsqlite/internal/sqlgen"
	"github.com/bitnick10/pbsqlite/internal/storage"
)

// Dialect renders Postgres statements. Replace becomes
// INSERT ... ON CONFLICT (pk) DO UPDATE.
var Dialect storage.Dialect = dialect{
	StandardDialect: storage.StandardDialect{
		DialectName: "postgres",
		Types: map[ddl.ColumnType]string{
			ddl.Text:    "TEXT",
			ddl.Integer: "BIGINT",
			ddl.Real:    "DOUBLE PRECISION",
		},
	},
}

type dialect struct {
	storage.StandardDialect
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

	var sets []string
	for _, c := range cols {
		if c != primaryKey {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) %s;", strings.TrimSuffix(insert, ";"), primaryKey, action), nil
}
