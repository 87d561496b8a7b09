package ddl

import "github.com/bitnick10/pbsqlite/internal/descriptor"

// ColumnDef describes a single column of a table derived from a message
// type. Names are emitted unquoted; they are validated with ValidIdent
// before any SQL is rendered.
//
// Fields:
//   - Name: column name (the message field name)
//   - Type: storage class chosen by MapType
//   - Kind: the source field kind, kept so dialects can refine the type
type ColumnDef struct {
	Name string
	Type ColumnType
	Kind descriptor.Kind
}

// TableDef holds a table name, its ordered columns and the primary-key
// column. Column order is the message's field order.
type TableDef struct {
	Name       string
	Columns    []ColumnDef
	PrimaryKey string
}

// ColumnNames returns the column names in order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
