package storage

import (
	"context"
	"fmt"

	"github.com/bitnick10/pbsqlite/internal/ddl"
)

// EnsureTable renders def with repo's dialect and executes it. The statement
// is idempotent, so calling EnsureTable again for the same definition is a
// no-op on the database.
//
// If rendering fails, nothing is sent to the database.
func EnsureTable(ctx context.Context, repo Repository, def ddl.TableDef) error {
	stmt, err := repo.Dialect().CreateTable(def)
	if err != nil {
		return fmt.Errorf("build create table: %w", err)
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}
