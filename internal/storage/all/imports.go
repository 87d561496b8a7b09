// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories with the storage package.
//
// Importing this package makes the following storage kinds available:
//
//   - "sqlite"   (internal/storage/sqlite)
//   - "postgres" (internal/storage/postgres)
//   - "mysql"    (internal/storage/mysql)
//   - "mssql"    (internal/storage/mssql)
//
// A binary that needs only a subset of backends can blank-import those
// packages directly instead.
package all

import (
	_ "github.com/bitnick10/pbsqlite/internal/storage/mssql"
	_ "github.com/bitnick10/pbsqlite/internal/storage/mysql"
	_ "github.com/bitnick10/pbsqlite/internal/storage/postgres"
	_ "github.com/bitnick10/pbsqlite/internal/storage/sqlite"
)
