//go:build !cgo_sqlite

package sqlite

import (
	// Pure-Go SQLite driver; build with -tags cgo_sqlite for mattn/go-sqlite3.
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver used by Open.
const DriverName = "sqlite"
