// Package sqlite implements a SQLite-backed storage.Repository.
package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:people.db?_pragma=busy_timeout(5000)"
	//   "people.db" (interpreted by the driver)
	//   ":memory:"
	DSN string

	// MaxOpenConns caps the pool. Zero means a single connection, which keeps
	// ":memory:" databases coherent and serializes writers.
	MaxOpenConns int
}
