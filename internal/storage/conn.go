package storage

import (
	"context"
	"sync"
)

// Conn is what a backend implements itself: a Repository minus Close. The
// pool it runs on is released by a separate function returned alongside it.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Dialect() Dialect
}

// WithClose returns conn as a Repository whose Close calls closeFn once.
// closeFn may be nil.
func WithClose(conn Conn, closeFn func()) Repository {
	return &closer{Conn: conn, closeFn: closeFn}
}

// Unwrap returns the Conn behind a Repository built by WithClose, or repo
// itself.
func Unwrap(repo Repository) Conn {
	if c, ok := repo.(*closer); ok {
		return c.Conn
	}
	return repo
}

type closer struct {
	Conn
	once    sync.Once
	closeFn func()
}

func (c *closer) Close() error {
	c.once.Do(func() {
		if c.closeFn != nil {
			c.closeFn()
		}
	})
	return nil
}
