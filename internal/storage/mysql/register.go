package mysql

import (
	"context"

	"github.com/bitnick10/pbsqlite/internal/storage"
)

// newRepository is swapped by tests.
var newRepository = NewRepository

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:          cfg.DSN,
			MaxOpenConns: cfg.MaxOpenConns,
		})
		if err != nil {
			return nil, err
		}
		return storage.WithClose(r, closeFn), nil
	})
}
