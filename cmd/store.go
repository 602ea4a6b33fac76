package main

import (
	"context"

	"github.com/sells-group/geonames/internal/store"
)

// initStore opens the configured load target and migrates its schema.
func initStore(ctx context.Context, postgres bool) (store.Store, error) {
	opts := []store.Option{store.WithBatchSize(cfg.Store.BatchSize)}

	var (
		st  store.Store
		err error
	)
	if postgres {
		// One connection per parallel file plus one for run bookkeeping.
		poolCfg := &store.PoolConfig{MaxConns: int32(cfg.Load.Concurrency) + 1}
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg, opts...)
	} else {
		st, err = store.NewSQLite(cfg.Store.SQLitePath, opts...)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// storeMode is the config validation mode of a store-backed command.
func storeMode(postgres bool) string {
	if postgres {
		return "load-postgres"
	}
	return "load"
}
