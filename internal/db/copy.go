// Package db provides shared database helpers for batched loads, COPY and
// bulk upserts.
package db

import (
	"context"
	"iter"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table using PostgreSQL COPY protocol.
// The table may be schema-qualified ("geo.geoname").
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, identifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// RowFunc converts a record into the column values of one table row.
type RowFunc[T any] func(rec T) ([]any, error)

// FlushFunc writes one batch of rows and returns how many were stored.
type FlushFunc func(ctx context.Context, rows [][]any) (int64, error)

// InBatches drains records, converting each with toRow and handing batches of
// at most size rows to flush. It stops at the first error from the sequence,
// toRow or flush; rows flushed before that stay counted.
func InBatches[T any](ctx context.Context, records iter.Seq2[T, error], size int, toRow RowFunc[T], flush FlushFunc) (int64, error) {
	if size <= 0 {
		return 0, eris.Errorf("db: batch size must be > 0, got %d", size)
	}

	var total int64
	batch := make([][]any, 0, size)
	send := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := flush(ctx, batch)
		total += n
		batch = batch[:0]
		return err
	}

	for rec, err := range records {
		if err != nil {
			return total, err
		}
		if err := ctx.Err(); err != nil {
			return total, eris.Wrap(err, "db: batch load cancelled")
		}
		row, err := toRow(rec)
		if err != nil {
			return total, err
		}
		batch = append(batch, row)
		if len(batch) == size {
			if err := send(); err != nil {
				return total, err
			}
		}
	}
	return total, send()
}

// identifier splits a possibly schema-qualified table name.
func identifier(table string) pgx.Identifier {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{table}
}
