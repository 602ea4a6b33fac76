// Package store persists GeoNames records into SQLite or PostgreSQL and keeps
// a log of import runs.
package store

import (
	"context"
	"iter"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geonames/internal/geonames"
)

// DefaultBatchSize is the number of rows written per transaction.
const DefaultBatchSize = 5000

// DefaultRunLimit caps ListRuns when no positive limit is given.
const DefaultRunLimit = 20

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = eris.New("store: not found")

// RunStatus is the state of an import run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ImportRun records one file load.
type ImportRun struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Dataset    string     `json:"dataset"`
	Status     RunStatus  `json:"status"`
	Rows       int64      `json:"rows"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store defines the load targets for GeoNames files.
type Store interface {
	// Loads. Each returns the number of rows written before the sequence
	// ended or failed.
	LoadGeoNames(ctx context.Context, records iter.Seq2[geonames.GeoName, error]) (int64, error)
	LoadExtendedGeoNames(ctx context.Context, records iter.Seq2[geonames.ExtendedGeoName, error]) (int64, error)
	LoadAdmin1Codes(ctx context.Context, records iter.Seq2[geonames.Admin1Code, error]) (int64, error)

	// Runs
	StartRun(ctx context.Context, source, dataset string) (*ImportRun, error)
	FinishRun(ctx context.Context, runID string, rows int64, runErr error) error
	GetRun(ctx context.Context, runID string) (*ImportRun, error)
	ListRuns(ctx context.Context, limit int) ([]ImportRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Option tunes a store.
type Option func(*options)

type options struct {
	batchSize int
}

// WithBatchSize sets the rows per transaction. Values <= 0 keep the default.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Import wraps load in an import run: the run is started, load is executed
// and the run is finished with the row count and outcome.
func Import(ctx context.Context, st Store, source, dataset string, load func(ctx context.Context) (int64, error)) (*ImportRun, error) {
	run, err := st.StartRun(ctx, source, dataset)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(
		zap.String("component", "store"),
		zap.String("run_id", run.ID),
		zap.String("source", source),
		zap.String("dataset", dataset),
	)
	log.Info("import started")

	rows, loadErr := load(ctx)

	// Record the outcome even when ctx was cancelled mid-load.
	finishCtx := context.WithoutCancel(ctx)
	if err := st.FinishRun(finishCtx, run.ID, rows, loadErr); err != nil {
		log.Error("failed to record import outcome", zap.Error(err))
		if loadErr == nil {
			loadErr = err
		}
	}

	now := time.Now().UTC()
	run.Rows = rows
	run.FinishedAt = &now
	if loadErr != nil {
		run.Status = RunStatusFailed
		run.Error = loadErr.Error()
		log.Warn("import failed", zap.Int64("rows", rows), zap.Error(loadErr))
		return run, eris.Wrapf(loadErr, "store: import %s", source)
	}
	run.Status = RunStatusComplete
	log.Info("import complete", zap.Int64("rows", rows))
	return run, nil
}

func runOutcome(runErr error) (RunStatus, *string) {
	if runErr == nil {
		return RunStatusComplete, nil
	}
	msg := runErr.Error()
	return RunStatusFailed, &msg
}
