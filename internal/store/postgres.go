package store

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geonames/internal/db"
	"github.com/sells-group/geonames/internal/geonames"
)

// PostgresStore implements Store on PostgreSQL/PostGIS. Batches are staged
// with COPY and merged with INSERT ... ON CONFLICT, so reloading a file
// updates rows in place.
type PostgresStore struct {
	pool      db.Pool
	closeFn   func()
	batchSize int
}

var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, opts ...Option) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresStore(pool, pool.Close, opts...), nil
}

func newPostgresStore(pool db.Pool, closeFn func(), opts ...Option) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: closeFn, batchSize: applyOptions(opts).batchSize}
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS geoname (
	id                INTEGER PRIMARY KEY,
	name              TEXT NOT NULL,
	latitude          DOUBLE PRECISION NOT NULL,
	longitude         DOUBLE PRECISION NOT NULL,
	geom              geometry(Point, 4326) NOT NULL,
	ascii_name        TEXT,
	alternate_names   TEXT[],
	feature_class     TEXT,
	feature_code      TEXT,
	country_code      TEXT,
	cc2               TEXT[],
	admin1_code       TEXT,
	admin2_code       TEXT,
	admin3_code       TEXT,
	admin4_code       TEXT,
	population        BIGINT,
	elevation         INTEGER,
	dem               INTEGER,
	timezone          TEXT,
	modification_date DATE
);

CREATE TABLE IF NOT EXISTS admin1_code (
	code       TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	name_ascii TEXT NOT NULL,
	geoname_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source      TEXT NOT NULL,
	dataset     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	row_count   BIGINT NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_geoname_geom ON geoname USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_geoname_country_admin1 ON geoname(country_code, admin1_code);
CREATE INDEX IF NOT EXISTS idx_import_runs_started_at ON import_runs(started_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var (
	compactColumns  = []string{"id", "name", "latitude", "longitude", "geom"}
	extendedColumns = []string{
		"id", "name", "latitude", "longitude", "geom",
		"ascii_name", "alternate_names", "feature_class", "feature_code",
		"country_code", "cc2", "admin1_code", "admin2_code", "admin3_code", "admin4_code",
		"population", "elevation", "dem", "timezone", "modification_date",
	}
	admin1Columns = []string{"code", "name", "name_ascii", "geoname_id"}
)

func (s *PostgresStore) LoadGeoNames(ctx context.Context, records iter.Seq2[geonames.GeoName, error]) (int64, error) {
	toRow := func(g geonames.GeoName) ([]any, error) {
		point, err := g.EWKB()
		if err != nil {
			return nil, err
		}
		return []any{g.ID, g.Name, g.Latitude, g.Longitude, point}, nil
	}
	return db.InBatches(ctx, records, s.batchSize, toRow, s.upserter("geoname", compactColumns, "id"))
}

func (s *PostgresStore) LoadExtendedGeoNames(ctx context.Context, records iter.Seq2[geonames.ExtendedGeoName, error]) (int64, error) {
	toRow := func(g geonames.ExtendedGeoName) ([]any, error) {
		point, err := g.EWKB()
		if err != nil {
			return nil, err
		}
		row := extendedRow(g)
		row[5] = g.AlternateNames
		row[9] = g.AlternateCountryCodes
		if !g.ModificationDate.IsZero() {
			row[18] = g.ModificationDate
		}
		// geom follows longitude in the table layout.
		return append(row[:4:4], append([]any{point}, row[4:]...)...), nil
	}
	return db.InBatches(ctx, records, s.batchSize, toRow, s.upserter("geoname", extendedColumns, "id"))
}

func (s *PostgresStore) LoadAdmin1Codes(ctx context.Context, records iter.Seq2[geonames.Admin1Code, error]) (int64, error) {
	return db.InBatches(ctx, records, s.batchSize, admin1Row, s.upserter("admin1_code", admin1Columns, "code"))
}

func (s *PostgresStore) upserter(table string, columns []string, key string) db.FlushFunc {
	cfg := db.UpsertConfig{Table: table, Columns: columns, ConflictKeys: []string{key}}
	return func(ctx context.Context, rows [][]any) (int64, error) {
		return db.BulkUpsert(ctx, s.pool, cfg, rows)
	}
}

// CountGeoNames returns the number of stored points.
func (s *PostgresStore) CountGeoNames(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM geoname`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count geonames")
}

func (s *PostgresStore) StartRun(ctx context.Context, source, dataset string) (*ImportRun, error) {
	run := &ImportRun{
		ID:        uuid.New().String(),
		Source:    source,
		Dataset:   dataset,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_runs (id, source, dataset, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Source, run.Dataset, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert import run")
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, rows int64, runErr error) error {
	status, msg := runOutcome(runErr)
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_runs SET status = $1, row_count = $2, error = $3, finished_at = $4 WHERE id = $5`,
		string(status), rows, msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish import run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "import run %s", runID)
	}
	return nil
}

const postgresSelectRun = `SELECT id, source, dataset, status, row_count, error, started_at, finished_at FROM import_runs`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*ImportRun, error) {
	run, err := scanPostgresRun(s.pool.QueryRow(ctx, postgresSelectRun+` WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "import run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get import run %s", runID)
	}
	return run, nil
}

// ListRuns returns the most recent import runs, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	rows, err := s.pool.Query(ctx, postgresSelectRun+` ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list import runs")
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan import run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list import runs iterate")
}

func scanPostgresRun(row pgx.Row) (*ImportRun, error) {
	var r ImportRun
	var status string
	var errMsg *string
	if err := row.Scan(&r.ID, &r.Source, &r.Dataset, &status, &r.Rows, &errMsg, &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}
