package store

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geonames/internal/db"
	"github.com/sells-group/geonames/internal/geofile"
	"github.com/sells-group/geonames/internal/geonames"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db        *sql.DB
	batchSize int
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, opts ...Option) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single writer avoids SQLITE_BUSY between concurrent loads.
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn, batchSize: applyOptions(opts).batchSize}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geoname (
	id                INTEGER PRIMARY KEY,
	name              TEXT NOT NULL,
	latitude          REAL NOT NULL,
	longitude         REAL NOT NULL,
	ascii_name        TEXT,
	alternate_names   TEXT,
	feature_class     TEXT,
	feature_code      TEXT,
	country_code      TEXT,
	cc2               TEXT,
	admin1_code       TEXT,
	admin2_code       TEXT,
	admin3_code       TEXT,
	admin4_code       TEXT,
	population        INTEGER,
	elevation         INTEGER,
	dem               INTEGER,
	timezone          TEXT,
	modification_date TEXT
);

CREATE TABLE IF NOT EXISTS admin1_code (
	code       TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	name_ascii TEXT NOT NULL,
	geoname_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	dataset     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	row_count   INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_geoname_name ON geoname(name);
CREATE INDEX IF NOT EXISTS idx_geoname_country_admin1 ON geoname(country_code, admin1_code);
CREATE INDEX IF NOT EXISTS idx_import_runs_started_at ON import_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Compact rows keep any extended columns already stored for the id.
const sqliteUpsertGeoName = `INSERT INTO geoname (id, name, latitude, longitude) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, latitude = excluded.latitude, longitude = excluded.longitude`

const sqliteReplaceExtended = `INSERT OR REPLACE INTO geoname (
	id, name, latitude, longitude, ascii_name, alternate_names, feature_class, feature_code,
	country_code, cc2, admin1_code, admin2_code, admin3_code, admin4_code,
	population, elevation, dem, timezone, modification_date
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const sqliteReplaceAdmin1 = `INSERT OR REPLACE INTO admin1_code (code, name, name_ascii, geoname_id) VALUES (?, ?, ?, ?)`

func (s *SQLiteStore) LoadGeoNames(ctx context.Context, records iter.Seq2[geonames.GeoName, error]) (int64, error) {
	return db.InBatches(ctx, records, s.batchSize, compactRow, s.flusher(sqliteUpsertGeoName))
}

func (s *SQLiteStore) LoadExtendedGeoNames(ctx context.Context, records iter.Seq2[geonames.ExtendedGeoName, error]) (int64, error) {
	toRow := func(g geonames.ExtendedGeoName) ([]any, error) {
		row := extendedRow(g)
		row[5] = strings.Join(g.AlternateNames, ",")
		row[9] = strings.Join(g.AlternateCountryCodes, ",")
		if !g.ModificationDate.IsZero() {
			row[18] = g.ModificationDate.Format(geofile.DateLayout)
		}
		return row, nil
	}
	return db.InBatches(ctx, records, s.batchSize, toRow, s.flusher(sqliteReplaceExtended))
}

func (s *SQLiteStore) LoadAdmin1Codes(ctx context.Context, records iter.Seq2[geonames.Admin1Code, error]) (int64, error) {
	return db.InBatches(ctx, records, s.batchSize, admin1Row, s.flusher(sqliteReplaceAdmin1))
}

// flusher returns a db.FlushFunc that executes stmt once per row inside a
// single transaction.
func (s *SQLiteStore) flusher(stmt string) db.FlushFunc {
	return func(ctx context.Context, rows [][]any) (int64, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: begin batch")
		}
		defer tx.Rollback() //nolint:errcheck

		prepared, err := tx.PrepareContext(ctx, stmt)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: prepare batch")
		}
		defer prepared.Close() //nolint:errcheck

		for _, row := range rows {
			if _, err := prepared.ExecContext(ctx, row...); err != nil {
				return 0, eris.Wrapf(err, "sqlite: insert row %v", row[0])
			}
		}
		if err := tx.Commit(); err != nil {
			return 0, eris.Wrap(err, "sqlite: commit batch")
		}
		return int64(len(rows)), nil
	}
}

// GeoName returns the stored point with the given id.
func (s *SQLiteStore) GeoName(ctx context.Context, id int) (*geonames.GeoName, error) {
	var g geonames.GeoName
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, latitude, longitude FROM geoname WHERE id = ?`, id,
	).Scan(&g.ID, &g.Name, &g.Latitude, &g.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "geoname %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get geoname %d", id)
	}
	return &g, nil
}

// Admin1Code returns the admin1 entry for a "CC.code" key.
func (s *SQLiteStore) Admin1Code(ctx context.Context, code string) (*geonames.Admin1Code, error) {
	var a geonames.Admin1Code
	err := s.db.QueryRowContext(ctx,
		`SELECT code, name, name_ascii, geoname_id FROM admin1_code WHERE code = ?`, code,
	).Scan(&a.Code, &a.Name, &a.NameASCII, &a.GeoNameID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "admin1 code %s", code)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get admin1 code %s", code)
	}
	return &a, nil
}

// CountGeoNames returns the number of stored points.
func (s *SQLiteStore) CountGeoNames(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM geoname`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count geonames")
}

func (s *SQLiteStore) StartRun(ctx context.Context, source, dataset string) (*ImportRun, error) {
	run := &ImportRun{
		ID:        uuid.New().String(),
		Source:    source,
		Dataset:   dataset,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, source, dataset, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Dataset, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert import run")
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, rows int64, runErr error) error {
	status, msg := runOutcome(runErr)
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_runs SET status = ?, row_count = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), rows, msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish import run %s", runID)
	}
	return checkRowsAffected(res, "import run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*ImportRun, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelectRun+` WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "import run %s", runID)
	}
	return run, err
}

// ListRuns returns the most recent import runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	rows, err := s.db.QueryContext(ctx, sqliteSelectRun+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list import runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []ImportRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list import runs iterate")
}

const sqliteSelectRun = `SELECT id, source, dataset, status, row_count, error, started_at, finished_at FROM import_runs`

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*ImportRun, error) {
	var r ImportRun
	var status string
	var errMsg sql.NullString
	var finished sql.NullTime

	err := row.Scan(&r.ID, &r.Source, &r.Dataset, &status, &r.Rows, &errMsg, &r.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan import run")
	}
	r.Status = RunStatus(status)
	r.Error = errMsg.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

func compactRow(g geonames.GeoName) ([]any, error) {
	return []any{g.ID, g.Name, g.Latitude, g.Longitude}, nil
}

// extendedRow lays out the 19 geoname columns in table order. List and date
// columns are left for the caller to encode.
func extendedRow(g geonames.ExtendedGeoName) []any {
	return []any{
		g.ID, g.Name, g.Latitude, g.Longitude,
		g.ASCIIName, nil, g.FeatureClass, g.FeatureCode,
		g.CountryCode, nil, g.Admin1Code, g.Admin2Code, g.Admin3Code, g.Admin4Code,
		nullable(g.Population), nullable(g.Elevation), nullable(g.DEM), g.Timezone, nil,
	}
}

// nullable dereferences v, mapping nil to a NULL column.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func admin1Row(a geonames.Admin1Code) ([]any, error) {
	return []any{a.Code, a.Name, a.NameASCII, a.GeoNameID}, nil
}
