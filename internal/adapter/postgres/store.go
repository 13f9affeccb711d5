// Package postgres persists run reports to PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/weather-precip-etl/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS precipitation_runs (
    run_id       TEXT PRIMARY KEY,
    source       TEXT NOT NULL,
    generated_at TIMESTAMPTZ NOT NULL,
    pivot_year   INTEGER NOT NULL,
    rows_loaded  INTEGER NOT NULL,
    rows_dropped INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS precipitation_series (
    run_id            TEXT NOT NULL REFERENCES precipitation_runs(run_id) ON DELETE CASCADE,
    city              TEXT NOT NULL,
    year              INTEGER NOT NULL,
    avg_precipitation DOUBLE PRECISION,
    lat               DOUBLE PRECISION,
    lon               DOUBLE PRECISION,
    PRIMARY KEY (run_id, city, year)
);

CREATE TABLE IF NOT EXISTS precipitation_pivot (
    run_id        TEXT NOT NULL REFERENCES precipitation_runs(run_id) ON DELETE CASCADE,
    month         INTEGER NOT NULL,
    precip_type   TEXT NOT NULL,
    precipitation DOUBLE PRECISION,
    PRIMARY KEY (run_id, month, precip_type)
);`

const (
	insertRun = `INSERT INTO precipitation_runs (run_id, source, generated_at, pivot_year, rows_loaded, rows_dropped)
VALUES ($1,$2,$3,$4,$5,$6)`

	insertSeries = `INSERT INTO precipitation_series (run_id, city, year, avg_precipitation, lat, lon)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (run_id, city, year) DO UPDATE
SET avg_precipitation = EXCLUDED.avg_precipitation,
    lat = EXCLUDED.lat,
    lon = EXCLUDED.lon`

	insertPivot = `INSERT INTO precipitation_pivot (run_id, month, precip_type, precipitation)
VALUES ($1,$2,$3,$4)
ON CONFLICT (run_id, month, precip_type) DO UPDATE
SET precipitation = EXCLUDED.precipitation`
)

// Store writes each report into the runs, series, and pivot tables inside a
// single transaction.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to databaseURL and verifies the connection.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *Store) Name() string { return "postgres" }

// Load inserts the run row and every output record. Nothing is committed if
// any statement fails.
func (s *Store) Load(ctx context.Context, report domain.Report) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := buildBatch(report)
	res := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := res.Exec(); err != nil {
			_ = res.Close()
			return fmt.Errorf("postgres: insert %s: %w", statementName(i, report), err)
		}
	}
	if err := res.Close(); err != nil {
		return fmt.Errorf("postgres: batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	s.logger.Info("report stored", "run_id", report.RunID, "series", len(report.Series), "pivot", len(report.Pivot))
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// buildBatch queues the run row first, then series rows, then pivot rows.
func buildBatch(report domain.Report) *pgx.Batch {
	batch := &pgx.Batch{}
	batch.Queue(insertRun, runArgs(report)...)
	for _, p := range report.Series {
		batch.Queue(insertSeries, seriesArgs(report.RunID, p)...)
	}
	for _, r := range report.Pivot {
		batch.Queue(insertPivot, pivotArgs(report.RunID, r)...)
	}
	return batch
}

func runArgs(report domain.Report) []any {
	return []any{report.RunID, report.Source, report.GeneratedAt, report.PivotYear, report.RowsLoaded, report.RowsDropped}
}

func seriesArgs(runID string, p domain.SeriesPoint) []any {
	var lat, lon *float64
	if p.Geo != nil {
		lat, lon = &p.Geo.Lat, &p.Geo.Lon
	}
	return []any{runID, p.City, p.Date.Year(), p.AvgPrecipitation.Ptr(), lat, lon}
}

func pivotArgs(runID string, r domain.PivotRow) []any {
	return []any{runID, r.Month, string(r.Type), r.Precipitation.Ptr()}
}

// statementName describes the i-th queued statement for error messages.
func statementName(i int, report domain.Report) string {
	switch {
	case i == 0:
		return "run " + report.RunID
	case i <= len(report.Series):
		return "series " + report.Series[i-1].Key()
	default:
		return "pivot " + report.Pivot[i-1-len(report.Series)].Key() + " (" + strconv.Itoa(report.PivotYear) + ")"
	}
}
