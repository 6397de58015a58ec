// File: internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS batch_runs (
    id          UUID PRIMARY KEY,
    input       TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    succeeded   INTEGER NOT NULL,
    failed      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS batch_results (
    run_id    UUID NOT NULL REFERENCES batch_runs(id) ON DELETE CASCADE,
    position  INTEGER NOT NULL,
    url       TEXT NOT NULL,
    title     TEXT NOT NULL DEFAULT '',
    succeeded BOOLEAN NOT NULL,
    error     TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, position)
);`

const insertRunSQL = `
INSERT INTO batch_runs (id, input, started_at, finished_at, succeeded, failed)
VALUES ($1, $2, $3, $4, $5, $6);`

var resultColumns = []string{"run_id", "position", "url", "title", "succeeded", "error"}

// Run is one batch invocation and its per-URL outcomes.
type Run struct {
	Input      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
}

// Result is the outcome of one URL in a batch.
type Result struct {
	URL       string
	Title     string
	Succeeded bool
	Error     string
}

// Store records batch history in PostgreSQL.
type Store struct {
	pool  DBPool
	log   *zap.Logger
	newID func() string
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool:  pool,
		log:   logger.Named("store"),
		newID: uuid.NewString,
	}, nil
}

// Open connects to databaseURL, ensures the schema, and returns the store
// along with a function that closes the pool.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, func(), error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

// EnsureSchema creates the history tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// RecordBatch writes run and all of its results in one transaction and
// returns the generated run ID.
func (s *Store) RecordBatch(ctx context.Context, run Run) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	runID := s.newID()
	succeeded := 0
	for _, r := range run.Results {
		if r.Succeeded {
			succeeded++
		}
	}

	if _, err := tx.Exec(ctx, insertRunSQL,
		runID, run.Input, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		succeeded, len(run.Results)-succeeded,
	); err != nil {
		return "", fmt.Errorf("failed to insert batch run: %w", err)
	}

	if len(run.Results) > 0 {
		if err := s.copyResults(ctx, tx, runID, run.Results); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Recorded batch run.", zap.String("run_id", runID), zap.Int("results", len(run.Results)))
	return runID, nil
}

func (s *Store) copyResults(ctx context.Context, tx pgx.Tx, runID string, results []Result) error {
	rows := make([][]interface{}, len(results))
	for i, r := range results {
		rows[i] = []interface{}{runID, i, r.URL, r.Title, r.Succeeded, r.Error}
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"batch_results"}, resultColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy batch results: %w", err)
	}
	if int(copyCount) != len(results) {
		return fmt.Errorf("mismatch in copied results count: expected %d, got %d", len(results), copyCount)
	}
	return nil
}
