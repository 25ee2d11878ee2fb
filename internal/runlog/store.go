package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/csv2influx/internal/batch"
	"github.com/nerrad567/csv2influx/internal/infrastructure/database"
)

// timeFormat is fixed width so timestamp columns sort chronologically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one import as recorded in the ledger.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time // zero while running
	Input       string
	Target      string
	Backend     string
	Policy      string
	BatchSize   int
	Fingerprint string

	Status  string
	Summary batch.Summary // Failed is not loaded; use FailedBatches
	Error   string
}

// Store reads and writes the run ledger tables.
type Store struct {
	db *database.DB
}

// NewStore returns a Store on a migrated database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Create inserts run with status "running". An empty ID is replaced with
// a new UUID, and a zero StartedAt with the current time.
func (s *Store) Create(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = StatusRunning

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, input, target, backend, policy, batch_size, fingerprint, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeFormat), run.Input, run.Target,
		run.Backend, run.Policy, run.BatchSize, run.Fingerprint, run.Status,
	)
	if err != nil {
		return fmt.Errorf("creating run %s: %w", run.ID, err)
	}
	return nil
}

// AddFailedBatch records a batch the target rejected.
func (s *Store) AddFailedBatch(ctx context.Context, runID string, fb batch.FailedBatch) error {
	msg := ""
	if fb.Err != nil {
		msg = fb.Err.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO failed_batches (run_id, seq, first_line, last_line, points, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, fb.Seq, fb.FirstLine, fb.LastLine, fb.Points, msg,
	)
	if err != nil {
		return fmt.Errorf("recording failed batch %d of run %s: %w", fb.Seq, runID, err)
	}
	return nil
}

// Finish stores the final status and counters of a run.
func (s *Store) Finish(ctx context.Context, runID, status string, sum batch.Summary, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?, status = ?, lines_read = ?, points_written = ?,
			points_dropped = ?, batches_attempted = ?, batches_failed = ?, error = ?
		WHERE id = ?`,
		time.Now().UTC().Format(timeFormat), status, sum.LinesRead, sum.PointsWritten,
		sum.PointsDropped, sum.BatchesAttempted, sum.BatchesFailed, msg, runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// runColumns is the column list scanned by scanRun.
const runColumns = `id, started_at, finished_at, input, target, backend, policy, batch_size,
	fingerprint, status, lines_read, points_written, points_dropped,
	batches_attempted, batches_failed, error`

// Get returns one run.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// FailedBatches returns the rejected batches of a run in sequence order.
// Err holds the stored message.
func (s *Store) FailedBatches(ctx context.Context, runID string) ([]batch.FailedBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, first_line, last_line, points, error
		FROM failed_batches WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing failed batches: %w", err)
	}
	defer rows.Close()

	var out []batch.FailedBatch
	for rows.Next() {
		var (
			fb  batch.FailedBatch
			msg string
		)
		if err := rows.Scan(&fb.Seq, &fb.FirstLine, &fb.LastLine, &fb.Points, &msg); err != nil {
			return nil, fmt.Errorf("scanning failed batch: %w", err)
		}
		fb.Err = errors.New(msg)
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating failed batches: %w", err)
	}
	return out, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run                 Run
		started             string
		finished, errString sql.NullString
	)
	err := sc.Scan(
		&run.ID, &started, &finished, &run.Input, &run.Target, &run.Backend,
		&run.Policy, &run.BatchSize, &run.Fingerprint, &run.Status,
		&run.Summary.LinesRead, &run.Summary.PointsWritten, &run.Summary.PointsDropped,
		&run.Summary.BatchesAttempted, &run.Summary.BatchesFailed, &errString,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	// Timestamps are written by this package in timeFormat.
	run.StartedAt, _ = time.Parse(timeFormat, started) //nolint:errcheck // Format is controlled
	if finished.Valid {
		run.FinishedAt, _ = time.Parse(timeFormat, finished.String) //nolint:errcheck // Format is controlled
	}
	run.Error = errString.String
	return &run, nil
}
