package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_run_store.go -package=mocks raggy/internal/storage RunStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// RunStore defines the interface for ingest history operations.
type RunStore interface {
	// Start inserts a run in the running state.
	Start(ctx context.Context, run *IngestRun) error
	// Finish records the final status, counters, message and report of a run.
	Finish(ctx context.Context, run *IngestRun) error
	// Get returns a run by id. Returns ErrNotFound if not found.
	Get(ctx context.Context, id string) (*IngestRun, error)
	// List returns up to limit runs, most recent first.
	List(ctx context.Context, limit int) ([]IngestRun, error)
}

// RunRepo provides methods for ingest history operations.
// It implements the RunStore interface.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Start inserts a run in the running state.
func (r *RunRepo) Start(ctx context.Context, run *IngestRun) error {
	paths, err := json.Marshal(nonNil(run.RequestedPaths))
	if err != nil {
		return fmt.Errorf("failed to marshal requested paths: %w", err)
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO ingest_runs (id, kind, status, started_at, requested_paths, message) VALUES (?, ?, ?, ?, ?, ?)",
		run.ID, run.Kind, run.Status, run.StartedAt.UTC(), string(paths), run.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ingest run: %w", err)
	}
	return nil
}

// Finish records the final status, counters, message and report of a run.
func (r *RunRepo) Finish(ctx context.Context, run *IngestRun) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	var report any
	if len(run.Report) > 0 {
		report = string(run.Report)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE ingest_runs SET status = ?, finished_at = ?, added = ?, chunks = ?, message = ?, report_json = ? WHERE id = ?",
		run.Status, finished, run.Added, run.Chunks, run.Message, report, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update ingest run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = "id, kind, status, started_at, finished_at, requested_paths, added, chunks, message, report_json"

// Get returns a run by id. Returns ErrNotFound if not found.
func (r *RunRepo) Get(ctx context.Context, id string) (*IngestRun, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM ingest_runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ingest run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, most recent first. A non-positive limit
// returns every run.
func (r *RunRepo) List(ctx context.Context, limit int) ([]IngestRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM ingest_runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingest runs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	runs := []IngestRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingest run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*IngestRun, error) {
	var (
		run      IngestRun
		finished sql.NullTime
		paths    string
		report   sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Kind, &run.Status, &run.StartedAt, &finished,
		&paths, &run.Added, &run.Chunks, &run.Message, &report); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(paths), &run.RequestedPaths); err != nil {
		run.RequestedPaths = nil
	}
	if report.Valid && report.String != "" {
		run.Report = json.RawMessage(report.String)
	}
	return &run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
