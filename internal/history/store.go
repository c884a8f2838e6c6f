package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the history database at path and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a run in the running state.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if run.Status == "" {
		run.Status = StatusRunning
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source_kind, source_ref, source_dir, source_commit, status, started_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.SourceKind,
		run.SourceRef,
		nullableString(run.SourceDir),
		nullableString(run.Commit),
		string(run.Status),
		formatTime(run.Started),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateSource records the resolved source tree of a run.
func (s *Store) UpdateSource(ctx context.Context, runID, dir, commit string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET source_dir = ?, source_commit = ? WHERE id = ?`,
		nullableString(dir), nullableString(commit), runID,
	)
	if err != nil {
		return fmt.Errorf("update run source: %w", err)
	}
	return nil
}

// RecordTarget stores the outcome of one ABI. Re-recording an ABI replaces it.
func (s *Store) RecordTarget(ctx context.Context, runID string, position int, t Target) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_targets (
            run_id, position, abi, api_level, status, libraries, text_relocations, error_message, duration_ms
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		position,
		t.ABI,
		t.APILevel,
		string(t.Status),
		t.Libraries,
		t.TextRelocations,
		nullableString(t.Error),
		t.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert target: %w", err)
	}
	return nil
}

// FinishRun marks a run complete.
func (s *Store) FinishRun(ctx context.Context, runID string, status Status, finished time.Time, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_message = ? WHERE id = ?`,
		string(status), formatTime(finished), nullableString(errMsg), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown run %q", runID)
	}
	return nil
}

// Recent returns the newest runs first, each with its targets in build order.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_kind, source_ref, source_dir, source_commit, status, error_message, started_at, finished_at
        FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                       Run
			status                    string
			dir, commit, errMsg, done sql.NullString
			started                   string
		)
		if err := rows.Scan(&run.ID, &run.SourceKind, &run.SourceRef, &dir, &commit, &status, &errMsg, &started, &done); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = Status(status)
		run.SourceDir = dir.String
		run.Commit = commit.String
		run.Error = errMsg.String
		run.Started = parseTime(started)
		if done.Valid {
			run.Finished = parseTime(done.String)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		targets, err := s.targets(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Targets = targets
	}
	return runs, nil
}

func (s *Store) targets(ctx context.Context, runID string) ([]Target, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT abi, api_level, status, libraries, text_relocations, error_message, duration_ms
        FROM run_targets WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query targets: %w", err)
	}
	defer rows.Close()

	var out []Target
	for rows.Next() {
		var (
			t        Target
			status   string
			errMsg   sql.NullString
			duration int64
		)
		if err := rows.Scan(&t.ABI, &t.APILevel, &status, &t.Libraries, &t.TextRelocations, &errMsg, &duration); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		t.Status = Status(status)
		t.Error = errMsg.String
		t.Duration = time.Duration(duration) * time.Millisecond
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout keeps nanoseconds at a fixed width so stored timestamps sort
// lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
