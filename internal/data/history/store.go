package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Run is one conversion run as persisted.
type Run struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	SourceRoot  string
	OutputDir   string
	DryRun      bool
	Functions   int
	Transformed int
	Unchanged   int
	Failed      int
	Copied      int
	Warnings    int
}

// FileResult is the outcome of one source file within a run.
type FileResult struct {
	SourcePath string
	Function   string
	Outcome    string
	Error      string
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// WAL keeps watch-mode writes from blocking a concurrent --history read.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun stores run and its file results in one transaction. Recording
// the same run id again replaces the earlier rows.
func (s *Store) RecordRun(run Run, files []FileResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	return s.withRetry("record run", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM runs WHERE run_id = ?`, run.ID); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`
INSERT INTO runs (
  run_id, started_at_utc, duration_ms, source_root, output_dir, dry_run, function_count,
  transformed_count, unchanged_count, failed_count, copied_count, warning_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.Duration.Milliseconds(),
			run.SourceRoot,
			run.OutputDir,
			boolToInt(run.DryRun),
			run.Functions,
			run.Transformed,
			run.Unchanged,
			run.Failed,
			run.Copied,
			run.Warnings,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
		for _, f := range files {
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO file_results (run_id, source_path, function_name, outcome, error) VALUES (?, ?, ?, ?, ?)`,
				run.ID, f.SourcePath, f.Function, f.Outcome, f.Error,
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// ListRuns returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT
  run_id, started_at_utc, duration_ms, source_root, output_dir, dry_run, function_count,
  transformed_count, unchanged_count, failed_count, copied_count, warning_count
FROM runs
ORDER BY started_at_utc DESC, run_id ASC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("list runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run        Run
			startedRaw string
			durationMS int64
			dryRun     int
		)
		if err := rows.Scan(
			&run.ID,
			&startedRaw,
			&durationMS,
			&run.SourceRoot,
			&run.OutputDir,
			&dryRun,
			&run.Functions,
			&run.Transformed,
			&run.Unchanged,
			&run.Failed,
			&run.Copied,
			&run.Warnings,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		started, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", startedRaw, err)
		}
		run.StartedAt = started.UTC()
		run.Duration = time.Duration(durationMS) * time.Millisecond
		run.DryRun = dryRun != 0
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// FileResults returns the file outcomes recorded for runID ordered by path.
func (s *Store) FileResults(runID string) ([]FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load file results", func() error {
		var qErr error
		rows, qErr = s.db.Query(
			`SELECT source_path, function_name, outcome, error FROM file_results WHERE run_id = ? ORDER BY source_path ASC`,
			runID,
		)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]FileResult, 0)
	for rows.Next() {
		var f FileResult
		if err := rows.Scan(&f.SourcePath, &f.Function, &f.Outcome, &f.Error); err != nil {
			return nil, fmt.Errorf("scan file result row: %w", err)
		}
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file result rows: %w", err)
	}
	return results, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
