// Package history persists one record per drover run in a local SQLite
// database so later invocations can show what previous runs did.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Run is a single finished run of the iteration loop.
type Run struct {
	ID           int64
	RunID        string // External identifier, run-YYYYMMDD-HHMMSS-{random}
	Backend      string // Agent CLI used: amp, claude, codex, opencode
	Outcome      string // completed, exhausted, aborted
	Iterations   int    // Iterations executed before the run ended
	Attempts     int    // Attempts the budget guardian recorded
	Cost         float64
	DurationSecs int64
	StartedAt    time.Time
	RecordedAt   time.Time
}

// Store manages the SQLite database holding run history
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewRunID creates a unique identifier for a new run
// Format: run-{timestamp}-{random}
// Example: run-20240315-142233-a1b2c3
func NewRunID() string {
	timestamp := time.Now().Format("20060102-150405")
	random := uuid.New().String()[:6]
	return fmt.Sprintf("run-%s-%s", timestamp, random)
}

// NewStore opens the run-history database at dbPath, creating the file and
// its parent directory when missing.
func NewStore(dbPath string) (*Store, error) {
	// Handle in-memory database
	if dbPath == ":memory:" {
		return openAndInitStore(dbPath)
	}

	// Ensure parent directory exists for file-based databases
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	return openAndInitStore(dbPath)
}

// openAndInitStore opens the database connection and initializes schema
func openAndInitStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure SQLite for concurrent access with retry logic.
	// Set busy_timeout FIRST so subsequent operations wait on locks.
	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, sql string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(sql)
		if err == nil {
			return nil
		}

		// Only retry on "database is locked" errors
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}

		lastErr = err
		delay := baseDelay * time.Duration(1<<attempt)
		time.Sleep(delay)
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// tableExists checks if a table exists in the database
func (s *Store) tableExists(tableName string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
	err := s.db.QueryRow(query, tableName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table existence: %w", err)
	}
	return count > 0, nil
}

// RecordRun inserts a finished run. A missing RunID is generated; the
// database row id is written back to run.ID.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run.RunID == "" {
		run.RunID = NewRunID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `INSERT INTO runs
		(run_id, backend, outcome, iterations, attempts, cost, duration_seconds, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		run.RunID,
		run.Backend,
		run.Outcome,
		run.Iterations,
		run.Attempts,
		run.Cost,
		run.DurationSecs,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	run.ID = id

	return nil
}

// ListRuns returns recorded runs, most recent first. A limit of zero or
// less returns everything.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT id, run_id, backend, outcome, iterations, attempts, cost, duration_seconds, started_at, recorded_at
		FROM runs
		ORDER BY id DESC`

	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID,
			&run.RunID,
			&run.Backend,
			&run.Outcome,
			&run.Iterations,
			&run.Attempts,
			&run.Cost,
			&run.DurationSecs,
			&run.StartedAt,
			&run.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}
