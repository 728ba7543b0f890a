/*
Package sqlite persists validation runs to a SQLite results database.

PURPOSE:
  A run's console output is ephemeral; when the same validation is repeated
  across data drops, the per-run metrics and the mismatching rows are worth
  keeping somewhere queryable. This store collects them. It is an output
  artifact of the analysis, not a durability layer for it - a run that fails
  midway simply writes nothing.

KEY TABLES:
  runs:       one row per validated entity kind (uuid id, inputs, timestamps)
  metrics:    name + numerator/denominator/value per run
  mismatches: the joined rows where predicted and reference rooms differ

APPEND-ONLY ENFORCEMENT:
  Nothing updates or deletes; each run inserts its batch inside one
  transaction and either commits whole or leaves no trace.

WAL MODE:
  Opened with WAL so a long mismatch insert does not block a concurrent
  reader poking at earlier runs.

USAGE:
  st, err := sqlite.New("validation.db")   // ":memory:" works too
  if err != nil { ... }
  defer st.Close()
  err = st.SaveRun(ctx, sqlite.RunFromReport(rep, startedAt))
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/clarion/rfid-validate/agreement"
)

// Store writes validation results to a SQLite database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (creating if needed) a results database.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		entity TEXT NOT NULL,
		signals_file TEXT NOT NULL,
		reference_file TEXT NOT NULL,
		join_keys TEXT NOT NULL,
		reading_count INTEGER NOT NULL,
		reference_count INTEGER NOT NULL,
		joined_count INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metrics (
		run_id TEXT NOT NULL REFERENCES runs(id),
		name TEXT NOT NULL,
		numerator INTEGER NOT NULL,
		denominator INTEGER NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, name)
	);

	CREATE TABLE IF NOT EXISTS mismatches (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tag_id INTEGER NOT NULL,
		time TEXT NOT NULL,
		predicted TEXT NOT NULL,
		reference TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_run ON metrics(run_id);
	CREATE INDEX IF NOT EXISTS idx_mismatches_run ON mismatches(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_entity ON runs(entity, started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Run is one validated entity kind, flattened for persistence.
type Run struct {
	ID        string
	StartedAt time.Time
	Report    *agreement.Report
}

// RunFromReport wraps a report with a fresh run id.
func RunFromReport(rep *agreement.Report, startedAt time.Time) Run {
	return Run{ID: uuid.NewString(), StartedAt: startedAt, Report: rep}
}

// SaveRun inserts the run, its metrics, and its mismatches in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	rep := run.Report

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, entity, signals_file, reference_file, join_keys,
		 reading_count, reference_count, joined_count, started_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		string(rep.Entity),
		rep.SignalsFile,
		rep.ReferenceFile,
		rep.JoinKeys,
		rep.ReadingCount,
		rep.ReferenceCount,
		rep.JoinedCount,
		run.StartedAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := s.insertMetric(ctx, tx, run.ID, "agreement", rep.Agreement); err != nil {
		return err
	}
	if rep.CoverageStart != nil {
		if err := s.insertMetric(ctx, tx, run.ID, "coverage_start", *rep.CoverageStart); err != nil {
			return err
		}
	}
	if rep.CoverageEnd != nil {
		if err := s.insertMetric(ctx, tx, run.ID, "coverage_end", *rep.CoverageEnd); err != nil {
			return err
		}
	}
	for _, room := range rep.Rooms {
		if err := s.insertMetric(ctx, tx, run.ID, "room:"+room.Room, room.Rate()); err != nil {
			return err
		}
	}

	for _, m := range rep.Mismatches {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO mismatches (run_id, tag_id, time, predicted, reference)
			VALUES (?, ?, ?, ?, ?)`,
			run.ID, m.TagID, m.Time.UTC().Format(time.RFC3339), m.Predicted, m.Reference,
		)
		if err != nil {
			return fmt.Errorf("failed to insert mismatch: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) insertMetric(ctx context.Context, tx *sql.Tx, runID, name string, frac agreement.Fraction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO metrics (run_id, name, numerator, denominator, value)
		VALUES (?, ?, ?, ?, ?)`,
		runID, name, frac.Num, frac.Den, frac.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert metric %q: %w", name, err)
	}
	return nil
}

// MetricValue reads one metric of one run back, mainly for tests and
// ad-hoc inspection.
func (s *Store) MetricValue(ctx context.Context, runID, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM metrics WHERE run_id = ? AND name = ?`, runID, name,
	).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("failed to read metric %q: %w", name, err)
	}
	return value, nil
}

// CountMismatches returns the number of stored mismatch rows for a run.
func (s *Store) CountMismatches(ctx context.Context, runID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mismatches WHERE run_id = ?`, runID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count mismatches: %w", err)
	}
	return n, nil
}
