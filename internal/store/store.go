// Package store keeps a SQLite history of pipeline runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"outlierx/internal/models"
	"outlierx/internal/validator"
)

// ErrRunNotFound is returned by GetRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	error TEXT,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	total_records INTEGER NOT NULL,
	valid_records INTEGER NOT NULL,
	invalid_records INTEGER NOT NULL,
	warnings INTEGER NOT NULL,
	duplicates INTEGER NOT NULL,
	normalization_failures INTEGER NOT NULL,
	sample_cap INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_field_errors (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	field TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY (run_id, field)
);
CREATE TABLE IF NOT EXISTS run_error_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	row_index INTEGER NOT NULL,
	field TEXT NOT NULL,
	rule TEXT NOT NULL,
	value TEXT,
	message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

const (
	sampleError   = "error"
	sampleWarning = "warning"
)

// Run is one persisted pipeline run.
type Run struct {
	StartedAt             time.Time
	FinishedAt            time.Time
	ID                    string
	Status                string
	Error                 string
	Report                validator.BatchReport
	Duplicates            int
	NormalizationFailures int
	// WarningCount is set by ListRuns and GetRun; Report.Warnings only by GetRun.
	WarningCount int
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to apply store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes a run with its per-field counts, error samples and warnings
// in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	r := run.Report

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		id, status, error, started_at, finished_at, total_records, valid_records,
		invalid_records, warnings, duplicates, normalization_failures, sample_cap
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Status, run.Error, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		r.TotalRecords, r.ValidRecords, r.InvalidRecords, len(r.Warnings),
		run.Duplicates, run.NormalizationFailures, r.SampleCap,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for i, fc := range r.ErrorsByField {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_field_errors (run_id, position, field, count) VALUES (?, ?, ?, ?)`,
			run.ID, i, fc.Field, fc.Count,
		); err != nil {
			return fmt.Errorf("failed to insert field count: %w", err)
		}
	}

	if err := insertSamples(ctx, tx, run.ID, sampleError, r.ErrorSamples); err != nil {
		return err
	}

	if err := insertSamples(ctx, tx, run.ID, sampleWarning, r.Warnings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}

	return nil
}

func insertSamples(ctx context.Context, tx *sql.Tx, runID, kind string, vs []validator.Violation) error {
	for _, v := range vs {
		value, err := json.Marshal(v.Value)
		if err != nil {
			value = []byte(fmt.Sprintf("%q", fmt.Sprint(v.Value)))
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO run_error_samples
			(run_id, kind, row_index, field, rule, value, message) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, kind, v.Row, v.Field, string(v.Rule), string(value), v.Message,
		); err != nil {
			return fmt.Errorf("failed to insert %s sample: %w", kind, err)
		}
	}

	return nil
}

// ListRuns returns the most recent runs first, without samples. A limit of
// zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, status, error, started_at, finished_at, total_records, valid_records,
		invalid_records, warnings, duplicates, normalization_failures, sample_cap
		FROM runs ORDER BY started_at DESC, id`

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"

		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// GetRun loads a run with its field counts and samples.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, status, error, started_at, finished_at, total_records,
		valid_records, invalid_records, warnings, duplicates, normalization_failures, sample_cap
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	if err != nil {
		return Run{}, err
	}

	if err := s.loadFieldCounts(ctx, &run); err != nil {
		return Run{}, err
	}

	if err := s.loadSamples(ctx, &run); err != nil {
		return Run{}, err
	}

	return run, nil
}

func (s *Store) loadFieldCounts(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, count FROM run_field_errors WHERE run_id = ? ORDER BY position`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load field counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fc validator.FieldCount
		if err := rows.Scan(&fc.Field, &fc.Count); err != nil {
			return fmt.Errorf("failed to scan field count: %w", err)
		}

		run.Report.ErrorsByField = append(run.Report.ErrorsByField, fc)
	}

	return rows.Err()
}

func (s *Store) loadSamples(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, row_index, field, rule, value, message
		FROM run_error_samples WHERE run_id = ? ORDER BY id`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind, rule string
			value      sql.NullString
			v          validator.Violation
		)

		if err := rows.Scan(&kind, &v.Row, &v.Field, &rule, &value, &v.Message); err != nil {
			return fmt.Errorf("failed to scan sample: %w", err)
		}

		v.Rule = models.RuleKind(rule)

		if value.Valid {
			_ = json.Unmarshal([]byte(value.String), &v.Value)
		}

		if kind == sampleWarning {
			run.Report.Warnings = append(run.Report.Warnings, v)
		} else {
			run.Report.ErrorSamples = append(run.Report.ErrorSamples, v)
		}
	}

	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run      Run
		errText  sql.NullString
		warnings int
	)

	err := sc.Scan(
		&run.ID, &run.Status, &errText, &run.StartedAt, &run.FinishedAt,
		&run.Report.TotalRecords, &run.Report.ValidRecords, &run.Report.InvalidRecords,
		&warnings, &run.Duplicates, &run.NormalizationFailures, &run.Report.SampleCap,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}

	if err != nil {
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Error = errText.String
	run.WarningCount = warnings

	return run, nil
}
