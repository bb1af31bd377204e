// Package history records deployment runs in a local SQLite database.
// Recording is best-effort: a store failure is reported as a warning and
// never fails a deployment.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Run Types
// =============================================================================

// Outcome is the recorded result of a run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Run is one recorded driver invocation.
type Run struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	Host            string
	Outcome         Outcome
	ServicesTotal   int
	ServicesRunning int
	Error           string
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore persists runs in SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the history database and runs
// migrations. The parent directory is created when missing; the store opens
// before the deployment's own directory preparation has run.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dsn); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStoreError("NewSQLiteStore", "", "failed to create database directory", ErrConnectionFailed)
		}
	}

	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Run Operations
// =============================================================================

// runRow is the database representation of a Run.
type runRow struct {
	ID              string `db:"id"`
	StartedAt       string `db:"started_at"`
	FinishedAt      string `db:"finished_at"`
	Host            string `db:"host"`
	Outcome         string `db:"outcome"`
	ServicesTotal   int    `db:"services_total"`
	ServicesRunning int    `db:"services_running"`
	Error           string `db:"error"`
}

// RecordRun inserts a run.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) error {
	row := runRow{
		ID:              run.ID,
		StartedAt:       run.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:      run.FinishedAt.UTC().Format(time.RFC3339),
		Host:            run.Host,
		Outcome:         string(run.Outcome),
		ServicesTotal:   run.ServicesTotal,
		ServicesRunning: run.ServicesRunning,
		Error:           run.Error,
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, host, outcome, services_total, services_running, error)
		VALUES (:id, :started_at, :finished_at, :host, :outcome, :services_total, :services_running, :error)
	`, row)
	if err != nil {
		return NewStoreError("RecordRun", run.ID, err.Error(), err)
	}
	return nil
}

// ListRecent returns the most recent runs, newest first.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, started_at, finished_at, host, outcome, services_total, services_running, error
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, NewStoreError("ListRecent", "", err.Error(), err)
	}

	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.toRun())
	}
	return runs, nil
}

// GetRun returns a single run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, started_at, finished_at, host, outcome, services_total, services_running, error
		FROM runs WHERE id = ?
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetRun", id, "run not found", ErrNotFound)
		}
		return nil, NewStoreError("GetRun", id, err.Error(), err)
	}

	run := row.toRun()
	return &run, nil
}

func (r runRow) toRun() Run {
	startedAt, _ := time.Parse(time.RFC3339, r.StartedAt)
	finishedAt, _ := time.Parse(time.RFC3339, r.FinishedAt)
	return Run{
		ID:              r.ID,
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
		Host:            r.Host,
		Outcome:         Outcome(r.Outcome),
		ServicesTotal:   r.ServicesTotal,
		ServicesRunning: r.ServicesRunning,
		Error:           r.Error,
	}
}
