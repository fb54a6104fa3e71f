/*
Package sqlite provides a SQLite-backed implementation of the attendance providers.

PURPOSE:
  Implements every capability the evaluator reads from (rules, schedules,
  exceptions, punches, active employees) and the incident sink it writes to,
  plus the reporting queries and bookkeeping the HTTP API needs.

INTERFACES IMPLEMENTED:
  attendance.RuleProvider:      Latest rule row, defaults for unset columns
  attendance.ScheduleProvider:  Assignments covering a date, blocks loaded
  attendance.ExceptionProvider: Exceptions for a date, creation order
  attendance.PunchProvider:     Punches in an instant range
  attendance.IncidentSink:      Transactional delete-then-insert
  attendance.EmployeeDirectory: Active employees

KEY TABLES:
  employees:             Employee records
  schedule_templates:    Named weekly templates
  schedule_blocks:       Weekly slots of a template
  schedule_assignments:  Employee-to-template links with validity dates
  schedule_exceptions:   Date-specific permissions, absences, holidays
  attendance_punches:    Raw IN/OUT events
  attendance_rules:      Threshold history, latest row wins
  attendance_incidents:  Evaluation output, replaced per employee-day
  evaluation_runs:       Scheduled daily evaluation bookkeeping

STORAGE FORMATS:
  Dates are YYYY-MM-DD, wall-clock times HH:MM:SS, instants fixed-width UTC
  (2006-01-02T15:04:05.000Z) so string comparison matches time order.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single pooled connection, so
  ":memory:" databases are shared by every query and writes never hit
  SQLITE_BUSY.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  eval := attendance.NewStoreEvaluator(store)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - attendance/providers.go: Interface definitions
  - attendance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// Store implements attendance.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ attendance.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

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
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schedule_templates (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schedule_blocks (
		id INTEGER PRIMARY KEY,
		template_id INTEGER NOT NULL REFERENCES schedule_templates(id) ON DELETE CASCADE,
		weekday INTEGER NOT NULL CHECK (weekday BETWEEN 1 AND 7),
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		block_type TEXT NOT NULL DEFAULT 'WORK',
		requires_presence INTEGER NOT NULL DEFAULT 1,
		label TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_blocks_template
		ON schedule_blocks(template_id, weekday);

	CREATE TABLE IF NOT EXISTS schedule_assignments (
		id INTEGER PRIMARY KEY,
		employee_id INTEGER NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		template_id INTEGER NOT NULL REFERENCES schedule_templates(id),
		starts_on TEXT NOT NULL,
		ends_on TEXT,
		created_at TEXT NOT NULL
	);

	-- Active assignment lookups (hot path)
	CREATE INDEX IF NOT EXISTS idx_assignments_employee_active
		ON schedule_assignments(employee_id, starts_on, ends_on);

	CREATE TABLE IF NOT EXISTS schedule_exceptions (
		id INTEGER PRIMARY KEY,
		employee_id INTEGER NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('PERMISSION', 'ABSENCE', 'HOLIDAY')),
		start_time TEXT,
		end_time TEXT,
		reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_exceptions_employee_date
		ON schedule_exceptions(employee_id, date);

	CREATE TABLE IF NOT EXISTS attendance_punches (
		id INTEGER PRIMARY KEY,
		employee_id INTEGER NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		punched_at TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('IN', 'OUT')),
		source TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_punches_employee_time
		ON attendance_punches(employee_id, punched_at);

	CREATE TABLE IF NOT EXISTS attendance_rules (
		id INTEGER PRIMARY KEY,
		late_grace_minutes INTEGER,
		early_leave_grace_minutes INTEGER,
		min_gap_minutes_to_allow_checkout INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attendance_incidents (
		id TEXT PRIMARY KEY,
		employee_id INTEGER NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		incident TEXT NOT NULL,
		expected_start TEXT,
		expected_end TEXT,
		actual_time TEXT,
		details_json TEXT NOT NULL,
		seq INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_incidents_employee_date
		ON attendance_incidents(employee_id, date);
	CREATE INDEX IF NOT EXISTS idx_incidents_date_kind
		ON attendance_incidents(date, incident);

	CREATE TABLE IF NOT EXISTS evaluation_runs (
		id TEXT PRIMARY KEY,
		run_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		employees INTEGER NOT NULL DEFAULT 0,
		evaluations INTEGER NOT NULL DEFAULT 0,
		saved INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_evaluation_runs_date
		ON evaluation_runs(run_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"attendance_incidents", "attendance_punches", "schedule_exceptions",
		"schedule_assignments", "schedule_blocks", "schedule_templates",
		"attendance_rules", "evaluation_runs", "employees",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const instantLayout = "2006-01-02T15:04:05.000Z07:00"

func formatInstant(t time.Time) string {
	return t.UTC().Format(instantLayout)
}

func parseInstant(s string) (time.Time, error) {
	t, err := time.Parse(instantLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored instant %q: %w", s, err)
	}
	return t, nil
}

func formatNullInstant(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatInstant(*t), Valid: true}
}

func parseNullInstant(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseInstant(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nowString() string {
	return formatInstant(time.Now())
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTimeOfDay(t *generic.TimeOfDay) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}

func parseNullTimeOfDay(ns sql.NullString) (*generic.TimeOfDay, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := generic.ParseTimeOfDay(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
