package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// EVALUATION RUNS STORE
// =============================================================================

const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// EvaluationRun records one scheduled evaluation of a whole day.
type EvaluationRun struct {
	ID          string
	RunDate     generic.Date
	Status      string // running, completed, failed
	Employees   int
	Evaluations int
	Saved       int
	Failures    int
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// NewEvaluationRun starts a run record for the date.
func NewEvaluationRun(date generic.Date) EvaluationRun {
	now := time.Now().UTC()
	return EvaluationRun{
		ID:        uuid.NewString(),
		RunDate:   date,
		Status:    RunRunning,
		StartedAt: &now,
		CreatedAt: now,
	}
}

// SaveEvaluationRun inserts the run, or updates the existing run for the same date.
func (s *Store) SaveEvaluationRun(ctx context.Context, r EvaluationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO evaluation_runs (id, run_date, status, employees, evaluations, saved, failures,
			error, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_date) DO UPDATE SET
			status = excluded.status,
			employees = excluded.employees,
			evaluations = excluded.evaluations,
			saved = excluded.saved,
			failures = excluded.failures,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.RunDate.String(), r.Status,
		r.Employees, r.Evaluations, r.Saved, r.Failures, nullString(r.Error),
		formatNullInstant(r.StartedAt), formatNullInstant(r.CompletedAt), formatInstant(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation run: %w", err)
	}
	return nil
}

// ListEvaluationRuns returns the most recent runs first, up to limit.
func (s *Store) ListEvaluationRuns(ctx context.Context, limit int) ([]EvaluationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_date, status, employees, evaluations, saved, failures,
			error, started_at, completed_at, created_at
		FROM evaluation_runs
		ORDER BY run_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluation runs: %w", err)
	}
	defer rows.Close()

	var runs []EvaluationRun
	for rows.Next() {
		var (
			r                      EvaluationRun
			runDate, createdAt     string
			errText                sql.NullString
			startedAt, completedAt sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &runDate, &r.Status, &r.Employees, &r.Evaluations, &r.Saved, &r.Failures,
			&errText, &startedAt, &completedAt, &createdAt,
		); err != nil {
			return nil, err
		}
		if r.RunDate, err = generic.ParseDate(runDate); err != nil {
			return nil, err
		}
		r.Error = errText.String
		r.CreatedAt, _ = parseInstant(createdAt)
		if r.StartedAt, err = parseNullInstant(startedAt); err != nil {
			return nil, err
		}
		if r.CompletedAt, err = parseNullInstant(completedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// IsRunComplete checks whether the date has already been evaluated successfully.
func (s *Store) IsRunComplete(ctx context.Context, date generic.Date) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM evaluation_runs WHERE run_date = ? AND status = ?",
		date.String(), RunCompleted,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
