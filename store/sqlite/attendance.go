package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// PUNCHES
// =============================================================================

// SavePunch records a raw punch and returns its id.
func (s *Store) SavePunch(ctx context.Context, employeeID generic.EmployeeID, at time.Time, typ attendance.PunchType, source string) (generic.PunchID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_punches (employee_id, punched_at, type, source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, int64(employeeID), formatInstant(at), string(typ), nullString(source), nowString())
	if err != nil {
		if isForeignKeyError(err) {
			return 0, generic.ErrEmployeeNotFound
		}
		return 0, fmt.Errorf("failed to save punch: %w", err)
	}
	id, err := res.LastInsertId()
	return generic.PunchID(id), err
}

// PunchesBetween implements attendance.PunchProvider.
func (s *Store) PunchesBetween(ctx context.Context, employeeID generic.EmployeeID, r generic.TimeRange) ([]attendance.Punch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, punched_at, type
		FROM attendance_punches
		WHERE employee_id = ? AND punched_at >= ? AND punched_at < ?
		ORDER BY punched_at, id
	`, int64(employeeID), formatInstant(r.Start), formatInstant(r.End))
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var punches []attendance.Punch
	for rows.Next() {
		var (
			id        int64
			punchedAt string
			typ       string
		)
		if err := rows.Scan(&id, &punchedAt, &typ); err != nil {
			return nil, err
		}
		at, err := parseInstant(punchedAt)
		if err != nil {
			return nil, err
		}
		punches = append(punches, attendance.Punch{ID: generic.PunchID(id), At: at, Type: attendance.PunchType(typ)})
	}
	return punches, rows.Err()
}

// =============================================================================
// RULES
// =============================================================================

// ActiveRule implements attendance.RuleProvider. The newest row wins; a
// missing row or NULL column falls back to the defaults.
func (s *Store) ActiveRule(ctx context.Context) (attendance.AttendanceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var late, early, minGap sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT late_grace_minutes, early_leave_grace_minutes, min_gap_minutes_to_allow_checkout
		FROM attendance_rules
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&late, &early, &minGap)
	if err == sql.ErrNoRows {
		return attendance.DefaultAttendanceRule(), nil
	}
	if err != nil {
		return attendance.AttendanceRule{}, fmt.Errorf("failed to load attendance rule: %w", err)
	}

	rule := attendance.DefaultAttendanceRule()
	if late.Valid {
		rule.LateGraceMinutes = int(late.Int64)
	}
	if early.Valid {
		rule.EarlyLeaveGraceMinutes = int(early.Int64)
	}
	if minGap.Valid {
		rule.MinGapMinutesToAllowCheckout = int(minGap.Int64)
	}
	return rule, nil
}

// SaveRule appends a new rule row; it becomes the active rule.
func (s *Store) SaveRule(ctx context.Context, rule attendance.AttendanceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_rules
		(late_grace_minutes, early_leave_grace_minutes, min_gap_minutes_to_allow_checkout, created_at)
		VALUES (?, ?, ?, ?)
	`, rule.LateGraceMinutes, rule.EarlyLeaveGraceMinutes, rule.MinGapMinutesToAllowCheckout, nowString())
	if err != nil {
		return fmt.Errorf("failed to save attendance rule: %w", err)
	}
	return nil
}

// =============================================================================
// INCIDENTS
// =============================================================================

// IncidentRecord is a stored incident.
type IncidentRecord struct {
	ID            string
	EmployeeID    generic.EmployeeID
	Date          string
	Kind          attendance.IncidentKind
	ExpectedStart *time.Time
	ExpectedEnd   *time.Time
	ActualTime    *time.Time
	Details       json.RawMessage
	CreatedAt     time.Time
}

// ReplaceIncidents implements attendance.IncidentSink: the day's incidents
// are deleted and the new ones inserted in a single transaction.
func (s *Store) ReplaceIncidents(ctx context.Context, employeeID generic.EmployeeID, date generic.Date, incidents []attendance.Incident) (int, error) {
	// Details are rendered before the transaction so a bad payload cannot
	// leave the day half written.
	details := make([][]byte, len(incidents))
	for i, inc := range incidents {
		raw, err := inc.DetailsJSON()
		if err != nil {
			return 0, err
		}
		details[i] = raw
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM attendance_incidents WHERE employee_id = ? AND date = ?",
		int64(employeeID), date.String(),
	); err != nil {
		return 0, fmt.Errorf("failed to clear incidents: %w", err)
	}

	createdAt := nowString()
	for i, inc := range incidents {
		if err := insertIncident(ctx, sqlTx, employeeID, date, i, inc, details[i], createdAt); err != nil {
			if isForeignKeyError(err) {
				return 0, generic.ErrEmployeeNotFound
			}
			return 0, err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit incidents: %w", err)
	}
	return len(incidents), nil
}

func insertIncident(ctx context.Context, db execer, employeeID generic.EmployeeID, date generic.Date, seq int, inc attendance.Incident, details []byte, createdAt string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO attendance_incidents
		(id, employee_id, date, incident, expected_start, expected_end, actual_time, details_json, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		int64(employeeID),
		date.String(),
		string(inc.Kind),
		formatNullInstant(inc.ExpectedStart),
		formatNullInstant(inc.ExpectedEnd),
		formatNullInstant(inc.ActualTime),
		string(details),
		seq,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s incident: %w", inc.Kind, err)
	}
	return nil
}

// IncidentFilter selects incidents by date range and, optionally, employee.
type IncidentFilter struct {
	Range      generic.DateRange
	EmployeeID *generic.EmployeeID
}

func (f IncidentFilter) where() (string, []any) {
	clause := "date >= ? AND date <= ?"
	args := []any{f.Range.From.String(), f.Range.To.String()}
	if f.EmployeeID != nil {
		clause += " AND employee_id = ?"
		args = append(args, int64(*f.EmployeeID))
	}
	return clause, args
}

// ListIncidents returns matching incidents ordered by employee, then date,
// then emission order.
func (s *Store) ListIncidents(ctx context.Context, f IncidentFilter) ([]IncidentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := f.where()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, date, incident, expected_start, expected_end, actual_time, details_json, created_at
		FROM attendance_incidents
		WHERE `+where+`
		ORDER BY employee_id, date, created_at, seq
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	var out []IncidentRecord
	for rows.Next() {
		var (
			rec                      IncidentRecord
			empID                    int64
			kind                     string
			expStart, expEnd, actual sql.NullString
			details                  string
			createdAt                string
		)
		if err := rows.Scan(&rec.ID, &empID, &rec.Date, &kind, &expStart, &expEnd, &actual, &details, &createdAt); err != nil {
			return nil, err
		}
		rec.EmployeeID = generic.EmployeeID(empID)
		rec.Kind = attendance.IncidentKind(kind)
		rec.Details = json.RawMessage(details)
		if rec.ExpectedStart, err = parseNullInstant(expStart); err != nil {
			return nil, err
		}
		if rec.ExpectedEnd, err = parseNullInstant(expEnd); err != nil {
			return nil, err
		}
		if rec.ActualTime, err = parseNullInstant(actual); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = parseInstant(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountIncidentsByKind returns how many incidents of each kind match.
func (s *Store) CountIncidentsByKind(ctx context.Context, f IncidentFilter) (map[attendance.IncidentKind]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := f.where()
	rows, err := s.db.QueryContext(ctx,
		"SELECT incident, COUNT(*) FROM attendance_incidents WHERE "+where+" GROUP BY incident", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count incidents: %w", err)
	}
	defer rows.Close()

	counts := make(map[attendance.IncidentKind]int)
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[attendance.IncidentKind(kind)] = count
	}
	return counts, rows.Err()
}

// CountIncidentDays returns the number of distinct dates with any incident.
func (s *Store) CountIncidentDays(ctx context.Context, f IncidentFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := f.where()
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT date) FROM attendance_incidents WHERE "+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count incident days: %w", err)
	}
	return n, nil
}

// EmployeeIncidentCount is one row of the top-employees report.
type EmployeeIncidentCount struct {
	EmployeeID generic.EmployeeID
	Name       string
	Total      int
	ByIncident map[attendance.IncidentKind]int
}

// TopEmployees returns the employees with the most incidents in the range,
// most first, ties broken by employee id.
func (s *Store) TopEmployees(ctx context.Context, dr generic.DateRange, limit int) ([]EmployeeIncidentCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to := dr.From.String(), dr.To.String()
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.employee_id, COALESCE(e.first_name, ''), COALESCE(e.last_name, ''), COUNT(*) AS total
		FROM attendance_incidents i
		LEFT JOIN employees e ON e.id = i.employee_id
		WHERE i.date >= ? AND i.date <= ?
		GROUP BY i.employee_id
		ORDER BY total DESC, i.employee_id
		LIMIT ?
	`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank employees: %w", err)
	}

	var (
		top   []EmployeeIncidentCount
		index = map[generic.EmployeeID]int{}
	)
	for rows.Next() {
		var (
			id          int64
			first, last string
			total       int
		)
		if err := rows.Scan(&id, &first, &last, &total); err != nil {
			rows.Close()
			return nil, err
		}
		emp := Employee{FirstName: first, LastName: last}
		index[generic.EmployeeID(id)] = len(top)
		top = append(top, EmployeeIncidentCount{
			EmployeeID: generic.EmployeeID(id),
			Name:       emp.Name(),
			Total:      total,
			ByIncident: map[attendance.IncidentKind]int{},
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(top) == 0 {
		return top, nil
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT employee_id, incident, COUNT(*)
		FROM attendance_incidents
		WHERE date >= ? AND date <= ?
		GROUP BY employee_id, incident
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to break down incidents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			kind  string
			count int
		)
		if err := rows.Scan(&id, &kind, &count); err != nil {
			return nil, err
		}
		if i, ok := index[generic.EmployeeID(id)]; ok {
			top[i].ByIncident[attendance.IncidentKind(kind)] = count
		}
	}
	return top, rows.Err()
}
