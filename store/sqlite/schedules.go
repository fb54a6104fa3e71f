package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// SCHEDULE TEMPLATES
// =============================================================================

// SaveTemplate inserts a template with all of its blocks in one transaction
// and returns the new template id.
func (s *Store) SaveTemplate(ctx context.Context, tpl attendance.ScheduleTemplate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx,
		"INSERT INTO schedule_templates (name, valid_from, created_at) VALUES (?, ?, ?)",
		tpl.Name, tpl.ValidFrom.String(), nowString(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read template id: %w", err)
	}

	for _, b := range tpl.Blocks {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO schedule_blocks
			(template_id, weekday, start_time, end_time, block_type, requires_presence, label)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, b.Weekday, b.Start.String(), b.End.String(), string(b.BlockType), boolInt(b.RequiresPresence), nullString(b.Label))
		if err != nil {
			return 0, fmt.Errorf("failed to insert block: %w", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit template: %w", err)
	}
	return id, nil
}

// GetTemplate returns a template with its blocks.
func (s *Store) GetTemplate(ctx context.Context, id int64) (*attendance.ScheduleTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	templates, err := s.loadTemplates(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	tpl, ok := templates[id]
	if !ok {
		return nil, generic.ErrTemplateNotFound
	}
	return &tpl, nil
}

// ListTemplates returns every template with its blocks, ordered by id.
func (s *Store) ListTemplates(ctx context.Context) ([]attendance.ScheduleTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM schedule_templates ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byID, err := s.loadTemplates(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]attendance.ScheduleTemplate, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out, nil
}

// loadTemplates reads templates and their blocks. Callers hold the lock.
// Each query is drained before the next one starts because the pool has a
// single connection.
func (s *Store) loadTemplates(ctx context.Context, ids []int64) (map[int64]attendance.ScheduleTemplate, error) {
	out := make(map[int64]attendance.ScheduleTemplate, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders, args := inClause(ids)

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, valid_from FROM schedule_templates WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	for rows.Next() {
		var (
			tpl       attendance.ScheduleTemplate
			validFrom string
		)
		if err := rows.Scan(&tpl.ID, &tpl.Name, &validFrom); err != nil {
			rows.Close()
			return nil, err
		}
		if tpl.ValidFrom, err = generic.ParseDate(validFrom); err != nil {
			rows.Close()
			return nil, err
		}
		out[tpl.ID] = tpl
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT template_id, weekday, start_time, end_time, block_type, requires_presence, label
		FROM schedule_blocks
		WHERE template_id IN (`+placeholders+`)
		ORDER BY template_id, weekday, start_time, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			templateID       int64
			b                attendance.ScheduleBlock
			start, end       string
			blockType        string
			requiresPresence int
			label            sql.NullString
		)
		if err := rows.Scan(&templateID, &b.Weekday, &start, &end, &blockType, &requiresPresence, &label); err != nil {
			return nil, err
		}
		if b.Start, err = generic.ParseTimeOfDay(start); err != nil {
			return nil, err
		}
		if b.End, err = generic.ParseTimeOfDay(end); err != nil {
			return nil, err
		}
		b.BlockType = attendance.BlockType(blockType)
		b.RequiresPresence = requiresPresence != 0
		b.Label = label.String

		tpl := out[templateID]
		tpl.Blocks = append(tpl.Blocks, b)
		out[templateID] = tpl
	}
	return out, rows.Err()
}

// =============================================================================
// SCHEDULE ASSIGNMENTS
// =============================================================================

// SaveAssignment links an employee to a template and returns the new id.
func (s *Store) SaveAssignment(ctx context.Context, a attendance.ScheduleAssignment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var endsOn sql.NullString
	if a.EndsOn != nil {
		endsOn = sql.NullString{String: a.EndsOn.String(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_assignments (employee_id, template_id, starts_on, ends_on, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, int64(a.EmployeeID), a.TemplateID, a.StartsOn.String(), endsOn, nowString())
	if err != nil {
		if isForeignKeyError(err) {
			return 0, s.missingAssignmentRef(ctx, a)
		}
		return 0, fmt.Errorf("failed to save assignment: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) missingAssignmentRef(ctx context.Context, a attendance.ScheduleAssignment) error {
	if ok, err := s.employeeExists(ctx, s.db, a.EmployeeID); err == nil && !ok {
		return generic.ErrEmployeeNotFound
	}
	return generic.ErrTemplateNotFound
}

// AssignmentsFor implements attendance.ScheduleProvider.
func (s *Store) AssignmentsFor(ctx context.Context, employeeID generic.EmployeeID, date generic.Date) ([]attendance.ScheduleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := date.String()
	return s.queryAssignments(ctx, `
		SELECT id, employee_id, template_id, starts_on, ends_on
		FROM schedule_assignments
		WHERE employee_id = ? AND starts_on <= ? AND (ends_on IS NULL OR ends_on >= ?)
		ORDER BY starts_on DESC, id DESC
	`, int64(employeeID), day, day)
}

// ListAssignments returns every assignment of the employee, newest first.
func (s *Store) ListAssignments(ctx context.Context, employeeID generic.EmployeeID) ([]attendance.ScheduleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAssignments(ctx, `
		SELECT id, employee_id, template_id, starts_on, ends_on
		FROM schedule_assignments
		WHERE employee_id = ?
		ORDER BY starts_on DESC, id DESC
	`, int64(employeeID))
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]attendance.ScheduleAssignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}

	var (
		assignments []attendance.ScheduleAssignment
		templateIDs []int64
		seen        = map[int64]bool{}
	)
	for rows.Next() {
		var (
			a        attendance.ScheduleAssignment
			empID    int64
			startsOn string
			endsOn   sql.NullString
		)
		if err := rows.Scan(&a.ID, &empID, &a.TemplateID, &startsOn, &endsOn); err != nil {
			rows.Close()
			return nil, err
		}
		a.EmployeeID = generic.EmployeeID(empID)
		if a.StartsOn, err = generic.ParseDate(startsOn); err != nil {
			rows.Close()
			return nil, err
		}
		if endsOn.Valid {
			d, err := generic.ParseDate(endsOn.String)
			if err != nil {
				rows.Close()
				return nil, err
			}
			a.EndsOn = &d
		}
		assignments = append(assignments, a)
		if !seen[a.TemplateID] {
			seen[a.TemplateID] = true
			templateIDs = append(templateIDs, a.TemplateID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	templates, err := s.loadTemplates(ctx, templateIDs)
	if err != nil {
		return nil, err
	}
	for i := range assignments {
		assignments[i].Template = templates[assignments[i].TemplateID]
	}
	return assignments, nil
}

// =============================================================================
// SCHEDULE EXCEPTIONS
// =============================================================================

// SaveException records a date-specific override and returns its id.
func (s *Store) SaveException(ctx context.Context, e attendance.ScheduleException) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_exceptions (employee_id, date, type, start_time, end_time, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, int64(e.EmployeeID), e.Date.String(), string(e.Type),
		nullTimeOfDay(e.Start), nullTimeOfDay(e.End), nullString(e.Reason), nowString())
	if err != nil {
		if isForeignKeyError(err) {
			return 0, generic.ErrEmployeeNotFound
		}
		return 0, fmt.Errorf("failed to save exception: %w", err)
	}
	return res.LastInsertId()
}

// ExceptionsFor implements attendance.ExceptionProvider.
func (s *Store) ExceptionsFor(ctx context.Context, employeeID generic.EmployeeID, date generic.Date) ([]attendance.ScheduleException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryExceptions(ctx, `
		SELECT id, employee_id, date, type, start_time, end_time, reason, created_at
		FROM schedule_exceptions
		WHERE employee_id = ? AND date = ?
		ORDER BY created_at, id
	`, int64(employeeID), date.String())
}

// ListExceptions returns the employee's exceptions within [from, to].
func (s *Store) ListExceptions(ctx context.Context, employeeID generic.EmployeeID, dr generic.DateRange) ([]attendance.ScheduleException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryExceptions(ctx, `
		SELECT id, employee_id, date, type, start_time, end_time, reason, created_at
		FROM schedule_exceptions
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date, created_at, id
	`, int64(employeeID), dr.From.String(), dr.To.String())
}

func (s *Store) queryExceptions(ctx context.Context, query string, args ...any) ([]attendance.ScheduleException, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exceptions: %w", err)
	}
	defer rows.Close()

	var out []attendance.ScheduleException
	for rows.Next() {
		var (
			e          attendance.ScheduleException
			empID      int64
			date       string
			typ        string
			start, end sql.NullString
			reason     sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&e.ID, &empID, &date, &typ, &start, &end, &reason, &createdAt); err != nil {
			return nil, err
		}
		e.EmployeeID = generic.EmployeeID(empID)
		e.Type = attendance.ExceptionType(typ)
		e.Reason = reason.String
		if e.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		if e.Start, err = parseNullTimeOfDay(start); err != nil {
			return nil, err
		}
		if e.End, err = parseNullTimeOfDay(end); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = parseInstant(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// inClause builds "?, ?, ?" and its arguments.
func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}
