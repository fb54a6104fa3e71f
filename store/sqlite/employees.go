package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// Employee represents an employee record.
type Employee struct {
	ID        generic.EmployeeID
	FirstName string
	LastName  string
	Email     string
	IsActive  bool
	CreatedAt time.Time
}

// Name is the display name.
func (e Employee) Name() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// SaveEmployee inserts the employee, or updates it when ID is set and exists.
// It returns the employee's id.
func (s *Store) SaveEmployee(ctx context.Context, emp Employee) (generic.EmployeeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, first_name, last_name, email, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			is_active = excluded.is_active
	`

	var id any
	if emp.ID > 0 {
		id = int64(emp.ID)
	}

	res, err := s.db.ExecContext(ctx, query,
		id, emp.FirstName, emp.LastName, nullString(emp.Email), boolInt(emp.IsActive), nowString(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save employee: %w", err)
	}
	if emp.ID > 0 {
		return emp.ID, nil
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read employee id: %w", err)
	}
	return generic.EmployeeID(newID), nil
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, email, is_active, created_at FROM employees WHERE id = ?",
		int64(id),
	)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns all employees.
func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, first_name, last_name, email, is_active, created_at FROM employees ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// ActiveEmployeeIDs implements attendance.EmployeeDirectory.
func (s *Store) ActiveEmployeeIDs(ctx context.Context) ([]generic.EmployeeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM employees WHERE is_active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var ids []generic.EmployeeID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, generic.EmployeeID(id))
	}
	return ids, rows.Err()
}

// employeeExists must be called with the lock held.
func (s *Store) employeeExists(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id generic.EmployeeID) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM employees WHERE id = ?", int64(id)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	var (
		emp       Employee
		id        int64
		email     sql.NullString
		active    int
		createdAt string
	)
	if err := row.Scan(&id, &emp.FirstName, &emp.LastName, &email, &active, &createdAt); err != nil {
		return emp, err
	}
	emp.ID = generic.EmployeeID(id)
	emp.Email = email.String
	emp.IsActive = active != 0
	emp.CreatedAt, _ = parseInstant(createdAt)
	return emp, nil
}
