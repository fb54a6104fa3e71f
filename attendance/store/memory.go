// Package store provides in-memory fixtures for the attendance providers.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements attendance.Store over plain slices. Reads return copies
// so callers can never mutate stored state.
type Memory struct {
	mu          sync.RWMutex
	rule        *attendance.AttendanceRule
	employees   map[generic.EmployeeID]bool // id -> active
	assignments []attendance.ScheduleAssignment
	exceptions  []attendance.ScheduleException
	punches     map[generic.EmployeeID][]attendance.Punch
	incidents   map[dayKey][]attendance.Incident
	nextPunchID generic.PunchID

	// ReplaceErr, when set, makes ReplaceIncidents fail for that employee
	// without touching stored incidents.
	ReplaceErr map[generic.EmployeeID]error
}

type dayKey struct {
	EmployeeID generic.EmployeeID
	Date       generic.Date
}

var _ attendance.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		employees:  make(map[generic.EmployeeID]bool),
		punches:    make(map[generic.EmployeeID][]attendance.Punch),
		incidents:  make(map[dayKey][]attendance.Incident),
		ReplaceErr: make(map[generic.EmployeeID]error),
	}
}

// =============================================================================
// FIXTURE SETUP
// =============================================================================

func (m *Memory) SetRule(r attendance.AttendanceRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rule = &r
}

func (m *Memory) AddEmployee(id generic.EmployeeID, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[id] = active
}

func (m *Memory) AddAssignment(a attendance.ScheduleAssignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[a.EmployeeID]; !ok {
		m.employees[a.EmployeeID] = true
	}
	m.assignments = append(m.assignments, a)
}

func (m *Memory) AddException(e attendance.ScheduleException) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exceptions = append(m.exceptions, e)
}

// AddPunch stores a punch and returns its id. A zero ID is assigned.
func (m *Memory) AddPunch(employeeID generic.EmployeeID, p attendance.Punch) generic.PunchID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		m.nextPunchID++
		p.ID = m.nextPunchID
	} else if p.ID > m.nextPunchID {
		m.nextPunchID = p.ID
	}
	p.IsDuplicate, p.DuplicateOfID = false, 0
	m.punches[employeeID] = append(m.punches[employeeID], p)
	return p.ID
}

// Incidents returns the stored incidents for the employee-day.
func (m *Memory) Incidents(employeeID generic.EmployeeID, date generic.Date) []attendance.Incident {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]attendance.Incident(nil), m.incidents[dayKey{employeeID, date}]...)
}

// =============================================================================
// PROVIDERS
// =============================================================================

func (m *Memory) ActiveRule(_ context.Context) (attendance.AttendanceRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.rule == nil {
		return attendance.DefaultAttendanceRule(), nil
	}
	return *m.rule, nil
}

func (m *Memory) AssignmentsFor(_ context.Context, employeeID generic.EmployeeID, date generic.Date) ([]attendance.ScheduleAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []attendance.ScheduleAssignment
	for _, a := range m.assignments {
		if a.EmployeeID == employeeID && a.Covers(date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) ExceptionsFor(_ context.Context, employeeID generic.EmployeeID, date generic.Date) ([]attendance.ScheduleException, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []attendance.ScheduleException
	for _, e := range m.exceptions {
		if e.EmployeeID == employeeID && e.Date.Equal(date) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) PunchesBetween(_ context.Context, employeeID generic.EmployeeID, r generic.TimeRange) ([]attendance.Punch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []attendance.Punch
	for _, p := range m.punches[employeeID] {
		if r.Contains(p.At) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

func (m *Memory) ActiveEmployeeIDs(_ context.Context) ([]generic.EmployeeID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []generic.EmployeeID
	for id, active := range m.employees {
		if active {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ReplaceIncidents swaps the day's incidents in one step.
func (m *Memory) ReplaceIncidents(_ context.Context, employeeID generic.EmployeeID, date generic.Date, incidents []attendance.Incident) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ReplaceErr[employeeID]; err != nil {
		return 0, err
	}
	k := dayKey{employeeID, date}
	if len(incidents) == 0 {
		delete(m.incidents, k)
		return 0, nil
	}
	m.incidents[k] = append([]attendance.Incident(nil), incidents...)
	return len(incidents), nil
}
