/*
providers.go - Capability interfaces the evaluator reads from and writes to

PURPOSE:
  The evaluator has no hidden dependencies. Everything it needs is passed in
  as one of these small interfaces, so fixtures (attendance/store.Memory)
  and the SQLite store (store/sqlite) are interchangeable.

KEY INTERFACES:
  RuleProvider:      Active attendance thresholds
  ScheduleProvider:  Assignments covering a date, templates loaded
  ExceptionProvider: Date-specific overrides, in creation order
  PunchProvider:     Raw punches inside an instant range
  IncidentSink:      All-or-nothing replacement of a day's incidents
  EmployeeDirectory: Active employees for range evaluations

CONTRACTS:
  Providers return fresh data on every call. There is no caching layer;
  every evaluation re-reads schedule, exceptions and punches.

  ReplaceIncidents must be atomic: after it returns, the stored incidents
  for (employee, date) are either all the old ones (on error) or exactly the
  new ones.

SEE ALSO:
  - evaluator.go: Consumer of these interfaces
  - store/memory.go: In-memory implementation for tests
  - ../store/sqlite/sqlite.go: Production implementation
*/
package attendance

import (
	"context"

	"github.com/warp/attendance-engine/generic"
)

type RuleProvider interface {
	// ActiveRule returns the thresholds in effect. Unset values fall back to
	// the defaults (5 / 5 / 20).
	ActiveRule(ctx context.Context) (AttendanceRule, error)
}

type ScheduleProvider interface {
	// AssignmentsFor returns every assignment of the employee covering the
	// date, with Template.Blocks populated.
	AssignmentsFor(ctx context.Context, employeeID generic.EmployeeID, date generic.Date) ([]ScheduleAssignment, error)
}

type ExceptionProvider interface {
	// ExceptionsFor returns the employee's exceptions on the date ordered by creation.
	ExceptionsFor(ctx context.Context, employeeID generic.EmployeeID, date generic.Date) ([]ScheduleException, error)
}

type PunchProvider interface {
	// PunchesBetween returns punches with At in [r.Start, r.End) ordered by instant.
	PunchesBetween(ctx context.Context, employeeID generic.EmployeeID, r generic.TimeRange) ([]Punch, error)
}

type IncidentSink interface {
	// ReplaceIncidents atomically swaps the stored incidents for (employee, date)
	// and returns how many were saved.
	ReplaceIncidents(ctx context.Context, employeeID generic.EmployeeID, date generic.Date, incidents []Incident) (int, error)
}

type EmployeeDirectory interface {
	ActiveEmployeeIDs(ctx context.Context) ([]generic.EmployeeID, error)
}

// Providers bundles the read side of the evaluator.
type Providers struct {
	Rules      RuleProvider
	Schedules  ScheduleProvider
	Exceptions ExceptionProvider
	Punches    PunchProvider
}

// Store is satisfied by anything that can serve every provider and the sink.
type Store interface {
	RuleProvider
	ScheduleProvider
	ExceptionProvider
	PunchProvider
	IncidentSink
	EmployeeDirectory
}

// ProvidersFrom wires every read capability to a single store.
func ProvidersFrom(s Store) Providers {
	return Providers{Rules: s, Schedules: s, Exceptions: s, Punches: s}
}
