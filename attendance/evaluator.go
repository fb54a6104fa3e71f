/*
evaluator.go - Single employee-day evaluation

PURPOSE:
  Turns one employee's punches for one local day into a list of incidents,
  comparing them against the schedule expected for that day.

PIPELINE:
  1. Resolve expected blocks (assignment, weekday, exceptions)
  2. Normalize punches and mark duplicates
  3. Rebuild sessions from the usable punches
  4. Classify (fixed policy order, snapshot on every incident)
  5. Compute coverage (informational)

  Evaluate is the pure core: no I/O, no logging, no shared state. The
  Evaluator wraps it with provider reads, input validation and, optionally,
  persistence through an IncidentSink.

SEE ALSO:
  - classifier.go: Incident policy
  - session.go: Session state machine
  - schedule.go: Expected-schedule resolver
  - range.go: Multi-day, multi-employee orchestration
*/
package attendance

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// DayInput is everything needed to evaluate one employee-day, already loaded.
type DayInput struct {
	EmployeeID  generic.EmployeeID
	Date        generic.Date
	Punches     []Punch
	Assignments []ScheduleAssignment
	Exceptions  []ScheduleException
}

// Result is the outcome of an evaluation.
type Result struct {
	EmployeeID   generic.EmployeeID
	Date         generic.Date
	Incidents    []Incident
	Expected     ExpectedSchedule
	Punches      []Punch
	Sessions     SessionResult
	DuplicateIDs []generic.PunchID
	Coverage     Coverage
	Rule         AttendanceRule
	Config       EvalConfig
}

// Kinds lists the incident kinds in emission order.
func (r Result) Kinds() []IncidentKind {
	kinds := make([]IncidentKind, len(r.Incidents))
	for i, inc := range r.Incidents {
		kinds[i] = inc.Kind
	}
	return kinds
}

// WithDefaults replaces negative knobs with their defaults. Zero is a valid
// window and is kept.
func (c EvalConfig) WithDefaults() EvalConfig {
	if c.DuplicateWindowMinutes < 0 {
		c.DuplicateWindowMinutes = DefaultDuplicateWindowMinutes
	}
	if c.MissingPairGapMinutes < 0 {
		c.MissingPairGapMinutes = DefaultMissingPairGapMinutes
	}
	return c
}

// =============================================================================
// PURE EVALUATION
// =============================================================================

// Evaluate runs the whole pipeline over in-memory data. Every input maps to a
// defined, possibly empty, incident list.
func Evaluate(in DayInput, rule AttendanceRule, cfg EvalConfig) Result {
	cfg = cfg.WithDefaults()

	expected := ResolveExpected(in.Date, in.Assignments, in.Exceptions)

	punches := NormalizePunches(in.Punches)
	dupIDs := MarkDuplicates(punches, cfg.DuplicateWindowMinutes)
	usable := UsablePunches(punches)

	sessions := ReconstructSessions(usable, SessionParams{
		MinGapMinutesToAllowCheckout: rule.MinGapMinutesToAllowCheckout,
		MissingPairGapMinutes:        cfg.MissingPairGapMinutes,
	})

	incidents := Classify(DayFacts{
		EmployeeID:   in.EmployeeID,
		Date:         in.Date,
		Punches:      punches,
		Usable:       usable,
		DuplicateIDs: dupIDs,
		Sessions:     sessions,
		Expected:     expected,
	}, rule, cfg)

	return Result{
		EmployeeID:   in.EmployeeID,
		Date:         in.Date,
		Incidents:    incidents,
		Expected:     expected,
		Punches:      punches,
		Sessions:     sessions,
		DuplicateIDs: dupIDs,
		Coverage:     ComputeCoverage(expected.Blocks, sessions.CompleteSessions()),
		Rule:         rule,
		Config:       cfg,
	}
}

// =============================================================================
// EVALUATOR - Provider-backed evaluation
// =============================================================================

type Evaluator struct {
	Providers Providers
	Sink      IncidentSink
}

func NewEvaluator(p Providers, sink IncidentSink) *Evaluator {
	return &Evaluator{Providers: p, Sink: sink}
}

// NewStoreEvaluator wires every capability to one store.
func NewStoreEvaluator(s Store) *Evaluator {
	return NewEvaluator(ProvidersFrom(s), s)
}

// Load reads everything the day needs from the providers. Input is validated
// before any provider is touched.
func (e *Evaluator) Load(ctx context.Context, employeeID generic.EmployeeID, dateISO string) (DayInput, AttendanceRule, error) {
	if employeeID <= 0 {
		return DayInput{}, AttendanceRule{}, generic.ErrEmployeeRequired
	}
	date, err := generic.ParseDate(strings.TrimSpace(dateISO))
	if err != nil {
		return DayInput{}, AttendanceRule{}, err
	}

	rule, err := e.Providers.Rules.ActiveRule(ctx)
	if err != nil {
		return DayInput{}, AttendanceRule{}, fmt.Errorf("failed to load attendance rule: %w", err)
	}
	assignments, err := e.Providers.Schedules.AssignmentsFor(ctx, employeeID, date)
	if err != nil {
		return DayInput{}, AttendanceRule{}, fmt.Errorf("failed to load assignments for employee %s: %w", employeeID, err)
	}
	exceptions, err := e.Providers.Exceptions.ExceptionsFor(ctx, employeeID, date)
	if err != nil {
		return DayInput{}, AttendanceRule{}, fmt.Errorf("failed to load exceptions for employee %s: %w", employeeID, err)
	}
	punches, err := e.Providers.Punches.PunchesBetween(ctx, employeeID, generic.DayRangeUTC(date))
	if err != nil {
		return DayInput{}, AttendanceRule{}, fmt.Errorf("failed to load punches for employee %s: %w", employeeID, err)
	}

	return DayInput{
		EmployeeID:  employeeID,
		Date:        date,
		Punches:     punches,
		Assignments: assignments,
		Exceptions:  exceptions,
	}, rule, nil
}

// EvaluateEmployeeDay loads the day and evaluates it without persisting.
func (e *Evaluator) EvaluateEmployeeDay(ctx context.Context, employeeID generic.EmployeeID, dateISO string, cfg EvalConfig) (Result, error) {
	in, rule, err := e.Load(ctx, employeeID, dateISO)
	if err != nil {
		return Result{}, err
	}
	return Evaluate(in, rule, cfg), nil
}

// EvaluateAndPersist evaluates the day and replaces its stored incidents.
// It returns the result and the number of incidents saved.
func (e *Evaluator) EvaluateAndPersist(ctx context.Context, employeeID generic.EmployeeID, dateISO string, cfg EvalConfig) (Result, int, error) {
	if e.Sink == nil {
		return Result{}, 0, fmt.Errorf("no incident sink configured")
	}
	res, err := e.EvaluateEmployeeDay(ctx, employeeID, dateISO, cfg)
	if err != nil {
		return Result{}, 0, err
	}
	saved, err := e.Sink.ReplaceIncidents(ctx, employeeID, res.Date, res.Incidents)
	if err != nil {
		log.Printf("[Evaluator] Failed to persist %s/%s: %v", employeeID, res.Date, err)
		return res, 0, fmt.Errorf("failed to persist incidents: %w", err)
	}
	return res, saved, nil
}
