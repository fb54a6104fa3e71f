// Package attendance implements single-day attendance evaluation.
// It uses the generic interval primitives to compare an employee's punches
// against their expected schedule and classify the differences as incidents.
package attendance

import (
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// PUNCHES
// =============================================================================

type PunchType string

const (
	PunchIn  PunchType = "IN"
	PunchOut PunchType = "OUT"
)

func (t PunchType) Valid() bool { return t == PunchIn || t == PunchOut }

// Punch is one clock-in or clock-out event. IsDuplicate and DuplicateOfID are
// only ever set on the evaluator's working copies.
type Punch struct {
	ID   generic.PunchID
	At   time.Time
	Type PunchType

	IsDuplicate   bool
	DuplicateOfID generic.PunchID
}

// =============================================================================
// SCHEDULES
// =============================================================================

type BlockType string

const (
	BlockWork  BlockType = "WORK"
	BlockClass BlockType = "CLASS"
	BlockBreak BlockType = "BREAK"
	BlockGap   BlockType = "GAP"
)

// ScheduleBlock is a recurring weekly time slot. Only blocks that require
// presence contribute to the expected schedule.
type ScheduleBlock struct {
	Weekday          int // ISO: 1=Monday .. 7=Sunday
	Start            generic.TimeOfDay
	End              generic.TimeOfDay
	RequiresPresence bool
	BlockType        BlockType
	Label            string
}

type ScheduleTemplate struct {
	ID        int64
	Name      string
	ValidFrom generic.Date
	Blocks    []ScheduleBlock
}

// ScheduleAssignment gives an employee a template from StartsOn until EndsOn
// (inclusive). A nil EndsOn means open-ended.
type ScheduleAssignment struct {
	ID         int64
	EmployeeID generic.EmployeeID
	TemplateID int64
	Template   ScheduleTemplate
	StartsOn   generic.Date
	EndsOn     *generic.Date
}

// Covers reports whether the assignment is active on the date.
func (a ScheduleAssignment) Covers(date generic.Date) bool {
	if date.Before(a.StartsOn) {
		return false
	}
	if a.EndsOn != nil && date.After(*a.EndsOn) {
		return false
	}
	return true
}

// =============================================================================
// EXCEPTIONS
// =============================================================================

type ExceptionType string

const (
	ExceptionPermission ExceptionType = "PERMISSION"
	ExceptionAbsence    ExceptionType = "ABSENCE"
	ExceptionHoliday    ExceptionType = "HOLIDAY"
)

// ScheduleException overrides the schedule for one employee on one date.
// Both Start and End unset means the exception covers the whole day.
type ScheduleException struct {
	ID         int64
	EmployeeID generic.EmployeeID
	Date       generic.Date
	Type       ExceptionType
	Start      *generic.TimeOfDay
	End        *generic.TimeOfDay
	Reason     string
	CreatedAt  time.Time
}

func (e ScheduleException) IsFullDay() bool { return e.Start == nil && e.End == nil }

// VoidsDay reports whether the exception removes every expected block.
func (e ScheduleException) VoidsDay() bool {
	return e.IsFullDay() && (e.Type == ExceptionAbsence || e.Type == ExceptionHoliday)
}

// PermissionRange returns the sub-range a timed permission excludes from
// required coverage.
func (e ScheduleException) PermissionRange(date generic.Date) (generic.TimeRange, bool) {
	if e.Type != ExceptionPermission || e.Start == nil || e.End == nil {
		return generic.TimeRange{}, false
	}
	return generic.NewTimeRange(
		generic.CombineDateAndTimeLocal(date, *e.Start),
		generic.CombineDateAndTimeLocal(date, *e.End),
	)
}

// =============================================================================
// RULES & CONFIG
// =============================================================================

const (
	DefaultLateGraceMinutes             = 5
	DefaultEarlyLeaveGraceMinutes       = 5
	DefaultMinGapMinutesToAllowCheckout = 20

	DefaultDuplicateWindowMinutes = 2
	DefaultMissingPairGapMinutes  = 30
)

// AttendanceRule holds the process-wide thresholds.
type AttendanceRule struct {
	LateGraceMinutes             int
	EarlyLeaveGraceMinutes       int
	MinGapMinutesToAllowCheckout int
}

func DefaultAttendanceRule() AttendanceRule {
	return AttendanceRule{
		LateGraceMinutes:             DefaultLateGraceMinutes,
		EarlyLeaveGraceMinutes:       DefaultEarlyLeaveGraceMinutes,
		MinGapMinutesToAllowCheckout: DefaultMinGapMinutesToAllowCheckout,
	}
}

// EvalConfig holds the per-call tuning knobs.
type EvalConfig struct {
	DuplicateWindowMinutes int
	MissingPairGapMinutes  int
}

func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		DuplicateWindowMinutes: DefaultDuplicateWindowMinutes,
		MissingPairGapMinutes:  DefaultMissingPairGapMinutes,
	}
}
