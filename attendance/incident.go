package attendance

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// INCIDENT KINDS - Closed enumeration
// =============================================================================

type IncidentKind string

const (
	KindAbsent                    IncidentKind = "ABSENT"
	KindUnscheduledWork           IncidentKind = "UNSCHEDULED_WORK"
	KindDuplicatePunches          IncidentKind = "DUPLICATE_PUNCHES"
	KindOutWithoutIn              IncidentKind = "OUT_WITHOUT_IN"
	KindInWithoutOut              IncidentKind = "IN_WITHOUT_OUT"
	KindMissingOutBeforeNextIn    IncidentKind = "MISSING_OUT_BEFORE_NEXT_IN"
	KindLateArrival               IncidentKind = "LATE_ARRIVAL"
	KindMissingIn                 IncidentKind = "MISSING_IN"
	KindEarlyLeave                IncidentKind = "EARLY_LEAVE"
	KindMissingOut                IncidentKind = "MISSING_OUT"
	KindAbsentDuringRequiredBlock IncidentKind = "ABSENT_DURING_REQUIRED_BLOCK"
)

// AllKinds lists every kind in classification order.
func AllKinds() []IncidentKind {
	return []IncidentKind{
		KindAbsent,
		KindUnscheduledWork,
		KindDuplicatePunches,
		KindOutWithoutIn,
		KindInWithoutOut,
		KindMissingOutBeforeNextIn,
		KindLateArrival,
		KindMissingIn,
		KindEarlyLeave,
		KindMissingOut,
		KindAbsentDuringRequiredBlock,
	}
}

func (k IncidentKind) Valid() bool {
	switch k {
	case KindAbsent, KindUnscheduledWork, KindDuplicatePunches, KindOutWithoutIn,
		KindInWithoutOut, KindMissingOutBeforeNextIn, KindLateArrival, KindMissingIn,
		KindEarlyLeave, KindMissingOut, KindAbsentDuringRequiredBlock:
		return true
	default:
		return false
	}
}

// =============================================================================
// DETAILS - One fixed payload per kind
// =============================================================================

// Details is the kind-specific payload of an incident. The set of
// implementations is closed; each reports the single kind it belongs to.
type Details interface {
	Kind() IncidentKind
	sealed()
}

type AbsentDetails struct {
	Note string `json:"note"`
}

// ExceptionEvidence is the part of a schedule exception cited by an incident.
type ExceptionEvidence struct {
	Type      ExceptionType `json:"type"`
	StartTime *string       `json:"startTime"`
	EndTime   *string       `json:"endTime"`
}

// UnscheduledWorkDetails covers both flavours of unscheduled work: punches
// with no required blocks, and punches on a declared full-day absence or
// holiday (Exceptions set).
type UnscheduledWorkDetails struct {
	Note              string              `json:"note"`
	PunchCount        int                 `json:"punchCount,omitempty"`
	DuplicatePunchIDs []generic.PunchID   `json:"duplicatePunchIds,omitempty"`
	Exceptions        []ExceptionEvidence `json:"exceptions,omitempty"`
}

type DuplicatePunchesDetails struct {
	DuplicatePunchIDs      []generic.PunchID `json:"duplicatePunchIds"`
	DuplicateWindowMinutes int               `json:"duplicateWindowMinutes"`
}

type OutWithoutInDetails struct {
	Times []time.Time `json:"times"`
}

type InWithoutOutDetails struct {
	Times []time.Time `json:"times"`
}

type MissingOutBeforeNextInDetails struct {
	Times                 []time.Time `json:"times"`
	MissingPairGapMinutes int         `json:"missingPairGapMinutes"`
}

type LateArrivalDetails struct {
	LateMinutes      int `json:"lateMinutes"`
	LateGraceMinutes int `json:"lateGraceMinutes"`
}

type MissingInDetails struct {
	Note string `json:"note"`
}

type EarlyLeaveDetails struct {
	EarlyMinutes           int `json:"earlyMinutes"`
	EarlyLeaveGraceMinutes int `json:"earlyLeaveGraceMinutes"`
}

type MissingOutDetails struct {
	Note string `json:"note"`
}

type AbsentDuringRequiredBlockDetails struct {
	Note       string    `json:"note"`
	BlockStart time.Time `json:"blockStart"`
	BlockEnd   time.Time `json:"blockEnd"`
}

func (AbsentDetails) Kind() IncidentKind                    { return KindAbsent }
func (UnscheduledWorkDetails) Kind() IncidentKind           { return KindUnscheduledWork }
func (DuplicatePunchesDetails) Kind() IncidentKind          { return KindDuplicatePunches }
func (OutWithoutInDetails) Kind() IncidentKind              { return KindOutWithoutIn }
func (InWithoutOutDetails) Kind() IncidentKind              { return KindInWithoutOut }
func (MissingOutBeforeNextInDetails) Kind() IncidentKind    { return KindMissingOutBeforeNextIn }
func (LateArrivalDetails) Kind() IncidentKind               { return KindLateArrival }
func (MissingInDetails) Kind() IncidentKind                 { return KindMissingIn }
func (EarlyLeaveDetails) Kind() IncidentKind                { return KindEarlyLeave }
func (MissingOutDetails) Kind() IncidentKind                { return KindMissingOut }
func (AbsentDuringRequiredBlockDetails) Kind() IncidentKind { return KindAbsentDuringRequiredBlock }

func (AbsentDetails) sealed()                    {}
func (UnscheduledWorkDetails) sealed()           {}
func (DuplicatePunchesDetails) sealed()          {}
func (OutWithoutInDetails) sealed()              {}
func (InWithoutOutDetails) sealed()              {}
func (MissingOutBeforeNextInDetails) sealed()    {}
func (LateArrivalDetails) sealed()               {}
func (MissingInDetails) sealed()                 {}
func (EarlyLeaveDetails) sealed()                {}
func (MissingOutDetails) sealed()                {}
func (AbsentDuringRequiredBlockDetails) sealed() {}

// =============================================================================
// SNAPSHOT - Audit annotation attached to every incident
// =============================================================================

type SessionSnapshot struct {
	InAt       time.Time  `json:"inAt"`
	OutAt      *time.Time `json:"outAt,omitempty"`
	IsComplete bool       `json:"isComplete"`
}

type RangeSnapshot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Snapshot records what the evaluator saw. It is for audit and
// reproducibility only; nothing reads it back for control flow.
type Snapshot struct {
	EmployeeID     generic.EmployeeID `json:"employeeId"`
	Date           string             `json:"date"`
	Punches        int                `json:"punches"`
	UsablePunches  int                `json:"usablePunches"`
	Sessions       []SessionSnapshot  `json:"sessions"`
	ExpectedBlocks []RangeSnapshot    `json:"expectedBlocks"`
}

func newSnapshot(employeeID generic.EmployeeID, date generic.Date, punches, usable int, sessions []Session, expected []generic.TimeRange) Snapshot {
	snap := Snapshot{
		EmployeeID:     employeeID,
		Date:           date.String(),
		Punches:        punches,
		UsablePunches:  usable,
		Sessions:       make([]SessionSnapshot, 0, len(sessions)),
		ExpectedBlocks: make([]RangeSnapshot, 0, len(expected)),
	}
	for _, s := range sessions {
		snap.Sessions = append(snap.Sessions, SessionSnapshot{InAt: s.InAt, OutAt: s.OutAt, IsComplete: s.IsComplete})
	}
	for _, b := range expected {
		snap.ExpectedBlocks = append(snap.ExpectedBlocks, RangeSnapshot{Start: b.Start, End: b.End})
	}
	return snap
}

// =============================================================================
// INCIDENT
// =============================================================================

// Incident is one classified deviation for an employee-day.
type Incident struct {
	Kind          IncidentKind
	ExpectedStart *time.Time
	ExpectedEnd   *time.Time
	ActualTime    *time.Time
	Details       Details
	Meta          Snapshot
}

func newIncident(d Details) Incident {
	return Incident{Kind: d.Kind(), Details: d}
}

func (i Incident) withExpected(r generic.TimeRange) Incident {
	start, end := r.Start, r.End
	i.ExpectedStart = &start
	i.ExpectedEnd = &end
	return i
}

// withActual stores the actual instant in UTC, the way it is persisted.
func (i Incident) withActual(t time.Time) Incident {
	utc := t.UTC()
	i.ActualTime = &utc
	return i
}

// DetailsJSON renders the kind payload with the snapshot merged in under "meta".
func (i Incident) DetailsJSON() ([]byte, error) {
	// Raw values keep numbers byte-exact; ids above 2^53 survive.
	fields := map[string]json.RawMessage{}
	if i.Details != nil {
		raw, err := json.Marshal(i.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s details: %w", i.Kind, err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("failed to flatten %s details: %w", i.Kind, err)
		}
	}
	meta, err := json.Marshal(i.Meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s meta: %w", i.Kind, err)
	}
	fields["meta"] = meta
	return json.Marshal(fields)
}
