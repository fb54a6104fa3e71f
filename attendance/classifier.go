package attendance

import (
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// DAY FACTS - Everything the classifier looks at
// =============================================================================

// DayFacts is the fully prepared view of one employee-day: normalized punches
// with duplicate marks, the reconstructed sessions and the expected schedule.
type DayFacts struct {
	EmployeeID   generic.EmployeeID
	Date         generic.Date
	Punches      []Punch
	Usable       []Punch
	DuplicateIDs []generic.PunchID
	Sessions     SessionResult
	Expected     ExpectedSchedule
}

const (
	noteAbsentCollapsed    = "No punches for a day with required schedule blocks. Collapsed to ABSENT."
	noteUnscheduled        = "Punches exist but no required schedule blocks for this date."
	noteUnscheduledOnLeave = "Punches exist on a full-day ABSENCE/HOLIDAY exception day (evidence kept)."
	noteMissingIn          = "No IN punch found for this date."
	noteMissingOut         = "No OUT punch found for this date."
	noteBlockUncovered     = "No session overlap with required block."
)

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Classify applies the incident policy to the day. Rules run in a fixed order
// and every rule that applies contributes; only the no-show collapse to
// ABSENT stops early. Every returned incident carries the day's snapshot.
func Classify(f DayFacts, rule AttendanceRule, cfg EvalConfig) []Incident {
	incidents := classify(f, rule, cfg)

	snap := newSnapshot(f.EmployeeID, f.Date, len(f.Punches), len(f.Usable), f.Sessions.Sessions, f.Expected.Blocks)
	for i := range incidents {
		incidents[i].Meta = snap
	}
	return incidents
}

func classify(f DayFacts, rule AttendanceRule, cfg EvalConfig) []Incident {
	expected := f.Expected.Blocks
	anyPunches := len(f.Punches) > 0
	fullDay := f.Expected.FullDayException

	if len(expected) > 0 && !anyPunches && !fullDay {
		return []Incident{newIncident(AbsentDetails{Note: noteAbsentCollapsed})}
	}

	var out []Incident

	if len(expected) == 0 && anyPunches && !fullDay {
		out = append(out, newIncident(UnscheduledWorkDetails{
			Note:              noteUnscheduled,
			PunchCount:        len(f.Punches),
			DuplicatePunchIDs: f.DuplicateIDs,
		}))
	}

	if len(f.DuplicateIDs) > 0 {
		out = append(out, newIncident(DuplicatePunchesDetails{
			DuplicatePunchIDs:      f.DuplicateIDs,
			DuplicateWindowMinutes: cfg.DuplicateWindowMinutes,
		}))
	}

	s := f.Sessions
	if len(s.OutWithoutInTimes) > 0 {
		out = append(out, newIncident(OutWithoutInDetails{Times: s.OutWithoutInTimes}).
			withActual(s.OutWithoutInTimes[0]))
	}
	if len(s.InWithoutOutTimes) > 0 {
		out = append(out, newIncident(InWithoutOutDetails{Times: s.InWithoutOutTimes}).
			withActual(s.InWithoutOutTimes[0]))
	}
	if len(s.MissingOutBeforeNextInTimes) > 0 {
		out = append(out, newIncident(MissingOutBeforeNextInDetails{
			Times:                 s.MissingOutBeforeNextInTimes,
			MissingPairGapMinutes: cfg.MissingPairGapMinutes,
		}).withActual(s.MissingOutBeforeNextInTimes[0]))
	}

	if len(expected) > 0 {
		out = append(out, classifyAgainstSchedule(f, rule)...)
	}

	if fullDay && anyPunches {
		out = append(out, newIncident(UnscheduledWorkDetails{
			Note:       noteUnscheduledOnLeave,
			Exceptions: exceptionEvidence(f.Expected.Exceptions),
		}))
	}

	return out
}

// classifyAgainstSchedule compares the first IN against the start of the
// first block, the last OUT against the end of the last block, and then
// checks each block for any session coverage at all.
func classifyAgainstSchedule(f DayFacts, rule AttendanceRule) []Incident {
	var out []Incident
	expected := f.Expected.Blocks
	first, last := expected[0], expected[len(expected)-1]

	if in, ok := firstOfType(f.Usable, PunchIn); ok {
		late := generic.DiffMinutes(first.Start, in.At)
		if late > rule.LateGraceMinutes {
			out = append(out, newIncident(LateArrivalDetails{
				LateMinutes:      late,
				LateGraceMinutes: rule.LateGraceMinutes,
			}).withExpected(first).withActual(in.At))
		}
	} else {
		out = append(out, newIncident(MissingInDetails{Note: noteMissingIn}))
	}

	if o, ok := lastOfType(f.Usable, PunchOut); ok {
		early := generic.DiffMinutes(o.At, last.End)
		if early > rule.EarlyLeaveGraceMinutes {
			out = append(out, newIncident(EarlyLeaveDetails{
				EarlyMinutes:           early,
				EarlyLeaveGraceMinutes: rule.EarlyLeaveGraceMinutes,
			}).withExpected(last).withActual(o.At))
		}
	} else {
		out = append(out, newIncident(MissingOutDetails{Note: noteMissingOut}))
	}

	worked := f.Sessions.CompleteSessions()
	for _, block := range expected {
		covered := 0
		for _, w := range worked {
			covered += generic.OverlapMinutes(w, block)
		}
		if covered <= 0 {
			out = append(out, newIncident(AbsentDuringRequiredBlockDetails{
				Note:       noteBlockUncovered,
				BlockStart: block.Start,
				BlockEnd:   block.End,
			}).withExpected(block))
		}
	}
	return out
}

func exceptionEvidence(exceptions []ScheduleException) []ExceptionEvidence {
	evidence := make([]ExceptionEvidence, 0, len(exceptions))
	for _, e := range exceptions {
		ev := ExceptionEvidence{Type: e.Type}
		if e.Start != nil {
			s := e.Start.String()
			ev.StartTime = &s
		}
		if e.End != nil {
			s := e.End.String()
			ev.EndTime = &s
		}
		evidence = append(evidence, ev)
	}
	return evidence
}
