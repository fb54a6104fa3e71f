package attendance

import (
	"sort"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// EXPECTED SCHEDULE RESOLUTION
// =============================================================================

// ExpectedSchedule is the set of intervals during which presence was required
// on the date, after exceptions were applied.
type ExpectedSchedule struct {
	Blocks []generic.TimeRange

	// Assignment is the assignment the blocks came from, nil when the
	// employee had none covering the date.
	Assignment *ScheduleAssignment

	// FullDayException is set when a full-day ABSENCE or HOLIDAY voided the day.
	FullDayException bool
	Exceptions       []ScheduleException
}

// ActiveAssignment picks the assignment covering the date. When more than one
// covers it, the most recently started wins; equal start dates fall back to
// the highest id.
func ActiveAssignment(assignments []ScheduleAssignment, date generic.Date) (ScheduleAssignment, bool) {
	var covering []ScheduleAssignment
	for _, a := range assignments {
		if a.Covers(date) {
			covering = append(covering, a)
		}
	}
	if len(covering) == 0 {
		return ScheduleAssignment{}, false
	}
	sort.SliceStable(covering, func(i, j int) bool {
		if covering[i].StartsOn.Equal(covering[j].StartsOn) {
			return covering[i].ID > covering[j].ID
		}
		return covering[i].StartsOn.After(covering[j].StartsOn)
	})
	return covering[0], true
}

// RequiredBlocks converts the template's blocks for the date's weekday that
// require presence into local ranges, sorted by start. Blocks whose end is
// not after their start are dropped.
func RequiredBlocks(template ScheduleTemplate, date generic.Date) []generic.TimeRange {
	weekday := generic.WeekdayLocal(date)

	var ranges []generic.TimeRange
	for _, b := range template.Blocks {
		if b.Weekday != weekday || !b.RequiresPresence {
			continue
		}
		r, ok := generic.NewTimeRange(
			generic.CombineDateAndTimeLocal(date, b.Start),
			generic.CombineDateAndTimeLocal(date, b.End),
		)
		if ok {
			ranges = append(ranges, r)
		}
	}
	generic.SortRanges(ranges)
	return ranges
}

// ResolveExpected builds the expected schedule for the date from the covering
// assignments and the day's exceptions.
func ResolveExpected(date generic.Date, assignments []ScheduleAssignment, exceptions []ScheduleException) ExpectedSchedule {
	exp := ExpectedSchedule{Exceptions: exceptions}

	if a, ok := ActiveAssignment(assignments, date); ok {
		exp.Assignment = &a
		exp.Blocks = RequiredBlocks(a.Template, date)
	}

	for _, e := range exceptions {
		if e.VoidsDay() {
			exp.FullDayException = true
			break
		}
	}
	if exp.FullDayException {
		exp.Blocks = nil
		return exp
	}

	var cuts []generic.TimeRange
	for _, e := range exceptions {
		if r, ok := e.PermissionRange(date); ok {
			cuts = append(cuts, r)
		}
	}
	if len(cuts) > 0 {
		exp.Blocks = generic.SubtractMany(exp.Blocks, cuts)
	}
	return exp
}
