package attendance_test

import (
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// FIXTURES
// =============================================================================

// monday is 2025-03-03, an ISO weekday 1.
var monday = generic.MustParseDate("2025-03-03")

const emp generic.EmployeeID = 7

// at is a local wall-clock instant on monday.
func at(hhmm string) time.Time {
	return generic.CombineDateAndTimeLocal(monday, generic.MustParseTimeOfDay(hhmm))
}

func in(id generic.PunchID, hhmm string) attendance.Punch {
	return attendance.Punch{ID: id, At: at(hhmm), Type: attendance.PunchIn}
}

func out(id generic.PunchID, hhmm string) attendance.Punch {
	return attendance.Punch{ID: id, At: at(hhmm), Type: attendance.PunchOut}
}

func block(weekday int, start, end string, requires bool) attendance.ScheduleBlock {
	return attendance.ScheduleBlock{
		Weekday:          weekday,
		Start:            generic.MustParseTimeOfDay(start),
		End:              generic.MustParseTimeOfDay(end),
		RequiresPresence: requires,
		BlockType:        attendance.BlockWork,
	}
}

func template(blocks ...attendance.ScheduleBlock) attendance.ScheduleTemplate {
	return attendance.ScheduleTemplate{ID: 1, Name: "test", ValidFrom: generic.MustParseDate("2025-01-01"), Blocks: blocks}
}

func assignment(id int64, startsOn string, tpl attendance.ScheduleTemplate) attendance.ScheduleAssignment {
	return attendance.ScheduleAssignment{
		ID:         id,
		EmployeeID: emp,
		TemplateID: tpl.ID,
		Template:   tpl,
		StartsOn:   generic.MustParseDate(startsOn),
	}
}

// fullShift is a single required block 08:30-16:00 on Mondays.
func fullShift() attendance.ScheduleAssignment {
	return assignment(1, "2025-01-01", template(block(1, "08:30", "16:00", true)))
}

func fullDay(t attendance.ExceptionType) attendance.ScheduleException {
	return attendance.ScheduleException{ID: 1, EmployeeID: emp, Date: monday, Type: t}
}

func permission(start, end string) attendance.ScheduleException {
	s, e := generic.MustParseTimeOfDay(start), generic.MustParseTimeOfDay(end)
	return attendance.ScheduleException{
		ID: 2, EmployeeID: emp, Date: monday, Type: attendance.ExceptionPermission, Start: &s, End: &e,
	}
}

func rng(from, to string) generic.TimeRange {
	r, ok := generic.NewTimeRange(at(from), at(to))
	if !ok {
		panic("bad test range " + from + "-" + to)
	}
	return r
}

func ruleWith(late, early, minGap int) attendance.AttendanceRule {
	return attendance.AttendanceRule{
		LateGraceMinutes:             late,
		EarlyLeaveGraceMinutes:       early,
		MinGapMinutesToAllowCheckout: minGap,
	}
}

func evaluate(punches []attendance.Punch, assignments []attendance.ScheduleAssignment, exceptions []attendance.ScheduleException) attendance.Result {
	return attendance.Evaluate(attendance.DayInput{
		EmployeeID:  emp,
		Date:        monday,
		Punches:     punches,
		Assignments: assignments,
		Exceptions:  exceptions,
	}, attendance.DefaultAttendanceRule(), attendance.DefaultEvalConfig())
}

func incidentsOf(res attendance.Result, kind attendance.IncidentKind) []attendance.Incident {
	var out []attendance.Incident
	for _, inc := range res.Incidents {
		if inc.Kind == kind {
			out = append(out, inc)
		}
	}
	return out
}
