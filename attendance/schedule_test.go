package attendance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// ASSIGNMENT RESOLUTION
// =============================================================================

func TestActiveAssignment_MostRecentStartWins(t *testing.T) {
	tpl := template()
	older := assignment(1, "2025-01-01", tpl)
	newer := assignment(2, "2025-02-01", tpl)

	got, ok := attendance.ActiveAssignment([]attendance.ScheduleAssignment{newer, older}, monday)

	require.True(t, ok)
	assert.Equal(t, int64(2), got.ID)
}

func TestActiveAssignment_EqualStartFallsBackToHighestID(t *testing.T) {
	tpl := template()
	a := assignment(4, "2025-01-01", tpl)
	b := assignment(9, "2025-01-01", tpl)

	got, ok := attendance.ActiveAssignment([]attendance.ScheduleAssignment{b, a}, monday)

	require.True(t, ok)
	assert.Equal(t, int64(9), got.ID)
}

func TestActiveAssignment_RespectsBounds(t *testing.T) {
	tpl := template()
	ended := assignment(1, "2025-01-01", tpl)
	end := generic.MustParseDate("2025-03-02")
	ended.EndsOn = &end
	future := assignment(2, "2025-03-04", tpl)

	_, ok := attendance.ActiveAssignment([]attendance.ScheduleAssignment{ended, future}, monday)
	assert.False(t, ok)

	lastDay := assignment(3, "2025-01-01", tpl)
	lastDay.EndsOn = &monday
	got, ok := attendance.ActiveAssignment([]attendance.ScheduleAssignment{lastDay}, monday)
	require.True(t, ok)
	assert.Equal(t, int64(3), got.ID)
}

// =============================================================================
// REQUIRED BLOCKS
// =============================================================================

func TestRequiredBlocks_FiltersWeekdayAndPresenceAndSorts(t *testing.T) {
	tpl := template(
		block(1, "13:00", "14:30", true),
		block(1, "12:00", "13:00", false),
		block(2, "08:30", "16:00", true),
		block(1, "08:30", "11:30", true),
		block(1, "10:00", "10:00", true),
	)

	got := attendance.RequiredBlocks(tpl, monday)

	assert.Equal(t, []generic.TimeRange{rng("08:30", "11:30"), rng("13:00", "14:30")}, got)
}

// =============================================================================
// EXCEPTIONS
// =============================================================================

func TestResolveExpected_FullDayHolidayVoidsBlocks(t *testing.T) {
	exp := attendance.ResolveExpected(monday,
		[]attendance.ScheduleAssignment{fullShift()},
		[]attendance.ScheduleException{fullDay(attendance.ExceptionHoliday)})

	assert.True(t, exp.FullDayException)
	assert.Empty(t, exp.Blocks)
	require.NotNil(t, exp.Assignment)
}

func TestResolveExpected_FullDayPermissionDoesNotVoid(t *testing.T) {
	exp := attendance.ResolveExpected(monday,
		[]attendance.ScheduleAssignment{fullShift()},
		[]attendance.ScheduleException{fullDay(attendance.ExceptionPermission)})

	assert.False(t, exp.FullDayException)
	assert.Equal(t, []generic.TimeRange{rng("08:30", "16:00")}, exp.Blocks)
}

func TestResolveExpected_PermissionSubtracts(t *testing.T) {
	// GIVEN: 08:30-16:00 with a 10:00-11:00 permission
	exp := attendance.ResolveExpected(monday,
		[]attendance.ScheduleAssignment{fullShift()},
		[]attendance.ScheduleException{permission("10:00", "11:00")})

	// THEN: The block is split around the permission
	assert.False(t, exp.FullDayException)
	assert.Equal(t, []generic.TimeRange{rng("08:30", "10:00"), rng("11:00", "16:00")}, exp.Blocks)
}

func TestResolveExpected_PartialPermissionIsIgnored(t *testing.T) {
	start := generic.MustParseTimeOfDay("10:00")
	partial := attendance.ScheduleException{ID: 3, EmployeeID: emp, Date: monday, Type: attendance.ExceptionPermission, Start: &start}

	exp := attendance.ResolveExpected(monday,
		[]attendance.ScheduleAssignment{fullShift()},
		[]attendance.ScheduleException{partial})

	assert.Equal(t, []generic.TimeRange{rng("08:30", "16:00")}, exp.Blocks)
}

func TestResolveExpected_NoAssignmentIsEmpty(t *testing.T) {
	exp := attendance.ResolveExpected(monday, nil, nil)

	assert.Nil(t, exp.Assignment)
	assert.Empty(t, exp.Blocks)
	assert.False(t, exp.FullDayException)
}
