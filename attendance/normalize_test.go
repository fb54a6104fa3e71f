package attendance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// NORMALIZATION
// =============================================================================

func TestNormalizePunches_SortsByInstantThenID(t *testing.T) {
	// GIVEN: Punches out of order, two sharing an instant
	input := []attendance.Punch{out(3, "16:00"), in(2, "08:00"), in(1, "08:00")}

	// WHEN: Normalizing
	got := attendance.NormalizePunches(input)

	// THEN: Chronological, ties by id, input untouched
	require.Len(t, got, 3)
	assert.Equal(t, []generic.PunchID{1, 2, 3}, []generic.PunchID{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, generic.PunchID(3), input[0].ID)
	assert.Equal(t, generic.LocalZone, got[0].At.Location())
}

func TestNormalizePunches_ClearsDuplicateMarks(t *testing.T) {
	p := in(1, "08:00")
	p.IsDuplicate = true
	p.DuplicateOfID = 9

	got := attendance.NormalizePunches([]attendance.Punch{p})

	assert.False(t, got[0].IsDuplicate)
	assert.Zero(t, got[0].DuplicateOfID)
}

// =============================================================================
// DEDUPLICATION
// =============================================================================

func TestMarkDuplicates_SameTypeWithinWindow(t *testing.T) {
	// GIVEN: Two INs at 07:00 and 07:01, window 2
	punches := attendance.NormalizePunches([]attendance.Punch{in(1, "07:00"), in(2, "07:01")})

	// WHEN: Marking duplicates
	dups := attendance.MarkDuplicates(punches, 2)

	// THEN: The second is a duplicate of the first and only the first is usable
	assert.Equal(t, []generic.PunchID{2}, dups)
	assert.True(t, punches[1].IsDuplicate)
	assert.Equal(t, generic.PunchID(1), punches[1].DuplicateOfID)

	usable := attendance.UsablePunches(punches)
	require.Len(t, usable, 1)
	assert.Equal(t, generic.PunchID(1), usable[0].ID)
}

func TestMarkDuplicates_WindowIsInclusive(t *testing.T) {
	punches := attendance.NormalizePunches([]attendance.Punch{in(1, "07:00"), in(2, "07:02"), in(3, "07:05")})

	dups := attendance.MarkDuplicates(punches, 2)

	assert.Equal(t, []generic.PunchID{2}, dups)
}

func TestMarkDuplicates_IsPairwise(t *testing.T) {
	// GIVEN: Three INs one minute apart
	punches := attendance.NormalizePunches([]attendance.Punch{in(1, "07:00"), in(2, "07:01"), in(3, "07:02")})

	// WHEN: Marking with window 1
	dups := attendance.MarkDuplicates(punches, 1)

	// THEN: Each points to its immediate predecessor, not to the first punch
	assert.Equal(t, []generic.PunchID{2, 3}, dups)
	assert.Equal(t, generic.PunchID(1), punches[1].DuplicateOfID)
	assert.Equal(t, generic.PunchID(2), punches[2].DuplicateOfID)
}

func TestMarkDuplicates_DifferentTypesNeverDuplicate(t *testing.T) {
	punches := attendance.NormalizePunches([]attendance.Punch{in(1, "07:00"), out(2, "07:00"), in(3, "07:01")})

	dups := attendance.MarkDuplicates(punches, 2)

	assert.Empty(t, dups)
}

func TestMarkDuplicates_Idempotent(t *testing.T) {
	punches := attendance.NormalizePunches([]attendance.Punch{
		in(1, "07:00"), in(2, "07:01"), in(3, "07:02"), out(4, "12:00"), out(5, "12:02"), in(6, "13:00"),
	})

	first := attendance.MarkDuplicates(punches, 2)
	marks := append([]attendance.Punch(nil), punches...)
	second := attendance.MarkDuplicates(punches, 2)

	assert.Equal(t, first, second)
	assert.Equal(t, marks, punches)
}
