package attendance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
)

func params(minGap int) attendance.SessionParams {
	return attendance.SessionParams{MinGapMinutesToAllowCheckout: minGap, MissingPairGapMinutes: 30}
}

func TestReconstructSessions_CompletePair(t *testing.T) {
	res := attendance.ReconstructSessions([]attendance.Punch{in(1, "08:00"), out(2, "16:00")}, params(20))

	require.Len(t, res.Sessions, 1)
	s := res.Sessions[0]
	assert.True(t, s.IsComplete)
	assert.Equal(t, at("08:00"), s.InAt)
	require.NotNil(t, s.OutAt)
	assert.Equal(t, at("16:00"), *s.OutAt)
	assert.Empty(t, res.InWithoutOutTimes)
	assert.Empty(t, res.OutWithoutInTimes)
	assert.Equal(t, []time.Time{at("08:00")}, []time.Time{res.CompleteSessions()[0].Start})
}

func TestReconstructSessions_OutTooSoonIsIgnored(t *testing.T) {
	// GIVEN: IN 08:40, OUT 08:45 with a minimum checkout gap of 11
	punches := []attendance.Punch{in(1, "08:40"), out(2, "08:45")}

	// WHEN: Reconstructing
	res := attendance.ReconstructSessions(punches, params(11))

	// THEN: The OUT is noise; the session stays open until end of stream
	require.Len(t, res.Sessions, 1)
	assert.False(t, res.Sessions[0].IsComplete)
	assert.Nil(t, res.Sessions[0].OutAt)
	assert.Equal(t, []time.Time{at("08:40")}, res.InWithoutOutTimes)
	assert.Empty(t, res.OutWithoutInTimes)
	assert.Empty(t, res.CompleteSessions())
}

func TestReconstructSessions_OutAtExactGapCloses(t *testing.T) {
	res := attendance.ReconstructSessions([]attendance.Punch{in(1, "08:00"), out(2, "08:11")}, params(11))

	require.Len(t, res.Sessions, 1)
	assert.True(t, res.Sessions[0].IsComplete)
}

func TestReconstructSessions_IgnoredOutThenLaterOutCloses(t *testing.T) {
	punches := []attendance.Punch{in(1, "08:40"), out(2, "08:45"), out(3, "12:00")}

	res := attendance.ReconstructSessions(punches, params(11))

	require.Len(t, res.Sessions, 1)
	assert.True(t, res.Sessions[0].IsComplete)
	assert.Equal(t, at("12:00"), *res.Sessions[0].OutAt)
}

func TestReconstructSessions_OrphanOut(t *testing.T) {
	res := attendance.ReconstructSessions([]attendance.Punch{out(1, "07:00"), in(2, "08:00"), out(3, "12:00")}, params(20))

	assert.Equal(t, []time.Time{at("07:00")}, res.OutWithoutInTimes)
	require.Len(t, res.Sessions, 1)
	assert.True(t, res.Sessions[0].IsComplete)
}

func TestReconstructSessions_ReInAfterLongGap(t *testing.T) {
	// GIVEN: A forgotten checkout, IN at 07:00 and again at 13:00
	punches := []attendance.Punch{in(1, "07:00"), in(2, "13:00"), out(3, "16:00")}

	// WHEN: Reconstructing
	res := attendance.ReconstructSessions(punches, params(20))

	// THEN: The first IN dangles, the new IN is flagged, the second session closes
	assert.Equal(t, []time.Time{at("07:00")}, res.InWithoutOutTimes)
	assert.Equal(t, []time.Time{at("13:00")}, res.MissingOutBeforeNextInTimes)
	require.Len(t, res.Sessions, 2)
	assert.False(t, res.Sessions[0].IsComplete)
	assert.True(t, res.Sessions[1].IsComplete)
	assert.Equal(t, at("13:00"), res.Sessions[1].InAt)
}

func TestReconstructSessions_ReInAfterShortGap(t *testing.T) {
	res := attendance.ReconstructSessions([]attendance.Punch{in(1, "07:00"), in(2, "07:10")}, params(20))

	assert.Empty(t, res.MissingOutBeforeNextInTimes)
	assert.Equal(t, []time.Time{at("07:00"), at("07:10")}, res.InWithoutOutTimes)
	require.Len(t, res.Sessions, 2)
	assert.False(t, res.Sessions[0].IsComplete)
	assert.False(t, res.Sessions[1].IsComplete)
}

func TestReconstructSessions_Deterministic(t *testing.T) {
	punches := []attendance.Punch{
		out(1, "06:00"), in(2, "07:00"), in(3, "08:00"), out(4, "08:05"), out(5, "12:00"),
		in(6, "13:00"), out(7, "16:00"), in(8, "17:00"),
	}

	first := attendance.ReconstructSessions(punches, params(20))
	second := attendance.ReconstructSessions(punches, params(20))

	assert.Equal(t, first, second)
	require.Len(t, first.Sessions, 4)
	for i := 1; i < len(first.Sessions); i++ {
		assert.True(t, first.Sessions[i-1].InAt.Before(first.Sessions[i].InAt))
	}
}

func TestReconstructSessions_Empty(t *testing.T) {
	res := attendance.ReconstructSessions(nil, params(20))

	assert.Empty(t, res.Sessions)
	assert.Empty(t, res.InWithoutOutTimes)
}
