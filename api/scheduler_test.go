/*
scheduler_test.go - Tests for the daily evaluation scheduler

Tests for:
- Target date (yesterday in the local zone)
- Completed dates are skipped, failed dates are retried
- Start/Stop lifecycle and next-run reporting
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store/sqlite"
)

// newTestScheduler returns a scheduler whose clock sits on the day after
// ScenarioDate, so its target date is the scenario day.
func newTestScheduler(h *Handler) *EvaluationScheduler {
	es := NewEvaluationScheduler(h.Store, h.Ranges)
	dayAfter := generic.MustParseDate(ScenarioDate).AddDays(1)
	es.Now = func() time.Time {
		return generic.CombineDateAndTimeLocal(dayAfter, generic.MustParseTimeOfDay("12:00"))
	}
	return es
}

func onlyRun(t *testing.T, store *sqlite.Store) sqlite.EvaluationRun {
	t.Helper()
	runs, err := store.ListEvaluationRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	return runs[0]
}

func storedIncidents(t *testing.T, store *sqlite.Store) int {
	t.Helper()
	date := generic.MustParseDate(ScenarioDate)
	recs, err := store.ListIncidents(context.Background(), sqlite.IncidentFilter{
		Range: generic.DateRange{From: date, To: date},
	})
	require.NoError(t, err)
	return len(recs)
}

func TestScheduler_TargetDateIsYesterdayLocal(t *testing.T) {
	es := NewEvaluationScheduler(nil, nil)

	tests := []struct {
		now  time.Time
		want string
	}{
		// 03:00 UTC is still the 10th at UTC-6
		{time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC), "2025-03-09"},
		{time.Date(2025, 3, 11, 6, 0, 0, 0, time.UTC), "2025-03-10"},
		{time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), "2024-12-31"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, es.TargetDate(tt.now).String(), tt.now.String())
	}
}

func TestScheduler_RunNowSkipsCompletedDate(t *testing.T) {
	h, router := newTestServer(t)
	loadScenario(t, router, "late-arrival")
	ctx := context.Background()

	// GIVEN: The target date already has a completed run
	done := sqlite.NewEvaluationRun(generic.MustParseDate(ScenarioDate))
	done.Status = sqlite.RunCompleted
	require.NoError(t, h.Store.SaveEvaluationRun(ctx, done))

	// WHEN: The scheduler checks
	newTestScheduler(h).RunNow()

	// THEN: Nothing is evaluated and the run record is untouched
	run := onlyRun(t, h.Store)
	assert.Equal(t, done.ID, run.ID)
	assert.Equal(t, sqlite.RunCompleted, run.Status)
	assert.Zero(t, run.Evaluations)
	assert.Zero(t, storedIncidents(t, h.Store))
}

func TestScheduler_RunNowRetriesFailedDate(t *testing.T) {
	h, router := newTestServer(t)
	loadScenario(t, router, "late-arrival")
	ctx := context.Background()

	// GIVEN: The target date failed earlier
	failed := sqlite.NewEvaluationRun(generic.MustParseDate(ScenarioDate))
	failed.Status = sqlite.RunFailed
	failed.Error = "database is locked"
	require.NoError(t, h.Store.SaveEvaluationRun(ctx, failed))

	// WHEN: The scheduler checks
	newTestScheduler(h).RunNow()

	// THEN: The date is evaluated again and the record completes
	run := onlyRun(t, h.Store)
	assert.Equal(t, sqlite.RunCompleted, run.Status)
	assert.Empty(t, run.Error)
	assert.Equal(t, 1, run.Evaluations)
	assert.Equal(t, 1, run.Saved)
	assert.Equal(t, 1, storedIncidents(t, h.Store))
}

func TestScheduler_RunNowEvaluatesNewDate(t *testing.T) {
	h, router := newTestServer(t)
	loadScenario(t, router, "no-show")

	es := newTestScheduler(h)
	es.RunNow()
	es.RunNow()

	run := onlyRun(t, h.Store)
	assert.Equal(t, ScenarioDate, run.RunDate.String())
	assert.Equal(t, sqlite.RunCompleted, run.Status)
	assert.Equal(t, 1, storedIncidents(t, h.Store))
}

func TestScheduler_RestartAndNextRun(t *testing.T) {
	h, router := newTestServer(t)
	loadScenario(t, router, "no-show")

	es := newTestScheduler(h)
	es.CheckInterval = time.Hour
	h.Scheduler = es

	_, ok := es.NextRunAt()
	assert.False(t, ok, "not running yet")

	// Start/Stop twice must not close an already closed channel
	for i := 0; i < 2; i++ {
		es.Start()

		next, ok := es.NextRunAt()
		require.True(t, ok)
		assert.False(t, next.Before(es.Now()))

		rec := do(t, router, http.MethodGet, "/api/attendance/runs", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body, "next_run_at")

		es.Stop()
		_, ok = es.NextRunAt()
		assert.False(t, ok)
	}

	rec := do(t, router, http.MethodGet, "/api/attendance/runs", nil)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "next_run_at")
}

func TestScheduler_DisabledDoesNotStart(t *testing.T) {
	h, _ := newTestServer(t)
	es := newTestScheduler(h)
	es.Enabled = false

	es.Start()
	_, ok := es.NextRunAt()
	assert.False(t, ok)
	es.Stop()
}
