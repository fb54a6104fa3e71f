/*
handlers_test.go - HTTP tests for the attendance API

Tests for:
- Evaluate (persisting and dry run), validation and not-found mapping
- Range evaluation bounds
- Incident listing, summary and top-employee reports
- Record endpoints (employees, punches, exceptions, templates, rules)
- Manual evaluation runs
- XLSX export
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// HELPERS
// =============================================================================

func newTestServer(t *testing.T) (*Handler, *chi.Mux) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store)
	return h, NewRouter(h, nil)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// loadScenario loads a demo scenario and returns the seeded employee id.
func loadScenario(t *testing.T, router http.Handler, id string) int64 {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loaded := decode[map[string]any](t, rec)
	return int64(loaded["employee_id"].(float64))
}

func incidentKinds(resp EvaluateResponse) []string {
	kinds := make([]string, len(resp.Incidents))
	for i, inc := range resp.Incidents {
		kinds[i] = inc.Incident
	}
	return kinds
}

// =============================================================================
// EVALUATE
// =============================================================================

func TestEvaluate_LateArrivalPersists(t *testing.T) {
	// GIVEN: The late-arrival scenario
	_, router := newTestServer(t)
	empID := loadScenario(t, router, "late-arrival")

	// WHEN: Evaluating the scenario day
	rec := do(t, router, http.MethodPost, "/api/attendance/evaluate", map[string]any{
		"employee_id": empID,
		"date":        ScenarioDate,
	})

	// THEN: One LATE_ARRIVAL is returned and stored
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[EvaluateResponse](t, rec)
	assert.Equal(t, []string{"LATE_ARRIVAL"}, incidentKinds(resp))
	assert.Equal(t, 1, resp.Saved)
	assert.Len(t, resp.ExpectedBlocks, 9)
	require.Len(t, resp.Sessions, 1)
	assert.True(t, resp.Sessions[0].Complete)

	var details map[string]any
	require.NoError(t, json.Unmarshal(resp.Incidents[0].Details, &details))
	assert.EqualValues(t, 22, details["lateMinutes"])

	list := do(t, router, http.MethodGet, "/api/attendance/incidents?date="+ScenarioDate, nil)
	require.Equal(t, http.StatusOK, list.Code)
	incidents := decode[IncidentListResponse](t, list)
	assert.Equal(t, 1, incidents.Count)
	assert.Equal(t, "LATE_ARRIVAL", incidents.Items[0].Incident)
	assert.NotEmpty(t, incidents.Items[0].ID)
}

func TestEvaluate_DryRunDoesNotPersist(t *testing.T) {
	_, router := newTestServer(t)
	empID := loadScenario(t, router, "no-show")

	rec := do(t, router, http.MethodPost, "/api/attendance/evaluate", map[string]any{
		"employee_id": empID,
		"date":        ScenarioDate,
		"dry_run":     true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[EvaluateResponse](t, rec)
	assert.Equal(t, []string{"ABSENT"}, incidentKinds(resp))
	assert.Equal(t, 0, resp.Saved)

	list := decode[IncidentListResponse](t, do(t, router, http.MethodGet, "/api/attendance/incidents?date="+ScenarioDate, nil))
	assert.Equal(t, 0, list.Count)
}

func TestEvaluate_Scenarios(t *testing.T) {
	tests := []struct {
		scenario string
		contains []string
		exact    bool
	}{
		{"late-arrival", []string{"LATE_ARRIVAL"}, true},
		{"no-show", []string{"ABSENT"}, true},
		{"forgotten-checkout", []string{"IN_WITHOUT_OUT", "MISSING_OUT"}, false},
		{"holiday-with-punches", []string{"UNSCHEDULED_WORK"}, true},
		{"split-shift-permission", []string{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			_, router := newTestServer(t)
			empID := loadScenario(t, router, tt.scenario)

			rec := do(t, router, http.MethodPost, "/api/attendance/evaluate", map[string]any{
				"employee_id": empID,
				"date":        ScenarioDate,
				"dry_run":     true,
			})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			kinds := incidentKinds(decode[EvaluateResponse](t, rec))
			if tt.exact {
				assert.Equal(t, tt.contains, kinds)
				return
			}
			assert.Subset(t, kinds, tt.contains)
		})
	}
}

func TestEvaluate_ValidationErrors(t *testing.T) {
	_, router := newTestServer(t)

	tests := []struct {
		name  string
		body  map[string]any
		field string
		tag   string
	}{
		{"missing date", map[string]any{"employee_id": 1}, "date", "required"},
		{"bad date", map[string]any{"employee_id": 1, "date": "2025-02-30"}, "date", "datetime"},
		{"missing employee", map[string]any{"date": ScenarioDate}, "employee_id", "required"},
		{"negative window", map[string]any{"employee_id": 1, "date": ScenarioDate, "duplicate_window_minutes": -1}, "duplicate_window_minutes", "min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/attendance/evaluate", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, "Validation failed", resp.Error)
			fields, ok := resp.Details.(map[string]any)
			require.True(t, ok, "details should be a field map: %v", resp.Details)
			assert.Equal(t, tt.tag, fields[tt.field])
		})
	}
}

func TestEvaluate_UnknownEmployee(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/attendance/evaluate", map[string]any{
		"employee_id": 999,
		"date":        ScenarioDate,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvaluate_MalformedBody(t *testing.T) {
	_, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/attendance/evaluate", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// RANGE
// =============================================================================

func TestEvaluateRange(t *testing.T) {
	_, router := newTestServer(t)
	empID := loadScenario(t, router, "late-arrival")

	t.Run("persists every day", func(t *testing.T) {
		// Monday..Friday: late Monday, absent the other four days
		rec := do(t, router, http.MethodPost, "/api/attendance/evaluate-range", map[string]any{
			"from": ScenarioDate,
			"to":   "2025-03-07",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var summary struct {
			Days        int   `json:"days"`
			Employees   int   `json:"employees"`
			Evaluations int   `json:"evaluations"`
			TotalSaved  int   `json:"total_saved"`
			Failures    []any `json:"failures"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
		assert.Equal(t, 5, summary.Days)
		assert.Equal(t, 1, summary.Employees)
		assert.Equal(t, 5, summary.Evaluations)
		assert.Equal(t, 5, summary.TotalSaved)
		assert.Empty(t, summary.Failures)
	})

	t.Run("summary and top", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/api/attendance/summary?from="+ScenarioDate+"&to=2025-03-07", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		summary := decode[SummaryResponse](t, rec)
		assert.Equal(t, map[string]int{"LATE_ARRIVAL": 1, "ABSENT": 4}, summary.Counts)
		assert.Equal(t, 5, summary.Total)
		assert.Equal(t, 5, summary.IncidentDays)

		rec = do(t, router, http.MethodGet, "/api/attendance/summary/top?from="+ScenarioDate+"&to=2025-03-07&limit=500", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		top := decode[TopEmployeesResponse](t, rec)
		assert.Equal(t, maxTopLimit, top.Limit)
		require.Len(t, top.Items, 1)
		assert.Equal(t, empID, top.Items[0].EmployeeID)
		assert.Equal(t, "Ana Mora", top.Items[0].Name)
		assert.Equal(t, 4, top.Items[0].ByIncident["ABSENT"])
	})

	t.Run("too large", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/attendance/evaluate-range", map[string]any{
			"from":     "2025-01-01",
			"to":       "2025-01-10",
			"max_days": 5,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reversed", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/attendance/evaluate-range", map[string]any{
			"from": "2025-01-10",
			"to":   "2025-01-01",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReports_InvalidQueries(t *testing.T) {
	_, router := newTestServer(t)

	for _, path := range []string{
		"/api/attendance/incidents",
		"/api/attendance/incidents?date=03/03/2025",
		"/api/attendance/incidents?date=2025-03-03&employee_id=abc",
		"/api/attendance/summary?from=2025-03-05&to=2025-03-01",
		"/api/attendance/summary/top?from=2025-03-01&limit=x",
		"/api/attendance/incidents/export?from=2024-01-01&to=2025-12-31",
	} {
		rec := do(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

// =============================================================================
// RECORDS
// =============================================================================

func TestRecords_EmployeePunchesExceptions(t *testing.T) {
	_, router := newTestServer(t)

	// GIVEN: A new employee on a custom template
	rec := do(t, router, http.MethodPost, "/api/employees", map[string]any{
		"first_name": "Rosa",
		"last_name":  "Jiménez",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	emp := decode[EmployeeDTO](t, rec)
	assert.True(t, emp.IsActive)
	assert.Equal(t, "Rosa Jiménez", emp.Name)

	rec = do(t, router, http.MethodPost, "/api/schedules/templates", map[string]any{
		"name":       "mañana",
		"valid_from": "2025-01-01",
		"blocks":     []map[string]any{{"weekdays": []int{1, 2, 3, 4, 5}, "start": "08:00", "end": "12:00"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tpl := decode[TemplateDTO](t, rec)
	assert.Len(t, tpl.Blocks, 5)

	base := "/api/employees/" + strconv.FormatInt(emp.ID, 10)
	rec = do(t, router, http.MethodPost, base+"/assignments", map[string]any{
		"template_id": tpl.ID,
		"starts_on":   "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: Recording punches and a permission
	for _, p := range []map[string]string{
		{"date": ScenarioDate, "time": "08:02", "type": "IN"},
		{"date": ScenarioDate, "time": "11:00", "type": "OUT"},
	} {
		rec = do(t, router, http.MethodPost, base+"/punches", p)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec = do(t, router, http.MethodPost, base+"/exceptions", map[string]any{
		"date": ScenarioDate, "type": "PERMISSION", "start_time": "11:00", "end_time": "12:00", "reason": "trámite",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: Listings return them and the day evaluates clean
	punches := decode[[]PunchDTO](t, do(t, router, http.MethodGet, base+"/punches?from="+ScenarioDate, nil))
	require.Len(t, punches, 2)
	assert.Equal(t, "IN", punches[0].Type)
	assert.Equal(t, 8, punches[0].At.Hour())

	exceptions := decode[[]ExceptionDTO](t, do(t, router, http.MethodGet, base+"/exceptions?from="+ScenarioDate, nil))
	require.Len(t, exceptions, 1)
	assert.Equal(t, "11:00:00", exceptions[0].StartTime)

	assignments := decode[[]AssignmentDTO](t, do(t, router, http.MethodGet, base+"/assignments", nil))
	require.Len(t, assignments, 1)

	rec = do(t, router, http.MethodPost, "/api/attendance/evaluate", map[string]any{
		"employee_id": emp.ID, "date": ScenarioDate, "dry_run": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[EvaluateResponse](t, rec).Incidents)
}

func TestRecords_InvalidInput(t *testing.T) {
	_, router := newTestServer(t)
	empID := loadScenario(t, router, "no-show")
	base := "/api/employees/" + strconv.FormatInt(empID, 10)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"bad employee id", http.MethodGet, "/api/employees/abc", nil, http.StatusBadRequest},
		{"zero employee id", http.MethodGet, "/api/employees/0", nil, http.StatusBadRequest},
		{"unknown employee", http.MethodGet, "/api/employees/999", nil, http.StatusNotFound},
		{"punch bad type", http.MethodPost, base + "/punches", map[string]string{"date": ScenarioDate, "time": "08:00", "type": "BREAK"}, http.StatusBadRequest},
		{"punch bad time", http.MethodPost, base + "/punches", map[string]string{"date": ScenarioDate, "time": "25:00", "type": "IN"}, http.StatusBadRequest},
		{"punch unknown employee", http.MethodPost, "/api/employees/999/punches", map[string]string{"date": ScenarioDate, "time": "08:00", "type": "IN"}, http.StatusNotFound},
		{"exception half range", http.MethodPost, base + "/exceptions", map[string]string{"date": ScenarioDate, "type": "PERMISSION", "start_time": "10:00"}, http.StatusBadRequest},
		{"exception reversed", http.MethodPost, base + "/exceptions", map[string]string{"date": ScenarioDate, "type": "PERMISSION", "start_time": "11:00", "end_time": "10:00"}, http.StatusBadRequest},
		{"exception bad type", http.MethodPost, base + "/exceptions", map[string]string{"date": ScenarioDate, "type": "VACATION"}, http.StatusBadRequest},
		{"assignment unknown template", http.MethodPost, base + "/assignments", map[string]any{"template_id": 999, "starts_on": "2025-01-01"}, http.StatusNotFound},
		{"assignment reversed", http.MethodPost, base + "/assignments", map[string]any{"template_id": 1, "starts_on": "2025-02-01", "ends_on": "2025-01-01"}, http.StatusBadRequest},
		{"template invalid", http.MethodPost, "/api/schedules/templates", map[string]any{"name": "x", "blocks": []map[string]any{{"weekdays": []int{9}, "start": "08:00", "end": "09:00"}}}, http.StatusBadRequest},
		{"rules missing field", http.MethodPut, "/api/rules", map[string]int{"late_grace_minutes": 5}, http.StatusBadRequest},
		{"scenario unknown", http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "nope"}, http.StatusBadRequest},
		{"scenario missing id", http.MethodPost, "/api/scenarios/load", map[string]string{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRules_UpdateChangesClassification(t *testing.T) {
	_, router := newTestServer(t)
	empID := loadScenario(t, router, "late-arrival")

	rules := decode[RulesDTO](t, do(t, router, http.MethodGet, "/api/rules", nil))
	assert.Equal(t, 5, *rules.LateGraceMinutes)

	// GIVEN: A 30 minute late grace
	rec := do(t, router, http.MethodPut, "/api/rules", map[string]int{
		"late_grace_minutes":                30,
		"early_leave_grace_minutes":         5,
		"min_gap_minutes_to_allow_checkout": 20,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN/THEN: Arriving 22 minutes late is no longer an incident
	rec = do(t, router, http.MethodPost, "/api/attendance/evaluate", map[string]any{
		"employee_id": empID, "date": ScenarioDate, "dry_run": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[EvaluateResponse](t, rec).Incidents)
}

// =============================================================================
// SCENARIOS & RUNS
// =============================================================================

func TestScenarios_CurrentAndReset(t *testing.T) {
	_, router := newTestServer(t)

	list := decode[[]ScenarioDTO](t, do(t, router, http.MethodGet, "/api/scenarios", nil))
	assert.Len(t, list, len(scenarios))

	rec := do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null", string(bytes.TrimSpace(rec.Body.Bytes())))

	loadScenario(t, router, "forgotten-checkout")
	current := decode[ScenarioDTO](t, do(t, router, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "forgotten-checkout", current.ID)
	assert.Equal(t, ScenarioDate, current.Date)

	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	employees := decode[[]EmployeeDTO](t, do(t, router, http.MethodGet, "/api/employees", nil))
	assert.Empty(t, employees)
}

func TestEvaluationRuns(t *testing.T) {
	h, router := newTestServer(t)
	loadScenario(t, router, "late-arrival")

	// Without a scheduler the trigger is unavailable
	rec := do(t, router, http.MethodPost, "/api/attendance/runs?date="+ScenarioDate, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.Scheduler = NewEvaluationScheduler(h.Store, h.Ranges)

	rec = do(t, router, http.MethodPost, "/api/attendance/runs?date="+ScenarioDate, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[EvaluationRunDTO](t, rec)
	assert.Equal(t, sqlite.RunCompleted, run.Status)
	assert.Equal(t, 1, run.Employees)
	assert.Equal(t, 1, run.Evaluations)
	assert.Equal(t, 1, run.Saved)

	done, err := h.Store.IsRunComplete(context.Background(), generic.MustParseDate(ScenarioDate))
	require.NoError(t, err)
	assert.True(t, done)

	var runs struct {
		Runs []EvaluationRunDTO `json:"runs"`
	}
	rec = do(t, router, http.MethodGet, "/api/attendance/runs", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, ScenarioDate, runs.Runs[0].RunDate)
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t)
	rec := do(t, router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

// =============================================================================
// EXPORT
// =============================================================================

func TestExportIncidents(t *testing.T) {
	_, router := newTestServer(t)
	empID := loadScenario(t, router, "late-arrival")

	rec := do(t, router, http.MethodPost, "/api/attendance/evaluate-range", map[string]any{
		"from": ScenarioDate,
		"to":   "2025-03-04",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/attendance/incidents/export?from="+ScenarioDate+"&to=2025-03-04", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxMIME, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "incidencias_2025-03-03_2025-03-04.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(incidentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + LATE_ARRIVAL + ABSENT
	assert.Equal(t, "Empleado", rows[0][0])
	assert.Equal(t, strconv.FormatInt(empID, 10), rows[1][0])
	assert.Equal(t, "LATE_ARRIVAL", rows[1][2])
	assert.Equal(t, "2025-03-03 08:30", rows[1][3])
	assert.Equal(t, "2025-03-03 08:52", rows[1][5])
	assert.Equal(t, "ABSENT", rows[2][2])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Incidencia", "Total"},
		{"ABSENT", "1"},
		{"LATE_ARRIVAL", "1"},
	}, summary)
}

// brokenPipe is a ResponseWriter whose body writes always fail.
type brokenPipe struct {
	header http.Header
	status int
}

func (b *brokenPipe) Header() http.Header       { return b.header }
func (b *brokenPipe) WriteHeader(status int)    { b.status = status }
func (b *brokenPipe) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestExportIncidents_WriteFailureIsLogged(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "no-show")

	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	// GIVEN: A client that drops the connection mid-download
	w := &brokenPipe{header: http.Header{}}
	req := httptest.NewRequest(http.MethodGet, "/api/attendance/incidents/export?from="+ScenarioDate, nil)

	// WHEN: Exporting
	router.ServeHTTP(w, req)

	// THEN: The 200 is already sent and the failure is logged
	assert.Equal(t, http.StatusOK, w.status)
	assert.Contains(t, logs.String(), "[Export] Failed to write incidencias_2025-03-03_2025-03-03.xlsx")
}
