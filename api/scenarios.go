/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with one
	employee on the default school template and the punches/exceptions of
	a single day, so each incident kind can be reproduced with one
	evaluate call.

AVAILABLE SCENARIOS:

	late-arrival:           First IN after the grace window
	no-show:                Scheduled day, no punches at all
	forgotten-checkout:     IN without a matching OUT
	holiday-with-punches:   Full-day holiday but the employee punched anyway
	split-shift-permission: Timed permission covering the mid-morning gap

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create the default school template via factory
 3. Create employee and assign the template
 4. Add exceptions for the scenario date
 5. Add punches for the scenario date

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "late-arrival"}

	then

	POST /api/attendance/evaluate
	{"employee_id": 1, "date": "2025-03-03"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Evaluate handler
  - factory/template.go: Default school template
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store/sqlite"
)

// ScenarioDate is the Monday every scenario seeds.
const ScenarioDate = "2025-03-03"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type punchSeed struct {
	Time string
	Type attendance.PunchType
}

type exceptionSeed struct {
	Type       attendance.ExceptionType
	Start, End string
	Reason     string
}

type scenario struct {
	ScenarioDTO
	Employee   sqlite.Employee
	Exceptions []exceptionSeed
	Punches    []punchSeed
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "late-arrival",
			Name:        "Late Arrival",
			Description: "Arrives 22 minutes after the first lesson starts, leaves on time",
		},
		Employee: sqlite.Employee{FirstName: "Ana", LastName: "Mora", Email: "ana.mora@example.com"},
		Punches: []punchSeed{
			{"08:52", attendance.PunchIn},
			{"14:35", attendance.PunchOut},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "no-show",
			Name:        "No Show",
			Description: "Scheduled school day without a single punch",
		},
		Employee: sqlite.Employee{FirstName: "Luis", LastName: "Vargas", Email: "luis.vargas@example.com"},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "forgotten-checkout",
			Name:        "Forgotten Checkout",
			Description: "Punches in on time and never punches out",
		},
		Employee: sqlite.Employee{FirstName: "Carla", LastName: "Solís", Email: "carla.solis@example.com"},
		Punches: []punchSeed{
			{"08:20", attendance.PunchIn},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "holiday-with-punches",
			Name:        "Holiday With Punches",
			Description: "Full-day holiday exception, but the employee came in anyway",
		},
		Employee: sqlite.Employee{FirstName: "Diego", LastName: "Rojas", Email: "diego.rojas@example.com"},
		Exceptions: []exceptionSeed{
			{Type: attendance.ExceptionHoliday, Reason: "Feriado"},
		},
		Punches: []punchSeed{
			{"08:25", attendance.PunchIn},
			{"12:00", attendance.PunchOut},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "split-shift-permission",
			Name:        "Split Shift With Permission",
			Description: "Leaves for a medical appointment covered by a 10:00-11:20 permission",
		},
		Employee: sqlite.Employee{FirstName: "Elena", LastName: "Castro", Email: "elena.castro@example.com"},
		Exceptions: []exceptionSeed{
			{Type: attendance.ExceptionPermission, Start: "10:00", End: "11:20", Reason: "Cita médica"},
		},
		Punches: []punchSeed{
			{"08:24", attendance.PunchIn},
			{"10:00", attendance.PunchOut},
			{"11:18", attendance.PunchIn},
			{"14:36", attendance.PunchOut},
		},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.dto()
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if s, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, s.dto())
		return
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Date: ScenarioDate})
}

// LoadScenario resets the database and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Clear current scenario before touching the data
	h.currentScenario = ""
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	empID, err := h.loadScenario(r.Context(), s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = s.ID

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "loaded",
		"scenario":    s.ID,
		"employee_id": int64(empID),
		"date":        ScenarioDate,
	})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

func (h *Handler) loadScenario(ctx context.Context, s scenario) (generic.EmployeeID, error) {
	date := generic.MustParseDate(ScenarioDate)

	tplID, err := h.Store.SaveTemplate(ctx, factory.DefaultSchoolTemplate())
	if err != nil {
		return 0, fmt.Errorf("template: %w", err)
	}

	emp := s.Employee
	emp.IsActive = true
	empID, err := h.Store.SaveEmployee(ctx, emp)
	if err != nil {
		return 0, fmt.Errorf("employee: %w", err)
	}

	if _, err := h.Store.SaveAssignment(ctx, attendance.ScheduleAssignment{
		EmployeeID: empID,
		TemplateID: tplID,
		StartsOn:   generic.MustParseDate(factory.DefaultValidFrom),
	}); err != nil {
		return 0, fmt.Errorf("assignment: %w", err)
	}

	for _, e := range s.Exceptions {
		exc := attendance.ScheduleException{
			EmployeeID: empID,
			Date:       date,
			Type:       e.Type,
			Reason:     e.Reason,
		}
		if e.Start != "" {
			start, end := generic.MustParseTimeOfDay(e.Start), generic.MustParseTimeOfDay(e.End)
			exc.Start, exc.End = &start, &end
		}
		if _, err := h.Store.SaveException(ctx, exc); err != nil {
			return 0, fmt.Errorf("exception: %w", err)
		}
	}

	for _, p := range s.Punches {
		at := generic.CombineDateAndTimeLocal(date, generic.MustParseTimeOfDay(p.Time))
		if _, err := h.Store.SavePunch(ctx, empID, at, p.Type, "scenario"); err != nil {
			return 0, fmt.Errorf("punch %s: %w", p.Time, err)
		}
	}
	return empID, nil
}

func (s scenario) dto() ScenarioDTO {
	d := s.ScenarioDTO
	d.Date = ScenarioDate
	return d
}
