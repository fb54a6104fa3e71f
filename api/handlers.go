/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes day evaluation, range evaluation, incident reporting and the
  schedule/punch records the evaluator reads. Handles HTTP request/response,
  JSON serialization, validation, and delegates to the attendance package.

ENDPOINTS:
  Attendance:
    POST   /api/attendance/evaluate            Evaluate (and persist) one employee-day
    POST   /api/attendance/evaluate-range      Evaluate every day of a range
    GET    /api/attendance/incidents           Stored incidents for a date
    GET    /api/attendance/incidents/export    Stored incidents as XLSX
    GET    /api/attendance/summary             Counts by kind, incident days
    GET    /api/attendance/summary/top         Employees with most incidents
    GET    /api/attendance/runs                Scheduled evaluation history
    POST   /api/attendance/runs                Evaluate a day for everyone now

  Employees:
    GET    /api/employees                      List employees
    POST   /api/employees                      Create employee
    GET    /api/employees/{id}                 Get employee
    GET    /api/employees/{id}/punches         Punches in a date range
    POST   /api/employees/{id}/punches         Record a punch
    GET    /api/employees/{id}/exceptions      Exceptions in a date range
    POST   /api/employees/{id}/exceptions      Record an exception
    GET    /api/employees/{id}/assignments     Schedule assignments
    POST   /api/employees/{id}/assignments     Assign a template

  Schedules & rules:
    GET    /api/schedules/templates            List templates
    POST   /api/schedules/templates            Create template from JSON
    GET    /api/rules                          Active attendance rule
    PUT    /api/rules                          Replace attendance rule

  Scenarios (scenarios.go):
    GET    /api/scenarios                      List demo scenarios
    GET    /api/scenarios/current              Currently loaded scenario
    POST   /api/scenarios/load                 Reset and load a scenario
    POST   /api/scenarios/reset                Reset the database

ERROR HANDLING:
  Errors are returned as JSON ErrorResponse with HTTP status:
  - 400: Validation errors (details: field -> failed rule), client errors
  - 404: Employee or template not found
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - export.go: XLSX export
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store/sqlite"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 50
	defaultRunLimit = 30
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Evaluator *attendance.Evaluator
	Ranges    *attendance.RangeRunner
	Templates *factory.TemplateFactory

	// Scheduler is optional; without it POST /api/attendance/runs answers 503.
	Scheduler *EvaluationScheduler

	// RangeMaxDays is the default bound for range evaluations.
	RangeMaxDays int
	// Parallelism bounds how many employees a range evaluates at once.
	Parallelism int

	validate *validator.Validate

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:        store,
		Evaluator:    attendance.NewStoreEvaluator(store),
		Ranges:       attendance.NewRangeRunner(store),
		Templates:    factory.NewTemplateFactory(),
		RangeMaxDays: generic.DefaultMaxRangeDays,
		Parallelism:  attendance.DefaultRangeParallelism,
		validate:     newValidator(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// EVALUATION HANDLERS
// =============================================================================

// Evaluate evaluates one employee-day and, unless dry_run, persists it.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()
	empID := generic.EmployeeID(req.EmployeeID)

	if _, err := h.Store.GetEmployee(ctx, empID); err != nil {
		writeDomainError(w, "Failed to load employee", err)
		return
	}

	cfg := evalConfig(req.DuplicateWindowMinutes, req.MissingPairGapMinutes)

	var (
		res   attendance.Result
		saved int
		err   error
	)
	if req.DryRun {
		res, err = h.Evaluator.EvaluateEmployeeDay(ctx, empID, req.Date, cfg)
	} else {
		res, saved, err = h.Evaluator.EvaluateAndPersist(ctx, empID, req.Date, cfg)
	}
	if err != nil {
		writeDomainError(w, "Failed to evaluate attendance", err)
		return
	}

	resp, err := toEvaluateResponse(res, saved)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render incidents", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// EvaluateRange evaluates and persists every day of a range for one or all
// active employees.
func (h *Handler) EvaluateRange(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRangeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	maxDays := req.MaxDays
	if maxDays == 0 {
		maxDays = h.RangeMaxDays
	}
	rr := attendance.RangeRequest{
		From:        req.From,
		To:          req.To,
		MaxDays:     maxDays,
		Config:      evalConfig(req.DuplicateWindowMinutes, req.MissingPairGapMinutes),
		Parallelism: h.Parallelism,
	}
	if req.EmployeeID != nil {
		id := generic.EmployeeID(*req.EmployeeID)
		rr.EmployeeID = &id
	}

	summary, err := h.Ranges.EvaluateRange(r.Context(), rr)
	if err != nil {
		writeDomainError(w, "Failed to evaluate range", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// REPORTING HANDLERS
// =============================================================================

// ListIncidents returns the stored incidents of one date.
// GET /api/attendance/incidents?date=YYYY-MM-DD[&employee_id=N]
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	empID, err := queryEmployeeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee_id", err)
		return
	}

	recs, err := h.Store.ListIncidents(r.Context(), sqlite.IncidentFilter{
		Range:      generic.DateRange{From: date, To: date},
		EmployeeID: empID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list incidents", err)
		return
	}

	items := make([]IncidentDTO, len(recs))
	for i, rec := range recs {
		items[i] = toIncidentDTO(rec)
	}
	writeJSON(w, http.StatusOK, IncidentListResponse{
		Date:       date.String(),
		EmployeeID: idPtr(empID),
		Count:      len(items),
		Items:      items,
	})
}

// Summary counts incidents by kind and distinct incident dates.
// GET /api/attendance/summary?from=&to=[&employee_id=N]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	dr, err := queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}
	empID, err := queryEmployeeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee_id", err)
		return
	}

	ctx := r.Context()
	filter := sqlite.IncidentFilter{Range: dr, EmployeeID: empID}

	counts, err := h.Store.CountIncidentsByKind(ctx, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count incidents", err)
		return
	}
	days, err := h.Store.CountIncidentDays(ctx, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count incident days", err)
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		From:         dr.From.String(),
		To:           dr.To.String(),
		EmployeeID:   idPtr(empID),
		Counts:       kindCounts(counts),
		Total:        total,
		IncidentDays: days,
	})
}

// TopEmployees ranks employees by incident count.
// GET /api/attendance/summary/top?from=&to=[&limit=N]
func (h *Handler) TopEmployees(w http.ResponseWriter, r *http.Request) {
	dr, err := queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}
	limit, err := queryLimit(r, defaultTopLimit, maxTopLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	top, err := h.Store.TopEmployees(r.Context(), dr, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to rank employees", err)
		return
	}

	items := make([]TopEmployeeDTO, len(top))
	for i, t := range top {
		items[i] = TopEmployeeDTO{
			EmployeeID: int64(t.EmployeeID),
			Name:       t.Name,
			Total:      t.Total,
			ByIncident: kindCounts(t.ByIncident),
		}
	}
	writeJSON(w, http.StatusOK, TopEmployeesResponse{
		From:  dr.From.String(),
		To:    dr.To.String(),
		Limit: limit,
		Items: items,
	})
}

// ListEvaluationRuns returns the scheduled evaluation history, plus the
// next check time while the scheduler is running.
// GET /api/attendance/runs[?limit=N]
func (h *Handler) ListEvaluationRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultRunLimit, 365)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	runs, err := h.Store.ListEvaluationRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get evaluation runs", err)
		return
	}

	dtos := make([]EvaluationRunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toEvaluationRunDTO(run))
	}
	resp := map[string]any{"runs": dtos}
	if h.Scheduler != nil {
		if next, ok := h.Scheduler.NextRunAt(); ok {
			resp["next_run_at"] = next.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// TriggerEvaluationRun evaluates one date for every active employee now,
// bypassing the completed-run check.
// POST /api/attendance/runs[?date=YYYY-MM-DD] (default: yesterday)
func (h *Handler) TriggerEvaluationRun(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Scheduler not configured", nil)
		return
	}

	date := h.Scheduler.TargetDate(h.Scheduler.Now())
	if r.URL.Query().Get("date") != "" {
		d, err := queryDate(r, "date")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		date = d
	}

	run, err := h.Scheduler.RunDate(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Evaluation run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluationRunDTO(run))
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := employeeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return
	}

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates a new employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	emp := sqlite.Employee{
		ID:        generic.EmployeeID(req.ID),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
		IsActive:  req.IsActive == nil || *req.IsActive,
	}

	id, err := h.Store.SaveEmployee(r.Context(), emp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	emp.ID = id

	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// PUNCH HANDLERS
// =============================================================================

// ListPunches returns an employee's punches between two local dates.
// GET /api/employees/{id}/punches?from=&to=
func (h *Handler) ListPunches(w http.ResponseWriter, r *http.Request) {
	id, err := employeeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return
	}
	dr, err := queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}

	window := generic.TimeRange{
		Start: generic.DayRangeUTC(dr.From).Start,
		End:   generic.DayRangeUTC(dr.To).End,
	}
	punches, err := h.Store.PunchesBetween(r.Context(), id, window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list punches", err)
		return
	}

	dtos := make([]PunchDTO, len(punches))
	for i, p := range punches {
		dtos[i] = PunchDTO{ID: int64(p.ID), At: generic.InLocal(p.At), Type: string(p.Type)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePunch records a punch at a local wall-clock time.
func (h *Handler) CreatePunch(w http.ResponseWriter, r *http.Request) {
	id, err := employeeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return
	}
	var req CreatePunchRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	tod, err := generic.ParseTimeOfDay(req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time", err)
		return
	}
	at := generic.CombineDateAndTimeLocal(date, tod)

	source := req.Source
	if source == "" {
		source = "api"
	}
	punchID, err := h.Store.SavePunch(r.Context(), id, at, attendance.PunchType(req.Type), source)
	if err != nil {
		writeDomainError(w, "Failed to record punch", err)
		return
	}
	writeJSON(w, http.StatusCreated, PunchDTO{ID: int64(punchID), At: at, Type: req.Type})
}

// =============================================================================
// EXCEPTION HANDLERS
// =============================================================================

// ListExceptions returns an employee's exceptions in a date range.
// GET /api/employees/{id}/exceptions?from=&to=
func (h *Handler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	id, err := employeeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return
	}
	dr, err := queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}

	exceptions, err := h.Store.ListExceptions(r.Context(), id, dr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list exceptions", err)
		return
	}
	dtos := make([]ExceptionDTO, len(exceptions))
	for i, e := range exceptions {
		dtos[i] = toExceptionDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateException records a permission, absence or holiday.
func (h *Handler) CreateException(w http.ResponseWriter, r *http.Request) {
	id, err := employeeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return
	}
	var req CreateExceptionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	exc := attendance.ScheduleException{
		EmployeeID: id,
		Date:       date,
		Type:       attendance.ExceptionType(req.Type),
		Reason:     req.Reason,
	}

	if (req.StartTime == "") != (req.EndTime == "") {
		writeError(w, http.StatusBadRequest, "start_time and end_time must be given together", nil)
		return
	}
	if req.StartTime != "" {
		start, err := generic.ParseTimeOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_time", err)
			return
		}
		end, err := generic.ParseTimeOfDay(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_time", err)
			return
		}
		if !start.Before(end) {
			writeError(w, http.StatusBadRequest, "end_time must be after start_time", nil)
			return
		}
		exc.Start, exc.End = &start, &end
	}

	excID, err := h.Store.SaveException(r.Context(), exc)
	if err != nil {
		writeDomainError(w, "Failed to record exception", err)
		return
	}
	exc.ID = excID
	writeJSON(w, http.StatusCreated, toExceptionDTO(exc))
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// GetAssignments returns an employee's schedule assignments, newest first.
func (h *Handler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	id, err := employeeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return
	}
	assignments, err := h.Store.ListAssignments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assignments", err)
		return
	}

	dtos := make([]AssignmentDTO, len(assignments))
	for i, a := range assignments {
		dtos[i] = toAssignmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAssignment gives an employee a schedule template.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := employeeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return
	}
	var req CreateAssignmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	startsOn, err := generic.ParseDate(req.StartsOn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid starts_on", err)
		return
	}
	a := attendance.ScheduleAssignment{EmployeeID: id, TemplateID: req.TemplateID, StartsOn: startsOn}
	if req.EndsOn != "" {
		endsOn, err := generic.ParseDate(req.EndsOn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid ends_on", err)
			return
		}
		if endsOn.Before(startsOn) {
			writeError(w, http.StatusBadRequest, "ends_on must be on or after starts_on", generic.ErrInvalidRange)
			return
		}
		a.EndsOn = &endsOn
	}

	assignID, err := h.Store.SaveAssignment(r.Context(), a)
	if err != nil {
		writeDomainError(w, "Failed to create assignment", err)
		return
	}
	a.ID = assignID
	writeJSON(w, http.StatusCreated, toAssignmentDTO(a))
}

func toAssignmentDTO(a attendance.ScheduleAssignment) AssignmentDTO {
	dto := AssignmentDTO{
		ID:         a.ID,
		EmployeeID: int64(a.EmployeeID),
		TemplateID: a.TemplateID,
		StartsOn:   a.StartsOn.String(),
	}
	if a.EndsOn != nil {
		dto.EndsOn = a.EndsOn.String()
	}
	return dto
}

// =============================================================================
// TEMPLATE & RULE HANDLERS
// =============================================================================

// ListTemplates returns all schedule templates with their blocks.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Store.ListTemplates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates", err)
		return
	}
	dtos := make([]TemplateDTO, len(templates))
	for i, tpl := range templates {
		dtos[i] = toTemplateDTO(tpl)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTemplate creates a template from its JSON definition.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tj factory.TemplateJSON
	if err := json.NewDecoder(r.Body).Decode(&tj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tpl, err := h.Templates.Build(tj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid template", err)
		return
	}

	id, err := h.Store.SaveTemplate(r.Context(), tpl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save template", err)
		return
	}
	tpl.ID = id
	writeJSON(w, http.StatusCreated, toTemplateDTO(tpl))
}

// GetRules returns the active attendance rule.
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	rule, err := h.Store.ActiveRule(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rules", err)
		return
	}
	writeJSON(w, http.StatusOK, toRulesDTO(rule))
}

// UpdateRules stores a new active attendance rule. Already stored incidents
// are not re-evaluated.
func (h *Handler) UpdateRules(w http.ResponseWriter, r *http.Request) {
	var req RulesDTO
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	rule := req.rule()
	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rules", err)
		return
	}
	writeJSON(w, http.StatusOK, toRulesDTO(rule))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto 400/404/500.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeAndValidate decodes the JSON body into dst and runs the struct
// validator. On failure it writes the 400 response and returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return false
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Details: fields})
		return false
	}
	return true
}

func employeeIDParam(r *http.Request) (generic.EmployeeID, error) {
	return generic.ParseEmployeeID(chi.URLParam(r, "id"))
}

func queryDate(r *http.Request, key string) (generic.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return generic.Date{}, fmt.Errorf("%w: %q is required", generic.ErrInvalidDate, key)
	}
	return generic.ParseDate(v)
}

// queryRange reads from/to; a missing to means the single day from.
func queryRange(r *http.Request) (generic.DateRange, error) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if to == "" {
		to = from
	}
	return generic.ParseDateRange(from, to)
}

func queryEmployeeID(r *http.Request) (*generic.EmployeeID, error) {
	v := strings.TrimSpace(r.URL.Query().Get("employee_id"))
	if v == "" {
		return nil, nil
	}
	id, err := generic.ParseEmployeeID(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// queryLimit reads ?limit, defaulting to def and clamping to [1, upper].
func queryLimit(r *http.Request, def, upper int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer: %q", v)
	}
	switch {
	case n < 1:
		return 1, nil
	case n > upper:
		return upper, nil
	}
	return n, nil
}
