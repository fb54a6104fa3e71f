/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  attendance domain model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator struct tags. Handlers call
  decodeAndValidate, which answers 400 with a field -> failed-tag map.
  Cross-field rules (time pairs, date order) are checked in the handlers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/template.go: TemplateJSON request body
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store/sqlite"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// EVALUATION
// =============================================================================

// EvaluateRequest evaluates one employee-day. Unless DryRun is set the
// day's stored incidents are replaced.
type EvaluateRequest struct {
	EmployeeID             int64  `json:"employee_id" validate:"required,gt=0"`
	Date                   string `json:"date" validate:"required,datetime=2006-01-02"`
	DuplicateWindowMinutes *int   `json:"duplicate_window_minutes,omitempty" validate:"omitempty,min=0,max=120"`
	MissingPairGapMinutes  *int   `json:"missing_pair_gap_minutes,omitempty" validate:"omitempty,min=0,max=1440"`
	DryRun                 bool   `json:"dry_run,omitempty"`
}

// EvaluateRangeRequest evaluates and persists every day of a range.
type EvaluateRangeRequest struct {
	From                   string `json:"from" validate:"required,datetime=2006-01-02"`
	To                     string `json:"to" validate:"required,datetime=2006-01-02"`
	EmployeeID             *int64 `json:"employee_id,omitempty" validate:"omitempty,gt=0"`
	MaxDays                int    `json:"max_days,omitempty" validate:"omitempty,min=1,max=365"`
	DuplicateWindowMinutes *int   `json:"duplicate_window_minutes,omitempty" validate:"omitempty,min=0,max=120"`
	MissingPairGapMinutes  *int   `json:"missing_pair_gap_minutes,omitempty" validate:"omitempty,min=0,max=1440"`
}

func evalConfig(dup, gap *int) attendance.EvalConfig {
	cfg := attendance.DefaultEvalConfig()
	if dup != nil {
		cfg.DuplicateWindowMinutes = *dup
	}
	if gap != nil {
		cfg.MissingPairGapMinutes = *gap
	}
	return cfg
}

// EvaluatedIncidentDTO is an incident as produced by an evaluation.
type EvaluatedIncidentDTO struct {
	Incident      string          `json:"incident"`
	ExpectedStart *time.Time      `json:"expected_start,omitempty"`
	ExpectedEnd   *time.Time      `json:"expected_end,omitempty"`
	ActualTime    *time.Time      `json:"actual_time,omitempty"`
	Details       json.RawMessage `json:"details"`
}

// SessionDTO is a reconstructed IN/OUT pair.
type SessionDTO struct {
	In       time.Time  `json:"in"`
	Out      *time.Time `json:"out,omitempty"`
	Complete bool       `json:"complete"`
}

// TimeRangeDTO is a half-open instant range.
type TimeRangeDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EvaluateResponse is returned by POST /api/attendance/evaluate.
type EvaluateResponse struct {
	EmployeeID        int64                  `json:"employee_id"`
	Date              string                 `json:"date"`
	Saved             int                    `json:"saved"`
	Incidents         []EvaluatedIncidentDTO `json:"incidents"`
	ExpectedBlocks    []TimeRangeDTO         `json:"expected_blocks"`
	Sessions          []SessionDTO           `json:"sessions"`
	DuplicatePunchIDs []int64                `json:"duplicate_punch_ids"`
	Coverage          attendance.Coverage    `json:"coverage"`
}

func toEvaluateResponse(res attendance.Result, saved int) (EvaluateResponse, error) {
	resp := EvaluateResponse{
		EmployeeID:        int64(res.EmployeeID),
		Date:              res.Date.String(),
		Saved:             saved,
		Incidents:         make([]EvaluatedIncidentDTO, 0, len(res.Incidents)),
		ExpectedBlocks:    make([]TimeRangeDTO, 0, len(res.Expected.Blocks)),
		Sessions:          make([]SessionDTO, 0, len(res.Sessions.Sessions)),
		DuplicatePunchIDs: make([]int64, 0, len(res.DuplicateIDs)),
		Coverage:          res.Coverage,
	}
	for _, inc := range res.Incidents {
		details, err := inc.DetailsJSON()
		if err != nil {
			return EvaluateResponse{}, err
		}
		resp.Incidents = append(resp.Incidents, EvaluatedIncidentDTO{
			Incident:      string(inc.Kind),
			ExpectedStart: inc.ExpectedStart,
			ExpectedEnd:   inc.ExpectedEnd,
			ActualTime:    inc.ActualTime,
			Details:       details,
		})
	}
	for _, b := range res.Expected.Blocks {
		resp.ExpectedBlocks = append(resp.ExpectedBlocks, TimeRangeDTO{Start: b.Start, End: b.End})
	}
	for _, s := range res.Sessions.Sessions {
		resp.Sessions = append(resp.Sessions, SessionDTO{In: s.InAt, Out: s.OutAt, Complete: s.IsComplete})
	}
	for _, id := range res.DuplicateIDs {
		resp.DuplicatePunchIDs = append(resp.DuplicatePunchIDs, int64(id))
	}
	return resp, nil
}

// =============================================================================
// INCIDENTS & SUMMARIES
// =============================================================================

// IncidentDTO is a stored incident.
type IncidentDTO struct {
	ID            string          `json:"id"`
	EmployeeID    int64           `json:"employee_id"`
	Date          string          `json:"date"`
	Incident      string          `json:"incident"`
	ExpectedStart *time.Time      `json:"expected_start,omitempty"`
	ExpectedEnd   *time.Time      `json:"expected_end,omitempty"`
	ActualTime    *time.Time      `json:"actual_time,omitempty"`
	Details       json.RawMessage `json:"details"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toIncidentDTO(rec sqlite.IncidentRecord) IncidentDTO {
	return IncidentDTO{
		ID:            rec.ID,
		EmployeeID:    int64(rec.EmployeeID),
		Date:          rec.Date,
		Incident:      string(rec.Kind),
		ExpectedStart: rec.ExpectedStart,
		ExpectedEnd:   rec.ExpectedEnd,
		ActualTime:    rec.ActualTime,
		Details:       rec.Details,
		CreatedAt:     rec.CreatedAt,
	}
}

// IncidentListResponse is returned by GET /api/attendance/incidents.
type IncidentListResponse struct {
	Date       string        `json:"date"`
	EmployeeID *int64        `json:"employee_id"`
	Count      int           `json:"count"`
	Items      []IncidentDTO `json:"items"`
}

// SummaryResponse is returned by GET /api/attendance/summary.
type SummaryResponse struct {
	From         string         `json:"from"`
	To           string         `json:"to"`
	EmployeeID   *int64         `json:"employee_id"`
	Counts       map[string]int `json:"counts"`
	Total        int            `json:"total"`
	IncidentDays int            `json:"incident_days"`
}

// TopEmployeeDTO is one row of GET /api/attendance/summary/top.
type TopEmployeeDTO struct {
	EmployeeID int64          `json:"employee_id"`
	Name       string         `json:"name"`
	Total      int            `json:"total"`
	ByIncident map[string]int `json:"by_incident"`
}

// TopEmployeesResponse wraps the top-employees report.
type TopEmployeesResponse struct {
	From  string           `json:"from"`
	To    string           `json:"to"`
	Limit int              `json:"limit"`
	Items []TopEmployeeDTO `json:"items"`
}

func kindCounts(m map[attendance.IncidentKind]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

// EvaluationRunDTO is a scheduled daily evaluation record.
type EvaluationRunDTO struct {
	ID          string `json:"id"`
	RunDate     string `json:"run_date"`
	Status      string `json:"status"`
	Employees   int    `json:"employees"`
	Evaluations int    `json:"evaluations"`
	Saved       int    `json:"saved"`
	Failures    int    `json:"failures"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toEvaluationRunDTO(run sqlite.EvaluationRun) EvaluationRunDTO {
	dto := EvaluationRunDTO{
		ID:          run.ID,
		RunDate:     run.RunDate.String(),
		Status:      run.Status,
		Employees:   run.Employees,
		Evaluations: run.Evaluations,
		Saved:       run.Saved,
		Failures:    run.Failures,
		Error:       run.Error,
	}
	if run.StartedAt != nil {
		dto.StartedAt = run.StartedAt.Format(time.RFC3339)
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toEmployeeDTO(e sqlite.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:        int64(e.ID),
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Name:      e.Name(),
		Email:     e.Email,
		IsActive:  e.IsActive,
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// CreateEmployeeRequest creates an employee. ID is optional; when set the
// employee is created with (or updated at) that id.
type CreateEmployeeRequest struct {
	ID        int64  `json:"id,omitempty" validate:"omitempty,gt=0"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	IsActive  *bool  `json:"is_active,omitempty"`
}

// =============================================================================
// PUNCHES, EXCEPTIONS, ASSIGNMENTS
// =============================================================================

// CreatePunchRequest records a punch at a local date and wall-clock time.
type CreatePunchRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Time   string `json:"time" validate:"required,datetime=15:04"`
	Type   string `json:"type" validate:"required,oneof=IN OUT"`
	Source string `json:"source,omitempty" validate:"max=50"`
}

// PunchDTO is a stored punch; at is rendered in local time.
type PunchDTO struct {
	ID   int64     `json:"id"`
	At   time.Time `json:"at"`
	Type string    `json:"type"`
}

// CreateExceptionRequest records a date-specific override. Omitting both
// times makes it a full-day exception.
type CreateExceptionRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Type      string `json:"type" validate:"required,oneof=PERMISSION ABSENCE HOLIDAY"`
	StartTime string `json:"start_time,omitempty" validate:"omitempty,datetime=15:04"`
	EndTime   string `json:"end_time,omitempty" validate:"omitempty,datetime=15:04"`
	Reason    string `json:"reason,omitempty" validate:"max=255"`
}

// ExceptionDTO is a stored schedule exception.
type ExceptionDTO struct {
	ID         int64  `json:"id"`
	EmployeeID int64  `json:"employee_id"`
	Date       string `json:"date"`
	Type       string `json:"type"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func toExceptionDTO(e attendance.ScheduleException) ExceptionDTO {
	dto := ExceptionDTO{
		ID:         e.ID,
		EmployeeID: int64(e.EmployeeID),
		Date:       e.Date.String(),
		Type:       string(e.Type),
		Reason:     e.Reason,
	}
	if e.Start != nil {
		dto.StartTime = e.Start.String()
	}
	if e.End != nil {
		dto.EndTime = e.End.String()
	}
	return dto
}

// CreateAssignmentRequest gives an employee a schedule template.
type CreateAssignmentRequest struct {
	TemplateID int64  `json:"template_id" validate:"required,gt=0"`
	StartsOn   string `json:"starts_on" validate:"required,datetime=2006-01-02"`
	EndsOn     string `json:"ends_on,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// AssignmentDTO is a stored schedule assignment.
type AssignmentDTO struct {
	ID         int64  `json:"id"`
	EmployeeID int64  `json:"employee_id"`
	TemplateID int64  `json:"template_id"`
	StartsOn   string `json:"starts_on"`
	EndsOn     string `json:"ends_on,omitempty"`
}

// =============================================================================
// TEMPLATES & RULES
// =============================================================================

// TemplateDTO is a stored schedule template with its weekly blocks.
type TemplateDTO struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	ValidFrom string     `json:"valid_from"`
	Blocks    []BlockDTO `json:"blocks"`
}

// BlockDTO is one weekly slot of a template.
type BlockDTO struct {
	Weekday          int    `json:"weekday"`
	Start            string `json:"start"`
	End              string `json:"end"`
	Type             string `json:"type"`
	RequiresPresence bool   `json:"requires_presence"`
	Label            string `json:"label,omitempty"`
}

func toTemplateDTO(tpl attendance.ScheduleTemplate) TemplateDTO {
	dto := TemplateDTO{
		ID:        tpl.ID,
		Name:      tpl.Name,
		ValidFrom: tpl.ValidFrom.String(),
		Blocks:    make([]BlockDTO, 0, len(tpl.Blocks)),
	}
	for _, b := range tpl.Blocks {
		dto.Blocks = append(dto.Blocks, BlockDTO{
			Weekday:          b.Weekday,
			Start:            b.Start.String(),
			End:              b.End.String(),
			Type:             string(b.BlockType),
			RequiresPresence: b.RequiresPresence,
			Label:            b.Label,
		})
	}
	return dto
}

// RulesDTO carries the attendance thresholds in both directions.
type RulesDTO struct {
	LateGraceMinutes             *int `json:"late_grace_minutes" validate:"required,min=0,max=240"`
	EarlyLeaveGraceMinutes       *int `json:"early_leave_grace_minutes" validate:"required,min=0,max=240"`
	MinGapMinutesToAllowCheckout *int `json:"min_gap_minutes_to_allow_checkout" validate:"required,min=0,max=720"`
}

func toRulesDTO(r attendance.AttendanceRule) RulesDTO {
	late, early, gap := r.LateGraceMinutes, r.EarlyLeaveGraceMinutes, r.MinGapMinutesToAllowCheckout
	return RulesDTO{LateGraceMinutes: &late, EarlyLeaveGraceMinutes: &early, MinGapMinutesToAllowCheckout: &gap}
}

func (d RulesDTO) rule() attendance.AttendanceRule {
	return attendance.AttendanceRule{
		LateGraceMinutes:             *d.LateGraceMinutes,
		EarlyLeaveGraceMinutes:       *d.EarlyLeaveGraceMinutes,
		MinGapMinutesToAllowCheckout: *d.MinGapMinutesToAllowCheckout,
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// idPtr converts an optional employee id for responses.
func idPtr(id *generic.EmployeeID) *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}
