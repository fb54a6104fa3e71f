/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/health           Liveness
  /api/attendance/*     Evaluation, incidents, reports, runs
  /api/employees/*      Employees and their punches/exceptions/assignments
  /api/schedules/*      Schedule templates
  /api/rules            Attendance thresholds
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultCORSOrigins are the local frontend dev servers.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured. An empty
// corsOrigins falls back to DefaultCORSOrigins.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	if len(corsOrigins) == 0 {
		corsOrigins = DefaultCORSOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/evaluate", h.Evaluate)
			r.Post("/evaluate-range", h.EvaluateRange)
			r.Get("/incidents", h.ListIncidents)
			r.Get("/incidents/export", h.ExportIncidents)
			r.Get("/summary", h.Summary)
			r.Get("/summary/top", h.TopEmployees)
			r.Get("/runs", h.ListEvaluationRuns)
			r.Post("/runs", h.TriggerEvaluationRun)
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/punches", h.ListPunches)
			r.Post("/{id}/punches", h.CreatePunch)
			r.Get("/{id}/exceptions", h.ListExceptions)
			r.Post("/{id}/exceptions", h.CreateException)
			r.Get("/{id}/assignments", h.GetAssignments)
			r.Post("/{id}/assignments", h.CreateAssignment)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/templates", h.ListTemplates)
			r.Post("/templates", h.CreateTemplate)
		})

		r.Get("/rules", h.GetRules)
		r.Put("/rules", h.UpdateRules)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
