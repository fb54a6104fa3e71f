package attendance

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// RANGE EVALUATION - Many employees, many days
// =============================================================================

const (
	// PreviewLimit caps the per-day rows returned with a range summary.
	PreviewLimit = 50

	DefaultRangeParallelism = 4
)

// RangeRequest describes a range evaluation. A nil EmployeeID means every
// active employee.
type RangeRequest struct {
	From        string
	To          string
	EmployeeID  *generic.EmployeeID
	MaxDays     int
	Config      EvalConfig
	Parallelism int
}

// DayOutcome is one evaluated (employee, date) pair.
type DayOutcome struct {
	EmployeeID generic.EmployeeID `json:"employee_id"`
	Date       string             `json:"date"`
	Saved      int                `json:"saved"`
	Incidents  int                `json:"incidents"`
}

// DayFailure is an (employee, date) pair that could not be evaluated or saved.
type DayFailure struct {
	EmployeeID generic.EmployeeID `json:"employee_id"`
	Date       string             `json:"date"`
	Error      string             `json:"error"`
}

type RangeSummary struct {
	From        string       `json:"from"`
	To          string       `json:"to"`
	Days        int          `json:"days"`
	Employees   int          `json:"employees"`
	Evaluations int          `json:"evaluations"`
	TotalSaved  int          `json:"total_saved"`
	Failures    []DayFailure `json:"failures"`
	Preview     []DayOutcome `json:"preview"`
}

// RangeRunner evaluates and persists every day of a range. Employees run in
// parallel; each employee's days run in order. A failing day is recorded
// and the run moves on.
type RangeRunner struct {
	Evaluator *Evaluator
	Directory EmployeeDirectory
}

func NewRangeRunner(s Store) *RangeRunner {
	return &RangeRunner{Evaluator: NewStoreEvaluator(s), Directory: s}
}

// EvaluateRange validates the request, then evaluates the range. Validation
// errors are returned before any day is touched. Cancelling ctx stops
// further days; the summary gathered so far is returned with ctx's error.
func (rr *RangeRunner) EvaluateRange(ctx context.Context, req RangeRequest) (RangeSummary, error) {
	dr, err := generic.ParseDateRange(req.From, req.To)
	if err != nil {
		return RangeSummary{}, err
	}
	if err := dr.Bound(generic.ClampMaxDays(req.MaxDays)); err != nil {
		return RangeSummary{}, err
	}

	employees, err := rr.employees(ctx, req.EmployeeID)
	if err != nil {
		return RangeSummary{}, err
	}

	parallelism := req.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultRangeParallelism
	}

	days := dr.Days()
	agg := &rangeAggregator{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, empID := range employees {
		empID := empID
		g.Go(func() error {
			for _, day := range days {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, saved, err := rr.Evaluator.EvaluateAndPersist(gctx, empID, day.String(), req.Config)
				if err != nil {
					log.Printf("[Range] %s/%s failed: %v", empID, day, err)
					agg.fail(DayFailure{EmployeeID: empID, Date: day.String(), Error: err.Error()})
					continue
				}
				agg.add(DayOutcome{EmployeeID: empID, Date: day.String(), Saved: saved, Incidents: len(res.Incidents)})
			}
			return nil
		})
	}
	waitErr := g.Wait()

	summary := agg.summary(dr, len(employees))
	log.Printf("[Range] %s: %d employees, %d evaluations, %d saved, %d failures",
		dr, summary.Employees, summary.Evaluations, summary.TotalSaved, len(summary.Failures))

	if waitErr != nil {
		return summary, fmt.Errorf("range evaluation interrupted: %w", waitErr)
	}
	return summary, nil
}

func (rr *RangeRunner) employees(ctx context.Context, only *generic.EmployeeID) ([]generic.EmployeeID, error) {
	if only != nil {
		if *only <= 0 {
			return nil, generic.ErrEmployeeRequired
		}
		return []generic.EmployeeID{*only}, nil
	}
	ids, err := rr.Directory.ActiveEmployeeIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	return ids, nil
}

// =============================================================================
// AGGREGATION
// =============================================================================

type rangeAggregator struct {
	mu       sync.Mutex
	outcomes []DayOutcome
	failures []DayFailure
}

func (a *rangeAggregator) add(o DayOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes = append(a.outcomes, o)
}

func (a *rangeAggregator) fail(f DayFailure) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = append(a.failures, f)
}

func (a *rangeAggregator) summary(dr generic.DateRange, employees int) RangeSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	sort.Slice(a.outcomes, func(i, j int) bool {
		if a.outcomes[i].EmployeeID != a.outcomes[j].EmployeeID {
			return a.outcomes[i].EmployeeID < a.outcomes[j].EmployeeID
		}
		return a.outcomes[i].Date < a.outcomes[j].Date
	})
	sort.Slice(a.failures, func(i, j int) bool {
		if a.failures[i].EmployeeID != a.failures[j].EmployeeID {
			return a.failures[i].EmployeeID < a.failures[j].EmployeeID
		}
		return a.failures[i].Date < a.failures[j].Date
	})

	s := RangeSummary{
		From:        dr.From.String(),
		To:          dr.To.String(),
		Days:        dr.Len(),
		Employees:   employees,
		Evaluations: len(a.outcomes),
		Failures:    append([]DayFailure{}, a.failures...),
		Preview:     make([]DayOutcome, 0, min(len(a.outcomes), PreviewLimit)),
	}
	for i, o := range a.outcomes {
		s.TotalSaved += o.Saved
		if i < PreviewLimit {
			s.Preview = append(s.Preview, o)
		}
	}
	return s
}
