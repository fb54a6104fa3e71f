/*
scheduler.go - Automated daily evaluation scheduler

PURPOSE:
  Periodically evaluates the previous local day for every active employee,
  so incidents exist without anyone calling the evaluate endpoints.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Target date is yesterday in the local zone
  - Skips dates that already have a completed evaluation run
  - Records every run (status, counts, error) for audit and UI display

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewEvaluationScheduler(store, ranges)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerEvaluationRun endpoint (manual run)
  - attendance/range.go: RangeRunner
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store/sqlite"
)

// EvaluationScheduler handles the automated daily evaluation.
type EvaluationScheduler struct {
	Store         *sqlite.Store
	Ranges        *attendance.RangeRunner
	CheckInterval time.Duration
	Enabled       bool
	Config        attendance.EvalConfig
	Parallelism   int

	// Now is the clock the target date is derived from.
	Now func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	// stateMu guards lastCheck; mu is held by Stop while run finishes.
	stateMu   sync.Mutex
	lastCheck time.Time
}

// NewEvaluationScheduler creates a new scheduler.
func NewEvaluationScheduler(store *sqlite.Store, ranges *attendance.RangeRunner) *EvaluationScheduler {
	return &EvaluationScheduler{
		Store:         store,
		Ranges:        ranges,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Config:        attendance.DefaultEvalConfig(),
		Parallelism:   attendance.DefaultRangeParallelism,
		Now:           time.Now,
	}
}

// Start begins the scheduler.
func (es *EvaluationScheduler) Start() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if !es.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	if es.ticker != nil {
		return
	}

	es.ticker = time.NewTicker(es.CheckInterval)
	es.stop = make(chan struct{})
	es.wg.Add(1)

	go es.run(es.ticker, es.stop)

	log.Printf("[Scheduler] Started with check interval: %v", es.CheckInterval)
}

// Stop stops the scheduler.
func (es *EvaluationScheduler) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.ticker != nil {
		es.ticker.Stop()
		close(es.stop)
		es.wg.Wait()
		es.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (es *EvaluationScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer es.wg.Done()

	// Run immediately on start
	es.checkAndProcess()

	for {
		select {
		case <-ticker.C:
			es.checkAndProcess()
		case <-stop:
			return
		}
	}
}

// TargetDate is the local calendar day before now.
func (es *EvaluationScheduler) TargetDate(now time.Time) generic.Date {
	return generic.LocalDateOf(now).AddDays(-1)
}

func (es *EvaluationScheduler) checkAndProcess() {
	ctx := context.Background()
	now := es.Now()
	es.stateMu.Lock()
	es.lastCheck = now
	es.stateMu.Unlock()

	date := es.TargetDate(now)

	done, err := es.Store.IsRunComplete(ctx, date)
	if err != nil {
		log.Printf("[Scheduler] Error checking run status for %s: %v", date, err)
		return
	}
	if done {
		return
	}

	log.Printf("[Scheduler] Evaluating %s", date)
	if _, err := es.RunDate(ctx, date); err != nil {
		log.Printf("[Scheduler] Error evaluating %s: %v", date, err)
	}
}

// RunDate evaluates one date for every active employee and records the run.
// It does not check whether the date was already evaluated.
func (es *EvaluationScheduler) RunDate(ctx context.Context, date generic.Date) (sqlite.EvaluationRun, error) {
	run := sqlite.NewEvaluationRun(date)
	if err := es.Store.SaveEvaluationRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to save run record: %w", err)
	}

	summary, err := es.Ranges.EvaluateRange(ctx, attendance.RangeRequest{
		From:        date.String(),
		To:          date.String(),
		Config:      es.Config,
		Parallelism: es.Parallelism,
	})
	run.Employees = summary.Employees
	run.Evaluations = summary.Evaluations
	run.Saved = summary.TotalSaved
	run.Failures = len(summary.Failures)

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	switch {
	case err != nil:
		run.Status = sqlite.RunFailed
		run.Error = err.Error()
	case run.Failures > 0:
		run.Status = sqlite.RunFailed
		run.Error = fmt.Sprintf("%d of %d evaluations failed", run.Failures, run.Failures+run.Evaluations)
	default:
		run.Status = sqlite.RunCompleted
	}

	if saveErr := es.Store.SaveEvaluationRun(ctx, run); saveErr != nil {
		return run, fmt.Errorf("failed to update run record: %w", saveErr)
	}

	log.Printf("[Scheduler] Processed %s: status=%s, evaluations=%d, saved=%d, failures=%d",
		date, run.Status, run.Evaluations, run.Saved, run.Failures)

	if err != nil {
		return run, err
	}
	return run, nil
}

// RunNow triggers an immediate check (for testing/admin).
func (es *EvaluationScheduler) RunNow() {
	es.checkAndProcess()
}

// NextRunAt returns when the next scheduled check will occur. It reports
// false while the scheduler is not running.
func (es *EvaluationScheduler) NextRunAt() (time.Time, bool) {
	es.mu.Lock()
	running := es.ticker != nil
	es.mu.Unlock()
	if !running {
		return time.Time{}, false
	}

	es.stateMu.Lock()
	defer es.stateMu.Unlock()
	if es.lastCheck.IsZero() {
		return es.Now(), true
	}
	return es.lastCheck.Add(es.CheckInterval), true
}
