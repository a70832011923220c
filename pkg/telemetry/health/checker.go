package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"tabular-qa/cdmcheck/pkg/history"
)

// Check and overall status values.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc performs a health check for a component. It returns nil if the
// component is healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the result of a single health check.
type CheckResult struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// Status is the overall health of the process.
type Status struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// ErrCheckTimeout is reported when a check does not finish in time.
var ErrCheckTimeout = errors.New("health check timeout")

// Checker runs named readiness checks.
type Checker struct {
	mu           sync.RWMutex
	checks       map[string]CheckFunc
	checkTimeout time.Duration
}

// New creates a checker. A zero timeout defaults to 5 seconds per check.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout <= 0 {
		checkTimeout = 5 * time.Second
	}
	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
	}
}

// RegisterCheck registers or replaces the check for a component.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// UnregisterCheck removes the check for a component.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// ListChecks returns the registered check names, sorted.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckLiveness reports that the process is running.
func (c *Checker) CheckLiveness(context.Context) Status {
	return Status{Status: StatusOK, Timestamp: time.Now()}
}

// CheckReadiness runs every registered check concurrently. The status is
// ready when all pass and degraded otherwise.
func (c *Checker) CheckReadiness(ctx context.Context) Status {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := c.runCheck(ctx, check)
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := StatusReady
	for _, r := range results {
		if r.Status != StatusOK {
			status = StatusDegraded
		}
	}
	return Status{Status: status, Checks: results, Timestamp: time.Now()}
}

func (c *Checker) runCheck(ctx context.Context, check CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()
	errCh := make(chan error, 1)
	go func() { errCh <- check(ctx) }()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	result := CheckResult{Status: StatusOK, Duration: time.Since(start)}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}

// FileCheck reports unhealthy when path cannot be stat'ed, such as a
// schema file or dataset directory that was removed.
func FileCheck(path string) CheckFunc {
	return func(context.Context) error {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s is not accessible: %w", path, err)
		}
		return nil
	}
}

// StorageCheck reports unhealthy when the history storage cannot be queried.
func StorageCheck(storage history.Storage) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := storage.Count(ctx, &history.Query{Limit: 1}); err != nil {
			return fmt.Errorf("history storage unavailable: %w", err)
		}
		return nil
	}
}

// RunTracker records the outcome of scheduled runs for the freshness check.
type RunTracker struct {
	mu          sync.RWMutex
	lastRun     time.Time
	lastSuccess time.Time
	lastStatus  history.Status
	now         func() time.Time
}

// NewRunTracker creates an empty tracker.
func NewRunTracker() *RunTracker {
	return &RunTracker{now: time.Now}
}

// Observe records a finished run. Passed and failed runs count as
// completed; cancelled and errored runs do not.
func (t *RunTracker) Observe(run *history.Run) {
	t.mu.Lock()
	defer t.mu.Unlock()

	finished := run.FinishedAt
	if finished.IsZero() {
		finished = t.now()
	}
	t.lastRun = finished
	t.lastStatus = run.Status
	if run.Status == history.StatusPassed || run.Status == history.StatusFailed {
		t.lastSuccess = finished
	}
}

// LastRun returns when the last run finished and its status.
func (t *RunTracker) LastRun() (time.Time, history.Status) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastRun, t.lastStatus
}

// FreshnessCheck reports unhealthy when no run has completed within maxAge.
// The grace period starts when the check is created.
func (t *RunTracker) FreshnessCheck(maxAge time.Duration) CheckFunc {
	started := t.now()
	return func(context.Context) error {
		t.mu.RLock()
		last := t.lastSuccess
		t.mu.RUnlock()

		ref := last
		if ref.IsZero() {
			ref = started
		}
		if age := t.now().Sub(ref); age > maxAge {
			if last.IsZero() {
				return fmt.Errorf("no completed run in %s", age.Round(time.Second))
			}
			return fmt.Errorf("last completed run was %s ago (max %s)", age.Round(time.Second), maxAge)
		}
		return nil
	}
}
