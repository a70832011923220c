package validation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tabular-qa/cdmcheck/pkg/dataset"
	"tabular-qa/cdmcheck/pkg/report"
	"tabular-qa/cdmcheck/pkg/schema"
)

// Phase is the engine's position in a validation run.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseDone    Phase = "done"
)

// State is a snapshot of the engine's progress.
type State struct {
	Phase Phase

	// Table is the most recently started table while running.
	Table string

	// Completed and Total count the loaded tables of the current run.
	Completed int
	Total     int
}

// Progress is passed to the progress hook when a table starts and finishes.
type Progress struct {
	Table    string
	Index    int // position among the tables being validated
	Total    int
	Finished bool
	Records  int
	Duration time.Duration
}

// Observer receives per-table and per-run measurements. The metrics
// collector implements it.
type Observer interface {
	ObserveTable(table string, rows int, records []report.Record, duration time.Duration)
	ObserveRun(rep *report.Report, tables int, duration time.Duration, err error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallelism sets how many tables are validated concurrently.
// It also bounds chunk concurrency within a table.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithChunkSize sets the rows per chunk for the datatype and length scans.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *Normalizer) Option {
	return func(e *Engine) {
		if n != nil {
			e.normalizer = n
		}
	}
}

// WithObserver registers an observer for run measurements.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithProgress registers a hook called as tables start and finish.
// The hook may be called from multiple goroutines.
func WithProgress(fn func(Progress)) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// Engine orchestrates the checks over every loaded table of a schema.
type Engine struct {
	parallelism int
	chunkSize   int
	normalizer  *Normalizer
	observer    Observer
	progress    func(Progress)
	checker     *Checker
	logger      *slog.Logger

	mu    sync.Mutex
	state State
}

// NewEngine creates an engine with the given options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		parallelism: 1,
		chunkSize:   DefaultChunkSize,
		logger:      slog.Default().With("component", "validation.engine"),
		state:       State{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.normalizer == nil {
		e.normalizer = NewNormalizer()
	}
	e.checker = NewChecker(e.normalizer, e.chunkSize, e.parallelism)
	return e
}

// State returns a snapshot of the engine's progress.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Checker returns the checker the engine runs.
func (e *Engine) Checker() *Checker {
	return e.checker
}

// Validate runs every check against each schema table present in ds, in
// schema order, and returns the report. Tables absent from ds are skipped.
//
// Violations never stop the run. The context is checked between tables only;
// on cancellation the report holds the tables finished so far and the
// context's error is returned alongside it.
func (e *Engine) Validate(ctx context.Context, s *schema.Schema, ds *dataset.Dataset) (*report.Report, error) {
	return e.ValidateLoaded(ctx, s, ds, nil)
}

// ValidateLoaded is Validate for a dataset produced by dataset.Load. Load
// failures are reported as TableLoadFailure records ahead of the check
// records.
func (e *Engine) ValidateLoaded(ctx context.Context, s *schema.Schema, ds *dataset.Dataset, failures []*dataset.LoadError) (*report.Report, error) {
	if s == nil {
		return nil, errors.New("validation: schema is nil")
	}
	start := time.Now()

	var tables []*schema.Table
	for _, ts := range s.Tables {
		if !ds.Has(ts.Name) {
			e.logger.DebugContext(ctx, "skipping table not loaded", "table", ts.Name)
			continue
		}
		tables = append(tables, ts)
	}

	e.setState(State{Phase: PhaseRunning, Total: len(tables)})

	results := make([]*report.Builder, len(tables))
	var runErr error
	if e.parallelism <= 1 || len(tables) <= 1 {
		runErr = e.runSequential(ctx, tables, ds, results)
	} else {
		runErr = e.runParallel(ctx, tables, ds, results)
	}

	b := report.NewBuilder()
	for _, rec := range dataset.FailureRecords(failures) {
		b.Add(rec)
	}
	for _, local := range results {
		b.Merge(local)
	}
	rep := b.Build()

	e.mu.Lock()
	e.state.Phase = PhaseDone
	e.mu.Unlock()

	duration := time.Since(start)
	if e.observer != nil {
		e.observer.ObserveRun(rep, len(tables), duration, runErr)
	}

	if runErr != nil {
		e.logger.WarnContext(ctx, "validation cancelled",
			"tables_completed", e.State().Completed,
			"tables_total", len(tables),
			"records", rep.Count(),
			"error", runErr,
		)
		return rep, runErr
	}

	e.logger.InfoContext(ctx, "validation completed",
		"tables", len(tables),
		"load_failures", len(failures),
		"records", rep.Count(),
		"duration", duration,
	)
	return rep, nil
}

func (e *Engine) runSequential(ctx context.Context, tables []*schema.Table, ds *dataset.Dataset, results []*report.Builder) error {
	for i, ts := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		results[i] = e.validateTable(ctx, i, len(tables), ts, ds)
	}
	return nil
}

func (e *Engine) runParallel(ctx context.Context, tables []*schema.Table, ds *dataset.Dataset, results []*report.Builder) error {
	var g errgroup.Group
	g.SetLimit(e.parallelism)

	for i, ts := range tables {
		g.Go(func() error {
			// A table that has started always runs to completion.
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.validateTable(ctx, i, len(tables), ts, ds)
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) validateTable(ctx context.Context, index, total int, ts *schema.Table, ds *dataset.Dataset) *report.Builder {
	t, _ := ds.Table(ts.Name)
	start := time.Now()

	e.mu.Lock()
	e.state.Table = ts.Name
	e.mu.Unlock()
	if e.progress != nil {
		e.progress(Progress{Table: ts.Name, Index: index, Total: total})
	}

	e.logger.DebugContext(ctx, "validating table", "table", ts.Name, "rows", t.Len())
	local := e.checker.Table(ts, t, ds)
	duration := time.Since(start)

	e.mu.Lock()
	e.state.Completed++
	e.mu.Unlock()

	if e.observer != nil || e.progress != nil {
		recs := local.Build().Records()
		if e.observer != nil {
			e.observer.ObserveTable(ts.Name, t.Len(), recs, duration)
		}
		if e.progress != nil {
			e.progress(Progress{
				Table:    ts.Name,
				Index:    index,
				Total:    total,
				Finished: true,
				Records:  len(recs),
				Duration: duration,
			})
		}
	}

	e.logger.DebugContext(ctx, "table validated",
		"table", ts.Name,
		"records", local.Len(),
		"duration", duration,
	)
	return local
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}
