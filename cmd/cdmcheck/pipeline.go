package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tabular-qa/cdmcheck/pkg/config"
	"tabular-qa/cdmcheck/pkg/dataset"
	"tabular-qa/cdmcheck/pkg/history"
	"tabular-qa/cdmcheck/pkg/report"
	"tabular-qa/cdmcheck/pkg/schema"
	"tabular-qa/cdmcheck/pkg/telemetry/health"
	"tabular-qa/cdmcheck/pkg/telemetry/logging"
	"tabular-qa/cdmcheck/pkg/telemetry/metrics"
	"tabular-qa/cdmcheck/pkg/validation"
)

// pipeline runs one validation: schema acquisition, dataset load, checks,
// then bookkeeping in history, metrics and the run tracker. The optional
// fields may be nil.
type pipeline struct {
	cfg *config.Config

	collector *metrics.Collector
	progress  func(validation.Progress)
	history   history.Storage
	tracker   *health.RunTracker

	logger *slog.Logger
}

func newPipeline(cfg *config.Config) *pipeline {
	return &pipeline{
		cfg:    cfg,
		logger: slog.Default().With("component", "cdmcheck.pipeline"),
	}
}

// run performs one validation. The report is nil when the run failed before
// checks started; a schema or source error is returned as is. A cancelled
// run returns the partial report with the context error.
func (p *pipeline) run(ctx context.Context, trigger history.Trigger) (*history.Run, *report.Report, error) {
	run := history.NewRun(p.cfg.Schema.Path, sourceDescription(p.cfg.Source), trigger)
	ctx = logging.WithRunID(ctx, run.ID)
	ctx = logging.WithTrigger(ctx, string(trigger))
	start := time.Now()

	rep, tables, err := p.validate(ctx)

	run.Complete(rep, tables, err, p.cfg.History.MaxRecords)
	if rep == nil && p.collector != nil {
		p.collector.RecordRunError(time.Since(start))
	}
	p.record(ctx, run)

	if err != nil {
		p.logger.ErrorContext(ctx, "validation run failed", "status", run.Status, "error", err)
	} else {
		p.logger.InfoContext(ctx, "validation run finished",
			"status", run.Status,
			"tables", run.Tables,
			"records", run.RecordCount,
			"duration", run.Duration(),
		)
	}
	return run, rep, err
}

func (p *pipeline) validate(ctx context.Context) (*report.Report, int, error) {
	if p.cfg.Schema.Path == "" {
		return nil, 0, errors.New("no schema file given")
	}
	s, err := schema.NewParser().WithMaxFileSize(p.cfg.Schema.MaxFileSize).Parse(p.cfg.Schema.Path)
	if err != nil {
		return nil, 0, err
	}

	loader, err := newLoader(ctx, p.cfg.Source)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open data source: %w", err)
	}
	defer loader.Close()

	loadCtx := ctx
	if p.cfg.Source.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, p.cfg.Source.LoadTimeout)
		defer cancel()
	}
	ds, failures, err := dataset.Load(loadCtx, loader, s.TableNames())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load dataset: %w", err)
	}

	checkCtx := ctx
	if p.cfg.Validation.Timeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, p.cfg.Validation.Timeout)
		defer cancel()
	}
	rep, err := p.engine().ValidateLoaded(checkCtx, s, ds, failures)
	return rep, ds.Len(), err
}

func (p *pipeline) engine() *validation.Engine {
	opts := []validation.Option{
		validation.WithParallelism(p.cfg.Validation.Parallelism),
		validation.WithChunkSize(p.cfg.Validation.ChunkSize),
		validation.WithNormalizer(validation.NewNormalizer(p.cfg.Validation.DatetimeLayouts...)),
	}
	if p.collector != nil {
		opts = append(opts, validation.WithObserver(p.collector))
	}
	if p.progress != nil {
		opts = append(opts, validation.WithProgress(p.progress))
	}
	return validation.NewEngine(opts...)
}

func (p *pipeline) record(ctx context.Context, run *history.Run) {
	if p.tracker != nil {
		p.tracker.Observe(run)
	}
	if p.history == nil {
		return
	}
	// A cancelled caller context must not lose the run record.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.history.Store(storeCtx, run); err != nil {
		p.logger.WarnContext(ctx, "failed to store run history", "error", err)
	}
}
