package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tabular-qa/cdmcheck/pkg/config"
	"tabular-qa/cdmcheck/pkg/report"
)

// Run status label values.
const (
	StatusPassed    = "passed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusError     = "error"
)

// overflowLabel replaces table names once the cardinality limit is reached.
const overflowLabel = "_other"

// Collector records validation metrics in a Prometheus registry. It
// implements validation.Observer.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	tableMetrics *TableMetrics
	runMetrics   *RunMetrics

	tables *CardinalityLimiter
}

// NewCollector creates a collector registering into registry, or a new
// registry if nil. Zero-valued config fields get the config defaults.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = config.DefaultDurationBuckets
	}

	return &Collector{
		config:       cfg,
		registry:     registry,
		tableMetrics: NewTableMetrics(cfg, registry),
		runMetrics:   NewRunMetrics(cfg, registry),
		tables:       NewCardinalityLimiter(1000),
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveTable records one validated table.
func (c *Collector) ObserveTable(table string, rows int, records []report.Record, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	if !c.tables.Allow(table) {
		table = overflowLabel
	}
	c.tableMetrics.Record(table, rows, records, duration)
}

// ObserveRun records one finished validation run.
func (c *Collector) ObserveRun(rep *report.Report, tables int, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	if rep == nil {
		rep = report.Empty()
	}

	status := StatusPassed
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		status = StatusCancelled
	case err != nil:
		status = StatusError
	case rep.Count() > 0:
		status = StatusFailed
	}

	for _, rec := range rep.Records() {
		if rec.Kind == report.KindTableLoadFailure {
			table := rec.Table
			if !c.tables.Allow(table) {
				table = overflowLabel
			}
			c.tableMetrics.loadFailures.WithLabelValues(table).Inc()
		}
	}

	c.runMetrics.Record(status, tables, rep.Count(), duration)
}

// RecordRunError records a run that failed before validation started, for
// example on an unreadable schema.
func (c *Collector) RecordRunError(duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.runMetrics.Record(StatusError, 0, 0, duration)
}

// CardinalityLimiter bounds the number of distinct values a label takes.
type CardinalityLimiter struct {
	max     int
	current map[string]struct{}
	mu      sync.Mutex
}

// NewCardinalityLimiter creates a limiter allowing max distinct values.
func NewCardinalityLimiter(max int) *CardinalityLimiter {
	return &CardinalityLimiter{max: max, current: make(map[string]struct{})}
}

// Allow reports whether value is already tracked or still fits under the
// limit, tracking it in the latter case.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, ok := cl.current[value]; ok {
		return true
	}
	if len(cl.current) >= cl.max {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the number of tracked values.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.current)
}
