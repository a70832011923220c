package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tabular-qa/cdmcheck/pkg/config"
)

// RunMetrics tracks whole validation runs.
//
// Metrics:
//   - cdmcheck_runs_total: Runs by status (passed, failed, cancelled, error)
//   - cdmcheck_run_duration_seconds: Run duration
//   - cdmcheck_last_run_timestamp_seconds: Unix time the last run finished
//   - cdmcheck_last_success_timestamp_seconds: Unix time of the last passed or failed run
//   - cdmcheck_last_run_records: Records in the last run's report
//   - cdmcheck_last_run_tables: Tables validated in the last run
type RunMetrics struct {
	runsTotal   *prometheus.CounterVec
	duration    prometheus.Histogram
	lastRun     prometheus.Gauge
	lastSuccess prometheus.Gauge
	lastRecords prometheus.Gauge
	lastTables  prometheus.Gauge

	now func() time.Time
}

// NewRunMetrics creates and registers run metrics.
func NewRunMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RunMetrics {
	rm := &RunMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "runs_total",
				Help:      "Total number of validation runs by status",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "run_duration_seconds",
			Help:      "Validation run duration in seconds",
			Buckets:   cfg.DurationBuckets,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last validation run finished",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last run completed without an error",
		}),
		lastRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "last_run_records",
			Help:      "Number of records in the last run's report",
		}),
		lastTables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "last_run_tables",
			Help:      "Number of tables validated in the last run",
		}),
		now: time.Now,
	}

	registry.MustRegister(
		rm.runsTotal,
		rm.duration,
		rm.lastRun,
		rm.lastSuccess,
		rm.lastRecords,
		rm.lastTables,
	)
	return rm
}

// Record records one run. A failed run still completed, so it updates the
// last success time; cancelled and errored runs do not.
func (rm *RunMetrics) Record(status string, tables, records int, duration time.Duration) {
	now := float64(rm.now().UnixNano()) / 1e9

	rm.runsTotal.WithLabelValues(status).Inc()
	rm.duration.Observe(duration.Seconds())
	rm.lastRun.Set(now)
	if status == StatusPassed || status == StatusFailed {
		rm.lastSuccess.Set(now)
		rm.lastRecords.Set(float64(records))
		rm.lastTables.Set(float64(tables))
	}
}
