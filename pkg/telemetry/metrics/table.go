package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tabular-qa/cdmcheck/pkg/config"
	"tabular-qa/cdmcheck/pkg/report"
)

// TableMetrics tracks per-table validation metrics.
//
// Metrics:
//   - cdmcheck_tables_validated_total: Tables validated, by table
//   - cdmcheck_rows_checked_total: Rows checked, by table
//   - cdmcheck_table_duration_seconds: Time to check one table
//   - cdmcheck_violations_total: Report records, by table and kind
//   - cdmcheck_table_load_failures_total: Tables that could not be loaded
type TableMetrics struct {
	validatedTotal *prometheus.CounterVec
	rowsTotal      *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	violations     *prometheus.CounterVec
	loadFailures   *prometheus.CounterVec
}

// NewTableMetrics creates and registers table metrics.
func NewTableMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *TableMetrics {
	tm := &TableMetrics{
		validatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "tables_validated_total",
				Help:      "Total number of tables validated",
			},
			[]string{"table"},
		),
		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rows_checked_total",
				Help:      "Total number of rows checked",
			},
			[]string{"table"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "table_duration_seconds",
				Help:      "Time spent checking one table in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"table"},
		),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "violations_total",
				Help:      "Total number of report records by kind",
			},
			[]string{"table", "kind"},
		),
		loadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "table_load_failures_total",
				Help:      "Total number of tables that could not be loaded",
			},
			[]string{"table"},
		),
	}

	registry.MustRegister(
		tm.validatedTotal,
		tm.rowsTotal,
		tm.duration,
		tm.violations,
		tm.loadFailures,
	)
	return tm
}

// Record records one validated table and its records.
func (tm *TableMetrics) Record(table string, rows int, records []report.Record, duration time.Duration) {
	tm.validatedTotal.WithLabelValues(table).Inc()
	tm.rowsTotal.WithLabelValues(table).Add(float64(rows))
	tm.duration.WithLabelValues(table).Observe(duration.Seconds())

	counts := make(map[report.Kind]int)
	for _, rec := range records {
		counts[rec.Kind]++
	}
	for kind, n := range counts {
		tm.violations.WithLabelValues(table, string(kind)).Add(float64(n))
	}
}
