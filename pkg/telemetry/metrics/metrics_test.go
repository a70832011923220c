package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"tabular-qa/cdmcheck/pkg/config"
	"tabular-qa/cdmcheck/pkg/report"
	"tabular-qa/cdmcheck/pkg/validation"
)

var _ validation.Observer = (*Collector)(nil)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		DurationBuckets: []float64{0.01, 0.1, 1},
	}
}

func records(kinds ...report.Kind) []report.Record {
	out := make([]report.Record, len(kinds))
	for i, k := range kinds {
		out[i] = report.Record{Kind: k, Table: "person"}
	}
	return out
}

func TestCollector_ObserveTable(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.ObserveTable("person", 100, records(report.KindTypeMismatch, report.KindTypeMismatch, report.KindDuplicatePrimaryKey), 20*time.Millisecond)
	c.ObserveTable("person", 50, nil, time.Millisecond)

	tm := c.tableMetrics
	if got := testutil.ToFloat64(tm.validatedTotal.WithLabelValues("person")); got != 2 {
		t.Errorf("tables_validated_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(tm.rowsTotal.WithLabelValues("person")); got != 150 {
		t.Errorf("rows_checked_total = %v, want 150", got)
	}
	if got := testutil.ToFloat64(tm.violations.WithLabelValues("person", "TypeMismatch")); got != 2 {
		t.Errorf("violations_total{TypeMismatch} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(tm.violations.WithLabelValues("person", "DuplicatePrimaryKey")); got != 1 {
		t.Errorf("violations_total{DuplicatePrimaryKey} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(tm.duration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestCollector_ObserveRun(t *testing.T) {
	tests := []struct {
		name   string
		rep    *report.Report
		err    error
		status string
	}{
		{"passed", report.Empty(), nil, StatusPassed},
		{"failed", report.FromRecords(records(report.KindTypeMismatch)), nil, StatusFailed},
		{"cancelled", report.Empty(), context.Canceled, StatusCancelled},
		{"error", nil, errors.New("boom"), StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(testConfig(), prometheus.NewRegistry())
			c.ObserveRun(tt.rep, 2, time.Second, tt.err)

			if got := testutil.ToFloat64(c.runMetrics.runsTotal.WithLabelValues(tt.status)); got != 1 {
				t.Errorf("runs_total{%s} = %v, want 1", tt.status, got)
			}
		})
	}
}

func TestCollector_LastRunGauges(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	fixed := time.Unix(1700000000, 0)
	c.runMetrics.now = func() time.Time { return fixed }

	c.ObserveRun(report.FromRecords(records(report.KindTypeMismatch, report.KindTypeMismatch)), 3, time.Second, nil)

	rm := c.runMetrics
	if got := testutil.ToFloat64(rm.lastSuccess); got != 1700000000 {
		t.Errorf("last_success_timestamp_seconds = %v", got)
	}
	if got := testutil.ToFloat64(rm.lastRecords); got != 2 {
		t.Errorf("last_run_records = %v, want 2", got)
	}
	if got := testutil.ToFloat64(rm.lastTables); got != 3 {
		t.Errorf("last_run_tables = %v, want 3", got)
	}

	c.runMetrics.now = func() time.Time { return fixed.Add(time.Hour) }
	c.RecordRunError(time.Millisecond)

	if got := testutil.ToFloat64(rm.lastSuccess); got != 1700000000 {
		t.Errorf("error run moved last success to %v", got)
	}
	if got := testutil.ToFloat64(rm.lastRun); got != 1700003600 {
		t.Errorf("last_run_timestamp_seconds = %v", got)
	}
}

func TestCollector_LoadFailures(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	rep := report.FromRecords([]report.Record{{Kind: report.KindTableLoadFailure, Table: "visit"}})

	c.ObserveRun(rep, 0, time.Millisecond, nil)

	if got := testutil.ToFloat64(c.tableMetrics.loadFailures.WithLabelValues("visit")); got != 1 {
		t.Errorf("table_load_failures_total = %v, want 1", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, prometheus.NewRegistry())

	c.ObserveTable("person", 10, nil, time.Millisecond)
	c.ObserveRun(report.Empty(), 1, time.Millisecond, nil)

	if got := testutil.CollectAndCount(c.tableMetrics.validatedTotal); got != 0 {
		t.Errorf("disabled collector recorded %d series", got)
	}
}

func TestCollector_Defaults(t *testing.T) {
	c := NewCollector(nil, nil)
	if c.config.Namespace != "cdmcheck" || len(c.config.DurationBuckets) == 0 {
		t.Errorf("config = %+v", c.config)
	}
	if c.Registry() == nil {
		t.Error("Registry() is nil")
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)
	if !cl.Allow("a") || !cl.Allow("b") || !cl.Allow("a") {
		t.Error("values under the limit should be allowed")
	}
	if cl.Allow("c") {
		t.Error("third distinct value should be rejected")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}

func TestCollector_OverflowLabel(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	c.tables = NewCardinalityLimiter(1)

	c.ObserveTable("person", 1, nil, 0)
	c.ObserveTable("visit", 1, nil, 0)

	if got := testutil.ToFloat64(c.tableMetrics.validatedTotal.WithLabelValues(overflowLabel)); got != 1 {
		t.Errorf("overflow series = %v, want 1", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	c.ObserveRun(report.Empty(), 1, time.Millisecond, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `test_runs_total{status="passed"} 1`) {
		t.Errorf("metrics output missing runs_total:\n%s", body)
	}
}
