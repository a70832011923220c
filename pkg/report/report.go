package report

import (
	"fmt"
	"strings"
	"sync"
)

// Builder accumulates records during a validation run.
// It allows accumulating every finding instead of failing on the first one.
// Add and Merge are safe for concurrent use.
type Builder struct {
	mu      sync.Mutex
	records []Record
}

// NewBuilder creates a new empty builder.
func NewBuilder() *Builder {
	return &Builder{
		records: make([]Record, 0),
	}
}

// Add appends a record.
func (b *Builder) Add(rec Record) {
	b.mu.Lock()
	b.records = append(b.records, rec)
	b.mu.Unlock()
}

// AddRecord creates and appends a record with the given parameters.
func (b *Builder) AddRecord(kind Kind, table, column, message string) {
	b.Add(Record{
		Kind:    kind,
		Table:   table,
		Column:  column,
		Message: message,
	})
}

// Merge appends all records of other, preserving their order.
func (b *Builder) Merge(other *Builder) {
	if other == nil || other == b {
		return
	}

	other.mu.Lock()
	recs := append([]Record(nil), other.records...)
	other.mu.Unlock()

	b.mu.Lock()
	b.records = append(b.records, recs...)
	b.mu.Unlock()
}

// Len returns the number of records accumulated so far.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Build returns a read-only Report holding a snapshot of the records.
// The builder may keep accumulating afterwards; the Report does not change.
func (b *Builder) Build() *Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs := make([]Record, len(b.records))
	for i, r := range b.records {
		recs[i] = r.clone()
	}
	return &Report{records: recs}
}

// Report is the ordered, read-only outcome of a validation run.
type Report struct {
	records []Record
}

// Empty returns a report with no records.
func Empty() *Report {
	return &Report{records: []Record{}}
}

// FromRecords builds a report from previously persisted records.
func FromRecords(recs []Record) *Report {
	b := NewBuilder()
	for _, r := range recs {
		b.Add(r)
	}
	return b.Build()
}

// Records returns a copy of the records in insertion order.
func (r *Report) Records() []Record {
	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.clone()
	}
	return out
}

// HasErrors returns true if the report contains any records.
func (r *Report) HasErrors() bool {
	return len(r.records) > 0
}

// Count returns the number of records in the report.
func (r *Report) Count() int {
	return len(r.records)
}

// ByKind returns all records of the given kind.
func (r *Report) ByKind(kind Kind) []Record {
	var result []Record
	for _, rec := range r.records {
		if rec.Kind == kind {
			result = append(result, rec.clone())
		}
	}
	return result
}

// ByTable returns all records for the given table.
func (r *Report) ByTable(table string) []Record {
	var result []Record
	for _, rec := range r.records {
		if rec.Table == table {
			result = append(result, rec.clone())
		}
	}
	return result
}

// HasKind returns true if the report contains at least one record of the given kind.
func (r *Report) HasKind(kind Kind) bool {
	for _, rec := range r.records {
		if rec.Kind == kind {
			return true
		}
	}
	return false
}

// CountByKind returns the number of records per kind.
func (r *Report) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, rec := range r.records {
		counts[rec.Kind]++
	}
	return counts
}

// Tables returns the distinct table names in first-occurrence order.
func (r *Report) Tables() []string {
	seen := make(map[string]bool)
	var tables []string
	for _, rec := range r.records {
		if !seen[rec.Table] {
			seen[rec.Table] = true
			tables = append(tables, rec.Table)
		}
	}
	return tables
}

// Equal reports whether both reports hold the same messages in the same order.
func (r *Report) Equal(other *Report) bool {
	if other == nil || len(r.records) != len(other.records) {
		return false
	}
	for i := range r.records {
		a, b := r.records[i], other.records[i]
		if a.Kind != b.Kind || a.Table != b.Table || a.Column != b.Column ||
			a.RowIndex() != b.RowIndex() || a.Message != b.Message {
			return false
		}
	}
	return true
}

// String returns all records formatted one per line.
func (r *Report) String() string {
	if !r.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n", r.Count()))
	for _, rec := range r.records {
		sb.WriteString("- ")
		sb.WriteString(rec.Message)
		sb.WriteString("\n")
	}
	return sb.String()
}
