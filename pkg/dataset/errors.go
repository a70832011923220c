package dataset

import (
	"errors"
	"fmt"

	"tabular-qa/cdmcheck/pkg/report"
)

// ErrTableNotFound is returned by loaders when the source holds no data for a
// schema table.
var ErrTableNotFound = errors.New("table not found")

// LoadError is a soft failure to load one table. The table is excluded from
// validation and the failure is recorded in the run report.
type LoadError struct {
	Table  string
	Source string
	Err    error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("failed to load table %q from %s: %v", e.Table, e.Source, e.Err)
	}
	return fmt.Sprintf("failed to load table %q: %v", e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError creates a new load error.
func NewLoadError(table, source string, err error) *LoadError {
	return &LoadError{Table: table, Source: source, Err: err}
}

// IsNotFound reports whether the failure is a missing table rather than a
// read or decode problem.
func (e *LoadError) IsNotFound() bool {
	return errors.Is(e.Err, ErrTableNotFound)
}

// Record converts the failure into a TableLoadFailure report record.
func (e *LoadError) Record() report.Record {
	return report.Record{
		Kind:    report.KindTableLoadFailure,
		Table:   e.Table,
		Message: e.Error(),
	}
}

// FailureRecords converts load failures into report records, preserving order.
func FailureRecords(failures []*LoadError) []report.Record {
	recs := make([]report.Record, 0, len(failures))
	for _, f := range failures {
		recs = append(recs, f.Record())
	}
	return recs
}
