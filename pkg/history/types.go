package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"tabular-qa/cdmcheck/pkg/report"
)

// Status is the outcome of a validation run.
type Status string

const (
	StatusPassed    Status = "passed"    // Report was empty
	StatusFailed    Status = "failed"    // Report held at least one record
	StatusCancelled Status = "cancelled" // Run was interrupted between tables
	StatusError     Status = "error"     // Run could not start (schema or source failure)
)

// Trigger records what started a run.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerWatch    Trigger = "watch"
	TriggerSchedule Trigger = "schedule"
)

// Run is the persisted summary of one validation run.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	SchemaPath string  `json:"schema_path"`
	Source     string  `json:"source"`
	Trigger    Trigger `json:"trigger"`

	Status       Status              `json:"status"`
	Tables       int                 `json:"tables"`
	LoadFailures int                 `json:"load_failures"`
	RecordCount  int                 `json:"record_count"`
	CountsByKind map[report.Kind]int `json:"counts_by_kind,omitempty"`
	Error        string              `json:"error,omitempty"`

	// Records holds the full report. It may be truncated to the configured
	// maximum; RecordCount is always the full count.
	Records []report.Record `json:"records,omitempty"`
}

// NewRun starts a run record with a fresh ID.
func NewRun(schemaPath, source string, trigger Trigger) *Run {
	return &Run{
		ID:         uuid.New().String(),
		StartedAt:  time.Now().UTC(),
		SchemaPath: schemaPath,
		Source:     source,
		Trigger:    trigger,
	}
}

// Complete fills in the outcome of the run. maxRecords bounds how many
// records are kept; 0 keeps all.
func (r *Run) Complete(rep *report.Report, tables int, runErr error, maxRecords int) {
	r.FinishedAt = time.Now().UTC()
	r.Tables = tables

	if rep != nil {
		r.RecordCount = rep.Count()
		r.CountsByKind = rep.CountByKind()
		r.LoadFailures = r.CountsByKind[report.KindTableLoadFailure]
		recs := rep.Records()
		if maxRecords > 0 && len(recs) > maxRecords {
			recs = recs[:maxRecords]
		}
		r.Records = recs
	}

	switch {
	case runErr != nil && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)):
		r.Status = StatusCancelled
		r.Error = runErr.Error()
	case runErr != nil:
		r.Status = StatusError
		r.Error = runErr.Error()
	case r.RecordCount > 0:
		r.Status = StatusFailed
	default:
		r.Status = StatusPassed
	}
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Report rebuilds the stored records as a report.
func (r *Run) Report() *report.Report {
	return report.FromRecords(r.Records)
}

// Query filters stored runs. Zero fields do not filter.
type Query struct {
	IDs        []string
	Since      *time.Time // StartedAt >= Since
	Until      *time.Time // StartedAt <= Until
	Status     Status
	SchemaPath string

	// Oldest sorts by StartedAt ascending; the default is newest first.
	Oldest bool
	Limit  int
	Offset int
}

// Storage persists run records.
type Storage interface {
	// Store saves a run. Storing a run with an existing ID replaces it.
	Store(ctx context.Context, run *Run) error

	// Get returns the run with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// Query returns runs matching the query.
	Query(ctx context.Context, query *Query) ([]*Run, error)

	// Count returns the number of runs matching the query, ignoring
	// Limit and Offset.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes runs matching the query, ignoring Limit and Offset.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the storage.
	Close() error
}
