package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// RunIDKey is the context key for the validation run ID.
	RunIDKey contextKey = "run_id"

	// TableKey is the context key for the table being processed.
	TableKey contextKey = "table"

	// TriggerKey is the context key for what started the run.
	TriggerKey contextKey = "trigger"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if v, ok := ctx.Value(RunIDKey).(string); ok {
		return v
	}
	return ""
}

// WithTable adds a table name to the context.
func WithTable(ctx context.Context, table string) context.Context {
	return context.WithValue(ctx, TableKey, table)
}

// GetTable retrieves the table name from the context.
func GetTable(ctx context.Context) string {
	if v, ok := ctx.Value(TableKey).(string); ok {
		return v
	}
	return ""
}

// WithTrigger adds the run trigger to the context.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, TriggerKey, trigger)
}

// GetTrigger retrieves the run trigger from the context.
func GetTrigger(ctx context.Context) string {
	if v, ok := ctx.Value(TriggerKey).(string); ok {
		return v
	}
	return ""
}

// contextFields returns the logging attributes stored in ctx.
func contextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if v := GetRunID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(RunIDKey), v))
	}
	if v := GetTrigger(ctx); v != "" {
		attrs = append(attrs, slog.String(string(TriggerKey), v))
	}
	if v := GetTable(ctx); v != "" {
		attrs = append(attrs, slog.String(string(TableKey), v))
	}
	return attrs
}

// contextHandler adds context fields to each record.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := contextFields(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
