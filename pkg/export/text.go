package export

import (
	"context"
	"fmt"
	"io"

	"tabular-qa/cdmcheck/pkg/report"
)

// SuccessMessage is printed for a report with no records.
const SuccessMessage = "Validation successful! No errors found."

// TextExporter writes one human-readable line per record.
type TextExporter struct {
	// ShowKind prefixes each line with the record kind.
	ShowKind bool
}

// NewTextExporter creates a new text exporter.
func NewTextExporter() *TextExporter {
	return &TextExporter{ShowKind: true}
}

// Export writes a summary line followed by one line per record, or
// SuccessMessage when the report is empty.
func (e *TextExporter) Export(ctx context.Context, rep *report.Report, w io.Writer) error {
	if !rep.HasErrors() {
		if _, err := fmt.Fprintln(w, SuccessMessage); err != nil {
			return NewError("text", 0, err)
		}
		return nil
	}

	if _, err := fmt.Fprintf(w, "Validation failed with %d error(s):\n", rep.Count()); err != nil {
		return NewError("text", 0, err)
	}
	for i, r := range rep.Records() {
		if _, err := fmt.Fprintln(w, e.line(r)); err != nil {
			return NewError("text", i, err)
		}
	}
	return nil
}

// ExportStream writes one line per record as records arrive.
func (e *TextExporter) ExportStream(ctx context.Context, recordsCh <-chan report.Record, w io.Writer) error {
	n := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-recordsCh:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintln(w, e.line(r)); err != nil {
				return NewError("text", n, err)
			}
			n++
		}
	}
}

func (e *TextExporter) line(r report.Record) string {
	if e.ShowKind {
		return fmt.Sprintf("- [%s] %s", r.Kind, r.Message)
	}
	return "- " + r.Message
}
