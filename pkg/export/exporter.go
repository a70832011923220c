package export

import (
	"context"
	"fmt"
	"io"
	"sort"

	"tabular-qa/cdmcheck/pkg/report"
)

// Exporter writes a validation report in one output format.
type Exporter interface {
	// Export writes every record of rep to w.
	Export(ctx context.Context, rep *report.Report, w io.Writer) error

	// ExportStream writes records as they arrive until recordsCh is closed.
	ExportStream(ctx context.Context, recordsCh <-chan report.Record, w io.Writer) error
}

// Format names an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var formats = map[Format]func() Exporter{
	FormatText: func() Exporter { return NewTextExporter() },
	FormatJSON: func() Exporter { return NewJSONExporter(true) },
	FormatCSV:  func() Exporter { return NewCSVExporter(true) },
}

// New returns the exporter for format.
func New(format Format) (Exporter, error) {
	ctor, ok := formats[format]
	if !ok {
		return nil, fmt.Errorf("unknown export format %q (valid: %v)", format, Formats())
	}
	return ctor(), nil
}

// Formats lists the supported formats.
func Formats() []string {
	out := make([]string, 0, len(formats))
	for f := range formats {
		out = append(out, string(f))
	}
	sort.Strings(out)
	return out
}

// Stream sends the records of rep on a channel, closing it when done or when
// ctx is cancelled.
func Stream(ctx context.Context, rep *report.Report) <-chan report.Record {
	ch := make(chan report.Record)
	go func() {
		defer close(ch)
		for _, r := range rep.Records() {
			select {
			case <-ctx.Done():
				return
			case ch <- r:
			}
		}
	}()
	return ch
}
