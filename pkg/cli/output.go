package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"tabular-qa/cdmcheck/pkg/export"
	"tabular-qa/cdmcheck/pkg/report"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output.
	FormatCSV OutputFormat = "csv"
)

// ParseOutputFormat validates a format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", NewConfigError("output.format", fmt.Sprintf("unknown format %q (use text, json or csv)", s))
	}
}

// ReportOptions controls report rendering.
type ReportOptions struct {
	Format OutputFormat
	Pretty bool // indent JSON
	Header bool // CSV header row
}

// WriteReport renders rep to w in the requested format.
func WriteReport(ctx context.Context, w io.Writer, rep *report.Report, opts ReportOptions) error {
	var exporter export.Exporter
	switch opts.Format {
	case FormatJSON:
		exporter = export.NewJSONExporter(opts.Pretty)
	case FormatCSV:
		exporter = export.NewCSVExporter(opts.Header)
	default:
		exporter = export.NewTextExporter()
	}
	return exporter.Export(ctx, rep, w)
}

// OpenOutput returns stdout for an empty path, otherwise a created file.
// Closing the returned stdout writer is a no-op.
func OpenOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Table is tabular command output such as a run listing.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextFormatter renders tables as aligned columns and anything else with %v.
type TextFormatter struct{}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	t, ok := data.(*Table)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeRow := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, c)
		}
		fmt.Fprintln(tw)
	}
	writeRow(t.Headers)
	for _, row := range t.Rows {
		writeRow(row)
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON. Tables become arrays of objects
// keyed by header.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	if t, ok := data.(*Table); ok {
		objs := make([]map[string]string, len(t.Rows))
		for i, row := range t.Rows {
			obj := make(map[string]string, len(t.Headers))
			for j, h := range t.Headers {
				if j < len(row) {
					obj[h] = row[j]
				}
			}
			objs[i] = obj
		}
		data = objs
	}

	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter formats tables as CSV.
type CSVFormatter struct {
	Header bool
}

// FormatTo writes a *Table to writer in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	t, ok := data.(*Table)
	if !ok {
		return fmt.Errorf("CSV output supports tables only, got %T", data)
	}

	cw := csv.NewWriter(w)
	if f.Header {
		if err := cw.Write(t.Headers); err != nil {
			return err
		}
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// NewFormatter creates a formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{Header: true}
	default:
		return &TextFormatter{}
	}
}
