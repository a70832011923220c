package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"tabular-qa/cdmcheck/pkg/report"
)

// CSVExporter writes reports as CSV, one record per row.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Export writes the records of rep to w in CSV format. The duplicates list of
// a DuplicatePrimaryKey record is flattened into a JSON string.
func (e *CSVExporter) Export(ctx context.Context, rep *report.Report, w io.Writer) error {
	records := rep.Records()
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(e.getHeaderRow()); err != nil {
			return NewError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(e.recordToRow(record)); err != nil {
			return NewError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return NewError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from recordsCh as they arrive, flushing every
// 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan report.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(e.getHeaderRow()); err != nil {
			return NewError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return NewError("csv", recordCount, err)
				}
				return nil
			}

			if err := writer.Write(e.recordToRow(record)); err != nil {
				return NewError("csv", recordCount, err)
			}
			recordCount++

			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return NewError("csv", recordCount, err)
				}
			}
		}
	}
}

func (e *CSVExporter) getHeaderRow() []string {
	return []string{
		"kind", "table", "column", "row",
		"expected", "actual",
		"max_length", "actual_length",
		"value", "referenced_table", "referenced_column",
		"excess_rows", "duplicates",
		"message",
	}
}

func (e *CSVExporter) recordToRow(r report.Record) []string {
	formatInt := func(n int) string {
		if n == 0 {
			return ""
		}
		return strconv.Itoa(n)
	}

	row := ""
	if r.HasRow() {
		row = strconv.Itoa(r.RowIndex())
	}

	dups := ""
	if len(r.Duplicates) > 0 {
		data, _ := json.Marshal(r.Duplicates)
		dups = string(data)
	}

	return []string{
		string(r.Kind),
		r.Table,
		r.Column,
		row,
		r.Expected,
		r.Actual,
		formatInt(r.MaxLength),
		formatInt(r.ActualLength),
		formatValue(r.Value),
		r.ReferencedTable,
		r.ReferencedColumn,
		formatInt(r.ExcessRows),
		dups,
		r.Message,
	}
}

func formatValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
