package export

import (
	"context"
	"encoding/json"
	"io"

	"tabular-qa/cdmcheck/pkg/report"
)

// JSONExporter writes reports as a JSON array of records.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Export writes the records of rep as a JSON array. An empty report is
// written as [].
func (e *JSONExporter) Export(ctx context.Context, rep *report.Report, w io.Writer) error {
	records := rep.Records()
	if len(records) == 0 {
		_, err := w.Write([]byte("[]\n"))
		if err != nil {
			return NewError("json", 0, err)
		}
		return nil
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return NewError("json", len(records), err)
	}

	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return NewError("json", len(records), err)
	}
	return nil
}

// ExportStream writes records from recordsCh as a JSON array, one record at
// a time.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan report.Record, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return NewError("json", 0, err)
	}

	first := true
	recordCount := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				closing := "]\n"
				if e.Pretty && !first {
					closing = "\n]\n"
				}
				if _, err := w.Write([]byte(closing)); err != nil {
					return NewError("json", recordCount, err)
				}
				return nil
			}

			sep := ""
			switch {
			case !first && e.Pretty:
				sep = ",\n  "
			case !first:
				sep = ","
			case e.Pretty:
				sep = "\n  "
			}
			first = false
			if _, err := w.Write([]byte(sep)); err != nil {
				return NewError("json", recordCount, err)
			}

			data, err := e.serializeRecord(record)
			if err != nil {
				return NewError("json", recordCount, err)
			}
			if _, err := w.Write(data); err != nil {
				return NewError("json", recordCount, err)
			}

			recordCount++
		}
	}
}

func (e *JSONExporter) serializeRecord(record report.Record) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}
