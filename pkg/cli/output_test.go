package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tabular-qa/cdmcheck/pkg/export"
	"tabular-qa/cdmcheck/pkg/report"
)

func sampleReport() *report.Report {
	b := report.NewBuilder()
	b.Add(report.Record{
		Kind:    report.KindMissingRequiredColumn,
		Table:   "person",
		Column:  "gender_concept_id",
		Message: "Missing required column 'gender_concept_id' in table 'person'",
	})
	return b.Build()
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"junit", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteReport(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	if err := WriteReport(ctx, &buf, report.Empty(), ReportOptions{Format: FormatText}); err != nil {
		t.Fatalf("WriteReport() failed: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != export.SuccessMessage {
		t.Errorf("text output = %q, want %q", got, export.SuccessMessage)
	}

	buf.Reset()
	if err := WriteReport(ctx, &buf, sampleReport(), ReportOptions{Format: FormatJSON}); err != nil {
		t.Fatalf("WriteReport() failed: %v", err)
	}
	var recs []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &recs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(recs) != 1 || recs[0]["kind"] != "MissingRequiredColumn" {
		t.Errorf("records = %v", recs)
	}

	buf.Reset()
	if err := WriteReport(ctx, &buf, sampleReport(), ReportOptions{Format: FormatCSV, Header: true}); err != nil {
		t.Fatalf("WriteReport() failed: %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Errorf("CSV lines = %d, want 2", lines)
	}
}

func TestOpenOutput(t *testing.T) {
	w, err := OpenOutput("")
	if err != nil {
		t.Fatalf("OpenOutput(\"\") failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("closing stdout writer failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "report.txt")
	w, err = OpenOutput(path)
	if err != nil {
		t.Fatalf("OpenOutput() failed: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	w.Close()

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Errorf("file content = %q, err = %v", data, err)
	}

	if _, err := OpenOutput(filepath.Join(t.TempDir(), "missing", "x.txt")); err == nil {
		t.Error("OpenOutput() into a missing directory should fail")
	}
}

func testTable() *Table {
	return &Table{
		Headers: []string{"ID", "STATUS"},
		Rows: [][]string{
			{"a1", "passed"},
			{"b2", "failed"},
		},
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, testTable()); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID  ") || !strings.Contains(lines[0], "STATUS") {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Index(lines[0], "STATUS") != strings.Index(lines[1], "passed") {
		t.Error("columns should be aligned")
	}

	buf.Reset()
	(&TextFormatter{}).FormatTo(&buf, "plain")
	if buf.String() != "plain\n" {
		t.Errorf("non-table output = %q", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).FormatTo(&buf, testTable()); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}

	var got []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 2 || got[1]["STATUS"] != "failed" {
		t.Errorf("decoded = %v", got)
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatCSV).FormatTo(&buf, testTable()); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	want := "ID,STATUS\na1,passed\nb2,failed\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}

	if err := (&CSVFormatter{}).FormatTo(&buf, 42); err == nil {
		t.Error("CSV formatting a non-table should fail")
	}
}
