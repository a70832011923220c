// Package export writes validation reports as text, JSON or CSV.
//
// Every exporter supports writing a whole report and streaming records from a
// channel:
//
//	exp, _ := export.New(export.FormatCSV)
//	err := exp.Export(ctx, rep, os.Stdout)
//
// Row indexes in JSON and CSV output are 0-based data-row positions, matching
// report.Record.Row.
package export
