/*
Package cli provides command-line helpers for the cdmcheck command.

Output Formatting:

Validation reports are rendered through the export package:

	w, err := cli.OpenOutput(cfg.Output.File)
	if err != nil {
		return err
	}
	defer w.Close()
	err = cli.WriteReport(ctx, w, rep, cli.ReportOptions{Format: cli.FormatJSON, Pretty: true})

Listings such as run history use a Table with a Formatter:

	table := &cli.Table{Headers: []string{"ID", "STATUS"}, Rows: rows}
	cli.NewFormatter(cli.FormatText).FormatTo(os.Stdout, table)

Progress Reporting:

SimpleProgress plugs into the validation engine:

	progress := cli.NewProgressReporter(os.Stderr)
	engine := validation.NewEngine(validation.WithProgress(progress.Observe))

Exit Codes:

ExitCode maps a command error to 0 (clean), 1 (ErrValidationFailed) or 2.
*/
package cli
