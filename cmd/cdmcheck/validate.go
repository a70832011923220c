package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"tabular-qa/cdmcheck/pkg/cli"
	"tabular-qa/cdmcheck/pkg/config"
	"tabular-qa/cdmcheck/pkg/history"
	"tabular-qa/cdmcheck/pkg/report"
)

// sourceFlags are the flags shared by commands that run validations.
type sourceFlags struct {
	schema      string
	data        string
	sourceType  string
	parallelism int
	noHistory   bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.schema, "schema", "s", "", "schema file (overrides schema.path)")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "CSV directory, SQLite file or PostgreSQL DSN, per --source")
	cmd.Flags().StringVar(&f.sourceType, "source", "", "source type: csv, sqlite, postgres (overrides source.type)")
	cmd.Flags().IntVarP(&f.parallelism, "parallelism", "p", 0, "tables validated concurrently (overrides validation.parallelism)")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "do not record the run in history")
}

// apply overlays the flags and positional [schema] [data] arguments onto
// cfg and validates the result.
func (f *sourceFlags) apply(cfg *config.Config, args []string) error {
	schemaPath, dataPath := f.schema, f.data
	if len(args) > 0 && schemaPath == "" {
		schemaPath = args[0]
	}
	if len(args) > 1 && dataPath == "" {
		dataPath = args[1]
	}

	if schemaPath != "" {
		cfg.Schema.Path = schemaPath
	}
	if f.sourceType != "" {
		cfg.Source.Type = f.sourceType
	}
	if dataPath != "" {
		if err := setDataPath(&cfg.Source, dataPath); err != nil {
			return cli.NewConfigError("source.type", err.Error())
		}
	}
	if f.parallelism > 0 {
		cfg.Validation.Parallelism = f.parallelism
	}
	if f.noHistory {
		cfg.History.Enabled = false
	}

	if cfg.Schema.Path == "" {
		return cli.NewConfigError("schema.path", "a schema file is required (argument, --schema or schema.path)")
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("config", err.Error())
	}
	return nil
}

var validateFlags struct {
	sourceFlags
	format   string
	output   string
	progress bool
}

var validateCmd = &cobra.Command{
	Use:   "validate [schema] [data]",
	Short: "Validate a dataset against a schema",
	Long: `Validate every table of a dataset against a schema and report all violations.

Each schema table is loaded from the source (one <table>.csv per table for CSV
directories). Tables that cannot be loaded are reported as TableLoadFailure and
skipped; every other check runs to completion.

Examples:
  # Validate a CSV directory
  cdmcheck validate schema.yaml data/

  # Validate a SQLite file with JSON output
  cdmcheck validate schema.yaml cdm.db --source sqlite --format json

  # Use a configuration file and write the report to a file
  cdmcheck validate --config cdmcheck.yaml --format csv --output report.csv`,
	Args: cobra.MaximumNArgs(2),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateFlags.register(validateCmd)
	validateCmd.Flags().StringVarP(&validateFlags.format, "format", "f", "", "report format: text, json, csv (overrides output.format)")
	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "", "write the report to a file (overrides output.file)")
	validateCmd.Flags().BoolVar(&validateFlags.progress, "progress", false, "show per-table progress on stderr")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	if validateFlags.format != "" {
		cfg.Output.Format = validateFlags.format
	}
	if validateFlags.output != "" {
		cfg.Output.File = validateFlags.output
	}
	if err := validateFlags.apply(cfg, args); err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	p := newPipeline(cfg)
	storage, err := openHistory(cfg.History)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}
	if storage != nil {
		defer storage.Close()
		p.history = storage
	}

	var progress *cli.SimpleProgress
	if validateFlags.progress {
		progress = cli.NewProgressReporter(os.Stderr)
		p.progress = progress.Observe
	}

	_, rep, runErr := p.run(ctx, history.TriggerManual)
	if progress != nil {
		if runErr != nil && rep == nil {
			progress.Error(runErr)
		} else {
			progress.Finish()
		}
	}
	if rep == nil {
		return cli.NewCommandError("validate", runErr)
	}

	if err := writeReport(ctx, cmd.OutOrStdout(), cfg.Output, rep); err != nil {
		return cli.NewCommandError("validate", err)
	}
	return reportError("validate", rep, runErr)
}

// writeReport renders rep as configured by out. stdout is used when
// out.File is empty.
func writeReport(ctx context.Context, stdout io.Writer, out config.OutputConfig, rep *report.Report) error {
	format, err := cli.ParseOutputFormat(out.Format)
	if err != nil {
		return err
	}
	opts := cli.ReportOptions{Format: format, Pretty: out.Pretty, Header: out.Header}

	if out.File == "" {
		return cli.WriteReport(context.WithoutCancel(ctx), stdout, rep, opts)
	}
	w, err := cli.OpenOutput(out.File)
	if err != nil {
		return err
	}
	if err := cli.WriteReport(context.WithoutCancel(ctx), w, rep, opts); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// reportError turns a finished run into the command result.
func reportError(command string, rep *report.Report, runErr error) error {
	if runErr != nil {
		return cli.NewCommandError(command, runErr)
	}
	if rep.Count() > 0 {
		return cli.NewCommandError(command, fmt.Errorf("%d error(s) found: %w", rep.Count(), cli.ErrValidationFailed))
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
