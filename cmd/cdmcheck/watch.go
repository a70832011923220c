package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tabular-qa/cdmcheck/pkg/cli"
	"tabular-qa/cdmcheck/pkg/config"
	"tabular-qa/cdmcheck/pkg/history"
	"tabular-qa/cdmcheck/pkg/watch"
)

var watchFlags struct {
	sourceFlags
	debounce time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch [schema] [data]",
	Short: "Re-validate whenever the schema or data files change",
	Long: `Validate once, then watch the schema file and the data source and validate
again after each settled burst of changes.

CSV directories are watched recursively; a SQLite source watches its database
file. PostgreSQL sources only watch the schema file.

Examples:
  # Watch a CSV directory
  cdmcheck watch schema.yaml data/

  # Wait two seconds of quiet before re-validating
  cdmcheck watch schema.yaml data/ --debounce 2s`,
	Args: cobra.MaximumNArgs(2),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchFlags.register(watchCmd)
	watchCmd.Flags().DurationVar(&watchFlags.debounce, "debounce", 0, "quiet period before re-validating (overrides watch.debounce)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	if watchFlags.debounce > 0 {
		cfg.Watch.Debounce = watchFlags.debounce
	}
	if err := watchFlags.apply(cfg, args); err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	p := newPipeline(cfg)
	storage, err := openHistory(cfg.History)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	if storage != nil {
		defer storage.Close()
		p.history = storage
	}

	w, err := watch.New(watchConfig(cfg))
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer w.Stop()

	out := cmd.OutOrStdout()
	validateOnce(ctx, out, p, cfg.Output, history.TriggerManual)

	fmt.Fprintln(os.Stderr, "Watching for changes. Press Ctrl+C to stop")
	err = w.Watch(ctx, func(ctx context.Context, changed []string) error {
		fmt.Fprintf(out, "\nChange detected in %d file(s), re-validating...\n", len(changed))
		validateOnce(ctx, out, p, cfg.Output, history.TriggerWatch)
		return nil
	})
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	return nil
}

func watchConfig(cfg *config.Config) *watch.Config {
	wc := watch.DefaultConfig()
	wc.Paths = append([]string{cfg.Schema.Path}, sourcePaths(cfg.Source)...)
	wc.Debounce = cfg.Watch.Debounce
	if len(cfg.Watch.Extensions) > 0 {
		wc.Extensions = cfg.Watch.Extensions
	}
	return wc
}

// validateOnce runs the pipeline and prints its report. Failures are printed
// rather than returned so that watching continues.
func validateOnce(ctx context.Context, out io.Writer, p *pipeline, output config.OutputConfig, trigger history.Trigger) {
	_, rep, err := p.run(ctx, trigger)
	if rep == nil {
		fmt.Fprintf(out, "✗ Error: %v\n", err)
		return
	}
	if werr := writeReport(ctx, out, output, rep); werr != nil {
		fmt.Fprintf(out, "✗ Error: failed to write report: %v\n", werr)
	}
}
