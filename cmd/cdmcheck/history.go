package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tabular-qa/cdmcheck/pkg/cli"
	"tabular-qa/cdmcheck/pkg/config"
	"tabular-qa/cdmcheck/pkg/history"
)

var historyFlags struct {
	limit  int
	status string
	since  string
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and prune recorded validation runs",
	Long: `Inspect and prune the run history recorded by validate, watch and schedule.

Examples:
  # List the 20 most recent runs
  cdmcheck history list

  # List failed runs from the last day as JSON
  cdmcheck history list --status failed --since 24h --format json

  # Print the report of a run
  cdmcheck history show 3f2b9c1e-...

  # Apply the retention policy now
  cdmcheck history prune`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the report of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs outside the retention policy",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyPruneCmd)

	historyListCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 20, "maximum runs to list")
	historyListCmd.Flags().StringVar(&historyFlags.status, "status", "", "only runs with this status: passed, failed, cancelled, error")
	historyListCmd.Flags().StringVar(&historyFlags.since, "since", "", "only runs started within this duration (e.g. 24h) or after this RFC 3339 time")
	historyListCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json, csv")
	historyShowCmd.Flags().StringVar(&historyFlags.format, "format", "text", "report format: text, json, csv")
}

func withHistory(command string, fn func(ctx context.Context, cfg *config.Config, storage history.Storage) error) error {
	cfg := currentConfig()
	storage, err := openHistory(cfg.History)
	if err != nil {
		return cli.NewCommandError(command, err)
	}
	if storage == nil {
		return cli.NewConfigError("history.enabled", "run history is disabled")
	}
	defer storage.Close()
	return fn(context.Background(), cfg, storage)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(historyFlags.format)
	if err != nil {
		return err
	}
	query := &history.Query{
		Status: history.Status(historyFlags.status),
		Limit:  historyFlags.limit,
	}
	if historyFlags.since != "" {
		since, err := parseSince(historyFlags.since, time.Now())
		if err != nil {
			return cli.NewConfigError("since", err.Error())
		}
		query.Since = &since
	}

	return withHistory("history list", func(ctx context.Context, _ *config.Config, storage history.Storage) error {
		runs, err := storage.Query(ctx, query)
		if err != nil {
			return cli.NewCommandError("history list", err)
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), runsTable(runs))
	})
}

func runsTable(runs []*history.Run) *cli.Table {
	t := &cli.Table{
		Headers: []string{"ID", "STARTED", "TRIGGER", "STATUS", "TABLES", "ERRORS", "DURATION", "SOURCE"},
	}
	for _, r := range runs {
		t.Rows = append(t.Rows, []string{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			string(r.Trigger),
			string(r.Status),
			strconv.Itoa(r.Tables),
			strconv.Itoa(r.RecordCount),
			r.Duration().Round(time.Millisecond).String(),
			r.Source,
		})
	}
	return t
}

// parseSince accepts a duration before now or an RFC 3339 timestamp.
func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: want a duration or RFC 3339 time", s)
	}
	return t, nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withHistory("history show", func(ctx context.Context, cfg *config.Config, storage history.Storage) error {
		run, err := storage.Get(ctx, args[0])
		if err != nil {
			return cli.NewCommandError("history show", err)
		}

		w := cmd.OutOrStdout()
		out := cfg.Output
		out.File = ""
		out.Format = historyFlags.format
		if out.Format == "" || out.Format == string(cli.FormatText) {
			fmt.Fprintf(w, "Run %s (%s, %s)\n", run.ID, run.Status, run.Trigger)
			fmt.Fprintf(w, "Schema: %s\nSource: %s\n", run.SchemaPath, run.Source)
			fmt.Fprintf(w, "Started: %s, took %s\n", run.StartedAt.Local().Format(time.DateTime), run.Duration().Round(time.Millisecond))
			if run.Error != "" {
				fmt.Fprintf(w, "Error: %s\n", run.Error)
			}
			if len(run.Records) < run.RecordCount {
				fmt.Fprintf(w, "Showing %d of %d record(s)\n", len(run.Records), run.RecordCount)
			}
			fmt.Fprintln(w)
		}
		if run.Status == history.StatusError {
			return nil
		}
		return writeReport(ctx, w, out, run.Report())
	})
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	return withHistory("history prune", func(ctx context.Context, cfg *config.Config, storage history.Storage) error {
		deleted, err := newPruner(storage, cfg.History.Retention).Prune(ctx)
		if err != nil {
			return cli.NewCommandError("history prune", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d run(s)\n", deleted)
		return nil
	})
}
