package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tabular-qa/cdmcheck/pkg/cli"
	"tabular-qa/cdmcheck/pkg/config"
	"tabular-qa/cdmcheck/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cdmcheck",
	Short: "cdmcheck - tabular dataset validator",
	Long: `cdmcheck validates tabular datasets against a declarative relational schema.

Every check runs to completion and all violations are reported together:
  - Required columns present and free of nulls
  - Values matching their declared datatypes
  - Strings within their maximum length
  - Unique primary keys
  - Foreign keys referencing existing parent rows

The exit status is 0 when no errors were found, 1 when validation found
errors and 2 when the run could not complete.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command and exits with the status from cli.ExitCode.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig loads the configuration and installs the default logger.
func initConfig(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("config", fmt.Sprintf("failed to load config: %v", err))
	}
	return setupLogging(config.GetConfig())
}

func setupLogging(cfg *config.Config) error {
	lc := logging.FromConfig(cfg.Telemetry.Logging)
	if verbose {
		lc.Level = "debug"
	}
	logger, err := logging.New(lc)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.SetDefault()
	return nil
}

// currentConfig returns a copy of the loaded configuration that a command
// may override with its flags.
func currentConfig() *config.Config {
	cfg := config.GetConfig()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cp := *cfg
	return &cp
}
