package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"tabular-qa/cdmcheck/pkg/cli"
	"tabular-qa/cdmcheck/pkg/config"
	"tabular-qa/cdmcheck/pkg/history"
	"tabular-qa/cdmcheck/pkg/telemetry/health"
	"tabular-qa/cdmcheck/pkg/telemetry/metrics"
)

var scheduleFlags struct {
	sourceFlags
	cron       string
	listen     string
	runOnStart bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [schema] [data]",
	Short: "Validate on a cron schedule and serve metrics and health endpoints",
	Long: `Run validations on a cron schedule until interrupted.

While running, the daemon serves:
  /metrics   Prometheus metrics for runs and tables
  /health    liveness
  /ready     readiness (history store reachable, schema file present,
             last completed run within telemetry.health.max_run_age)
  /version   build information

Run history retention is enforced on history.retention.prune_schedule.

Examples:
  # Validate every hour
  cdmcheck schedule schema.yaml data/ --cron "@hourly"

  # Validate at 02:00 daily, once immediately, and listen on all interfaces
  cdmcheck schedule --config cdmcheck.yaml --cron "0 2 * * *" --run-on-start --listen :9464`,
	Args: cobra.MaximumNArgs(2),
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleFlags.register(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleFlags.cron, "cron", "", "cron expression (overrides schedule.cron)")
	scheduleCmd.Flags().StringVarP(&scheduleFlags.listen, "listen", "l", "", "metrics and health address (overrides schedule.listen_address)")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.runOnStart, "run-on-start", false, "validate once immediately")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	if scheduleFlags.cron != "" {
		cfg.Schedule.Cron = scheduleFlags.cron
	}
	if scheduleFlags.listen != "" {
		cfg.Schedule.ListenAddress = scheduleFlags.listen
	}
	if scheduleFlags.runOnStart {
		cfg.Schedule.RunOnStart = true
	}
	if err := scheduleFlags.apply(cfg, args); err != nil {
		return err
	}
	if cfg.Schedule.Cron == "" {
		return cli.NewConfigError("schedule.cron", "a cron expression is required (--cron or schedule.cron)")
	}

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	d, err := newDaemon(cfg)
	if err != nil {
		return cli.NewCommandError("schedule", err)
	}
	defer d.close()

	if err := d.start(ctx); err != nil {
		return cli.NewCommandError("schedule", err)
	}
	if next := d.nextRun(); next != nil {
		fmt.Printf("✓ Next validation at %s\n", next.Format(time.RFC3339))
	}
	if d.listener != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", d.listener.Addr(), cfg.Telemetry.Metrics.Path)
		fmt.Printf("✓ Health endpoint: http://%s%s\n", d.listener.Addr(), cfg.Telemetry.Health.LivenessPath)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case <-ctx.Done():
		fmt.Println("\nShutting down gracefully...")
	case err := <-d.serveErr:
		d.shutdown(context.Background())
		return cli.NewCommandError("schedule", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Schedule.ShutdownTimeout)
	defer cancel()
	if err := d.shutdown(shutdownCtx); err != nil {
		return cli.NewCommandError("schedule", err)
	}
	fmt.Println("✓ Scheduler stopped")
	return nil
}

// daemon runs validations on a cron schedule alongside the metrics and
// health server and the history retention scheduler.
type daemon struct {
	cfg      *config.Config
	pipeline *pipeline
	cron     *cron.Cron
	checker  *health.Checker
	tracker  *health.RunTracker
	storage  history.Storage
	pruner   *history.Pruner
	logger   *slog.Logger

	server   *http.Server
	listener net.Listener
	serveErr chan error

	runMu  sync.Mutex
	runCtx context.Context

	// active is held while a validation runs.
	active sync.Mutex
}

func newDaemon(cfg *config.Config) (*daemon, error) {
	d := &daemon{
		cfg:      cfg,
		pipeline: newPipeline(cfg),
		tracker:  health.NewRunTracker(),
		checker:  health.New(5 * time.Second),
		logger:   slog.Default().With("component", "cdmcheck.schedule"),
		serveErr: make(chan error, 1),
		runCtx:   context.Background(),
	}
	d.pipeline.tracker = d.tracker

	if cfg.Telemetry.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		d.pipeline.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, registry)
	}

	storage, err := openHistory(cfg.History)
	if err != nil {
		return nil, err
	}
	if storage != nil {
		d.storage = storage
		d.pipeline.history = storage
		d.pruner = newPruner(storage, cfg.History.Retention)
		d.checker.RegisterCheck("history", health.StorageCheck(storage))
	}

	d.checker.RegisterCheck("schema", health.FileCheck(cfg.Schema.Path))
	if cfg.Telemetry.Health.MaxRunAge > 0 {
		d.checker.RegisterCheck("freshness", d.tracker.FreshnessCheck(cfg.Telemetry.Health.MaxRunAge))
	}

	d.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := d.cron.AddFunc(cfg.Schedule.Cron, d.runScheduled); err != nil {
		if storage != nil {
			storage.Close()
		}
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule.Cron, err)
	}
	return d, nil
}

// handler serves metrics and health endpoints.
func (d *daemon) handler() http.Handler {
	mux := http.NewServeMux()
	if d.pipeline.collector != nil {
		mux.Handle(d.cfg.Telemetry.Metrics.Path, d.pipeline.collector.Handler())
	}
	if d.cfg.Telemetry.Health.Enabled {
		health.Register(mux, d.checker,
			d.cfg.Telemetry.Health.LivenessPath,
			d.cfg.Telemetry.Health.ReadinessPath,
			health.NewVersionInfo(Version, GitCommit, BuildDate),
		)
	}
	return mux
}

// start begins serving, schedules validations and, when configured, runs
// one validation immediately. Runs use ctx until shutdown.
func (d *daemon) start(ctx context.Context) error {
	d.runMu.Lock()
	d.runCtx = ctx
	d.runMu.Unlock()

	if addr := d.cfg.Schedule.ListenAddress; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		d.listener = ln
		d.server = &http.Server{
			Handler:           d.handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.serveErr <- err
			}
		}()
		d.logger.Info("serving metrics and health", "address", ln.Addr().String())
	}

	if d.pruner != nil {
		if err := d.pruner.Start(ctx); err != nil {
			d.logger.Warn("failed to start retention scheduler", "error", err)
		} else if next := d.pruner.NextPruning(); next != nil {
			d.logger.Debug("history retention scheduler started", "next_pruning", next)
		}
	}

	d.cron.Start()
	d.logger.Info("validation scheduler started", "cron", d.cfg.Schedule.Cron)

	if d.cfg.Schedule.RunOnStart {
		go d.runScheduled()
	}
	return nil
}

func (d *daemon) runScheduled() {
	d.runMu.Lock()
	ctx := d.runCtx
	d.runMu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if !d.active.TryLock() {
		d.logger.Warn("previous validation still running, skipping")
		return
	}
	defer d.active.Unlock()
	d.pipeline.run(ctx, history.TriggerSchedule)
}

// nextRun returns the next scheduled validation, or nil before start.
func (d *daemon) nextRun() *time.Time {
	entries := d.cron.Entries()
	if len(entries) == 0 || entries[0].Next.IsZero() {
		return nil
	}
	next := entries[0].Next
	return &next
}

// shutdown stops scheduling, waits for a running validation and stops the
// server.
func (d *daemon) shutdown(ctx context.Context) error {
	cronDone := d.cron.Stop()
	idle := make(chan struct{})
	go func() {
		<-cronDone.Done()
		d.active.Lock()
		d.active.Unlock()
		close(idle)
	}()
	select {
	case <-idle:
	case <-ctx.Done():
		d.logger.Warn("validation still running at shutdown")
	}
	if d.pruner != nil {
		d.pruner.Stop()
	}
	if d.server != nil {
		if err := d.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
	}
	return nil
}

func (d *daemon) close() {
	if d.storage != nil {
		d.storage.Close()
	}
}
