package history

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tabular-qa/cdmcheck/pkg/export"
)

// RetentionConfig contains configuration for the retention pruner.
type RetentionConfig struct {
	// RetentionDays is the number of days to keep runs.
	// 0 keeps runs forever.
	RetentionDays int

	// MaxRuns is the maximum number of runs to keep. 0 means unlimited.
	MaxRuns int64

	// PruneSchedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// ArchiveDir, when set, receives the reports of pruned runs as JSON files
	// before they are deleted.
	ArchiveDir string
}

// DefaultRetentionConfig returns the default retention configuration.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces retention on stored runs.
type Pruner struct {
	storage   Storage
	config    *RetentionConfig
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage Storage, config *RetentionConfig) *Pruner {
	if config == nil {
		config = DefaultRetentionConfig()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "history.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes runs older than the retention period, then the oldest runs
// beyond MaxRuns. It returns the number of runs deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, NewRetentionError(p.config.RetentionDays, err)
		}
		total += deleted
	}

	if p.config.MaxRuns > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, NewRetentionError(p.config.RetentionDays, err)
		}
		total += deleted
	}

	if total > 0 {
		p.logger.Info("run history pruned",
			"deleted_count", total,
			"retention_days", p.config.RetentionDays,
			"max_runs", p.config.MaxRuns,
		)
	} else {
		p.logger.Debug("no runs pruned")
	}
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
	query := &Query{Until: &cutoff}

	if p.config.ArchiveDir != "" {
		runs, err := p.storage.Query(ctx, &Query{Until: &cutoff, Oldest: true})
		if err != nil {
			return 0, fmt.Errorf("failed to query runs for archiving: %w", err)
		}
		if err := p.archive(ctx, runs); err != nil {
			return 0, err
		}
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired runs: %w", err)
	}
	return deleted, nil
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	if count <= p.config.MaxRuns {
		return 0, nil
	}

	excess := int(count - p.config.MaxRuns)
	oldest, err := p.storage.Query(ctx, &Query{Oldest: true, Limit: excess})
	if err != nil {
		return 0, fmt.Errorf("failed to query oldest runs: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	if p.config.ArchiveDir != "" {
		if err := p.archive(ctx, oldest); err != nil {
			return 0, err
		}
	}

	ids := make([]string, len(oldest))
	for i, r := range oldest {
		ids[i] = r.ID
	}
	deleted, err := p.storage.Delete(ctx, &Query{IDs: ids})
	if err != nil {
		return 0, fmt.Errorf("failed to delete oldest runs: %w", err)
	}
	return deleted, nil
}

// archive writes one JSON report file per run into ArchiveDir.
func (p *Pruner) archive(ctx context.Context, runs []*Run) error {
	if len(runs) == 0 {
		return nil
	}
	if err := os.MkdirAll(p.config.ArchiveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	exporter := export.NewJSONExporter(true)
	for _, run := range runs {
		name := fmt.Sprintf("run-%s-%s.json", run.StartedAt.Format("20060102-150405"), run.ID)
		path := filepath.Join(p.config.ArchiveDir, name)

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create archive file: %w", err)
		}
		err = exporter.Export(ctx, run.Report(), f)
		closeErr := f.Close()
		if err != nil {
			return fmt.Errorf("failed to archive run %s: %w", run.ID, err)
		}
		if closeErr != nil {
			return fmt.Errorf("failed to close archive file: %w", closeErr)
		}
	}

	p.logger.Info("runs archived",
		"archive_dir", p.config.ArchiveDir,
		"run_count", len(runs),
	)
	return nil
}

// Start starts scheduled pruning.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
