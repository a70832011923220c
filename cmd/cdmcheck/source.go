package main

import (
	"context"
	"fmt"

	"tabular-qa/cdmcheck/pkg/config"
	"tabular-qa/cdmcheck/pkg/dataset"
	"tabular-qa/cdmcheck/pkg/history"
)

// newLoader opens the dataset loader selected by source.type.
func newLoader(ctx context.Context, cfg config.SourceConfig) (dataset.Loader, error) {
	switch cfg.Type {
	case "csv":
		opts := []dataset.CSVOption{
			dataset.WithExtension(cfg.CSV.Extension),
			dataset.WithTypeInference(cfg.CSV.InferTypes),
		}
		if d := []rune(cfg.CSV.Delimiter); len(d) == 1 {
			opts = append(opts, dataset.WithDelimiter(d[0]))
		}
		if len(cfg.CSV.NullTokens) > 0 {
			opts = append(opts, dataset.WithNullTokens(cfg.CSV.NullTokens))
		}
		return dataset.NewCSVLoader(cfg.CSV.Dir, opts...), nil
	case "sqlite":
		return dataset.NewSQLiteLoaderWithConfig(dataset.SQLiteLoaderConfig{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
	case "postgres":
		return dataset.NewPostgresLoader(ctx, cfg.Postgres.ConnString(), cfg.Postgres.Schema)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Type)
	}
}

// sourceDescription names the configured source without credentials.
func sourceDescription(cfg config.SourceConfig) string {
	switch cfg.Type {
	case "csv":
		return "csv:" + cfg.CSV.Dir
	case "sqlite":
		return "sqlite:" + cfg.SQLite.Path
	case "postgres":
		if cfg.Postgres.DSN != "" {
			return "postgres"
		}
		return fmt.Sprintf("postgres:%s/%s", cfg.Postgres.Host, cfg.Postgres.Database)
	default:
		return cfg.Type
	}
}

// sourcePaths returns the local files a watcher should follow for cfg.
func sourcePaths(cfg config.SourceConfig) []string {
	switch cfg.Type {
	case "csv":
		return []string{cfg.CSV.Dir}
	case "sqlite":
		return []string{cfg.SQLite.Path}
	default:
		return nil
	}
}

// setDataPath points the configured source at path.
func setDataPath(cfg *config.SourceConfig, path string) error {
	switch cfg.Type {
	case "csv":
		cfg.CSV.Dir = path
	case "sqlite":
		cfg.SQLite.Path = path
	case "postgres":
		cfg.Postgres.DSN = path
	default:
		return fmt.Errorf("unsupported source type: %s", cfg.Type)
	}
	return nil
}

// openHistory opens the configured run-history backend. It returns nil
// when history is disabled.
func openHistory(cfg config.HistoryConfig) (history.Storage, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Backend {
	case "memory":
		return history.NewMemoryStorage(), nil
	case "sqlite":
		return history.NewSQLiteStorage(&history.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.Backend)
	}
}

// newPruner builds the retention pruner for storage.
func newPruner(storage history.Storage, cfg config.RetentionConfig) *history.Pruner {
	days := cfg.Days
	if days < 0 {
		days = 0
	}
	return history.NewPruner(storage, &history.RetentionConfig{
		RetentionDays: days,
		MaxRuns:       cfg.MaxRuns,
		PruneSchedule: cfg.PruneSchedule,
		ArchiveDir:    cfg.ArchiveDir,
	})
}
