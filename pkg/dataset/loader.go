package dataset

import (
	"context"
	"log/slog"
	"time"
)

// Loader reads one table at a time from a data source.
type Loader interface {
	// LoadTable reads the named table. Implementations wrap ErrTableNotFound
	// when the source has no such table.
	LoadTable(ctx context.Context, name string) (*Table, error)

	// Source describes the data source for logs and failure messages.
	Source() string

	// Close releases any resources held by the loader.
	Close() error
}

// Load reads every named table through l. Tables that fail to load are
// returned as failures in the order given and left out of the dataset.
// Only context cancellation produces an error.
func Load(ctx context.Context, l Loader, names []string) (*Dataset, []*LoadError, error) {
	logger := slog.Default().With("component", "dataset.loader", "source", l.Source())

	ds := New()
	var failures []*LoadError

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return ds, failures, err
		}

		start := time.Now()
		t, err := l.LoadTable(ctx, name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ds, failures, ctxErr
			}
			lerr := NewLoadError(name, l.Source(), err)
			logger.Warn("table load failed",
				"table", name,
				"not_found", lerr.IsNotFound(),
				"error", err,
			)
			failures = append(failures, lerr)
			continue
		}

		t.Name = name
		ds.Add(t)
		logger.Debug("table loaded",
			"table", name,
			"rows", t.Len(),
			"columns", len(t.Columns),
			"duration", time.Since(start),
		)
	}

	logger.Info("dataset loaded",
		"tables", ds.Len(),
		"failures", len(failures),
		"rows", ds.RowCount(),
	)
	return ds, failures, nil
}
