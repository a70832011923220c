package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteLoader reads tables from a SQLite database file. The file is opened
// read-only; tables and views are both accepted.
type SQLiteLoader struct {
	sqlTableReader
	path string
}

// SQLiteLoaderConfig configures the SQLite loader.
type SQLiteLoaderConfig struct {
	// Path is the path to the SQLite database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteLoader opens the database at path with default settings.
func NewSQLiteLoader(path string) (*SQLiteLoader, error) {
	return NewSQLiteLoaderWithConfig(SQLiteLoaderConfig{Path: path})
}

// NewSQLiteLoaderWithConfig opens a SQLite database for reading.
func NewSQLiteLoaderWithConfig(cfg SQLiteLoaderConfig) (*SQLiteLoader, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	// Opening a missing file would silently create an empty database.
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("failed to access sqlite database: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteLoader{
		sqlTableReader: sqlTableReader{db: db},
		path:           cfg.Path,
	}, nil
}

// Source implements Loader.
func (l *SQLiteLoader) Source() string {
	return "sqlite:" + l.path
}

// LoadTable implements Loader.
func (l *SQLiteLoader) LoadTable(ctx context.Context, name string) (*Table, error) {
	var found string
	err := l.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`,
		name,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up table %q: %w", name, err)
	}

	return l.readTable(ctx, name, "SELECT * FROM "+quoteIdentifier(name))
}

// Close implements Loader.
func (l *SQLiteLoader) Close() error {
	return l.db.Close()
}
