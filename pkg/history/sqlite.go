package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tabular-qa/cdmcheck/pkg/report"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 4
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/history.db",
		MaxOpenConns: 4,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens (creating if needed) the history database.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, NewStorageError("sqlite", "open", errors.New("path cannot be empty"))
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 4
	}
	if config.Path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		config.MaxOpenConns = 1
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "history.storage.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." && config.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError("sqlite", "open", err)
		}
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store implements Storage.
func (s *SQLiteStorage) Store(ctx context.Context, run *Run) error {
	counts, err := json.Marshal(run.CountsByKind)
	if err != nil {
		return NewStorageError("sqlite", "store", fmt.Errorf("marshal counts: %w", err))
	}
	records, err := json.Marshal(run.Records)
	if err != nil {
		return NewStorageError("sqlite", "store", fmt.Errorf("marshal records: %w", err))
	}

	var finished sql.NullInt64
	if !run.FinishedAt.IsZero() {
		finished = sql.NullInt64{Int64: run.FinishedAt.UnixNano(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixNano(), finished,
		run.SchemaPath, run.Source, string(run.Trigger),
		string(run.Status), run.Tables, run.LoadFailures, run.RecordCount,
		string(counts), run.Error, string(records),
	)
	if err != nil {
		return NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Get implements Storage.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	if err != nil {
		return nil, NewStorageError("sqlite", "get", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, NewStorageError("sqlite", "get", err)
		}
		return nil, ErrNotFound
	}
	run, err := s.scanRow(rows)
	if err != nil {
		return nil, NewStorageError("sqlite", "scan", err)
	}
	return run, nil
}

// Query implements Storage.
func (s *SQLiteStorage) Query(ctx context.Context, query *Query) ([]*Run, error) {
	if query == nil {
		query = &Query{}
	}

	whereClause, args := s.buildWhereClause(query)
	sqlQuery := "SELECT " + runColumns + " FROM runs"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	order := "DESC"
	if query.Oldest {
		order = "ASC"
	}
	sqlQuery += " ORDER BY started_at " + order

	if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", query.Limit)
		if query.Offset > 0 {
			sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
		}
	} else if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT -1 OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := s.scanRow(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	return runs, nil
}

// Count implements Storage.
func (s *SQLiteStorage) Count(ctx context.Context, query *Query) (int64, error) {
	if query == nil {
		query = &Query{}
	}

	whereClause, args := s.buildWhereClause(query)
	sqlQuery := "SELECT COUNT(*) FROM runs"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete implements Storage.
func (s *SQLiteStorage) Delete(ctx context.Context, query *Query) (int64, error) {
	if query == nil {
		query = &Query{}
	}

	whereClause, args := s.buildWhereClause(query)
	sqlQuery := "DELETE FROM runs"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close implements Storage.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	return nil
}

func (s *SQLiteStorage) buildWhereClause(query *Query) (string, []any) {
	var conditions []string
	var args []any

	if len(query.IDs) > 0 {
		placeholders := make([]string, len(query.IDs))
		for i, id := range query.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		conditions = append(conditions, "id IN ("+strings.Join(placeholders, ", ")+")")
	}
	if query.Since != nil {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, query.Since.UnixNano())
	}
	if query.Until != nil {
		conditions = append(conditions, "started_at <= ?")
		args = append(args, query.Until.UnixNano())
	}
	if query.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(query.Status))
	}
	if query.SchemaPath != "" {
		conditions = append(conditions, "schema_path = ?")
		args = append(args, query.SchemaPath)
	}

	return strings.Join(conditions, " AND "), args
}

func (s *SQLiteStorage) scanRow(rows *sql.Rows) (*Run, error) {
	var (
		run                      Run
		startedAt                int64
		finishedAt               sql.NullInt64
		trigger, status          string
		counts, errText, records sql.NullString
	)

	err := rows.Scan(
		&run.ID, &startedAt, &finishedAt,
		&run.SchemaPath, &run.Source, &trigger,
		&status, &run.Tables, &run.LoadFailures, &run.RecordCount,
		&counts, &errText, &records,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt = time.Unix(0, startedAt).UTC()
	if finishedAt.Valid {
		run.FinishedAt = time.Unix(0, finishedAt.Int64).UTC()
	}
	run.Trigger = Trigger(trigger)
	run.Status = Status(status)
	run.Error = errText.String

	if counts.Valid && counts.String != "" && counts.String != "null" {
		run.CountsByKind = make(map[report.Kind]int)
		if err := json.Unmarshal([]byte(counts.String), &run.CountsByKind); err != nil {
			return nil, fmt.Errorf("unmarshal counts: %w", err)
		}
	}
	if records.Valid && records.String != "" && records.String != "null" {
		if err := json.Unmarshal([]byte(records.String), &run.Records); err != nil {
			return nil, fmt.Errorf("unmarshal records: %w", err)
		}
	}

	return &run, nil
}
