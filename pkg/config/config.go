package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config is the root configuration structure for cdmcheck.
type Config struct {
	// Schema locates the schema file.
	Schema SchemaConfig `yaml:"schema"`

	// Source selects and configures the dataset loader.
	Source SourceConfig `yaml:"source"`

	// Validation tunes the validation engine.
	Validation ValidationConfig `yaml:"validation"`

	// Output controls how reports are written.
	Output OutputConfig `yaml:"output"`

	// History configures run-history storage and retention.
	History HistoryConfig `yaml:"history"`

	// Watch configures watch mode.
	Watch WatchConfig `yaml:"watch"`

	// Schedule configures the scheduled validation daemon.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Telemetry contains logging, metrics and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SchemaConfig locates the schema file.
type SchemaConfig struct {
	// Path is the YAML schema file.
	Path string `yaml:"path"`

	// MaxFileSize is the largest schema file accepted, in bytes.
	// Default: 10485760 (10MB)
	MaxFileSize int64 `yaml:"max_file_size"`
}

// SourceConfig selects the dataset loader.
type SourceConfig struct {
	// Type is the loader to use.
	// Options: "csv", "sqlite", "postgres"
	// Default: "csv"
	Type string `yaml:"type"`

	// LoadTimeout bounds loading the whole dataset. 0 disables the bound.
	LoadTimeout time.Duration `yaml:"load_timeout"`

	CSV      CSVSourceConfig      `yaml:"csv"`
	SQLite   SQLiteSourceConfig   `yaml:"sqlite"`
	Postgres PostgresSourceConfig `yaml:"postgres"`
}

// CSVSourceConfig configures the CSV directory loader.
type CSVSourceConfig struct {
	// Dir holds one <table>.csv file per schema table.
	// Default: "."
	Dir string `yaml:"dir"`

	// Delimiter is the field separator. Default: ","
	Delimiter string `yaml:"delimiter"`

	// Extension is the file extension. Default: ".csv"
	Extension string `yaml:"extension"`

	// NullTokens are the cell values read as null. Empty uses the
	// loader defaults.
	NullTokens []string `yaml:"null_tokens"`

	// InferTypes converts cells to bool, integer and float where they parse.
	// When false every non-null cell is a string.
	// Default: true
	InferTypes bool `yaml:"infer_types"`
}

// SQLiteSourceConfig configures the SQLite dataset loader.
type SQLiteSourceConfig struct {
	// Path is the database file. It is opened read-only.
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresSourceConfig configures the PostgreSQL dataset loader.
type PostgresSourceConfig struct {
	// DSN is a full connection string. When set, the individual fields
	// below are ignored.
	DSN string `yaml:"dsn"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`

	// Password should be supplied through CDMCHECK_SOURCE_POSTGRES_PASSWORD.
	Password string `yaml:"password"`

	// SSLMode is passed through as sslmode. Default: "require"
	SSLMode string `yaml:"ssl_mode"`

	// Schema is the PostgreSQL schema holding the tables. Default: "public"
	Schema string `yaml:"schema"`
}

// ConnString returns DSN if set, otherwise a key/value connection string
// built from the individual fields.
func (c PostgresSourceConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}

	params := map[string]string{
		"host":     c.Host,
		"dbname":   c.Database,
		"user":     c.User,
		"password": c.Password,
		"sslmode":  c.SSLMode,
	}
	if c.Port != 0 {
		params["port"] = fmt.Sprint(c.Port)
	}

	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + quoteConnValue(params[k])
	}
	return strings.Join(parts, " ")
}

func quoteConnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// ValidationConfig tunes the validation engine.
type ValidationConfig struct {
	// Parallelism is how many tables are validated concurrently.
	// Default: 1
	Parallelism int `yaml:"parallelism"`

	// ChunkSize is the number of rows per datatype/length scan chunk.
	// Default: 50000
	ChunkSize int `yaml:"chunk_size"`

	// DatetimeLayouts are the Go time layouts accepted for strings in
	// datetime columns. Empty uses the built-in ISO-8601 layouts.
	DatetimeLayouts []string `yaml:"datetime_layouts"`

	// Timeout bounds a whole run. 0 disables the bound.
	Timeout time.Duration `yaml:"timeout"`
}

// OutputConfig controls report output.
type OutputConfig struct {
	// Format is the report format.
	// Options: "text", "json", "csv"
	// Default: "text"
	Format string `yaml:"format"`

	// File writes the report to a file instead of stdout.
	File string `yaml:"file"`

	// Pretty indents JSON output. Default: true
	Pretty bool `yaml:"pretty"`

	// Header includes a header row in CSV output. Default: true
	Header bool `yaml:"header"`
}

// HistoryConfig configures run-history storage.
type HistoryConfig struct {
	// Enabled records each run. Default: true
	Enabled bool `yaml:"enabled"`

	// Backend is the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	SQLite HistorySQLiteConfig `yaml:"sqlite"`

	// MaxRecords bounds how many report records are stored per run.
	// 0 stores all. Default: 10000
	MaxRecords int `yaml:"max_records"`

	Retention RetentionConfig `yaml:"retention"`
}

// HistorySQLiteConfig configures the SQLite history backend.
type HistorySQLiteConfig struct {
	// Path is the database file. Default: "data/history.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections. Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables write-ahead logging. Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database. Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig configures history pruning.
type RetentionConfig struct {
	// Days is how long runs are kept. A negative value keeps them
	// forever. Default: 30
	Days int `yaml:"days"`

	// MaxRuns is the maximum number of stored runs. 0 is unlimited.
	MaxRuns int64 `yaml:"max_runs"`

	// PruneSchedule is a cron expression. Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveDir receives the JSON reports of pruned runs when set.
	ArchiveDir string `yaml:"archive_dir"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is the quiet period before re-validating. Default: 500ms
	Debounce time.Duration `yaml:"debounce"`

	// Extensions are the file extensions that trigger re-validation.
	Extensions []string `yaml:"extensions"`
}

// ScheduleConfig configures the scheduled validation daemon.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression. Descriptors such as
	// "@hourly" and "@every 30m" are also accepted.
	Cron string `yaml:"cron"`

	// RunOnStart runs one validation immediately. Default: false
	RunOnStart bool `yaml:"run_on_start"`

	// ListenAddress serves metrics and health endpoints while the daemon
	// runs. Empty disables the server. Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// ShutdownTimeout bounds the HTTP server shutdown. Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "console"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks passwords in connection strings and values of
	// secret-looking keys. Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected. Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint. Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix. Default: "cdmcheck"
	Namespace string `yaml:"namespace"`

	// DurationBuckets are histogram buckets for table and run durations
	// in seconds.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health endpoints are served. Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath defaults to "/health".
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath defaults to "/ready".
	ReadinessPath string `yaml:"readiness_path"`

	// MaxRunAge marks the daemon unready when the last successful run is
	// older than this. 0 disables the check.
	MaxRunAge time.Duration `yaml:"max_run_age"`
}
