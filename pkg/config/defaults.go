package config

import "time"

// Default values for configuration fields.
const (
	// Schema defaults
	DefaultSchemaMaxFileSize = int64(10 * 1024 * 1024)

	// Source defaults
	DefaultSourceType         = "csv"
	DefaultCSVDir             = "."
	DefaultCSVDelimiter       = ","
	DefaultCSVExtension       = ".csv"
	DefaultCSVInferTypes      = true
	DefaultSQLiteBusyTimeout  = 5 * time.Second
	DefaultPostgresPort       = 5432
	DefaultPostgresSSLMode    = "require"
	DefaultPostgresSchemaName = "public"

	// Validation defaults
	DefaultParallelism = 1
	DefaultChunkSize   = 50000

	// Output defaults
	DefaultOutputFormat = "text"
	DefaultOutputPretty = true
	DefaultOutputHeader = true

	// History defaults
	DefaultHistoryEnabled         = true
	DefaultHistoryBackend         = "sqlite"
	DefaultHistorySQLitePath      = "data/history.db"
	DefaultHistoryMaxOpenConns    = 4
	DefaultHistoryWALMode         = true
	DefaultHistoryBusyTimeout     = 5 * time.Second
	DefaultHistoryMaxRecords      = 10000
	DefaultRetentionDays          = 30
	DefaultRetentionPruneSchedule = "0 3 * * *"

	// Watch defaults
	DefaultWatchDebounce = 500 * time.Millisecond

	// Schedule defaults
	DefaultScheduleListenAddress   = "127.0.0.1:9464"
	DefaultScheduleShutdownTimeout = 10 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "console"
	DefaultLoggingRedactSecrets = true
	DefaultMetricsEnabled       = true
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "cdmcheck"
	DefaultHealthEnabled        = true
	DefaultLivenessPath         = "/health"
	DefaultReadinessPath        = "/ready"
)

// DefaultWatchExtensions are the file extensions watch mode reacts to.
var DefaultWatchExtensions = []string{".yaml", ".yml", ".csv", ".db", ".sqlite", ".sqlite3"}

// DefaultDurationBuckets are histogram buckets in seconds.
var DefaultDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}

// DefaultConfig returns a configuration with every default applied,
// including the boolean defaults that ApplyDefaults cannot tell apart from
// an explicit false. Files are decoded on top of it.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Source.CSV.InferTypes = DefaultCSVInferTypes
	cfg.Output.Pretty = DefaultOutputPretty
	cfg.Output.Header = DefaultOutputHeader
	cfg.History.Enabled = DefaultHistoryEnabled
	cfg.History.SQLite.WALMode = DefaultHistoryWALMode
	cfg.Telemetry.Logging.RedactSecrets = DefaultLoggingRedactSecrets
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	// Schema defaults
	if cfg.Schema.MaxFileSize == 0 {
		cfg.Schema.MaxFileSize = DefaultSchemaMaxFileSize
	}

	// Source defaults
	if cfg.Source.Type == "" {
		cfg.Source.Type = DefaultSourceType
	}
	if cfg.Source.CSV.Dir == "" {
		cfg.Source.CSV.Dir = DefaultCSVDir
	}
	if cfg.Source.CSV.Delimiter == "" {
		cfg.Source.CSV.Delimiter = DefaultCSVDelimiter
	}
	if cfg.Source.CSV.Extension == "" {
		cfg.Source.CSV.Extension = DefaultCSVExtension
	}
	if cfg.Source.SQLite.BusyTimeout == 0 {
		cfg.Source.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Source.Postgres.DSN == "" {
		if cfg.Source.Postgres.Port == 0 {
			cfg.Source.Postgres.Port = DefaultPostgresPort
		}
		if cfg.Source.Postgres.SSLMode == "" {
			cfg.Source.Postgres.SSLMode = DefaultPostgresSSLMode
		}
	}
	if cfg.Source.Postgres.Schema == "" {
		cfg.Source.Postgres.Schema = DefaultPostgresSchemaName
	}

	// Validation defaults
	if cfg.Validation.Parallelism == 0 {
		cfg.Validation.Parallelism = DefaultParallelism
	}
	if cfg.Validation.ChunkSize == 0 {
		cfg.Validation.ChunkSize = DefaultChunkSize
	}

	// Output defaults
	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultOutputFormat
	}

	// History defaults
	if cfg.History.Backend == "" {
		cfg.History.Backend = DefaultHistoryBackend
	}
	if cfg.History.SQLite.Path == "" {
		cfg.History.SQLite.Path = DefaultHistorySQLitePath
	}
	if cfg.History.SQLite.MaxOpenConns == 0 {
		cfg.History.SQLite.MaxOpenConns = DefaultHistoryMaxOpenConns
	}
	if cfg.History.SQLite.BusyTimeout == 0 {
		cfg.History.SQLite.BusyTimeout = DefaultHistoryBusyTimeout
	}
	if cfg.History.MaxRecords == 0 {
		cfg.History.MaxRecords = DefaultHistoryMaxRecords
	}
	if cfg.History.Retention.Days == 0 {
		cfg.History.Retention.Days = DefaultRetentionDays
	}
	if cfg.History.Retention.PruneSchedule == "" {
		cfg.History.Retention.PruneSchedule = DefaultRetentionPruneSchedule
	}

	// Watch defaults
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = append([]string(nil), DefaultWatchExtensions...)
	}

	// Schedule defaults
	if cfg.Schedule.ListenAddress == "" {
		cfg.Schedule.ListenAddress = DefaultScheduleListenAddress
	}
	if cfg.Schedule.ShutdownTimeout == 0 {
		cfg.Schedule.ShutdownTimeout = DefaultScheduleShutdownTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
}
