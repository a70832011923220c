package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CDMCHECK_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of DefaultConfig, so omitted fields keep their
// defaults. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := decode(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CDMCHECK_SECTION_FIELD (e.g., CDMCHECK_SOURCE_CSV_DIR) and always
// take precedence over the file.
//
// An empty path skips the file and starts from DefaultConfig.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envList(name string, dst *[]string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst = out
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envInt64(name string, dst *int64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Unparseable numeric and boolean values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Schema overrides
	envString("SCHEMA_PATH", &cfg.Schema.Path)
	envInt64("SCHEMA_MAX_FILE_SIZE", &cfg.Schema.MaxFileSize)

	// Source overrides
	envString("SOURCE_TYPE", &cfg.Source.Type)
	envDuration("SOURCE_LOAD_TIMEOUT", &cfg.Source.LoadTimeout)
	envString("SOURCE_CSV_DIR", &cfg.Source.CSV.Dir)
	envString("SOURCE_CSV_DELIMITER", &cfg.Source.CSV.Delimiter)
	envString("SOURCE_CSV_EXTENSION", &cfg.Source.CSV.Extension)
	envList("SOURCE_CSV_NULL_TOKENS", &cfg.Source.CSV.NullTokens)
	envBool("SOURCE_CSV_INFER_TYPES", &cfg.Source.CSV.InferTypes)
	envString("SOURCE_SQLITE_PATH", &cfg.Source.SQLite.Path)
	envDuration("SOURCE_SQLITE_BUSY_TIMEOUT", &cfg.Source.SQLite.BusyTimeout)
	envString("SOURCE_POSTGRES_DSN", &cfg.Source.Postgres.DSN)
	envString("SOURCE_POSTGRES_HOST", &cfg.Source.Postgres.Host)
	envInt("SOURCE_POSTGRES_PORT", &cfg.Source.Postgres.Port)
	envString("SOURCE_POSTGRES_DATABASE", &cfg.Source.Postgres.Database)
	envString("SOURCE_POSTGRES_USER", &cfg.Source.Postgres.User)
	envString("SOURCE_POSTGRES_PASSWORD", &cfg.Source.Postgres.Password)
	envString("SOURCE_POSTGRES_SSL_MODE", &cfg.Source.Postgres.SSLMode)
	envString("SOURCE_POSTGRES_SCHEMA", &cfg.Source.Postgres.Schema)

	// Validation overrides
	envInt("VALIDATION_PARALLELISM", &cfg.Validation.Parallelism)
	envInt("VALIDATION_CHUNK_SIZE", &cfg.Validation.ChunkSize)
	envList("VALIDATION_DATETIME_LAYOUTS", &cfg.Validation.DatetimeLayouts)
	envDuration("VALIDATION_TIMEOUT", &cfg.Validation.Timeout)

	// Output overrides
	envString("OUTPUT_FORMAT", &cfg.Output.Format)
	envString("OUTPUT_FILE", &cfg.Output.File)
	envBool("OUTPUT_PRETTY", &cfg.Output.Pretty)
	envBool("OUTPUT_HEADER", &cfg.Output.Header)

	// History overrides
	envBool("HISTORY_ENABLED", &cfg.History.Enabled)
	envString("HISTORY_BACKEND", &cfg.History.Backend)
	envString("HISTORY_SQLITE_PATH", &cfg.History.SQLite.Path)
	envInt("HISTORY_MAX_RECORDS", &cfg.History.MaxRecords)
	envInt("HISTORY_RETENTION_DAYS", &cfg.History.Retention.Days)
	envInt64("HISTORY_RETENTION_MAX_RUNS", &cfg.History.Retention.MaxRuns)
	envString("HISTORY_RETENTION_PRUNE_SCHEDULE", &cfg.History.Retention.PruneSchedule)
	envString("HISTORY_RETENTION_ARCHIVE_DIR", &cfg.History.Retention.ArchiveDir)

	// Watch overrides
	envDuration("WATCH_DEBOUNCE", &cfg.Watch.Debounce)
	envList("WATCH_EXTENSIONS", &cfg.Watch.Extensions)

	// Schedule overrides
	envString("SCHEDULE_CRON", &cfg.Schedule.Cron)
	envBool("SCHEDULE_RUN_ON_START", &cfg.Schedule.RunOnStart)
	envString("SCHEDULE_LISTEN_ADDRESS", &cfg.Schedule.ListenAddress)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBool("TELEMETRY_LOGGING_REDACT_SECRETS", &cfg.Telemetry.Logging.RedactSecrets)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_HEALTH_ENABLED", &cfg.Telemetry.Health.Enabled)
}
