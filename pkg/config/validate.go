package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "source.type").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

var (
	validSourceTypes    = []string{"csv", "sqlite", "postgres"}
	validOutputFormats  = []string{"text", "json", "csv"}
	validHistoryBackend = []string{"sqlite", "memory"}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
	validLogFormats     = []string{"json", "text", "console"}
	validSSLModes       = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
)

// Validate validates the entire configuration. All errors are collected and
// returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateSchema(&cfg.Schema)...)
	errs = append(errs, validateSource(&cfg.Source)...)
	errs = append(errs, validateValidation(&cfg.Validation)...)
	errs = append(errs, validateOutput(&cfg.Output)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateWatch(&cfg.Watch)...)
	errs = append(errs, validateSchedule(&cfg.Schedule)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func oneOf(field, value string, valid []string) []FieldError {
	if slices.Contains(valid, value) {
		return nil
	}
	return []FieldError{{
		Field:   field,
		Message: fmt.Sprintf("invalid value %q (must be one of: %s)", value, strings.Join(valid, ", ")),
	}}
}

func nonNegative(field string, d time.Duration) []FieldError {
	if d >= 0 {
		return nil
	}
	return []FieldError{{Field: field, Message: "must not be negative"}}
}

func validateSchema(cfg *SchemaConfig) []FieldError {
	if cfg.MaxFileSize <= 0 {
		return []FieldError{{Field: "schema.max_file_size", Message: "must be positive"}}
	}
	return nil
}

func validateSource(cfg *SourceConfig) []FieldError {
	errs := oneOf("source.type", cfg.Type, validSourceTypes)
	errs = append(errs, nonNegative("source.load_timeout", cfg.LoadTimeout)...)

	if len([]rune(cfg.CSV.Delimiter)) != 1 {
		errs = append(errs, FieldError{
			Field:   "source.csv.delimiter",
			Message: "must be a single character",
		})
	} else if strings.ContainsAny(cfg.CSV.Delimiter, "\"\r\n") {
		errs = append(errs, FieldError{
			Field:   "source.csv.delimiter",
			Message: "must not be a quote or line break",
		})
	}
	if !strings.HasPrefix(cfg.CSV.Extension, ".") {
		errs = append(errs, FieldError{
			Field:   "source.csv.extension",
			Message: "must start with '.'",
		})
	}
	errs = append(errs, nonNegative("source.sqlite.busy_timeout", cfg.SQLite.BusyTimeout)...)

	pg := cfg.Postgres
	if pg.DSN == "" {
		if pg.Port < 0 || pg.Port > 65535 {
			errs = append(errs, FieldError{
				Field:   "source.postgres.port",
				Message: "port must be between 1 and 65535",
			})
		}
		if pg.SSLMode != "" {
			errs = append(errs, oneOf("source.postgres.ssl_mode", pg.SSLMode, validSSLModes)...)
		}
	}

	switch cfg.Type {
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "source.sqlite.path",
				Message: "path is required when source.type is sqlite",
			})
		}
	case "postgres":
		if pg.DSN == "" && pg.Host == "" {
			errs = append(errs, FieldError{
				Field:   "source.postgres",
				Message: "dsn or host is required when source.type is postgres",
			})
		}
	}
	return errs
}

func validateValidation(cfg *ValidationConfig) []FieldError {
	var errs []FieldError
	if cfg.Parallelism < 1 {
		errs = append(errs, FieldError{Field: "validation.parallelism", Message: "must be at least 1"})
	}
	if cfg.ChunkSize < 1 {
		errs = append(errs, FieldError{Field: "validation.chunk_size", Message: "must be at least 1"})
	}
	for i, layout := range cfg.DatetimeLayouts {
		if strings.TrimSpace(layout) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("validation.datetime_layouts[%d]", i),
				Message: "layout must not be empty",
			})
		}
	}
	return append(errs, nonNegative("validation.timeout", cfg.Timeout)...)
}

func validateOutput(cfg *OutputConfig) []FieldError {
	return oneOf("output.format", cfg.Format, validOutputFormats)
}

func validateHistory(cfg *HistoryConfig) []FieldError {
	var errs []FieldError
	if !cfg.Enabled {
		return nil
	}
	errs = append(errs, oneOf("history.backend", cfg.Backend, validHistoryBackend)...)
	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{Field: "history.sqlite.path", Message: "path is required"})
	}
	if cfg.SQLite.MaxOpenConns < 0 {
		errs = append(errs, FieldError{Field: "history.sqlite.max_open_conns", Message: "must not be negative"})
	}
	if cfg.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "history.max_records", Message: "must not be negative"})
	}
	if cfg.Retention.MaxRuns < 0 {
		errs = append(errs, FieldError{Field: "history.retention.max_runs", Message: "must not be negative"})
	}
	if s := cfg.Retention.PruneSchedule; s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			errs = append(errs, FieldError{
				Field:   "history.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	return errs
}

func validateWatch(cfg *WatchConfig) []FieldError {
	if cfg.Debounce <= 0 {
		return []FieldError{{Field: "watch.debounce", Message: "must be positive"}}
	}
	return nil
}

func validateSchedule(cfg *ScheduleConfig) []FieldError {
	var errs []FieldError
	if cfg.Cron != "" {
		if _, err := cron.ParseStandard(cfg.Cron); err != nil {
			errs = append(errs, FieldError{
				Field:   "schedule.cron",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	return append(errs, nonNegative("schedule.shutdown_timeout", cfg.ShutdownTimeout)...)
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	errs := oneOf("telemetry.logging.level", strings.ToLower(cfg.Logging.Level), validLogLevels)
	errs = append(errs, oneOf("telemetry.logging.format", cfg.Logging.Format, validLogFormats)...)

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with '/'"})
	}
	if !slices.IsSorted(cfg.Metrics.DurationBuckets) {
		errs = append(errs, FieldError{Field: "telemetry.metrics.duration_buckets", Message: "buckets must be sorted"})
	}
	if cfg.Health.Enabled {
		if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
			errs = append(errs, FieldError{Field: "telemetry.health.liveness_path", Message: "must start with '/'"})
		}
		if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
			errs = append(errs, FieldError{Field: "telemetry.health.readiness_path", Message: "must start with '/'"})
		}
	}
	return append(errs, nonNegative("telemetry.health.max_run_age", cfg.Health.MaxRunAge)...)
}
