// Package logging configures cdmcheck's structured logger.
//
// New builds a log/slog logger writing JSON, text or console output.
// Installing it with SetDefault routes every package's slog.Default()
// output through it:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault()
//
// Records logged with a context carry run_id, trigger and table fields set
// with WithRunID, WithTrigger and WithTable.
//
// With RedactSecrets enabled, passwords in connection strings are masked
// (postgres://qa:***@db/cdm, password=***) and values of keys such as
// "password" or "token" are replaced entirely.
package logging
