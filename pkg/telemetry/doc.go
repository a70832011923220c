// Package telemetry groups cdmcheck's observability packages:
//
//   - logging: slog setup, context fields and credential redaction
//   - metrics: Prometheus collector for validation runs
//   - health: liveness and readiness endpoints for the schedule daemon
package telemetry
