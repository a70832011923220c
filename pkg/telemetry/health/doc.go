// Package health serves liveness and readiness endpoints for the scheduled
// validation daemon.
//
// Readiness aggregates registered checks. Besides arbitrary CheckFuncs the
// package provides FileCheck (schema file or dataset directory still
// present), StorageCheck (run history reachable) and RunTracker's
// FreshnessCheck (a run completed recently):
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("schema", health.FileCheck(schemaPath))
//	checker.RegisterCheck("history", health.StorageCheck(store))
//	health.Register(mux, checker, "/health", "/ready", info)
package health
