// Package history records validation runs so that past outcomes can be
// listed, inspected and pruned.
//
// A Run holds the run's timing, trigger, status, per-kind counts and the
// report records. Two Storage backends exist: MemoryStorage and SQLiteStorage,
// a file-backed store using github.com/mattn/go-sqlite3.
//
// Pruner removes runs older than RetentionDays and the oldest runs beyond
// MaxRuns, optionally archiving their reports as JSON first. Start runs it on
// a cron schedule.
package history
