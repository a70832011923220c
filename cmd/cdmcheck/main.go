// cdmcheck validates tabular datasets against a declarative relational schema.
//
// It checks every table of a CSV directory, SQLite file or PostgreSQL schema
// for:
//   - Required columns and nulls in them
//   - Declared datatypes and string length limits
//   - Primary-key uniqueness
//   - Foreign-key references across tables
//
// Usage:
//
//	# Validate a CSV directory against a schema
//	cdmcheck validate schema.yaml data/
//
//	# Validate using a configuration file
//	cdmcheck validate --config cdmcheck.yaml
//
//	# Check a schema for authoring mistakes
//	cdmcheck lint --file schema.yaml
//
//	# Re-validate whenever the schema or data changes
//	cdmcheck watch schema.yaml data/
//
//	# Run on a cron schedule with metrics and health endpoints
//	cdmcheck schedule --cron "@hourly"
//
//	# Inspect past runs
//	cdmcheck history list
package main

func main() {
	Execute()
}
