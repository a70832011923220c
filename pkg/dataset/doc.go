// Package dataset holds the in-memory tables a validation run checks and the
// loaders that produce them.
//
// Three sources are supported: a directory with one CSV file per table
// (CSVLoader), a SQLite database file (SQLiteLoader) and a PostgreSQL schema
// (PostgresLoader). Load drives any Loader over the schema's table names.
// A table that cannot be loaded is a soft failure: it is returned as a
// *LoadError, recorded in the report as TableLoadFailure and left out of the
// dataset, so validation skips it.
//
//	loader := dataset.NewCSVLoader("data/")
//	ds, failures, err := dataset.Load(ctx, loader, s.TableNames())
package dataset
