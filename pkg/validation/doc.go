/*
Package validation checks a loaded dataset against a schema.

# Checks

For each schema table present in the dataset the engine runs, in order:

  - Required columns: a missing column yields MissingRequiredColumn; each null
    in a present column yields NullInRequiredColumn.
  - Datatypes: each non-null value is classified by the Normalizer and
    compared with the declared kind; each mismatch yields TypeMismatch.
  - Character lengths: string columns with max_length yield
    CharacterLengthExceeded per value longer than the limit.
  - Primary key: one DuplicatePrimaryKey per table when the key column holds
    fewer distinct values than rows.
  - Foreign keys: one InvalidForeignKeyReference per distinct local value
    missing from the referenced column. Nulls are allowed.

Tables missing from the dataset are skipped; foreign keys into them are
skipped as well.

# Classification

Normalizer.Classify maps a value to one of null, bool, integer, float,
datetime or string, in that precedence. Strings are only recognised as
datetimes in columns declared datetime. Values of any other Go type are
tagged with their type name and never match a declared kind.

# Concurrency

Each table is checked into its own report builder and the builders are merged
in schema order, so WithParallelism does not change the report. The context
is observed between tables.

	engine := validation.NewEngine(validation.WithParallelism(4))
	rep, err := engine.Validate(ctx, s, ds)
*/
package validation
