// Package config loads cdmcheck's configuration.
//
// Configuration comes from an optional YAML file decoded on top of the
// defaults, then environment variables named CDMCHECK_SECTION_FIELD, then
// command-line flags (applied by the commands). The result is validated and
// every invalid field is reported:
//
//	configuration validation failed with 2 errors:
//	  - source.type: invalid value "excel" (must be one of: csv, sqlite, postgres)
//	  - validation.parallelism: must be at least 1
//
// A minimal file:
//
//	schema:
//	  path: cdm_schema.yaml
//	source:
//	  type: csv
//	  csv:
//	    dir: ./data
//	validation:
//	  parallelism: 4
//	history:
//	  retention:
//	    days: 14
//
// Unknown keys are rejected so that typos do not silently fall back to
// defaults.
package config
