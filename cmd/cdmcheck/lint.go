package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tabular-qa/cdmcheck/pkg/cli"
	"tabular-qa/cdmcheck/pkg/schema"
)

var lintFlags struct {
	file   string
	dir    string
	strict bool
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint [schema...]",
	Short: "Check schema files for errors and likely mistakes",
	Long: `Parse schema files and report acquisition errors and lint warnings.

Errors are what would abort a validation run:
  - YAML syntax errors
  - Missing or duplicate table names
  - Unknown type keywords (with suggestions)
  - Malformed foreign-key references

Warnings are tolerated by validation but usually indicate a mistake, such as a
primary key without a declared datatype or a foreign key into a table the
schema does not declare.

Examples:
  # Lint a single file
  cdmcheck lint schema.yaml

  # Lint a directory
  cdmcheck lint --dir schemas/

  # Strict mode (warnings as errors)
  cdmcheck lint schema.yaml --strict

  # JSON output for CI/CD
  cdmcheck lint schema.yaml --format json`,
	RunE: lintSchemas,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "schema file to lint")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of schema files")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

func lintSchemas(cmd *cobra.Command, args []string) error {
	files := append([]string(nil), args...)
	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}
	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list schema files: %w", err)
			}
			files = append(files, matches...)
		}
	}

	if len(files) == 0 {
		if lintFlags.file == "" && lintFlags.dir == "" {
			return fmt.Errorf("a schema file, --file or --dir must be specified")
		}
		return fmt.Errorf("no schema files found")
	}

	results := make([]LintResult, 0, len(files))
	for _, file := range files {
		results = append(results, lintSchemaFile(file))
	}

	w := io.Writer(os.Stdout)
	if cmd != nil {
		w = cmd.OutOrStdout()
	}
	if lintFlags.format == "json" {
		if err := outputLintJSON(w, results); err != nil {
			return err
		}
		return lintResultError(results, lintFlags.strict)
	}
	return outputLintText(w, results, lintFlags.strict)
}

// LintResult is the lint outcome for one schema file.
type LintResult struct {
	File     string        `json:"file"`
	Valid    bool          `json:"valid"`
	Tables   int           `json:"tables"`
	Errors   []LintFinding `json:"errors,omitempty"`
	Warnings []LintFinding `json:"warnings,omitempty"`
}

// LintFinding is a single error or warning.
type LintFinding struct {
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Table      string `json:"table,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Severity   string `json:"severity"`
	Type       string `json:"type,omitempty"`
}

func lintSchemaFile(path string) LintResult {
	result := LintResult{File: path, Valid: true}

	s, err := schema.NewParser().Parse(path)
	if err != nil {
		result.Valid = false

		var errList *schema.ErrorList
		var schemaErr *schema.Error
		switch {
		case errors.As(err, &errList):
			for _, e := range errList.Errors {
				result.Errors = append(result.Errors, findingFromError(e))
			}
		case errors.As(err, &schemaErr):
			result.Errors = append(result.Errors, findingFromError(schemaErr))
		default:
			result.Errors = append(result.Errors, LintFinding{
				Message:  err.Error(),
				Severity: "error",
			})
		}
		return result
	}

	result.Tables = len(s.Tables)
	for _, w := range schema.Lint(s) {
		result.Warnings = append(result.Warnings, LintFinding{
			Line:     w.Location.Line,
			Column:   w.Location.Column,
			Table:    w.Table,
			Message:  w.Message,
			Severity: "warning",
		})
	}
	return result
}

func findingFromError(e *schema.Error) LintFinding {
	return LintFinding{
		Line:       e.Location.Line,
		Column:     e.Location.Column,
		Message:    e.Message,
		Suggestion: e.Suggestion,
		Severity:   "error",
		Type:       string(e.Type),
	}
}

func outputLintText(w io.Writer, results []LintResult, strict bool) error {
	totalErrors := 0
	totalWarnings := 0

	for _, result := range results {
		fmt.Fprintf(w, "Linting %s...\n", result.File)

		if result.Valid {
			fmt.Fprintf(w, "✓ Schema valid (%d table(s))\n", result.Tables)
		}

		for _, f := range result.Errors {
			fmt.Fprintf(w, "✗ Error: %s%s", f.Message, formatPosition(f))
			if f.Type != "" {
				fmt.Fprintf(w, " [%s]", f.Type)
			}
			fmt.Fprintln(w)
			if f.Suggestion != "" {
				fmt.Fprintf(w, "    suggestion: %s\n", f.Suggestion)
			}
			totalErrors++
		}

		for _, f := range result.Warnings {
			fmt.Fprintf(w, "⚠  Warning: %s%s\n", f.Message, formatPosition(f))
			totalWarnings++
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  %d error(s), %d warning(s)\n", totalErrors, totalWarnings)
	if strict && totalWarnings > 0 {
		fmt.Fprintln(w, "  Strict mode enabled: treating warnings as errors")
	}

	return lintResultError(results, strict)
}

func formatPosition(f LintFinding) string {
	switch {
	case f.Line > 0 && f.Column > 0:
		return fmt.Sprintf(" (line %d, col %d)", f.Line, f.Column)
	case f.Line > 0:
		return fmt.Sprintf(" (line %d)", f.Line)
	default:
		return ""
	}
}

func lintResultError(results []LintResult, strict bool) error {
	for _, r := range results {
		if !r.Valid || (strict && len(r.Warnings) > 0) {
			return cli.NewCommandError("lint", cli.ErrValidationFailed)
		}
	}
	return nil
}

func outputLintJSON(w io.Writer, results []LintResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}
