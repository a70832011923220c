package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"tabular-qa/cdmcheck/pkg/config"
)

const testSchema = `tables:
  - name: person
    required_columns: [person_id, gender_concept_id]
    datatypes:
      person_id: integer
      gender_concept_id: integer
      person_source_value: {type: string, max_length: 5}
    primary_key: person_id
  - name: visit
    required_columns: [visit_id, person_id]
    datatypes:
      visit_id: integer
      person_id: integer
    primary_key: visit_id
    foreign_keys:
      - column: person_id
        references: person.person_id
`

// writeFixture creates a schema file and a CSV directory holding the given
// tables and returns their paths.
func writeFixture(t *testing.T, tables map[string]string) (schemaPath, dataDir string) {
	t.Helper()

	dir := t.TempDir()
	schemaPath = filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(schemaPath, []byte(testSchema), 0o644); err != nil {
		t.Fatalf("failed to write schema: %v", err)
	}

	dataDir = filepath.Join(dir, "data")
	if err := os.Mkdir(dataDir, 0o755); err != nil {
		t.Fatalf("failed to create data dir: %v", err)
	}
	for name, content := range tables {
		if err := os.WriteFile(filepath.Join(dataDir, name+".csv"), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return schemaPath, dataDir
}

var cleanTables = map[string]string{
	"person": "person_id,gender_concept_id,person_source_value\n1,8507,abc\n2,8532,de\n",
	"visit":  "visit_id,person_id\n10,1\n11,2\n",
}

// useConfig installs cfg for the duration of the test.
func useConfig(t *testing.T, cfg *config.Config) {
	t.Helper()
	prev := config.GetConfig()
	config.SetConfig(cfg)
	t.Cleanup(func() {
		if prev != nil {
			config.SetConfig(prev)
		}
	})
}

// testConfig returns defaults with history in a temporary SQLite file.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.History.SQLite.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.Telemetry.Logging.Level = "error"
	return cfg
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	t.Cleanup(func() { rootCmd.SetOut(nil) })
	return &buf
}
