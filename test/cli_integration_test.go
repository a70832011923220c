//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const integrationSchema = `tables:
  - name: person
    required_columns: [person_id, gender_concept_id]
    datatypes:
      person_id: integer
      gender_concept_id: integer
      birth_datetime: datetime64[ns]
      person_source_value: {type: string, max_length: 10}
    primary_key: person_id
  - name: condition_occurrence
    required_columns: [condition_occurrence_id, person_id]
    datatypes:
      condition_occurrence_id: integer
      person_id: integer
    primary_key: condition_occurrence_id
    foreign_keys:
      - column: person_id
        references: person.person_id
`

// TestValidateExitCodes runs the validate command against clean, dirty and
// unusable inputs and checks the exit status of each.
func TestValidateExitCodes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	binaryPath := buildBinary(t)
	tmpDir := t.TempDir()
	schemaFile := filepath.Join(tmpDir, "schema.yaml")
	writeFile(t, schemaFile, integrationSchema)

	cleanDir := filepath.Join(tmpDir, "clean")
	writeFile(t, filepath.Join(cleanDir, "person.csv"),
		"person_id,gender_concept_id,birth_datetime,person_source_value\n1,8507,1980-01-02,p1\n2,8532,1975/06/30,p2\n")
	writeFile(t, filepath.Join(cleanDir, "condition_occurrence.csv"),
		"condition_occurrence_id,person_id\n100,1\n101,2\n")

	dirtyDir := filepath.Join(tmpDir, "dirty")
	writeFile(t, filepath.Join(dirtyDir, "person.csv"),
		"person_id,gender_concept_id,birth_datetime,person_source_value\n1,8507,not a date,p1\n1,,1975-06-30,a-very-long-value\n")
	writeFile(t, filepath.Join(dirtyDir, "condition_occurrence.csv"),
		"condition_occurrence_id,person_id\n100,1\n101,9\n")

	tests := []struct {
		name     string
		args     []string
		wantCode int
		contains string
	}{
		{"clean", []string{"validate", schemaFile, cleanDir, "--no-history"}, 0, "Validation successful! No errors found."},
		{"violations", []string{"validate", schemaFile, dirtyDir, "--no-history"}, 1, "Validation failed with 5 error(s)"},
		{"missing schema", []string{"validate", filepath.Join(tmpDir, "nope.yaml"), cleanDir, "--no-history"}, 2, "nope.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binaryPath, tt.args...)
			output, err := cmd.CombinedOutput()

			code := 0
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			} else if err != nil {
				t.Fatalf("failed to run: %v", err)
			}
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d\nOutput: %s", code, tt.wantCode, output)
			}
			if !bytes.Contains(output, []byte(tt.contains)) {
				t.Errorf("output missing %q:\n%s", tt.contains, output)
			}
		})
	}

	// JSON output for the dirty dataset
	cmd := exec.Command(binaryPath, "validate", schemaFile, dirtyDir, "--no-history", "--format", "json")
	output, _ := cmd.Output()
	var records []map[string]any
	if err := json.Unmarshal(output, &records); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	kinds := make(map[string]int)
	for _, r := range records {
		kinds[r["kind"].(string)]++
	}
	for _, want := range []string{"TypeMismatch", "NullInRequiredColumn", "CharacterLengthExceeded", "DuplicatePrimaryKey", "InvalidForeignKeyReference"} {
		if kinds[want] != 1 {
			t.Errorf("%s records = %d, want 1 (all: %v)", want, kinds[want], kinds)
		}
	}
}

// TestScheduleStartStop starts the scheduled daemon, checks its endpoints and
// shuts it down with SIGINT.
func TestScheduleStartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "schema.yaml"), integrationSchema)
	writeFile(t, filepath.Join(tmpDir, "data", "person.csv"), "person_id,gender_concept_id\n1,8507\n")
	writeFile(t, filepath.Join(tmpDir, "data", "condition_occurrence.csv"), "condition_occurrence_id,person_id\n100,1\n")

	configFile := filepath.Join(tmpDir, "cdmcheck.yaml")
	writeFile(t, configFile, `
schema:
  path: schema.yaml
source:
  type: csv
  csv:
    dir: data
history:
  backend: sqlite
  sqlite:
    path: history.db
schedule:
  cron: "@every 1h"
  run_on_start: true
  listen_address: "127.0.0.1:19464"
telemetry:
  logging:
    level: info
    format: json
`)

	binaryPath := buildBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, "schedule", "--config", configFile)
	cmd.Dir = tmpDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start scheduler: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}()

	if !waitForHealthy("http://127.0.0.1:19464/health", 10*time.Second) {
		t.Fatalf("scheduler failed to start\nStdout: %s\nStderr: %s", stdout.String(), stderr.String())
	}

	// The run-on-start validation makes the daemon ready and shows up in metrics.
	deadline := time.Now().Add(10 * time.Second)
	var metrics string
	for time.Now().Before(deadline) {
		metrics = fetch(t, "http://127.0.0.1:19464/metrics")
		if strings.Contains(metrics, `cdmcheck_runs_total{status="passed"} 1`) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !strings.Contains(metrics, `cdmcheck_runs_total{status="passed"} 1`) {
		t.Errorf("metrics missing the passed run:\n%s", metrics)
	}

	if !waitForHealthy("http://127.0.0.1:19464/ready", 5*time.Second) {
		t.Error("scheduler never became ready")
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Errorf("failed to send SIGINT: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected shutdown error: %v\nStdout: %s\nStderr: %s", err, stdout.String(), stderr.String())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("scheduler did not shut down within 10 seconds")
	}

	// The run is in history.
	list := exec.Command(binaryPath, "history", "list", "--config", configFile, "--format", "csv")
	list.Dir = tmpDir
	output, err := list.CombinedOutput()
	if err != nil {
		t.Fatalf("history list failed: %v\nOutput: %s", err, output)
	}
	if !bytes.Contains(output, []byte(",schedule,passed,")) {
		t.Errorf("history list missing the scheduled run:\n%s", output)
	}
}

// TestCommandVersionOutput checks the version command.
func TestCommandVersionOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	output, err := exec.Command(buildBinary(t), "version").CombinedOutput()
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !bytes.HasPrefix(output, []byte("cdmcheck ")) {
		t.Errorf("unexpected version output: %s", output)
	}
}

// Helper functions

// buildBinary builds the cdmcheck binary for testing
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath, err := filepath.Abs("../bin/cdmcheck")
	if err != nil {
		t.Fatalf("failed to resolve binary path: %v", err)
	}
	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath
	}

	t.Log("Building cdmcheck binary...")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/cdmcheck")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build cdmcheck: %v\nOutput: %s", err, output)
	}
	return binaryPath
}

// waitForHealthy waits for an endpoint to return 200
func waitForHealthy(url string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return true
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

func fetch(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
