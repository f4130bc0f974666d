package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/qcdist/internal/circuit"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// An HCL file with a syntax error is guaranteed to make app.NewApp
	// panic during loading.
	invalidHCL := `
		network "custom" {
			host "0" {
		// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "job.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{"-log-level", "error", filePath}
	out := &bytes.Buffer{}

	runErr := run(out, args)

	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")
	errStr := runErr.Error()
	require.True(t, strings.Contains(errStr, "application startup panicked"), "The error message should indicate that a panic was recovered.")
	require.True(t, strings.Contains(errStr, "failed to parse"), "The error message should contain the underlying reason for the panic.")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return shouldExit=true.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()

	circ := circuit.New(2).CRz(0.5, 0, 1).H(0).CRz(0.25, 0, 1)
	circuitData, err := json.Marshal(circ)
	require.NoError(t, err)
	circuitPath := filepath.Join(tempDir, "circuit.json")
	require.NoError(t, os.WriteFile(circuitPath, circuitData, 0600))

	job := `
network "all_to_all" {
  servers           = 2
  qubits_per_server = 1
}

circuit {
  path = "` + circuitPath + `"
}

workflow "brute_force" {}
`
	jobPath := filepath.Join(tempDir, "job.hcl")
	require.NoError(t, os.WriteFile(jobPath, []byte(job), 0600))
	outPath := filepath.Join(tempDir, "result.json")

	err = run(&bytes.Buffer{}, []string{"-log-level", "error", "-out", outPath, jobPath})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))
	require.Contains(t, result, "cost")
	require.Contains(t, result, "circuit")
}
