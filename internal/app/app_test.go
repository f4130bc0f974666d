package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/config"
	"github.com/vk/qcdist/internal/hclcfg"
)

func writeTestCircuit(t *testing.T, dir string) string {
	t.Helper()
	circ := circuit.New(3).
		CRz(0.5, 0, 1).
		H(1).
		CRz(0.25, 1, 2).
		CRz(0.5, 0, 2)
	data, err := json.Marshal(circ)
	require.NoError(t, err)
	path := filepath.Join(dir, "circuit.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func writeTestJob(t *testing.T, dir, circuitPath string) string {
	t.Helper()
	job := `
network "custom" {
  host "0" {
    qubits = 2
  }
  host "1" {
    qubits = 2
  }
  link {
    a = 0
    b = 1
  }
}

circuit {
  path = "` + circuitPath + `"
}

workflow "annealing" {
  seed       = 11
  iterations = 3000
}

workflow "routed" {}
`
	path := filepath.Join(dir, "job.hcl")
	require.NoError(t, os.WriteFile(path, []byte(job), 0600))
	return path
}

func TestAppRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	circuitPath := writeTestCircuit(t, dir)
	jobPath := writeTestJob(t, dir, circuitPath)
	outPath := filepath.Join(dir, "result.json")

	appConfig, err := NewConfig(Config{
		ConfigPath:  jobPath,
		OutPath:     outPath,
		LogFormat:   "json",
		LogLevel:    "error",
		WorkerCount: 2,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	a := NewApp(&buf, appConfig, hclcfg.NewLoader())
	require.NoError(t, a.Run(context.Background(), appConfig))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var result Result
	require.NoError(t, json.Unmarshal(data, &result))
	assert.GreaterOrEqual(t, result.Cost, 0)
	assert.Equal(t, result.Cost, result.Ebits)
	require.NotNil(t, result.Circuit)
	assert.NotEmpty(t, result.Circuit.Commands)
	assert.Len(t, result.Circuit.QubitHomes, 3)
}

func TestNewAppPanicsOnBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	jobPath := filepath.Join(dir, "bad.hcl")
	require.NoError(t, os.WriteFile(jobPath, []byte(`network "custom" {`), 0600))

	appConfig, err := NewConfig(Config{ConfigPath: jobPath, LogLevel: "error", LogFormat: "text"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.Panics(t, func() {
		NewApp(&buf, appConfig, hclcfg.NewLoader())
	})
}

func TestBuildNetwork(t *testing.T) {
	t.Run("generated kinds", func(t *testing.T) {
		for _, kind := range []string{
			config.NetworkAllToAll,
			config.NetworkRandom,
			config.NetworkScaleFree,
			config.NetworkSmallWorld,
		} {
			t.Run(kind, func(t *testing.T) {
				net, err := buildNetwork(&config.Network{
					Kind:            kind,
					Servers:         4,
					QubitsPerServer: 2,
					Seed:            1,
				})
				require.NoError(t, err)
				assert.Len(t, net.Servers(), 4)
				assert.Equal(t, 8, net.TotalCapacity())
				assert.True(t, net.IsConnected())
			})
		}
	})

	t.Run("custom with ebit memory", func(t *testing.T) {
		net, err := buildNetwork(&config.Network{
			Kind: config.NetworkCustom,
			Hosts: []*config.Host{
				{ID: 0, Qubits: 2, EbitMemory: 1},
				{ID: 1, Qubits: 1, EbitMemory: -1},
			},
			Links: []config.Link{{A: 0, B: 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, net.EbitMemory(0))
		assert.Equal(t, -1, net.EbitMemory(1))
		assert.Equal(t, 2, net.QubitCapacity(0))
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := buildNetwork(&config.Network{Kind: "torus"})
		assert.ErrorContains(t, err, "unknown network kind")
	})
}

func TestLoadCircuit(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		dir := t.TempDir()
		path := writeTestCircuit(t, dir)
		hc, err := loadCircuit(path)
		require.NoError(t, err)
		assert.Equal(t, 3, hc.NQubits())
		assert.Len(t, hc.GateVertices(), 3)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadCircuit(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorContains(t, err, "reading circuit")
	})

	t.Run("malformed json", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"n_qubits": `), 0600))
		_, err := loadCircuit(path)
		assert.ErrorContains(t, err, "parsing circuit")
	})
}
