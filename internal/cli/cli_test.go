package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHelpFlag(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseNoPathPrintsUsage(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse(nil, out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "CONFIG_PATH")
}

func TestParseFlags(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{
		"-c", "job.hcl",
		"-circuit", "circ.json",
		"-out", "result.json",
		"-workers", "8",
		"-allow-update",
		"-log-level", "debug",
		"-log-format", "text",
	}, out)
	require.NoError(t, err)
	assert.False(t, shouldExit)
	require.NotNil(t, cfg)
	assert.Equal(t, "job.hcl", cfg.ConfigPath)
	assert.Equal(t, "circ.json", cfg.CircuitPath)
	assert.Equal(t, "result.json", cfg.OutPath)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.True(t, cfg.AllowUpdate)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestParsePositionalPath(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{"jobs/"}, out)
	require.NoError(t, err)
	assert.False(t, shouldExit)
	assert.Equal(t, "jobs/", cfg.ConfigPath)
}

func TestParseValidationErrors(t *testing.T) {
	t.Run("bad log level", func(t *testing.T) {
		_, _, err := Parse([]string{"-log-level", "verbose", "job.hcl"}, &bytes.Buffer{})
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
		assert.Contains(t, exitErr.Message, "invalid log-level")
	})

	t.Run("bad log format", func(t *testing.T) {
		_, _, err := Parse([]string{"-log-format", "xml", "job.hcl"}, &bytes.Buffer{})
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Contains(t, exitErr.Message, "invalid log-format")
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, _, err := Parse([]string{"--frobnicate"}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "flag provided but not defined")
	})
}
