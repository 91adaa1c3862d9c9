package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestSetupWritesFileAndStderr(t *testing.T) {
	var stderr bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "mngtool.log")

	logger, err := Setup(Options{File: file, Level: "info", Stderr: &stderr})
	require.NoError(t, err)

	logger.Info("snapshot written", "collection", "issues")
	logger.Debug("hidden")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "snapshot written")
	assert.Contains(t, string(data), "collection=issues")
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, stderr.String(), "snapshot written")
}

func TestSetupQuietSkipsStderr(t *testing.T) {
	var stderr bytes.Buffer
	file := filepath.Join(t.TempDir(), "mngtool.log")

	logger, err := Setup(Options{File: file, Level: "debug", Quiet: true, Stderr: &stderr})
	require.NoError(t, err)
	logger.With("run", "r1").Debug("sync started")
	require.NoError(t, logger.Close())

	assert.Empty(t, stderr.String())
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run=r1")
}
