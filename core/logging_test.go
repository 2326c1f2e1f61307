package core

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "logs", "dvsim.log")

	log, closeLog, err := NewLogger(&console, "test", slog.LevelInfo, logPath)
	require.NoError(t, err)
	log.Info("route improved", "node", "RA")
	log.Debug("hidden")
	require.NoError(t, closeLog())

	assert.Contains(t, console.String(), "route improved")
	assert.NotContains(t, console.String(), "hidden")

	file, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(file), `msg="route improved" node=RA`)
	assert.NotContains(t, string(file), "hidden")
}

func TestNewLoggerConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	log, closeLog, err := NewLogger(&console, "test", slog.LevelDebug, "")
	require.NoError(t, err)
	log.Debug("visible")
	assert.NoError(t, closeLog())
	assert.Contains(t, console.String(), "visible")
}
