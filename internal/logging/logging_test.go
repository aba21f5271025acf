package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midigurdy/core/internal/config"
)

func TestNewConsoleLogger(t *testing.T) {
	logger, err := New(config.Logging{Method: "console", Level: "warn"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewFileLoggerWritesToConfiguredPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mgurdyd.log")

	logger, err := New(config.Logging{Method: "file", File: path, Level: "info"})
	require.NoError(t, err)

	logger.Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestNewFileLoggerRequiresPath(t *testing.T) {
	_, err := New(config.Logging{Method: "file"})
	assert.Error(t, err)
}

func TestNewRejectsUnknownMethod(t *testing.T) {
	_, err := New(config.Logging{Method: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestSubloggerAppliesPerSubsystemOverride(t *testing.T) {
	root, err := New(config.Logging{Method: "console", Level: "info"})
	require.NoError(t, err)

	cfg := config.Logging{Levels: "midi:debug,httpapi:warn"}

	midi := Sublogger(root, cfg, "midi")
	assert.Equal(t, log.DebugLevel, midi.GetLevel())

	unrelated := Sublogger(root, cfg, "unrelated")
	assert.Equal(t, root.GetLevel(), unrelated.GetLevel())
}
