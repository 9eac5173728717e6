package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yankadevlab/ydl/internal/config"
)

func TestNew_FileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ydl.log")
	logger, closeFn, err := New(config.LogConfig{Level: "info", File: path}, false)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("migration step", zap.String("state", "dumped"))
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "migration step", entry["msg"])
	assert.Equal(t, "dumped", entry["state"])
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ydl.log")
	logger, closeFn, err := New(config.LogConfig{Level: "error", File: path}, true)
	require.NoError(t, err)
	logger.Debug("visible")
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "chatty"}, false)
	assert.ErrorContains(t, err, "invalid log level")
}

func TestNew_StderrDefault(t *testing.T) {
	logger, closeFn, err := New(config.LogConfig{}, false)
	require.NoError(t, err)
	defer closeFn()
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}
