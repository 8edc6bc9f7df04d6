package obs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickchristie/sqlagent/config"
)

func newBufferLogger(level slog.Level, logJSON bool) (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := config.Config{
		Profile: config.ProfileTest,
		Service: config.ServiceConfig{Name: "sqlagent"},
		Observability: config.ObservabilityConfig{
			LogLevel: level,
			LogJSON:  logJSON,
		},
	}
	return NewLogger(cfg, buf), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestNewLogger_JSON(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo, true)

	logger.Debug("hidden")
	logger.Info("hello", "key", "value")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "hello", lines[0]["msg"])
	assert.Equal(t, "value", lines[0]["key"])
	assert.Equal(t, "sqlagent", lines[0]["service"])
	assert.Equal(t, "test", lines[0]["profile"])
}

func TestNewLogger_Text(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo, false)

	logger.Info("hello")

	out := buf.String()
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "service=sqlagent")
	assert.Contains(t, out, "profile=test")
}

func TestNewLogger_NilWriterDiscards(t *testing.T) {
	cfg := config.Config{
		Profile: config.ProfileDev,
		Service: config.ServiceConfig{Name: "sqlagent"},
	}
	logger := NewLogger(cfg, nil)
	logger.Info("goes nowhere")
}
