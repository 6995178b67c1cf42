package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlogLoggerWithWriter_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLoggerWithWriter(&buf, LogLevelInfo, "json", false)

	logger.Info("runner.event.delivered", "event_id", "ev-1", "session_id", "sess-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "runner.event.delivered", entry["msg"])
	assert.Equal(t, "ev-1", entry["event_id"])
	assert.Equal(t, "sess-1", entry["session_id"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestNewSlogLoggerWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLoggerWithWriter(&buf, LogLevelWarn, "json", false)

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept", "k", "v")
	logger.Error("kept as well")

	lines := 0
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestNewSlogLoggerWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLoggerWithWriter(&buf, LogLevelDebug, "text", false)

	logger.Debug("flow.step", "step", 3)

	out := buf.String()
	assert.Contains(t, out, "flow.step")
	assert.Contains(t, out, "step=3")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in    string
		want  LogLevel
		known bool
	}{
		{"debug", LogLevelDebug, true},
		{"info", LogLevelInfo, true},
		{"warn", LogLevelWarn, true},
		{"error", LogLevelError, true},
		{"verbose", LogLevelInfo, false},
		{"", LogLevelInfo, false},
	}

	for _, tt := range tests {
		got, known := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, "level for %q", tt.in)
		assert.Equal(t, tt.known, known, "known for %q", tt.in)
	}
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestNoOpLogger_ImplementsLogger(t *testing.T) {
	var logger Logger = NoOpLogger{}
	logger.Debug("ignored")
	logger.Info("ignored")
	logger.Warn("ignored")
	logger.Error("ignored")
}
