package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestLogger_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("debug", &buf)
	require.NoError(t, err)

	log.Component("session").
		WithField("generation", 3).
		WithFields(map[string]interface{}{"path": "/dashboard"}).
		WithError(errors.New("boom")).
		Info("profile resolved")

	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))

	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "session", entry["logger"])
	assert.Equal(t, "profile resolved", entry["message"])
	assert.EqualValues(t, 3, entry["generation"])
	assert.Equal(t, "/dashboard", entry["path"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "timestamp")
}

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("warn", &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithFormat("info", FormatConsole, &buf)
	require.NoError(t, err)

	log.Component("sessionctl").WithField("backend", "sqlite").Warn("storage slow")

	out := buf.String()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "sessionctl")
	assert.Contains(t, out, "storage slow")
	assert.Contains(t, out, `"backend": "sqlite"`)
	assert.False(t, json.Valid([]byte(strings.TrimSpace(out))))

	_, err = NewWithFormat("info", "xml", &buf)
	assert.Error(t, err)
}
