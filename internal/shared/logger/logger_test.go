package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newFileLogger builds a logger writing to a temp file and returns it
// with a function that syncs and reads back what was written.
func newFileLogger(t *testing.T, cfg Config) (*zap.Logger, func() string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "app.log")
	cfg.Output = path

	log, err := New(&cfg)
	require.NoError(t, err)

	return log, func() string {
		_ = log.Sync()
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return string(data)
	}
}

func TestNew(t *testing.T) {
	t.Run("nil config falls back to defaults", func(t *testing.T) {
		log, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("unwritable output path fails", func(t *testing.T) {
		_, err := New(&Config{
			Level:  "info",
			Format: "json",
			Output: filepath.Join(t.TempDir(), "missing", "app.log"),
		})
		assert.Error(t, err)
	})
}

func TestNew_JSONEntries(t *testing.T) {
	log, read := newFileLogger(t, Config{Level: "info", Format: "json"})

	log.Info("request served", zap.String("request_id", "abc123"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(read()), &entry))
	assert.Equal(t, "request served", entry["msg"])
	assert.Equal(t, "abc123", entry["request_id"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "ts")
}

func TestNew_ConsoleFormat(t *testing.T) {
	for _, format := range []string{"console", "text"} {
		t.Run(format, func(t *testing.T) {
			log, read := newFileLogger(t, Config{Level: "info", Format: format})

			log.Info("startup complete")

			out := read()
			assert.Contains(t, out, "startup complete")
			assert.Contains(t, out, "INFO")
			assert.False(t, strings.HasPrefix(out, "{"))
		})
	}
}

func TestNew_LevelGating(t *testing.T) {
	log, read := newFileLogger(t, Config{Level: "error", Format: "json"})

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("hidden")
	assert.Empty(t, read())

	log.Error("visible")
	assert.Contains(t, read(), "visible")
}

func TestNew_ErrorEntriesCarryStacktrace(t *testing.T) {
	log, read := newFileLogger(t, Config{Level: "info", Format: "json"})

	log.Error("generation failed", zap.Error(assert.AnError))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(read()), &entry))
	assert.Contains(t, entry["error"], "assert.AnError")
	assert.Contains(t, entry, "stacktrace")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	require.NotNil(t, log)
	assert.NotPanics(t, func() { log.Info("discarded") })
}
