package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
)

func newBufferLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:       level,
		Format:      FormatJSON,
		Output:      NewOutput(&buf),
		ServiceName: "wakanet-test",
	})
	return logger, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"default config", DefaultConfig()},
		{"development config", DevelopmentConfig()},
		{"production config", ProductionConfig()},
		{"custom text", Config{Level: LevelWarn, Format: FormatText, Output: OutputStderr()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.config)
			require.NotNil(t, logger)
			assert.Equal(t, tt.config.Level, logger.Config().Level)
			assert.NotNil(t, logger.Zap())
		})
	}
}

func TestLoggerWritesStructuredFields(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	logger.With("component", "platform").Info("request sent", "method", "GET", "path", "/dealers")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "request sent", entries[0]["msg"])
	assert.Equal(t, "platform", entries[0]["component"])
	assert.Equal(t, "/dealers", entries[0]["path"])
	assert.Equal(t, "wakanet-test", entries[0]["service"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("shown too")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "error", entries[1]["level"])

	assert.False(t, logger.Enabled(LevelInfo))
	assert.True(t, logger.Enabled(LevelError))
}

func TestWithErrorPortalError(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	err := perrors.NewSessionExpiredError("idle timeout")
	logger.WithError(err).Warn("session ended")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "SESSION-002", entries[0]["error_code"])
	assert.Contains(t, entries[0]["error"], "idle timeout")
	assert.NotNil(t, entries[0]["suggestions"])
}

func TestLogError(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	logger.LogError(nil)
	logger.LogError(perrors.NewAuthRequiredError())

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "operation failed", entries[0]["msg"])
	assert.Equal(t, "AUTH-001", entries[0]["error_code"])
	assert.NotEmpty(t, entries[0]["docs_url"])
}

func TestContextRequestID(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	logger.InfoContext(ctx, "with id")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0]["request_id"])
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}

func TestParseLevelAndFormat(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
	assert.Equal(t, FormatText, ParseFormat("console"))
	assert.Equal(t, FormatJSON, ParseFormat("unknown"))
	assert.Equal(t, "ERROR", LevelError.String())
}

func TestDefaultLogger(t *testing.T) {
	t.Cleanup(func() { SetDefaultLogger(nil) })

	// Unset falls back to a logger that writes nothing
	require.NotNil(t, DefaultLogger())
	DefaultLogger().Error("dropped")

	custom, buf := newBufferLogger(LevelInfo)
	SetDefaultLogger(custom)
	assert.Same(t, custom, DefaultLogger())
	DefaultLogger().Info("session restored")
	assert.Contains(t, buf.String(), "session restored")

	SetDefaultLogger(nil)
	assert.NotSame(t, custom, DefaultLogger())
}
