package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	ts := time.Date(2026, 1, 15, 10, 30, 45, 123000000, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "clone finished", 0)
	r.AddAttrs(slog.Int("exit_code", 0), slog.String("project", "repo"))

	require.NoError(t, h.Handle(context.Background(), r))

	assert.Equal(t, "10:30:45.123 INF [repo] clone finished exit_code=0\n", buf.String())
}

func TestTerminalHandler_NoColourForBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTerminalHandler(&buf, nil))

	logger.Warn("disk low")

	assert.NotContains(t, buf.String(), "\033[")
	assert.Contains(t, buf.String(), "WRN disk low")
}

func TestTerminalHandler_Levels(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected string
	}{
		{slog.LevelDebug, "DBG"},
		{slog.LevelInfo, "INF"},
		{slog.LevelWarn, "WRN"},
		{slog.LevelError, "ERR"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			var buf bytes.Buffer
			h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

			r := slog.NewRecord(time.Now(), tt.level, "msg", 0)
			require.NoError(t, h.Handle(context.Background(), r))
			assert.Contains(t, buf.String(), tt.expected)
		})
	}
}

func TestTerminalHandler_Enabled(t *testing.T) {
	h := newTerminalHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestTerminalHandler_WithAttrsLiftsProject(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTerminalHandler(&buf, nil)).With("project", "kernel", "url", "https://example.org/kernel.git")

	logger.Info("pull started")

	assert.Contains(t, buf.String(), "[kernel] pull started url=https://example.org/kernel.git")
}

func TestTerminalHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTerminalHandler(&buf, nil)).With("a", 1).WithGroup("step").With("name", "zip")

	logger.Info("done", "status", "normal")

	out := buf.String()
	assert.Contains(t, out, " a=1")
	assert.Contains(t, out, " step.name=zip")
	assert.Contains(t, out, " step.status=normal")
}

func TestTerminalHandler_QuotesAwkwardStrings(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTerminalHandler(&buf, nil))

	logger.Info("msg", "description", "two words", "empty", "")

	assert.Contains(t, buf.String(), `description="two words"`)
	assert.Contains(t, buf.String(), `empty=""`)
}
