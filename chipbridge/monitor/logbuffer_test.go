package monitor

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogBufferWraps(t *testing.T) {
	lb := NewLogBuffer(3)
	assert.Nil(t, lb.GetRecent(10))

	for _, msg := range []string{"a", "b", "c", "d"} {
		lb.Add(LogEntry{Message: msg})
	}

	recent := lb.GetRecent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "d", recent[0].Message, "newest first")
	assert.Equal(t, "b", recent[2].Message)

	assert.Len(t, lb.GetRecent(2), 2)

	lb.Clear()
	assert.Nil(t, lb.GetRecent(10))
}

func TestLogBufferHandler(t *testing.T) {
	lb := NewLogBuffer(8)
	logger := slog.New(NewLogBufferHandler(lb, slog.LevelInfo))

	logger.Debug("hidden")
	logger.With("system", "opll").WithGroup("chip").Warn("attach failed", "slot", 1)

	recent := lb.GetRecent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, slog.LevelWarn, recent[0].Level)
	assert.Equal(t, "attach failed system=opll chip.slot=1", recent[0].Message)
}

func TestFormatLogEntry(t *testing.T) {
	at := time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC)
	assert.Equal(t, "13:04:05 [ERR] boom", FormatLogEntry(LogEntry{Time: at, Level: slog.LevelError, Message: "boom"}))
	assert.Equal(t, "13:04:05 [???] odd", FormatLogEntry(LogEntry{Time: at, Level: slog.Level(2), Message: "odd"}))
}
