package lg

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewBuildsLoggerForBothFormats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		t.Run(format, func(t *testing.T) {
			l := New(&Config{ServiceName: "ham-agent", Format: format})
			_, ok := l.(*zapLogger)
			assert.True(t, ok, "expected zap-backed logger")
		})
	}
}

func TestZapLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZap(zap.New(core)).With(String("command", "uptime"))

	l.Debug("d")
	l.Info("i", Int("n", 1))
	l.Warn("w")
	l.Error("e", Err(errors.New("boom")))

	require.Equal(t, 4, logs.Len())
	entries := logs.All()
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "uptime", entries[3].ContextMap()["command"])
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestAttachAndFromContext(t *testing.T) {
	ctx := Attach(context.Background(), Discard)
	assert.Equal(t, Discard, FromContext(ctx))

	_, ok := FromContext(context.Background()).(defaultLogger)
	assert.True(t, ok, "expected fallback logger without attached one")
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, "", flatten())
	out := flatten(String("user", "alice"), Int("attempts", 3))
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "attempts")
}
