package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	dev, err := NewLogger(Development)
	require.NoError(t, err)
	assert.True(t, dev.Desugar().Core().Enabled(zapcore.DebugLevel))

	prod, err := NewLogger("production")
	require.NoError(t, err)
	assert.False(t, prod.Desugar().Core().Enabled(zapcore.DebugLevel))
}

func TestLeveled(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Leveled{zap.New(core).Sugar()}

	l.Warn("retrying", "attempt", 2)
	l.Debug("request", "url", "https://example.test")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "retrying", entries[0].Message)
	assert.Equal(t, int64(2), entries[0].ContextMap()["attempt"])
}
