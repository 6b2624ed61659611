package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerWritesKeyValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core)).With("component", "silver")

	l.Info("kind processed", "kind", "patient", "loaded", 3)
	l.Warn("reconciliation mismatch", "rule", "total_revenue")
	l.Debug("debug line")

	require.Equal(t, 3, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, "kind processed", first.Message)
	fields := first.ContextMap()
	assert.Equal(t, "silver", fields["component"])
	assert.Equal(t, "patient", fields["kind"])
	assert.EqualValues(t, 3, fields["loaded"])
	assert.Equal(t, zap.WarnLevel, logs.All()[1].Level)
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug", "console", "medallion-test")
	require.NoError(t, err)
	l.Debug("hello")

	NewNop().Error("discarded", "err", "nothing")
}
