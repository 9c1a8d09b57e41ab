package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false, ServiceName: "test"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.ForceFlush(ctx))
	assert.NoError(t, lp.Shutdown(ctx))

	core := NewZapOTELCore(ZapBridgeConfig{ServiceName: "test", LoggerProvider: lp, Level: zapcore.InfoLevel})
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	log := zap.New(core).With(zap.String("tenant_id", "t1"))
	log.Info("dropped")
	log.Warn("kept")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "t1", entry.ContextMap()["tenant_id"])
}

func TestNewBridgedLogger(t *testing.T) {
	base, baseLogs := observer.New(zapcore.InfoLevel)
	bridged, bridgedLogs := observer.New(zapcore.InfoLevel)

	log := NewBridgedLogger(base, bridged)
	log.Info("ledger operation recorded")

	assert.Equal(t, 1, baseLogs.Len())
	assert.Equal(t, 1, bridgedLogs.Len())
}
