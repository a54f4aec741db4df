package logger

import (
	"context"
	"testing"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level core.LogLevel) (core.Logger, *observer.ObservedLogs) {
	observedCore, logs := observer.New(zapcore.DebugLevel)
	return NewZapLoggerFrom(zap.New(observedCore), level), logs
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	log, logs := newObserved(core.LogLevelWarn)

	log.Debug("debug", nil)
	log.Info("info", nil)
	log.Warn("warn", map[string]any{"transaction_id": "txn-1"})
	log.Error("error", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0].Message)
	assert.Equal(t, "txn-1", entries[0].ContextMap()["transaction_id"])
	assert.Equal(t, "error", entries[1].Message)

	log.SetLevel(core.LogLevelDebug)
	assert.Equal(t, core.LogLevelDebug, log.GetLevel())
	log.Debug("now visible", nil)
	assert.Equal(t, 1, logs.FilterMessage("now visible").Len())
}

func TestLogAlerter(t *testing.T) {
	log, logs := newObserved(core.LogLevelInfo)
	alerter := NewLogAlerter(log, 2)

	for _, kind := range []string{"amount_mismatch", "side_effect_failed", "manual_intervention"} {
		alerter.Raise(context.Background(), core.Alert{
			Kind:          kind,
			Severity:      core.AlertCritical,
			TransactionID: "txn-1",
			Message:       "alert " + kind,
			Fields:        map[string]any{"gateway_order_ref": "order_1"},
		})
	}

	entries := logs.FilterField(zap.Bool("alert", true)).All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "amount_mismatch", fields["alert_kind"])
	assert.Equal(t, "critical", fields["severity"])
	assert.Equal(t, "txn-1", fields["transaction_id"])
	assert.Equal(t, "order_1", fields["gateway_order_ref"])

	recent := alerter.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "side_effect_failed", recent[0].Kind)
	assert.Equal(t, "manual_intervention", recent[1].Kind)
}
