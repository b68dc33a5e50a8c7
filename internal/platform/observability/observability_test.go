package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger("debug")
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger = NewLogger("nonsense")
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud"))
}

func TestLoggerWritesServiceTaggedJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(zapcore.AddSync(&buf), zapcore.InfoLevel)
	logger.Debug("hidden")
	logger.Info("template imported", zap.String("external_id", "tpl-1"))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "template imported", entry["msg"])
	assert.Equal(t, ServiceName, entry["service"])
	assert.Equal(t, "tpl-1", entry["external_id"])
	assert.Contains(t, entry, "ts")
	assert.Contains(t, entry, "caller")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveOperation("template", "upsert", OutcomeOK, 5*time.Millisecond)
	m.ObserveOperation("template", "upsert", OutcomeOK, time.Millisecond)
	m.ObserveWorkflow("import_template", OutcomeError)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations().WithLabelValues("template", "upsert", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Workflows().WithLabelValues("import_template", OutcomeError)))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.ObserveOperation("product", "fetch", OutcomeOK, 0)
		nilMetrics.ObserveWorkflow("x", OutcomeOK)
	})
}
