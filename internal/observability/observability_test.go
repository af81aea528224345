package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordBacktest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry(), "test")

	m.RecordBacktest("SMA_10_50", 250, 3, []string{"signal", "signal", "stop_loss"}, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BacktestRuns.WithLabelValues("SMA_10_50")))
	assert.Equal(t, 250.0, testutil.ToFloat64(m.BarsSimulated))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RiskViolations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TradesClosed.WithLabelValues("signal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesClosed.WithLabelValues("stop_loss")))
}

func TestMetrics_RecordStorageOp(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry(), "")

	m.RecordStorageOp("postgres", "insert_run", nil)
	m.RecordStorageOp("postgres", "insert_run", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StorageOps.WithLabelValues("postgres", "insert_run")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageErrors.WithLabelValues("postgres", "insert_run")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordBacktest("x", 1, 0, nil, time.Second)
		m.RecordSweep(4, time.Second)
		m.RecordWalkForward("ok")
		m.RecordMarketDataRequest("klines", "", time.Second)
		m.RecordStreamBar()
		m.RecordStreamReconnect()
		m.RecordStorageOp("memory", "get", nil)
	})
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1)) // debug

	_, err = NewLogger("loud", false)
	assert.Error(t, err)

	assert.NotNil(t, OrNop(nil))
}
