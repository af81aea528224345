// Package observability provides Prometheus metrics and structured logging.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Backtest metrics
	BacktestRuns   *prometheus.CounterVec
	BarsSimulated  prometheus.Counter
	TradesClosed   *prometheus.CounterVec
	RiskViolations prometheus.Counter
	RunDuration    prometheus.Histogram

	// Optimization metrics
	SweepCombinations prometheus.Counter
	SweepDuration     prometheus.Histogram
	WalkForwardRuns   *prometheus.CounterVec

	// Market data metrics
	MarketDataRequests *prometheus.CounterVec
	MarketDataErrors   *prometheus.CounterVec
	MarketDataLatency  *prometheus.HistogramVec
	StreamBars         prometheus.Counter
	StreamReconnects   prometheus.Counter

	// Storage metrics
	StorageOps    *prometheus.CounterVec
	StorageErrors *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered with reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "strataquant"
	}
	factory := promauto.With(reg)

	return &Metrics{
		BacktestRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by strategy",
		}, []string{"strategy"}),
		BarsSimulated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "bars_simulated_total",
			Help:      "Total number of bars stepped through by the engine",
		}),
		TradesClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_closed_total",
			Help:      "Total number of closed trades by exit reason",
		}, []string{"exit_reason"}),
		RiskViolations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "risk_violations_total",
			Help:      "Total number of entries blocked by risk limits",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		SweepCombinations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimization",
			Name:      "sweep_combinations_total",
			Help:      "Total number of parameter combinations evaluated",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimization",
			Name:      "sweep_duration_seconds",
			Help:      "Parameter sweep duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		WalkForwardRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimization",
			Name:      "walkforward_runs_total",
			Help:      "Total number of walk-forward validations by outcome",
		}, []string{"status"}),

		MarketDataRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "requests_total",
			Help:      "Total number of exchange API requests by endpoint",
		}, []string{"endpoint"}),
		MarketDataErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "errors_total",
			Help:      "Total number of exchange API errors by endpoint and type",
		}, []string{"endpoint", "error_type"}),
		MarketDataLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "request_latency_seconds",
			Help:      "Exchange API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		StreamBars: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "stream_bars_total",
			Help:      "Total number of closed bars received from the kline stream",
		}),
		StreamReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "stream_reconnects_total",
			Help:      "Total number of kline stream reconnects",
		}),

		StorageOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total number of storage operations by store and operation",
		}, []string{"store", "operation"}),
		StorageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total number of storage errors by store and operation",
		}, []string{"store", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is registered with the default Prometheus registry.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer, "")

// RecordBacktest records a finished engine run.
func (m *Metrics) RecordBacktest(strategy string, bars, violations int, exitReasons []string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BacktestRuns.WithLabelValues(strategy).Inc()
	m.BarsSimulated.Add(float64(bars))
	m.RiskViolations.Add(float64(violations))
	for _, reason := range exitReasons {
		m.TradesClosed.WithLabelValues(reason).Inc()
	}
	m.RunDuration.Observe(elapsed.Seconds())
}

// RecordSweep records a finished parameter sweep.
func (m *Metrics) RecordSweep(combinations int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SweepCombinations.Add(float64(combinations))
	m.SweepDuration.Observe(elapsed.Seconds())
}

// RecordWalkForward records a walk-forward validation with status "ok" or "error".
func (m *Metrics) RecordWalkForward(status string) {
	if m == nil {
		return
	}
	m.WalkForwardRuns.WithLabelValues(status).Inc()
}

// RecordMarketDataRequest records an exchange API call. errorType is empty on success.
func (m *Metrics) RecordMarketDataRequest(endpoint, errorType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.MarketDataRequests.WithLabelValues(endpoint).Inc()
	m.MarketDataLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	if errorType != "" {
		m.MarketDataErrors.WithLabelValues(endpoint, errorType).Inc()
	}
}

// RecordStreamBar records a closed bar from the kline stream.
func (m *Metrics) RecordStreamBar() {
	if m == nil {
		return
	}
	m.StreamBars.Inc()
}

// RecordStreamReconnect records a kline stream reconnect.
func (m *Metrics) RecordStreamReconnect() {
	if m == nil {
		return
	}
	m.StreamReconnects.Inc()
}

// RecordStorageOp records a storage call.
func (m *Metrics) RecordStorageOp(store, operation string, err error) {
	if m == nil {
		return
	}
	m.StorageOps.WithLabelValues(store, operation).Inc()
	if err != nil {
		m.StorageErrors.WithLabelValues(store, operation).Inc()
	}
}
