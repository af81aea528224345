package risk

// Metrics is the running risk state of one backtest, updated every bar.
type Metrics struct {
	PeakEquity         float64 `json:"peak_equity"`
	CurrentDrawdown    float64 `json:"current_drawdown"` // <= 0
	MaxDrawdownHit     float64 `json:"max_drawdown_hit"` // <= 0
	Exposure           float64 `json:"exposure"`
	TradesToday        int     `json:"trades_today"`
	BarsSinceLastTrade int     `json:"bars_since_last_trade"`
	Violations         int     `json:"risk_limit_violations"`
}

// NewMetrics starts tracking from initialEquity as the first peak.
func NewMetrics(initialEquity float64) *Metrics {
	return &Metrics{PeakEquity: initialEquity}
}

// Update folds one bar's equity and exposure into the running state.
func (m *Metrics) Update(equity, exposure float64) {
	if equity > m.PeakEquity {
		m.PeakEquity = equity
	}
	if m.PeakEquity != 0 {
		m.CurrentDrawdown = (equity - m.PeakEquity) / m.PeakEquity
	}
	if m.CurrentDrawdown < m.MaxDrawdownHit {
		m.MaxDrawdownHit = m.CurrentDrawdown
	}
	m.Exposure = exposure
	m.BarsSinceLastTrade++
}

// OnTrade records a completed trade.
func (m *Metrics) OnTrade() {
	m.TradesToday++
	m.BarsSinceLastTrade = 0
}

// OnNewDay resets the daily trade counter.
func (m *Metrics) OnNewDay() {
	m.TradesToday = 0
}

// RecordViolation increments the shared violation counter. Drawdown,
// cadence and size failures all count here.
func (m *Metrics) RecordViolation() {
	m.Violations++
}
