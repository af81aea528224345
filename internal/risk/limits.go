package risk

import "math"

// Limits is the static pre-trade gating policy.
type Limits struct {
	MaxPositionPct         float64 `yaml:"max_position_pct" json:"max_position_pct"`             // percent of equity per position
	MaxPortfolioHeat       float64 `yaml:"max_portfolio_heat" json:"max_portfolio_heat"`         // exposure / equity
	MaxDrawdownThreshold   float64 `yaml:"max_drawdown_threshold" json:"max_drawdown_threshold"` // fraction, e.g. 0.30
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions" json:"max_concurrent_positions"`
	MaxTradesPerDay        int     `yaml:"max_trades_per_day" json:"max_trades_per_day"` // 0 = unlimited
	MinBarsBetweenTrades   int     `yaml:"min_bars_between_trades" json:"min_bars_between_trades"`
}

// DefaultLimits returns permissive limits with a 30% drawdown circuit breaker.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionPct:         100,
		MaxPortfolioHeat:       1.0,
		MaxDrawdownThreshold:   0.30,
		MaxConcurrentPositions: 1,
		MaxTradesPerDay:        0,
		MinBarsBetweenTrades:   0,
	}
}

// ConservativeLimits returns half-size positions, a 20% drawdown breaker
// and throttled trade cadence.
func ConservativeLimits() Limits {
	return Limits{
		MaxPositionPct:         50,
		MaxPortfolioHeat:       0.5,
		MaxDrawdownThreshold:   0.20,
		MaxConcurrentPositions: 1,
		MaxTradesPerDay:        2,
		MinBarsBetweenTrades:   5,
	}
}

// AggressiveLimits returns full-size positions with a 50% drawdown breaker.
func AggressiveLimits() Limits {
	return Limits{
		MaxPositionPct:         100,
		MaxPortfolioHeat:       1.0,
		MaxDrawdownThreshold:   0.50,
		MaxConcurrentPositions: 1,
		MaxTradesPerDay:        0,
		MinBarsBetweenTrades:   0,
	}
}

// CheckPositionSize reports whether notional fits within MaxPositionPct of equity.
func (l Limits) CheckPositionSize(notional, equity float64) bool {
	pct := notional / equity * 100
	return pct <= l.MaxPositionPct
}

// CheckPortfolioHeat reports whether total exposure fits within MaxPortfolioHeat.
func (l Limits) CheckPortfolioHeat(exposure, equity float64) bool {
	return exposure/equity <= l.MaxPortfolioHeat
}

// CheckDrawdown reports whether the current drawdown is inside the threshold.
func (l Limits) CheckDrawdown(currentDrawdown float64) bool {
	return math.Abs(currentDrawdown) < l.MaxDrawdownThreshold
}

// CanTrade applies the cadence rules.
func (l Limits) CanTrade(barsSinceLastTrade, tradesToday int) bool {
	if barsSinceLastTrade < l.MinBarsBetweenTrades {
		return false
	}
	if l.MaxTradesPerDay > 0 && tradesToday >= l.MaxTradesPerDay {
		return false
	}
	return true
}

// Decision is the outcome of a gating check.
type Decision string

// Decision values
const (
	DecisionAllowed      Decision = "allowed"
	DecisionDrawdown     Decision = "drawdown"
	DecisionCadence      Decision = "cadence"
	DecisionPositionSize Decision = "position_size"
)

// Allowed reports whether the entry may proceed.
func (d Decision) Allowed() bool { return d == DecisionAllowed }

// CheckEntry runs the pre-sizing checks in order: drawdown, then cadence.
// A failure is recorded on m as a violation.
func (l Limits) CheckEntry(m *Metrics) Decision {
	if !l.CheckDrawdown(m.CurrentDrawdown) {
		m.RecordViolation()
		return DecisionDrawdown
	}
	if !l.CanTrade(m.BarsSinceLastTrade, m.TradesToday) {
		m.RecordViolation()
		return DecisionCadence
	}
	return DecisionAllowed
}

// CheckSize runs the post-sizing position size check.
// A failure is recorded on m as a violation.
func (l Limits) CheckSize(m *Metrics, notional, equity float64) Decision {
	if !l.CheckPositionSize(notional, equity) {
		m.RecordViolation()
		return DecisionPositionSize
	}
	return DecisionAllowed
}
