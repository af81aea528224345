package backtest

import (
	"errors"
	"fmt"

	"strataquant/internal/domain"
	"strataquant/internal/execution"
	"strataquant/internal/risk"
)

// Config errors
var (
	ErrInvalidCapital        = errors.New("initial capital must be positive")
	ErrInvalidPeriodsPerYear = errors.New("periods per year must be positive")
	ErrInvalidCosts          = errors.New("commission and slippage must be non-negative")
)

// Default run parameters.
const (
	DefaultInitialCapital = 100000.0
	DefaultCommissionBps  = 10.0
	DefaultSlippageBps    = 5.0
	DefaultPeriodsPerYear = 365.0
)

// Config is the immutable description of one backtest run.
// Build it once, before the run; the engine never mutates it.
type Config struct {
	InitialCapital float64
	Execution      execution.Model
	StopLoss       domain.StopLossConfig
	Sizing         domain.SizingConfig
	RiskLimits     *risk.Limits // nil disables pre-trade gating
	PeriodsPerYear float64
}

// DefaultConfig returns a config with every optional policy set:
// no stop, 100% of equity per entry, no risk gating, daily bars.
func DefaultConfig() Config {
	return Config{
		InitialCapital: DefaultInitialCapital,
		Execution:      execution.NewModel(DefaultCommissionBps, DefaultSlippageBps),
		StopLoss:       domain.StopLossConfig{Type: domain.StopTypeNone},
		Sizing:         domain.SizingConfig{Type: domain.SizingFixedPercent, Percent: 100},
		RiskLimits:     nil,
		PeriodsPerYear: DefaultPeriodsPerYear,
	}
}

// WithRiskLimits returns a copy of c gated by limits.
func (c Config) WithRiskLimits(limits risk.Limits) Config {
	c.RiskLimits = &limits
	return c
}

// Validate checks the config and its policies.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCapital, c.InitialCapital)
	}
	if c.PeriodsPerYear <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPeriodsPerYear, c.PeriodsPerYear)
	}
	if c.Execution.CommissionBps < 0 || c.Execution.SlippageBps < 0 {
		return ErrInvalidCosts
	}
	if _, err := risk.NewStopLoss(c.StopLoss); err != nil {
		return err
	}
	if _, err := risk.NewSizer(c.Sizing); err != nil {
		return err
	}
	return nil
}

// Key renders every field that affects the outcome, for deterministic run IDs.
func (c Config) Key() string {
	key := fmt.Sprintf("cap=%g|comm=%g|slip=%g|ppy=%g|stop=%s:%g:%g:%d:%d|size=%s:%g:%g:%g:%g:%g:%g",
		c.InitialCapital, c.Execution.CommissionBps, c.Execution.SlippageBps, c.PeriodsPerYear,
		c.StopLoss.Type, c.StopLoss.Percent, c.StopLoss.ATRMultiplier, c.StopLoss.ATRPeriod, c.StopLoss.MaxBars,
		c.Sizing.Type, c.Sizing.Amount, c.Sizing.Percent, c.Sizing.WinRate, c.Sizing.AvgWin, c.Sizing.AvgLoss, c.Sizing.RiskPerTrade,
	)
	if l := c.RiskLimits; l != nil {
		key += fmt.Sprintf("|risk=%g:%g:%g:%d:%d:%d",
			l.MaxPositionPct, l.MaxPortfolioHeat, l.MaxDrawdownThreshold,
			l.MaxConcurrentPositions, l.MaxTradesPerDay, l.MinBarsBetweenTrades)
	}
	return key
}
