package domain

import "fmt"

// StrategyConfig selects and parameterizes a signal strategy.
type StrategyConfig struct {
	Type       string `yaml:"type" json:"type"` // "buy-and-hold" | "sma-crossover"
	FastPeriod int    `yaml:"fast_period" json:"fast_period,omitempty"`
	SlowPeriod int    `yaml:"slow_period" json:"slow_period,omitempty"`
}

// Strategy type constants
const (
	StrategyTypeBuyAndHold   = "buy-and-hold"
	StrategyTypeSMACrossover = "sma-crossover"
)

// ID returns a stable identifier for the configuration.
func (c StrategyConfig) ID() string {
	switch c.Type {
	case StrategyTypeBuyAndHold:
		return "BUY_AND_HOLD"
	case StrategyTypeSMACrossover:
		return fmt.Sprintf("SMA_%d_%d", c.FastPeriod, c.SlowPeriod)
	default:
		return c.Type
	}
}
