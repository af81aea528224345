package strategy

import (
	"errors"
	"fmt"

	"strataquant/internal/domain"
)

// ErrUnknownStrategyType is returned for unrecognized strategy types.
var ErrUnknownStrategyType = errors.New("unknown strategy type")

// FromConfig creates a Strategy from domain.StrategyConfig.
func FromConfig(cfg domain.StrategyConfig) (Strategy, error) {
	switch cfg.Type {
	case domain.StrategyTypeBuyAndHold:
		return NewBuyAndHold(), nil
	case domain.StrategyTypeSMACrossover:
		s, err := NewSMACrossover(cfg.FastPeriod, cfg.SlowPeriod)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategyType, cfg.Type)
	}
}

// DefaultComparisonSet returns the strategies run by a comparison:
// buy-and-hold plus the SMA 50/200, 20/50 and 100/200 crossovers.
func DefaultComparisonSet() []domain.StrategyConfig {
	return []domain.StrategyConfig{
		{Type: domain.StrategyTypeBuyAndHold},
		{Type: domain.StrategyTypeSMACrossover, FastPeriod: 50, SlowPeriod: 200},
		{Type: domain.StrategyTypeSMACrossover, FastPeriod: 20, SlowPeriod: 50},
		{Type: domain.StrategyTypeSMACrossover, FastPeriod: 100, SlowPeriod: 200},
	}
}
