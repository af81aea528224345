// Package risk implements stop-loss evaluation, position sizing and
// pre-trade risk limits.
package risk

import (
	"errors"
	"fmt"
	"math"

	"strataquant/internal/domain"
)

// Stop-loss construction errors.
var (
	ErrUnknownStopType  = errors.New("unknown stop-loss type")
	ErrInvalidStopParam = errors.New("invalid stop-loss parameter")
)

// StopLoss is a stateless per-position exit evaluator.
// The zero value never triggers.
type StopLoss struct {
	kind       string
	percent    float64
	multiplier float64
	period     int
	maxBars    int
}

// NoStop returns a stop that never triggers.
func NoStop() StopLoss { return StopLoss{kind: domain.StopTypeNone} }

// FixedPercentStop triggers when price falls pct percent below entry.
func FixedPercentStop(pct float64) StopLoss {
	return StopLoss{kind: domain.StopTypeFixed, percent: pct}
}

// TrailingStop triggers when price falls pct percent below the highest
// price seen since entry.
func TrailingStop(pct float64) StopLoss {
	return StopLoss{kind: domain.StopTypeTrailing, percent: pct}
}

// ATRStop triggers when price falls multiplier*ATR(period) below entry.
func ATRStop(multiplier float64, period int) StopLoss {
	return StopLoss{kind: domain.StopTypeATR, multiplier: multiplier, period: period}
}

// TimeLimitStop triggers once a position has been held maxBars bars.
func TimeLimitStop(maxBars int) StopLoss {
	return StopLoss{kind: domain.StopTypeTime, maxBars: maxBars}
}

// NewStopLoss builds a stop from config, rejecting out-of-range parameters.
func NewStopLoss(cfg domain.StopLossConfig) (StopLoss, error) {
	switch cfg.Type {
	case "", domain.StopTypeNone:
		return NoStop(), nil
	case domain.StopTypeFixed, domain.StopTypeTrailing:
		if cfg.Percent <= 0 || cfg.Percent >= 100 {
			return StopLoss{}, fmt.Errorf("%w: percent must be in (0, 100), got %v", ErrInvalidStopParam, cfg.Percent)
		}
		if cfg.Type == domain.StopTypeFixed {
			return FixedPercentStop(cfg.Percent), nil
		}
		return TrailingStop(cfg.Percent), nil
	case domain.StopTypeATR:
		if cfg.ATRMultiplier <= 0 {
			return StopLoss{}, fmt.Errorf("%w: atr multiplier must be positive, got %v", ErrInvalidStopParam, cfg.ATRMultiplier)
		}
		if cfg.ATRPeriod <= 0 {
			return StopLoss{}, fmt.Errorf("%w: atr period must be positive, got %d", ErrInvalidStopParam, cfg.ATRPeriod)
		}
		return ATRStop(cfg.ATRMultiplier, cfg.ATRPeriod), nil
	case domain.StopTypeTime:
		if cfg.MaxBars <= 0 {
			return StopLoss{}, fmt.Errorf("%w: max bars must be positive, got %d", ErrInvalidStopParam, cfg.MaxBars)
		}
		return TimeLimitStop(cfg.MaxBars), nil
	default:
		return StopLoss{}, fmt.Errorf("%w: %s", ErrUnknownStopType, cfg.Type)
	}
}

// Kind returns the stop type constant.
func (s StopLoss) Kind() string {
	if s.kind == "" {
		return domain.StopTypeNone
	}
	return s.kind
}

// ATRPeriod returns the ATR lookback, or 0 for non-ATR stops.
func (s StopLoss) ATRPeriod() int {
	if s.kind != domain.StopTypeATR {
		return 0
	}
	return s.period
}

// IsHit reports whether the position should be closed at price.
// A NaN atr (not yet defined) never triggers an ATR stop.
func (s StopLoss) IsHit(entryPrice, price, highestPrice float64, barsHeld int, atr float64) bool {
	switch s.kind {
	case domain.StopTypeFixed:
		return price <= entryPrice*(1-s.percent/100)
	case domain.StopTypeTrailing:
		return price <= highestPrice*(1-s.percent/100)
	case domain.StopTypeATR:
		if math.IsNaN(atr) {
			return false
		}
		return price <= entryPrice-s.multiplier*atr
	case domain.StopTypeTime:
		return barsHeld >= s.maxBars
	default:
		return false
	}
}

// StopPrice returns the current trigger price, if the variant has one.
func (s StopLoss) StopPrice(entryPrice, highestPrice, atr float64) (float64, bool) {
	switch s.kind {
	case domain.StopTypeFixed:
		return entryPrice * (1 - s.percent/100), true
	case domain.StopTypeTrailing:
		return highestPrice * (1 - s.percent/100), true
	case domain.StopTypeATR:
		if math.IsNaN(atr) {
			return 0, false
		}
		return entryPrice - s.multiplier*atr, true
	default:
		return 0, false
	}
}

// Describe returns a human readable summary.
func (s StopLoss) Describe() string {
	switch s.kind {
	case domain.StopTypeFixed:
		return fmt.Sprintf("Fixed %.1f%%", s.percent)
	case domain.StopTypeTrailing:
		return fmt.Sprintf("Trailing %.1f%%", s.percent)
	case domain.StopTypeATR:
		return fmt.Sprintf("ATR (%g x %d period)", s.multiplier, s.period)
	case domain.StopTypeTime:
		return fmt.Sprintf("Time limit %d bars", s.maxBars)
	default:
		return "None"
	}
}
