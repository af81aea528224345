package risk

import (
	"errors"
	"fmt"
	"math"

	"strataquant/internal/domain"
)

// Sizing construction errors.
var (
	ErrUnknownSizingType  = errors.New("unknown position sizing type")
	ErrInvalidSizingParam = errors.New("invalid position sizing parameter")
)

// Kelly fraction bounds.
const (
	kellyCap      = 0.25
	kellyNoLosses = 0.25
)

// Sizer converts equity into an entry notional.
type Sizer struct {
	kind    string
	amount  float64
	percent float64
	winRate float64
	avgWin  float64
	avgLoss float64
	risk    float64
}

// FixedDollarSizer sizes every entry at amount, capped by equity.
func FixedDollarSizer(amount float64) Sizer {
	return Sizer{kind: domain.SizingFixedDollar, amount: amount}
}

// FixedPercentSizer sizes every entry at pct percent of equity.
func FixedPercentSizer(pct float64) Sizer {
	return Sizer{kind: domain.SizingFixedPercent, percent: pct}
}

// KellySizer sizes by the capped Kelly fraction.
func KellySizer(winRate, avgWin, avgLoss float64) Sizer {
	return Sizer{kind: domain.SizingKelly, winRate: winRate, avgWin: avgWin, avgLoss: avgLoss}
}

// HalfKellySizer sizes by half the capped Kelly fraction.
func HalfKellySizer(winRate, avgWin, avgLoss float64) Sizer {
	return Sizer{kind: domain.SizingHalfKelly, winRate: winRate, avgWin: avgWin, avgLoss: avgLoss}
}

// FixedFractionalSizer risks riskPct percent of equity per trade.
func FixedFractionalSizer(riskPct float64) Sizer {
	return Sizer{kind: domain.SizingFixedFractional, risk: riskPct}
}

// NewSizer builds a sizer from config.
func NewSizer(cfg domain.SizingConfig) (Sizer, error) {
	switch cfg.Type {
	case domain.SizingFixedDollar:
		if cfg.Amount <= 0 {
			return Sizer{}, fmt.Errorf("%w: amount must be positive, got %v", ErrInvalidSizingParam, cfg.Amount)
		}
		return FixedDollarSizer(cfg.Amount), nil
	case "", domain.SizingFixedPercent:
		pct := cfg.Percent
		if cfg.Type == "" && pct == 0 {
			pct = 100
		}
		if pct <= 0 {
			return Sizer{}, fmt.Errorf("%w: percent must be positive, got %v", ErrInvalidSizingParam, pct)
		}
		return FixedPercentSizer(pct), nil
	case domain.SizingKelly, domain.SizingHalfKelly:
		if cfg.WinRate < 0 || cfg.WinRate > 1 {
			return Sizer{}, fmt.Errorf("%w: win rate must be in [0, 1], got %v", ErrInvalidSizingParam, cfg.WinRate)
		}
		if cfg.AvgWin < 0 || cfg.AvgLoss < 0 {
			return Sizer{}, fmt.Errorf("%w: average win/loss must be non-negative", ErrInvalidSizingParam)
		}
		if cfg.Type == domain.SizingKelly {
			return KellySizer(cfg.WinRate, cfg.AvgWin, cfg.AvgLoss), nil
		}
		return HalfKellySizer(cfg.WinRate, cfg.AvgWin, cfg.AvgLoss), nil
	case domain.SizingFixedFractional:
		if cfg.RiskPerTrade <= 0 {
			return Sizer{}, fmt.Errorf("%w: risk per trade must be positive, got %v", ErrInvalidSizingParam, cfg.RiskPerTrade)
		}
		return FixedFractionalSizer(cfg.RiskPerTrade), nil
	default:
		return Sizer{}, fmt.Errorf("%w: %s", ErrUnknownSizingType, cfg.Type)
	}
}

// Kind returns the sizing type constant.
func (s Sizer) Kind() string { return s.kind }

// UsesRiskAmount reports whether Size reads the riskAmount argument.
func (s Sizer) UsesRiskAmount() bool { return s.kind == domain.SizingFixedFractional }

// Size returns the entry notional for equity, never above equity.
// riskAmount is the per-unit risk (fractional stop distance); values <= 0
// mean no stop distance is known.
func (s Sizer) Size(equity, riskAmount float64) float64 {
	var size float64
	switch s.kind {
	case domain.SizingFixedDollar:
		size = s.amount
	case domain.SizingKelly:
		size = equity * KellyFraction(s.winRate, s.avgWin, s.avgLoss)
	case domain.SizingHalfKelly:
		size = equity * KellyFraction(s.winRate, s.avgWin, s.avgLoss) * 0.5
	case domain.SizingFixedFractional:
		maxLoss := equity * (s.risk / 100)
		if riskAmount > 0 {
			size = maxLoss / riskAmount
		} else {
			size = maxLoss
		}
	default:
		size = equity * (s.percent / 100)
	}
	return math.Min(size, equity)
}

// KellyFraction returns (p*R - (1-p)) / R clamped to [0, 0.25], where
// R = avgWin/avgLoss. Returns 0.25 when avgLoss is zero.
func KellyFraction(winRate, avgWin, avgLoss float64) float64 {
	if avgLoss == 0 {
		return kellyNoLosses
	}
	ratio := avgWin / avgLoss
	if ratio == 0 {
		return 0
	}
	kelly := (winRate*ratio - (1 - winRate)) / ratio
	return math.Max(0, math.Min(kelly, kellyCap))
}

// Describe returns a human readable summary.
func (s Sizer) Describe() string {
	switch s.kind {
	case domain.SizingFixedDollar:
		return fmt.Sprintf("$%.0f per trade", s.amount)
	case domain.SizingKelly:
		return fmt.Sprintf("Kelly (win rate %.2f)", s.winRate)
	case domain.SizingHalfKelly:
		return fmt.Sprintf("Half Kelly (win rate %.2f)", s.winRate)
	case domain.SizingFixedFractional:
		return fmt.Sprintf("Fixed fractional %.1f%% risk", s.risk)
	default:
		return fmt.Sprintf("%.1f%% of equity", s.percent)
	}
}
