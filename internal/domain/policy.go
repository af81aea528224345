package domain

// StopLossConfig selects a stop-loss variant. Only the fields of the
// selected type are read.
type StopLossConfig struct {
	Type          string  `yaml:"type" json:"type"` // none | fixed | trailing | atr | time
	Percent       float64 `yaml:"percent" json:"percent,omitempty"`
	ATRMultiplier float64 `yaml:"atr_multiplier" json:"atr_multiplier,omitempty"`
	ATRPeriod     int     `yaml:"atr_period" json:"atr_period,omitempty"`
	MaxBars       int     `yaml:"max_bars" json:"max_bars,omitempty"`
}

// Stop-loss type constants
const (
	StopTypeNone     = "none"
	StopTypeFixed    = "fixed"
	StopTypeTrailing = "trailing"
	StopTypeATR      = "atr"
	StopTypeTime     = "time"
)

// SizingConfig selects a position sizing variant.
type SizingConfig struct {
	Type         string  `yaml:"type" json:"type"` // fixed-dollar | fixed-pct | kelly | half-kelly | fixed-fractional
	Amount       float64 `yaml:"amount" json:"amount,omitempty"`
	Percent      float64 `yaml:"percent" json:"percent,omitempty"`
	WinRate      float64 `yaml:"win_rate" json:"win_rate,omitempty"`
	AvgWin       float64 `yaml:"avg_win" json:"avg_win,omitempty"`
	AvgLoss      float64 `yaml:"avg_loss" json:"avg_loss,omitempty"`
	RiskPerTrade float64 `yaml:"risk_per_trade" json:"risk_per_trade,omitempty"` // percent of equity
}

// Sizing type constants
const (
	SizingFixedDollar     = "fixed-dollar"
	SizingFixedPercent    = "fixed-pct"
	SizingKelly           = "kelly"
	SizingHalfKelly       = "half-kelly"
	SizingFixedFractional = "fixed-fractional"
)
