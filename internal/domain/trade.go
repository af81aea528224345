package domain

// Trade is a completed round trip, created at exit.
type Trade struct {
	EntryTimestamp int64   `json:"entry_timestamp"` // ms
	ExitTimestamp  int64   `json:"exit_timestamp"`  // ms
	EntryPrice     float64 `json:"entry_price"`     // fill price incl. slippage
	ExitPrice      float64 `json:"exit_price"`      // fill price incl. slippage
	Quantity       float64 `json:"quantity"`
	PnL            float64 `json:"pnl"`     // (exit - entry) * quantity
	PnLPct         float64 `json:"pnl_pct"` // (exit - entry) / entry
	DurationBars   int     `json:"duration_bars"`
	IsWin          bool    `json:"is_win"`
	ExitReason     string  `json:"exit_reason,omitempty"`
}

// Exit reason codes
const (
	ExitReasonSignal    = "signal"
	ExitReasonStopLoss  = "stop_loss"
	ExitReasonEndOfData = "end_of_data"
)

// NewTrade builds a Trade and derives pnl fields.
func NewTrade(entryTs, exitTs int64, entryPrice, exitPrice, quantity float64, durationBars int, reason string) Trade {
	pnl := (exitPrice - entryPrice) * quantity
	pnlPct := 0.0
	if entryPrice != 0 {
		pnlPct = (exitPrice - entryPrice) / entryPrice
	}
	return Trade{
		EntryTimestamp: entryTs,
		ExitTimestamp:  exitTs,
		EntryPrice:     entryPrice,
		ExitPrice:      exitPrice,
		Quantity:       quantity,
		PnL:            pnl,
		PnLPct:         pnlPct,
		DurationBars:   durationBars,
		IsWin:          pnl > 0,
		ExitReason:     reason,
	}
}

// DurationDays returns the holding time in days from timestamps.
func (t Trade) DurationDays() float64 {
	return float64(t.ExitTimestamp-t.EntryTimestamp) / 86400000.0
}

// TradeStats aggregates a full trade list.
type TradeStats struct {
	TotalTrades          int     `json:"total_trades"`
	WinningTrades        int     `json:"winning_trades"`
	LosingTrades         int     `json:"losing_trades"`
	WinRate              float64 `json:"win_rate"`
	ProfitFactor         float64 `json:"profit_factor"`
	AvgWin               float64 `json:"avg_win"`
	AvgLoss              float64 `json:"avg_loss"` // absolute value
	LargestWin           float64 `json:"largest_win"`
	LargestLoss          float64 `json:"largest_loss"` // absolute value
	AvgTrade             float64 `json:"avg_trade"`
	Expectancy           float64 `json:"expectancy"`
	MaxConsecutiveWins   int     `json:"longest_win_streak"`
	MaxConsecutiveLosses int     `json:"longest_loss_streak"`
}
