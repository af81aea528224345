package domain

// BacktestResult is the terminal snapshot of one engine run.
// Field order is the serialized order.
type BacktestResult struct {
	InitialCapital float64     `json:"initial_capital"`
	FinalEquity    float64     `json:"final_equity"`
	TotalReturn    float64     `json:"total_return"`
	EquityCurve    []float64   `json:"equity_curve"`
	TotalTrades    int         `json:"total_trades"`
	SharpeRatio    float64     `json:"sharpe_ratio"`
	SortinoRatio   float64     `json:"sortino_ratio"`
	CalmarRatio    float64     `json:"calmar_ratio"`
	MaxDrawdown    float64     `json:"max_drawdown"`
	Trades         []Trade     `json:"trades,omitempty"`
	TradeStats     *TradeStats `json:"trade_stats,omitempty"`
}

// BacktestRun is a persisted backtest with its identity.
type BacktestRun struct {
	RunID      string // deterministic hash
	StrategyID string // e.g. SMA_50_200
	Symbol     string
	Interval   string
	CreatedAt  int64 // ms
	Result     *BacktestResult
}
