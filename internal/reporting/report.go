// Package reporting renders backtest, sweep and walk-forward results as
// JSON, CSV and Markdown.
package reporting

import (
	"time"

	"strataquant/internal/domain"
)

// ComparisonRow is one strategy's line in a comparison table.
type ComparisonRow struct {
	Name        string  `json:"name"`
	StrategyID  string  `json:"strategy_id"`
	RunID       string  `json:"run_id,omitempty"`
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	TotalTrades int     `json:"total_trades"`
}

// RowFromRun builds a comparison row from a stored run.
func RowFromRun(name string, run *domain.BacktestRun) ComparisonRow {
	return ComparisonRow{
		Name:        name,
		StrategyID:  run.StrategyID,
		RunID:       run.RunID,
		TotalReturn: run.Result.TotalReturn,
		SharpeRatio: run.Result.SharpeRatio,
		MaxDrawdown: run.Result.MaxDrawdown,
		TotalTrades: run.Result.TotalTrades,
	}
}

// Report is a comparison of the latest stored run of several strategies.
type Report struct {
	GeneratedAt time.Time
	Symbol      string
	Interval    string
	Rows        []ComparisonRow // input order
	Missing     []string        // strategy IDs without a stored run
}
