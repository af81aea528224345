package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"strataquant/internal/domain"
)

// WriteEquityCSV writes "bar,equity" rows, one per bar.
func WriteEquityCSV(w io.Writer, curve []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"bar", "equity"}); err != nil {
		return err
	}
	for i, equity := range curve {
		if err := cw.Write([]string{
			strconv.Itoa(i),
			strconv.FormatFloat(equity, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTradesCSV writes one row per trade. pnl_pct is in percent and
// duration_days is wall-clock days between entry and exit.
func WriteTradesCSV(w io.Writer, trades []domain.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"trade_num", "entry_timestamp", "exit_timestamp", "entry_price", "exit_price",
		"position_size", "pnl", "pnl_pct", "duration_days", "is_win",
	}); err != nil {
		return err
	}
	for i, t := range trades {
		if err := cw.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(t.EntryTimestamp, 10),
			strconv.FormatInt(t.ExitTimestamp, 10),
			fmt.Sprintf("%.2f", t.EntryPrice),
			fmt.Sprintf("%.2f", t.ExitPrice),
			fmt.Sprintf("%.8f", t.Quantity),
			fmt.Sprintf("%.2f", t.PnL),
			fmt.Sprintf("%.4f", t.PnLPct*100),
			fmt.Sprintf("%.1f", t.DurationDays()),
			strconv.FormatBool(t.IsWin),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOptimizationCSV writes one row per sweep combination.
func WriteOptimizationCSV(w io.Writer, results []domain.OptimizationResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"fast_period", "slow_period", "total_return", "sharpe_ratio", "max_drawdown", "total_trades",
	}); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write([]string{
			strconv.Itoa(r.FastPeriod),
			strconv.Itoa(r.SlowPeriod),
			fmt.Sprintf("%.6f", r.TotalReturn),
			fmt.Sprintf("%.6f", r.SharpeRatio),
			fmt.Sprintf("%.6f", r.MaxDrawdown),
			strconv.Itoa(r.TotalTrades),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveEquityCSV writes the equity CSV to path.
func SaveEquityCSV(path string, curve []float64) error {
	return saveWith(path, func(w io.Writer) error { return WriteEquityCSV(w, curve) })
}

// SaveTradesCSV writes the trades CSV to path. No file is written when
// there are no trades.
func SaveTradesCSV(path string, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	return saveWith(path, func(w io.Writer) error { return WriteTradesCSV(w, trades) })
}

// SaveOptimizationCSV writes the sweep CSV to path.
func SaveOptimizationCSV(path string, results []domain.OptimizationResult) error {
	return saveWith(path, func(w io.Writer) error { return WriteOptimizationCSV(w, results) })
}

func saveWith(path string, write func(io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
