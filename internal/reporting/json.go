package reporting

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"strataquant/internal/domain"
)

// SaveResultJSON writes result as indented JSON, creating parent directories.
// JSON has no NaN or Inf, so non-finite values are written as 0.
func SaveResultJSON(path string, result *domain.BacktestResult) error {
	return saveJSON(path, finiteResult(result))
}

// LoadResultJSON reads a result written by SaveResultJSON.
func LoadResultJSON(path string) (*domain.BacktestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var result domain.BacktestResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &result, nil
}

// SaveOptimizationJSON writes sweep results as indented JSON.
func SaveOptimizationJSON(path string, results []domain.OptimizationResult) error {
	out := make([]domain.OptimizationResult, len(results))
	for i, r := range results {
		r.TotalReturn = finite(r.TotalReturn)
		r.SharpeRatio = finite(r.SharpeRatio)
		r.MaxDrawdown = finite(r.MaxDrawdown)
		out[i] = r
	}
	return saveJSON(path, out)
}

// SaveWalkForwardJSON writes a walk-forward result as indented JSON.
func SaveWalkForwardJSON(path string, result *domain.WalkForwardResult) error {
	if result == nil {
		return saveJSON(path, result)
	}
	r := *result
	r.InSampleReturn = finite(r.InSampleReturn)
	r.InSampleSharpe = finite(r.InSampleSharpe)
	r.OutOfSampleReturn = finite(r.OutOfSampleReturn)
	r.OutOfSampleSharpe = finite(r.OutOfSampleSharpe)
	r.DegradationReturn = finite(r.DegradationReturn)
	r.DegradationSharpe = finite(r.DegradationSharpe)
	return saveJSON(path, &r)
}

// finiteResult returns a copy of result with NaN and Inf replaced by 0.
// The input is returned as is when every value is already finite.
func finiteResult(result *domain.BacktestResult) *domain.BacktestResult {
	if result == nil || resultIsFinite(result) {
		return result
	}

	r := *result
	r.InitialCapital = finite(r.InitialCapital)
	r.FinalEquity = finite(r.FinalEquity)
	r.TotalReturn = finite(r.TotalReturn)
	r.SharpeRatio = finite(r.SharpeRatio)
	r.SortinoRatio = finite(r.SortinoRatio)
	r.CalmarRatio = finite(r.CalmarRatio)
	r.MaxDrawdown = finite(r.MaxDrawdown)

	if r.EquityCurve != nil {
		curve := make([]float64, len(r.EquityCurve))
		for i, v := range r.EquityCurve {
			curve[i] = finite(v)
		}
		r.EquityCurve = curve
	}
	if r.Trades != nil {
		trades := make([]domain.Trade, len(r.Trades))
		for i, t := range r.Trades {
			t.EntryPrice = finite(t.EntryPrice)
			t.ExitPrice = finite(t.ExitPrice)
			t.Quantity = finite(t.Quantity)
			t.PnL = finite(t.PnL)
			t.PnLPct = finite(t.PnLPct)
			trades[i] = t
		}
		r.Trades = trades
	}
	if r.TradeStats != nil {
		stats := *r.TradeStats
		stats.WinRate = finite(stats.WinRate)
		stats.ProfitFactor = finite(stats.ProfitFactor)
		stats.AvgWin = finite(stats.AvgWin)
		stats.AvgLoss = finite(stats.AvgLoss)
		stats.LargestWin = finite(stats.LargestWin)
		stats.LargestLoss = finite(stats.LargestLoss)
		stats.AvgTrade = finite(stats.AvgTrade)
		stats.Expectancy = finite(stats.Expectancy)
		r.TradeStats = &stats
	}
	return &r
}

func resultIsFinite(r *domain.BacktestResult) bool {
	for _, v := range []float64{r.InitialCapital, r.FinalEquity, r.TotalReturn,
		r.SharpeRatio, r.SortinoRatio, r.CalmarRatio, r.MaxDrawdown} {
		if finite(v) != v {
			return false
		}
	}
	for _, v := range r.EquityCurve {
		if finite(v) != v {
			return false
		}
	}
	for _, t := range r.Trades {
		for _, v := range []float64{t.EntryPrice, t.ExitPrice, t.Quantity, t.PnL, t.PnLPct} {
			if finite(v) != v {
				return false
			}
		}
	}
	if s := r.TradeStats; s != nil {
		for _, v := range []float64{s.WinRate, s.ProfitFactor, s.AvgWin, s.AvgLoss,
			s.LargestWin, s.LargestLoss, s.AvgTrade, s.Expectancy} {
			if finite(v) != v {
				return false
			}
		}
	}
	return true
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func saveJSON(path string, v any) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}
