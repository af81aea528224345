// Package optimization drives many independent engine runs: a parallel
// grid search over SMA periods and an optimize-then-validate walk-forward.
package optimization

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"strataquant/internal/backtest"
	"strataquant/internal/domain"
	"strataquant/internal/observability"
	"strataquant/internal/strategy"
)

// Range is an inclusive integer parameter range.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Default grid used by walk-forward and the optimize command.
var (
	DefaultFastRange = Range{Min: 20, Max: 100}
	DefaultSlowRange = Range{Min: 50, Max: 200}
)

// DefaultStep is the shared grid step.
const DefaultStep = 10

// Combinations lists every (fast, slow) pair on the grid with fast < slow,
// ordered by fast then slow. A non-positive step yields nothing.
func Combinations(fast, slow Range, step int) [][2]int {
	if step <= 0 {
		return nil
	}
	var combos [][2]int
	for f := fast.Min; f <= fast.Max; f += step {
		for s := slow.Min; s <= slow.Max; s += step {
			if f > 0 && f < s {
				combos = append(combos, [2]int{f, s})
			}
		}
	}
	return combos
}

// SweepConfig configures a Sweep.
type SweepConfig struct {
	Base    backtest.Config
	Workers int                    // <= 0 uses runtime.NumCPU()
	Logger  *zap.Logger            // optional
	Metrics *observability.Metrics // optional
}

// Sweep runs an SMA crossover grid over one bar sequence.
type Sweep struct {
	bars    []domain.PriceBar
	base    backtest.Config
	workers int
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewSweep creates a sweep over bars. Bars are shared read-only by all workers.
func NewSweep(bars []domain.PriceBar, cfg SweepConfig) *Sweep {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Sweep{
		bars:    bars,
		base:    cfg.Base,
		workers: workers,
		logger:  observability.OrNop(cfg.Logger),
		metrics: cfg.Metrics,
	}
}

// Run evaluates every combination and returns results sorted by (fast, slow).
// Each job builds its own strategy and engine, so workers share no mutable state.
func (s *Sweep) Run(fast, slow Range, step int) ([]domain.OptimizationResult, error) {
	combos := Combinations(fast, slow, step)
	started := time.Now()

	s.logger.Info("sweep started",
		zap.Int("combinations", len(combos)),
		zap.Int("workers", s.workers),
		zap.Int("bars", len(s.bars)),
	)

	jobs := make(chan [2]int)
	results := make(chan domain.OptimizationResult, len(combos))

	var g errgroup.Group
	for w := 0; w < s.workers; w++ {
		g.Go(func() error {
			for combo := range jobs {
				r, err := s.evaluate(combo[0], combo[1])
				if err != nil {
					// Drain so the feeder never blocks.
					for range jobs {
					}
					return err
				}
				results <- r
			}
			return nil
		})
	}

	for _, combo := range combos {
		jobs <- combo
	}
	close(jobs)

	err := g.Wait()
	close(results)
	if err != nil {
		return nil, err
	}

	collected := make([]domain.OptimizationResult, 0, len(combos))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool {
		if collected[i].FastPeriod != collected[j].FastPeriod {
			return collected[i].FastPeriod < collected[j].FastPeriod
		}
		return collected[i].SlowPeriod < collected[j].SlowPeriod
	})

	elapsed := time.Since(started)
	s.metrics.RecordSweep(len(collected), elapsed)
	s.logger.Info("sweep complete",
		zap.Int("results", len(collected)),
		zap.Duration("elapsed", elapsed),
	)

	return collected, nil
}

// evaluate runs a single combination on a fresh strategy and engine.
func (s *Sweep) evaluate(fastPeriod, slowPeriod int) (domain.OptimizationResult, error) {
	strat, err := strategy.NewSMACrossover(fastPeriod, slowPeriod)
	if err != nil {
		return domain.OptimizationResult{}, err
	}
	engine, err := backtest.NewEngine(s.bars, s.base)
	if err != nil {
		return domain.OptimizationResult{}, fmt.Errorf("sma %d/%d: %w", fastPeriod, slowPeriod, err)
	}
	result := engine.Run(strat)

	return domain.OptimizationResult{
		FastPeriod:  fastPeriod,
		SlowPeriod:  slowPeriod,
		TotalReturn: result.TotalReturn,
		SharpeRatio: result.SharpeRatio,
		MaxDrawdown: result.MaxDrawdown,
		TotalTrades: result.TotalTrades,
	}, nil
}

// FindBestSharpe returns the result with the highest Sharpe ratio.
// Ties go to the first encountered. ok is false for empty input.
func FindBestSharpe(results []domain.OptimizationResult) (domain.OptimizationResult, bool) {
	return argMax(results, func(r domain.OptimizationResult) float64 { return r.SharpeRatio })
}

// FindBestReturn returns the result with the highest total return.
func FindBestReturn(results []domain.OptimizationResult) (domain.OptimizationResult, bool) {
	return argMax(results, func(r domain.OptimizationResult) float64 { return r.TotalReturn })
}

func argMax(results []domain.OptimizationResult, key func(domain.OptimizationResult) float64) (domain.OptimizationResult, bool) {
	if len(results) == 0 {
		return domain.OptimizationResult{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if key(r) > key(best) {
			best = r
		}
	}
	return best, true
}

// TopBySharpe returns up to n results ordered by Sharpe descending.
// Equal Sharpe keeps the (fast, slow) order.
func TopBySharpe(results []domain.OptimizationResult, n int) []domain.OptimizationResult {
	sorted := append([]domain.OptimizationResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SharpeRatio > sorted[j].SharpeRatio
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
