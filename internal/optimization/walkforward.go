package optimization

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"strataquant/internal/backtest"
	"strataquant/internal/domain"
	"strataquant/internal/observability"
	"strataquant/internal/strategy"
)

// Walk-forward errors
var (
	ErrInvalidTrainRatio = errors.New("train ratio must be strictly between 0 and 1")
	ErrEmptySplit        = errors.New("train/test split leaves an empty window")
	ErrNoResults         = errors.New("parameter sweep produced no results")
)

// OverfitWarningThreshold is the Sharpe degradation (percent) above which
// callers should warn about overfitting.
const OverfitWarningThreshold = 50.0

// SplitIndex returns floor(n*ratio), the first index of the test window.
func SplitIndex(n int, ratio float64) (int, error) {
	if !(ratio > 0 && ratio < 1) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTrainRatio, ratio)
	}
	split := int(math.Floor(float64(n) * ratio))
	if split == 0 || split == n {
		return 0, fmt.Errorf("%w: n=%d ratio=%v", ErrEmptySplit, n, ratio)
	}
	return split, nil
}

// WalkForwardConfig configures a WalkForward. Zero grid fields use the defaults.
type WalkForwardConfig struct {
	Base      backtest.Config
	FastRange Range
	SlowRange Range
	Step      int
	Workers   int
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// WalkForward optimizes on a training prefix and validates on the test suffix.
type WalkForward struct {
	bars []domain.PriceBar
	cfg  WalkForwardConfig
}

// NewWalkForward creates a walk-forward validator over bars.
func NewWalkForward(bars []domain.PriceBar, cfg WalkForwardConfig) *WalkForward {
	if cfg.FastRange == (Range{}) {
		cfg.FastRange = DefaultFastRange
	}
	if cfg.SlowRange == (Range{}) {
		cfg.SlowRange = DefaultSlowRange
	}
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	cfg.Logger = observability.OrNop(cfg.Logger)
	return &WalkForward{bars: bars, cfg: cfg}
}

// Run splits at trainRatio, picks the Sharpe-best parameters in-sample and
// runs them once out-of-sample.
func (w *WalkForward) Run(trainRatio float64) (*domain.WalkForwardResult, error) {
	result, err := w.run(trainRatio)
	status := "ok"
	if err != nil {
		status = "error"
	}
	w.cfg.Metrics.RecordWalkForward(status)
	return result, err
}

func (w *WalkForward) run(trainRatio float64) (*domain.WalkForwardResult, error) {
	split, err := SplitIndex(len(w.bars), trainRatio)
	if err != nil {
		return nil, err
	}
	train, test := w.bars[:split], w.bars[split:]

	sweep := NewSweep(train, SweepConfig{
		Base:    w.cfg.Base,
		Workers: w.cfg.Workers,
		Logger:  w.cfg.Logger,
		Metrics: w.cfg.Metrics,
	})
	results, err := sweep.Run(w.cfg.FastRange, w.cfg.SlowRange, w.cfg.Step)
	if err != nil {
		return nil, fmt.Errorf("in-sample sweep: %w", err)
	}

	best, ok := FindBestSharpe(results)
	if !ok {
		return nil, ErrNoResults
	}

	strat, err := strategy.NewSMACrossover(best.FastPeriod, best.SlowPeriod)
	if err != nil {
		return nil, err
	}
	engine, err := backtest.NewEngine(test, w.cfg.Base)
	if err != nil {
		return nil, fmt.Errorf("out-of-sample engine: %w", err)
	}
	oos := engine.Run(strat)

	wf := &domain.WalkForwardResult{
		TrainSize:         len(train),
		TestSize:          len(test),
		BestFastPeriod:    best.FastPeriod,
		BestSlowPeriod:    best.SlowPeriod,
		InSampleReturn:    best.TotalReturn,
		InSampleSharpe:    best.SharpeRatio,
		OutOfSampleReturn: oos.TotalReturn,
		OutOfSampleSharpe: oos.SharpeRatio,
		DegradationReturn: Degradation(best.TotalReturn, oos.TotalReturn),
		DegradationSharpe: Degradation(best.SharpeRatio, oos.SharpeRatio),
	}

	w.cfg.Logger.Info("walk-forward complete",
		zap.Int("train_size", wf.TrainSize),
		zap.Int("test_size", wf.TestSize),
		zap.Int("best_fast", wf.BestFastPeriod),
		zap.Int("best_slow", wf.BestSlowPeriod),
		zap.Float64("degradation_sharpe", wf.DegradationSharpe),
	)
	if wf.DegradationSharpe > OverfitWarningThreshold {
		w.cfg.Logger.Warn("out-of-sample Sharpe degraded sharply, parameters may be overfit",
			zap.Float64("degradation_sharpe", wf.DegradationSharpe))
	}

	return wf, nil
}

// Degradation returns (inSample-outOfSample)/|inSample|*100, or 0 when
// inSample is 0.
func Degradation(inSample, outOfSample float64) float64 {
	if inSample == 0 {
		return 0
	}
	return (inSample - outOfSample) / math.Abs(inSample) * 100
}

// Overfit reports whether the Sharpe degradation crosses the warning threshold.
func Overfit(r *domain.WalkForwardResult) bool {
	return r != nil && r.DegradationSharpe > OverfitWarningThreshold
}
