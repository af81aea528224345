package domain

// OptimizationResult summarizes one parameter combination of a sweep.
type OptimizationResult struct {
	FastPeriod  int     `json:"fast_period"`
	SlowPeriod  int     `json:"slow_period"`
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	TotalTrades int     `json:"total_trades"`
}

// WalkForwardResult compares in-sample and out-of-sample performance
// of the parameters chosen on the training window.
type WalkForwardResult struct {
	TrainSize         int     `json:"train_size"`
	TestSize          int     `json:"test_size"`
	BestFastPeriod    int     `json:"best_fast_period"`
	BestSlowPeriod    int     `json:"best_slow_period"`
	InSampleReturn    float64 `json:"in_sample_return"`
	InSampleSharpe    float64 `json:"in_sample_sharpe"`
	OutOfSampleReturn float64 `json:"out_of_sample_return"`
	OutOfSampleSharpe float64 `json:"out_of_sample_sharpe"`
	DegradationReturn float64 `json:"degradation_return"` // percent
	DegradationSharpe float64 `json:"degradation_sharpe"` // percent
}
