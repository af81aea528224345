package api

import (
	"strataquant/internal/domain"
	"strataquant/internal/optimization"
)

// SeriesRequest selects the bars a request runs on. Start and End are
// inclusive ms timestamps; both zero means the whole stored series.
type SeriesRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Interval string `json:"interval" binding:"required"`
	Start    int64  `json:"start,omitempty"`
	End      int64  `json:"end,omitempty"`
}

// EngineOverrides adjusts the server's base engine config. Nil fields keep
// the base value.
type EngineOverrides struct {
	Capital       *float64               `json:"capital,omitempty"`
	CommissionBps *float64               `json:"commission_bps,omitempty"`
	SlippageBps   *float64               `json:"slippage_bps,omitempty"`
	StopLoss      *domain.StopLossConfig `json:"stop_loss,omitempty"`
	Sizing        *domain.SizingConfig   `json:"position_sizing,omitempty"`
	RiskPreset    string                 `json:"risk_preset,omitempty"` // none | default | conservative | aggressive
}

// BacktestRequest is the body of POST /api/v1/backtest.
type BacktestRequest struct {
	SeriesRequest
	EngineOverrides
	Strategy domain.StrategyConfig `json:"strategy"`
}

// OptimizeRequest is the body of POST /api/v1/optimize.
type OptimizeRequest struct {
	SeriesRequest
	EngineOverrides
	FastRange *optimization.Range `json:"fast_range,omitempty"`
	SlowRange *optimization.Range `json:"slow_range,omitempty"`
	Step      int                 `json:"step,omitempty"`
	TopN      int                 `json:"top_n,omitempty"`
}

// WalkForwardRequest is the body of POST /api/v1/walkforward.
type WalkForwardRequest struct {
	SeriesRequest
	EngineOverrides
	TrainRatio float64             `json:"train_ratio,omitempty"`
	FastRange  *optimization.Range `json:"fast_range,omitempty"`
	SlowRange  *optimization.Range `json:"slow_range,omitempty"`
	Step       int                 `json:"step,omitempty"`
}

// RunResponse is a stored backtest run.
type RunResponse struct {
	RunID      string                 `json:"run_id"`
	StrategyID string                 `json:"strategy_id"`
	Symbol     string                 `json:"symbol"`
	Interval   string                 `json:"interval"`
	CreatedAt  int64                  `json:"created_at"`
	Result     *domain.BacktestResult `json:"result"`
}

// OptimizeResponse summarizes a sweep.
type OptimizeResponse struct {
	SweepID      string                      `json:"sweep_id"`
	Combinations int                         `json:"combinations"`
	BestSharpe   *domain.OptimizationResult  `json:"best_sharpe,omitempty"`
	BestReturn   *domain.OptimizationResult  `json:"best_return,omitempty"`
	Top          []domain.OptimizationResult `json:"top"`
}

// WalkForwardResponse wraps a walk-forward result with the overfit flag.
type WalkForwardResponse struct {
	*domain.WalkForwardResult
	Overfit bool `json:"overfit"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func runResponse(run *domain.BacktestRun) RunResponse {
	return RunResponse{
		RunID:      run.RunID,
		StrategyID: run.StrategyID,
		Symbol:     run.Symbol,
		Interval:   run.Interval,
		CreatedAt:  run.CreatedAt,
		Result:     run.Result,
	}
}
