// Package backtest runs the per-bar simulation of one strategy over one
// price series.
package backtest

import (
	"errors"
	"math"

	"strataquant/internal/domain"
	"strataquant/internal/execution"
	"strataquant/internal/metrics"
	"strataquant/internal/risk"
	"strataquant/internal/strategy"
)

// ErrNoBars is returned when an engine is created without price data.
var ErrNoBars = errors.New("backtest requires at least one price bar")

const msPerDay = 86400000

// Engine simulates one strategy over a fixed bar sequence.
// Each Run starts from fresh portfolio and risk state, so an Engine can be
// reused but must not be shared between goroutines.
type Engine struct {
	bars   []domain.PriceBar
	config Config
	stop   risk.StopLoss
	sizer  risk.Sizer
	atr    []float64

	riskMetrics *risk.Metrics // state after the last Run
}

// NewEngine validates cfg and prepares an engine over bars.
// Bars are assumed pre-validated and are not modified.
func NewEngine(bars []domain.PriceBar, cfg Config) (*Engine, error) {
	if len(bars) == 0 {
		return nil, ErrNoBars
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stop, err := risk.NewStopLoss(cfg.StopLoss)
	if err != nil {
		return nil, err
	}
	sizer, err := risk.NewSizer(cfg.Sizing)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		bars:   bars,
		config: cfg,
		stop:   stop,
		sizer:  sizer,
	}
	if period := stop.ATRPeriod(); period > 0 {
		e.atr = risk.CalculateATR(bars, period)
	}
	return e, nil
}

// RiskMetrics returns the risk state at the end of the last Run, or nil.
func (e *Engine) RiskMetrics() *risk.Metrics { return e.riskMetrics }

// Run executes the strategy and returns the result snapshot.
//
// Per bar, in order:
//  1. If open, raise the highest price and evaluate the stop. A hit exits
//     at this close and skips step 2.
//  2. Otherwise compare the target exposure to the previous one. A rise
//     while flat runs the risk gate, sizes and enters. A fall while open
//     exits without risk checks.
//  3. Append equity marked at the close.
//  4. Update running risk metrics.
//
// Any position still open after the last bar is closed at the last close.
func (e *Engine) Run(strat strategy.Strategy) *domain.BacktestResult {
	cfg := e.config
	exec := cfg.Execution
	portfolio := execution.NewPortfolio(cfg.InitialCapital)
	rm := risk.NewMetrics(cfg.InitialCapital)

	targets := strat.GenerateSignals(e.bars)
	equityCurve := make([]float64, 0, len(e.bars))
	trades := make([]domain.Trade, 0)

	var state positionState = flatState{}
	prevTarget := 0.0
	prevDay := dayOf(e.bars[0].Timestamp)

	closePosition := func(pos *openState, i int, reason string) {
		bar := e.bars[i]
		fill := exec.FillSell(bar.Close)
		portfolio.Sell(pos.Quantity, fill, exec.CommissionBps)
		trades = append(trades, domain.NewTrade(
			pos.EntryTimestamp, bar.Timestamp,
			pos.EntryPrice, fill, pos.Quantity,
			pos.barsHeld(i), reason,
		))
		rm.OnTrade()
		state = exit()
	}

	for i, bar := range e.bars {
		if day := dayOf(bar.Timestamp); day != prevDay {
			rm.OnNewDay()
			prevDay = day
		}

		target := targetAt(targets, i)
		stopped := false

		// 1. Stop evaluation pre-empts the signal
		if pos, ok := state.(*openState); ok {
			pos.observe(bar.Close)
			if e.stop.IsHit(pos.EntryPrice, bar.Close, pos.HighestPrice, pos.barsHeld(i), e.atrAt(i)) {
				closePosition(pos, i, domain.ExitReasonStopLoss)
				stopped = true
			}
		}

		// 2. Signal-driven execution
		if !stopped {
			switch pos := state.(type) {
			case flatState:
				if target > prevTarget {
					if opened := e.tryEnter(portfolio, rm, i); opened != nil {
						state = opened
					}
				}
			case *openState:
				if target < prevTarget {
					closePosition(pos, i, domain.ExitReasonSignal)
				}
			}
		}
		prevTarget = target

		// 3. Mark to market
		equity := portfolio.Equity(bar.Close)
		equityCurve = append(equityCurve, equity)

		// 4. Running risk state
		exposure := 0.0
		if equity > 0 {
			exposure = portfolio.Position * bar.Close / equity
		}
		rm.Update(equity, exposure)
	}

	last := len(e.bars) - 1
	if pos, ok := state.(*openState); ok {
		closePosition(pos, last, domain.ExitReasonEndOfData)
	}

	e.riskMetrics = rm

	return buildResult(cfg, portfolio.Equity(e.bars[last].Close), equityCurve, trades)
}

// tryEnter runs the risk gate, sizes and buys at bar i. Returns nil when
// the entry is blocked or cash cannot cover it.
func (e *Engine) tryEnter(portfolio *execution.Portfolio, rm *risk.Metrics, i int) *openState {
	cfg := e.config
	exec := cfg.Execution
	bar := e.bars[i]
	equity := portfolio.Equity(bar.Close)

	if cfg.RiskLimits != nil && !cfg.RiskLimits.CheckEntry(rm).Allowed() {
		return nil
	}

	fill := exec.FillBuy(bar.Close)
	notional := e.sizer.Size(equity, e.riskAmount(fill, i))

	if cfg.RiskLimits != nil && !cfg.RiskLimits.CheckSize(rm, notional, equity).Allowed() {
		return nil
	}

	// Size the quantity so notional plus commission fits the sized amount.
	qty := notional / (fill * (1 + exec.CommissionRate()))
	cost := qty * fill * (1 + exec.CommissionRate())
	if qty <= 0 || math.IsNaN(qty) || cost > portfolio.Cash*(1+1e-12) {
		return nil
	}

	portfolio.Buy(qty, fill, exec.CommissionBps)
	return enter(i, bar.Timestamp, fill, qty, bar.Close)
}

// riskAmount returns the fractional distance from fill to the stop price,
// or 0 when the sizer does not need it or no stop price is defined.
func (e *Engine) riskAmount(fill float64, i int) float64 {
	if !e.sizer.UsesRiskAmount() {
		return 0
	}
	// At entry the highest price seen is the fill itself, so a trailing
	// stop starts at the same distance as a fixed one.
	stopPrice, ok := e.stop.StopPrice(fill, fill, e.atrAt(i))
	if !ok || stopPrice >= fill {
		return 0
	}
	return (fill - stopPrice) / fill
}

func (e *Engine) atrAt(i int) float64 {
	if e.atr == nil {
		return math.NaN()
	}
	return e.atr[i]
}

// targetAt clamps the target exposure to [0, 1]; missing values are flat.
func targetAt(targets []float64, i int) float64 {
	if i >= len(targets) || math.IsNaN(targets[i]) {
		return 0
	}
	return math.Max(0, math.Min(1, targets[i]))
}

func dayOf(timestampMs int64) int64 {
	day := timestampMs / msPerDay
	if timestampMs < 0 && timestampMs%msPerDay != 0 {
		day--
	}
	return day
}

// buildResult derives the terminal statistics.
func buildResult(cfg Config, finalEquity float64, equityCurve []float64, trades []domain.Trade) *domain.BacktestResult {
	totalReturn := metrics.TotalReturn(cfg.InitialCapital, finalEquity)
	returns := metrics.Returns(equityCurve)
	maxDD := metrics.MaxDrawdown(equityCurve)

	result := &domain.BacktestResult{
		InitialCapital: cfg.InitialCapital,
		FinalEquity:    finalEquity,
		TotalReturn:    totalReturn,
		EquityCurve:    equityCurve,
		TotalTrades:    len(trades),
		SharpeRatio:    metrics.SharpeRatio(returns, cfg.PeriodsPerYear),
		SortinoRatio:   metrics.SortinoRatio(returns, cfg.PeriodsPerYear),
		CalmarRatio:    metrics.CalmarRatio(totalReturn, maxDD, len(equityCurve)),
		MaxDrawdown:    maxDD,
	}
	if len(trades) > 0 {
		stats := metrics.ComputeTradeStats(trades)
		result.Trades = trades
		result.TradeStats = &stats
	}
	return result
}
