package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"strataquant/internal/backtest"
	"strataquant/internal/optimization"
	"strataquant/internal/storage"
	"strataquant/internal/strategy"
)

const defaultTopN = 10

// handleBacktest handles POST /api/v1/backtest
func (s *Server) handleBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if _, err := strategy.FromConfig(req.Strategy); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_STRATEGY", err.Error())
		return
	}
	cfg, err := s.engineConfig(req.EngineOverrides)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error())
		return
	}

	ctx := c.Request.Context()
	bars, err := s.loadBars(ctx, req.SeriesRequest)
	if err != nil {
		s.dataError(c, err)
		return
	}

	run, err := s.runner.RunBars(ctx, bars, backtest.RunRequest{
		Symbol:   req.Symbol,
		Interval: req.Interval,
		Start:    req.Start,
		End:      req.End,
		Strategy: req.Strategy,
		Config:   cfg,
	})
	if err != nil {
		s.logger.Error("backtest failed", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "BACKTEST_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, runResponse(run))
}

// handleOptimize handles POST /api/v1/optimize
func (s *Server) handleOptimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	cfg, err := s.engineConfig(req.EngineOverrides)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error())
		return
	}

	fast, slow, step := gridOrDefault(req.FastRange, req.SlowRange, req.Step)
	topN := req.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	ctx := c.Request.Context()
	bars, err := s.loadBars(ctx, req.SeriesRequest)
	if err != nil {
		s.dataError(c, err)
		return
	}

	results, err := optimization.NewSweep(bars, optimization.SweepConfig{
		Base:    cfg,
		Workers: s.opts.Workers,
		Logger:  s.logger,
		Metrics: s.opts.Metrics,
	}).Run(fast, slow, step)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "SWEEP_ERROR", err.Error())
		return
	}

	sweepID := s.opts.NewID()
	if s.opts.Sweeps != nil {
		err := s.opts.Sweeps.InsertBulk(ctx, sweepID, results)
		s.opts.Metrics.RecordStorageOp("optimization_results", "insert", err)
		if err != nil {
			s.logger.Error("store sweep failed", zap.String("sweep_id", sweepID), zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
			return
		}
	}

	resp := OptimizeResponse{
		SweepID:      sweepID,
		Combinations: len(results),
		Top:          optimization.TopBySharpe(results, topN),
	}
	if best, ok := optimization.FindBestSharpe(results); ok {
		resp.BestSharpe = &best
	}
	if best, ok := optimization.FindBestReturn(results); ok {
		resp.BestReturn = &best
	}
	c.JSON(http.StatusOK, resp)
}

// handleWalkForward handles POST /api/v1/walkforward
func (s *Server) handleWalkForward(c *gin.Context) {
	var req WalkForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	cfg, err := s.engineConfig(req.EngineOverrides)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error())
		return
	}
	ratio := req.TrainRatio
	if ratio == 0 {
		ratio = 0.7
	}

	bars, err := s.loadBars(c.Request.Context(), req.SeriesRequest)
	if err != nil {
		s.dataError(c, err)
		return
	}

	fast, slow, step := gridOrDefault(req.FastRange, req.SlowRange, req.Step)
	wf, err := optimization.NewWalkForward(bars, optimization.WalkForwardConfig{
		Base:      cfg,
		FastRange: fast,
		SlowRange: slow,
		Step:      step,
		Workers:   s.opts.Workers,
		Logger:    s.logger,
		Metrics:   s.opts.Metrics,
	}).Run(ratio)
	switch {
	case errors.Is(err, optimization.ErrInvalidTrainRatio), errors.Is(err, optimization.ErrEmptySplit):
		abortWithError(c, http.StatusBadRequest, "INVALID_SPLIT", err.Error())
		return
	case errors.Is(err, optimization.ErrNoResults):
		abortWithError(c, http.StatusUnprocessableEntity, "NO_RESULTS", err.Error())
		return
	case err != nil:
		abortWithError(c, http.StatusInternalServerError, "WALKFORWARD_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, WalkForwardResponse{WalkForwardResult: wf, Overfit: optimization.Overfit(wf)})
}

// handleGetRun handles GET /api/v1/runs/:id
func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.opts.Runs.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "run not found")
		return
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, runResponse(run))
}

func (s *Server) dataError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, "NO_DATA", err.Error())
		return
	}
	s.logger.Error("load bars failed", zap.Error(err))
	abortWithError(c, http.StatusInternalServerError, "DATA_ERROR", err.Error())
}

func gridOrDefault(fast, slow *optimization.Range, step int) (optimization.Range, optimization.Range, int) {
	f, sl := optimization.DefaultFastRange, optimization.DefaultSlowRange
	if fast != nil {
		f = *fast
	}
	if slow != nil {
		sl = *slow
	}
	if step <= 0 {
		step = optimization.DefaultStep
	}
	return f, sl, step
}
