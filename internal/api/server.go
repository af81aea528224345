// Package api exposes backtests, sweeps and walk-forward validation over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"strataquant/internal/backtest"
	"strataquant/internal/config"
	"strataquant/internal/domain"
	"strataquant/internal/execution"
	"strataquant/internal/observability"
	"strataquant/internal/storage"
)

// Options configures Server.
type Options struct {
	Bars    storage.PriceBarStore           // required
	Runs    storage.BacktestRunStore        // required
	Curves  storage.EquityCurveStore        // optional
	Sweeps  storage.OptimizationResultStore // optional
	Metrics *observability.Metrics
	Logger  *zap.Logger

	// Base is the engine config requests override.
	Base backtest.Config
	// Workers bounds sweep parallelism; <= 0 uses all CPUs.
	Workers int
	// AllowedOrigins for CORS; empty allows all.
	AllowedOrigins []string
	// MetricsHandler serves /metrics; nil uses the default registry.
	MetricsHandler http.Handler
	// NewID generates sweep IDs; nil uses uuid.
	NewID func() string
}

// Server wires handlers to a gin router.
type Server struct {
	opts   Options
	runner *backtest.Runner
	logger *zap.Logger
	router *gin.Engine
}

// NewServer creates a server and registers routes.
func NewServer(opts Options) *Server {
	if opts.MetricsHandler == nil {
		opts.MetricsHandler = observability.Handler()
	}
	if opts.NewID == nil {
		opts.NewID = newSweepID
	}
	logger := observability.OrNop(opts.Logger)

	s := &Server{
		opts: opts,
		runner: backtest.NewRunner(backtest.RunnerOptions{
			Bars:    opts.Bars,
			Runs:    opts.Runs,
			Curves:  opts.Curves,
			Metrics: opts.Metrics,
			Logger:  logger,
		}),
		logger: logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(s.logger))
	router.Use(errorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(s.opts.MetricsHandler))

	api := router.Group("/api/v1")
	{
		api.POST("/backtest", s.handleBacktest)
		api.POST("/optimize", s.handleOptimize)
		api.POST("/walkforward", s.handleWalkForward)
		api.GET("/runs/:id", s.handleGetRun)
	}

	router.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	return router
}

// Handler returns the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}).Handler(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// engineConfig applies request overrides on the base config.
func (s *Server) engineConfig(o EngineOverrides) (backtest.Config, error) {
	cfg := s.opts.Base
	if o.Capital != nil {
		cfg.InitialCapital = *o.Capital
	}
	commission, slippage := cfg.Execution.CommissionBps, cfg.Execution.SlippageBps
	if o.CommissionBps != nil {
		commission = *o.CommissionBps
	}
	if o.SlippageBps != nil {
		slippage = *o.SlippageBps
	}
	cfg.Execution = execution.NewModel(commission, slippage)
	if o.StopLoss != nil {
		cfg.StopLoss = *o.StopLoss
	}
	if o.Sizing != nil {
		cfg.Sizing = *o.Sizing
	}
	if o.RiskPreset != "" {
		switch o.RiskPreset {
		case config.PresetNone, config.PresetDefault, config.PresetConservative, config.PresetAggressive:
		default:
			return backtest.Config{}, fmt.Errorf("unknown risk preset %q", o.RiskPreset)
		}
		cfg.RiskLimits = config.RiskLimitsConfig{Preset: o.RiskPreset}.Limits()
	}
	if err := cfg.Validate(); err != nil {
		return backtest.Config{}, err
	}
	return cfg, nil
}

func (s *Server) loadBars(ctx context.Context, r SeriesRequest) ([]domain.PriceBar, error) {
	var (
		bars []domain.PriceBar
		err  error
	)
	if r.Start == 0 && r.End == 0 {
		bars, err = s.opts.Bars.GetBySeries(ctx, r.Symbol, r.Interval)
	} else {
		bars, err = s.opts.Bars.GetByTimeRange(ctx, r.Symbol, r.Interval, r.Start, r.End)
	}
	s.opts.Metrics.RecordStorageOp("price_bars", "get", err)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s/%s", storage.ErrNotFound, r.Symbol, r.Interval)
	}
	return bars, nil
}
