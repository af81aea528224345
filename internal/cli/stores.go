package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"strataquant/internal/config"
	"strataquant/internal/domain"
	"strataquant/internal/storage"
	"strataquant/internal/storage/arrowfile"
	chstore "strataquant/internal/storage/clickhouse"
	"strataquant/internal/storage/memory"
	"strataquant/internal/storage/migrations"
	pgstore "strataquant/internal/storage/postgres"
	"strataquant/internal/storage/sqlite"
)

// Stores groups the storage backends a binary may use.
type Stores struct {
	Bars   storage.PriceBarStore
	Curves storage.EquityCurveStore
	Runs   storage.BacktestRunStore
	Sweeps storage.OptimizationResultStore
}

// OpenStores picks a backend per store: ClickHouse for bars and curves,
// Postgres (else SQLite) for runs and sweeps, memory for anything left.
// use_memory forces memory everywhere.
func OpenStores(ctx context.Context, sc config.StorageConfig, logger *zap.Logger) (*Stores, func(), error) {
	s := &Stores{
		Bars:   memory.NewPriceBarStore(),
		Curves: memory.NewEquityCurveStore(),
		Runs:   memory.NewBacktestRunStore(),
		Sweeps: memory.NewOptimizationResultStore(),
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	if sc.UseMemory {
		logger.Info("using in-memory storage")
		return s, cleanup, nil
	}

	if sc.ClickHouseDSN != "" {
		conn, err := migrations.ApplyClickHouse(ctx, sc.ClickHouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		s.Bars = chstore.NewPriceBarStore(conn)
		s.Curves = chstore.NewEquityCurveStore(conn)
		logger.Info("clickhouse storage ready")
	}

	switch {
	case sc.PostgresDSN != "":
		pool, err := pgstore.NewPool(ctx, sc.PostgresDSN,
			pgstore.WithApplicationName("strataquant"),
			pgstore.WithMaxConns(4),
			pgstore.WithConnectTimeout(10*time.Second),
		)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.ApplyPostgres(ctx, pool); err != nil {
			cleanup()
			return nil, nil, err
		}
		s.Runs = pgstore.NewBacktestRunStore(pool)
		s.Sweeps = pgstore.NewOptimizationResultStore(pool)
		logger.Info("postgres storage ready")
	case sc.SQLitePath != "":
		db, err := sqlite.Open(ctx, sc.SQLitePath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		s.Runs = sqlite.NewBacktestRunStore(db)
		logger.Info("sqlite run storage ready", zap.String("path", sc.SQLitePath))
	}

	return s, cleanup, nil
}

// LoadBars reads the configured window. An existing Arrow file wins;
// otherwise bars come from the price store.
func LoadBars(ctx context.Context, cfg *config.Config, bars storage.PriceBarStore) ([]domain.PriceBar, error) {
	start, end, err := cfg.Data.Window()
	if err != nil {
		return nil, err
	}

	if path := cfg.Data.ArrowFile; path != "" {
		all, err := arrowfile.Load(path)
		switch {
		case err == nil:
			return validated(clip(all, start, end), path)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}

	var out []domain.PriceBar
	if start.IsZero() && end.IsZero() {
		out, err = bars.GetBySeries(ctx, cfg.Data.Symbol, cfg.Data.Interval)
	} else {
		lo, hi := windowMillis(start, end)
		out, err = bars.GetByTimeRange(ctx, cfg.Data.Symbol, cfg.Data.Interval, lo, hi)
	}
	if err != nil {
		return nil, fmt.Errorf("load bars %s/%s: %w", cfg.Data.Symbol, cfg.Data.Interval, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no bars for %s/%s: download them first or point -data at an Arrow file", cfg.Data.Symbol, cfg.Data.Interval)
	}
	return validated(out, cfg.Data.Symbol+"/"+cfg.Data.Interval)
}

func validated(bars []domain.PriceBar, source string) ([]domain.PriceBar, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars in %s for the requested window", source)
	}
	if err := domain.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return bars, nil
}

// windowMillis converts a date window to inclusive ms bounds. The end date
// is whole-day inclusive.
func windowMillis(start, end time.Time) (int64, int64) {
	lo := int64(0)
	if !start.IsZero() {
		lo = start.UnixMilli()
	}
	hi := int64(1<<63 - 1)
	if !end.IsZero() {
		hi = end.Add(24*time.Hour).UnixMilli() - 1
	}
	return lo, hi
}

func clip(bars []domain.PriceBar, start, end time.Time) []domain.PriceBar {
	if start.IsZero() && end.IsZero() {
		return bars
	}
	lo, hi := windowMillis(start, end)
	out := make([]domain.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp >= lo && b.Timestamp <= hi {
			out = append(out, b)
		}
	}
	return out
}

// EnsureDir creates dir if missing.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
