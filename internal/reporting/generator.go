package reporting

import (
	"context"
	"fmt"
	"time"

	"strataquant/internal/domain"
	"strataquant/internal/storage"
)

// Generator produces reports from stored runs.
type Generator struct {
	runs storage.BacktestRunStore
	now  func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runs storage.BacktestRunStore) *Generator {
	return &Generator{
		runs: runs,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate compares the most recent run of each strategy on symbol/interval.
func (g *Generator) Generate(ctx context.Context, symbol, interval string, strategyIDs []string) (*Report, error) {
	report := &Report{
		GeneratedAt: g.now(),
		Symbol:      symbol,
		Interval:    interval,
	}

	for _, id := range strategyIDs {
		runs, err := g.runs.ListByStrategy(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("list runs for %s: %w", id, err)
		}

		var latest *domain.BacktestRun
		for _, run := range runs {
			if run.Symbol == symbol && run.Interval == interval {
				latest = run // runs are ordered by created_at ASC
			}
		}
		if latest == nil {
			report.Missing = append(report.Missing, id)
			continue
		}
		report.Rows = append(report.Rows, RowFromRun(id, latest))
	}

	return report, nil
}
