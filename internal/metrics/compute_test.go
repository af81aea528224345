package metrics

import (
	"math"
	"testing"

	"strataquant/internal/domain"
)

func makeTrade(pnl float64) domain.Trade {
	// quantity 1, so pnl is exit - entry
	return domain.NewTrade(0, 86400000, 100, 100+pnl, 1, 1, domain.ExitReasonSignal)
}

func TestComputeTradeStats_Empty(t *testing.T) {
	stats := ComputeTradeStats(nil)
	if stats.TotalTrades != 0 || stats.ProfitFactor != 0 || stats.WinRate != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestComputeTradeStats_WinLossCounts(t *testing.T) {
	trades := []domain.Trade{makeTrade(10), makeTrade(-5), makeTrade(20), makeTrade(-15), makeTrade(0)}

	stats := ComputeTradeStats(trades)

	if stats.TotalTrades != 5 {
		t.Errorf("expected 5 trades, got %d", stats.TotalTrades)
	}
	if stats.WinningTrades != 2 {
		t.Errorf("expected 2 wins, got %d", stats.WinningTrades)
	}
	// breakeven trade counts as a loss
	if stats.LosingTrades != 3 {
		t.Errorf("expected 3 losses, got %d", stats.LosingTrades)
	}
	if math.Abs(stats.WinRate-0.4) > 0.0001 {
		t.Errorf("expected win rate 0.4, got %f", stats.WinRate)
	}
}

func TestComputeTradeStats_Averages(t *testing.T) {
	trades := []domain.Trade{makeTrade(10), makeTrade(-5), makeTrade(20), makeTrade(-15)}

	stats := ComputeTradeStats(trades)

	checks := []struct {
		name      string
		got, want float64
	}{
		{"profit factor", stats.ProfitFactor, 30.0 / 20.0},
		{"avg win", stats.AvgWin, 15},
		{"avg loss", stats.AvgLoss, 10},
		{"largest win", stats.LargestWin, 20},
		{"largest loss", stats.LargestLoss, 15},
		{"avg trade", stats.AvgTrade, 2.5},
		{"expectancy", stats.Expectancy, 0.5*15 - 0.5*10},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 0.0001 {
			t.Errorf("%s: expected %f, got %f", c.name, c.want, c.got)
		}
	}
}

func TestComputeTradeStats_ProfitFactorSentinel(t *testing.T) {
	stats := ComputeTradeStats([]domain.Trade{makeTrade(10), makeTrade(5)})
	if stats.ProfitFactor != SentinelRatio {
		t.Errorf("expected sentinel profit factor, got %f", stats.ProfitFactor)
	}

	stats = ComputeTradeStats([]domain.Trade{makeTrade(0)})
	if stats.ProfitFactor != 0 {
		t.Errorf("expected 0 profit factor with no wins or losses, got %f", stats.ProfitFactor)
	}
}

func TestComputeTradeStats_Streaks(t *testing.T) {
	// W W L L L W W W L
	pnls := []float64{1, 2, -1, -1, -1, 3, 1, 1, -2}
	trades := make([]domain.Trade, len(pnls))
	for i, p := range pnls {
		trades[i] = makeTrade(p)
	}

	stats := ComputeTradeStats(trades)

	if stats.MaxConsecutiveWins != 3 {
		t.Errorf("expected longest win streak 3, got %d", stats.MaxConsecutiveWins)
	}
	if stats.MaxConsecutiveLosses != 3 {
		t.Errorf("expected longest loss streak 3, got %d", stats.MaxConsecutiveLosses)
	}
}
