package metrics

import (
	"math"

	"strataquant/internal/domain"
)

// ComputeTradeStats aggregates a completed trade list in order.
// Every non-winning trade counts as a loss; losses are absolute values.
func ComputeTradeStats(trades []domain.Trade) domain.TradeStats {
	n := len(trades)
	if n == 0 {
		return domain.TradeStats{}
	}

	var (
		wins, losses            int
		grossWin, grossLoss     float64
		largestWin, largestLoss float64
		totalPnL                float64
	)
	for _, t := range trades {
		totalPnL += t.PnL
		if t.IsWin {
			wins++
			grossWin += t.PnL
			largestWin = math.Max(largestWin, t.PnL)
		} else {
			losses++
			grossLoss += math.Abs(t.PnL)
			largestLoss = math.Max(largestLoss, math.Abs(t.PnL))
		}
	}

	winRate := computeWinRate(wins, n)
	avgWin := computeAverage(grossWin, wins)
	avgLoss := computeAverage(grossLoss, losses)
	maxWins, maxLosses := computeStreaks(trades)

	return domain.TradeStats{
		TotalTrades:          n,
		WinningTrades:        wins,
		LosingTrades:         losses,
		WinRate:              winRate,
		ProfitFactor:         computeProfitFactor(grossWin, grossLoss),
		AvgWin:               avgWin,
		AvgLoss:              avgLoss,
		LargestWin:           largestWin,
		LargestLoss:          largestLoss,
		AvgTrade:             totalPnL / float64(n),
		Expectancy:           winRate*avgWin - (1-winRate)*avgLoss,
		MaxConsecutiveWins:   maxWins,
		MaxConsecutiveLosses: maxLosses,
	}
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeAverage divides sum by count, 0 when count is 0.
func computeAverage(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// computeProfitFactor returns gross wins over gross losses.
// With no losses it is SentinelRatio if anything was won, else 0.
func computeProfitFactor(grossWin, grossLoss float64) float64 {
	if grossLoss > 0 {
		return grossWin / grossLoss
	}
	if grossWin > 0 {
		return SentinelRatio
	}
	return 0
}

// computeStreaks returns the longest runs of winning and non-winning trades.
func computeStreaks(trades []domain.Trade) (int, int) {
	maxWins, maxLosses := 0, 0
	curWins, curLosses := 0, 0
	for _, t := range trades {
		if t.IsWin {
			curWins++
			curLosses = 0
			if curWins > maxWins {
				maxWins = curWins
			}
		} else {
			curLosses++
			curWins = 0
			if curLosses > maxLosses {
				maxLosses = curLosses
			}
		}
	}
	return maxWins, maxLosses
}
