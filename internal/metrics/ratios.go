// Package metrics computes risk-adjusted performance statistics from
// equity curves and trade lists. All functions are pure.
package metrics

import "math"

// SentinelRatio is returned where a ratio is unbounded: Sortino with no
// negative returns, profit factor with no losing trades.
const SentinelRatio = 999.0

// DaysPerYear converts bar counts to years for Calmar.
const DaysPerYear = 365.25

// Returns computes simple per-bar returns (e[i]-e[i-1])/e[i-1].
func Returns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		out[i-1] = (equity[i] - equity[i-1]) / equity[i-1]
	}
	return out
}

// SharpeRatio returns annualized mean/stddev of returns. Stddev uses the
// population formula. Returns 0 for empty input or zero volatility.
func SharpeRatio(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := computeMean(returns)
	std := computePopulationStddev(returns, mean)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

// SortinoRatio returns annualized mean over downside deviation.
// Downside variance divides the squared negative returns by the total
// return count, not by the count of negative returns.
// Returns SentinelRatio when no return is negative, 0 for empty input.
func SortinoRatio(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := computeMean(returns)

	var downsideSum float64
	negatives := 0
	for _, r := range returns {
		if r < 0 {
			downsideSum += r * r
			negatives++
		}
	}
	if negatives == 0 {
		return SentinelRatio
	}

	downsideDev := math.Sqrt(downsideSum / float64(len(returns)))
	if downsideDev == 0 {
		return 0
	}
	return mean / downsideDev * math.Sqrt(periodsPerYear)
}

// CalmarRatio returns annualized return over |maxDrawdown|, with
// years = bars/365.25. Returns 0 when there is no drawdown.
func CalmarRatio(totalReturn, maxDrawdown float64, bars int) float64 {
	if maxDrawdown == 0 {
		return 0
	}
	years := float64(bars) / DaysPerYear
	if years == 0 {
		return 0
	}
	return (totalReturn / years) / math.Abs(maxDrawdown)
}

// MaxDrawdown returns the most negative (equity-peak)/peak over the
// curve, starting the running peak at equity[0]. Always <= 0.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		dd := (e - peak) / peak
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// TotalReturn returns (final-initial)/initial.
func TotalReturn(initial, final float64) float64 {
	return (final - initial) / initial
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computePopulationStddev calculates standard deviation with an n denominator.
func computePopulationStddev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
