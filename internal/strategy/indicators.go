package strategy

import "math"

// SMA returns the simple moving average over period, NaN until period
// values are available. Each window is summed directly so values do not
// accumulate rounding drift over long series.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if period <= 0 || i+1 < period {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for _, v := range values[i+1-period : i+1] {
			sum += v
		}
		out[i] = sum / float64(period)
	}
	return out
}
