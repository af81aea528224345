package risk

import (
	"math"

	"strataquant/internal/domain"
)

// CalculateATR returns Wilder-smoothed Average True Range, one value per bar.
// Values before index period-1 are NaN. The seed at period-1 is the simple
// mean of the first period true ranges.
func CalculateATR(bars []domain.PriceBar, period int) []float64 {
	atr := make([]float64, len(bars))
	if period <= 0 {
		for i := range atr {
			atr[i] = math.NaN()
		}
		return atr
	}

	var seedSum float64
	p := float64(period)
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prevClose := bars[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
		}

		switch {
		case i < period-1:
			seedSum += tr
			atr[i] = math.NaN()
		case i == period-1:
			seedSum += tr
			atr[i] = seedSum / p
		default:
			atr[i] = (atr[i-1]*(p-1) + tr) / p
		}
	}
	return atr
}
