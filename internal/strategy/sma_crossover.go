package strategy

import (
	"errors"
	"fmt"
	"math"

	"strataquant/internal/domain"
)

// ErrInvalidPeriods is returned when SMA periods are not 0 < fast < slow.
var ErrInvalidPeriods = errors.New("invalid SMA periods: require 0 < fast < slow")

// SMACrossover goes long on a golden cross (fast SMA crosses above slow)
// and flat on a death cross.
type SMACrossover struct {
	FastPeriod int
	SlowPeriod int
}

// NewSMACrossover creates an SMACrossover, rejecting invalid periods.
func NewSMACrossover(fast, slow int) (*SMACrossover, error) {
	if fast <= 0 || slow <= 0 || fast >= slow {
		return nil, fmt.Errorf("%w: fast=%d slow=%d", ErrInvalidPeriods, fast, slow)
	}
	return &SMACrossover{FastPeriod: fast, SlowPeriod: slow}, nil
}

// GenerateSignals implements Strategy.
//
// Signal is 0 while either SMA is undefined. Once both are defined the
// position only changes on a cross, so a trend already in place when the
// slow SMA first becomes defined is not entered until the next golden cross.
func (s *SMACrossover) GenerateSignals(bars []domain.PriceBar) []float64 {
	closes := domain.Closes(bars)
	fast := SMA(closes, s.FastPeriod)
	slow := SMA(closes, s.SlowPeriod)

	signals := make([]float64, len(bars))
	position := 0.0

	for i := range bars {
		if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) {
			signals[i] = 0
			continue
		}

		if i == 0 {
			if fast[i] > slow[i] {
				position = 1.0
			} else {
				position = 0.0
			}
		} else {
			prevFast, prevSlow := fast[i-1], slow[i-1]
			if !math.IsNaN(prevFast) && !math.IsNaN(prevSlow) {
				switch {
				case prevFast <= prevSlow && fast[i] > slow[i]:
					position = 1.0
				case prevFast >= prevSlow && fast[i] < slow[i]:
					position = 0.0
				}
			}
		}

		signals[i] = position
	}

	return signals
}

// Name implements Strategy.
func (s *SMACrossover) Name() string { return "SMA Crossover" }

// Description implements Strategy.
func (s *SMACrossover) Description() string {
	return fmt.Sprintf("SMA %d/%d crossover - Long when fast > slow, flat otherwise", s.FastPeriod, s.SlowPeriod)
}

var _ Strategy = (*SMACrossover)(nil)
