package strategy

import "strataquant/internal/domain"

// BuyAndHold is fully long on every bar.
type BuyAndHold struct{}

// NewBuyAndHold creates a BuyAndHold strategy.
func NewBuyAndHold() *BuyAndHold {
	return &BuyAndHold{}
}

// GenerateSignals implements Strategy.
func (s *BuyAndHold) GenerateSignals(bars []domain.PriceBar) []float64 {
	signals := make([]float64, len(bars))
	for i := range signals {
		signals[i] = 1.0
	}
	return signals
}

// Name implements Strategy.
func (s *BuyAndHold) Name() string { return "Buy and Hold" }

// Description implements Strategy.
func (s *BuyAndHold) Description() string {
	return "Buy at the first bar and hold until the end"
}

var _ Strategy = (*BuyAndHold)(nil)
