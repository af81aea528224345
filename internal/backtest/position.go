package backtest

// positionState is either flatState or openState. At most one position
// is open at a time; transitions happen only through enter and exit.
type positionState interface {
	isFlat() bool
}

type flatState struct{}

func (flatState) isFlat() bool { return true }

type openState struct {
	EntryIndex     int
	EntryTimestamp int64
	EntryPrice     float64 // fill price
	Quantity       float64
	HighestPrice   float64 // highest close since entry
}

func (*openState) isFlat() bool { return false }

// enter opens a position at bar index with highest set to close.
func enter(index int, timestamp int64, fillPrice, quantity, close float64) *openState {
	return &openState{
		EntryIndex:     index,
		EntryTimestamp: timestamp,
		EntryPrice:     fillPrice,
		Quantity:       quantity,
		HighestPrice:   close,
	}
}

// exit clears the position.
func exit() flatState {
	return flatState{}
}

// observe raises the highest price since entry.
func (p *openState) observe(close float64) {
	if close > p.HighestPrice {
		p.HighestPrice = close
	}
}

// barsHeld returns how many bars the position has been open at index.
func (p *openState) barsHeld(index int) int {
	return index - p.EntryIndex
}
