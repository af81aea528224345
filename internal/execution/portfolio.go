package execution

// Portfolio is a single-asset cash/position ledger.
// Equity is always derived from a mark price.
// Callers are responsible for checking that cash covers a buy.
type Portfolio struct {
	Cash       float64 `json:"cash"`
	Position   float64 `json:"position"`
	TradeCount int     `json:"trade_count"`
}

// NewPortfolio creates a flat portfolio holding only cash.
func NewPortfolio(initialCash float64) *Portfolio {
	return &Portfolio{Cash: initialCash}
}

// Buy adds qty at fillPrice and deducts notional plus commission from cash.
func (p *Portfolio) Buy(qty, fillPrice, commissionBps float64) {
	rate := commissionBps / bpsDivisor
	p.Cash -= qty * fillPrice * (1 + rate)
	p.Position += qty
	p.TradeCount++
}

// Sell removes qty at fillPrice and credits proceeds net of commission.
func (p *Portfolio) Sell(qty, fillPrice, commissionBps float64) {
	rate := commissionBps / bpsDivisor
	p.Cash += qty * fillPrice * (1 - rate)
	p.Position -= qty
	p.TradeCount++
}

// Equity returns cash plus the position marked at markPrice.
func (p *Portfolio) Equity(markPrice float64) float64 {
	return p.Cash + p.Position*markPrice
}
