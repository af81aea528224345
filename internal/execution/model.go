// Package execution models fills and the cash/position ledger.
package execution

const bpsDivisor = 10000.0

// Model applies slippage to fill prices and computes commission.
type Model struct {
	SlippageBps   float64 `json:"slippage_bps"`
	CommissionBps float64 `json:"commission_bps"`
}

// NewModel creates an execution model.
func NewModel(commissionBps, slippageBps float64) Model {
	return Model{SlippageBps: slippageBps, CommissionBps: commissionBps}
}

// FillBuy returns the market buy fill price (adverse slippage upward).
func (m Model) FillBuy(price float64) float64 {
	return price * (1 + m.SlippageBps/bpsDivisor)
}

// FillSell returns the market sell fill price (adverse slippage downward).
func (m Model) FillSell(price float64) float64 {
	return price * (1 - m.SlippageBps/bpsDivisor)
}

// Commission returns the commission charged on notional.
func (m Model) Commission(notional float64) float64 {
	return notional * (m.CommissionBps / bpsDivisor)
}

// CommissionRate returns commission as a fraction of notional.
func (m Model) CommissionRate() float64 {
	return m.CommissionBps / bpsDivisor
}
