package sim

import "github.com/rustyeddy/backtester/market"

func hitStopLoss(p *Position, price float64) bool {
	if p.StopLoss == 0 {
		return false
	}
	if p.Action == market.Sell {
		return price >= p.StopLoss
	}
	return price <= p.StopLoss
}

func hitTakeProfit(p *Position, price float64) bool {
	if p.TakeProfit == 0 {
		return false
	}
	if p.Action == market.Sell {
		return price <= p.TakeProfit
	}
	return price >= p.TakeProfit
}

// exitReason checks the bracket against a close price. The stop wins when
// both levels are crossed.
func exitReason(p *Position, price float64) string {
	switch {
	case hitStopLoss(p, price):
		return ReasonStopLoss
	case hitTakeProfit(p, price):
		return ReasonTakeProfit
	default:
		return ""
	}
}
