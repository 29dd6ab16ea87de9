package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/market"
)

// Translate sizes a signal into an order at price using the policy.
//
// The risk budget is RiskPct of cash over a stop StopPct away from price,
// capped so notional stays within MaxNotionalPct of cash. A signal that
// carries its own Quantity skips sizing but is still held to the cap.
// Rejections wrap ErrInsufficientCapital or ErrInvalidOrder.
func Translate(p Policy, sig market.Signal, price, cash float64) (Order, error) {
	p = p.withDefaults()

	if !sig.Action.Tradable() {
		return Order{}, fmt.Errorf("%w: action %s is not tradable", ErrInvalidOrder, sig.Action)
	}
	if !finitePositive(price) {
		return Order{}, fmt.Errorf("%w: price %v", ErrInvalidOrder, price)
	}
	if cash <= 0 || math.IsNaN(cash) {
		return Order{}, fmt.Errorf("%w: cash %.2f", ErrInsufficientCapital, cash)
	}

	stopDist := p.StopPct * price
	if stopDist <= 0 {
		return Order{}, fmt.Errorf("%w: stop distance %v", ErrInvalidOrder, stopDist)
	}

	riskAmount := p.RiskPct * cash
	qty := sig.Quantity
	if qty <= 0 {
		raw := riskAmount / stopDist
		capped := p.MaxNotionalPct * cash / price
		qty = math.Min(raw, capped)
	}

	o := Order{
		Symbol:     sig.Symbol,
		Action:     sig.Action,
		Quantity:   qty,
		Price:      price,
		Confidence: sig.Confidence,
		RiskAmount: riskAmount,
	}
	if sig.Action == market.Buy {
		o.StopLoss = price - stopDist
		o.TakeProfit = price + p.RewardRisk*stopDist
	} else {
		o.StopLoss = price + stopDist
		o.TakeProfit = price - p.RewardRisk*stopDist
	}

	if err := Evaluate(p, o, cash).Err(); err != nil {
		return Order{}, err
	}
	return o, nil
}
