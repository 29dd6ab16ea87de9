// Package risk turns strategy signals into sized, bracketed orders.
package risk

import (
	"time"

	"github.com/rustyeddy/backtester/market"
)

// Policy holds the fixed-fractional sizing constants.
type Policy struct {
	RiskPct        float64 // fraction of cash risked per trade, 0.01
	StopPct        float64 // stop distance as a fraction of price, 0.002
	MaxNotionalPct float64 // notional cap as a fraction of cash, 0.10
	RewardRisk     float64 // take profit distance in stop distances, 2
}

// DefaultPolicy is the 1% risk, 0.2% stop, 10% notional, 1:2 policy.
func DefaultPolicy() Policy {
	return Policy{
		RiskPct:        0.01,
		StopPct:        0.002,
		MaxNotionalPct: 0.10,
		RewardRisk:     2,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.RiskPct <= 0 {
		p.RiskPct = d.RiskPct
	}
	if p.StopPct <= 0 {
		p.StopPct = d.StopPct
	}
	if p.MaxNotionalPct <= 0 {
		p.MaxNotionalPct = d.MaxNotionalPct
	}
	if p.RewardRisk <= 0 {
		p.RewardRisk = d.RewardRisk
	}
	return p
}

// Order is a sized market order with its exit bracket.
type Order struct {
	Symbol     string        `json:"symbol"`
	Action     market.Action `json:"action"`
	Quantity   float64       `json:"quantity"`
	Price      float64       `json:"price"`
	StopLoss   float64       `json:"stop_loss"`
	TakeProfit float64       `json:"take_profit"`
	Confidence float64       `json:"confidence"`
	RiskAmount float64       `json:"risk_amount"`
	Time       time.Time     `json:"time,omitempty"`
}

// Notional is quantity times price.
func (o Order) Notional() float64 {
	return o.Quantity * o.Price
}
