package sim

import (
	"time"

	"github.com/rustyeddy/backtester/market"
)

type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Exit reasons recorded on closed positions.
const (
	ReasonStopLoss   = "StopLoss"
	ReasonTakeProfit = "TakeProfit"
	ReasonReversal   = "Reversal"
	ReasonEndOfData  = "EndOfData"
)

// Position is one round trip in a single symbol. It is owned and mutated
// only by the Ledger that opened it.
type Position struct {
	ID         int           `json:"id"`
	Symbol     string        `json:"symbol"`
	Action     market.Action `json:"action"`
	Quantity   float64       `json:"quantity"`
	EntryPrice float64       `json:"entry_price"`
	EntryTime  time.Time     `json:"entry_time"`
	StopLoss   float64       `json:"stop_loss"`
	TakeProfit float64       `json:"take_profit"`
	Confidence float64       `json:"confidence"`

	Status    Status    `json:"status"`
	ExitPrice float64   `json:"exit_price,omitempty"`
	ExitTime  time.Time `json:"exit_time,omitempty"`
	PnL       float64   `json:"pnl"`
	Reason    string    `json:"reason,omitempty"`

	// last price seen for the symbol, used when a tick has no bar for it
	mark float64
}

func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// Side is +1 for longs and -1 for shorts.
func (p *Position) Side() float64 {
	if p.Action == market.Sell {
		return -1
	}
	return 1
}

// Notional is the cash committed at entry.
func (p *Position) Notional() float64 {
	return p.Quantity * p.EntryPrice
}

// Mark returns the last price the ledger saw for the position.
func (p *Position) Mark() float64 {
	if p.mark == 0 {
		return p.EntryPrice
	}
	return p.mark
}

// UnrealizedPL is the profit if the position were closed at price.
func (p *Position) UnrealizedPL(price float64) float64 {
	return pnl(p.Action, p.Quantity, p.EntryPrice, price)
}

// BookValue is what the position contributes to equity at price: the
// committed notional plus unrealized profit. For longs this is qty*price;
// for shorts qty*(2*entry-price).
func (p *Position) BookValue(price float64) float64 {
	return closeCredit(p.Action, p.Quantity, p.EntryPrice, price)
}

// Duration is exit minus entry for closed positions.
func (p *Position) Duration() time.Duration {
	if p.EntryTime.IsZero() || p.ExitTime.IsZero() {
		return 0
	}
	return p.ExitTime.Sub(p.EntryTime)
}
