package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/backtester/market"
)

// OpenOnce emits a single BUY or SELL the first time it sees a bar for the
// configured symbol, then holds. It's meant as a wiring test.
type OpenOnce struct {
	Symbol     string
	Action     market.Action
	Confidence float64
	Quantity   float64

	opened bool
}

func NewOpenOnce(p Params) (Strategy, error) {
	action, err := market.ParseAction(p.String("action", "BUY"))
	if err != nil {
		return nil, fmt.Errorf("open-once: %w", err)
	}
	if !action.Tradable() {
		return nil, fmt.Errorf("open-once: action must be BUY or SELL")
	}
	return &OpenOnce{
		Symbol:     market.NormalizeSymbol(p.String("symbol", "EURUSD")),
		Action:     action,
		Confidence: p.Float("confidence", 0.9),
		Quantity:   p.Float("quantity", 0),
	}, nil
}

func (s *OpenOnce) Name() string { return "open-once" }

func (s *OpenOnce) Reset() { s.opened = false }

func (s *OpenOnce) Predict(ctx context.Context, snap market.Snapshot) (market.Signal, error) {
	if s.opened {
		return market.HoldSignal(), nil
	}
	if _, ok := snap[s.Symbol]; !ok {
		return market.HoldSignal(), nil
	}
	s.opened = true
	return market.Signal{
		Symbol:     s.Symbol,
		Action:     s.Action,
		Confidence: s.Confidence,
		Quantity:   s.Quantity,
		Reason:     "OpenOnce",
	}, nil
}
