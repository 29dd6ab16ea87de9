package strategies

import (
	"context"

	"github.com/rustyeddy/backtester/market"
)

// Noop always holds.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Predict(ctx context.Context, snap market.Snapshot) (market.Signal, error) {
	return market.HoldSignal(), nil
}
