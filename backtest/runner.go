package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/risk"
	"github.com/rustyeddy/backtester/sim"
	"github.com/rustyeddy/backtester/strategies"
)

// Runner replays one timeline through one strategy. It owns the ledger and
// equity accumulator for the run; nothing it mutates is shared, so a Runner
// must not be reused concurrently.
type Runner struct {
	Strategy strategies.Strategy
	Timeline *Timeline
	Capital  float64
	Options  Options
	Logger   *slog.Logger

	ledger *sim.Ledger
	acc    *metrics.Accumulator
}

// Outcome is what a finished replay produced.
type Outcome struct {
	Report      metrics.Report
	Trades      []sim.Position
	EquityCurve []metrics.EquityPoint
	Ticks       int
	OracleFails int
	Rejected    int
}

// Run processes every tick in order. For each tick it builds the snapshot,
// closes positions whose stop or target was crossed, asks the strategy for a
// signal, applies an accepted signal, and records equity. The only errors
// are a missing collaborator and ctx cancellation.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	if r.Strategy == nil {
		return nil, errors.New("backtest: strategy is required")
	}
	if r.Timeline == nil {
		return nil, errors.New("backtest: timeline is required")
	}
	if r.Capital <= 0 {
		return nil, fmt.Errorf("%w: initial capital must be positive", ErrInvalidRequest)
	}
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	opts := r.Options.withDefaults()

	r.ledger = sim.NewLedger(r.Capital)
	r.acc = metrics.NewAccumulator(r.Capital)
	out := &Outcome{}

	last := len(r.Timeline.Times) - 1
	for i, ts := range r.Timeline.Times {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest canceled at %s: %w", ts.Format(time.RFC3339), err)
		}

		snap := r.Timeline.Snapshot(ts, opts.SpreadHalf)
		if len(snap) == 0 {
			continue
		}
		out.Ticks++

		for _, p := range r.ledger.Update(snap, ts) {
			log.Debug("position closed", "symbol", p.Symbol, "reason", p.Reason,
				"exit", p.ExitPrice, "pnl", p.PnL, "time", ts)
		}

		sig, err := predict(ctx, r.Strategy, snap)
		if err != nil {
			out.OracleFails++
			log.Warn("strategy failed, holding", "strategy", r.Strategy.Name(), "time", ts, "error", err)
			sig = market.HoldSignal()
		}

		if err := r.apply(opts, sig, snap, ts, log); err != nil {
			out.Rejected++
			log.Debug("signal rejected", "symbol", sig.Symbol, "action", sig.Action, "time", ts, "error", err)
		}

		if opts.CloseAtEnd && i == last {
			for _, p := range r.ledger.CloseAll(ts, sim.ReasonEndOfData) {
				log.Debug("position closed", "symbol", p.Symbol, "reason", p.Reason,
					"exit", p.ExitPrice, "pnl", p.PnL, "time", ts)
			}
		}

		pt := r.acc.Record(ts, r.ledger.MarkToMarket(snap), r.ledger.Cash())

		if opts.ProgressEvery > 0 && out.Ticks%opts.ProgressEvery == 0 {
			log.Info("backtest progress", "tick", out.Ticks, "of", len(r.Timeline.Times),
				"time", ts, "equity", pt.Equity)
		}
	}

	out.Trades = r.ledger.TradeLog()
	out.EquityCurve = r.acc.Curve()
	out.Report = metrics.Compute(r.Capital, out.EquityCurve, r.acc.Returns(), out.Trades)
	return out, nil
}

// Ledger exposes the run's ledger after Run, for inspection.
func (r *Runner) Ledger() *sim.Ledger { return r.ledger }

// apply realizes an accepted signal. A signal at or under the confidence
// threshold, or a HOLD, does nothing. An order the translator rejects
// leaves any existing position untouched. Otherwise an existing position
// in the symbol is closed at the same price and time before the new one
// opens.
func (r *Runner) apply(opts Options, sig market.Signal, snap market.Snapshot, ts time.Time, log *slog.Logger) error {
	// written so a NaN confidence never counts as exceeding the threshold
	if !sig.Action.Tradable() || !(sig.Confidence > ConfidenceThreshold) {
		return nil
	}

	sym := market.NormalizeSymbol(sig.Symbol)
	if sym == "" {
		if len(snap) != 1 {
			return fmt.Errorf("%w: signal has no symbol", risk.ErrInvalidOrder)
		}
		sym = snap.Symbols()[0]
	}
	q, ok := snap[sym]
	if !ok {
		return fmt.Errorf("%w: no quote for %s at this tick", risk.ErrInvalidOrder, sym)
	}
	sig.Symbol = sym

	order, err := risk.Translate(risk.DefaultPolicy(), sig, q.Close, r.ledger.Cash())
	if err != nil {
		return err
	}
	order.Time = ts

	if _, open := r.ledger.Position(sym); open {
		p, err := r.ledger.Close(sym, q.Close, ts, sim.ReasonReversal)
		if err != nil {
			return err
		}
		log.Debug("position closed", "symbol", sym, "reason", p.Reason, "exit", p.ExitPrice, "pnl", p.PnL, "time", ts)
	}

	p, err := r.ledger.Open(order, ts)
	if err != nil {
		return err
	}
	log.Debug("position opened", "symbol", sym, "action", p.Action, "qty", p.Quantity,
		"entry", p.EntryPrice, "stop", p.StopLoss, "take", p.TakeProfit, "time", ts)
	return nil
}

// predict calls the strategy with a private copy of the snapshot and turns
// errors and panics into ErrOracle.
func predict(ctx context.Context, s strategies.Strategy, snap market.Snapshot) (sig market.Signal, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %s panicked: %v", strategies.ErrOracle, s.Name(), rec)
		}
	}()

	sig, err = s.Predict(ctx, maps.Clone(snap))
	if err != nil && !errors.Is(err, strategies.ErrOracle) {
		err = fmt.Errorf("%w: %s: %w", strategies.ErrOracle, s.Name(), err)
	}
	if err == nil && !(sig.Confidence >= 0 && sig.Confidence <= 1) {
		err = fmt.Errorf("%w: %s: confidence %v out of range", strategies.ErrOracle, s.Name(), sig.Confidence)
	}
	return sig, err
}
