// Package backtest replays historical bars through a strategy against a
// simulated ledger and reports the resulting performance.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/backtester/history"
	"github.com/rustyeddy/backtester/internal/id"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategies"
)

// Sink persists finished results. Implementations must tolerate concurrent
// Save calls from parallel runs.
type Sink interface {
	Save(ctx context.Context, r *Result) error
}

// Request describes one run.
type Request struct {
	StrategyID     string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	Symbols        []string // default market.DefaultSymbols
	Interval       string   // default Options.Interval
}

// Validate checks the request before any data is fetched.
func (r Request) Validate() error {
	if r.StrategyID == "" {
		return fmt.Errorf("%w: strategy id is required", ErrInvalidRequest)
	}
	if r.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be positive, got %v", ErrInvalidRequest, r.InitialCapital)
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidRequest)
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidRequest,
			r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	return nil
}

// Engine wires the data provider, strategy registry and result sink
// together. An Engine holds no per-run state; each run gets its own ledger.
type Engine struct {
	Provider history.Provider
	Registry *strategies.Registry
	Sink     Sink // optional
	Logger   *slog.Logger
	Options  Options
}

func NewEngine(p history.Provider, reg *strategies.Registry, sink Sink, logger *slog.Logger) *Engine {
	return &Engine{
		Provider: p,
		Registry: reg,
		Sink:     sink,
		Logger:   logger,
		Options:  DefaultOptions(),
	}
}

func (e *Engine) log() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// RunBacktest runs strategyID over [start, end] for symbols.
func (e *Engine) RunBacktest(ctx context.Context, strategyID string, start, end time.Time, capital float64, symbols []string) (*Result, error) {
	return e.Run(ctx, Request{
		StrategyID:     strategyID,
		Start:          start,
		End:            end,
		InitialCapital: capital,
		Symbols:        symbols,
	})
}

// Run uses the registry's cached strategy instance, reset first. Callers
// running in parallel should use Sweep, which builds one instance per run.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if e.Registry == nil {
		return nil, errors.New("backtest: registry is required")
	}
	strat, err := e.Registry.Load(ctx, req.StrategyID)
	if err != nil {
		return nil, err
	}
	return e.RunWith(ctx, req, strat)
}

// RunWith runs req with an already built strategy.
func (e *Engine) RunWith(ctx context.Context, req Request, strat strategies.Strategy) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if e.Provider == nil {
		return nil, errors.New("backtest: provider is required")
	}
	if strat == nil {
		return nil, errors.New("backtest: strategy is required")
	}
	log := e.log().With("strategy", req.StrategyID)

	opts := e.Options.withDefaults()
	if req.Interval != "" {
		opts.Interval = req.Interval
	}
	interval, err := market.IntervalDuration(opts.Interval)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	symbols := normalizeSymbols(req.Symbols)

	series := make(map[string][]market.Bar, len(symbols))
	for _, sym := range symbols {
		bars, err := e.Provider.GetHistoricalBars(ctx, sym, opts.Interval, req.Start, req.End)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s: %w", sym, opts.Interval, err)
		}
		series[sym] = bars
	}

	tl, err := Align(series, req.Start, req.End, interval)
	if err != nil {
		return nil, err
	}
	for _, sym := range tl.Dropped {
		log.Warn("no data for symbol, dropped from run", "symbol", sym)
	}
	for _, sym := range tl.Symbols {
		if n := tl.Invalid[sym]; n > 0 {
			log.Warn("skipped invalid bars", "symbol", sym, "count", n)
		}
	}

	if rs, ok := strat.(strategies.Resetter); ok {
		rs.Reset()
	}

	log.Info("backtest started", "symbols", tl.Symbols, "interval", opts.Interval,
		"start", req.Start, "end", req.End, "ticks", tl.Len(), "capital", req.InitialCapital)

	runner := &Runner{
		Strategy: strat,
		Timeline: tl,
		Capital:  req.InitialCapital,
		Options:  opts,
		Logger:   log,
	}
	out, err := runner.Run(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:          id.New(),
		StrategyID:     req.StrategyID,
		Symbols:        tl.Symbols,
		Dropped:        tl.Dropped,
		Interval:       opts.Interval,
		Start:          req.Start,
		End:            req.End,
		InitialCapital: req.InitialCapital,
		Metrics:        out.Report,
		Trades:         out.Trades,
		EquityCurve:    out.EquityCurve,
		Ticks:          out.Ticks,
		Created:        time.Now().UTC(),
	}

	log.Info("backtest finished", "run", res.RunID, "trades", res.Metrics.TotalTrades,
		"final_equity", res.Metrics.FinalCapital, "return", res.Metrics.TotalReturn,
		"oracle_failures", out.OracleFails)

	if e.Sink != nil {
		if err := e.Sink.Save(ctx, res); err != nil {
			log.Error("saving backtest result", "run", res.RunID, "error", err)
		}
	}
	return res, nil
}

// normalizeSymbols uppercases, dedupes and defaults the requested symbols.
func normalizeSymbols(in []string) []string {
	if len(in) == 0 {
		in = market.DefaultSymbols
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = market.NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
