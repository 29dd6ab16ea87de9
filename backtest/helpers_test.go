package backtest

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/backtester/history"
	"github.com/rustyeddy/backtester/internal/logging"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategies"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// series builds hourly bars from closes, with open/high/low equal to close.
func series(sym string, closes ...float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Symbol: sym,
			Time:   t0.Add(time.Duration(i) * time.Hour),
			Open:   c, High: c, Low: c, Close: c,
			Volume: 100,
		}
	}
	return bars
}

func constant(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func linear(n int, from, to float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + (to-from)*float64(i)/float64(n-1)
	}
	return out
}

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.1 + 0.01*math.Sin(float64(i)/8)
	}
	return out
}

func window(n int) (time.Time, time.Time) {
	return t0, t0.Add(time.Duration(n-1) * time.Hour)
}

// scripted emits one signal per tick from a fixed list, then holds.
type scripted struct {
	signals []market.Signal
	n       int
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Reset() { s.n = 0 }

func (s *scripted) Predict(ctx context.Context, snap market.Snapshot) (market.Signal, error) {
	defer func() { s.n++ }()
	if s.n < len(s.signals) {
		return s.signals[s.n], nil
	}
	return market.HoldSignal(), nil
}

type memorySink struct {
	mu      sync.Mutex
	results []*Result
	err     error
}

func (m *memorySink) Save(ctx context.Context, r *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return m.err
}

func newTestEngine(t *testing.T, data map[string][]market.Bar) (*Engine, *strategies.Registry, *memorySink) {
	t.Helper()
	mem := history.NewMemory()
	for sym, bars := range data {
		mem.Add(sym, "H1", bars...)
	}
	reg := strategies.NewRegistry(logging.Discard())
	sink := &memorySink{}
	return NewEngine(mem, reg, sink, logging.Discard()), reg, sink
}
