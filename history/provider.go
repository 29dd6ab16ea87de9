// Package history provides historical bar data to the backtest engine.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// Provider returns the bars for symbol at interval whose timestamps fall in
// [start, end]. A zero start or end leaves that side open. No data is not
// an error: implementations return an empty slice.
type Provider interface {
	GetHistoricalBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Bar, error)
}

// New builds a provider by source name: "csv", "parquet", "memory" or
// "oanda". The oanda source ignores dir and reads its credentials from the
// environment.
func New(source, dir string) (Provider, error) {
	switch source {
	case "csv":
		return NewCSVDir(dir), nil
	case "parquet":
		return NewParquetDir(dir), nil
	case "memory":
		return NewMemory(), nil
	case "oanda":
		o, err := NewOANDAFromEnv()
		if err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("history: unknown data source %q", source)
	}
}

// Memory serves bars held in memory. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	bars map[string][]market.Bar // key: SYMBOL|interval
}

func NewMemory() *Memory {
	return &Memory{bars: make(map[string][]market.Bar)}
}

// Add appends bars for symbol at interval, keeping them time ordered.
func (m *Memory) Add(symbol, interval string, bars ...market.Bar) {
	symbol = market.NormalizeSymbol(symbol)
	k := memKey(symbol, interval)

	m.mu.Lock()
	defer m.mu.Unlock()
	all := append(m.bars[k], bars...)
	for i := range all {
		all[i].Symbol = symbol
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Time.Before(all[j].Time) })
	m.bars[k] = all
}

func (m *Memory) GetHistoricalBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []market.Bar
	for _, b := range m.bars[memKey(market.NormalizeSymbol(symbol), interval)] {
		if inRange(b.Time, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func memKey(symbol, interval string) string {
	return symbol + "|" + interval
}

// inRange reports whether t is within [from, to]; zero bounds are open.
func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
