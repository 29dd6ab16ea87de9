// Package strategies provides the strategy oracle capability consumed by the
// replay loop, an explicit registry, and builtin, subprocess and model
// backed implementations.
package strategies

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rustyeddy/backtester/market"
)

var (
	// ErrOracle wraps any failure to produce a signal.
	ErrOracle = errors.New("strategy oracle failed")

	// ErrUnknownStrategy is returned when a registry has no definition for an id.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// Strategy maps a market snapshot to a trading signal. Predict is called once
// per tick, in timeline order, and may return an error; the caller treats
// any error as HOLD for that tick.
type Strategy interface {
	Name() string
	Predict(ctx context.Context, snap market.Snapshot) (market.Signal, error)
}

// Resetter is implemented by strategies that keep state across ticks. Reset
// is called before every run.
type Resetter interface {
	Reset()
}

// Func adapts a plain function to a Strategy.
type Func struct {
	ID string
	Fn func(ctx context.Context, snap market.Snapshot) (market.Signal, error)
}

func (f Func) Name() string { return f.ID }

func (f Func) Predict(ctx context.Context, snap market.Snapshot) (market.Signal, error) {
	return f.Fn(ctx, snap)
}

// Params are free-form strategy parameters, usually decoded from YAML.
type Params map[string]any

func (p Params) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f
		}
	}
	return def
}

func (p Params) Int(key string, def int) int {
	if _, ok := p[key]; !ok {
		return def
	}
	return int(p.Float(key, float64(def)))
}

func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
