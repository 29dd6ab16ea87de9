package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/market"
)

// EMACross trades fast/slow moving average crossovers on bar closes.
//   - Bull cross (fast moves above slow) emits BUY
//   - Bear cross (fast moves below slow) emits SELL
//   - Optional ADX and ATR floors suppress signals in flat markets
//
// Each symbol keeps its own indicators. When several symbols cross on the
// same tick the first in symbol order wins.
type EMACross struct {
	*EMACrossConfig

	state map[string]*crossState
}

type EMACrossConfig struct {
	FastPeriod int     `json:"fast-period"` // 10
	SlowPeriod int     `json:"slow-period"` // 30
	MA         string  `json:"ma"`          // "ema" or "sma"
	Symbol     string  `json:"symbol"`      // empty trades every symbol
	Confidence float64 `json:"confidence"`  // 0.75

	ADXPeriod int     `json:"adx-period"` // 14
	MinADX    float64 `json:"min-adx"`    // 0 disables
	ATRPeriod int     `json:"atr-period"` // 14
	MinATR    float64 `json:"min-atr"`    // 0 disables
}

type crossState struct {
	fast indicators.Indicator
	slow indicators.Indicator
	adx  *indicators.ADX
	atr  *indicators.ATR

	lastDiff     float64
	haveLastDiff bool
}

func EMACrossConfigDefaults() *EMACrossConfig {
	return &EMACrossConfig{
		FastPeriod: 10,
		SlowPeriod: 30,
		MA:         "ema",
		Confidence: 0.75,
		ADXPeriod:  14,
		ATRPeriod:  14,
	}
}

// NewEMACrossFromParams is the registry factory for "ema-cross".
func NewEMACrossFromParams(p Params) (Strategy, error) {
	d := EMACrossConfigDefaults()
	cfg := &EMACrossConfig{
		FastPeriod: p.Int("fast", d.FastPeriod),
		SlowPeriod: p.Int("slow", d.SlowPeriod),
		MA:         p.String("ma", d.MA),
		Symbol:     market.NormalizeSymbol(p.String("symbol", "")),
		Confidence: p.Float("confidence", d.Confidence),
		ADXPeriod:  p.Int("adx_period", d.ADXPeriod),
		MinADX:     p.Float("min_adx", 0),
		ATRPeriod:  p.Int("atr_period", d.ATRPeriod),
		MinATR:     p.Float("min_atr", 0),
	}
	return NewEMACross(cfg)
}

func NewEMACross(cfg *EMACrossConfig) (*EMACross, error) {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 {
		return nil, fmt.Errorf("ema-cross: periods must be positive (fast=%d slow=%d)", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("ema-cross: fast period %d must be below slow period %d", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if cfg.MA != "ema" && cfg.MA != "sma" {
		return nil, fmt.Errorf("ema-cross: unknown moving average %q", cfg.MA)
	}
	if cfg.ADXPeriod <= 0 {
		cfg.ADXPeriod = 14
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = 14
	}
	return &EMACross{
		EMACrossConfig: cfg,
		state:          make(map[string]*crossState),
	}, nil
}

func (s *EMACross) Name() string { return "ema-cross" }

func (s *EMACross) Reset() {
	s.state = make(map[string]*crossState)
}

func (s *EMACross) Predict(ctx context.Context, snap market.Snapshot) (market.Signal, error) {
	out := market.HoldSignal()
	for _, sym := range snap.Symbols() {
		if s.Symbol != "" && sym != s.Symbol {
			continue
		}
		q := snap[sym]
		action, reason := s.update(sym, market.Bar{
			Symbol: sym,
			Time:   q.Time,
			Open:   q.Open,
			High:   q.High,
			Low:    q.Low,
			Close:  q.Close,
			Volume: q.Volume,
		})
		// keep feeding every symbol, but only the first cross is reported
		if action.Tradable() && !out.Action.Tradable() {
			out = market.Signal{
				Symbol:     sym,
				Action:     action,
				Confidence: s.Confidence,
				Reason:     reason,
			}
		}
	}
	return out, nil
}

func (s *EMACross) update(sym string, b market.Bar) (market.Action, string) {
	st, ok := s.state[sym]
	if !ok {
		st = &crossState{
			fast: indicators.New(s.MA, s.FastPeriod),
			slow: indicators.New(s.MA, s.SlowPeriod),
			adx:  indicators.NewADX(s.ADXPeriod),
			atr:  indicators.NewATR(s.ATRPeriod),
		}
		s.state[sym] = st
	}

	st.fast.Update(b)
	st.slow.Update(b)
	st.adx.Update(b)
	st.atr.Update(b)

	// Wait until both averages are warmed up.
	if !st.fast.Ready() || !st.slow.Ready() {
		return market.Hold, ""
	}

	diff := st.fast.Value() - st.slow.Value()
	if !st.haveLastDiff {
		st.lastDiff = diff
		st.haveLastDiff = true
		return market.Hold, ""
	}

	bullCross := diff > 0 && st.lastDiff <= 0
	bearCross := diff < 0 && st.lastDiff >= 0
	st.lastDiff = diff

	if !bullCross && !bearCross {
		return market.Hold, ""
	}
	if s.MinADX > 0 && (!st.adx.Ready() || st.adx.Value() < s.MinADX) {
		return market.Hold, ""
	}
	if s.MinATR > 0 && (!st.atr.Ready() || st.atr.Value() < s.MinATR) {
		return market.Hold, ""
	}

	if bullCross {
		return market.Buy, "BullCross"
	}
	return market.Sell, "BearCross"
}
