package market

import (
	"fmt"
	"strings"
)

type Action int

const (
	Hold Action = iota
	Buy
	Sell
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Tradable reports whether the action opens a position.
func (a Action) Tradable() bool {
	return a == Buy || a == Sell
}

// ParseAction accepts BUY, SELL or HOLD in any case.
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	case "HOLD", "":
		return Hold, nil
	default:
		return Hold, fmt.Errorf("unknown action %q", s)
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Signal is what a strategy emits for one snapshot.
//
// Quantity is optional. Zero lets the order translator size the position
// with the fixed 1% risk policy. A positive value replaces that sizing: the
// strategy picks its own size, which is still held to the 10% notional cap
// and bracketed by the policy's stop and target. Subprocess strategies can
// set it through their "quantity" field.
type Signal struct {
	Symbol     string  `json:"symbol"`
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Quantity   float64 `json:"quantity,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// HoldSignal is the do-nothing signal.
func HoldSignal() Signal {
	return Signal{Action: Hold}
}
