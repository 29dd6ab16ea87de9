package risk

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInsufficientCapital rejects an order the account cannot carry.
	ErrInsufficientCapital = errors.New("insufficient capital")

	// ErrInvalidOrder rejects an order with a malformed price or bracket.
	ErrInvalidOrder = errors.New("invalid order")
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    float64
	PlannedRiskPct float64
	PlannedRR      float64
	NotionalPct    float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Err folds the violations into a single error wrapping ErrInsufficientCapital
// or ErrInvalidOrder. Capital violations take precedence.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	kind := ErrInvalidOrder
	msgs := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		if v.Code == "NOTIONAL_TOO_HIGH" || v.Code == "NO_CAPITAL" {
			kind = ErrInsufficientCapital
		}
		msgs = append(msgs, v.Msg)
	}
	return fmt.Errorf("%w: %s", kind, strings.Join(msgs, "; "))
}

// Evaluate re-checks a sized order against the policy and available cash.
func Evaluate(p Policy, o Order, cash float64) Decision {
	p = p.withDefaults()
	d := Decision{Allowed: true}

	if cash <= 0 {
		d.add("NO_CAPITAL", fmt.Sprintf("cash %.2f must be positive", cash))
		return d
	}
	if !finitePositive(o.Price) {
		d.add("BAD_PRICE", fmt.Sprintf("price %v must be positive", o.Price))
		return d
	}
	if !finitePositive(o.Quantity) {
		d.add("NO_QUANTITY", fmt.Sprintf("quantity %v must be positive", o.Quantity))
		return d
	}
	if o.StopLoss == o.Price || o.StopLoss <= 0 {
		d.add("NO_STOP", "stop distance must be positive")
		return d
	}

	d.PlannedRisk = o.PlannedRisk()
	d.PlannedRiskPct = RiskPct(d.PlannedRisk, cash)
	d.PlannedRR = o.RR()
	d.NotionalPct = o.Notional() / cash

	// tolerate float noise from min(raw, cap) sizing
	if d.NotionalPct > p.MaxNotionalPct*(1+1e-9) {
		d.add("NOTIONAL_TOO_HIGH",
			fmt.Sprintf("notional %.2f%% of cash exceeds max %.2f%%",
				100*d.NotionalPct, 100*p.MaxNotionalPct))
	}
	return d
}

func finitePositive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}
