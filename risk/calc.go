package risk

import "math"

// PlannedRisk is the cash lost when quantity entered at entry is stopped
// out at stop. Direction does not matter.
func PlannedRisk(quantity, entry, stop float64) float64 {
	return quantity * math.Abs(entry-stop)
}

// RR is the reward to risk ratio of a bracket, 0 when the stop sits on the
// entry.
func RR(entry, stop, takeProfit float64) float64 {
	d := math.Abs(entry - stop)
	if d == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / d
}

// RiskPct is plannedRisk as a fraction of cash, +Inf when there is no cash.
func RiskPct(plannedRisk, cash float64) float64 {
	if cash <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / cash
}

// StopPips converts the entry to stop distance into pips.
func StopPips(entry, stop float64, pipLocation int) float64 {
	return math.Abs(entry-stop) / math.Pow10(pipLocation)
}

// PlannedRisk is the cash at risk between the order price and its stop.
func (o Order) PlannedRisk() float64 {
	return PlannedRisk(o.Quantity, o.Price, o.StopLoss)
}

// RR is the order's reward to risk ratio.
func (o Order) RR() float64 {
	return RR(o.Price, o.StopLoss, o.TakeProfit)
}
