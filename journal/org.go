package journal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/backtester/backtest"
)

var orgFuncs = template.FuncMap{
	"money": Money,
	"pct":   Pct,
	"join":  strings.Join,
	"date":  func(t time.Time) string { return t.Format("2006-01-02") },
	"pf":    FormatProfitFactor,
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var orgTemplate = template.Must(template.New("backtest").Funcs(orgFuncs).Parse(BacktestOrgTemplate))

// WriteOrg renders run as an Org-mode entry.
func WriteOrg(w io.Writer, run BacktestRun) error {
	return orgTemplate.Execute(w, run)
}

// Org is a backtest.Sink writing <Dir>/<run_id>.org.
type Org struct {
	Dir string
}

func (o Org) Save(ctx context.Context, res *backtest.Result) error {
	var buf bytes.Buffer
	if err := WriteOrg(&buf, NewBacktestRun(res)); err != nil {
		return err
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(o.Dir, res.RunID+".org"), buf.Bytes(), 0o644)
}

// FormatTradeOrg renders a trade as an Org-mode block with the facts in a
// PROPERTIES drawer and empty review headings.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s %s (%s)\n", t.Symbol, t.Action, shortID(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":RUN_ID: %s\n", t.RunID)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":ACTION: %s\n", t.Action)
	fmt.Fprintf(&b, ":QUANTITY: %.2f\n", t.Quantity)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.5f\n", t.EntryPrice)
	fmt.Fprintf(&b, ":EXIT_PRICE: %.5f\n", t.ExitPrice)
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", t.OpenTime.UTC().Format(time.RFC3339))
	if !t.CloseTime.IsZero() {
		fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", t.CloseTime.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, ":REALIZED_PL: %s\n", Money(t.RealizedPL))
	fmt.Fprintf(&b, ":STATUS: %s\n", t.Status)
	if t.Reason != "" {
		fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	}
	b.WriteString(":END:\n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}

const BacktestOrgTemplate = `* BACKTEST: {{.StrategyID}} {{join .Symbols ","}} {{.Interval}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:STRATEGY:    {{.StrategyID}}
:INTERVAL:    {{.Interval}}
:SYMBOLS:     {{join .Symbols " "}}
{{- if .Dropped}}
:DROPPED:     {{join .Dropped " "}}
{{- end}}
:START_DATE:  {{date .Start}}
:END_DATE:    {{date .End}}
:START_BAL:   {{money .InitialCapital}}
:END_BAL:     {{money .FinalCapital}}
:NET_PL:      {{money .TotalPnL}}
:RETURN_PCT:  {{pct .TotalReturn}}
:MAX_DD_PCT:  {{pct .MaxDrawdown}}
:TRADES:      {{.TotalTrades}}
:WINS:        {{.WinningTrades}}
:LOSSES:      {{.LosingTrades}}
:WIN_RATE:    {{pct .WinRate}}
:PROFIT_FAC:  {{pf .ProfitFactor}}
:SHARPE:      {{printf "%.2f" .SharpeRatio}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter        | Value |
|------------------+-------|
| Stop (pips)      | {{printf "%.1f" .StopPips}} |
| R:R              | {{printf "%.2f" .RR}} |
| Risk per Trade % | {{pct .RiskPct}} |

** Performance Summary
- Net P/L:          *{{money .TotalPnL}}*
- Return:           *{{pct .TotalReturn}}*
- Max Drawdown:     *{{pct .MaxDrawdown}}*
- Win Rate:         *{{pct .WinRate}}*
- Profit Factor:    *{{pf .ProfitFactor}}*
- Sharpe Ratio:     *{{printf "%.2f" .SharpeRatio}}*
- Avg Trade (h):    *{{printf "%.1f" .AvgTradeDuration}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.WinningTrades}} |
| Losses  | {{.LosingTrades}} |
| Total   | {{.TotalTrades}} |
{{- if .MonthlyReturns}}

** Monthly Returns
| Month   | Return |
|---------+--------|
{{- range .MonthlyReturns}}
| {{.Month}} | {{pct .Return}} |
{{- end}}
{{- end}}
`
