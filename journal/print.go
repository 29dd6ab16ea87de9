package journal

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rustyeddy/backtester/backtest"
)

// PrintResult writes a text summary of a finished run.
func PrintResult(w io.Writer, res *backtest.Result) {
	PrintBacktestRun(w, NewBacktestRun(res))
}

func PrintBacktestRun(w io.Writer, r BacktestRun) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	fmt.Fprintf(w, "Strategy:      %s\n", r.StrategyID)
	fmt.Fprintf(w, "Symbols:       %s\n", strings.Join(r.Symbols, ", "))
	if len(r.Dropped) > 0 {
		fmt.Fprintf(w, "Dropped:       %s (no data)\n", strings.Join(r.Dropped, ", "))
	}
	fmt.Fprintf(w, "Interval:      %s\n", r.Interval)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Ticks:         %d\n", r.Ticks)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Risk Policy")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Risk per Trade: %s\n", Pct(r.RiskPct))
	fmt.Fprintf(w, "Stop Loss:     %.1f pips (mean)\n", r.StopPips)
	fmt.Fprintf(w, "Risk/Reward:   %.2f\n", r.RR)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.TotalTrades)
	fmt.Fprintf(w, "Wins:          %d\n", r.WinningTrades)
	fmt.Fprintf(w, "Losses:        %d\n", r.LosingTrades)
	fmt.Fprintf(w, "Win Rate:      %s\n", Pct(r.WinRate))
	fmt.Fprintf(w, "Avg Duration:  %.1f h\n", r.AvgTradeDuration)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %s\n", Money(r.InitialCapital))
	fmt.Fprintf(w, "End Balance:   %s\n", Money(r.FinalCapital))
	fmt.Fprintf(w, "Net P/L:       %s\n", Money(r.TotalPnL))
	fmt.Fprintf(w, "Return:        %s\n", Pct(r.TotalReturn))
	fmt.Fprintf(w, "Profit Factor: %s\n", FormatProfitFactor(r.ProfitFactor))
	fmt.Fprintf(w, "Sharpe Ratio:  %.2f\n", r.SharpeRatio)
	fmt.Fprintf(w, "Max Drawdown:  %s\n", Pct(r.MaxDrawdown))

	if len(r.MonthlyReturns) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Monthly Returns")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, m := range r.MonthlyReturns {
			fmt.Fprintf(w, "%s:       %s\n", m.Month, Pct(m.Return))
		}
	}
}
