package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/journal"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect stored backtest results",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSQLite()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(cmd.Context(), resStrategy)
		if err != nil {
			return err
		}
		return printRuns(cmd.OutOrStdout(), runs)
	},
}

var resultsShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show one run in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSQLite()
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := db.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if resOrg {
			return journal.WriteOrg(out, run)
		}
		journal.PrintBacktestRun(out, run)
		if resTrades {
			fmt.Fprintln(out)
			for i, t := range run.Trades {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprint(out, journal.FormatTradeOrg(t))
			}
		}
		return nil
	},
}

var resultsCompareCmd = &cobra.Command{
	Use:   "compare STRATEGY_ID...",
	Short: "Compare the latest run of each strategy",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSQLite()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.Compare(cmd.Context(), args)
		if err != nil {
			return err
		}
		return printRuns(cmd.OutOrStdout(), runs)
	},
}

var (
	resStrategy string
	resTrades   bool
	resOrg      bool
)

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(resultsListCmd, resultsShowCmd, resultsCompareCmd)

	resultsListCmd.Flags().StringVarP(&resStrategy, "strategy", "s", "", "only runs of this strategy")
	resultsShowCmd.Flags().BoolVar(&resTrades, "trades", false, "also print every trade")
	resultsShowCmd.Flags().BoolVar(&resOrg, "org", false, "print as an Org-mode entry")
}

func printRuns(w io.Writer, runs []journal.BacktestRun) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("Run", "Created", "Strategy", "Symbols", "Trades", "Win Rate", "Return", "Max DD", "Sharpe", "PF")
	for _, r := range runs {
		table.Append(
			r.RunID,
			r.Created.Format("2006-01-02 15:04"),
			r.StrategyID,
			strings.Join(r.Symbols, ","),
			strconv.Itoa(r.TotalTrades),
			journal.Pct(r.WinRate),
			journal.Pct(r.TotalReturn),
			journal.Pct(r.MaxDrawdown),
			fmt.Sprintf("%.2f", r.SharpeRatio),
			journal.FormatProfitFactor(r.ProfitFactor),
		)
	}
	return table.Render()
}
