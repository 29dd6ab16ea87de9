package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/journal"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run one strategy over a historical window",
	Long: `Backtest replays the configured historical bars through a strategy
and prints the resulting performance. The result is saved to the configured
journal.

Builtin strategies:
  - noop: always holds (baseline)
  - open-once: opens a single position on first sight of its symbol
  - ema-cross: fast/slow moving average crossover

Example:
  trader backtest -s ema-cross --start 2024-01-01 --end 2024-06-30 --symbols EURUSD,GBPUSD`,
	RunE: runBacktest,
}

var (
	btStrategy   string
	btStart      string
	btEnd        string
	btCapital    float64
	btSymbols    string
	btInterval   string
	btCloseAtEnd bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "", "strategy id (required)")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "window start, YYYY-MM-DD or RFC3339 (required)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "window end, YYYY-MM-DD or RFC3339 (required)")
	backtestCmd.Flags().Float64VarP(&btCapital, "capital", "b", 0, "initial capital (default from config)")
	backtestCmd.Flags().StringVar(&btSymbols, "symbols", "", "comma separated symbols (default from config)")
	backtestCmd.Flags().StringVar(&btInterval, "interval", "", "bar interval, e.g. H1 (default from config)")
	backtestCmd.Flags().BoolVar(&btCloseAtEnd, "close-at-end", false, "close open positions on the last bar")

	backtestCmd.MarkFlagRequired("strategy")
	backtestCmd.MarkFlagRequired("start")
	backtestCmd.MarkFlagRequired("end")
}

func backtestRequest(strategyID string) (backtest.Request, error) {
	start, err := parseDate(btStart)
	if err != nil {
		return backtest.Request{}, err
	}
	end, err := parseDate(btEnd)
	if err != nil {
		return backtest.Request{}, err
	}
	capital := btCapital
	if capital == 0 {
		capital = cfg.Backtest.InitialCapital
	}
	symbols := splitList(btSymbols)
	if len(symbols) == 0 {
		symbols = cfg.Backtest.Symbols
	}
	return backtest.Request{
		StrategyID:     strategyID,
		Start:          start,
		End:            end,
		InitialCapital: capital,
		Symbols:        symbols,
		Interval:       btInterval,
	}, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	req, err := backtestRequest(btStrategy)
	if err != nil {
		return err
	}

	sink, closer, err := newSink()
	if err != nil {
		return err
	}
	defer closer.Close()

	eng, err := newEngine(sink)
	if err != nil {
		return err
	}
	if btCloseAtEnd {
		eng.Options.CloseAtEnd = true
	}

	res, err := eng.Run(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	journal.PrintResult(cmd.OutOrStdout(), res)
	return nil
}
