package cmd

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/strategies"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run many backtests in parallel",
	Long: `Sweep runs one backtest per strategy id, plus one per fast/slow pair
when --fast and --slow are given (ema-cross variants). Every run gets its own
strategy instance and ledger.

Example:
  trader sweep --strategies noop,open-once --fast 5,8,13 --slow 21,34 \
    --start 2024-01-01 --end 2024-06-30 --workers 4`,
	RunE: runSweep,
}

var (
	swStrategies string
	swFast       []int
	swSlow       []int
	swWorkers    int
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVar(&swStrategies, "strategies", "", "comma separated strategy ids")
	sweepCmd.Flags().IntSliceVar(&swFast, "fast", nil, "ema-cross fast periods")
	sweepCmd.Flags().IntSliceVar(&swSlow, "slow", nil, "ema-cross slow periods")
	sweepCmd.Flags().IntVarP(&swWorkers, "workers", "w", 0, "parallel runs (default from config, then CPU count)")
	sweepCmd.Flags().StringVar(&btStart, "start", "", "window start, YYYY-MM-DD or RFC3339 (required)")
	sweepCmd.Flags().StringVar(&btEnd, "end", "", "window end, YYYY-MM-DD or RFC3339 (required)")
	sweepCmd.Flags().Float64VarP(&btCapital, "capital", "b", 0, "initial capital (default from config)")
	sweepCmd.Flags().StringVar(&btSymbols, "symbols", "", "comma separated symbols (default from config)")
	sweepCmd.Flags().StringVar(&btInterval, "interval", "", "bar interval (default from config)")

	sweepCmd.MarkFlagRequired("start")
	sweepCmd.MarkFlagRequired("end")
}

// gridDefinitions expands fast x slow into ema-cross definitions, skipping
// pairs where fast is not below slow.
func gridDefinitions(fast, slow []int) []strategies.Definition {
	var defs []strategies.Definition
	for _, f := range fast {
		for _, s := range slow {
			if f >= s {
				continue
			}
			defs = append(defs, strategies.Definition{
				ID:     fmt.Sprintf("ema-cross-%d-%d", f, s),
				Kind:   strategies.KindBuiltin,
				Name:   "ema-cross",
				Params: strategies.Params{"fast": f, "slow": s},
			})
		}
	}
	return defs
}

func runSweep(cmd *cobra.Command, args []string) error {
	sink, closer, err := newSink()
	if err != nil {
		return err
	}
	defer closer.Close()

	eng, err := newEngine(sink)
	if err != nil {
		return err
	}

	ids := splitList(swStrategies)
	for _, d := range gridDefinitions(swFast, swSlow) {
		if err := eng.Registry.Define(d); err != nil {
			return err
		}
		ids = append(ids, d.ID)
	}
	if len(ids) == 0 {
		return fmt.Errorf("nothing to sweep: give --strategies or --fast/--slow")
	}

	var jobs []backtest.Job
	for _, id := range ids {
		req, err := backtestRequest(id)
		if err != nil {
			return err
		}
		jobs = append(jobs, backtest.Job{Name: id, Request: req})
	}

	workers := swWorkers
	if workers == 0 {
		workers = cfg.Backtest.Workers
	}
	results, err := backtest.Sweep(cmd.Context(), eng, jobs, workers)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Strategy", "Trades", "Win Rate", "Return", "Max DD", "Sharpe", "PF", "Run / Error")
	for _, jr := range results {
		if jr.Err != nil {
			table.Append(jr.Job.Name, "-", "-", "-", "-", "-", "-", jr.Err.Error())
			continue
		}
		m := jr.Result.Metrics
		table.Append(
			jr.Job.Name,
			strconv.Itoa(m.TotalTrades),
			journal.Pct(m.WinRate),
			journal.Pct(m.TotalReturn),
			journal.Pct(m.MaxDrawdown),
			fmt.Sprintf("%.2f", m.SharpeRatio),
			journal.FormatProfitFactor(m.ProfitFactor),
			jr.Result.RunID,
		)
	}
	return table.Render()
}
