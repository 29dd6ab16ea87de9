package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/history"
	"github.com/rustyeddy/backtester/market"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Convert and check historical bar data",
}

var dataConvertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert CSV bars to Parquet",
	Long: `Convert reads <in>/<SYMBOL>_<interval>.csv for every symbol and merges
the bars into <out>/<SYMBOL>/<interval>.parquet.

Example:
  trader data convert --in ./data --out ./parquet --symbols EURUSD,GBPUSD`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src := history.NewCSVDir(dataIn)
		dst := history.NewParquetDir(dataOut)
		interval := dataIntervalOrDefault()

		for _, sym := range dataSymbolsOrDefault() {
			bars, err := src.GetHistoricalBars(cmd.Context(), sym, interval, time.Time{}, time.Time{})
			if err != nil {
				return err
			}
			if len(bars) == 0 {
				logger.Warn("no bars to convert", "symbol", sym, "path", src.Path(sym, interval))
				continue
			}
			if err := dst.WriteBars(sym, interval, bars); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bars -> %s\n", sym, len(bars), dst.Path(sym, interval))
		}
		return nil
	},
}

var dataGapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Report missing bars per symbol",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := history.New(cfg.Data.Source, cfg.Data.Dir)
		if err != nil {
			return err
		}
		interval := dataIntervalOrDefault()
		step, err := market.IntervalDuration(interval)
		if err != nil {
			return err
		}

		series := make(map[string][]market.Bar)
		for _, sym := range dataSymbolsOrDefault() {
			sym = market.NormalizeSymbol(sym)
			bars, err := provider.GetHistoricalBars(cmd.Context(), sym, interval, time.Time{}, time.Time{})
			if err != nil {
				return err
			}
			series[sym] = bars
		}
		tl, err := backtest.Align(series, time.Time{}, time.Time{}, step)
		if err != nil {
			return err
		}
		printGaps(cmd.OutOrStdout(), tl, dataVerbose)
		return nil
	},
}

func printGaps(out io.Writer, tl *backtest.Timeline, verbose bool) {
	for _, sym := range tl.Symbols {
		tl.GapStats(sym).Print(out, sym)
		if n := tl.Duplicates[sym]; n > 0 {
			fmt.Fprintf(out, "     Duplicates: %d\n", n)
		}
		if n := tl.Invalid[sym]; n > 0 {
			fmt.Fprintf(out, "   Invalid Bars: %d\n", n)
		}
		if !verbose {
			continue
		}
		for _, g := range tl.Gaps(sym) {
			if g.Kind == market.GapMinor {
				continue
			}
			fmt.Fprintf(out, "  %s  %4d bars  %s\n", g.Start.Format(time.RFC3339), g.Len, g.Kind)
		}
	}
	for _, sym := range tl.Dropped {
		fmt.Fprintf(out, "---- %s: no bars ----\n", sym)
	}
}

var dataDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download candles from OANDA",
	Long: `Download fetches complete candles from the OANDA REST API and stores
them under --out as CSV (<SYMBOL>_<interval>.csv) or Parquet. The token is
read from OANDA_TOKEN and the server from OANDA_BASE_URL (practice by
default).

Example:
  OANDA_TOKEN=... trader data download --symbols EURUSD --start 2024-01-01 --end 2024-02-01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := history.NewOANDAFromEnv()
		if err != nil {
			return err
		}
		start, err := parseDate(dataStart)
		if err != nil {
			return err
		}
		var end time.Time
		if dataEnd != "" {
			if end, err = parseDate(dataEnd); err != nil {
				return err
			}
		}
		interval := dataIntervalOrDefault()

		for _, sym := range dataSymbolsOrDefault() {
			bars, err := src.GetHistoricalBars(cmd.Context(), sym, interval, start, end)
			if err != nil {
				return fmt.Errorf("%s: %w", sym, err)
			}
			path, err := storeBars(sym, interval, bars)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bars -> %s\n", sym, len(bars), path)
		}
		return nil
	},
}

func storeBars(symbol, interval string, bars []market.Bar) (string, error) {
	if dataFormat == "parquet" {
		dst := history.NewParquetDir(dataDir)
		return dst.Path(symbol, interval), dst.WriteBars(symbol, interval, bars)
	}

	path := history.NewCSVDir(dataDir).Path(symbol, interval)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := history.WriteCSV(f, bars); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

var (
	dataStart  string
	dataEnd    string
	dataDir    string
	dataFormat string

	dataIn       string
	dataOut      string
	dataSymbols  string
	dataInterval string
	dataVerbose  bool
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataConvertCmd, dataGapsCmd, dataDownloadCmd)

	dataCmd.PersistentFlags().StringVar(&dataSymbols, "symbols", "", "comma separated symbols (default from config)")
	dataCmd.PersistentFlags().StringVar(&dataInterval, "interval", "", "bar interval (default from config)")

	dataConvertCmd.Flags().StringVar(&dataIn, "in", "./data", "directory of CSV files")
	dataConvertCmd.Flags().StringVar(&dataOut, "out", "./parquet", "Parquet output directory")

	dataDownloadCmd.Flags().StringVar(&dataStart, "start", "", "first candle, YYYY-MM-DD or RFC3339 (required)")
	dataDownloadCmd.Flags().StringVar(&dataEnd, "end", "", "last candle (default now)")
	dataDownloadCmd.Flags().StringVar(&dataDir, "out", "./data", "output directory")
	dataDownloadCmd.Flags().StringVar(&dataFormat, "format", "csv", "csv or parquet")
	dataDownloadCmd.MarkFlagRequired("start")

	dataGapsCmd.Flags().BoolVarP(&dataVerbose, "verbose", "v", false, "list every weekend and suspicious gap")
}

func dataSymbolsOrDefault() []string {
	if s := splitList(dataSymbols); len(s) > 0 {
		return s
	}
	return cfg.Backtest.Symbols
}

func dataIntervalOrDefault() string {
	if dataInterval != "" {
		return dataInterval
	}
	return cfg.Data.Interval
}
