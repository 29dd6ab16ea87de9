package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Backtest trading strategies against historical bars",
	Long: `Trader replays historical price bars through a trading strategy and
reports how it would have performed.

It provides tools for:
  - Running single backtests and parallel parameter sweeps
  - Listing, inspecting and comparing stored results
  - Converting and checking historical bar data
  - Managing strategy definitions and configuration`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		cfg = c
		logger = logging.New(c.Log.Level, c.Log.Format, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}
