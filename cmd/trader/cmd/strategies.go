package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List strategy definitions",
	Long: `Strategies lists the builtin strategies and those defined in the
config file. Use --check to build each one, which surfaces bad params or
model files before a backtest does.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := newRegistry()
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		header := []any{"ID", "Kind", "Name / Path", "Params"}
		if stratCheck {
			header = append(header, "Status")
		}
		table.Header(header...)

		for _, d := range reg.Definitions() {
			target := d.Name
			if target == "" {
				target = d.Path
			}
			row := []any{d.ID, string(d.Kind), target, formatParams(d.Params)}
			if stratCheck {
				status := "ok"
				if _, err := reg.New(cmd.Context(), d.ID); err != nil {
					status = err.Error()
				}
				row = append(row, status)
			}
			table.Append(row...)
		}
		return table.Render()
	},
}

var stratCheck bool

func init() {
	rootCmd.AddCommand(strategiesCmd)
	strategiesCmd.Flags().BoolVar(&stratCheck, "check", false, "build every strategy and report errors")
}

func formatParams(p map[string]any) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return strings.Join(parts, " ")
}
