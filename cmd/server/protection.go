package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/askpay/forexsignals/internal/domain"
	"github.com/askpay/forexsignals/internal/modules/protection"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	protectionValue      float64
	protectionMultiplier float64
	protectionLevels     int
	protectionCurrency   string
	protectionSpread     float64
	protectionFormat     string
)

var protectionCmd = &cobra.Command{
	Use:   "protection",
	Short: "Project protection levels for a starting operation value",
	Long: `Projects the operation value, accumulated loss, required capital and net
profit for each protection level.

Example usage:
  server protection                                  # 10, x2, 3 levels
  server protection --value 25 --multiplier 2.2 --levels 5
  server protection --spread 0.01 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := protection.Input{
			Value:         decimal.NewFromFloat(protectionValue),
			Multiplier:    decimal.NewFromFloat(protectionMultiplier),
			Levels:        protectionLevels,
			Currency:      protectionCurrency,
			IncludeSpread: protectionSpread > 0,
			Spread:        decimal.NewFromFloat(protectionSpread),
		}

		result, err := protection.Calculate(in)
		if err != nil {
			return err
		}

		if protectionFormat == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		return printProtection(cmd.OutOrStdout(), result)
	},
}

func init() {
	defaults := protection.DefaultInput()
	protectionCmd.Flags().Float64Var(&protectionValue, "value", defaults.Value.InexactFloat64(), "Operation value of the first level")
	protectionCmd.Flags().Float64Var(&protectionMultiplier, "multiplier", defaults.Multiplier.InexactFloat64(), "Multiplier applied after each loss")
	protectionCmd.Flags().IntVar(&protectionLevels, "levels", defaults.Levels, "Number of levels to project")
	protectionCmd.Flags().StringVar(&protectionCurrency, "currency", defaults.Currency, "ISO currency code for display")
	protectionCmd.Flags().Float64Var(&protectionSpread, "spread", 0, "Spread ratio per operation (0 disables)")
	protectionCmd.Flags().StringVar(&protectionFormat, "format", "table", "Output format: table, json")
}

func printProtection(out io.Writer, result *protection.Result) error {
	cur := result.Input.Currency
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tVALUE\tACCUMULATED\tSPREAD\tNET PROFIT\tRISK")
	for _, l := range result.Levels {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			l.Level,
			domain.FormatMoney(l.Value, cur),
			domain.FormatMoney(l.Accumulated, cur),
			l.Spread.StringFixed(4),
			domain.FormatMoney(l.NetProfit, cur),
			l.Risk,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats := result.Statistics
	fmt.Fprintf(out, "\nTotal required capital: %s\n", domain.FormatMoney(stats.TotalRequiredCapital, cur))
	fmt.Fprintf(out, "Largest operation:      %s\n", domain.FormatMoney(stats.LargestOperation, cur))
	fmt.Fprintf(out, "Loss sequence chance:   %s%%\n", stats.LossSequenceProbability.StringFixed(2))

	for _, a := range result.Alerts {
		fmt.Fprintf(out, "[%s] %s: %s\n", a.Severity, a.Title, a.Message)
	}
	return nil
}
