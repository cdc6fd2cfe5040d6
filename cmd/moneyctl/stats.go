package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"moneytrack/internal/services"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print balance, income and spending statistics",
		Long: `Print the dashboard statistics for a date window.

Examples:
  moneyctl stats --from 2025-01-01 --to 2025-03-31
  moneyctl stats --account-types checking,credit --json`,
		Args: cobra.NoArgs,
		RunE: runStats,
	}
	cmd.Flags().String("from", "", "start date YYYY-MM-DD")
	cmd.Flags().String("to", "", "end date YYYY-MM-DD")
	cmd.Flags().StringSlice("account-types", nil, "account types to include")
	cmd.Flags().Int("top", 5, "number of top payees")
	cmd.Flags().Bool("json", false, "print the full report as JSON")
	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	types, _ := cmd.Flags().GetStringSlice("account-types")
	top, _ := cmd.Flags().GetInt("top")
	asJSON, _ := cmd.Flags().GetBool("json")

	f, err := services.ParseFilters(from, to, types)
	if err != nil {
		return err
	}
	report, err := app.Analytics.Report(cmd.Context(), f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	payees, err := app.Analytics.TopPayees(cmd.Context(), f, top)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Total balance\t%s\t\n", report.Stats.TotalBalance)
	fmt.Fprintf(w, "Income\t%s\t\n", report.Stats.MonthlyIncome)
	fmt.Fprintf(w, "Expenses\t%s\t\n", report.Stats.MonthlyExpenses)
	fmt.Fprintf(w, "Net\t%s\t\n", report.Stats.NetMonthly)
	if err := w.Flush(); err != nil {
		return err
	}

	if len(report.Categories) > 0 {
		fmt.Fprintln(out, "\nBy category")
		w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, c := range report.Categories {
			fmt.Fprintf(w, "  %s\t%s\n", c.Category, c.Total)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if len(payees) > 0 {
		fmt.Fprintln(out, "\nTop payees")
		w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, p := range payees {
			fmt.Fprintf(w, "  %s\t%s\n", p.Payee, p.Total)
		}
		return w.Flush()
	}
	return nil
}
