package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moneytrack/internal/core"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Materialize recurring transactions that are due",
		Long: `Run one pass of the recurring engine: every active template due on or
before the date produces its transactions and advances.

Examples:
  # Process everything due today
  moneyctl process

  # Catch up as of a given date
  moneyctl process --date 2025-06-30`,
		Args: cobra.NoArgs,
		RunE: runProcess,
	}
	cmd.Flags().String("date", "", "processing date YYYY-MM-DD (default: today)")
	return cmd
}

func runProcess(cmd *cobra.Command, _ []string) error {
	today := core.Today()
	if s, _ := cmd.Flags().GetString("date"); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			return err
		}
		today = d
	}

	report, err := app.Recurring.ProcessDue(cmd.Context(), today)
	if err != nil {
		return fmt.Errorf("process recurring templates: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processed %d occurrences from %d of %d templates as of %s, created %d transactions\n",
		report.Processed, report.Templates, report.Checked, report.Date, report.Transactions)
	if len(report.Expired) > 0 {
		fmt.Fprintf(out, "Deactivated expired templates: %v\n", report.Expired)
	}
	if len(report.Truncated) > 0 {
		fmt.Fprintf(out, "Catch-up limit reached for templates: %v\n", report.Truncated)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}
	if len(report.Errors) > 0 {
		return fmt.Errorf("%d templates failed", len(report.Errors))
	}
	return nil
}
