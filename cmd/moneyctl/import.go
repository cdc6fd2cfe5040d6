package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"moneytrack/internal/services"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from files",
	}

	csvCmd := &cobra.Command{
		Use:   "csv <file>",
		Short: "Import a CSV file with Account, Date and Amount columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return importFile(cmd, args[0], func(f *os.File) (services.ImportSummary, error) {
				return app.Data.ImportCSV(cmd.Context(), f)
			})
		},
	}

	ofxCmd := &cobra.Command{
		Use:   "ofx <file>",
		Short: "Import an OFX or QFX statement into an account",
		Long: `Import a bank or credit card statement exported as OFX or QFX.

Examples:
  moneyctl import ofx --account Checking ~/Downloads/statement.qfx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, _ := cmd.Flags().GetString("account")
			return importFile(cmd, args[0], func(f *os.File) (services.ImportSummary, error) {
				return app.Data.ImportOFX(cmd.Context(), f, account)
			})
		},
	}
	ofxCmd.Flags().StringP("account", "a", "", "account receiving the transactions")
	_ = ofxCmd.MarkFlagRequired("account")

	cmd.AddCommand(csvCmd, ofxCmd)
	return cmd
}

func importFile(cmd *cobra.Command, path string, load func(*os.File) (services.ImportSummary, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	summary, err := load(f)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary.Message)
	if summary.AccountsCreated > 0 || summary.Transfers > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Accounts created: %d, transfers linked: %d\n", summary.AccountsCreated, summary.Transfers)
	}
	return nil
}
