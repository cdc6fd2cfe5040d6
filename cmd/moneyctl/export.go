package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all transactions",
	}
	cmd.PersistentFlags().StringP("output", "o", "", "output file (default: generated name, - for stdout)")

	cmd.AddCommand(
		exportFormatCmd("csv", "Export transactions as CSV", func(ctx context.Context, w io.Writer) error {
			return app.Data.ExportCSV(ctx, w)
		}),
		exportFormatCmd("xlsx", "Export transactions as an Excel workbook", func(ctx context.Context, w io.Writer) error {
			return app.Data.ExportXLSX(ctx, w)
		}),
	)
	return cmd
}

func exportFormatCmd(format, short string, write func(context.Context, io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   format,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString("output")
			if output == "-" {
				return write(cmd.Context(), cmd.OutOrStdout())
			}
			if output == "" {
				output = strings.TrimSuffix(app.Data.ExportName(), ".db") + "." + format
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := write(cmd.Context(), f); err != nil {
				f.Close()
				_ = os.Remove(output)
				return fmt.Errorf("export %s: %w", format, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
			return nil
		},
	}
}
