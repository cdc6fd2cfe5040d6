package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore database backups",
	}

	createCmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Snapshot the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			info, err := app.Backups.Create(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%.2f MB)\n", info.Filename, info.SizeMB)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backups, err := app.Backups.List()
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No backups in %s\n", app.Backups.Dir())
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILENAME\tCREATED\tSIZE (MB)")
			for _, b := range backups {
				fmt.Fprintf(w, "%s\t%s\t%.2f\n", b.Filename, b.Created.Format("2006-01-02 15:04:05"), b.SizeMB)
			}
			return w.Flush()
		},
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <filename>",
		Short: "Replace the database with a backup",
		Long: `Replace the database with a backup. The current state is saved first as a
pre_restore backup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pre, err := app.Backups.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s (previous state saved as %s)\n", args[0], pre.Filename)
			return nil
		},
	}

	cmd.AddCommand(createCmd, listCmd, restoreCmd)
	return cmd
}
