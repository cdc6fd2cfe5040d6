package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"moneytrack/internal/cli"
	"moneytrack/internal/config"
	"moneytrack/internal/log"
)

var (
	cfgFile string
	app     *cli.App

	rootCmd = &cobra.Command{
		Use:   "moneyctl",
		Short: "Manage a moneytrack ledger from the command line",
		Long: `moneyctl works directly on the moneytrack SQLite database: it runs the
recurring engine, imports and exports transactions, manages backups and
prints summary statistics.

Settings come from flags, MONEYTRACK_* environment variables, an optional
config file, and the same environment the server reads.`,
		SilenceUsage:       true,
		PersistentPreRunE:  initApp,
		PersistentPostRunE: closeApp,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./moneyctl.yaml if present)")
	rootCmd.PersistentFlags().String("db", "", "path to the SQLite database (default: SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(statsCmd())
}

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers viper settings over the server's environment config.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("moneyctl")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("MONEYTRACK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cli.LoadEnvFile()
	cfg := config.Load()
	if db := viper.GetString("db"); db != "" {
		cfg.SQLiteDBPath = db
	}
	cfg.LogLevel = viper.GetString("logging.level")
	cfg.LogFormat = viper.GetString("logging.format")
	if dir := viper.GetString("backup_dir"); dir != "" {
		cfg.BackupDir = dir
	}
	// The CLI never serves HTTP or mirrors.
	cfg.AIEnabled = false
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initApp(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLoggerTo(cmd.ErrOrStderr(), cfg, log.ComponentCLI)
	app, err = cli.NewApp(cmd.Context(), cfg, logger, cli.Options{Publisher: true, Backups: true})
	return err
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	err := app.Close()
	app = nil
	return err
}
