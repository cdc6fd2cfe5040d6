package main

import (
	"context"
	"log/slog"
	"os"

	"moneytrack/internal/cli"
	"moneytrack/internal/log"
	"moneytrack/internal/services"
)

func main() {
	cfg, err := cli.LoadConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentRecurring)
	logger.Info("Starting recurring-worker")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	// Generated transactions are published so the mirror-worker picks them up.
	app, err := cli.NewApp(ctx, cfg, logger, cli.Options{Publisher: true})
	if err != nil {
		logger.Error("Failed to initialize", log.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringInterval,
		"max_catch_up", cfg.RecurringMaxCatchUp,
		"sqlite_db", cfg.SQLiteDBPath)

	scheduler := services.NewRecurringScheduler(app.Recurring, services.RecurringSchedulerConfig{
		Interval: cfg.RecurringInterval,
	})
	if err := scheduler.Run(ctx); err != nil {
		logger.Error("Recurring scheduler failed", log.FieldError, err)
		os.Exit(1)
	}

	last := scheduler.LastReport()
	logger.Info("Recurring-worker shutdown complete",
		"last_pass", last.Date.String(),
		"transactions_created", last.Transactions)
}
