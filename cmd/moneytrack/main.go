package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"moneytrack/internal/cli"
	apphttp "moneytrack/internal/http"
	"moneytrack/internal/log"
	"moneytrack/internal/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("moneytrack stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger, cli.Options{Publisher: true, Backups: true, AI: true})
	if err != nil {
		return err
	}
	defer app.Close()

	app.Caches.StartCleanup(5 * time.Minute)

	svc := apphttp.Services{
		Storage:      app.Storage,
		Transactions: app.Transactions,
		Analytics:    app.Analytics,
		Recurring:    app.Recurring,
		Data:         app.Data,
		Backups:      app.Backups,
	}
	// A nil *aiquery.Service must stay a nil interface.
	if app.AI != nil {
		svc.AI = app.AI
	}
	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(log.ComponentHTTP),
	})

	scheduler := services.NewRecurringScheduler(app.Recurring, services.RecurringSchedulerConfig{
		Interval: cfg.RecurringInterval,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting moneytrack server", "port", cfg.Port, "database", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		return app.Backups.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
