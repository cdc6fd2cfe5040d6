// Package cli provides the initialization shared by the moneytrack binaries:
// environment and config loading, logging, and wiring of the store, the
// publisher and the services.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"moneytrack/internal/aiquery"
	"moneytrack/internal/amqp"
	"moneytrack/internal/backup"
	"moneytrack/internal/cache"
	"moneytrack/internal/config"
	"moneytrack/internal/log"
	"moneytrack/internal/recurring"
	"moneytrack/internal/services"
	"moneytrack/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	return SetupLoggerTo(os.Stdout, cfg, component)
}

// SetupLoggerTo is SetupLogger writing to out.
func SetupLoggerTo(out io.Writer, cfg *config.Config, component string) *log.Logger {
	lc := log.ConfigFromEnv(cfg.LogLevel, cfg.LogFormat, component)
	lc.Output = out
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads the .env file and the environment, then validates.
func LoadConfig() (*config.Config, error) {
	LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Options selects the optional parts of an App.
type Options struct {
	// Publisher connects to AMQP when AMQP_URL is set.
	Publisher bool
	// Backups creates the backup manager, with a GCS uploader when a
	// bucket is configured.
	Backups bool
	// AI builds the query service when AI is enabled.
	AI bool
}

// App holds the wired components of one process.
type App struct {
	Config       *config.Config
	Logger       *log.Logger
	Storage      *storage.SQLiteRepository
	Publisher    *amqp.Client
	Analytics    *services.AnalyticsService
	Transactions *services.TransactionService
	Recurring    *services.RecurringProcessor
	Backups      *backup.Manager
	Data         *services.DataService
	AI           *aiquery.Service
	// Caches expires analytics entries; StartCleanup is left to the caller.
	Caches *cache.Manager

	closers []func() error
}

// NewApp opens the store and wires the services. A failing AMQP broker
// degrades to local-only mode rather than failing startup.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, opts Options) (*App, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.SQLiteDBPath, err)
	}
	app := &App{Config: cfg, Logger: logger, Storage: repo}
	app.closers = append(app.closers, repo.Close)

	var publisher services.Publisher
	if opts.Publisher {
		app.Publisher = openPublisher(ctx, cfg, logger)
		if app.Publisher != nil {
			publisher = app.Publisher
			app.closers = append(app.closers, app.Publisher.Close)
		}
	}

	app.Analytics = services.NewAnalyticsService(repo, cfg.AnalyticsCacheTTL)
	app.Caches = cache.NewManager()
	app.Caches.Register(app.Analytics.Cache())
	app.closers = append(app.closers, func() error { app.Caches.Stop(); return nil })
	app.Transactions = services.NewTransactionService(repo, publisher, app.Analytics)
	app.Recurring = services.NewRecurringProcessor(repo, recurring.NewEngine(cfg.RecurringMaxCatchUp), publisher, app.Analytics)

	if opts.Backups {
		if err := app.initBackups(ctx); err != nil {
			_ = app.Close()
			return nil, err
		}
	}
	app.Data = services.NewDataService(repo, app.Backups, app.Analytics)

	if opts.AI && cfg.AIEnabled {
		model, err := aiquery.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.AIModel)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("initialize AI model: %w", err)
		}
		app.AI = aiquery.NewService(model, repo, cfg.AIResultLimit)
		logger.InfoContext(ctx, "AI queries enabled", "model", cfg.AIModel)
	}
	return app, nil
}

func openPublisher(ctx context.Context, cfg *config.Config, logger *log.Logger) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.InfoContext(ctx, "AMQP disabled, transactions will not be mirrored")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without mirroring", log.FieldError, err)
		return nil
	}
	logger.InfoContext(ctx, "AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

func (a *App) initBackups(ctx context.Context) error {
	var uploader backup.Uploader
	if a.Config.BackupGCSBucket != "" {
		gcs, err := backup.NewGCSUploader(ctx, a.Config.BackupGCSBucket, a.Config.BackupGCSPrefix)
		if err != nil {
			return fmt.Errorf("initialize backup uploader: %w", err)
		}
		uploader = gcs
		a.closers = append(a.closers, gcs.Close)
	}
	mgr, err := backup.NewManager(backup.Config{
		Enabled:    a.Config.BackupEnabled,
		Dir:        a.Config.BackupDir,
		Interval:   a.Config.BackupInterval,
		MaxBackups: a.Config.BackupMaxBackups,
	}, a.Storage, uploader)
	if err != nil {
		return err
	}
	a.Backups = mgr
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
