package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moneytrack/internal/core"
)

// RecurringSchedulerConfig holds configuration for the recurring scheduler
type RecurringSchedulerConfig struct {
	// Interval is how often due templates are processed (default: 1h)
	Interval time.Duration

	// Today returns the processing date (default: core.Today)
	Today func() core.Date
}

// DefaultRecurringSchedulerConfig returns sensible defaults
func DefaultRecurringSchedulerConfig() RecurringSchedulerConfig {
	return RecurringSchedulerConfig{
		Interval: time.Hour,
		Today:    core.Today,
	}
}

// RecurringScheduler runs the recurring processor on a ticker.
type RecurringScheduler struct {
	processor *RecurringProcessor
	config    RecurringSchedulerConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	last    ProcessReport
}

func NewRecurringScheduler(processor *RecurringProcessor, config RecurringSchedulerConfig) *RecurringScheduler {
	defaults := DefaultRecurringSchedulerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Today == nil {
		config.Today = defaults.Today
	}
	return &RecurringScheduler{
		processor: processor,
		config:    config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (s *RecurringScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("recurring scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Recurring scheduler started", "interval", s.config.Interval)
	return nil
}

// Stop gracefully stops the scheduler and waits for the current pass.
func (s *RecurringScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Recurring scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Recurring scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return nil
}

// Run starts the scheduler and blocks until ctx is done.
func (s *RecurringScheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

// IsRunning returns whether the scheduler is currently running
func (s *RecurringScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastReport returns the report of the most recent pass.
func (s *RecurringScheduler) LastReport() ProcessReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *RecurringScheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Process immediately on startup
	s.runOnce(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *RecurringScheduler) runOnce(ctx context.Context) {
	report, err := s.processor.ProcessDue(ctx, s.config.Today())
	if err != nil {
		slog.ErrorContext(ctx, "Recurring pass failed", "error", err)
		return
	}
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
}
