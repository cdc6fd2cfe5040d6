package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"moneytrack/internal/amqp"
	"moneytrack/internal/core"
	"moneytrack/internal/recurring"
	"moneytrack/internal/storage"
)

// ProcessReport summarizes one recurring pass. Processed counts committed
// occurrences; a transfer occurrence is one occurrence with two transactions.
type ProcessReport struct {
	Date         core.Date `json:"date"`
	Checked      int       `json:"checked"`
	Processed    int       `json:"processed"`
	Templates    int       `json:"templates_processed"`
	Transactions int       `json:"transactions_created"`
	Expired      []int64   `json:"expired"`
	Truncated    []int64   `json:"truncated"`
	Retry        []int64   `json:"retry"`
	Errors       []string  `json:"errors"`
}

// RecurringProcessor materializes due recurring templates. Passes in one
// process are serialized; the store's compare-and-set guards against other
// processes.
type RecurringProcessor struct {
	storage   *storage.SQLiteRepository
	engine    *recurring.Engine
	publisher Publisher
	analytics *AnalyticsService

	mu sync.Mutex
}

func NewRecurringProcessor(storage *storage.SQLiteRepository, engine *recurring.Engine, publisher Publisher, analytics *AnalyticsService) *RecurringProcessor {
	if engine == nil {
		engine = recurring.NewEngine(recurring.DefaultMaxCatchUp)
	}
	return &RecurringProcessor{
		storage:   storage,
		engine:    engine,
		publisher: publisher,
		analytics: analytics,
	}
}

// committer records the ids each commit creates so they can be published.
type committer struct {
	storage *storage.SQLiteRepository
	created []int64
}

func (c *committer) CommitTemplate(ctx context.Context, u recurring.TemplateUpdate) error {
	ids, err := c.storage.CommitTemplateIDs(ctx, u)
	if err != nil {
		return err
	}
	c.created = append(c.created, ids...)
	return nil
}

// ProcessDue runs every active template up to today.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, today core.Date) (ProcessReport, error) {
	if p.storage == nil {
		return ProcessReport{}, errors.New("processor not properly initialized")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	templates, err := p.storage.ListRecurring(ctx, true)
	if err != nil {
		return ProcessReport{}, fmt.Errorf("load active templates: %w", err)
	}
	slog.InfoContext(ctx, "Processing recurring templates",
		"total_active", len(templates),
		"processing_date", today.String())

	res := p.engine.ProcessDue(templates, today)
	c := &committer{storage: p.storage}
	commit := recurring.Commit(ctx, c, res)

	report := ProcessReport{
		Date:         today,
		Checked:      len(templates),
		Processed:    commit.Occurrences,
		Templates:    len(commit.Committed),
		Transactions: commit.Transactions,
		Expired:      []int64{},
		Truncated:    res.Truncated,
		Retry:        []int64{},
		Errors:       []string{},
	}
	if report.Truncated == nil {
		report.Truncated = []int64{}
	}
	for _, e := range res.Errors {
		report.Errors = append(report.Errors, e.Error())
		slog.ErrorContext(ctx, "Recurring template stopped", "template_id", e.TemplateID, "error", e.Err)
	}
	for _, e := range commit.Retry {
		report.Retry = append(report.Retry, e.TemplateID)
		level := slog.LevelError
		if errors.Is(e.Err, storage.ErrStaleTemplate) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Recurring template commit failed, will retry", "template_id", e.TemplateID, "error", e.Err)
	}
	for _, id := range res.Expired {
		if err := p.storage.DeactivateRecurring(ctx, id); err != nil {
			report.Errors = append(report.Errors, err.Error())
			slog.ErrorContext(ctx, "Failed to deactivate expired template", "template_id", id, "error", err)
			continue
		}
		report.Expired = append(report.Expired, id)
		slog.InfoContext(ctx, "Expired recurring template deactivated", "template_id", id)
	}

	if len(c.created) > 0 && p.analytics != nil {
		p.analytics.Invalidate()
	}
	publish(ctx, p.publisher, amqp.OperationUpsert, c.created...)

	slog.InfoContext(ctx, "Recurring processing complete",
		"processed", report.Processed,
		"templates_processed", report.Templates,
		"transactions_created", report.Transactions,
		"expired", len(report.Expired),
		"retry", len(report.Retry),
		"total_checked", report.Checked)
	return report, nil
}
