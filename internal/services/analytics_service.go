package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"moneytrack/internal/analytics"
	"moneytrack/internal/cache"
	"moneytrack/internal/core"
	"moneytrack/internal/storage"
)

const (
	DefaultAnalyticsTTL = 30 * time.Second
	analyticsCacheSize  = 64
)

// AnalyticsService runs the aggregator over the current ledger and caches
// one dashboard report per filter.
type AnalyticsService struct {
	storage *storage.SQLiteRepository
	reports *cache.LRUCache[analytics.Report]
}

func NewAnalyticsService(storage *storage.SQLiteRepository, ttl time.Duration) *AnalyticsService {
	if ttl <= 0 {
		ttl = DefaultAnalyticsTTL
	}
	return &AnalyticsService{
		storage: storage,
		reports: cache.NewLRUCache[analytics.Report](analyticsCacheSize, ttl),
	}
}

// Cache exposes the report cache so it can be registered for cleanup.
func (s *AnalyticsService) Cache() *cache.LRUCache[analytics.Report] {
	return s.reports
}

// Invalidate drops every cached report.
func (s *AnalyticsService) Invalidate() {
	s.reports.Purge()
}

func (s *AnalyticsService) input(ctx context.Context, f analytics.Filters) (analytics.Input, error) {
	txs, err := s.storage.ListAllTransactions(ctx)
	if err != nil {
		return analytics.Input{}, fmt.Errorf("load transactions: %w", err)
	}
	accounts, err := s.storage.ListAccounts(ctx)
	if err != nil {
		return analytics.Input{}, fmt.Errorf("load accounts: %w", err)
	}
	return analytics.Input{Transactions: txs, Accounts: accounts, Filters: f}, nil
}

// Report returns the dashboard aggregates for f, from cache when fresh.
func (s *AnalyticsService) Report(ctx context.Context, f analytics.Filters) (analytics.Report, error) {
	key := f.Key()
	if r, ok := s.reports.Get(key); ok {
		slog.DebugContext(ctx, "Analytics cache hit", "key", key)
		return r, nil
	}
	in, err := s.input(ctx, f)
	if err != nil {
		return analytics.Report{}, err
	}
	r := analytics.Dashboard(in)
	s.reports.Set(key, r)
	slog.DebugContext(ctx, "Analytics report computed", "key", key, "transactions", len(in.Transactions))
	return r, nil
}

// TopPayees ranks payees by spending. The default size comes from the
// cached report; other sizes are computed directly.
func (s *AnalyticsService) TopPayees(ctx context.Context, f analytics.Filters, n int) ([]analytics.PayeeTotal, error) {
	if n <= 0 || n == analytics.DefaultTopPayees {
		r, err := s.Report(ctx, f)
		if err != nil {
			return nil, err
		}
		return r.TopPayees, nil
	}
	in, err := s.input(ctx, f)
	if err != nil {
		return nil, err
	}
	return analytics.TopPayees(in, n), nil
}

// ProjectSummary aggregates every transaction tagged with the project.
func (s *AnalyticsService) ProjectSummary(ctx context.Context, id int64) (analytics.ProjectReport, error) {
	p, err := s.storage.GetProject(ctx, id)
	if err != nil {
		return analytics.ProjectReport{}, err
	}
	txs, err := s.storage.ListTransactions(ctx, storage.TransactionFilter{Project: p.Name})
	if err != nil {
		return analytics.ProjectReport{}, fmt.Errorf("load project transactions: %w", err)
	}
	return analytics.ProjectSummary(txs, p.Name), nil
}

// ParseFilters builds filters from query values. Unknown account types are
// an error; empty values do not filter.
func ParseFilters(dateFrom, dateTo string, accountTypes []string) (analytics.Filters, error) {
	var f analytics.Filters
	var err error
	if dateFrom != "" {
		if f.DateFrom, err = core.ParseDate(dateFrom); err != nil {
			return f, fmt.Errorf("date_from: %w", err)
		}
	}
	if dateTo != "" {
		if f.DateTo, err = core.ParseDate(dateTo); err != nil {
			return f, fmt.Errorf("date_to: %w", err)
		}
	}
	var types []core.AccountType
	for _, s := range accountTypes {
		if s == "" {
			continue
		}
		t, err := core.ParseAccountType(s)
		if err != nil {
			return f, err
		}
		types = append(types, t)
	}
	if len(types) > 0 {
		f.AccountTypes = analytics.NewAccountTypeSet(types...)
	}
	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}
