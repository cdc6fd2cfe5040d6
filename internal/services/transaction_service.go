package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"moneytrack/internal/amqp"
	"moneytrack/internal/core"
	"moneytrack/internal/storage"
)

// Publisher announces ledger changes to the mirror. *amqp.Client implements it.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, transactionID int64, operation string) error
	Close() error
}

// TransactionService orchestrates ledger writes across SQLite, the analytics
// cache and the mirror queue.
type TransactionService struct {
	storage   *storage.SQLiteRepository
	publisher Publisher
	analytics *AnalyticsService
}

// NewTransactionService wires the service. publisher and analytics may be nil.
func NewTransactionService(storage *storage.SQLiteRepository, publisher Publisher, analytics *AnalyticsService) *TransactionService {
	return &TransactionService{
		storage:   storage,
		publisher: publisher,
		analytics: analytics,
	}
}

func (s *TransactionService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	created, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.changed(ctx, amqp.OperationUpsert, created.ID)
	return created, nil
}

func (s *TransactionService) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	updated, err := s.storage.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.changed(ctx, amqp.OperationUpsert, updated.ID)
	return updated, nil
}

// DeleteTransaction removes a transaction. Deleting a transfer leg removes
// both legs.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	removed, err := s.storage.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.changed(ctx, amqp.OperationDelete, removed...)
	return nil
}

func (s *TransactionService) CreateTransfer(ctx context.Context, tr core.Transfer) (core.Transfer, []core.Transaction, error) {
	created, legs, err := s.storage.CreateTransfer(ctx, tr)
	if err != nil {
		return core.Transfer{}, nil, fmt.Errorf("save transfer: %w", err)
	}
	ids := make([]int64, 0, len(legs))
	for _, leg := range legs {
		ids = append(ids, leg.ID)
	}
	s.changed(ctx, amqp.OperationUpsert, ids...)
	return created, legs, nil
}

func (s *TransactionService) DeleteTransfer(ctx context.Context, id int64) error {
	removed, err := s.storage.DeleteTransfer(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transfer: %w", err)
	}
	s.changed(ctx, amqp.OperationDelete, removed...)
	return nil
}

// Account writes change balances, so they invalidate analytics too.

func (s *TransactionService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	created, err := s.storage.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}
	s.changed(ctx, "")
	return created, nil
}

func (s *TransactionService) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	updated, err := s.storage.UpdateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	s.changed(ctx, "")
	return updated, nil
}

func (s *TransactionService) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.storage.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.changed(ctx, "")
	return nil
}

// changed invalidates cached aggregates and publishes one message per id.
// Publish failures are logged; the local write already succeeded.
func (s *TransactionService) changed(ctx context.Context, operation string, ids ...int64) {
	if s.analytics != nil {
		s.analytics.Invalidate()
	}
	publish(ctx, s.publisher, operation, ids...)
}

func publish(ctx context.Context, p Publisher, operation string, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	if p == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping mirror messages", "count", len(ids))
		return
	}
	for _, id := range ids {
		if err := p.PublishTransactionSync(ctx, id, operation); err != nil {
			slog.ErrorContext(ctx, "Failed to publish mirror message",
				"transaction_id", id,
				"operation", operation,
				"error", err)
		}
	}
}

// Close closes storage and the publisher.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}

	return nil
}
