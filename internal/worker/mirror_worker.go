package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"moneytrack/internal/amqp"
	"moneytrack/internal/sheets"
	"moneytrack/internal/storage"
)

const (
	DefaultBatchSize    = 50
	DefaultPollInterval = 5 * time.Minute
)

// Consumer delivers transaction change events.
type Consumer interface {
	ConsumeTransactionSync(ctx context.Context, handler amqp.Handler) error
}

// MirrorWorker copies transactions from SQLite to an external mirror.
type MirrorWorker struct {
	storage   *storage.SQLiteRepository
	mirror    sheets.TransactionMirror
	batchSize int
}

func NewMirrorWorker(storage *storage.SQLiteRepository, mirror sheets.TransactionMirror, batchSize int) *MirrorWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &MirrorWorker{
		storage:   storage,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleMessage applies a single change event to the mirror.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing mirror message",
		"message_id", msg.MessageID,
		"transaction_id", msg.TransactionID,
		"operation", msg.Operation)

	switch msg.Operation {
	case amqp.OperationDelete:
		if err := w.mirror.DeleteTransaction(ctx, msg.TransactionID); err != nil {
			return fmt.Errorf("delete mirrored transaction: %w", err)
		}
		slog.InfoContext(ctx, "Transaction removed from mirror", "transaction_id", msg.TransactionID)
		return nil
	case amqp.OperationUpsert:
		return w.mirrorTransaction(ctx, msg.TransactionID)
	default:
		return fmt.Errorf("unknown operation %q", msg.Operation)
	}
}

// mirrorTransaction writes the current state of id. A transaction deleted
// since the event was published is removed from the mirror instead.
func (w *MirrorWorker) mirrorTransaction(ctx context.Context, id int64) error {
	tx, err := w.storage.GetTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction gone, removing from mirror", "transaction_id", id)
		return w.mirror.DeleteTransaction(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	account, err := w.storage.GetAccount(ctx, tx.AccountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	if err := w.mirror.AppendTransaction(ctx, sheets.NewRow(tx, account.Name)); err != nil {
		if markErr := w.storage.MarkMirrorError(ctx, id, err.Error()); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark mirror error", "transaction_id", id, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	// The row is in the mirror even if the bookkeeping fails; the next
	// pass rewrites it in place.
	if err := w.storage.MarkMirrored(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as mirrored", "transaction_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Transaction mirrored",
		"transaction_id", id,
		"account", account.Name,
		"amount_cents", tx.Amount.Cents)
	return nil
}

// ProcessPending mirrors up to limit transactions that were never mirrored.
// This covers events lost while the broker or worker was down.
func (w *MirrorWorker) ProcessPending(ctx context.Context, limit int) (synced, failed int, err error) {
	ids, err := w.storage.ListUnmirrored(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("list pending transactions: %w", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.mirrorTransaction(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending transaction", "transaction_id", id, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

// StartupSyncCheck mirrors a larger backlog once when the worker starts.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.ProcessPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

// Run consumes events and polls for missed transactions until ctx is done.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if err := w.StartupSyncCheck(ctx); err != nil {
		slog.WarnContext(ctx, "Startup sync check failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeTransactionSync(ctx, w.HandleMessage)
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, _, err := w.ProcessPending(ctx, w.batchSize); err != nil && ctx.Err() == nil {
					slog.ErrorContext(ctx, "Periodic mirror pass failed", "error", err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
