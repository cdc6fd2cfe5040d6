package storage

import (
	"context"
	"database/sql"

	"moneytrack/internal/core"
)

const transactionColumns = `id, account_id, amount_cents, date, type, payee, category, notes, project, transfer_id, recurring_id, created_at`

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.AmountCents,
		&t.Date,
		&t.Type,
		&t.Payee,
		&t.Category,
		&t.Notes,
		&t.Project,
		&t.TransferID,
		&t.RecurringID,
		&t.CreatedAt,
	)
	return t, err
}

func collectTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (account_id, amount_cents, date, type, payee, category, notes, project, transfer_id, recurring_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	AccountID   int64
	AmountCents int64
	Date        core.Date
	Type        string
	Payee       sql.NullString
	Category    sql.NullString
	Notes       sql.NullString
	Project     sql.NullString
	TransferID  sql.NullInt64
	RecurringID sql.NullInt64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.AccountID,
		arg.AmountCents,
		arg.Date,
		arg.Type,
		arg.Payee,
		arg.Category,
		arg.Notes,
		arg.Project,
		arg.TransferID,
		arg.RecurringID,
	)
	return scanTransaction(row)
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const updateTransaction = `-- name: UpdateTransaction :execrows
UPDATE transactions
SET account_id = ?, amount_cents = ?, date = ?, type = ?, payee = ?, category = ?, notes = ?, project = ?,
    mirrored_at = NULL, mirror_error = NULL
WHERE id = ?`

type UpdateTransactionParams struct {
	ID          int64
	AccountID   int64
	AmountCents int64
	Date        core.Date
	Type        string
	Payee       sql.NullString
	Category    sql.NullString
	Notes       sql.NullString
	Project     sql.NullString
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTransaction,
		arg.AccountID,
		arg.AmountCents,
		arg.Date,
		arg.Type,
		arg.Payee,
		arg.Category,
		arg.Notes,
		arg.Project,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listTransactionsByTransfer = `-- name: ListTransactionsByTransfer :many
SELECT ` + transactionColumns + ` FROM transactions WHERE transfer_id = ? ORDER BY amount_cents`

func (q *Queries) ListTransactionsByTransfer(ctx context.Context, transferID int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByTransfer, transferID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const listUnmirroredTransactionIDs = `-- name: ListUnmirroredTransactionIDs :many
SELECT id FROM transactions WHERE mirrored_at IS NULL ORDER BY id LIMIT ?`

func (q *Queries) ListUnmirroredTransactionIDs(ctx context.Context, limit int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listUnmirroredTransactionIDs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const markTransactionMirrored = `-- name: MarkTransactionMirrored :exec
UPDATE transactions SET mirrored_at = CURRENT_TIMESTAMP, mirror_error = NULL WHERE id = ?`

func (q *Queries) MarkTransactionMirrored(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markTransactionMirrored, id)
	return err
}

const markTransactionMirrorError = `-- name: MarkTransactionMirrorError :exec
UPDATE transactions SET mirror_error = ? WHERE id = ?`

type MarkTransactionMirrorErrorParams struct {
	ID    int64
	Error string
}

func (q *Queries) MarkTransactionMirrorError(ctx context.Context, arg MarkTransactionMirrorErrorParams) error {
	_, err := q.db.ExecContext(ctx, markTransactionMirrorError, arg.Error, arg.ID)
	return err
}

const transferColumns = `id, from_account_id, to_account_id, amount_cents, date, category, notes, project, created_at`

func scanTransfer(row scanner) (Transfer, error) {
	var t Transfer
	err := row.Scan(
		&t.ID,
		&t.FromAccountID,
		&t.ToAccountID,
		&t.AmountCents,
		&t.Date,
		&t.Category,
		&t.Notes,
		&t.Project,
		&t.CreatedAt,
	)
	return t, err
}

const createTransfer = `-- name: CreateTransfer :one
INSERT INTO transfers (from_account_id, to_account_id, amount_cents, date, category, notes, project)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transferColumns

type CreateTransferParams struct {
	FromAccountID int64
	ToAccountID   int64
	AmountCents   int64
	Date          core.Date
	Category      sql.NullString
	Notes         sql.NullString
	Project       sql.NullString
}

func (q *Queries) CreateTransfer(ctx context.Context, arg CreateTransferParams) (Transfer, error) {
	row := q.db.QueryRowContext(ctx, createTransfer,
		arg.FromAccountID,
		arg.ToAccountID,
		arg.AmountCents,
		arg.Date,
		arg.Category,
		arg.Notes,
		arg.Project,
	)
	return scanTransfer(row)
}

const getTransfer = `-- name: GetTransfer :one
SELECT ` + transferColumns + ` FROM transfers WHERE id = ?`

func (q *Queries) GetTransfer(ctx context.Context, id int64) (Transfer, error) {
	return scanTransfer(q.db.QueryRowContext(ctx, getTransfer, id))
}

const deleteTransfer = `-- name: DeleteTransfer :execrows
DELETE FROM transfers WHERE id = ?`

// DeleteTransfer removes the transfer; its legs go with it through ON DELETE CASCADE.
func (q *Queries) DeleteTransfer(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransfer, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
