package storage

import (
	"context"
)

const accountColumns = `id, name, type, balance_cents, created_at`

func scanAccount(row scanner) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.BalanceCents, &a.CreatedAt)
	return a, err
}

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (name, type, balance_cents)
VALUES (?, ?, ?)
RETURNING ` + accountColumns

type CreateAccountParams struct {
	Name         string
	Type         string
	BalanceCents int64
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRowContext(ctx, createAccount, arg.Name, arg.Type, arg.BalanceCents)
	return scanAccount(row)
}

const getAccount = `-- name: GetAccount :one
SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id int64) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
}

const getAccountByName = `-- name: GetAccountByName :one
SELECT ` + accountColumns + ` FROM accounts WHERE name = ? COLLATE NOCASE`

func (q *Queries) GetAccountByName(ctx context.Context, name string) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccountByName, name))
}

const listAccounts = `-- name: ListAccounts :many
SELECT ` + accountColumns + ` FROM accounts ORDER BY name`

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateAccount = `-- name: UpdateAccount :execrows
UPDATE accounts SET name = ?, type = ?, balance_cents = ? WHERE id = ?`

type UpdateAccountParams struct {
	ID           int64
	Name         string
	Type         string
	BalanceCents int64
}

func (q *Queries) UpdateAccount(ctx context.Context, arg UpdateAccountParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateAccount, arg.Name, arg.Type, arg.BalanceCents, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteUnlinkedPayeeByName = `-- name: DeleteUnlinkedPayeeByName :exec
DELETE FROM payees WHERE name = ? COLLATE NOCASE AND account_id IS NULL`

func (q *Queries) DeleteUnlinkedPayeeByName(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, deleteUnlinkedPayeeByName, name)
	return err
}

const renameAccountPayee = `-- name: RenameAccountPayee :execrows
UPDATE payees SET name = ? WHERE account_id = ?`

func (q *Queries) RenameAccountPayee(ctx context.Context, name string, accountID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, renameAccountPayee, name, accountID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const renameCounterpartLegs = `-- name: RenameCounterpartLegs :execrows
UPDATE transactions SET payee = ?, mirrored_at = NULL
WHERE account_id <> ?
  AND transfer_id IN (SELECT id FROM transfers WHERE from_account_id = ? OR to_account_id = ?)`

// RenameCounterpartLegs repoints the payee of every transfer leg whose
// counterpart is accountID.
func (q *Queries) RenameCounterpartLegs(ctx context.Context, name string, accountID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, renameCounterpartLegs, name, accountID, accountID, accountID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const resetAccountMirror = `-- name: ResetAccountMirror :exec
UPDATE transactions SET mirrored_at = NULL WHERE account_id = ?`

func (q *Queries) ResetAccountMirror(ctx context.Context, accountID int64) error {
	_, err := q.db.ExecContext(ctx, resetAccountMirror, accountID)
	return err
}

const adjustAccountBalance = `-- name: AdjustAccountBalance :execrows
UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?`

type AdjustAccountBalanceParams struct {
	ID         int64
	DeltaCents int64
}

func (q *Queries) AdjustAccountBalance(ctx context.Context, arg AdjustAccountBalanceParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, adjustAccountBalance, arg.DeltaCents, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countAccountReferences = `-- name: CountAccountReferences :one
SELECT
    (SELECT COUNT(*) FROM transactions WHERE account_id = ?1) +
    (SELECT COUNT(*) FROM recurring_templates WHERE account_id = ?1 OR transfer_account_id = ?1)`

func (q *Queries) CountAccountReferences(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAccountReferences, id).Scan(&n)
	return n, err
}

const deleteAccount = `-- name: DeleteAccount :execrows
DELETE FROM accounts WHERE id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
