package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"moneytrack/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero fields do not filter.
// Categories and Payees match any of their entries with LIKE.
type TransactionFilter struct {
	AccountID     int64
	DateFrom      core.Date
	DateTo        core.Date
	Type          core.TransactionType
	Categories    []string
	Payees        []string
	Project       string
	Search        string
	OrderByAmount bool
	Limit         int
	Offset        int
}

// SQL renders the filter as a query and its arguments.
func (f TransactionFilter) SQL() (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.AccountID > 0 {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if !f.DateFrom.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.DateFrom.String())
	}
	if !f.DateTo.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.DateTo.String())
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	likeAny := func(column string, values []string) {
		var ors []string
		for _, v := range values {
			if v = strings.TrimSpace(v); v == "" {
				continue
			}
			ors = append(ors, column+" LIKE ?")
			args = append(args, "%"+v+"%")
		}
		if len(ors) > 0 {
			where = append(where, "("+strings.Join(ors, " OR ")+")")
		}
	}
	likeAny("category", f.Categories)
	likeAny("payee", f.Payees)
	if p := strings.TrimSpace(f.Project); p != "" {
		where = append(where, "project = ? COLLATE NOCASE")
		args = append(args, p)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(payee LIKE ? OR notes LIKE ? OR category LIKE ? OR project LIKE ?)")
		pattern := "%" + s + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	var b strings.Builder
	b.WriteString("SELECT " + transactionColumns + " FROM transactions")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if f.OrderByAmount {
		b.WriteString(" ORDER BY ABS(amount_cents) DESC, date DESC, id DESC")
	} else {
		b.WriteString(" ORDER BY date DESC, id DESC")
	}
	if f.Limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, f.Limit, f.Offset)
	}
	return b.String(), args
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	query, args := f.SQL()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	items, err := collectTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(items))
	for _, t := range items {
		out = append(out, t.toCore())
	}
	return out, nil
}

// ListAllTransactions returns the whole ledger, newest first.
func (r *SQLiteRepository) ListAllTransactions(ctx context.Context) ([]core.Transaction, error) {
	return r.ListTransactions(ctx, TransactionFilter{})
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", notFound(err, "transaction", id))
	}
	return t.toCore(), nil
}

func adjustBalance(ctx context.Context, q *Queries, accountID, delta int64) error {
	n, err := q.AdjustAccountBalance(ctx, AdjustAccountBalanceParams{ID: accountID, DeltaCents: delta})
	if err := expectRow(n, err, "account", accountID); err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	return nil
}

// touchLookups makes sure the names a transaction uses exist as lookups.
func touchLookups(ctx context.Context, q *Queries, t core.Transaction) error {
	if c := strings.TrimSpace(t.Category); c != "" {
		if err := q.UpsertCategory(ctx, c); err != nil {
			return fmt.Errorf("upsert category: %w", err)
		}
	}
	if p := strings.TrimSpace(t.Payee); p != "" && t.Type != core.TypeTransfer {
		if err := q.UpsertPayee(ctx, p, sql.NullInt64{}); err != nil {
			return fmt.Errorf("upsert payee: %w", err)
		}
	}
	if p := strings.TrimSpace(t.Project); p != "" {
		if err := q.UpsertProjectName(ctx, p); err != nil {
			return fmt.Errorf("upsert project: %w", err)
		}
	}
	return nil
}

// insertTransaction writes one row and moves the account balance with it.
func insertTransaction(ctx context.Context, q *Queries, t core.Transaction) (core.Transaction, error) {
	if err := adjustBalance(ctx, q, t.AccountID, t.Amount.Cents); err != nil {
		return core.Transaction{}, err
	}
	if err := touchLookups(ctx, q, t); err != nil {
		return core.Transaction{}, err
	}
	row, err := q.CreateTransaction(ctx, CreateTransactionParams{
		AccountID:   t.AccountID,
		AmountCents: t.Amount.Cents,
		Date:        t.Date,
		Type:        string(t.Type),
		Payee:       nullString(strings.TrimSpace(t.Payee)),
		Category:    nullString(strings.TrimSpace(t.Category)),
		Notes:       nullString(t.Notes),
		Project:     nullString(strings.TrimSpace(t.Project)),
		TransferID:  nullInt64(t.TransferID),
		RecurringID: nullInt64(t.RecurringID),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return row.toCore(), nil
}

// CreateTransaction stores an income or expense. Transfers go through CreateTransfer.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Type == core.TypeTransfer {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", ErrTransferLeg)
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var created core.Transaction
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		created, err = insertTransaction(ctx, q, t)
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"transaction_id", created.ID,
		"account_id", created.AccountID,
		"amount_cents", created.Amount.Cents,
		"date", created.Date.String())
	return created, nil
}

// UpdateTransaction rewrites a non-transfer transaction and moves the
// balance difference between the old and new account.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Type == core.TypeTransfer {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", ErrTransferLeg)
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	err := r.withTx(ctx, func(q *Queries) error {
		old, err := q.GetTransaction(ctx, t.ID)
		if err != nil {
			return notFound(err, "transaction", t.ID)
		}
		if old.TransferID.Valid {
			return ErrTransferLeg
		}
		if err := adjustBalance(ctx, q, old.AccountID, -old.AmountCents); err != nil {
			return err
		}
		if err := adjustBalance(ctx, q, t.AccountID, t.Amount.Cents); err != nil {
			return err
		}
		if err := touchLookups(ctx, q, t); err != nil {
			return err
		}
		n, err := q.UpdateTransaction(ctx, UpdateTransactionParams{
			ID:          t.ID,
			AccountID:   t.AccountID,
			AmountCents: t.Amount.Cents,
			Date:        t.Date,
			Type:        string(t.Type),
			Payee:       nullString(strings.TrimSpace(t.Payee)),
			Category:    nullString(strings.TrimSpace(t.Category)),
			Notes:       nullString(t.Notes),
			Project:     nullString(strings.TrimSpace(t.Project)),
		})
		return expectRow(n, err, "transaction", t.ID)
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return r.GetTransaction(ctx, t.ID)
}

// DeleteTransaction removes a transaction and reverses its balance effect.
// Deleting a transfer leg deletes the whole transfer. It returns the IDs
// of every removed transaction.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) ([]int64, error) {
	var removed []int64
	err := r.withTx(ctx, func(q *Queries) error {
		t, err := q.GetTransaction(ctx, id)
		if err != nil {
			return notFound(err, "transaction", id)
		}
		if t.TransferID.Valid {
			removed, err = removeTransfer(ctx, q, t.TransferID.Int64)
			return err
		}
		if err := adjustBalance(ctx, q, t.AccountID, -t.AmountCents); err != nil {
			return err
		}
		n, err := q.DeleteTransaction(ctx, id)
		if err := expectRow(n, err, "transaction", id); err != nil {
			return err
		}
		removed = []int64{id}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete transaction: %w", err)
	}
	return removed, nil
}

// Transfers

// insertTransfer writes the transfer row, both legs and the balance moves.
func insertTransfer(ctx context.Context, q *Queries, tr core.Transfer, recurringID int64) (core.Transfer, []core.Transaction, error) {
	from, err := q.GetAccount(ctx, tr.FromAccountID)
	if err != nil {
		return core.Transfer{}, nil, notFound(err, "account", tr.FromAccountID)
	}
	to, err := q.GetAccount(ctx, tr.ToAccountID)
	if err != nil {
		return core.Transfer{}, nil, notFound(err, "account", tr.ToAccountID)
	}

	row, err := q.CreateTransfer(ctx, CreateTransferParams{
		FromAccountID: tr.FromAccountID,
		ToAccountID:   tr.ToAccountID,
		AmountCents:   tr.Amount.Abs().Cents,
		Date:          tr.Date,
		Category:      nullString(strings.TrimSpace(tr.Category)),
		Notes:         nullString(tr.Notes),
		Project:       nullString(strings.TrimSpace(tr.Project)),
	})
	if err != nil {
		return core.Transfer{}, nil, fmt.Errorf("insert transfer: %w", err)
	}
	created := row.toCore()

	debit, credit := created.Legs(from.Name, to.Name)
	legs := make([]core.Transaction, 0, 2)
	for _, leg := range []core.Transaction{debit, credit} {
		leg.RecurringID = recurringID
		saved, err := insertTransaction(ctx, q, leg)
		if err != nil {
			return core.Transfer{}, nil, err
		}
		legs = append(legs, saved)
	}
	if err := q.UpsertPayee(ctx, from.Name, nullInt64(from.ID)); err != nil {
		return core.Transfer{}, nil, fmt.Errorf("upsert account payee: %w", err)
	}
	if err := q.UpsertPayee(ctx, to.Name, nullInt64(to.ID)); err != nil {
		return core.Transfer{}, nil, fmt.Errorf("upsert account payee: %w", err)
	}
	return created, legs, nil
}

func removeTransfer(ctx context.Context, q *Queries, id int64) ([]int64, error) {
	legs, err := q.ListTransactionsByTransfer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list transfer legs: %w", err)
	}
	ids := make([]int64, 0, len(legs))
	for _, leg := range legs {
		if err := adjustBalance(ctx, q, leg.AccountID, -leg.AmountCents); err != nil {
			return nil, err
		}
		ids = append(ids, leg.ID)
	}
	n, err := q.DeleteTransfer(ctx, id)
	if err := expectRow(n, err, "transfer", id); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SQLiteRepository) CreateTransfer(ctx context.Context, tr core.Transfer) (core.Transfer, []core.Transaction, error) {
	if err := tr.Validate(); err != nil {
		return core.Transfer{}, nil, err
	}
	var (
		created core.Transfer
		legs    []core.Transaction
	)
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		created, legs, err = insertTransfer(ctx, q, tr, 0)
		return err
	})
	if err != nil {
		return core.Transfer{}, nil, fmt.Errorf("create transfer: %w", err)
	}
	slog.InfoContext(ctx, "Transfer saved to SQLite",
		"transfer_id", created.ID,
		"from_account_id", created.FromAccountID,
		"to_account_id", created.ToAccountID,
		"amount_cents", created.Amount.Cents)
	return created, legs, nil
}

func (r *SQLiteRepository) GetTransfer(ctx context.Context, id int64) (core.Transfer, error) {
	t, err := r.queries.GetTransfer(ctx, id)
	if err != nil {
		return core.Transfer{}, fmt.Errorf("get transfer: %w", notFound(err, "transfer", id))
	}
	return t.toCore(), nil
}

// DeleteTransfer removes the transfer and both legs, returning the leg IDs.
func (r *SQLiteRepository) DeleteTransfer(ctx context.Context, id int64) ([]int64, error) {
	var removed []int64
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		removed, err = removeTransfer(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("delete transfer: %w", err)
	}
	return removed, nil
}

// Import

type ImportResult struct {
	Imported        int `json:"imported"`
	Skipped         int `json:"skipped"`
	Transfers       int `json:"transfers"`
	AccountsCreated int `json:"accounts_created"`
}

// ImportRows stores rows in one transaction. Unknown account names become
// checking accounts. Rows paired by Pair become one transfer.
func (r *SQLiteRepository) ImportRows(ctx context.Context, rows []core.ImportRow) (ImportResult, error) {
	var res ImportResult
	err := r.withTx(ctx, func(q *Queries) error {
		accounts := map[string]int64{}
		resolve := func(name string) (int64, error) {
			key := strings.ToLower(strings.TrimSpace(name))
			if id, ok := accounts[key]; ok {
				return id, nil
			}
			a, err := q.GetAccountByName(ctx, strings.TrimSpace(name))
			if err == nil {
				accounts[key] = a.ID
				return a.ID, nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return 0, fmt.Errorf("get account %q: %w", name, err)
			}
			a, err = q.CreateAccount(ctx, CreateAccountParams{Name: strings.TrimSpace(name), Type: string(core.Checking)})
			if err != nil {
				return 0, fmt.Errorf("create account %q: %w", name, err)
			}
			if err := q.UpsertPayee(ctx, a.Name, nullInt64(a.ID)); err != nil {
				return 0, fmt.Errorf("upsert account payee: %w", err)
			}
			res.AccountsCreated++
			accounts[key] = a.ID
			return a.ID, nil
		}

		for i, row := range rows {
			if err := row.Validate(); err != nil {
				res.Skipped++
				continue
			}
			id, err := resolve(row.Account)
			if err != nil {
				return err
			}

			if pair := row.Pair - 1; pair >= 0 && pair < len(rows) && pair != i {
				if pair < i {
					// the earlier leg already stored the transfer
					continue
				}
				other := rows[pair]
				otherID, err := resolve(other.Account)
				if err != nil {
					return err
				}
				tr := core.Transfer{
					FromAccountID: id,
					ToAccountID:   otherID,
					Amount:        row.Amount.Abs(),
					Date:          row.Date,
					Category:      row.Category,
					Notes:         row.Notes,
					Project:       row.Project,
				}
				if row.Amount.Cents > 0 {
					tr.FromAccountID, tr.ToAccountID = otherID, id
				}
				if _, _, err := insertTransfer(ctx, q, tr, 0); err != nil {
					return err
				}
				res.Transfers++
				res.Imported += 2
				continue
			}

			typ := row.Type
			if typ == "" || typ == core.TypeTransfer {
				typ = core.TypeForAmount(row.Amount)
			}
			if _, err := insertTransaction(ctx, q, core.Transaction{
				AccountID: id,
				Amount:    row.Amount,
				Date:      row.Date,
				Type:      typ,
				Payee:     row.Payee,
				Category:  row.Category,
				Notes:     row.Notes,
				Project:   row.Project,
			}); err != nil {
				return err
			}
			res.Imported++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("import rows: %w", err)
	}
	slog.InfoContext(ctx, "Import stored",
		"imported", res.Imported,
		"skipped", res.Skipped,
		"transfers", res.Transfers,
		"accounts_created", res.AccountsCreated)
	return res, nil
}

// Mirror bookkeeping

func (r *SQLiteRepository) ListUnmirrored(ctx context.Context, limit int) ([]int64, error) {
	ids, err := r.queries.ListUnmirroredTransactionIDs(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list unmirrored transactions: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) MarkMirrored(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionMirrored(ctx, id); err != nil {
		return fmt.Errorf("mark transaction mirrored: %w", err)
	}
	slog.DebugContext(ctx, "Transaction marked as mirrored", "transaction_id", id)
	return nil
}

func (r *SQLiteRepository) MarkMirrorError(ctx context.Context, id int64, reason string) error {
	if err := r.queries.MarkTransactionMirrorError(ctx, MarkTransactionMirrorErrorParams{ID: id, Error: reason}); err != nil {
		return fmt.Errorf("mark transaction mirror error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with mirror error", "transaction_id", id, "reason", reason)
	return nil
}
