package storage

import (
	"context"
	"database/sql"

	"moneytrack/internal/core"
)

const recurringColumns = `id, account_id, transfer_account_id, type, amount_cents, increment_cents, frequency,
    next_date, end_date, anchor_day, last_generated, payee, category, notes, project, active, created_at`

func scanRecurringTemplate(row scanner) (RecurringTemplate, error) {
	var r RecurringTemplate
	err := row.Scan(
		&r.ID,
		&r.AccountID,
		&r.TransferAccountID,
		&r.Type,
		&r.AmountCents,
		&r.IncrementCents,
		&r.Frequency,
		&r.NextDate,
		&r.EndDate,
		&r.AnchorDay,
		&r.LastGenerated,
		&r.Payee,
		&r.Category,
		&r.Notes,
		&r.Project,
		&r.Active,
		&r.CreatedAt,
	)
	return r, err
}

func collectRecurringTemplates(rows *sql.Rows) ([]RecurringTemplate, error) {
	defer rows.Close()
	var items []RecurringTemplate
	for rows.Next() {
		r, err := scanRecurringTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createRecurringTemplate = `-- name: CreateRecurringTemplate :one
INSERT INTO recurring_templates (
    account_id, transfer_account_id, type, amount_cents, increment_cents, frequency,
    next_date, end_date, anchor_day, payee, category, notes, project, active
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + recurringColumns

type CreateRecurringTemplateParams struct {
	AccountID         int64
	TransferAccountID sql.NullInt64
	Type              string
	AmountCents       int64
	IncrementCents    int64
	Frequency         string
	NextDate          core.Date
	EndDate           core.Date
	AnchorDay         int64
	Payee             sql.NullString
	Category          sql.NullString
	Notes             sql.NullString
	Project           sql.NullString
	Active            int64
}

func (q *Queries) CreateRecurringTemplate(ctx context.Context, arg CreateRecurringTemplateParams) (RecurringTemplate, error) {
	row := q.db.QueryRowContext(ctx, createRecurringTemplate,
		arg.AccountID,
		arg.TransferAccountID,
		arg.Type,
		arg.AmountCents,
		arg.IncrementCents,
		arg.Frequency,
		arg.NextDate,
		arg.EndDate,
		arg.AnchorDay,
		arg.Payee,
		arg.Category,
		arg.Notes,
		arg.Project,
		arg.Active,
	)
	return scanRecurringTemplate(row)
}

const getRecurringTemplate = `-- name: GetRecurringTemplate :one
SELECT ` + recurringColumns + ` FROM recurring_templates WHERE id = ?`

func (q *Queries) GetRecurringTemplate(ctx context.Context, id int64) (RecurringTemplate, error) {
	return scanRecurringTemplate(q.db.QueryRowContext(ctx, getRecurringTemplate, id))
}

const listRecurringTemplates = `-- name: ListRecurringTemplates :many
SELECT ` + recurringColumns + ` FROM recurring_templates ORDER BY next_date, id`

func (q *Queries) ListRecurringTemplates(ctx context.Context) ([]RecurringTemplate, error) {
	rows, err := q.db.QueryContext(ctx, listRecurringTemplates)
	if err != nil {
		return nil, err
	}
	return collectRecurringTemplates(rows)
}

const listActiveRecurringTemplates = `-- name: ListActiveRecurringTemplates :many
SELECT ` + recurringColumns + ` FROM recurring_templates WHERE active = 1 ORDER BY next_date, id`

func (q *Queries) ListActiveRecurringTemplates(ctx context.Context) ([]RecurringTemplate, error) {
	rows, err := q.db.QueryContext(ctx, listActiveRecurringTemplates)
	if err != nil {
		return nil, err
	}
	return collectRecurringTemplates(rows)
}

const updateRecurringTemplate = `-- name: UpdateRecurringTemplate :execrows
UPDATE recurring_templates
SET account_id = ?, transfer_account_id = ?, type = ?, amount_cents = ?, increment_cents = ?, frequency = ?,
    next_date = ?, end_date = ?, anchor_day = ?, payee = ?, category = ?, notes = ?, project = ?, active = ?
WHERE id = ?`

type UpdateRecurringTemplateParams struct {
	ID int64
	CreateRecurringTemplateParams
}

func (q *Queries) UpdateRecurringTemplate(ctx context.Context, arg UpdateRecurringTemplateParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateRecurringTemplate,
		arg.AccountID,
		arg.TransferAccountID,
		arg.Type,
		arg.AmountCents,
		arg.IncrementCents,
		arg.Frequency,
		arg.NextDate,
		arg.EndDate,
		arg.AnchorDay,
		arg.Payee,
		arg.Category,
		arg.Notes,
		arg.Project,
		arg.Active,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const advanceRecurringTemplate = `-- name: AdvanceRecurringTemplate :execrows
UPDATE recurring_templates
SET next_date = ?, amount_cents = ?, last_generated = ?, anchor_day = ?, active = ?
WHERE id = ? AND active = 1 AND next_date = ? AND amount_cents = ?`

// AdvanceRecurringTemplateParams moves a template forward only if it is
// still in the Expected state.
type AdvanceRecurringTemplateParams struct {
	ID                  int64
	NextDate            core.Date
	AmountCents         int64
	LastGenerated       core.Date
	AnchorDay           int64
	Active              int64
	ExpectedNextDate    core.Date
	ExpectedAmountCents int64
}

func (q *Queries) AdvanceRecurringTemplate(ctx context.Context, arg AdvanceRecurringTemplateParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, advanceRecurringTemplate,
		arg.NextDate,
		arg.AmountCents,
		arg.LastGenerated,
		arg.AnchorDay,
		arg.Active,
		arg.ID,
		arg.ExpectedNextDate,
		arg.ExpectedAmountCents,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setRecurringTemplateActive = `-- name: SetRecurringTemplateActive :execrows
UPDATE recurring_templates SET active = ? WHERE id = ?`

func (q *Queries) SetRecurringTemplateActive(ctx context.Context, id int64, active bool) (int64, error) {
	result, err := q.db.ExecContext(ctx, setRecurringTemplateActive, boolToInt(active), id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteRecurringTemplate = `-- name: DeleteRecurringTemplate :execrows
DELETE FROM recurring_templates WHERE id = ?`

func (q *Queries) DeleteRecurringTemplate(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteRecurringTemplate, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
