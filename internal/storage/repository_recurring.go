package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"moneytrack/internal/core"
	"moneytrack/internal/recurring"
)

func recurringParams(t core.RecurringTemplate) CreateRecurringTemplateParams {
	anchor := t.AnchorDay
	if anchor <= 0 {
		anchor = t.NextDate.Day()
	}
	transferTo := t.TransferAccountID
	if t.Type != core.TypeTransfer {
		transferTo = 0
	}
	return CreateRecurringTemplateParams{
		AccountID:         t.AccountID,
		TransferAccountID: nullInt64(transferTo),
		Type:              string(t.Type),
		AmountCents:       t.Amount.Abs().Cents,
		IncrementCents:    t.IncrementAmount.Cents,
		Frequency:         string(t.Frequency),
		NextDate:          t.NextDate,
		EndDate:           t.EndDate,
		AnchorDay:         int64(anchor),
		Payee:             nullString(strings.TrimSpace(t.Payee)),
		Category:          nullString(strings.TrimSpace(t.Category)),
		Notes:             nullString(t.Notes),
		Project:           nullString(strings.TrimSpace(t.Project)),
		Active:            boolToInt(t.Active),
	}
}

// CreateRecurring stores a template. The anchor day defaults to the day of
// the first due date.
func (r *SQLiteRepository) CreateRecurring(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	if err := t.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}
	var created RecurringTemplate
	err := r.withTx(ctx, func(q *Queries) error {
		if _, err := q.GetAccount(ctx, t.AccountID); err != nil {
			return notFound(err, "account", t.AccountID)
		}
		var err error
		created, err = q.CreateRecurringTemplate(ctx, recurringParams(t))
		if err != nil {
			return err
		}
		return touchLookups(ctx, q, core.Transaction{Type: t.Type, Payee: t.Payee, Category: t.Category, Project: t.Project})
	})
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("create recurring template: %w", err)
	}
	slog.InfoContext(ctx, "Recurring template created",
		"template_id", created.ID,
		"frequency", created.Frequency,
		"next_date", created.NextDate.String())
	return created.toCore(), nil
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, id int64) (core.RecurringTemplate, error) {
	t, err := r.queries.GetRecurringTemplate(ctx, id)
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("get recurring template: %w", notFound(err, "recurring template", id))
	}
	return t.toCore(), nil
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context, activeOnly bool) ([]core.RecurringTemplate, error) {
	var (
		rows []RecurringTemplate
		err  error
	)
	if activeOnly {
		rows, err = r.queries.ListActiveRecurringTemplates(ctx)
	} else {
		rows, err = r.queries.ListRecurringTemplates(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	out := make([]core.RecurringTemplate, 0, len(rows))
	for _, t := range rows {
		out = append(out, t.toCore())
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateRecurring(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	if err := t.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}
	n, err := r.queries.UpdateRecurringTemplate(ctx, UpdateRecurringTemplateParams{
		ID:                            t.ID,
		CreateRecurringTemplateParams: recurringParams(t),
	})
	if err := expectRow(n, err, "recurring template", t.ID); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("update recurring template: %w", err)
	}
	return r.GetRecurring(ctx, t.ID)
}

// DeleteRecurring removes a template; generated transactions stay and lose
// their link through ON DELETE SET NULL.
func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteRecurringTemplate(ctx, id)
	if err := expectRow(n, err, "recurring template", id); err != nil {
		return fmt.Errorf("delete recurring template: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeactivateRecurring(ctx context.Context, id int64) error {
	n, err := r.queries.SetRecurringTemplateActive(ctx, id, false)
	if err := expectRow(n, err, "recurring template", id); err != nil {
		return fmt.Errorf("deactivate recurring template: %w", err)
	}
	return nil
}

// CommitTemplate applies one engine update atomically: the template only
// advances if it still matches the state the update was computed from,
// and its transactions are written in the same SQL transaction.
func (r *SQLiteRepository) CommitTemplate(ctx context.Context, u recurring.TemplateUpdate) error {
	_, err := r.CommitTemplateIDs(ctx, u)
	return err
}

// CommitTemplateIDs is CommitTemplate returning the created transaction IDs.
func (r *SQLiteRepository) CommitTemplateIDs(ctx context.Context, u recurring.TemplateUpdate) ([]int64, error) {
	t := u.Template
	var ids []int64
	err := r.withTx(ctx, func(q *Queries) error {
		ids = ids[:0]
		n, err := q.AdvanceRecurringTemplate(ctx, AdvanceRecurringTemplateParams{
			ID:                  t.ID,
			NextDate:            t.NextDate,
			AmountCents:         t.Amount.Cents,
			LastGenerated:       t.LastGenerated,
			AnchorDay:           int64(t.AnchorDay),
			Active:              boolToInt(t.Active),
			ExpectedNextDate:    u.Original.NextDate,
			ExpectedAmountCents: u.Original.Amount.Cents,
		})
		if err != nil {
			return fmt.Errorf("advance template: %w", err)
		}
		if n == 0 {
			return ErrStaleTemplate
		}

		for _, occ := range u.Occurrences {
			if len(occ.Transactions) == 2 && occ.Transactions[0].Type == core.TypeTransfer {
				debit, credit := occ.Transactions[0], occ.Transactions[1]
				_, legs, err := insertTransfer(ctx, q, core.Transfer{
					FromAccountID: debit.AccountID,
					ToAccountID:   credit.AccountID,
					Amount:        credit.Amount.Abs(),
					Date:          occ.Date,
					Category:      debit.Category,
					Notes:         debit.Notes,
					Project:       debit.Project,
				}, t.ID)
				if err != nil {
					return err
				}
				for _, leg := range legs {
					ids = append(ids, leg.ID)
				}
				continue
			}
			for _, tx := range occ.Transactions {
				if err := tx.Validate(); err != nil {
					return fmt.Errorf("occurrence %s: %w", occ.Date, err)
				}
				created, err := insertTransaction(ctx, q, tx)
				if err != nil {
					return err
				}
				ids = append(ids, created.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit template %d: %w", t.ID, err)
	}
	return ids, nil
}
