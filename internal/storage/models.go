package storage

import (
	"database/sql"
	"time"

	"moneytrack/internal/core"
)

type Account struct {
	ID           int64
	Name         string
	Type         string
	BalanceCents int64
	CreatedAt    string
}

type Transaction struct {
	ID          int64
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
	CreatedAt   string
}

type Transfer struct {
	ID            int64
	FromAccountID int64
	ToAccountID   int64
	AmountCents   int64
	Date          core.Date
	Category      sql.NullString
	Notes         sql.NullString
	Project       sql.NullString
	CreatedAt     string
}

type RecurringTemplate struct {
	ID                int64
	AccountID         int64
	TransferAccountID sql.NullInt64
	Type              string
	AmountCents       int64
	IncrementCents    int64
	Frequency         string
	NextDate          core.Date
	EndDate           core.Date
	AnchorDay         int64
	LastGenerated     core.Date
	Payee             sql.NullString
	Category          sql.NullString
	Notes             sql.NullString
	Project           sql.NullString
	Active            int64
	CreatedAt         string
}

type Category struct {
	ID   int64
	Name string
}

type Payee struct {
	ID        int64
	Name      string
	AccountID sql.NullInt64
}

type Project struct {
	ID          int64
	Name        string
	Description sql.NullString
	Category    sql.NullString
	Notes       sql.NullString
	CreatedAt   string
}

// sqliteTimestamp is the CURRENT_TIMESTAMP layout.
const sqliteTimestamp = "2006-01-02 15:04:05"

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(sqliteTimestamp, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (a Account) toCore() core.Account {
	return core.Account{
		ID:        a.ID,
		Name:      a.Name,
		Type:      core.AccountType(a.Type),
		Balance:   core.Money{Cents: a.BalanceCents},
		CreatedAt: parseTimestamp(a.CreatedAt),
	}
}

func (t Transaction) toCore() core.Transaction {
	return core.Transaction{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Amount:      core.Money{Cents: t.AmountCents},
		Date:        t.Date,
		Type:        core.TransactionType(t.Type),
		Payee:       t.Payee.String,
		Category:    t.Category.String,
		Notes:       t.Notes.String,
		Project:     t.Project.String,
		TransferID:  t.TransferID.Int64,
		RecurringID: t.RecurringID.Int64,
		CreatedAt:   parseTimestamp(t.CreatedAt),
	}
}

func (t Transfer) toCore() core.Transfer {
	return core.Transfer{
		ID:            t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        core.Money{Cents: t.AmountCents},
		Date:          t.Date,
		Category:      t.Category.String,
		Notes:         t.Notes.String,
		Project:       t.Project.String,
		CreatedAt:     parseTimestamp(t.CreatedAt),
	}
}

func (r RecurringTemplate) toCore() core.RecurringTemplate {
	return core.RecurringTemplate{
		ID:                r.ID,
		AccountID:         r.AccountID,
		Type:              core.TransactionType(r.Type),
		Amount:            core.Money{Cents: r.AmountCents},
		Frequency:         core.Frequency(r.Frequency),
		NextDate:          r.NextDate,
		EndDate:           r.EndDate,
		AnchorDay:         int(r.AnchorDay),
		IncrementAmount:   core.Money{Cents: r.IncrementCents},
		Payee:             r.Payee.String,
		Category:          r.Category.String,
		Notes:             r.Notes.String,
		Project:           r.Project.String,
		TransferAccountID: r.TransferAccountID.Int64,
		Active:            r.Active != 0,
		LastGenerated:     r.LastGenerated,
		CreatedAt:         parseTimestamp(r.CreatedAt),
	}
}

func (p Project) toCore() core.Project {
	return core.Project{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description.String,
		Category:    p.Category.String,
		Notes:       p.Notes.String,
	}
}
