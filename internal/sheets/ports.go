package sheets

import (
	"context"
	"strconv"

	"moneytrack/internal/core"
)

// Header is the first row of the mirror sheet.
var Header = []string{"ID", "Date", "Account", "Payee", "Category", "Notes", "Project", "Type", "Amount"}

// Row is one transaction as laid out in the mirror sheet.
type Row struct {
	ID       int64
	Date     core.Date
	Account  string
	Payee    string
	Category string
	Notes    string
	Project  string
	Type     core.TransactionType
	Amount   core.Money
}

func NewRow(t core.Transaction, account string) Row {
	return Row{
		ID:       t.ID,
		Date:     t.Date,
		Account:  account,
		Payee:    t.Payee,
		Category: t.Category,
		Notes:    t.Notes,
		Project:  t.Project,
		Type:     t.Type,
		Amount:   t.Amount,
	}
}

// Values returns the cells in Header order. The amount is a plain decimal
// string so the sheet's locale formats it.
func (r Row) Values() []any {
	return []any{
		strconv.FormatInt(r.ID, 10),
		r.Date.String(),
		r.Account,
		r.Payee,
		r.Category,
		r.Notes,
		r.Project,
		string(r.Type),
		r.Amount.String(),
	}
}

// Ports for outbound adapters.
type (
	// TransactionMirror keeps an external copy of the ledger. Both
	// operations are idempotent: appending an ID that is already present
	// rewrites its row, deleting a missing ID is a no-op.
	TransactionMirror interface {
		AppendTransaction(ctx context.Context, row Row) error
		DeleteTransaction(ctx context.Context, id int64) error
	}
)
