package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Credit     AccountType = "credit"
	Investment AccountType = "investment"
)

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Biweekly  Frequency = "biweekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

// Uncategorized labels expenses that carry no category.
const Uncategorized = "Uncategorized"

const maxTextLen = 200

type (
	AccountType     string
	TransactionType string
	Frequency       string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Account struct {
		ID        int64       `json:"id"`
		Name      string      `json:"name"`
		Type      AccountType `json:"type"`
		Balance   Money       `json:"balance"`
		CreatedAt time.Time   `json:"created_at"`
	}

	// Transaction is a signed movement on a single account.
	// Positive amounts increase the balance.
	Transaction struct {
		ID          int64           `json:"id"`
		AccountID   int64           `json:"account_id"`
		Amount      Money           `json:"amount"`
		Date        Date            `json:"date"`
		Type        TransactionType `json:"type"`
		Payee       string          `json:"payee,omitempty"`
		Category    string          `json:"category,omitempty"`
		Notes       string          `json:"notes,omitempty"`
		Project     string          `json:"project,omitempty"`
		RecurringID int64           `json:"recurring_id,omitempty"`
		TransferID  int64           `json:"transfer_id,omitempty"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	// Transfer moves Amount from one account to another as two linked legs.
	Transfer struct {
		ID            int64     `json:"id"`
		FromAccountID int64     `json:"from_account_id"`
		ToAccountID   int64     `json:"to_account_id"`
		Amount        Money     `json:"amount"`
		Date          Date      `json:"date"`
		Category      string    `json:"category,omitempty"`
		Notes         string    `json:"notes,omitempty"`
		Project       string    `json:"project,omitempty"`
		CreatedAt     time.Time `json:"created_at"`
	}

	// RecurringTemplate generates transactions on a schedule. Amount is a
	// magnitude, the sign comes from Type.
	RecurringTemplate struct {
		ID                int64           `json:"id"`
		AccountID         int64           `json:"account_id"`
		Type              TransactionType `json:"type"`
		Amount            Money           `json:"amount"`
		Frequency         Frequency       `json:"frequency"`
		NextDate          Date            `json:"next_date"`
		EndDate           Date            `json:"end_date"`
		AnchorDay         int             `json:"anchor_day"`
		IncrementAmount   Money           `json:"increment_amount"`
		Payee             string          `json:"payee,omitempty"`
		Category          string          `json:"category,omitempty"`
		Notes             string          `json:"notes,omitempty"`
		Project           string          `json:"project,omitempty"`
		TransferAccountID int64           `json:"transfer_account_id,omitempty"`
		Active            bool            `json:"active"`
		LastGenerated     Date            `json:"last_generated"`
		CreatedAt         time.Time       `json:"created_at"`
	}

	Project struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Category    string `json:"category,omitempty"`
		Notes       string `json:"notes,omitempty"`
	}

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Payee is a counterparty name; account payees point at one of the
	// user's own accounts.
	Payee struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		AccountID int64  `json:"account_id,omitempty"`
	}

	// ImportRow is a transaction keyed by account name, as produced by importers.
	ImportRow struct {
		Account  string          `json:"account"`
		Date     Date            `json:"date"`
		Payee    string          `json:"payee,omitempty"`
		Notes    string          `json:"notes,omitempty"`
		Category string          `json:"category,omitempty"`
		Project  string          `json:"project,omitempty"`
		Amount   Money           `json:"amount"`
		Type     TransactionType `json:"type"`
		// Pair is the 1-based position of the other leg of a detected
		// transfer in the same batch. Zero means no pair.
		Pair int `json:"-"`
	}
)

var (
	ErrInvalidDay             = errors.New("invalid day")
	ErrInvalidMonth           = errors.New("invalid month")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrEmptyName              = errors.New("empty name")
	ErrTextTooLong            = errors.New("text too long (max 200 characters)")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidFrequency       = errors.New("invalid frequency")
	ErrMissingAccount         = errors.New("missing account")
	ErrSameAccount            = errors.New("source and destination account must differ")
	ErrEndBeforeStart         = errors.New("end date must not be before next date")
)

func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountType, s)
	}
	return t, nil
}

func (t AccountType) Valid() bool {
	switch t {
	case Checking, Savings, Credit, Investment:
		return true
	}
	return false
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
	return f, nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// TypeForAmount infers income or expense from the sign of a non-transfer amount.
func TypeForAmount(m Money) TransactionType {
	if m.Cents < 0 {
		return TypeExpense
	}
	return TypeIncome
}

// SignedAmount applies the template type's sign to a magnitude.
func SignedAmount(t TransactionType, m Money) Money {
	if t == TypeExpense {
		return m.Abs().Neg()
	}
	return m.Abs()
}

func validateText(s string) error {
	if len(s) > maxTextLen {
		return ErrTextTooLong
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if err := validateText(a.Name); err != nil {
		return err
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccountType, a.Type)
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.AccountID <= 0 {
		return ErrMissingAccount
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionType, t.Type)
	}
	for _, s := range []string{t.Payee, t.Category, t.Notes, t.Project} {
		if err := validateText(s); err != nil {
			return err
		}
	}
	return nil
}

// IsIncome reports a non-transfer inflow.
func (t Transaction) IsIncome() bool {
	return t.Type != TypeTransfer && t.Amount.Cents > 0
}

// IsExpense reports a non-transfer outflow.
func (t Transaction) IsExpense() bool {
	return t.Type != TypeTransfer && t.Amount.Cents < 0
}

func (tr Transfer) Validate() error {
	if tr.FromAccountID <= 0 || tr.ToAccountID <= 0 {
		return ErrMissingAccount
	}
	if tr.FromAccountID == tr.ToAccountID {
		return ErrSameAccount
	}
	if err := tr.Amount.Validate(); err != nil {
		return err
	}
	return tr.Date.Validate()
}

// Legs returns the debit on the source and the credit on the destination.
// Each leg names the other account as its payee.
func (tr Transfer) Legs(fromName, toName string) (debit, credit Transaction) {
	debit = Transaction{
		AccountID:  tr.FromAccountID,
		Amount:     tr.Amount.Abs().Neg(),
		Date:       tr.Date,
		Type:       TypeTransfer,
		Payee:      toName,
		Category:   tr.Category,
		Notes:      tr.Notes,
		Project:    tr.Project,
		TransferID: tr.ID,
	}
	credit = debit
	credit.AccountID = tr.ToAccountID
	credit.Amount = tr.Amount.Abs()
	credit.Payee = fromName
	return debit, credit
}

func (rt RecurringTemplate) Validate() error {
	if rt.AccountID <= 0 {
		return ErrMissingAccount
	}
	if err := rt.NextDate.Validate(); err != nil {
		return fmt.Errorf("invalid next date: %w", err)
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.NextDate) {
		return ErrEndBeforeStart
	}
	if !rt.Frequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, rt.Frequency)
	}
	if !rt.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionType, rt.Type)
	}
	if rt.Type == TypeTransfer {
		if rt.TransferAccountID <= 0 {
			return fmt.Errorf("transfer template: %w", ErrMissingAccount)
		}
		if rt.TransferAccountID == rt.AccountID {
			return ErrSameAccount
		}
	}
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if rt.AnchorDay < 0 || rt.AnchorDay > 31 {
		return ErrInvalidDay
	}
	for _, s := range []string{rt.Payee, rt.Category, rt.Notes, rt.Project} {
		if err := validateText(s); err != nil {
			return err
		}
	}
	return nil
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return validateText(p.Name)
}

func (r ImportRow) Validate() error {
	if strings.TrimSpace(r.Account) == "" {
		return ErrMissingAccount
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if r.Amount.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}
