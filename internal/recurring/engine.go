package recurring

import (
	"errors"
	"fmt"

	"moneytrack/internal/core"
)

// DefaultMaxCatchUp bounds the occurrences one template may produce in a single pass.
const DefaultMaxCatchUp = 1000

var (
	ErrRetryTemplate   = errors.New("retry template")
	ErrInvalidTemplate = errors.New("invalid template")
	ErrStuckSchedule   = errors.New("schedule did not advance")
	ErrAmountExhausted = errors.New("increment leaves no positive amount")
)

// Occurrence is one scheduled firing of a template. Transfer templates
// produce two transactions per occurrence, everything else one.
type Occurrence struct {
	TemplateID   int64
	Date         core.Date
	Transactions []core.Transaction
}

// TemplateUpdate is the outcome for one template that fired at least once.
// Original is the state the occurrences were computed from; stores use it
// to reject a concurrent pass that already advanced the template.
type TemplateUpdate struct {
	Original    core.RecurringTemplate
	Template    core.RecurringTemplate
	Occurrences []Occurrence
}

// Transactions flattens the update's occurrences.
func (u TemplateUpdate) Transactions() []core.Transaction {
	var out []core.Transaction
	for _, o := range u.Occurrences {
		out = append(out, o.Transactions...)
	}
	return out
}

type TemplateError struct {
	TemplateID int64
	Err        error
}

func (e TemplateError) Error() string {
	return fmt.Sprintf("template %d: %v", e.TemplateID, e.Err)
}

func (e TemplateError) Unwrap() error { return e.Err }

// ProcessingResult is the full outcome of a pass. It never carries side effects.
type ProcessingResult struct {
	// Processed counts materialized occurrences. A transfer occurrence counts
	// once although it writes two legs.
	Processed int
	// Templates counts templates that produced at least one occurrence.
	Templates int
	Updates   []TemplateUpdate
	// Expired lists active templates whose end date is already behind
	// today; they produce nothing and should be deactivated.
	Expired []int64
	// Truncated lists templates that hit the catch-up limit; the next pass resumes them.
	Truncated []int64
	Errors    []TemplateError

	templates []core.RecurringTemplate
}

// UpdatedTemplates returns the input list with every update applied, in input order.
func (r ProcessingResult) UpdatedTemplates() []core.RecurringTemplate {
	out := make([]core.RecurringTemplate, len(r.templates))
	copy(out, r.templates)
	return out
}

// Transactions returns every materialized transaction in template order.
func (r ProcessingResult) Transactions() []core.Transaction {
	out := []core.Transaction{}
	for _, u := range r.Updates {
		out = append(out, u.Transactions()...)
	}
	return out
}

// Engine runs due templates forward. The zero value uses DefaultMaxCatchUp.
type Engine struct {
	MaxCatchUp int
}

func NewEngine(maxCatchUp int) *Engine {
	return &Engine{MaxCatchUp: maxCatchUp}
}

// ProcessDue runs the default engine.
func ProcessDue(templates []core.RecurringTemplate, today core.Date) ProcessingResult {
	var e Engine
	return e.ProcessDue(templates, today)
}

// ProcessDue materializes every occurrence due on or before today.
// Invalid templates are reported in Errors and do not stop the others.
func (e *Engine) ProcessDue(templates []core.RecurringTemplate, today core.Date) ProcessingResult {
	limit := e.MaxCatchUp
	if limit <= 0 {
		limit = DefaultMaxCatchUp
	}

	res := ProcessingResult{
		Updates:   []TemplateUpdate{},
		Expired:   []int64{},
		Truncated: []int64{},
		Errors:    []TemplateError{},
		templates: make([]core.RecurringTemplate, len(templates)),
	}
	copy(res.templates, templates)

	for i, tmpl := range templates {
		if !tmpl.Active {
			continue
		}
		if !tmpl.EndDate.IsZero() && tmpl.EndDate.Before(today) {
			res.Expired = append(res.Expired, tmpl.ID)
			res.templates[i].Active = false
			continue
		}
		if tmpl.NextDate.IsZero() || tmpl.NextDate.After(today) {
			if tmpl.NextDate.IsZero() {
				res.Errors = append(res.Errors, TemplateError{TemplateID: tmpl.ID, Err: fmt.Errorf("%w: missing next date", ErrInvalidTemplate)})
			}
			continue
		}

		update, truncated, err := advance(tmpl, today, limit)
		if err != nil && len(update.Occurrences) == 0 {
			res.Errors = append(res.Errors, TemplateError{TemplateID: tmpl.ID, Err: err})
			continue
		}
		if err != nil {
			// Occurrences before the failure still stand.
			res.Errors = append(res.Errors, TemplateError{TemplateID: tmpl.ID, Err: err})
		}
		if truncated {
			res.Truncated = append(res.Truncated, tmpl.ID)
		}
		if len(update.Occurrences) == 0 {
			continue
		}
		res.Processed += len(update.Occurrences)
		res.Templates++
		res.Updates = append(res.Updates, update)
		res.templates[i] = update.Template
	}
	return res
}

func checkTemplate(t core.RecurringTemplate) error {
	if t.AccountID <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, core.ErrMissingAccount)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, core.ErrInvalidTransactionType)
	}
	if t.Type == core.TypeTransfer && (t.TransferAccountID <= 0 || t.TransferAccountID == t.AccountID) {
		return fmt.Errorf("%w: transfer needs a distinct destination account", ErrInvalidTemplate)
	}
	if t.Amount.Cents <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, core.ErrInvalidAmount)
	}
	return nil
}

// advance walks one template forward while it is due, bounded by limit.
// When the increment would take the amount to zero or below, the template
// keeps its last amount, is deactivated after the current occurrence, and
// the occurrences so far are returned with ErrAmountExhausted.
func advance(tmpl core.RecurringTemplate, today core.Date, limit int) (TemplateUpdate, bool, error) {
	if err := checkTemplate(tmpl); err != nil {
		return TemplateUpdate{}, false, err
	}
	adv, err := GetAdvancer(tmpl.Frequency)
	if err != nil {
		return TemplateUpdate{}, false, err
	}

	t := tmpl
	if t.AnchorDay <= 0 {
		t.AnchorDay = t.NextDate.Day()
	}
	update := TemplateUpdate{Original: tmpl}
	truncated := false

	for !t.NextDate.After(today) && (t.EndDate.IsZero() || !t.NextDate.After(t.EndDate)) {
		if len(update.Occurrences) == limit {
			truncated = true
			break
		}
		update.Occurrences = append(update.Occurrences, occurrenceOf(t))

		next := adv.Next(t.NextDate, t.AnchorDay)
		if !next.After(t.NextDate) {
			return TemplateUpdate{}, false, fmt.Errorf("%w: %s after %s", ErrStuckSchedule, t.Frequency, t.NextDate)
		}
		t.LastGenerated = t.NextDate
		t.NextDate = next
		amount := t.Amount.Add(t.IncrementAmount)
		if amount.Cents <= 0 {
			t.Active = false
			update.Template = t
			return update, false, fmt.Errorf("%w: %w: %s plus %s", ErrInvalidTemplate, ErrAmountExhausted, t.Amount, t.IncrementAmount)
		}
		t.Amount = amount
	}

	if !t.EndDate.IsZero() && t.NextDate.After(t.EndDate) {
		t.Active = false
	}
	update.Template = t
	return update, truncated, nil
}

// occurrenceOf builds the transactions for the template's current due date,
// using the amount before any increment is applied.
func occurrenceOf(t core.RecurringTemplate) Occurrence {
	base := core.Transaction{
		AccountID:   t.AccountID,
		Amount:      core.SignedAmount(t.Type, t.Amount),
		Date:        t.NextDate,
		Type:        t.Type,
		Payee:       t.Payee,
		Category:    t.Category,
		Notes:       t.Notes,
		Project:     t.Project,
		RecurringID: t.ID,
	}
	occ := Occurrence{TemplateID: t.ID, Date: t.NextDate}
	if t.Type != core.TypeTransfer {
		occ.Transactions = []core.Transaction{base}
		return occ
	}

	debit := base
	debit.Amount = t.Amount.Abs().Neg()
	credit := base
	credit.AccountID = t.TransferAccountID
	credit.Amount = t.Amount.Abs()
	occ.Transactions = []core.Transaction{debit, credit}
	return occ
}
