// Package analytics computes read-only summaries over a snapshot of
// transactions and accounts. Every function is pure and works in integer
// cents; rounding only happens when values are rendered.
package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"moneytrack/internal/core"
)

// AccountTypeSet restricts aggregates to accounts of the listed types.
// An empty set matches every type.
type AccountTypeSet map[core.AccountType]struct{}

func NewAccountTypeSet(types ...core.AccountType) AccountTypeSet {
	s := make(AccountTypeSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether t passes the filter.
func (s AccountTypeSet) Has(t core.AccountType) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[t]
	return ok
}

// Sorted returns the members in a stable order.
func (s AccountTypeSet) Sorted() []core.AccountType {
	out := make([]core.AccountType, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MaxMonths bounds the month axis of every series.
const MaxMonths = 600

var (
	ErrWindowTooLarge = fmt.Errorf("date window spans more than %d months", MaxMonths)
	ErrWindowReversed = errors.New("date_to is before date_from")
)

// Filters bound an aggregate. Zero dates are unbounded on that side; both
// bounds are inclusive.
type Filters struct {
	DateFrom     core.Date
	DateTo       core.Date
	AccountTypes AccountTypeSet
}

// Validate rejects reversed windows and windows longer than MaxMonths.
func (f Filters) Validate() error {
	if f.DateFrom.IsZero() || f.DateTo.IsZero() {
		return nil
	}
	if f.DateTo.Before(f.DateFrom) {
		return ErrWindowReversed
	}
	if monthsBetween(f.DateFrom, f.DateTo) >= MaxMonths {
		return ErrWindowTooLarge
	}
	return nil
}

// monthsBetween counts calendar months from a to b, ignoring days.
func monthsBetween(a, b core.Date) int {
	return (b.Year()-a.Year())*12 + b.Month() - a.Month()
}

// InRange reports whether d falls inside the date window.
func (f Filters) InRange(d core.Date) bool {
	if !f.DateFrom.IsZero() && d.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && d.After(f.DateTo) {
		return false
	}
	return true
}

// Key identifies the filter for caching.
func (f Filters) Key() string {
	types := f.AccountTypes.Sorted()
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return f.DateFrom.String() + "|" + f.DateTo.String() + "|" + strings.Join(parts, ",")
}

// Input is the snapshot an aggregate runs over.
type Input struct {
	Transactions []core.Transaction
	Accounts     []core.Account
	Filters      Filters
}

// view is the filtered, date-ordered form of an Input.
type view struct {
	accounts map[int64]core.Account
	// typed passes the account filter at any date.
	typed []core.Transaction
	// matched passes both the account and the date filter.
	matched []core.Transaction
}

func prepare(in Input) view {
	v := view{
		accounts: make(map[int64]core.Account, len(in.Accounts)),
		typed:    []core.Transaction{},
		matched:  []core.Transaction{},
	}
	for _, a := range in.Accounts {
		v.accounts[a.ID] = a
	}

	for _, tx := range in.Transactions {
		if len(in.Filters.AccountTypes) > 0 {
			acct, ok := v.accounts[tx.AccountID]
			if !ok || !in.Filters.AccountTypes.Has(acct.Type) {
				continue
			}
		}
		v.typed = append(v.typed, tx)
		if in.Filters.InRange(tx.Date) {
			v.matched = append(v.matched, tx)
		}
	}

	byDate := func(txs []core.Transaction) {
		sort.SliceStable(txs, func(i, j int) bool {
			if c := txs[i].Date.Compare(txs[j].Date); c != 0 {
				return c < 0
			}
			return txs[i].ID < txs[j].ID
		})
	}
	byDate(v.typed)
	byDate(v.matched)
	return v
}

func (v view) accountType(id int64) core.AccountType {
	return v.accounts[id].Type
}
