// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Parsing and presentation go through
// shopspring/decimal so rounding happens in exactly one place.
package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// maxCents bounds parsed values so later sums cannot overflow int64 in practice.
const maxCents = (1<<63 - 1) / 1000

// normalizeAmount strips currency symbols and grouping separators.
// A lone comma is treated as the decimal separator (12,34).
func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("€", "", "$", "", "£", "", " ", "", "'", "").Replace(s)
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		return strings.ReplaceAll(s, ",", "")
	}
	return strings.ReplaceAll(s, ",", ".")
}

// ParseMoney parses a signed decimal amount and rounds it half away from
// zero to whole cents.
//
// Examples:
//
//	ParseMoney("12.34")     -> Money{1234}
//	ParseMoney("-12,345")   -> Money{-1235}
//	ParseMoney("$1,200.50") -> Money{120050}
func ParseMoney(s string) (Money, error) {
	n := normalizeAmount(s)
	if n == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(n)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d)
}

// ParseDecimalToCents converts a decimal string to strictly positive cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Signs, zero and garbage are rejected.
func ParseDecimalToCents(s string) (int64, error) {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "+") || strings.HasPrefix(t, "-") {
		return 0, ErrInvalidAmount
	}
	m, err := ParseMoney(t)
	if err != nil {
		return 0, err
	}
	if m.Cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return m.Cents, nil
}

// MoneyFromDecimal rounds d to cents.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Round(2).Shift(2)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Cents builds a Money value.
func Cents(c int64) Money { return Money{Cents: c} }

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

// Sign returns -1, 0 or 1.
func (m Money) Sign() int {
	switch {
	case m.Cents < 0:
		return -1
	case m.Cents > 0:
		return 1
	}
	return 0
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with exactly two decimals, e.g. "-12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Euros returns the value as a float64 for display purposes only.
func (m Money) Euros() float64 {
	return m.Decimal().InexactFloat64()
}

// MarshalJSON writes a JSON number rounded to two places.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a string amount.
func (m *Money) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*m = Money{}
		return nil
	case float64:
		parsed, err := ParseMoney(string(b))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case string:
		parsed, err := ParseMoney(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	default:
		return fmt.Errorf("%w: unsupported JSON value %s", ErrInvalidAmount, string(b))
	}
}
