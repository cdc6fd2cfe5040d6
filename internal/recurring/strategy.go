// Package recurring materializes transactions from recurring templates.
//
// This file holds one scheduling strategy per frequency. Each strategy
// knows how to move a due date one period forward.
package recurring

import (
	"fmt"

	"moneytrack/internal/core"
)

// Advancer is the strategy interface for computing the next due date.
type Advancer interface {
	// Next returns the due date one period after from. anchorDay is the
	// day of month the schedule started on; month-based strategies target
	// it and clamp to the month length.
	Next(from core.Date, anchorDay int) core.Date
}

// DayStepper advances by a fixed number of days.
type DayStepper struct {
	Days int
}

func (s DayStepper) Next(from core.Date, _ int) core.Date {
	return from.AddDays(s.Days)
}

// MonthStepper advances by a fixed number of calendar months.
type MonthStepper struct {
	Months int
}

// Next keeps the anchor day when the target month is long enough, so
// Jan 31 -> Feb 29 -> Mar 31 instead of drifting to the 29th.
func (s MonthStepper) Next(from core.Date, anchorDay int) core.Date {
	return from.AddMonthsClamped(s.Months, anchorDay)
}

var advancers = map[core.Frequency]Advancer{
	core.Daily:     DayStepper{Days: 1},
	core.Weekly:    DayStepper{Days: 7},
	core.Biweekly:  DayStepper{Days: 14},
	core.Monthly:   MonthStepper{Months: 1},
	core.Quarterly: MonthStepper{Months: 3},
	core.Yearly:    MonthStepper{Months: 12},
}

// GetAdvancer returns the strategy registered for a frequency.
func GetAdvancer(frequency core.Frequency) (Advancer, error) {
	a, ok := advancers[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: unknown frequency: %s", core.ErrInvalidFrequency, frequency)
	}
	return a, nil
}

// RegisterAdvancer adds or replaces the strategy for a frequency.
// It is not safe to call concurrently with ProcessDue.
func RegisterAdvancer(frequency core.Frequency, a Advancer) {
	advancers[frequency] = a
}
