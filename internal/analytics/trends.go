package analytics

import (
	"sort"

	"moneytrack/internal/core"
)

type MonthlySeries struct {
	Labels   []string     `json:"labels"`
	Income   []core.Money `json:"income"`
	Expenses []core.Money `json:"expenses"`
	// Savings and Investments are net transfers into accounts of those types.
	Savings     []core.Money `json:"savings"`
	Investments []core.Money `json:"investments"`
}

type CategorySeries struct {
	Labels []string                `json:"labels"`
	Series map[string][]core.Money `json:"series"`
}

type NetWorthPoint struct {
	Date  core.Date  `json:"date"`
	Value core.Money `json:"value"`
}

type SavingsSeries struct {
	Labels         []string     `json:"labels"`
	SavingsNet     []core.Money `json:"savings_net"`
	InvestmentsNet []core.Money `json:"investments_net"`
	OtherOutgoing  []core.Money `json:"other_outgoing"`
	Income         []core.Money `json:"income"`
}

// monthAxis returns the contiguous month labels for a window. A missing
// bound falls back to the first or last matched transaction. The axis keeps
// at most the last MaxMonths months.
func monthAxis(f Filters, matched []core.Transaction) []string {
	start, end := f.DateFrom, f.DateTo
	if len(matched) > 0 {
		if start.IsZero() {
			start = matched[0].Date
		}
		if end.IsZero() {
			end = matched[len(matched)-1].Date
		}
	}
	if start.IsZero() {
		start = end
	}
	if end.IsZero() {
		end = start
	}
	if start.IsZero() || end.Before(start) {
		return []string{}
	}
	if monthsBetween(start, end) >= MaxMonths {
		start = end.FirstOfMonth().AddMonthsClamped(-(MaxMonths - 1), 1)
	}

	labels := []string{}
	last := end.MonthKey()
	for m := start.FirstOfMonth(); ; m = m.AddMonthsClamped(1, 1) {
		labels = append(labels, m.MonthKey())
		if m.MonthKey() == last {
			break
		}
	}
	return labels
}

func zeros(n int) []core.Money {
	return make([]core.Money, n)
}

func indexOf(labels []string) map[string]int {
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	return idx
}

// MonthlyTrend buckets income and expenses per calendar month with no gaps.
func MonthlyTrend(in Input) MonthlySeries {
	v := prepare(in)
	labels := monthAxis(in.Filters, v.matched)
	t := MonthlySeries{
		Labels:      labels,
		Income:      zeros(len(labels)),
		Expenses:    zeros(len(labels)),
		Savings:     zeros(len(labels)),
		Investments: zeros(len(labels)),
	}
	idx := indexOf(labels)
	for _, tx := range v.matched {
		i, ok := idx[tx.Date.MonthKey()]
		if !ok {
			continue
		}
		switch {
		case tx.IsIncome():
			t.Income[i] = t.Income[i].Add(tx.Amount)
		case tx.IsExpense():
			t.Expenses[i] = t.Expenses[i].Add(tx.Amount.Abs())
		case tx.Type == core.TypeTransfer:
			switch v.accountType(tx.AccountID) {
			case core.Savings:
				t.Savings[i] = t.Savings[i].Add(tx.Amount)
			case core.Investment:
				t.Investments[i] = t.Investments[i].Add(tx.Amount)
			}
		}
	}
	return t
}

// CategoryTrends gives one expense series per category on the MonthlyTrend axis.
func CategoryTrends(in Input) CategorySeries {
	v := prepare(in)
	labels := monthAxis(in.Filters, v.matched)
	ct := CategorySeries{Labels: labels, Series: map[string][]core.Money{}}
	idx := indexOf(labels)
	for _, tx := range v.matched {
		if !tx.IsExpense() {
			continue
		}
		i, ok := idx[tx.Date.MonthKey()]
		if !ok {
			continue
		}
		label := categoryLabel(tx.Category)
		series, ok := ct.Series[label]
		if !ok {
			series = zeros(len(labels))
			ct.Series[label] = series
		}
		series[i] = series[i].Add(tx.Amount.Abs())
	}
	return ct
}

// NetWorthSeries returns one point per activity date in the window. Each
// value is the running total of every matching transaction up to that date,
// so activity before DateFrom forms the opening value.
func NetWorthSeries(in Input) []NetWorthPoint {
	v := prepare(in)
	points := []NetWorthPoint{}
	var running core.Money
	for i, tx := range v.typed {
		running = running.Add(tx.Amount)
		lastOfDay := i == len(v.typed)-1 || !v.typed[i+1].Date.Equal(tx.Date)
		if !lastOfDay || !in.Filters.InRange(tx.Date) {
			continue
		}
		points = append(points, NetWorthPoint{Date: tx.Date, Value: running})
	}
	return points
}

// SavingsFlow shows, per month, what moved into savings and investment
// accounts next to income and ordinary spending.
func SavingsFlow(in Input) SavingsSeries {
	trend := MonthlyTrend(in)
	return SavingsSeries{
		Labels:         trend.Labels,
		SavingsNet:     trend.Savings,
		InvestmentsNet: trend.Investments,
		OtherOutgoing:  trend.Expenses,
		Income:         trend.Income,
	}
}

// Categories returns the series names alphabetically.
func (c CategorySeries) Categories() []string {
	keys := make([]string, 0, len(c.Series))
	for k := range c.Series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
