package analytics

import (
	"sort"
	"strings"

	"moneytrack/internal/core"
)

// DefaultTopPayees is used when TopPayees is asked for n <= 0.
const DefaultTopPayees = 10

type Stats struct {
	TotalBalance    core.Money `json:"total_balance"`
	MonthlyIncome   core.Money `json:"monthly_income"`
	MonthlyExpenses core.Money `json:"monthly_expenses"`
	NetMonthly      core.Money `json:"net_monthly"`
}

type CategoryTotal struct {
	Category string     `json:"category"`
	Total    core.Money `json:"total"`
}

type PayeeTotal struct {
	Payee string     `json:"payee"`
	Total core.Money `json:"total"`
}

// ComputeStats sums balances of matching accounts and the income and
// expenses inside the window. Transfers are neither.
func ComputeStats(in Input) Stats {
	v := prepare(in)
	var s Stats
	for _, a := range in.Accounts {
		if in.Filters.AccountTypes.Has(a.Type) {
			s.TotalBalance = s.TotalBalance.Add(a.Balance)
		}
	}
	for _, tx := range v.matched {
		switch {
		case tx.IsIncome():
			s.MonthlyIncome = s.MonthlyIncome.Add(tx.Amount)
		case tx.IsExpense():
			s.MonthlyExpenses = s.MonthlyExpenses.Add(tx.Amount.Abs())
		}
	}
	s.NetMonthly = s.MonthlyIncome.Sub(s.MonthlyExpenses)
	return s
}

func categoryLabel(c string) string {
	if strings.TrimSpace(c) == "" {
		return core.Uncategorized
	}
	return c
}

// CategoryBreakdown groups expenses by category, largest first.
func CategoryBreakdown(in Input) []CategoryTotal {
	return categoryTotals(prepare(in).matched)
}

func categoryTotals(txs []core.Transaction) []CategoryTotal {
	totals := map[string]core.Money{}
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		label := categoryLabel(tx.Category)
		totals[label] = totals[label].Add(tx.Amount.Abs())
	}

	out := make([]CategoryTotal, 0, len(totals))
	for c, m := range totals {
		out = append(out, CategoryTotal{Category: c, Total: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// TopPayees ranks payees by expense volume. Blank payees are skipped.
func TopPayees(in Input, n int) []PayeeTotal {
	if n <= 0 {
		n = DefaultTopPayees
	}
	totals := map[string]core.Money{}
	for _, tx := range prepare(in).matched {
		payee := strings.TrimSpace(tx.Payee)
		if !tx.IsExpense() || payee == "" {
			continue
		}
		totals[payee] = totals[payee].Add(tx.Amount.Abs())
	}

	out := make([]PayeeTotal, 0, len(totals))
	for p, m := range totals {
		out = append(out, PayeeTotal{Payee: p, Total: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Payee < out[j].Payee
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Report bundles the dashboard aggregates for one filter.
type Report struct {
	Stats          Stats           `json:"stats"`
	Categories     []CategoryTotal `json:"categories"`
	MonthlyTrend   MonthlySeries   `json:"monthly_trend"`
	CategoryTrends CategorySeries  `json:"category_trends"`
	NetWorth       []NetWorthPoint `json:"net_worth"`
	TopPayees      []PayeeTotal    `json:"top_payees"`
	SavingsFlow    SavingsSeries   `json:"savings_flow"`
}

func Dashboard(in Input) Report {
	return Report{
		Stats:          ComputeStats(in),
		Categories:     CategoryBreakdown(in),
		MonthlyTrend:   MonthlyTrend(in),
		CategoryTrends: CategoryTrends(in),
		NetWorth:       NetWorthSeries(in),
		TopPayees:      TopPayees(in, DefaultTopPayees),
		SavingsFlow:    SavingsFlow(in),
	}
}

// ProjectReport summarizes the transactions tagged with one project.
type ProjectReport struct {
	Project          string             `json:"project"`
	TotalSpent       core.Money         `json:"total_spent"`
	TotalEarned      core.Money         `json:"total_earned"`
	Net              core.Money         `json:"net"`
	TransactionCount int                `json:"transaction_count"`
	Categories       []CategoryTotal    `json:"categories"`
	Recent           []core.Transaction `json:"recent"`
}

const recentProjectTransactions = 10

// ProjectSummary totals the transactions whose project matches name,
// ignoring case.
func ProjectSummary(txs []core.Transaction, name string) ProjectReport {
	r := ProjectReport{Project: name, Categories: []CategoryTotal{}, Recent: []core.Transaction{}}
	var tagged []core.Transaction
	for _, tx := range txs {
		if !strings.EqualFold(strings.TrimSpace(tx.Project), strings.TrimSpace(name)) {
			continue
		}
		tagged = append(tagged, tx)
		switch {
		case tx.IsExpense():
			r.TotalSpent = r.TotalSpent.Add(tx.Amount.Abs())
		case tx.IsIncome():
			r.TotalEarned = r.TotalEarned.Add(tx.Amount)
		}
	}
	r.TransactionCount = len(tagged)
	r.Net = r.TotalEarned.Sub(r.TotalSpent)
	r.Categories = categoryTotals(tagged)

	sort.SliceStable(tagged, func(i, j int) bool {
		if c := tagged[i].Date.Compare(tagged[j].Date); c != 0 {
			return c > 0
		}
		return tagged[i].ID > tagged[j].ID
	})
	if len(tagged) > recentProjectTransactions {
		tagged = tagged[:recentProjectTransactions]
	}
	r.Recent = append(r.Recent, tagged...)
	return r
}
