package aiquery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytrack/internal/core"
	"moneytrack/internal/storage"
)

type scriptedModel struct {
	replies []string
	errs    []error
	prompts []string
}

func (m *scriptedModel) Generate(_ context.Context, prompt string) (string, error) {
	i := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], err
	}
	return "", err
}

type fakeStore struct {
	txs    []core.Transaction
	filter storage.TransactionFilter
}

func (s *fakeStore) LookupNames(context.Context) ([]string, []string, error) {
	return []string{"Groceries", "Rent"}, []string{"Tesco"}, nil
}

func (s *fakeStore) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	s.filter = f
	return s.txs, nil
}

func newTestService(m Model, st Store) *Service {
	s := NewService(m, st, 0)
	s.today = func() core.Date { return core.NewDate(2025, 3, 15) }
	return s
}

func TestProcess(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`Sure! {"intent": "sum", "time_period": "last_month", "categories": ["Groceries", ""], "transaction_type": "expense"}`,
		"You spent €80.00 on groceries.",
	}}
	store := &fakeStore{txs: []core.Transaction{
		{ID: 1, Amount: core.Cents(-5000), Payee: "Tesco", Date: core.NewDate(2025, 2, 3), Type: core.TypeExpense},
		{ID: 2, Amount: core.Cents(-3000), Payee: "Lidl", Date: core.NewDate(2025, 2, 9), Type: core.TypeExpense},
	}}

	res, err := newTestService(model, store).Process(context.Background(), "How much did I spend on groceries last month?")
	require.NoError(t, err)

	assert.Equal(t, "You spent €80.00 on groceries.", res.Summary)
	assert.Equal(t, "sum", res.Analysis.Intent)
	assert.Equal(t, []string{"Groceries"}, res.Analysis.Categories)
	assert.Len(t, res.Transactions, 2)

	f := store.filter
	assert.Equal(t, core.TypeExpense, f.Type)
	assert.Equal(t, core.NewDate(2025, 2, 1), f.DateFrom)
	assert.Equal(t, core.NewDate(2025, 2, 28), f.DateTo)
	assert.True(t, f.OrderByAmount)
	assert.Equal(t, DefaultResultLimit, f.Limit)

	assert.Contains(t, res.DatabaseQuery, "category LIKE '%Groceries%'")
	assert.Contains(t, res.DatabaseQuery, "date >= '2025-02-01'")
	require.Len(t, model.prompts, 2)
	assert.Contains(t, model.prompts[0], "Categories: Groceries, Rent")
	assert.Contains(t, model.prompts[1], "Found 2 transactions, total €80.00")
	assert.Contains(t, model.prompts[1], "€50.00 to Tesco on 2025-02-03")
}

func TestProcessFallbacks(t *testing.T) {
	model := &scriptedModel{
		replies: []string{"I cannot help with that."},
		errs:    []error{nil, errors.New("quota exceeded")},
	}
	store := &fakeStore{txs: []core.Transaction{
		{ID: 1, Amount: core.Cents(250000), Payee: "ACME", Date: core.NewDate(2025, 3, 1), Type: core.TypeIncome},
	}}

	res, err := newTestService(model, store).Process(context.Background(), "show my salary")
	require.NoError(t, err)
	assert.Equal(t, "search", res.Analysis.Intent)
	assert.Equal(t, "income", res.Analysis.TransactionType)
	assert.Equal(t, core.TypeIncome, store.filter.Type)
	assert.False(t, store.filter.OrderByAmount)
	assert.True(t, store.filter.DateFrom.IsZero())
	assert.Equal(t, "Found 1 transactions totaling €2500.00.", res.Summary)
}

func TestProcessNoResults(t *testing.T) {
	model := &scriptedModel{replies: []string{`{"intent":"top"}`}}
	res, err := newTestService(model, &fakeStore{}).Process(context.Background(), "biggest purchases")
	require.NoError(t, err)
	assert.Equal(t, "No transactions found matching your query.", res.Summary)
	assert.Len(t, model.prompts, 1)
}

func TestProcessErrors(t *testing.T) {
	_, err := newTestService(&scriptedModel{}, &fakeStore{}).Process(context.Background(), "  ")
	assert.Error(t, err)

	model := &scriptedModel{errs: []error{errors.New("unavailable")}}
	_, err = newTestService(model, &fakeStore{}).Process(context.Background(), "anything")
	assert.ErrorContains(t, err, "analyze query")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Analysis
		wantOK bool
	}{
		{
			name:   "last object wins",
			input:  `{"intent":"search"} then {"intent":"count","payees":["Netflix"]}`,
			want:   Analysis{Intent: "count", Payees: []string{"Netflix"}},
			wantOK: true,
		},
		{
			name:   "bare keys",
			input:  `{intent: top, time_period: this_year}`,
			want:   Analysis{Intent: "top", TimePeriod: "this_year"},
			wantOK: true,
		},
		{
			name:   "nulls",
			input:  "```json\n{\"intent\":\"sum\",\"time_period\":null,\"transaction_type\":null}\n```",
			want:   Analysis{Intent: "sum"},
			wantOK: true,
		},
		{
			name:  "intent only",
			input: `intent: "Average" and more {broken`,
			want:  Analysis{Intent: "average"},
		},
		{
			name:  "nothing",
			input: "no idea",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordType(t *testing.T) {
	assert.Equal(t, core.TypeExpense, KeywordType("What did I spend on bills?"))
	assert.Equal(t, core.TypeIncome, KeywordType("Total revenue"))
	assert.Equal(t, core.TypeTransfer, KeywordType("Transfers to savings"))
	assert.Equal(t, core.TransactionType(""), KeywordType("show everything"))
}

func TestPeriodRange(t *testing.T) {
	today := core.NewDate(2024, 3, 10)
	tests := []struct {
		period   string
		from, to core.Date
	}{
		{"today", today, today},
		{"yesterday", core.NewDate(2024, 3, 9), core.NewDate(2024, 3, 9)},
		{"last_week", core.NewDate(2024, 3, 3), today},
		{"this_month", core.NewDate(2024, 3, 1), today},
		{"last_month", core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29)},
		{"this_year", core.NewDate(2024, 1, 1), today},
		{"last_year", core.NewDate(2023, 1, 1), core.NewDate(2023, 12, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			from, to, ok := PeriodRange(tt.period, today)
			require.True(t, ok)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
	_, _, ok := PeriodRange("next_decade", today)
	assert.False(t, ok)
}

func TestCustomDateRange(t *testing.T) {
	today := core.NewDate(2025, 6, 1)
	tests := []struct {
		input    string
		from, to core.Date
		ok       bool
	}{
		{"2024-03-15", core.NewDate(2024, 3, 15), core.NewDate(2024, 3, 15), true},
		{"2024-02", core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29), true},
		{"2024-12", core.NewDate(2024, 12, 1), core.NewDate(2024, 12, 31), true},
		{"March 2023", core.NewDate(2023, 3, 1), core.NewDate(2023, 3, 31), true},
		{"january", core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 31), true},
		{"2024-13", core.Date{}, core.Date{}, false},
		{"soon", core.Date{}, core.Date{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			from, to, ok := CustomDateRange(tt.input, today)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestDisplayQuery(t *testing.T) {
	q := DisplayQuery(storage.TransactionFilter{Payees: []string{"O'Brien?"}, Limit: 5})
	assert.Contains(t, q, "payee LIKE '%O''Brien?%'")
	assert.Contains(t, q, "LIMIT 5 OFFSET 0")
}
