package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytrack/internal/core"
)

func TestMonthlyTrend_NoGaps(t *testing.T) {
	in := Input{
		Transactions: []core.Transaction{
			tx(1, 1, core.NewDate(2024, 1, 5), 1000, core.TypeIncome, "", ""),
			tx(2, 1, core.NewDate(2024, 3, 9), -400, core.TypeExpense, "", "Food"),
		},
		Filters: Filters{DateFrom: core.NewDate(2024, 1, 1), DateTo: core.NewDate(2024, 3, 31)},
	}

	got := MonthlyTrend(in)

	assert.Equal(t, []string{"2024-01", "2024-02", "2024-03"}, got.Labels)
	assert.Equal(t, []core.Money{cents(1000), cents(0), cents(0)}, got.Income)
	assert.Equal(t, []core.Money{cents(0), cents(0), cents(400)}, got.Expenses)
}

func TestMonthlyTrend_WindowFromActivity(t *testing.T) {
	in := Input{Transactions: []core.Transaction{
		tx(1, 1, core.NewDate(2023, 12, 30), -100, core.TypeExpense, "", ""),
		tx(2, 1, core.NewDate(2024, 2, 1), -100, core.TypeExpense, "", ""),
	}}

	got := MonthlyTrend(in)

	assert.Equal(t, []string{"2023-12", "2024-01", "2024-02"}, got.Labels)
}

func TestMonthlyTrend_AxisCapped(t *testing.T) {
	in := Input{
		Transactions: []core.Transaction{tx(1, 1, core.NewDate(2024, 1, 5), -100, core.TypeExpense, "", "Food")},
		Filters:      Filters{DateTo: core.NewDate(9999, 12, 31)},
	}

	got := MonthlyTrend(in)
	require.Len(t, got.Labels, MaxMonths)
	assert.Equal(t, "9950-01", got.Labels[0])
	assert.Equal(t, "9999-12", got.Labels[MaxMonths-1])
	assert.Len(t, got.Expenses, MaxMonths)

	trends := CategoryTrends(in)
	assert.Len(t, trends.Labels, MaxMonths)
}

func TestFilters_Validate(t *testing.T) {
	tests := []struct {
		name string
		f    Filters
		want error
	}{
		{"unbounded", Filters{}, nil},
		{"one side", Filters{DateFrom: core.NewDate(1900, 1, 1)}, nil},
		{"fifty years", Filters{DateFrom: core.NewDate(2000, 1, 1), DateTo: core.NewDate(2049, 12, 31)}, nil},
		{"too long", Filters{DateFrom: core.NewDate(2000, 1, 1), DateTo: core.NewDate(2050, 1, 1)}, ErrWindowTooLarge},
		{"reversed", Filters{DateFrom: core.NewDate(2024, 2, 1), DateTo: core.NewDate(2024, 1, 1)}, ErrWindowReversed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMonthlyTrend_Empty(t *testing.T) {
	got := MonthlyTrend(Input{})
	assert.Empty(t, got.Labels)
	assert.NotNil(t, got.Income)
}

func TestMonthlyTrend_SavingsAndInvestments(t *testing.T) {
	d := core.NewDate(2024, 6, 15)
	in := Input{
		Accounts: []core.Account{
			{ID: 1, Type: core.Checking},
			{ID: 2, Type: core.Savings},
			{ID: 3, Type: core.Investment},
		},
		Transactions: []core.Transaction{
			tx(1, 1, d, -30000, core.TypeTransfer, "Savings", ""),
			tx(2, 2, d, 30000, core.TypeTransfer, "Checking", ""),
			tx(3, 1, d, -10000, core.TypeTransfer, "Broker", ""),
			tx(4, 3, d, 10000, core.TypeTransfer, "Checking", ""),
			tx(5, 1, d, -2500, core.TypeExpense, "Grocer", "Food"),
		},
	}

	trend := MonthlyTrend(in)
	assert.Equal(t, []core.Money{cents(30000)}, trend.Savings)
	assert.Equal(t, []core.Money{cents(10000)}, trend.Investments)
	assert.Equal(t, []core.Money{cents(2500)}, trend.Expenses)

	flow := SavingsFlow(in)
	assert.Equal(t, trend.Labels, flow.Labels)
	assert.Equal(t, []core.Money{cents(30000)}, flow.SavingsNet)
	assert.Equal(t, []core.Money{cents(2500)}, flow.OtherOutgoing)
}

func TestCategoryTrends_AlignedAxis(t *testing.T) {
	in := Input{
		Transactions: []core.Transaction{
			tx(1, 1, core.NewDate(2024, 1, 5), -100, core.TypeExpense, "", "Food"),
			tx(2, 1, core.NewDate(2024, 3, 9), -300, core.TypeExpense, "", "Rent"),
			tx(3, 1, core.NewDate(2024, 3, 10), -50, core.TypeExpense, "", "Food"),
			tx(4, 1, core.NewDate(2024, 2, 10), 900, core.TypeIncome, "", "Salary"),
		},
	}

	got := CategoryTrends(in)

	assert.Equal(t, MonthlyTrend(in).Labels, got.Labels)
	assert.Equal(t, []string{"Food", "Rent"}, got.Categories())
	assert.Equal(t, []core.Money{cents(100), cents(0), cents(50)}, got.Series["Food"])
	assert.Equal(t, []core.Money{cents(0), cents(0), cents(300)}, got.Series["Rent"])
}

func TestNetWorthSeries_Cumulative(t *testing.T) {
	in := Input{Transactions: []core.Transaction{
		tx(3, 1, core.NewDate(2024, 1, 3), -200, core.TypeExpense, "", ""),
		tx(1, 1, core.NewDate(2024, 1, 1), 1000, core.TypeIncome, "", ""),
		tx(2, 1, core.NewDate(2024, 1, 1), -100, core.TypeExpense, "", ""),
		tx(4, 1, core.NewDate(2024, 1, 5), 50, core.TypeIncome, "", ""),
	}}

	got := NetWorthSeries(in)

	require.Len(t, got, 3)
	assert.Equal(t, "2024-01-01", got[0].Date.String())
	assert.Equal(t, int64(900), got[0].Value.Cents)
	assert.Equal(t, int64(700), got[1].Value.Cents)
	assert.Equal(t, int64(750), got[2].Value.Cents)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Date.After(got[i-1].Date))
	}
}

func TestNetWorthSeries_IgnoresAccountBalances(t *testing.T) {
	in := Input{
		Accounts: fixtureAccounts(),
		Transactions: []core.Transaction{
			tx(1, 1, core.NewDate(2024, 1, 1), -300, core.TypeExpense, "", ""),
			tx(2, 2, core.NewDate(2024, 1, 2), 1000, core.TypeIncome, "", ""),
		},
	}

	got := NetWorthSeries(in)

	require.Len(t, got, 2)
	assert.Equal(t, int64(-300), got[0].Value.Cents)
	assert.Equal(t, int64(700), got[1].Value.Cents)
	assert.Equal(t, int64(630000), ComputeStats(in).TotalBalance.Cents)
}

func TestNetWorthSeries_OpeningValueBeforeWindow(t *testing.T) {
	in := Input{
		Transactions: []core.Transaction{
			tx(1, 1, core.NewDate(2023, 12, 1), 5000, core.TypeIncome, "", ""),
			tx(2, 1, core.NewDate(2024, 1, 10), -1000, core.TypeExpense, "", ""),
			tx(3, 1, core.NewDate(2024, 2, 10), -1000, core.TypeExpense, "", ""),
		},
		Filters: Filters{DateFrom: core.NewDate(2024, 1, 1), DateTo: core.NewDate(2024, 1, 31)},
	}

	got := NetWorthSeries(in)

	require.Len(t, got, 1)
	assert.Equal(t, int64(4000), got[0].Value.Cents)
}

func TestNetWorthSeries_Empty(t *testing.T) {
	got := NetWorthSeries(Input{})
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDashboard(t *testing.T) {
	in := Input{
		Accounts: fixtureAccounts(),
		Transactions: []core.Transaction{
			tx(1, 1, core.NewDate(2024, 1, 5), -100, core.TypeExpense, "Grocer", "Food"),
		},
	}

	r := Dashboard(in)

	assert.Equal(t, int64(100), r.Stats.MonthlyExpenses.Cents)
	assert.Len(t, r.Categories, 1)
	assert.Len(t, r.TopPayees, 1)
	assert.Equal(t, []string{"2024-01"}, r.MonthlyTrend.Labels)
	assert.Len(t, r.NetWorth, 1)
}
