package importexport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytrack/internal/core"
)

func TestParseCSV(t *testing.T) {
	input := "Account,Date,Payee,Notes,Category,Amount\n" +
		"Checking,2025-01-05,Grocer,weekly shop,Food,-45.50\n" +
		",,,,,\n" +
		"Checking,2025-01-06,Nobody,,,0\n" +
		"Checking,not-a-date,Grocer,,Food,-1\n" +
		"Checking,2025/01/07,Employer,,Salary,\"2,500.00\"\n" +
		"Card,2025-01-08,Cafe,,,\"-3,20\"\n"

	res, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.Rows, 3)

	first := res.Rows[0]
	assert.Equal(t, "Checking", first.Account)
	assert.Equal(t, core.NewDate(2025, 1, 5), first.Date)
	assert.Equal(t, int64(-4550), first.Amount.Cents)
	assert.Equal(t, core.TypeExpense, first.Type)
	assert.Equal(t, "weekly shop", first.Notes)

	assert.Equal(t, int64(250000), res.Rows[1].Amount.Cents)
	assert.Equal(t, core.TypeIncome, res.Rows[1].Type)
	assert.Equal(t, core.NewDate(2025, 1, 7), res.Rows[1].Date)
}

func TestParseCSV_MissingColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Account,Payee\nChecking,Grocer\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseCSV_HeaderCaseAndBOM(t *testing.T) {
	res, err := ParseCSV(strings.NewReader("\ufeffaccount,DATE,amount,project\nSavings,2025-02-01,10,Roof\n"))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Roof", res.Rows[0].Project)
}

func TestDetectTransfers(t *testing.T) {
	d := core.NewDate(2025, 3, 1)
	tests := []struct {
		name string
		rows []core.ImportRow
		want int
	}{
		{
			name: "payees name each other",
			rows: []core.ImportRow{
				{Account: "Checking", Date: d, Payee: "Savings", Amount: core.Cents(-1000)},
				{Account: "Savings", Date: d, Payee: "Checking", Amount: core.Cents(1000)},
			},
			want: 1,
		},
		{
			name: "one payee blank",
			rows: []core.ImportRow{
				{Account: "Checking", Date: d, Payee: "savings", Amount: core.Cents(-1000)},
				{Account: "Savings", Date: d, Amount: core.Cents(1000)},
			},
			want: 1,
		},
		{
			name: "same sign",
			rows: []core.ImportRow{
				{Account: "Checking", Date: d, Payee: "Savings", Amount: core.Cents(-1000)},
				{Account: "Savings", Date: d, Payee: "Checking", Amount: core.Cents(-1000)},
			},
		},
		{
			name: "different dates",
			rows: []core.ImportRow{
				{Account: "Checking", Date: d, Payee: "Savings", Amount: core.Cents(-1000)},
				{Account: "Savings", Date: d.AddDays(1), Payee: "Checking", Amount: core.Cents(1000)},
			},
		},
		{
			name: "unrelated payees",
			rows: []core.ImportRow{
				{Account: "Checking", Date: d, Payee: "Shop", Amount: core.Cents(-1000)},
				{Account: "Savings", Date: d, Payee: "Refund", Amount: core.Cents(1000)},
			},
		},
		{
			name: "same account",
			rows: []core.ImportRow{
				{Account: "Checking", Date: d, Payee: "Checking", Amount: core.Cents(-1000)},
				{Account: "Checking", Date: d, Payee: "Checking", Amount: core.Cents(1000)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectTransfers(tt.rows)
			assert.Equal(t, tt.want, got)
			if tt.want == 1 {
				assert.Equal(t, 2, tt.rows[0].Pair)
				assert.Equal(t, 1, tt.rows[1].Pair)
				assert.Equal(t, core.TypeTransfer, tt.rows[0].Type)
			} else {
				assert.Zero(t, tt.rows[0].Pair)
				assert.Zero(t, tt.rows[1].Pair)
			}
		})
	}
}

func TestDetectTransfers_EachRowPairsOnce(t *testing.T) {
	d := core.NewDate(2025, 3, 1)
	rows := []core.ImportRow{
		{Account: "Checking", Date: d, Payee: "Savings", Amount: core.Cents(-500)},
		{Account: "Savings", Date: d, Payee: "Checking", Amount: core.Cents(500)},
		{Account: "Savings", Date: d, Payee: "Checking", Amount: core.Cents(500)},
	}
	assert.Equal(t, 1, DetectTransfers(rows))
	assert.Zero(t, rows[2].Pair)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	txs := []core.Transaction{
		{ID: 2, AccountID: 1, Amount: core.Cents(-1230), Date: core.NewDate(2025, 1, 2), Payee: "Grocer, Inc", Category: "Food", Project: "Home"},
		{ID: 1, AccountID: 2, Amount: core.Cents(5000), Date: core.NewDate(2025, 1, 1), Payee: "Employer", Notes: "bonus"},
	}
	names := map[int64]string{1: "Checking", 2: "Savings"}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, txs, names))
	assert.True(t, strings.HasPrefix(buf.String(), "Account,Date,Payee,Notes,Category,Amount,Project\n"))
	assert.Contains(t, buf.String(), `Checking,2025-01-02,"Grocer, Inc",,Food,-12.30,Home`)

	res, err := ParseCSV(&buf)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Grocer, Inc", res.Rows[0].Payee)
	assert.Equal(t, int64(-1230), res.Rows[0].Amount.Cents)
	assert.Equal(t, "Home", res.Rows[0].Project)
	assert.Equal(t, "Savings", res.Rows[1].Account)
	assert.Equal(t, "bonus", res.Rows[1].Notes)
}
