package importexport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"moneytrack/internal/core"
)

func TestWriteXLSX(t *testing.T) {
	accounts := []core.Account{
		{ID: 1, Name: "Checking", Type: core.Checking, Balance: core.Cents(12345)},
	}
	txs := []core.Transaction{
		{ID: 1, AccountID: 1, Amount: core.Cents(-1230), Date: core.NewDate(2025, 1, 2), Payee: "Grocer", Category: "Food"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, txs, accounts))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{transactionsSheet, accountsSheet}, f.GetSheetList())

	rows, err := f.GetRows(transactionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "Checking", rows[1][0])
	assert.Equal(t, "2025-01-02", rows[1][1])
	assert.Equal(t, "-12.3", rows[1][5])

	acc, err := f.GetRows(accountsSheet)
	require.NoError(t, err)
	require.Len(t, acc, 2)
	assert.Equal(t, []string{"Checking", "checking", "123.45"}, acc[1])
}
