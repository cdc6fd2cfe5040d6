package importexport

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"moneytrack/internal/core"
)

const (
	transactionsSheet = "Transactions"
	accountsSheet     = "Accounts"
)

var columnWidths = map[string]float64{
	"A": 20, "B": 12, "C": 25, "D": 35, "E": 18, "F": 12, "G": 18,
}

// WriteXLSX writes a workbook with a Transactions sheet in Columns order
// and an Accounts sheet with current balances.
func WriteXLSX(w io.Writer, txs []core.Transaction, accounts []core.Account) error {
	f := excelize.NewFile()
	defer f.Close()

	names := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}

	if err := writeRow(f, transactionsSheet, 1, toAny(Columns)); err != nil {
		return err
	}
	for i, t := range txs {
		row := []any{
			names[t.AccountID],
			t.Date.String(),
			t.Payee,
			t.Notes,
			t.Category,
			t.Amount.Decimal().InexactFloat64(),
			t.Project,
		}
		if err := writeRow(f, transactionsSheet, i+2, row); err != nil {
			return err
		}
	}
	for col, width := range columnWidths {
		if err := f.SetColWidth(transactionsSheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if _, err := f.NewSheet(accountsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeRow(f, accountsSheet, 1, []any{"Account", "Type", "Balance"}); err != nil {
		return err
	}
	for i, a := range accounts {
		if err := writeRow(f, accountsSheet, i+2, []any{a.Name, string(a.Type), a.Balance.Decimal().InexactFloat64()}); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(accountsSheet, "A", "A", 25); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
