// Package importexport converts the ledger to and from CSV, XLSX and OFX.
package importexport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"moneytrack/internal/core"
)

// Columns is the CSV header used for export, and the set of names the
// importer looks for. Project is optional on import.
var Columns = []string{"Account", "Date", "Payee", "Notes", "Category", "Amount", "Project"}

var requiredColumns = []string{"Account", "Date", "Amount"}

var ErrMissingColumn = errors.New("missing required column")

// extra layouts tolerated in spreadsheets saved by hand
var dateLayouts = []string{core.DateLayout, "2006/01/02", time.RFC3339, "2006-01-02 15:04:05"}

// ParseResult holds the rows read from a file and how many were dropped.
type ParseResult struct {
	Rows    []core.ImportRow
	Skipped int
}

// ParseCSV reads rows by header name. Empty rows, rows with a zero amount
// and rows that fail to parse are counted in Skipped. Detected transfer
// pairs have their Pair set.
func ParseCSV(r io.Reader) (ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ParseResult{}, fmt.Errorf("empty csv: %w", ErrMissingColumn)
		}
		return ParseResult{}, fmt.Errorf("read csv header: %w", err)
	}
	index := map[string]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		index[h] = i
	}
	for _, c := range requiredColumns {
		if _, ok := index[strings.ToLower(c)]; !ok {
			return ParseResult{}, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := index[strings.ToLower(name)]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	res := ParseResult{Rows: []core.ImportRow{}}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Skipped++
				continue
			}
			return ParseResult{}, fmt.Errorf("read csv: %w", err)
		}
		if blank(rec) {
			res.Skipped++
			continue
		}

		row, err := parseRow(
			field(rec, "Account"),
			field(rec, "Date"),
			field(rec, "Amount"),
		)
		if err != nil {
			res.Skipped++
			continue
		}
		row.Payee = field(rec, "Payee")
		row.Notes = field(rec, "Notes")
		row.Category = field(rec, "Category")
		row.Project = field(rec, "Project")
		res.Rows = append(res.Rows, row)
	}

	DetectTransfers(res.Rows)
	return res, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseRow(account, date, amount string) (core.ImportRow, error) {
	if account == "" {
		return core.ImportRow{}, core.ErrMissingAccount
	}
	d, err := parseDate(date)
	if err != nil {
		return core.ImportRow{}, err
	}
	m, err := core.ParseMoney(amount)
	if err != nil {
		return core.ImportRow{}, err
	}
	if m.IsZero() {
		return core.ImportRow{}, core.ErrInvalidAmount
	}
	return core.ImportRow{
		Account: account,
		Date:    d,
		Amount:  m,
		Type:    core.TypeForAmount(m),
	}, nil
}

func parseDate(s string) (core.Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), nil
		}
	}
	return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

// DetectTransfers pairs rows that look like the two sides of one transfer:
// same date, same magnitude, opposite signs, different accounts, and the
// payees name each other's account (or one names the other and the other
// is blank). Paired rows get Type transfer and a 1-based Pair index.
func DetectTransfers(rows []core.ImportRow) int {
	type key struct {
		date  string
		cents int64
	}
	groups := map[key][]int{}
	var order []key
	for i, r := range rows {
		k := key{r.Date.String(), r.Amount.Abs().Cents}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	pairs := 0
	for _, k := range order {
		idx := groups[k]
		for a := 0; a < len(idx); a++ {
			i := idx[a]
			if rows[i].Pair != 0 {
				continue
			}
			for b := a + 1; b < len(idx); b++ {
				j := idx[b]
				if rows[j].Pair != 0 || !isTransferPair(rows[i], rows[j]) {
					continue
				}
				rows[i].Pair, rows[j].Pair = j+1, i+1
				rows[i].Type, rows[j].Type = core.TypeTransfer, core.TypeTransfer
				pairs++
				break
			}
		}
	}
	return pairs
}

func isTransferPair(x, y core.ImportRow) bool {
	if x.Amount.Sign()*y.Amount.Sign() >= 0 {
		return false
	}
	if strings.EqualFold(x.Account, y.Account) {
		return false
	}
	xNamesY := strings.EqualFold(strings.TrimSpace(x.Payee), strings.TrimSpace(y.Account))
	yNamesX := strings.EqualFold(strings.TrimSpace(y.Payee), strings.TrimSpace(x.Account))
	switch {
	case xNamesY && yNamesX:
		return true
	case xNamesY && strings.TrimSpace(y.Payee) == "":
		return true
	case yNamesX && strings.TrimSpace(x.Payee) == "":
		return true
	}
	return false
}

// exportRecord renders one transaction in Columns order.
func exportRecord(t core.Transaction, accounts map[int64]string) []string {
	return []string{
		accounts[t.AccountID],
		t.Date.String(),
		t.Payee,
		t.Notes,
		t.Category,
		t.Amount.String(),
		t.Project,
	}
}

// WriteCSV writes transactions in the importer's format. accounts maps
// account IDs to names.
func WriteCSV(w io.Writer, txs []core.Transaction, accounts map[int64]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txs {
		if err := cw.Write(exportRecord(t, accounts)); err != nil {
			return fmt.Errorf("write csv row %d: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
