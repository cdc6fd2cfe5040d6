package importexport

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"moneytrack/internal/core"
)

var (
	severityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	bareTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// normalizeOFX repairs formatting quirks some banks emit and ofxgo rejects.
func normalizeOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	return bareTagRe.ReplaceAllString(content, "$1>")
}

// ParseOFX reads bank and credit card statements from an OFX/QFX file and
// returns rows booked on account. Statement account numbers are ignored;
// the caller chooses the target account.
func ParseOFX(r io.Reader, account string) (ParseResult, error) {
	if strings.TrimSpace(account) == "" {
		return ParseResult{}, core.ErrMissingAccount
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return ParseResult{}, fmt.Errorf("read ofx: %w", err)
	}
	resp, err := ofxgo.ParseResponse(strings.NewReader(normalizeOFX(string(content))))
	if err != nil {
		return ParseResult{}, fmt.Errorf("parse ofx: %w", err)
	}

	res := ParseResult{Rows: []core.ImportRow{}}
	add := func(list *ofxgo.TransactionList) {
		if list == nil {
			return
		}
		for _, tx := range list.Transactions {
			row, err := ofxRow(tx, account)
			if err != nil {
				slog.Debug("Skipping OFX transaction", "fitid", string(tx.FiTID), "error", err)
				res.Skipped++
				continue
			}
			res.Rows = append(res.Rows, row)
		}
	}
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(stmt.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(stmt.BankTranList)
		}
	}
	return res, nil
}

func ofxRow(tx ofxgo.Transaction, account string) (core.ImportRow, error) {
	amount, err := core.ParseMoney(tx.TrnAmt.FloatString(2))
	if err != nil {
		return core.ImportRow{}, err
	}
	if amount.IsZero() {
		return core.ImportRow{}, core.ErrInvalidAmount
	}
	if tx.DtPosted.IsZero() {
		return core.ImportRow{}, core.ErrInvalidDate
	}

	payee := strings.TrimSpace(string(tx.Name))
	if tx.Payee != nil && strings.TrimSpace(string(tx.Payee.Name)) != "" {
		payee = strings.TrimSpace(string(tx.Payee.Name))
	}
	notes := strings.TrimSpace(string(tx.Memo))
	if payee == "" {
		payee, notes = notes, ""
	}

	return core.ImportRow{
		Account: account,
		Date:    core.DateOf(tx.DtPosted.Time),
		Payee:   payee,
		Notes:   notes,
		Amount:  amount,
		Type:    core.TypeForAmount(amount),
	}, nil
}
