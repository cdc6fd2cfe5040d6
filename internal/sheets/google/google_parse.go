package google

import (
	"fmt"
	"strconv"
	"strings"
)

// rowOf returns the 1-based sheet row whose first cell holds id, or 0.
// The values come from a read of column A starting at A1.
func rowOf(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

// hasHeader reports whether the first row already starts with the header.
func hasHeader(values [][]any, header []string) bool {
	if len(values) == 0 || len(values[0]) < len(header) {
		return false
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(fmt.Sprint(values[0][i])), h) {
			return false
		}
	}
	return true
}

// columnRange renders a row range across the mirror's columns, e.g.
// "Transactions!A7:I7".
func columnRange(sheet string, row, width int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), row, columnLetter(width), row)
}

func columnLetter(n int) string {
	var s string
	for n > 0 {
		n--
		s = string(rune('A'+n%26)) + s
		n /= 26
	}
	return s
}

// quoteSheet wraps names with spaces or punctuation in single quotes, as A1
// notation requires.
func quoteSheet(name string) string {
	for _, r := range name {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			return "'" + strings.ReplaceAll(name, "'", "''") + "'"
		}
	}
	return name
}
