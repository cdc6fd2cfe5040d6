package aiquery

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"moneytrack/internal/core"
)

var (
	dayRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	monthRe = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	yearRe  = regexp.MustCompile(`\b(20\d{2})\b`)
)

// PeriodRange resolves a named period relative to today. Both ends are
// inclusive.
func PeriodRange(period string, today core.Date) (from, to core.Date, ok bool) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "today":
		return today, today, true
	case "yesterday":
		y := today.AddDays(-1)
		return y, y, true
	case "last_week":
		return today.AddDays(-7), today, true
	case "this_month":
		return today.FirstOfMonth(), today, true
	case "last_month":
		end := today.FirstOfMonth().AddDays(-1)
		return end.FirstOfMonth(), end, true
	case "this_year":
		return core.NewDate(today.Year(), 1, 1), today, true
	case "last_year":
		y := today.Year() - 1
		return core.NewDate(y, 1, 1), core.NewDate(y, 12, 31), true
	}
	return core.Date{}, core.Date{}, false
}

// CustomDateRange parses YYYY-MM-DD, YYYY-MM, or an English month name with
// an optional year ("march 2024"). A month without a year is in today's year.
func CustomDateRange(s string, today core.Date) (from, to core.Date, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case dayRe.MatchString(s):
		d, err := core.ParseDate(s)
		if err != nil {
			return core.Date{}, core.Date{}, false
		}
		return d, d, true
	case monthRe.MatchString(s):
		m := monthRe.FindStringSubmatch(s)
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return core.Date{}, core.Date{}, false
		}
		start := core.NewDate(year, month, 1)
		return start, start.EndOfMonth(), true
	}

	for month := time.January; month <= time.December; month++ {
		if !strings.Contains(s, strings.ToLower(month.String())) {
			continue
		}
		year := today.Year()
		if m := yearRe.FindStringSubmatch(s); m != nil {
			year, _ = strconv.Atoi(m[1])
		}
		start := core.NewDate(year, int(month), 1)
		return start, start.EndOfMonth(), true
	}
	return core.Date{}, core.Date{}, false
}
