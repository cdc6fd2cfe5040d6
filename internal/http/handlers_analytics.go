package http

import (
	"net/http"

	"moneytrack/internal/analytics"
)

// analyticsViews selects one part of the dashboard report.
var analyticsViews = map[string]func(analytics.Report) any{
	"stats":           func(r analytics.Report) any { return r.Stats },
	"categories":      func(r analytics.Report) any { return r.Categories },
	"monthly-trend":   func(r analytics.Report) any { return r.MonthlyTrend },
	"category-trends": func(r analytics.Report) any { return r.CategoryTrends },
	"net-worth":       func(r analytics.Report) any { return r.NetWorth },
	"savings-flow":    func(r analytics.Report) any { return r.SavingsFlow },
	"dashboard":       func(r analytics.Report) any { return r },
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	view := r.PathValue("view")
	q := r.URL.Query()
	f, err := parseAnalyticsFilters(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if view == "top-payees" {
		n, err := queryInt(q, "limit", analytics.DefaultTopPayees)
		if err != nil {
			writeError(w, r, err)
			return
		}
		payees, err := s.svc.Analytics.TopPayees(r.Context(), f, n)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payees)
		return
	}

	pick, ok := analyticsViews[view]
	if !ok {
		NotFoundError("unknown analytics view " + view).Write(w)
		return
	}
	report, err := s.svc.Analytics.Report(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pick(report))
}
