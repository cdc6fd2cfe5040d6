package http

import (
	"net/http"
	"strconv"

	"moneytrack/internal/core"
)

type recurringRequest struct {
	AccountID         *int64      `json:"account_id"`
	TransferAccountID *int64      `json:"transfer_account_id"`
	Type              *string     `json:"type"`
	Amount            *core.Money `json:"amount"`
	IncrementAmount   *core.Money `json:"increment_amount"`
	Frequency         *string     `json:"frequency"`
	NextDate          *core.Date  `json:"next_date"`
	EndDate           *core.Date  `json:"end_date"`
	AnchorDay         *int        `json:"anchor_day"`
	Payee             *string     `json:"payee"`
	Category          *string     `json:"category"`
	Notes             *string     `json:"notes"`
	Project           *string     `json:"project"`
	Active            *bool       `json:"active"`
}

func (req recurringRequest) apply(t *core.RecurringTemplate) error {
	if req.AccountID != nil {
		t.AccountID = *req.AccountID
	}
	if req.TransferAccountID != nil {
		t.TransferAccountID = *req.TransferAccountID
	}
	if req.Type != nil {
		typ, err := core.ParseTransactionType(*req.Type)
		if err != nil {
			return err
		}
		t.Type = typ
	}
	if req.Amount != nil {
		t.Amount = req.Amount.Abs()
	}
	if req.IncrementAmount != nil {
		t.IncrementAmount = *req.IncrementAmount
	}
	if req.Frequency != nil {
		f, err := core.ParseFrequency(*req.Frequency)
		if err != nil {
			return err
		}
		t.Frequency = f
	}
	if req.NextDate != nil {
		t.NextDate = *req.NextDate
		if req.AnchorDay == nil {
			t.AnchorDay = t.NextDate.Day()
		}
	}
	if req.EndDate != nil {
		t.EndDate = *req.EndDate
	}
	if req.AnchorDay != nil {
		t.AnchorDay = *req.AnchorDay
	}
	setText(&t.Payee, req.Payee)
	setText(&t.Category, req.Category)
	setText(&t.Notes, req.Notes)
	setText(&t.Project, req.Project)
	if req.Active != nil {
		t.Active = *req.Active
	}
	return nil
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if v := r.URL.Query().Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, asBadRequest(err))
			return
		}
		activeOnly = b
	}
	templates, err := s.svc.Storage.ListRecurring(r.Context(), activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t := core.RecurringTemplate{
		Type:      core.TypeExpense,
		Frequency: core.Monthly,
		Active:    true,
	}
	if err := req.apply(&t); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Storage.CreateRecurring(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Storage.GetRecurring(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Storage.GetRecurring(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.apply(&t); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Storage.UpdateRecurring(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Storage.DeleteRecurring(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleProcessRecurring materializes every template due on or before the
// date parameter, today by default.
func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	today, err := queryDate(r.URL.Query(), "date")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if today.IsZero() {
		today = s.today()
	}
	report, err := s.svc.Recurring.ProcessDue(r.Context(), today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
