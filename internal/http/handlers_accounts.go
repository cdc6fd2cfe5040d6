package http

import (
	"net/http"

	"moneytrack/internal/core"
)

type accountRequest struct {
	Name    *string     `json:"name"`
	Type    *string     `json:"type"`
	Balance *core.Money `json:"balance"`
}

// apply overlays the fields present in the request onto a.
func (req accountRequest) apply(a *core.Account) error {
	if req.Name != nil {
		a.Name = sanitizeInput(*req.Name)
	}
	if req.Type != nil {
		t, err := core.ParseAccountType(*req.Type)
		if err != nil {
			return err
		}
		a.Type = t
	}
	if req.Balance != nil {
		a.Balance = *req.Balance
	}
	return nil
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.Storage.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a := core.Account{Type: core.Checking}
	if err := req.apply(&a); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Transactions.CreateAccount(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.svc.Storage.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.svc.Storage.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.apply(&a); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Transactions.UpdateAccount(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Transactions.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
