package http

import (
	"net/http"

	"moneytrack/internal/core"
)

type transactionRequest struct {
	AccountID *int64      `json:"account_id"`
	Amount    *core.Money `json:"amount"`
	Date      *core.Date  `json:"date"`
	Type      *string     `json:"type"`
	Payee     *string     `json:"payee"`
	Category  *string     `json:"category"`
	Notes     *string     `json:"notes"`
	Project   *string     `json:"project"`
}

// apply overlays the request onto t. A missing type on a new transaction
// follows the sign of the amount.
func (req transactionRequest) apply(t *core.Transaction) error {
	if req.AccountID != nil {
		t.AccountID = *req.AccountID
	}
	if req.Amount != nil {
		t.Amount = *req.Amount
	}
	if req.Date != nil {
		t.Date = *req.Date
	}
	if req.Type != nil {
		typ, err := core.ParseTransactionType(*req.Type)
		if err != nil {
			return err
		}
		t.Type = typ
	} else if t.Type == "" || (req.Amount != nil && t.Type != core.TypeTransfer) {
		t.Type = core.TypeForAmount(t.Amount)
	}
	setText(&t.Payee, req.Payee)
	setText(&t.Category, req.Category)
	setText(&t.Notes, req.Notes)
	setText(&t.Project, req.Project)
	return nil
}

func setText(dst *string, src *string) {
	if src != nil {
		*dst = sanitizeInput(*src)
	}
}

type transferRequest struct {
	FromAccountID int64      `json:"from_account_id"`
	ToAccountID   int64      `json:"to_account_id"`
	Amount        core.Money `json:"amount"`
	Date          core.Date  `json:"date"`
	Category      string     `json:"category"`
	Notes         string     `json:"notes"`
	Project       string     `json:"project"`
}

type transferResponse struct {
	Transfer     core.Transfer      `json:"transfer"`
	Transactions []core.Transaction `json:"transactions"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseTransactionFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.svc.Storage.ListTransactions(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t := core.Transaction{Date: s.today()}
	if err := req.apply(&t); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Transactions.CreateTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Storage.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Storage.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.apply(&t); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Transactions.UpdateTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Transactions.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tr := core.Transfer{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount.Abs(),
		Date:          req.Date,
		Category:      sanitizeInput(req.Category),
		Notes:         sanitizeInput(req.Notes),
		Project:       sanitizeInput(req.Project),
	}
	if tr.Date.IsZero() {
		tr.Date = s.today()
	}
	created, legs, err := s.svc.Transactions.CreateTransfer(r.Context(), tr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transferResponse{Transfer: created, Transactions: legs})
}

func (s *Server) handleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Transactions.DeleteTransfer(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
