package http

import (
	"errors"
	"net/http"
)

const maxQueryLen = 500

type aiQueryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAIQuery(w http.ResponseWriter, r *http.Request) {
	if s.svc.AI == nil {
		ServiceUnavailableError("AI queries are not configured").Write(w)
		return
	}
	var req aiQueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	q := sanitizeInput(req.Query)
	switch {
	case q == "":
		writeError(w, r, asBadRequest(errors.New("query is required")))
		return
	case len([]rune(q)) > maxQueryLen:
		writeError(w, r, asBadRequest(errors.New("query is too long")))
		return
	}
	res, err := s.svc.AI.Process(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
