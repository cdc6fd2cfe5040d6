package http

import (
	"context"
	"encoding/json"
	"net/http"

	"moneytrack/internal/core"
)

type nameRequest struct {
	Name string `json:"name"`
}

type projectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Notes       *string `json:"notes"`
}

func (req projectRequest) apply(p *core.Project) {
	setText(&p.Name, req.Name)
	setText(&p.Description, req.Description)
	setText(&p.Category, req.Category)
	setText(&p.Notes, req.Notes)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Storage.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Storage.CreateCategory(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.svc.Storage.DeleteCategory)
}

func (s *Server) handleListPayees(w http.ResponseWriter, r *http.Request) {
	payees, err := s.svc.Storage.ListPayees(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payees)
}

func (s *Server) handleCreatePayee(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Storage.CreatePayee(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleDeletePayee(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.svc.Storage.DeletePayee)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.svc.Storage.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var p core.Project
	req.apply(&p)
	created, err := s.svc.Storage.CreateProject(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Storage.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleUpdateProject renames carry over to tagged transactions, so the
// analytics cache is dropped too.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Storage.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.apply(&p)
	updated, err := s.svc.Storage.UpdateProject(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Analytics.Invalidate()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.svc.Storage.DeleteProject)
}

func (s *Server) handleProjectSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.svc.Analytics.ProjectSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Storage.GetSettings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleSaveSettings upserts the posted keys and returns the full set.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]json.RawMessage
	if err := decodeJSON(w, r, &values); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Storage.SaveSettings(r.Context(), values); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleGetSettings(w, r)
}

func (s *Server) deleteByID(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id int64) error) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
