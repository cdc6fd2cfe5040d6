package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"moneytrack/internal/backup"
	"moneytrack/internal/log"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeDB   = "application/vnd.sqlite3"
)

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

// handleExport serves the ledger as csv, xlsx or a raw database snapshot.
// Spreadsheet exports are buffered so a failure still yields an error status.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	base := strings.TrimSuffix(s.svc.Data.ExportName(), ".db")

	switch format := r.PathValue("format"); format {
	case "csv", "xlsx":
		var buf bytes.Buffer
		var err error
		if format == "csv" {
			err = s.svc.Data.ExportCSV(ctx, &buf)
		} else {
			err = s.svc.Data.ExportXLSX(ctx, &buf)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		contentType := contentTypeCSV
		if format == "xlsx" {
			contentType = contentTypeXLSX
		}
		attachment(w, contentType, base+"."+format)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	case "db":
		attachment(w, contentTypeDB, base+".db")
		if err := s.svc.Data.ExportDB(ctx, w); err != nil {
			// Headers are gone; the client sees a truncated body.
			log.LogError(ctx, "Database export failed", err, log.ErrorTypeInternal, nil)
		}
	default:
		NotFoundError("unknown export format " + format).Write(w)
	}
}

type dbImportResponse struct {
	Message          string       `json:"message"`
	PreRestoreBackup *backup.Info `json:"pre_restore_backup,omitempty"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	format := r.PathValue("format")
	if format != "csv" && format != "ofx" && format != "db" {
		NotFoundError("unknown import format " + format).Write(w)
		return
	}
	account := sanitizeInput(r.URL.Query().Get("account"))
	if format == "ofx" && account == "" {
		writeError(w, r, asBadRequest(errors.New("account parameter is required for OFX imports")))
		return
	}

	body, err := uploadReader(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	switch format {
	case "csv", "ofx":
		var summary any
		if format == "csv" {
			summary, err = s.svc.Data.ImportCSV(ctx, body)
		} else {
			summary, err = s.svc.Data.ImportOFX(ctx, body, account)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	case "db":
		pre, err := s.svc.Data.ImportDB(ctx, body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dbImportResponse{Message: "Database imported", PreRestoreBackup: pre})
	}
}

func (s *Server) requireBackups(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.svc.Backups == nil {
			ServiceUnavailableError("backups are not configured").Write(w)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.svc.Backups.List()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if backups == nil {
		backups = []backup.Info{}
	}
	writeJSON(w, http.StatusOK, backups)
}

func (s *Server) handleBackupStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Backups.Status()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleCreateBackup accepts an optional {"name": "..."} body.
func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	info, err := s.svc.Backups.Create(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

type restoreResponse struct {
	Restored         string      `json:"restored"`
	PreRestoreBackup backup.Info `json:"pre_restore_backup"`
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	pre, err := s.svc.Backups.Restore(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Analytics.Invalidate()
	writeJSON(w, http.StatusOK, restoreResponse{Restored: name, PreRestoreBackup: pre})
}
