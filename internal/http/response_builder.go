// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"moneytrack/internal/backup"
	"moneytrack/internal/core"
	"moneytrack/internal/importexport"
	"moneytrack/internal/log"
	"moneytrack/internal/recurring"
	"moneytrack/internal/services"
	"moneytrack/internal/storage"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes none.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write encodes the body first so an encoding failure can still become a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", log.FieldError, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// badRequest marks malformed input: undecodable bodies, bad query values,
// unusable uploads.
type badRequest struct {
	err error
}

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

func asBadRequest(err error) error {
	if err == nil {
		return nil
	}
	return &badRequest{err: err}
}

var validationErrors = []error{
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrEmptyName,
	core.ErrTextTooLong,
	core.ErrInvalidAccountType,
	core.ErrInvalidTransactionType,
	core.ErrInvalidFrequency,
	core.ErrMissingAccount,
	core.ErrSameAccount,
	core.ErrEndBeforeStart,
	recurring.ErrInvalidTemplate,
}

var conflictErrors = []error{
	storage.ErrAccountInUse,
	storage.ErrStaleTemplate,
	storage.ErrDuplicateName,
	storage.ErrTransferLeg,
}

var inputErrors = []error{
	importexport.ErrMissingColumn,
	services.ErrNoRows,
	services.ErrNotSQLiteFile,
	backup.ErrInvalidName,
	storage.ErrSchemaMismatch,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	var bad *badRequest
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, backup.ErrNotFound):
		return http.StatusNotFound
	case isAny(err, conflictErrors):
		return http.StatusConflict
	case isAny(err, validationErrors):
		return http.StatusUnprocessableEntity
	case isAny(err, inputErrors):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return log.ErrorTypeBadInput
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	case http.StatusConflict:
		return log.ErrorTypeConflict
	case http.StatusUnprocessableEntity:
		return log.ErrorTypeValidation
	}
	return log.ErrorTypeInternal
}

// writeError maps err to a response. Server errors are logged in full and
// answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	ctx := r.Context()
	if status >= 500 {
		log.LogError(ctx, "Request failed", err, errorType(status),
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, ""))
		InternalServerError().Write(w)
		return
	}
	log.FromContext(ctx).WarnContext(ctx, "Request rejected",
		log.FieldStatus, status,
		log.FieldError, err.Error(),
		"error_type", errorType(status))
	ErrorResponse(status, err.Error()).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}
