// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"moneytrack/internal/analytics"
	"moneytrack/internal/core"
	"moneytrack/internal/services"
	"moneytrack/internal/storage"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 32 << 20
)

// decodeJSON reads exactly one JSON value from the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return asBadRequest(errors.New("request body is empty"))
		}
		return asBadRequest(fmt.Errorf("invalid JSON body: %w", err))
	}
	if dec.More() {
		return asBadRequest(errors.New("request body must contain a single JSON value"))
	}
	return nil
}

// pathID parses a positive integer path wildcard.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, asBadRequest(fmt.Errorf("invalid %s %q", name, raw))
	}
	return id, nil
}

// queryInt returns the integer query value or def when absent.
func queryInt(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, asBadRequest(fmt.Errorf("invalid %s %q", key, v))
	}
	return n, nil
}

func queryDate(q url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, asBadRequest(fmt.Errorf("%s: %w", key, err))
	}
	return d, nil
}

// splitList splits a comma-separated query value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseAnalyticsFilters reads date_from, date_to and account_types.
func parseAnalyticsFilters(q url.Values) (analytics.Filters, error) {
	f, err := services.ParseFilters(
		strings.TrimSpace(q.Get("date_from")),
		strings.TrimSpace(q.Get("date_to")),
		splitList(q.Get("account_types")))
	if err != nil {
		return analytics.Filters{}, asBadRequest(err)
	}
	return f, nil
}

// parseTransactionFilter reads the transaction list query parameters.
func parseTransactionFilter(q url.Values) (storage.TransactionFilter, error) {
	var (
		f   storage.TransactionFilter
		err error
	)
	if v := strings.TrimSpace(q.Get("account_id")); v != "" {
		if f.AccountID, err = strconv.ParseInt(v, 10, 64); err != nil || f.AccountID <= 0 {
			return f, asBadRequest(fmt.Errorf("invalid account_id %q", v))
		}
	}
	if f.DateFrom, err = queryDate(q, "date_from"); err != nil {
		return f, err
	}
	if f.DateTo, err = queryDate(q, "date_to"); err != nil {
		return f, err
	}
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		if f.Type, err = core.ParseTransactionType(v); err != nil {
			return f, asBadRequest(err)
		}
	}
	f.Categories = splitList(q.Get("category"))
	f.Payees = splitList(q.Get("payee"))
	f.Project = sanitizeInput(q.Get("project"))
	f.Search = sanitizeInput(q.Get("search"))
	f.OrderByAmount = q.Get("order") == "amount"
	if f.Limit, err = queryInt(q, "limit", 0); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(q, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

// uploadReader returns the uploaded file: the "file" part of a multipart
// form, or the raw body otherwise.
func uploadReader(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, asBadRequest(fmt.Errorf("read upload: %w", err))
	}
	return file, nil
}

// sanitizeInput removes control characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
