package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"moneytrack/internal/core"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "valid", body: `{"name":"Food"}`, want: "Food"},
		{name: "empty body", body: "", wantErr: true},
		{name: "unknown field", body: `{"name":"Food","extra":1}`, wantErr: true},
		{name: "trailing value", body: `{"name":"a"}{"name":"b"}`, wantErr: true},
		{name: "malformed", body: `{"name":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var got payload
			err := decodeJSON(httptest.NewRecorder(), req, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if StatusFor(err) != http.StatusBadRequest {
					t.Errorf("status = %d, want 400", StatusFor(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("Name = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{value: "42", want: 42},
		{value: "0", wantErr: true},
		{value: "-3", wantErr: true},
		{value: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("id", tt.value)
			got, err := pathID(req, "id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("id = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseTransactionFilter(t *testing.T) {
	q := url.Values{
		"account_id": {"3"},
		"date_from":  {"2025-01-01"},
		"date_to":    {"2025-01-31"},
		"type":       {"Expense"},
		"category":   {"Food, Travel,"},
		"search":     {"  coffee\x00 "},
		"limit":      {"20"},
		"offset":     {"40"},
	}
	f, err := parseTransactionFilter(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.AccountID != 3 || f.Limit != 20 || f.Offset != 40 {
		t.Errorf("got account %d limit %d offset %d", f.AccountID, f.Limit, f.Offset)
	}
	if !f.DateFrom.Equal(core.NewDate(2025, 1, 1)) || !f.DateTo.Equal(core.NewDate(2025, 1, 31)) {
		t.Errorf("dates = %s..%s", f.DateFrom, f.DateTo)
	}
	if f.Type != core.TypeExpense {
		t.Errorf("Type = %q", f.Type)
	}
	if len(f.Categories) != 2 || f.Categories[0] != "Food" || f.Categories[1] != "Travel" {
		t.Errorf("Categories = %v", f.Categories)
	}
	if f.Search != "coffee" {
		t.Errorf("Search = %q", f.Search)
	}

	bad := []url.Values{
		{"account_id": {"x"}},
		{"date_from": {"2025-02-30"}},
		{"type": {"refund"}},
		{"limit": {"-1"}},
	}
	for _, q := range bad {
		if _, err := parseTransactionFilter(q); StatusFor(err) != http.StatusBadRequest {
			t.Errorf("%v: status = %d, want 400", q, StatusFor(err))
		}
	}
}

func TestParseAnalyticsFilters(t *testing.T) {
	f, err := parseAnalyticsFilters(url.Values{"account_types": {"checking,savings"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.AccountTypes.Has(core.Checking) || !f.AccountTypes.Has(core.Savings) || f.AccountTypes.Has(core.Credit) {
		t.Errorf("AccountTypes = %v", f.AccountTypes.Sorted())
	}

	if _, err := parseAnalyticsFilters(url.Values{"account_types": {"crypto"}}); StatusFor(err) != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", StatusFor(err))
	}

	wide := url.Values{"date_from": {"0001-02-01"}, "date_to": {"9999-12-31"}}
	if _, err := parseAnalyticsFilters(wide); StatusFor(err) != http.StatusBadRequest {
		t.Errorf("wide window status = %d, want 400", StatusFor(err))
	}
}

func TestUploadReader(t *testing.T) {
	t.Run("raw body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a,b"))
		req.Header.Set("Content-Type", "text/csv")
		rc, err := uploadReader(httptest.NewRecorder(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(rc)
		if buf.String() != "a,b" {
			t.Errorf("body = %q", buf.String())
		}
	})

	t.Run("multipart file", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, _ := mw.CreateFormFile("file", "ledger.csv")
		_, _ = fw.Write([]byte("x,y"))
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rc, err := uploadReader(httptest.NewRecorder(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(rc)
		if buf.String() != "x,y" {
			t.Errorf("body = %q", buf.String())
		}
	})

	t.Run("multipart without file", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		_ = mw.WriteField("other", "1")
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		_, err := uploadReader(httptest.NewRecorder(), req)
		var bad *badRequest
		if !errors.As(err, &bad) {
			t.Errorf("err = %v, want bad request", err)
		}
	})
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{"tab\tkept", "tab\tkept"},
		{"nul\x00byte", "nulbyte"},
		{"bell\x07", "bell"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
