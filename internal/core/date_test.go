package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name   string
		from   Date
		n      int
		anchor int
		want   Date
	}{
		{"leap february", NewDate(2024, 1, 31), 1, 31, NewDate(2024, 2, 29)},
		{"back to anchor", NewDate(2024, 2, 29), 1, 31, NewDate(2024, 3, 31)},
		{"non leap february", NewDate(2023, 1, 31), 1, 31, NewDate(2023, 2, 28)},
		{"thirty day month", NewDate(2024, 3, 31), 1, 31, NewDate(2024, 4, 30)},
		{"quarter", NewDate(2024, 11, 30), 3, 30, NewDate(2025, 2, 28)},
		{"year from leap day", NewDate(2024, 2, 29), 12, 29, NewDate(2025, 2, 28)},
		{"year rollover", NewDate(2024, 12, 15), 1, 15, NewDate(2025, 1, 15)},
		{"anchor defaults to day", NewDate(2024, 5, 10), 1, 0, NewDate(2024, 6, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.from.AddMonthsClamped(tt.n, tt.anchor)
			if !got.Equal(tt.want) {
				t.Errorf("AddMonthsClamped() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatal(err)
	}
	if d.String() != "2024-02-29" || d.MonthKey() != "2024-02" {
		t.Errorf("ParseDate() = %v", d)
	}
	if _, err := ParseDate("2023-02-29"); err == nil {
		t.Errorf("expected error for invalid day")
	}
}

func TestDateMonthBounds(t *testing.T) {
	d := NewDate(2024, 2, 10)
	if got := d.FirstOfMonth(); !got.Equal(NewDate(2024, 2, 1)) {
		t.Errorf("FirstOfMonth() = %v", got)
	}
	if got := d.EndOfMonth(); !got.Equal(NewDate(2024, 2, 29)) {
		t.Errorf("EndOfMonth() = %v", got)
	}
}

func TestDateJSONAndScan(t *testing.T) {
	var holder struct {
		D Date `json:"d"`
		E Date `json:"e"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2025-06-01","e":null}`), &holder); err != nil {
		t.Fatal(err)
	}
	if !holder.D.Equal(NewDate(2025, 6, 1)) || !holder.E.IsZero() {
		t.Errorf("Unmarshal = %+v", holder)
	}
	b, _ := json.Marshal(holder)
	if string(b) != `{"d":"2025-06-01","e":null}` {
		t.Errorf("Marshal = %s", b)
	}

	var scanned Date
	if err := scanned.Scan("2025-06-01"); err != nil || !scanned.Equal(NewDate(2025, 6, 1)) {
		t.Errorf("Scan(string) = %v, %v", scanned, err)
	}
	if err := scanned.Scan(time.Date(2025, 7, 2, 13, 0, 0, 0, time.UTC)); err != nil || !scanned.Equal(NewDate(2025, 7, 2)) {
		t.Errorf("Scan(time) = %v, %v", scanned, err)
	}
	if err := scanned.Scan(nil); err != nil || !scanned.IsZero() {
		t.Errorf("Scan(nil) = %v, %v", scanned, err)
	}
	if v, _ := (Date{}).Value(); v != nil {
		t.Errorf("Value() of zero = %v, want nil", v)
	}
}
