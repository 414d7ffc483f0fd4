package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestQuote_Price(t *testing.T) {
	d := decimal.RequireFromString

	t.Run("Last trade wins", func(t *testing.T) {
		q := Quote{Last: d("1.005"), Bid: d("1.001"), Ask: d("1.003")}
		px, ok := q.Price(decimal.Zero)
		if !ok || !px.Equal(d("1.005")) {
			t.Errorf("Expected 1.005, got %v (ok=%v)", px, ok)
		}
	})

	t.Run("Falls back to mid", func(t *testing.T) {
		q := Quote{Bid: d("1.000"), Ask: d("1.002")}
		px, ok := q.Price(d("0.9"))
		if !ok || !px.Equal(d("1.001")) {
			t.Errorf("Expected mid 1.001, got %v (ok=%v)", px, ok)
		}
	})

	t.Run("One-sided book uses previous price", func(t *testing.T) {
		q := Quote{Bid: d("1.000")}
		px, ok := q.Price(d("0.99"))
		if !ok || !px.Equal(d("0.99")) {
			t.Errorf("Expected previous 0.99, got %v (ok=%v)", px, ok)
		}
	})

	t.Run("Nothing usable", func(t *testing.T) {
		q := Quote{}
		if _, ok := q.Price(decimal.Zero); ok {
			t.Error("Expected no price")
		}
	})
}

func TestQuote_HasOpen(t *testing.T) {
	if (Quote{}).HasOpen() {
		t.Error("empty quote should not have an open")
	}
	if !(Quote{Open: decimal.RequireFromString("0.68")}).HasOpen() {
		t.Error("positive open should be usable")
	}
}

func TestParseQuoteTime(t *testing.T) {
	cst := time.FixedZone("CST", 8*3600)
	want := time.Date(2025, 11, 12, 9, 30, 3, 0, cst)

	tests := []struct {
		name string
		in   string
	}{
		{"datetime", "2025-11-12 09:30:03"},
		{"compact", "20251112093003"},
		{"rfc3339", "2025-11-12T09:30:03+08:00"},
		{"epoch millis", "1762911003000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuoteTime(tt.in, cst)
			if err != nil {
				t.Fatalf("ParseQuoteTime(%q) failed: %v", tt.in, err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseQuoteTime(%q) = %s, want %s", tt.in, got, want)
			}
		})
	}

	if got, err := ParseQuoteTime("", cst); err != nil || !got.IsZero() {
		t.Errorf("Empty input should give zero time, got %s (%v)", got, err)
	}
	if _, err := ParseQuoteTime("yesterday", cst); err == nil {
		t.Error("Expected an error for garbage input")
	}
}
