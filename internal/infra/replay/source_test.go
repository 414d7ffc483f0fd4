package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"grid_go/internal/domain"

	"github.com/shopspring/decimal"
)

var cst = time.FixedZone("CST", 8*3600)

func TestParse_SortsAndMapsColumns(t *testing.T) {
	data := `time,lastPrice,bidPrice1,askPrice1,open
2025-11-12 09:30:06,0.682,0.681,0.683,0.680
2025-11-12 09:30:03,0.681,0.680,0.682,0.680
2025-11-12 09:30:09,,0.684,0.686,0.680
`
	src, err := Parse(strings.NewReader(data), "512710.SH", cst)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if src.Len() != 3 {
		t.Fatalf("Expected 3 ticks, got %d", src.Len())
	}

	ctx := context.Background()
	first, _ := src.Fetch(ctx, "512710.SH")
	if !first.Last.Equal(decimal.RequireFromString("0.681")) {
		t.Errorf("Ticks should be time ordered, first price %s", first.Last)
	}
	if !first.Time.Equal(time.Date(2025, 11, 12, 9, 30, 3, 0, cst)) {
		t.Errorf("Unexpected time %s", first.Time)
	}
	if !first.Open.Equal(decimal.RequireFromString("0.680")) || !first.HasOpen() {
		t.Errorf("Open not mapped: %s", first.Open)
	}

	src.Fetch(ctx, "512710.SH")
	last, _ := src.Fetch(ctx, "512710.SH")
	if !last.Last.IsZero() {
		t.Errorf("Blank price should read as zero, got %s", last.Last)
	}
	if px, ok := last.Price(decimal.Zero); !ok || !px.Equal(decimal.RequireFromString("0.685")) {
		t.Errorf("Expected mid 0.685, got %s", px)
	}

	if _, err := src.Fetch(ctx, "512710.SH"); !errors.Is(err, domain.ErrStreamExhausted) {
		t.Errorf("Expected ErrStreamExhausted, got %v", err)
	}
}

func TestParse_EpochMillis(t *testing.T) {
	data := "time,price\n1762911003000,0.700\n"
	src, err := Parse(strings.NewReader(data), "X", cst)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	q, _ := src.Fetch(context.Background(), "X")
	if q.Time.In(cst).Hour() != 9 || q.Time.In(cst).Minute() != 30 {
		t.Errorf("Epoch should convert to 09:30 local, got %s", q.Time.In(cst))
	}
}

func TestParse_CompactStime(t *testing.T) {
	data := "stime,lastPrice\n20251112093006,1.01\n20251112093003,1.00\n"
	src, err := Parse(strings.NewReader(data), "X", cst)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	q, _ := src.Fetch(context.Background(), "X")
	if !q.Time.Equal(time.Date(2025, 11, 12, 9, 30, 3, 0, cst)) {
		t.Errorf("Compact stime should read as 2025-11-12 09:30:03 CST, got %s", q.Time)
	}
	if !q.Last.Equal(decimal.RequireFromString("1.00")) {
		t.Errorf("Ticks should be time ordered, first price %s", q.Last)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"header only", "time,price\n"},
		{"no price column", "time,volume\n2025-11-12 09:30:00,100\n"},
		{"bad time", "time,price\nnoon,1.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.data), "X", cst); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestSource_WrongSymbol(t *testing.T) {
	src, err := Parse(strings.NewReader("price\n1.0\n"), "512710.SH", cst)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	_, err = src.Fetch(context.Background(), "159915.SZ")
	if !errors.Is(err, domain.ErrSymbolNotFound) || !domain.IsRetriable(err) {
		t.Errorf("Expected retriable ErrSymbolNotFound, got %v", err)
	}
	if src.Remaining() != 1 {
		t.Error("A miss must not consume a tick")
	}
}

func TestSource_CancelledContext(t *testing.T) {
	src, _ := Parse(strings.NewReader("price\n1.0\n"), "X", cst)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Fetch(ctx, "X"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.csv")
	if err := os.WriteFile(path, []byte("servertime,price\n2025-11-12 09:30:00,1.0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	src, err := Load(path, "X", cst)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if src.Len() != 1 {
		t.Errorf("Expected 1 tick, got %d", src.Len())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv"), "X", cst); err == nil {
		t.Error("Expected error for missing file")
	}
}
