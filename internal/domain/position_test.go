package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPositionBook_WeightedAverage(t *testing.T) {
	d := decimal.RequireFromString
	pb := NewPositionBook()

	pb.Add(1, d("1.00"), 100)
	pb.Add(1, d("1.03"), 200)

	pos := pb.Get(1)
	if pos.Qty != 300 {
		t.Fatalf("Expected qty 300, got %d", pos.Qty)
	}
	// (1.00*100 + 1.03*200) / 300 = 1.02
	if !pos.AvgCost.Equal(d("1.02")) {
		t.Errorf("Expected avg cost 1.02, got %s", pos.AvgCost)
	}
}

func TestPositionBook_AddIgnoresNonPositive(t *testing.T) {
	pb := NewPositionBook()
	pb.Add(0, decimal.NewFromInt(5), 0)
	pb.Add(0, decimal.NewFromInt(5), -10)

	pos := pb.Get(0)
	if pos.Qty != 0 || !pos.AvgCost.IsZero() {
		t.Errorf("Expected untouched zero position, got %+v", *pos)
	}
}

func TestPositionBook_Sell(t *testing.T) {
	d := decimal.RequireFromString

	t.Run("Partial sell keeps cost", func(t *testing.T) {
		pb := NewPositionBook()
		pb.Add(2, d("1.00"), 300)

		realized := pb.Sell(2, 100)
		if realized != 100 {
			t.Errorf("Expected realized 100, got %d", realized)
		}
		pos := pb.Get(2)
		if pos.Qty != 200 || !pos.AvgCost.Equal(d("1.00")) {
			t.Errorf("Expected 200 @ 1.00, got %d @ %s", pos.Qty, pos.AvgCost)
		}
	})

	t.Run("Over-sell is clipped and resets cost", func(t *testing.T) {
		pb := NewPositionBook()
		pb.Add(2, d("1.00"), 100)

		realized := pb.Sell(2, 500)
		if realized != 100 {
			t.Errorf("Expected clipped realized 100, got %d", realized)
		}
		pos := pb.Get(2)
		if pos.Qty != 0 {
			t.Errorf("Expected qty 0, got %d", pos.Qty)
		}
		if !pos.AvgCost.IsZero() {
			t.Errorf("Expected cost reset to 0, got %s", pos.AvgCost)
		}
		pb.VerifyAll()
	})

	t.Run("Selling an empty level", func(t *testing.T) {
		pb := NewPositionBook()
		if realized := pb.Sell(-3, 100); realized != 0 {
			t.Errorf("Expected 0, got %d", realized)
		}
	})
}

func TestPositionBook_Snapshot(t *testing.T) {
	pb := NewPositionBook()
	pb.Add(2, decimal.NewFromInt(1), 100)
	pb.Get(-1)
	pb.Add(0, decimal.NewFromInt(1), 50)

	snap := pb.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Expected 3 touched levels, got %d", len(snap))
	}
	for i, want := range []int{-1, 0, 2} {
		if snap[i].Level != want {
			t.Errorf("snap[%d].Level = %d, want %d", i, snap[i].Level, want)
		}
	}

	// Snapshot is a copy
	snap[2].Qty = 0
	if pb.Qty(2) != 100 {
		t.Error("Snapshot mutation leaked into the book")
	}
}

func TestPositionBook_TotalQty(t *testing.T) {
	pb := NewPositionBook()
	pb.Add(-2, decimal.NewFromInt(1), 100)
	pb.Add(1, decimal.NewFromInt(1), 300)

	if got := pb.TotalQty(-2, 0); got != 100 {
		t.Errorf("TotalQty(-2,0) = %d, want 100", got)
	}
	if got := pb.TotalQty(-2, 1); got != 400 {
		t.Errorf("TotalQty(-2,1) = %d, want 400", got)
	}
}

func TestPosition_VerifyInvariant(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for negative qty")
		}
	}()
	p := &Position{Level: 1, Qty: -1}
	p.VerifyInvariant()
}
