package strategy_test

import (
	"testing"

	"grid_go/internal/domain"
	"grid_go/internal/execution"
	"grid_go/internal/grid"
	"grid_go/internal/strategy"

	"github.com/shopspring/decimal"
)

func sampleLadder() (*strategy.LadderPolicy, grid.Spec) {
	spec := grid.NewSpec(decimal.RequireFromString("1.00"), decimal.RequireFromString("0.01"), 2, 2)
	return strategy.NewLadderPolicy(spec, 100), spec
}

type want struct {
	typ   strategy.ActionType
	level int
	qty   int64
}

func assertActions(t *testing.T, got []strategy.Action, expected []want) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("Expected %d actions, got %d: %+v", len(expected), len(got), got)
	}
	for i, w := range expected {
		if got[i].Type != w.typ || got[i].Level != w.level || got[i].Qty != w.qty {
			t.Errorf("action[%d] = %s L%d x%d, want %s L%d x%d",
				i, got[i].Type, got[i].Level, got[i].Qty, w.typ, w.level, w.qty)
		}
	}
}

func TestLadderPolicy_SeededLadder(t *testing.T) {
	policy, spec := sampleLadder()
	book := execution.NewSimulator()
	inv := domain.NewPositionBook()
	inv.Add(1, spec.Baseline, 100)
	inv.Add(2, spec.Baseline, 100)

	actions := policy.OnLevel(0, book, inv)
	assertActions(t, actions, []want{
		{strategy.ActionSell, 1, 100},
		{strategy.ActionSell, 2, 100},
		{strategy.ActionBuy, -2, 100},
		{strategy.ActionBuy, -1, 100},
	})
	if !actions[0].Price.Equal(decimal.RequireFromString("1.01")) {
		t.Errorf("Expected SELL priced at 1.01, got %s", actions[0].Price)
	}
}

func TestLadderPolicy_SkipsOccupiedLevel(t *testing.T) {
	policy, _ := sampleLadder()
	book := execution.NewSimulator()
	book.Place(0, domain.SideSell, 1)

	if actions := policy.OnLevel(0, book, domain.NewPositionBook()); actions != nil {
		t.Errorf("Expected no actions on an occupied level, got %+v", actions)
	}
}

func TestLadderPolicy_AccumulatesWhenFlat(t *testing.T) {
	policy, _ := sampleLadder()

	actions := policy.OnLevel(0, execution.NewSimulator(), domain.NewPositionBook())
	assertActions(t, actions, []want{
		{strategy.ActionBuy, 0, 100},
		{strategy.ActionBuy, -2, 100},
		{strategy.ActionBuy, -1, 100},
	})
}

func TestLadderPolicy_NoAccumulateBelowHolding(t *testing.T) {
	policy, spec := sampleLadder()
	inv := domain.NewPositionBook()
	inv.Add(1, spec.Baseline, 100)

	actions := policy.OnLevel(0, execution.NewSimulator(), inv)
	for _, a := range actions {
		if a.Type == strategy.ActionBuy && a.Level == 0 {
			t.Errorf("Should not bid at L when L+1 holds inventory: %+v", actions)
		}
	}
}

func TestLadderPolicy_OffersInventoryBelow(t *testing.T) {
	policy, spec := sampleLadder()
	inv := domain.NewPositionBook()
	inv.Add(-1, spec.Price(-2), 300)

	actions := policy.OnLevel(0, execution.NewSimulator(), inv)
	// The SELL on -1 is planned first; the bid ladder then takes the slot.
	assertActions(t, actions, []want{
		{strategy.ActionSell, -1, 300},
		{strategy.ActionBuy, -2, 100},
		{strategy.ActionBuy, -1, 100},
	})
}

func TestLadderPolicy_TopLevel(t *testing.T) {
	policy, _ := sampleLadder()

	actions := policy.OnLevel(2, execution.NewSimulator(), domain.NewPositionBook())
	assertActions(t, actions, []want{
		{strategy.ActionBuy, -2, 100},
		{strategy.ActionBuy, -1, 100},
		{strategy.ActionBuy, 0, 100},
		{strategy.ActionBuy, 1, 100},
	})
}

func TestLadderPolicy_RespectsExistingOrders(t *testing.T) {
	policy, spec := sampleLadder()
	book := execution.NewSimulator()
	book.Place(1, domain.SideSell, 100)
	book.Place(-1, domain.SideBuy, 100)
	inv := domain.NewPositionBook()
	inv.Add(1, spec.Baseline, 100)
	inv.Add(2, spec.Baseline, 100)

	actions := policy.OnLevel(0, book, inv)
	assertActions(t, actions, []want{
		{strategy.ActionSell, 2, 100},
		{strategy.ActionBuy, -2, 100},
	})
}

func TestActionType_String(t *testing.T) {
	tests := []struct {
		in   strategy.ActionType
		want string
		side domain.Side
	}{
		{strategy.ActionBuy, "BUY", domain.SideBuy},
		{strategy.ActionSell, "SELL", domain.SideSell},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if tt.in.String() != tt.want {
				t.Errorf("String() = %s, want %s", tt.in.String(), tt.want)
			}
			if tt.in.Side() != tt.side {
				t.Errorf("Side() = %s, want %s", tt.in.Side(), tt.side)
			}
		})
	}
	if strategy.ActionType(0).String() != "UNKNOWN" {
		t.Error("Zero ActionType should be UNKNOWN")
	}
}
