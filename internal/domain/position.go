package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Position is the inventory parked on one grid level.
// AvgCost is meaningless while Qty is zero and is kept at zero then.
type Position struct {
	Level   int             `json:"level"`
	Qty     int64           `json:"qty"`
	AvgCost decimal.Decimal `json:"avg_cost"`
}

// Add credits qty at price using a weighted-average cost. qty <= 0 is a no-op.
func (p *Position) Add(price decimal.Decimal, qty int64) {
	if qty <= 0 {
		return
	}
	total := p.Qty + qty
	if p.Qty == 0 {
		p.AvgCost = price
	} else {
		held := p.AvgCost.Mul(decimal.NewFromInt(p.Qty))
		added := price.Mul(decimal.NewFromInt(qty))
		p.AvgCost = held.Add(added).Div(decimal.NewFromInt(total))
	}
	p.Qty = total
}

// Reduce removes up to qty and returns how much was actually removed.
// AvgCost is untouched unless the position is emptied.
func (p *Position) Reduce(qty int64) int64 {
	if qty <= 0 {
		return 0
	}
	realized := min(qty, p.Qty)
	p.Qty -= realized
	if p.Qty == 0 {
		p.AvgCost = decimal.Zero
	}
	return realized
}

// VerifyInvariant panics if the position is corrupt.
func (p *Position) VerifyInvariant() {
	if p.Qty < 0 {
		panic(fmt.Sprintf("POSITION_INVARIANT_NEGATIVE_QTY: level %d = %d", p.Level, p.Qty))
	}
	if p.Qty == 0 && !p.AvgCost.IsZero() {
		panic(fmt.Sprintf("POSITION_INVARIANT_STALE_COST: level %d cost=%s with zero qty",
			p.Level, p.AvgCost))
	}
}

// PositionBook holds one Position per grid level.
type PositionBook struct {
	positions map[int]*Position
}

// NewPositionBook creates an empty book.
func NewPositionBook() *PositionBook {
	return &PositionBook{
		positions: make(map[int]*Position),
	}
}

// Get returns the position for a level, creating a zero one if missing.
func (pb *PositionBook) Get(level int) *Position {
	p, ok := pb.positions[level]
	if !ok {
		p = &Position{Level: level}
		pb.positions[level] = p
	}
	return p
}

// Qty returns the held quantity on a level.
func (pb *PositionBook) Qty(level int) int64 {
	return pb.Get(level).Qty
}

// Add credits qty at price to a level.
func (pb *PositionBook) Add(level int, price decimal.Decimal, qty int64) {
	pb.Get(level).Add(price, qty)
}

// Sell debits up to qty from a level and returns the realized quantity.
// A result below qty means the caller tried to sell more than was held.
func (pb *PositionBook) Sell(level int, qty int64) int64 {
	return pb.Get(level).Reduce(qty)
}

// VerifyAll checks invariants on all positions.
func (pb *PositionBook) VerifyAll() {
	for _, p := range pb.positions {
		p.VerifyInvariant()
	}
}

// Snapshot returns copies of every touched level, ascending by level.
func (pb *PositionBook) Snapshot() []Position {
	result := make([]Position, 0, len(pb.positions))
	for _, p := range pb.positions {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Level < result[j].Level
	})
	return result
}

// TotalQty sums holdings over the inclusive level range [from, to].
func (pb *PositionBook) TotalQty(from, to int) int64 {
	var total int64
	for lvl := from; lvl <= to; lvl++ {
		total += pb.Qty(lvl)
	}
	return total
}
