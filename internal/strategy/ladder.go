package strategy

import (
	"grid_go/internal/domain"
	"grid_go/internal/grid"
)

// Default ladder depths around the crossed level.
const (
	DefaultSellDepth = 5 // L .. L+4
	DefaultBuyDepth  = 5 // L-5 .. L-1
)

// LadderPolicy keeps sells over held inventory and bids below price.
// It is stateless; every decision is derived from the book and inventory.
type LadderPolicy struct {
	spec      grid.Spec
	lot       int64
	sellDepth int
	buyDepth  int
}

// NewLadderPolicy creates a policy placing lot-sized bids on spec.
func NewLadderPolicy(spec grid.Spec, lot int64) *LadderPolicy {
	return &LadderPolicy{
		spec:      spec,
		lot:       lot,
		sellDepth: DefaultSellDepth,
		buyDepth:  DefaultBuyDepth,
	}
}

// Lot returns the standard bid size.
func (p *LadderPolicy) Lot() int64 { return p.lot }

// OnLevel returns placements for a crossed level, in the order they should
// be applied. A level that already has a resting order yields nothing.
func (p *LadderPolicy) OnLevel(level int, book OrderBook, inv Inventory) []Action {
	if book.HasOrder(level) {
		return nil
	}

	plan := &plan{book: book, spec: p.spec}
	minL, maxL := p.spec.MinLevel(), p.spec.MaxLevel()

	if inv.TotalQty(minL, level) > 0 {
		// Inventory at or below price: offer it up.
		for l := minL; l <= level; l++ {
			if q := inv.Qty(l); q > 0 && !plan.hasSide(l, domain.SideSell) {
				plan.add(ActionSell, l, q)
			}
		}
	} else if level+1 <= maxL && inv.Qty(level+1) == 0 && !plan.hasSide(level, domain.SideBuy) {
		// Nothing below and nothing above: accumulate here.
		plan.add(ActionBuy, level, p.lot)
	}

	for l := level; l <= min(maxL, level+p.sellDepth-1); l++ {
		if q := inv.Qty(l); q > 0 && !plan.hasSide(l, domain.SideSell) {
			plan.add(ActionSell, l, q)
		}
	}
	for l := max(minL, level-p.buyDepth); l < level; l++ {
		if !plan.hasSide(l, domain.SideBuy) {
			plan.add(ActionBuy, l, p.lot)
		}
	}
	return plan.actions
}

// plan overlays pending placements on the book so one call never places
// the same order twice.
type plan struct {
	book    OrderBook
	spec    grid.Spec
	placed  map[int]domain.Side
	actions []Action
}

func (pl *plan) hasSide(level int, side domain.Side) bool {
	if s, ok := pl.placed[level]; ok {
		return s == side
	}
	return pl.book.HasSide(level, side)
}

func (pl *plan) add(t ActionType, level int, qty int64) {
	if qty <= 0 {
		return
	}
	if pl.placed == nil {
		pl.placed = make(map[int]domain.Side)
	}
	pl.placed[level] = t.Side()
	pl.actions = append(pl.actions, Action{
		Type:  t,
		Level: level,
		Price: pl.spec.Price(level),
		Qty:   qty,
	})
}
