package grid

import (
	"github.com/shopspring/decimal"
)

// tolerance used when matching a price to a level exactly.
var (
	matchTolerance = decimal.New(1, -6)
	minTolerance   = decimal.New(1, -6)
)

// Engine detects which levels a price move crossed and halts when price
// leaves the ladder. It never returns errors: edge cases emit nothing.
type Engine struct {
	spec   Spec
	lo, hi decimal.Decimal

	halted    bool
	lastPrice decimal.Decimal
	hasLast   bool
}

// NewEngine creates an ACTIVE engine with no reference price.
func NewEngine(spec Spec) *Engine {
	lo, hi := spec.Bounds()
	return &Engine{spec: spec, lo: lo, hi: hi}
}

// Spec returns the ladder the engine runs on.
func (e *Engine) Spec() Spec { return e.spec }

// Halted reports whether the last price was outside the ladder.
func (e *Engine) Halted() bool { return e.halted }

// LastPrice returns the last price fed in, if any.
func (e *Engine) LastPrice() (decimal.Decimal, bool) { return e.lastPrice, e.hasLast }

// InBounds reports whether price lies inside [lowest, highest] level price.
func (e *Engine) InBounds(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(e.lo) && price.LessThanOrEqual(e.hi)
}

// LevelAt returns the level whose price equals price within a tight tolerance.
func (e *Engine) LevelAt(price decimal.Decimal) (int, bool) {
	if !e.spec.Step.IsPositive() {
		return 0, false
	}
	idx := int(price.Sub(e.spec.Baseline).Div(e.spec.Step).Round(0).IntPart())
	if !e.spec.Contains(idx) {
		return 0, false
	}
	tol := decimal.Max(e.spec.Step, minTolerance).Mul(matchTolerance)
	if e.spec.Price(idx).Sub(price).Abs().GreaterThan(tol) {
		return 0, false
	}
	return idx, true
}

// Update feeds a new price and returns the crossed levels in travel order.
// A nil price is ignored.
func (e *Engine) Update(price *decimal.Decimal) []int {
	if price == nil {
		return nil
	}
	px := *price

	if !e.InBounds(px) {
		e.halted = true
		e.lastPrice, e.hasLast = px, true
		return nil
	}
	if e.halted {
		e.halted = false
	}

	if !e.hasLast {
		e.lastPrice, e.hasLast = px, true
		return nil
	}

	last := e.lastPrice
	e.lastPrice = px

	if px.Equal(last) {
		if idx, ok := e.LevelAt(px); ok {
			return []int{idx}
		}
		return nil
	}

	lo, hi := last, px
	rising := px.GreaterThan(last)
	if !rising {
		lo, hi = px, last
	}

	var crossed []int
	if rising {
		for idx := e.spec.MinLevel(); idx <= e.spec.MaxLevel(); idx++ {
			if lp := e.spec.Price(idx); lp.GreaterThanOrEqual(lo) && lp.LessThanOrEqual(hi) {
				crossed = append(crossed, idx)
			}
		}
	} else {
		for idx := e.spec.MaxLevel(); idx >= e.spec.MinLevel(); idx-- {
			if lp := e.spec.Price(idx); lp.GreaterThanOrEqual(lo) && lp.LessThanOrEqual(hi) {
				crossed = append(crossed, idx)
			}
		}
	}
	return crossed
}

// UpdatePrice is Update for a known price.
func (e *Engine) UpdatePrice(price decimal.Decimal) []int {
	return e.Update(&price)
}
