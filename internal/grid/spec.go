// Package grid holds the price-ladder geometry and the crossing state machine.
package grid

import (
	"github.com/shopspring/decimal"
)

// PricePlaces is the fixed precision grid prices are rounded to.
const PricePlaces = 6

// Spec is the immutable ladder: Baseline + i*Step for i in [-DownGrids, UpGrids].
// Step <= 0 or negative grid counts are the caller's problem.
type Spec struct {
	Baseline  decimal.Decimal
	Step      decimal.Decimal
	UpGrids   int
	DownGrids int
}

// NewSpec builds a spec.
func NewSpec(baseline, step decimal.Decimal, upGrids, downGrids int) Spec {
	return Spec{
		Baseline:  baseline,
		Step:      step,
		UpGrids:   upGrids,
		DownGrids: downGrids,
	}
}

// MinLevel is the lowest level index.
func (s Spec) MinLevel() int { return -s.DownGrids }

// MaxLevel is the highest level index.
func (s Spec) MaxLevel() int { return s.UpGrids }

// Count returns the number of levels.
func (s Spec) Count() int { return s.UpGrids + s.DownGrids + 1 }

// Contains reports whether level is a valid index.
func (s Spec) Contains(level int) bool {
	return level >= s.MinLevel() && level <= s.MaxLevel()
}

// Price returns the rounded price of a level index.
func (s Spec) Price(level int) decimal.Decimal {
	return s.Baseline.Add(s.Step.Mul(decimal.NewFromInt(int64(level)))).Round(PricePlaces)
}

// Levels returns every level price, ascending.
func (s Spec) Levels() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, s.Count())
	for i := s.MinLevel(); i <= s.MaxLevel(); i++ {
		out = append(out, s.Price(i))
	}
	return out
}

// Bounds returns the lowest and highest level prices.
func (s Spec) Bounds() (lo, hi decimal.Decimal) {
	return s.Price(s.MinLevel()), s.Price(s.MaxLevel())
}
