package execution

import (
	"sort"
	"time"

	"grid_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Simulator is a per-level order slot table, not an order book.
// Each level holds at most one resting order; placing on an occupied level
// replaces whatever was there, regardless of side.
// Match does not check prices: deciding that a fill is valid is the caller's job.
type Simulator struct {
	pending map[int]domain.Order
	trades  []domain.Trade

	orderIDs *IDGenerator
	tradeIDs *IDGenerator
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithOrderIDs injects the order ID generator.
func WithOrderIDs(g *IDGenerator) Option {
	return func(s *Simulator) { s.orderIDs = g }
}

// WithTradeIDs injects the trade ID generator.
func WithTradeIDs(g *IDGenerator) Option {
	return func(s *Simulator) { s.tradeIDs = g }
}

// NewSimulator creates an empty simulator with private ID sequences unless injected.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		pending: make(map[int]domain.Order),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.orderIDs == nil {
		s.orderIDs = NewIDGenerator(0)
	}
	if s.tradeIDs == nil {
		s.tradeIDs = NewIDGenerator(0)
	}
	return s
}

// Place parks an order on level. qty <= 0 is a no-op and returns false.
// When the slot was occupied the previous order is returned as replaced.
func (s *Simulator) Place(level int, side domain.Side, qty int64) (placed domain.Order, replaced *domain.Order, ok bool) {
	if qty <= 0 {
		return domain.Order{}, nil, false
	}
	if prev, exists := s.pending[level]; exists {
		replaced = &prev
	}
	placed = domain.Order{
		ID:    s.orderIDs.Next(),
		Level: level,
		Side:  side,
		Qty:   qty,
	}
	s.pending[level] = placed
	return placed, replaced, true
}

// Cancel removes the order on level, if any.
func (s *Simulator) Cancel(level int) (domain.Order, bool) {
	o, ok := s.pending[level]
	if ok {
		delete(s.pending, level)
	}
	return o, ok
}

// HasOrder reports whether level has a resting order of either side.
func (s *Simulator) HasOrder(level int) bool {
	_, ok := s.pending[level]
	return ok
}

// HasSide reports whether level has a resting order on side.
func (s *Simulator) HasSide(level int, side domain.Side) bool {
	o, ok := s.pending[level]
	return ok && o.Side == side
}

// OrderAt returns the resting order on level.
func (s *Simulator) OrderAt(level int) (domain.Order, bool) {
	o, ok := s.pending[level]
	return o, ok
}

// Match pops the order on level and records a fill at price/ts.
func (s *Simulator) Match(level int, ts time.Time, price decimal.Decimal) (domain.Trade, bool) {
	o, ok := s.pending[level]
	if !ok {
		return domain.Trade{}, false
	}
	delete(s.pending, level)

	tr := domain.Trade{
		ID:      s.tradeIDs.Next(),
		OrderID: o.ID,
		Time:    ts,
		Side:    o.Side,
		Price:   price,
		Qty:     o.Qty,
		Level:   level,
	}
	s.trades = append(s.trades, tr)
	return tr, true
}

// Pending returns the resting orders ascending by level.
func (s *Simulator) Pending() []domain.Order {
	out := make([]domain.Order, 0, len(s.pending))
	for _, o := range s.pending {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// Trades returns a copy of every fill so far.
func (s *Simulator) Trades() []domain.Trade {
	out := make([]domain.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}
