package execution

import "sync/atomic"

// IDGenerator hands out unique, strictly increasing IDs starting at 1.
type IDGenerator struct {
	last atomic.Uint64
}

// NewIDGenerator creates a generator whose first ID is start+1.
func NewIDGenerator(start uint64) *IDGenerator {
	g := &IDGenerator{}
	g.last.Store(start)
	return g
}

// Next returns the next ID.
func (g *IDGenerator) Next() uint64 {
	return g.last.Add(1)
}

// Last returns the most recently issued ID (0 if none).
func (g *IDGenerator) Last() uint64 {
	return g.last.Load()
}
