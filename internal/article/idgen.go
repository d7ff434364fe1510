package article

import "sync/atomic"

// IDGenerator hands out process-local article IDs. It is an explicit handle
// passed into the components that create articles; there is no ambient
// global counter.
type IDGenerator struct {
	last atomic.Int64
}

// NewIDGenerator returns a generator whose first ID is 1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next ID. Safe for concurrent use; values are strictly
// increasing for the lifetime of the generator and never reused.
func (g *IDGenerator) Next() int64 {
	return g.last.Add(1)
}

// Advance raises the generator floor so that all future IDs are greater than
// max. Called after seeding from storage so IDs handed out in this run cannot
// collide with IDs already persisted. A value at or below the current floor
// is a no-op.
func (g *IDGenerator) Advance(max int64) {
	for {
		cur := g.last.Load()
		if cur >= max {
			return
		}
		if g.last.CompareAndSwap(cur, max) {
			return
		}
	}
}
