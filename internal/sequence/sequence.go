// Package sequence tags outgoing requests with a monotonic counter so that
// responses arriving out of order can be recognised.
package sequence

import "sync"

// Guard issues sequence numbers and decides whether a response may be applied.
//
// In strict mode a response older than the most recently applied one is
// rejected. Otherwise every response is accepted and the last one to arrive
// wins, whatever its age.
type Guard struct {
	mu      sync.Mutex
	strict  bool
	issued  uint64
	applied uint64
	dropped uint64
}

// NewGuard creates a Guard.
func NewGuard(strict bool) *Guard {
	return &Guard{strict: strict}
}

// Strict reports the mode.
func (g *Guard) Strict() bool {
	return g.strict
}

// Issue returns the next sequence number.
func (g *Guard) Issue() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued++
	return g.issued
}

// Accept reports whether the response tagged seq should be applied, and
// records it as applied if so.
func (g *Guard) Accept(seq uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.strict && seq < g.applied {
		g.dropped++
		return false
	}
	g.applied = seq
	return true
}

// Latest is the most recently issued number.
func (g *Guard) Latest() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.issued
}

// Applied is the number of the response currently applied.
func (g *Guard) Applied() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.applied
}

// Dropped counts rejected responses.
func (g *Guard) Dropped() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dropped
}
