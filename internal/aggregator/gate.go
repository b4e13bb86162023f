package aggregator

import "sync"

// Ticket identifies one build request issued by a Gate.
type Ticket uint64

// Gate orders build results by request: a result applies unless a result of
// a newer request has already been applied. Requests that never produce a
// result, such as aborted builds, supersede nothing.
type Gate struct {
	mu      sync.Mutex
	issued  Ticket
	applied Ticket
}

// Next issues a ticket newer than every ticket issued before.
func (g *Gate) Next() Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued++
	return g.issued
}

// IsLatest reports whether no newer ticket has been issued since t.
func (g *Gate) IsLatest(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return t == g.issued
}

// Apply runs fn unless a result newer than t was already applied. Apply
// calls are serialized, so fn never races with another result.
func (g *Gate) Apply(t Ticket, fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t <= g.applied {
		return false
	}
	g.applied = t
	fn()
	return true
}
