package feed

import (
	"context"

	"github.com/MuhammadAliAbid58/HFT-2/internal/event"
)

// Handler receives normalized market data events. The orchestrator's handler
// routes each event into the owning symbol worker's inbox.
type Handler func(event.Event)

// Feed is a source of tick and depth events for a fixed symbol set.
type Feed interface {
	Start(ctx context.Context) error
	Stop()
}

// Gate enforces per-symbol sequence monotonicity. A tick or depth snapshot
// whose sequence number does not advance past the last admitted one is
// stale and must not influence decisions.
//
// Gate is NOT thread-safe: each symbol worker owns one and consults it from
// its single event loop.
type Gate struct {
	lastSeq uint64
	seen    bool
	onStale func()
}

// NewGate creates a sequence gate. onStale fires once per dropped event and
// may be nil.
func NewGate(onStale func()) *Gate {
	return &Gate{onStale: onStale}
}

// Admit reports whether the sequence advances. Stale sequences are counted
// and dropped.
func (g *Gate) Admit(seq uint64) bool {
	if g.seen && seq <= g.lastSeq {
		if g.onStale != nil {
			g.onStale()
		}
		return false
	}
	g.lastSeq = seq
	g.seen = true
	return true
}

// LastSeq returns the highest admitted sequence.
func (g *Gate) LastSeq() uint64 {
	return g.lastSeq
}
