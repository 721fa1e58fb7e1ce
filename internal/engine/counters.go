package engine

import "sync/atomic"

// Counters are the engine-wide error-path tallies. Every field is atomic so
// workers bump them without coordination and reports read them live.
type Counters struct {
	staleDataDropped   atomic.Uint64
	feedTimeouts       atomic.Uint64
	ordersRejected     atomic.Uint64
	lateDiscarded      atomic.Uint64
	gatewayUnavailable atomic.Uint64
	rateLimited        atomic.Uint64
	inboxDropped       atomic.Uint64
}

func (c *Counters) AddStaleData()          { c.staleDataDropped.Add(1) }
func (c *Counters) AddFeedTimeout()        { c.feedTimeouts.Add(1) }
func (c *Counters) AddOrderRejected()      { c.ordersRejected.Add(1) }
func (c *Counters) AddLateDiscarded()      { c.lateDiscarded.Add(1) }
func (c *Counters) AddGatewayUnavailable() { c.gatewayUnavailable.Add(1) }
func (c *Counters) AddRateLimited()        { c.rateLimited.Add(1) }
func (c *Counters) AddInboxDropped()       { c.inboxDropped.Add(1) }

// CountersSnapshot is a point-in-time copy for reporting.
type CountersSnapshot struct {
	StaleDataDropped   uint64
	FeedTimeouts       uint64
	OrdersRejected     uint64
	LateDiscarded      uint64
	GatewayUnavailable uint64
	RateLimited        uint64
	InboxDropped       uint64
}

func (c *Counters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		StaleDataDropped:   c.staleDataDropped.Load(),
		FeedTimeouts:       c.feedTimeouts.Load(),
		OrdersRejected:     c.ordersRejected.Load(),
		LateDiscarded:      c.lateDiscarded.Load(),
		GatewayUnavailable: c.gatewayUnavailable.Load(),
		RateLimited:        c.rateLimited.Load(),
		InboxDropped:       c.inboxDropped.Load(),
	}
}
