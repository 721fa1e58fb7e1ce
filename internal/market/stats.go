package market

import (
	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/safe"
)

// Stats accumulates short-horizon statistics for one symbol: tick direction
// history and the latest DOM snapshot. It is owned by the symbol worker and
// must not be shared across goroutines.
// OPTIMIZED: directions live in a fixed ring buffer, Zero-Alloc in the hotpath.
type Stats struct {
	symbol   string
	lookback int

	// Direction ring buffer: +1 up tick, -1 down tick, 0 unchanged.
	directions []int8
	head       int
	count      int

	lastBid quant.PriceMicros
	dom     *domain.DomSnapshot

	upTicks      uint64
	downTicks    uint64
	neutralTicks uint64
}

// NewStats creates per-symbol statistics with the given history window and
// bias lookback. window must be >= lookback.
func NewStats(symbol string, window, lookback int) *Stats {
	if window < lookback {
		panic("market.NewStats: window must be >= lookback")
	}
	return &Stats{
		symbol:     symbol,
		lookback:   lookback,
		directions: make([]int8, window),
	}
}

// ApplyTick records one tick's direction relative to the previous bid.
func (s *Stats) ApplyTick(t domain.Tick) {
	var dir int8
	if s.lastBid != 0 {
		switch {
		case t.BidMicros > s.lastBid:
			dir = 1
			s.upTicks++
		case t.BidMicros < s.lastBid:
			dir = -1
			s.downTicks++
		default:
			s.neutralTicks++
		}
	}
	s.lastBid = t.BidMicros

	s.directions[s.head] = dir
	s.head = (s.head + 1) % len(s.directions)
	if s.count < len(s.directions) {
		s.count++
	}
}

// ApplyDom replaces the latest DOM snapshot. Invalid snapshots are ignored.
func (s *Stats) ApplyDom(dom *domain.DomSnapshot) {
	if dom.Valid() {
		s.dom = dom
	}
}

// DirectionBiasMicros returns the mean of the last lookback directions,
// scaled to micros: +1,000,000 = every recent tick up.
func (s *Stats) DirectionBiasMicros() int64 {
	if s.count < s.lookback {
		return 0
	}
	var sum int64
	idx := s.head
	for i := 0; i < s.lookback; i++ {
		idx--
		if idx < 0 {
			idx = len(s.directions) - 1
		}
		sum = safe.SafeAdd(sum, int64(s.directions[idx]))
	}
	return safe.SafeDiv(safe.SafeMul(sum, quant.PriceScale), int64(s.lookback))
}

// Ready reports whether enough ticks have been seen to compute a bias.
func (s *Stats) Ready() bool {
	return s.count >= s.lookback
}

// Snapshot pairs the given tick with the latest DOM data and derived stats.
func (s *Stats) Snapshot(t domain.Tick) domain.MarketSnapshot {
	snap := domain.MarketSnapshot{
		Tick:                t,
		Dom:                 s.dom,
		DirectionBiasMicros: s.DirectionBiasMicros(),
	}
	if s.dom != nil {
		snap.ImbalanceMicros = s.dom.Imbalance()
	}
	return snap
}

// TickCounts returns cumulative up/down/neutral tick counts.
func (s *Stats) TickCounts() (up, down, neutral uint64) {
	return s.upTicks, s.downTicks, s.neutralTicks
}
