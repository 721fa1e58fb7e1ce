package latency

import (
	"fmt"
	"sort"
	"sync"

	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

// Stage labels one measured hop of the decision pipeline.
type Stage string

const (
	StageTickToDecision    Stage = "tick_to_decision"
	StageDecisionToRequest Stage = "decision_to_request"
	StageRequestToFill     Stage = "request_to_fill"
)

var allStages = []Stage{StageTickToDecision, StageDecisionToRequest, StageRequestToFill}

// DefaultWindow bounds per-stage memory per symbol.
const DefaultWindow = 8192

// Summary holds order statistics for one stage of one symbol, in
// microseconds.
type Summary struct {
	Count     int
	P50Micros int64
	P95Micros int64
	MaxMicros int64
}

// Tracker records pipeline latencies per symbol and stage. Recording is a
// short lock on the symbol's shard so workers never contend with each other;
// Snapshot copies the windows out before computing percentiles.
type Tracker struct {
	shards map[string]*shard
}

type shard struct {
	mu    sync.Mutex
	rings map[Stage]*ring
}

// Bounded sample window. Old samples are overwritten once full.
type ring struct {
	buf    []int64
	next   int
	filled bool
}

func newRing(n int) *ring {
	return &ring{buf: make([]int64, n)}
}

func (r *ring) push(v int64) {
	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.filled = true
	}
}

func (r *ring) copyOut() []int64 {
	n := r.next
	if r.filled {
		n = len(r.buf)
	}
	out := make([]int64, n)
	if r.filled {
		copy(out, r.buf[r.next:])
		copy(out[len(r.buf)-r.next:], r.buf[:r.next])
	} else {
		copy(out, r.buf[:n])
	}
	return out
}

// NewTracker allocates windows for a fixed symbol set. The set is fixed at
// startup so recording never allocates or resizes maps.
func NewTracker(symbols []string, window int) (*Tracker, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("latency tracker: no symbols")
	}
	if window <= 0 {
		return nil, fmt.Errorf("latency tracker: window must be positive, got %d", window)
	}
	shards := make(map[string]*shard, len(symbols))
	for _, sym := range symbols {
		if sym == "" {
			return nil, fmt.Errorf("latency tracker: empty symbol name")
		}
		s := &shard{rings: make(map[Stage]*ring, len(allStages))}
		for _, st := range allStages {
			s.rings[st] = newRing(window)
		}
		shards[sym] = s
	}
	return &Tracker{shards: shards}, nil
}

// Observe records one duration in microseconds. Unknown symbols and negative
// durations are dropped rather than skewing the window.
func (t *Tracker) Observe(symbol string, stage Stage, durMicros int64) {
	s, ok := t.shards[symbol]
	if !ok || durMicros < 0 {
		return
	}
	s.mu.Lock()
	if r, ok := s.rings[stage]; ok {
		r.push(durMicros)
	}
	s.mu.Unlock()
}

// Record measures the span between two pipeline timestamps.
func (t *Tracker) Record(symbol string, stage Stage, start, end quant.TimeStamp) {
	t.Observe(symbol, stage, int64(end)-int64(start))
}

// Snapshot computes per-symbol, per-stage summaries from a copy of the
// current windows. Safe to call while workers keep recording.
func (t *Tracker) Snapshot() map[string]map[Stage]Summary {
	out := make(map[string]map[Stage]Summary, len(t.shards))
	for sym, s := range t.shards {
		samples := make(map[Stage][]int64, len(allStages))
		s.mu.Lock()
		for st, r := range s.rings {
			samples[st] = r.copyOut()
		}
		s.mu.Unlock()

		stages := make(map[Stage]Summary, len(samples))
		for st, vals := range samples {
			stages[st] = summarize(vals)
		}
		out[sym] = stages
	}
	return out
}

// summarize uses nearest-rank percentiles over a sorted copy.
func summarize(vals []int64) Summary {
	if len(vals) == 0 {
		return Summary{}
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	return Summary{
		Count:     len(vals),
		P50Micros: vals[rank(50, len(vals))],
		P95Micros: vals[rank(95, len(vals))],
		MaxMicros: vals[len(vals)-1],
	}
}

func rank(pct, n int) int {
	idx := (pct*n + 99) / 100
	if idx < 1 {
		idx = 1
	}
	return idx - 1
}
