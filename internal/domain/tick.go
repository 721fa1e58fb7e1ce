package domain

import (
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/safe"
)

// Tick represents a single top-of-book quote for one symbol.
// Immutable once produced. Seq is strictly increasing per symbol;
// gaps are tolerated, regressions are stale data.
type Tick struct {
	Symbol    string            `json:"symbol"`
	BidMicros quant.PriceMicros `json:"bid"`
	AskMicros quant.PriceMicros `json:"ask"`
	Ts        quant.TimeStamp   `json:"ts"`
	Seq       uint64            `json:"seq"`
}

// SpreadMicros returns ask minus bid.
func (t Tick) SpreadMicros() int64 {
	return safe.SafeSub(int64(t.AskMicros), int64(t.BidMicros))
}

// Valid reports whether the tick satisfies the ask >= bid invariant.
func (t Tick) Valid() bool {
	return t.BidMicros > 0 && t.AskMicros >= t.BidMicros
}

// DomLevel is a single (price, size) order-book level.
type DomLevel struct {
	PriceMicros quant.PriceMicros `json:"price"`
	Volume      quant.VolumeUnits `json:"volume"`
}

// DomSnapshot is an immutable depth-of-market snapshot.
// Bids are ordered best (highest) first, asks best (lowest) first.
type DomSnapshot struct {
	Symbol string          `json:"symbol"`
	Bids   []DomLevel      `json:"bids"`
	Asks   []DomLevel      `json:"asks"`
	Ts     quant.TimeStamp `json:"ts"`
}

// Valid requires at least one level per side.
func (d *DomSnapshot) Valid() bool {
	return d != nil && len(d.Bids) > 0 && len(d.Asks) > 0
}

// Imbalance returns bid/ask volume imbalance scaled to micros:
// +1,000,000 = all bids, -1,000,000 = all asks, 0 = balanced.
func (d *DomSnapshot) Imbalance() int64 {
	if !d.Valid() {
		return 0
	}
	var bidVol, askVol int64
	for _, l := range d.Bids {
		bidVol = safe.SafeAdd(bidVol, int64(l.Volume))
	}
	for _, l := range d.Asks {
		askVol = safe.SafeAdd(askVol, int64(l.Volume))
	}
	total := safe.SafeAdd(bidVol, askVol)
	if total == 0 {
		return 0
	}
	num := safe.SafeMul(safe.SafeSub(bidVol, askVol), quant.PriceScale)
	return safe.SafeDiv(num, total)
}

// MarketSnapshot pairs the latest tick with the latest DOM snapshot (which
// may be absent) plus derived short-horizon statistics. This is the unit the
// admission filter and the signal evaluator consume.
type MarketSnapshot struct {
	Tick Tick
	Dom  *DomSnapshot // nil when no depth data has arrived yet

	// Derived per-symbol statistics, computed by market.Stats.
	DirectionBiasMicros int64 // [-1e6, +1e6], recent tick direction bias
	ImbalanceMicros     int64 // [-1e6, +1e6], DOM volume imbalance
}
