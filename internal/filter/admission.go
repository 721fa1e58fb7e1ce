package filter

import (
	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/safe"
)

// Thresholds gate signal evaluation. Values are pre-converted to micros for
// the symbol at startup so the hotpath stays float-free.
type Thresholds struct {
	MaxSpreadMicros     int64 // (ask - bid) above this blocks evaluation
	MinConfidenceMicros int64 // confidence below this blocks evaluation
}

// Confidence derives a score from the snapshot's short-horizon statistics:
// |direction bias| + |DOM imbalance| / 2, all in micros. Not learned, just a
// cheap agreement measure between tape and book.
func Confidence(snap domain.MarketSnapshot) int64 {
	bias := safe.SafeAbs(snap.DirectionBiasMicros)
	imb := safe.SafeAbs(snap.ImbalanceMicros)
	return safe.SafeAdd(bias, safe.SafeDiv(imb, 2))
}

// Admit is a pure predicate deciding whether a snapshot may reach the signal
// evaluator. Stateless and safe for concurrent use from all symbol workers.
func Admit(snap domain.MarketSnapshot, th Thresholds) bool {
	if !snap.Tick.Valid() {
		return false
	}
	if snap.Tick.SpreadMicros() > th.MaxSpreadMicros {
		return false
	}
	return Confidence(snap) >= th.MinConfidenceMicros
}
