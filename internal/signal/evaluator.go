package signal

import (
	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/safe"
)

// Params hold the fixed decision thresholds, in micros.
type Params struct {
	OpenBiasMicros      int64 // direction bias magnitude required to open
	OpenImbalanceMicros int64 // DOM imbalance agreement required to open
	ReverseBiasMicros   int64 // opposing bias magnitude that closes
}

// DefaultParams mirror the fixed production rule: open on 0.3 bias with 0.2
// book agreement, close on a 0.3 reversal.
func DefaultParams() Params {
	return Params{
		OpenBiasMicros:      300000,
		OpenImbalanceMicros: 200000,
		ReverseBiasMicros:   300000,
	}
}

// SlotView is the evaluator's read-only view of the symbol slot. It keeps
// the decision rule decoupled from position-manager internals.
type SlotView struct {
	HasPosition bool             // true while any non-terminal position exists
	Direction   domain.Direction // valid only when HasPosition
}

// Evaluate maps a filtered snapshot to an intent. Pure, O(1) in snapshot
// size, safe for concurrent use.
//
// Open rule: strong directional bias confirmed by book imbalance, only when
// the slot is empty. Close rule: bias reversing against the held direction,
// only when a position exists. Everything else is NoAction.
func Evaluate(snap domain.MarketSnapshot, slot SlotView, p Params) domain.Intent {
	bias := snap.DirectionBiasMicros
	imb := snap.ImbalanceMicros

	if slot.HasPosition {
		switch slot.Direction {
		case domain.Long:
			if bias <= -p.ReverseBiasMicros {
				return domain.CloseExisting
			}
		case domain.Short:
			if bias >= p.ReverseBiasMicros {
				return domain.CloseExisting
			}
		}
		return domain.NoAction
	}

	if bias >= p.OpenBiasMicros && imb >= p.OpenImbalanceMicros {
		return domain.OpenLong
	}
	if bias <= -p.OpenBiasMicros && imb <= -p.OpenImbalanceMicros {
		return domain.OpenShort
	}
	return domain.NoAction
}

// Validate fails fast on inverted or non-positive thresholds.
func (p Params) Validate() bool {
	return p.OpenBiasMicros > 0 &&
		p.OpenImbalanceMicros > 0 &&
		p.ReverseBiasMicros > 0 &&
		safe.SafeAbs(p.OpenBiasMicros) <= 1000000
}
