package domain

import (
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/safe"
)

// Direction of a position.
type Direction int8

const (
	Long Direction = iota + 1
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// Intent is the tagged decision produced by the signal evaluator.
type Intent int8

const (
	NoAction Intent = iota
	OpenLong
	OpenShort
	CloseExisting
)

func (i Intent) String() string {
	switch i {
	case OpenLong:
		return "OPEN_LONG"
	case OpenShort:
		return "OPEN_SHORT"
	case CloseExisting:
		return "CLOSE_EXISTING"
	default:
		return "NO_ACTION"
	}
}

// PositionState is the lifecycle state of a position.
// Flat is represented by the absence of a position in the symbol slot.
type PositionState int8

const (
	StatePendingOpen PositionState = iota + 1
	StateOpen
	StatePendingClose
	StateClosed   // terminal, archived
	StateRejected // terminal, open request bounced
)

func (s PositionState) String() string {
	switch s {
	case StatePendingOpen:
		return "PENDING_OPEN"
	case StateOpen:
		return "OPEN"
	case StatePendingClose:
		return "PENDING_CLOSE"
	case StateClosed:
		return "CLOSED"
	case StateRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions are possible.
func (s PositionState) Terminal() bool {
	return s == StateClosed || s == StateRejected
}

// CloseReason records why a close was initiated.
type CloseReason string

const (
	CloseStopLoss   CloseReason = "STOP_LOSS"
	CloseTakeProfit CloseReason = "TAKE_PROFIT"
	CloseSignal     CloseReason = "SIGNAL"
	CloseShutdown   CloseReason = "SHUTDOWN"
)

// Outcome of a closed position, by comparing close price to entry.
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// Position is the authoritative record for one symbol-slot attempt.
// SL/TP are computed once from the fill price and never repriced.
type Position struct {
	ID        string        `json:"id"`
	Symbol    string        `json:"symbol"`
	Direction Direction     `json:"direction"`
	State     PositionState `json:"state"`

	EntryMicros      quant.PriceMicros `json:"entry_price"`
	EntryTs          quant.TimeStamp   `json:"entry_ts"`
	StopLossMicros   quant.PriceMicros `json:"stop_loss"`
	TakeProfitMicros quant.PriceMicros `json:"take_profit"`

	CloseMicros quant.PriceMicros `json:"close_price,omitempty"`
	CloseTs     quant.TimeStamp   `json:"close_ts,omitempty"`
	Reason      CloseReason       `json:"close_reason,omitempty"`
}

// PnlMicros returns signed profit in price micros for the given exit price.
func (p *Position) PnlMicros(exit quant.PriceMicros) int64 {
	if p.Direction == Long {
		return safe.SafeSub(int64(exit), int64(p.EntryMicros))
	}
	return safe.SafeSub(int64(p.EntryMicros), int64(exit))
}

// RequestIntent distinguishes open from close order requests.
type RequestIntent int8

const (
	RequestOpen RequestIntent = iota + 1
	RequestClose
)

func (r RequestIntent) String() string {
	if r == RequestClose {
		return "CLOSE"
	}
	return "OPEN"
}

// OrderRequest correlates 1:1 with a pending state transition.
// ID is the correlation id completions are matched against; a retried close
// gets a fresh request id while keeping the position id.
type OrderRequest struct {
	ID          string            `json:"id"`
	PositionID  string            `json:"position_id"`
	Intent      RequestIntent     `json:"intent"`
	Symbol      string            `json:"symbol"`
	Direction   Direction         `json:"direction"`
	PriceMicros quant.PriceMicros `json:"price"`
	Ts          quant.TimeStamp   `json:"ts"`
}

// ClosedRecord is the immutable archive entry emitted for every closed
// position, in per-symbol close-timestamp order.
type ClosedRecord struct {
	Symbol      string            `json:"symbol"`
	Direction   Direction         `json:"direction"`
	EntryMicros quant.PriceMicros `json:"entry_price"`
	CloseMicros quant.PriceMicros `json:"close_price"`
	OpenTs      quant.TimeStamp   `json:"open_ts"`
	CloseTs     quant.TimeStamp   `json:"close_ts"`
	Outcome     Outcome           `json:"outcome"`
	Reason      CloseReason       `json:"reason"`
	PnlMicros   int64             `json:"pnl_micros"`
}
