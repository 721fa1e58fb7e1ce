package event

import (
	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

// Type defines the type of event.
type Type uint16

const (
	EvTick Type = iota + 1
	EvDepth
	EvCompletion
	EvFeedTimeout
)

func (t Type) String() string {
	switch t {
	case EvTick:
		return "TICK"
	case EvDepth:
		return "DEPTH"
	case EvCompletion:
		return "COMPLETION"
	case EvFeedTimeout:
		return "FEED_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Event is the interface for everything flowing through a symbol worker's
// inbox. Market data and gateway completions share the channel so every
// state transition for a symbol is serialized through a single consumer.
type Event interface {
	GetSymbol() string
	GetSeq() uint64
	GetTs() quant.TimeStamp
	GetType() Type
}

// TickEvent carries one normalized top-of-book quote.
type TickEvent struct {
	Tick domain.Tick
}

func (e TickEvent) GetSymbol() string      { return e.Tick.Symbol }
func (e TickEvent) GetSeq() uint64         { return e.Tick.Seq }
func (e TickEvent) GetTs() quant.TimeStamp { return e.Tick.Ts }
func (e TickEvent) GetType() Type          { return EvTick }

// DepthEvent carries one normalized DOM snapshot.
type DepthEvent struct {
	Dom *domain.DomSnapshot
	Seq uint64
}

func (e DepthEvent) GetSymbol() string      { return e.Dom.Symbol }
func (e DepthEvent) GetSeq() uint64         { return e.Seq }
func (e DepthEvent) GetTs() quant.TimeStamp { return e.Dom.Ts }
func (e DepthEvent) GetType() Type          { return EvDepth }

// CompletionStatus is the gateway's answer to an order request.
type CompletionStatus int8

const (
	CompletionFill CompletionStatus = iota + 1
	CompletionReject
)

func (s CompletionStatus) String() string {
	if s == CompletionReject {
		return "REJECT"
	}
	return "FILL"
}

// CompletionEvent is the asynchronous fill/reject for an OrderRequest,
// correlated by RequestID. Delivered at most once, possibly late.
type CompletionEvent struct {
	RequestID   string
	PositionID  string
	Intent      domain.RequestIntent
	Symbol      string
	Status      CompletionStatus
	PriceMicros quant.PriceMicros // fill price, reflects slippage
	Reason      string            // reject reason, empty on fill
	Ts          quant.TimeStamp
}

func (e CompletionEvent) GetSymbol() string      { return e.Symbol }
func (e CompletionEvent) GetSeq() uint64         { return 0 }
func (e CompletionEvent) GetTs() quant.TimeStamp { return e.Ts }
func (e CompletionEvent) GetType() Type          { return EvCompletion }

// FeedTimeoutEvent signals that the feed produced nothing within the
// bounded read window. Distinct from data so the worker can count
// consecutive timeouts and degrade.
type FeedTimeoutEvent struct {
	Symbol string
	Ts     quant.TimeStamp
}

func (e FeedTimeoutEvent) GetSymbol() string      { return e.Symbol }
func (e FeedTimeoutEvent) GetSeq() uint64         { return 0 }
func (e FeedTimeoutEvent) GetTs() quant.TimeStamp { return e.Ts }
func (e FeedTimeoutEvent) GetType() Type          { return EvFeedTimeout }
