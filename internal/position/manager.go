package position

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/event"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/safe"
)

// TieBreak selects which trigger wins when a single tick breaches both
// stop-loss and take-profit (only possible with inverted levels).
type TieBreak int8

const (
	TieBreakStopLoss TieBreak = iota // conservative default
	TieBreakTakeProfit
)

// Config fixes the risk policy for one symbol slot.
type Config struct {
	Symbol         domain.Symbol
	StopLossPips   int64
	TakeProfitPips int64
	TieBreak       TieBreak
}

// Validate fails fast before any worker starts.
func (c Config) Validate() error {
	if c.Symbol.Name == "" {
		return fmt.Errorf("position config: empty symbol name")
	}
	if c.Symbol.PipMicros <= 0 {
		return fmt.Errorf("position config %s: pip size must be positive, got %d", c.Symbol.Name, c.Symbol.PipMicros)
	}
	if c.StopLossPips <= 0 {
		return fmt.Errorf("position config %s: stop loss pips must be positive, got %d", c.Symbol.Name, c.StopLossPips)
	}
	if c.TakeProfitPips <= 0 {
		return fmt.Errorf("position config %s: take profit pips must be positive, got %d", c.Symbol.Name, c.TakeProfitPips)
	}
	return nil
}

// ResultKind classifies the state transition caused by a completion.
type ResultKind int8

const (
	ResultNone ResultKind = iota
	ResultOpened
	ResultOpenRejected
	ResultClosed
	ResultCloseRejected
	ResultDiscarded // stale/duplicate completion, no transition
)

// CompletionResult reports what a gateway completion did to the slot.
type CompletionResult struct {
	Kind      ResultKind
	Position  domain.Position      // copy of the slot after the transition
	Record    *domain.ClosedRecord // set for ResultClosed
	RequestTs quant.TimeStamp      // submit time of the matched request
	Reason    string               // reject reason, if any
}

// Manager owns the authoritative state machine for one symbol slot:
// Flat -> PendingOpen -> Open -> PendingClose -> Closed, with Rejected
// terminal from PendingOpen. At most one non-terminal position exists at a
// time, and every pending state has exactly one outstanding OrderRequest.
//
// Manager is NOT thread-safe: the owning symbol worker serializes all calls
// (tick-driven and completion-driven) through its inbox.
type Manager struct {
	cfg Config

	slot        *domain.Position
	outstanding *domain.OrderRequest

	// Close deferred because the gateway was unavailable; the position
	// stays Open and the worker retries with backoff.
	queuedCloseReason domain.CloseReason
	closeQueued       bool

	// Session accounting.
	trades         uint64
	wins           uint64
	losses         uint64
	totalPnlMicros int64
}

// NewManager creates the state machine for one symbol.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg}, nil
}

// HasPosition reports whether any non-terminal position occupies the slot.
func (m *Manager) HasPosition() bool {
	return m.slot != nil && !m.slot.State.Terminal()
}

// Direction returns the slot direction; zero value when Flat.
func (m *Manager) Direction() domain.Direction {
	if m.slot == nil {
		return 0
	}
	return m.slot.Direction
}

// State returns the current slot state; ok is false when Flat.
func (m *Manager) State() (domain.PositionState, bool) {
	if !m.HasPosition() {
		return 0, false
	}
	return m.slot.State, true
}

// Current returns a copy of the slot position, if any.
func (m *Manager) Current() (domain.Position, bool) {
	if !m.HasPosition() {
		return domain.Position{}, false
	}
	return *m.slot, true
}

// CloseQueued reports whether a close is waiting for gateway recovery.
func (m *Manager) CloseQueued() bool {
	return m.closeQueued
}

// HandleIntent applies an evaluator intent. It returns the OrderRequest to
// submit, or nil when the intent is a no-op in the current state
// (re-entrant opens while PendingOpen/Open are no-ops by contract).
func (m *Manager) HandleIntent(intent domain.Intent, t domain.Tick) *domain.OrderRequest {
	switch intent {
	case domain.OpenLong, domain.OpenShort:
		if m.HasPosition() {
			return nil
		}
		dir := domain.Long
		price := t.AskMicros // market buy lifts the offer
		if intent == domain.OpenShort {
			dir = domain.Short
			price = t.BidMicros
		}
		m.slot = &domain.Position{
			ID:        uuid.NewString(),
			Symbol:    m.cfg.Symbol.Name,
			Direction: dir,
			State:     domain.StatePendingOpen,
		}
		m.outstanding = &domain.OrderRequest{
			ID:          uuid.NewString(),
			PositionID:  m.slot.ID,
			Intent:      domain.RequestOpen,
			Symbol:      m.cfg.Symbol.Name,
			Direction:   dir,
			PriceMicros: price,
			Ts:          t.Ts,
		}
		return m.outstanding

	case domain.CloseExisting:
		return m.beginClose(domain.CloseSignal, t)

	default:
		return nil
	}
}

// CheckTriggers evaluates SL/TP against a tick while Open. It returns the
// close OrderRequest when a level is breached, else nil. Long positions
// trigger on bid, shorts on ask. Simultaneous breach resolves per TieBreak.
func (m *Manager) CheckTriggers(t domain.Tick) *domain.OrderRequest {
	if m.slot == nil || m.slot.State != domain.StateOpen {
		return nil
	}

	var slHit, tpHit bool
	if m.slot.Direction == domain.Long {
		slHit = t.BidMicros <= m.slot.StopLossMicros
		tpHit = t.BidMicros >= m.slot.TakeProfitMicros
	} else {
		slHit = t.AskMicros >= m.slot.StopLossMicros
		tpHit = t.AskMicros <= m.slot.TakeProfitMicros
	}

	switch {
	case slHit && tpHit:
		if m.cfg.TieBreak == TieBreakTakeProfit {
			return m.beginClose(domain.CloseTakeProfit, t)
		}
		return m.beginClose(domain.CloseStopLoss, t)
	case slHit:
		return m.beginClose(domain.CloseStopLoss, t)
	case tpHit:
		return m.beginClose(domain.CloseTakeProfit, t)
	default:
		return nil
	}
}

// BeginShutdownClose requests a close of an Open position at teardown.
func (m *Manager) BeginShutdownClose(t domain.Tick) *domain.OrderRequest {
	return m.beginClose(domain.CloseShutdown, t)
}

func (m *Manager) beginClose(reason domain.CloseReason, t domain.Tick) *domain.OrderRequest {
	if m.slot == nil || m.slot.State != domain.StateOpen {
		return nil
	}
	price := t.BidMicros // closing a long sells at bid
	if m.slot.Direction == domain.Short {
		price = t.AskMicros
	}
	m.slot.State = domain.StatePendingClose
	m.slot.Reason = reason
	m.closeQueued = false
	m.outstanding = &domain.OrderRequest{
		ID:          uuid.NewString(),
		PositionID:  m.slot.ID,
		Intent:      domain.RequestClose,
		Symbol:      m.cfg.Symbol.Name,
		Direction:   m.slot.Direction,
		PriceMicros: price,
		Ts:          t.Ts,
	}
	return m.outstanding
}

// OnSubmitFailed unwinds a pending state whose request never reached the
// gateway (synchronous submit error, e.g. circuit open). An open attempt
// frees the slot; a close attempt returns to Open with the close queued for
// backoff retry.
func (m *Manager) OnSubmitFailed(requestID string) {
	if m.outstanding == nil || m.outstanding.ID != requestID || m.slot == nil {
		return
	}
	switch m.slot.State {
	case domain.StatePendingOpen:
		m.slot = nil
	case domain.StatePendingClose:
		m.queuedCloseReason = m.slot.Reason
		m.closeQueued = true
		m.slot.State = domain.StateOpen
		m.slot.Reason = ""
	}
	m.outstanding = nil
}

// RetryQueuedClose re-issues a queued close with a fresh correlation id.
// Returns nil when no close is queued or the position is gone.
func (m *Manager) RetryQueuedClose(t domain.Tick) *domain.OrderRequest {
	if !m.closeQueued {
		return nil
	}
	return m.beginClose(m.queuedCloseReason, t)
}

// ApplyCompletion applies an asynchronous gateway completion. Completions
// whose correlation id does not match the outstanding request are discarded
// without touching state (idempotence against re-delivery).
func (m *Manager) ApplyCompletion(c event.CompletionEvent) CompletionResult {
	if m.outstanding == nil || m.outstanding.ID != c.RequestID || m.slot == nil {
		return CompletionResult{Kind: ResultDiscarded}
	}

	requestTs := m.outstanding.Ts
	m.outstanding = nil

	switch m.slot.State {
	case domain.StatePendingOpen:
		if c.Status == event.CompletionReject {
			// Surfaced, not retried; the slot returns to Flat.
			rejected := *m.slot
			rejected.State = domain.StateRejected
			m.slot = nil
			return CompletionResult{Kind: ResultOpenRejected, Position: rejected, RequestTs: requestTs, Reason: c.Reason}
		}
		// Entry comes from the fill, not the requested price (slippage).
		m.slot.State = domain.StateOpen
		m.slot.EntryMicros = c.PriceMicros
		m.slot.EntryTs = c.Ts
		m.computeLevels()
		return CompletionResult{Kind: ResultOpened, Position: *m.slot, RequestTs: requestTs}

	case domain.StatePendingClose:
		if c.Status == event.CompletionReject {
			// Position stays open; eligible for re-trigger on the next
			// breach or explicit close intent, never a tight retry loop.
			m.slot.State = domain.StateOpen
			m.slot.Reason = ""
			return CompletionResult{Kind: ResultCloseRejected, Position: *m.slot, RequestTs: requestTs, Reason: c.Reason}
		}
		m.slot.State = domain.StateClosed
		m.slot.CloseMicros = c.PriceMicros
		m.slot.CloseTs = c.Ts
		record := m.archive()
		closed := *m.slot
		m.slot = nil
		return CompletionResult{Kind: ResultClosed, Position: closed, Record: record, RequestTs: requestTs}

	default:
		return CompletionResult{Kind: ResultDiscarded}
	}
}

// computeLevels fixes SL/TP from the entry fill. Immutable afterwards.
func (m *Manager) computeLevels() {
	slOffset := safe.SafeMul(m.cfg.StopLossPips, m.cfg.Symbol.PipMicros)
	tpOffset := safe.SafeMul(m.cfg.TakeProfitPips, m.cfg.Symbol.PipMicros)
	entry := int64(m.slot.EntryMicros)

	if m.slot.Direction == domain.Long {
		m.slot.StopLossMicros = quant.PriceMicros(safe.SafeSub(entry, slOffset))
		m.slot.TakeProfitMicros = quant.PriceMicros(safe.SafeAdd(entry, tpOffset))
	} else {
		m.slot.StopLossMicros = quant.PriceMicros(safe.SafeAdd(entry, slOffset))
		m.slot.TakeProfitMicros = quant.PriceMicros(safe.SafeSub(entry, tpOffset))
	}
}

func (m *Manager) archive() *domain.ClosedRecord {
	pnl := m.slot.PnlMicros(m.slot.CloseMicros)
	outcome := domain.OutcomeLoss
	if pnl > 0 {
		outcome = domain.OutcomeWin
	}

	m.trades++
	if outcome == domain.OutcomeWin {
		m.wins++
	} else {
		m.losses++
	}
	m.totalPnlMicros = safe.SafeAdd(m.totalPnlMicros, pnl)

	return &domain.ClosedRecord{
		Symbol:      m.slot.Symbol,
		Direction:   m.slot.Direction,
		EntryMicros: m.slot.EntryMicros,
		CloseMicros: m.slot.CloseMicros,
		OpenTs:      m.slot.EntryTs,
		CloseTs:     m.slot.CloseTs,
		Outcome:     outcome,
		Reason:      m.slot.Reason,
		PnlMicros:   pnl,
	}
}

// SessionStats is the slot's realized accounting.
type SessionStats struct {
	Trades         uint64
	Wins           uint64
	Losses         uint64
	TotalPnlMicros int64
}

// Stats returns realized session accounting for this slot.
func (m *Manager) Stats() SessionStats {
	return SessionStats{
		Trades:         m.trades,
		Wins:           m.wins,
		Losses:         m.losses,
		TotalPnlMicros: m.totalPnlMicros,
	}
}
