package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/event"
	"github.com/MuhammadAliAbid58/HFT-2/internal/execution"
	"github.com/MuhammadAliAbid58/HFT-2/internal/feed"
	"github.com/MuhammadAliAbid58/HFT-2/internal/filter"
	"github.com/MuhammadAliAbid58/HFT-2/internal/infra"
	"github.com/MuhammadAliAbid58/HFT-2/internal/latency"
	"github.com/MuhammadAliAbid58/HFT-2/internal/market"
	"github.com/MuhammadAliAbid58/HFT-2/internal/position"
	"github.com/MuhammadAliAbid58/HFT-2/internal/signal"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

// shutdownDrain bounds how long a worker waits for the completion of its
// final shutdown close.
const shutdownDrain = 2 * time.Second

// Close retries run at trading timescale, not connection timescale: an
// unprotected open position cannot wait seconds for its first retry.
const (
	closeRetryBase = 50 * time.Millisecond
	closeRetryMax  = 5 * time.Second
)

// WorkerConfig fixes one symbol worker's behavior at startup.
type WorkerConfig struct {
	Symbol     domain.Symbol
	InboxSize  int
	Thresholds filter.Thresholds
	Signal     signal.Params
	Position   position.Config

	ReadTimeout            time.Duration
	MaxConsecutiveTimeouts int
	TickWindow             int
	BiasLookback           int
}

func (c WorkerConfig) validate() error {
	if c.InboxSize <= 0 {
		return fmt.Errorf("worker %s: inbox size must be positive", c.Symbol.Name)
	}
	if c.Thresholds.MaxSpreadMicros <= 0 || c.Thresholds.MinConfidenceMicros <= 0 {
		return fmt.Errorf("worker %s: admission thresholds must be positive", c.Symbol.Name)
	}
	if !c.Signal.Validate() {
		return fmt.Errorf("worker %s: invalid signal params", c.Symbol.Name)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("worker %s: read timeout must be positive", c.Symbol.Name)
	}
	if c.MaxConsecutiveTimeouts <= 0 {
		return fmt.Errorf("worker %s: max consecutive timeouts must be positive", c.Symbol.Name)
	}
	if c.BiasLookback <= 0 || c.TickWindow < c.BiasLookback {
		return fmt.Errorf("worker %s: tick window %d must cover lookback %d", c.Symbol.Name, c.TickWindow, c.BiasLookback)
	}
	return nil
}

// Worker owns everything for one symbol: market statistics, the position
// state machine, and the gate against stale data. All of it is mutated from
// a single goroutine consuming the inbox, so the hotpath needs no locks.
// Market data, completions and timeouts are serialized through that inbox;
// nothing observes a half-applied transition.
type Worker struct {
	cfg WorkerConfig

	inbox chan event.Event
	gate  *feed.Gate
	stats *market.Stats
	mgr   *position.Manager

	gateway  execution.Gateway
	tracker  *latency.Tracker
	counters *Counters
	onClose  func(domain.ClosedRecord)

	// Degraded mode: feed went silent too long. Exposed atomically for
	// reports; flipped only by the worker loop.
	degraded atomic.Bool

	consecTimeouts int
	dataStreak     int
	lastTick       domain.Tick
	haveTick       bool

	// Close retry after a synchronous gateway refusal.
	retryCount int
	retryAt    time.Time

	submitTs quant.TimeStamp // wall time of the outstanding submit
}

// WorkerDeps are the shared services a worker plugs into.
type WorkerDeps struct {
	Gateway  execution.Gateway
	Tracker  *latency.Tracker
	Counters *Counters
	OnClose  func(domain.ClosedRecord) // invoked for every archived close, may be nil
}

// NewWorker builds one symbol worker. Fails fast on any config problem.
func NewWorker(cfg WorkerConfig, deps WorkerDeps) (*Worker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if deps.Gateway == nil || deps.Tracker == nil || deps.Counters == nil {
		return nil, fmt.Errorf("worker %s: missing dependencies", cfg.Symbol.Name)
	}
	mgr, err := position.NewManager(cfg.Position)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		cfg:      cfg,
		inbox:    make(chan event.Event, cfg.InboxSize),
		stats:    market.NewStats(cfg.Symbol.Name, cfg.TickWindow, cfg.BiasLookback),
		mgr:      mgr,
		gateway:  deps.Gateway,
		tracker:  deps.Tracker,
		counters: deps.Counters,
		onClose:  deps.OnClose,
	}
	w.gate = feed.NewGate(func() {
		w.counters.AddStaleData()
		slog.Debug("stale data dropped", slog.String("symbol", cfg.Symbol.Name))
	})
	return w, nil
}

// Inbox is where the orchestrator delivers this symbol's events.
func (w *Worker) Inbox() chan<- event.Event {
	return w.inbox
}

// Degraded reports whether the worker stopped opening new positions.
func (w *Worker) Degraded() bool {
	return w.degraded.Load()
}

// SessionStats returns realized accounting. Only meaningful once the worker
// has stopped, or as an approximate live read.
func (w *Worker) SessionStats() position.SessionStats {
	return w.mgr.Stats()
}

// Run consumes the inbox until ctx is done. MUST run in exactly one
// goroutine.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("worker started", slog.String("symbol", w.cfg.Symbol.Name))

	timer := time.NewTimer(w.cfg.ReadTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return
		case ev := <-w.inbox:
			w.handle(ctx, ev)
			// Data re-arms the watchdog. So does a feed-reported timeout:
			// it already is the report for the silent window, and counting
			// the local timer on top of it would double every timeout.
			switch ev.GetType() {
			case event.EvTick, event.EvDepth, event.EvFeedTimeout:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.cfg.ReadTimeout)
			}
		case <-timer.C:
			w.onFeedTimeout()
			timer.Reset(w.cfg.ReadTimeout)
		}
	}
}

func (w *Worker) handle(ctx context.Context, ev event.Event) {
	switch e := ev.(type) {
	case event.TickEvent:
		w.onTick(ctx, e.Tick)
	case event.DepthEvent:
		w.onDepth(e)
	case event.CompletionEvent:
		w.onCompletion(e)
	case event.FeedTimeoutEvent:
		w.onFeedTimeout()
	default:
		slog.Warn("unknown event type", slog.Any("type", ev.GetType()))
	}
}

func (w *Worker) onTick(ctx context.Context, t domain.Tick) {
	if !w.gate.Admit(t.Seq) {
		return
	}
	w.markDataSeen()

	if !t.Valid() {
		w.counters.AddStaleData()
		slog.Debug("invalid tick dropped", slog.String("symbol", t.Symbol))
		return
	}

	t0 := quant.Now()
	w.stats.ApplyTick(t)
	w.lastTick = t
	w.haveTick = true

	// A queued close owns the slot until it lands: re-triggering off the
	// raw levels here would turn the backoff into a tight retry loop.
	if w.mgr.CloseQueued() {
		if time.Now().After(w.retryAt) {
			if req := w.mgr.RetryQueuedClose(t); req != nil {
				w.submit(ctx, req, t0)
			}
		}
		return
	}

	// Risk exits always run, degraded or not.
	if req := w.mgr.CheckTriggers(t); req != nil {
		w.submit(ctx, req, t0)
		return
	}

	if !w.stats.Ready() {
		return
	}

	snap := w.stats.Snapshot(t)
	if !filter.Admit(snap, w.cfg.Thresholds) {
		return
	}

	slot := signal.SlotView{HasPosition: w.mgr.HasPosition(), Direction: w.mgr.Direction()}
	intent := signal.Evaluate(snap, slot, w.cfg.Signal)
	t1 := quant.Now()
	w.tracker.Record(t.Symbol, latency.StageTickToDecision, t0, t1)

	if intent == domain.NoAction {
		return
	}
	if w.degraded.Load() && intent != domain.CloseExisting {
		return
	}

	if req := w.mgr.HandleIntent(intent, t); req != nil {
		w.submit(ctx, req, t1)
	}
}

func (w *Worker) onDepth(e event.DepthEvent) {
	if !w.gate.Admit(e.Seq) {
		return
	}
	w.markDataSeen()
	w.stats.ApplyDom(e.Dom)
}

// submit hands a request to the gateway. A synchronous refusal unwinds the
// pending state; a refused close is queued for backoff retry.
func (w *Worker) submit(ctx context.Context, req *domain.OrderRequest, decidedAt quant.TimeStamp) {
	var err error
	if req.Intent == domain.RequestOpen {
		err = w.gateway.SubmitOpen(ctx, *req)
	} else {
		err = w.gateway.SubmitClose(ctx, *req)
	}

	now := quant.Now()
	w.tracker.Record(req.Symbol, latency.StageDecisionToRequest, decidedAt, now)

	if err != nil {
		if errors.Is(err, execution.ErrRateLimited) {
			w.counters.AddRateLimited()
		} else {
			w.counters.AddGatewayUnavailable()
		}
		w.mgr.OnSubmitFailed(req.ID)
		if req.Intent == domain.RequestClose {
			w.retryAt = time.Now().Add(infra.Backoff(w.retryCount, closeRetryBase, closeRetryMax))
			w.retryCount++
			slog.Warn("close submit refused, queued for retry",
				slog.String("symbol", req.Symbol),
				slog.Int("retry", w.retryCount),
				slog.Any("err", err))
		} else {
			slog.Warn("open submit refused, slot freed",
				slog.String("symbol", req.Symbol),
				slog.Any("err", err))
		}
		return
	}
	w.submitTs = now
}

func (w *Worker) onCompletion(c event.CompletionEvent) {
	res := w.mgr.ApplyCompletion(c)

	switch res.Kind {
	case position.ResultDiscarded:
		w.counters.AddLateDiscarded()
		slog.Debug("late completion discarded",
			slog.String("symbol", c.Symbol),
			slog.String("request_id", c.RequestID))

	case position.ResultOpened:
		w.tracker.Record(c.Symbol, latency.StageRequestToFill, w.submitTs, c.Ts)
		slog.Info("position opened",
			slog.String("symbol", c.Symbol),
			slog.String("direction", res.Position.Direction.String()),
			slog.Int64("entry", int64(res.Position.EntryMicros)),
			slog.Int64("stop_loss", int64(res.Position.StopLossMicros)),
			slog.Int64("take_profit", int64(res.Position.TakeProfitMicros)))

	case position.ResultOpenRejected:
		w.counters.AddOrderRejected()
		w.tracker.Record(c.Symbol, latency.StageRequestToFill, w.submitTs, c.Ts)
		slog.Warn("open rejected",
			slog.String("symbol", c.Symbol),
			slog.String("reason", res.Reason))

	case position.ResultClosed:
		w.retryCount = 0
		w.tracker.Record(c.Symbol, latency.StageRequestToFill, w.submitTs, c.Ts)
		slog.Info("position closed",
			slog.String("symbol", c.Symbol),
			slog.String("outcome", string(res.Record.Outcome)),
			slog.String("reason", string(res.Record.Reason)),
			slog.Int64("pnl", res.Record.PnlMicros))
		if w.onClose != nil {
			w.onClose(*res.Record)
		}

	case position.ResultCloseRejected:
		w.counters.AddOrderRejected()
		slog.Warn("close rejected, position stays open",
			slog.String("symbol", c.Symbol),
			slog.String("reason", res.Reason))
	}
}

func (w *Worker) onFeedTimeout() {
	w.counters.AddFeedTimeout()
	w.consecTimeouts++
	w.dataStreak = 0
	if w.consecTimeouts >= w.cfg.MaxConsecutiveTimeouts && !w.degraded.Load() {
		w.degraded.Store(true)
		slog.Warn("worker degraded: feed silent",
			slog.String("symbol", w.cfg.Symbol.Name),
			slog.Int("consecutive_timeouts", w.consecTimeouts))
	}
}

// markDataSeen resets the timeout streak. Recovery from degraded mode needs
// a sustained run of data, symmetric with the timeout threshold, so one
// straggler tick in a dead feed does not re-arm opening.
func (w *Worker) markDataSeen() {
	w.consecTimeouts = 0
	if !w.degraded.Load() {
		return
	}
	w.dataStreak++
	if w.dataStreak >= w.cfg.MaxConsecutiveTimeouts {
		w.degraded.Store(false)
		w.dataStreak = 0
		slog.Info("worker recovered: feed data resumed",
			slog.String("symbol", w.cfg.Symbol.Name))
	}
}

// shutdown attempts to flatten an open position before exiting, waiting a
// bounded time for the completion.
func (w *Worker) shutdown() {
	defer slog.Info("worker stopped", slog.String("symbol", w.cfg.Symbol.Name))

	state, ok := w.mgr.State()
	if !ok || !w.haveTick {
		return
	}
	if state == domain.StateOpen {
		req := w.mgr.BeginShutdownClose(w.lastTick)
		if req == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownDrain)
		defer cancel()
		if err := w.gateway.SubmitClose(ctx, *req); err != nil {
			slog.Warn("shutdown close refused",
				slog.String("symbol", w.cfg.Symbol.Name),
				slog.Any("err", err))
			return
		}
		w.submitTs = quant.Now()
	}

	// Drain the inbox for the terminal completion.
	deadline := time.After(shutdownDrain)
	for {
		select {
		case ev := <-w.inbox:
			if c, ok := ev.(event.CompletionEvent); ok {
				w.onCompletion(c)
				if !w.mgr.HasPosition() {
					return
				}
			}
		case <-deadline:
			slog.Warn("shutdown drain timed out with position pending",
				slog.String("symbol", w.cfg.Symbol.Name))
			return
		}
	}
}

