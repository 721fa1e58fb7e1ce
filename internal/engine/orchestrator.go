package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/event"
	"github.com/MuhammadAliAbid58/HFT-2/internal/execution"
	"github.com/MuhammadAliAbid58/HFT-2/internal/filter"
	"github.com/MuhammadAliAbid58/HFT-2/internal/infra"
	"github.com/MuhammadAliAbid58/HFT-2/internal/latency"
	"github.com/MuhammadAliAbid58/HFT-2/internal/position"
	"github.com/MuhammadAliAbid58/HFT-2/internal/signal"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/safe"
)

// completionDeliverTimeout bounds completion routing into a worker inbox.
const completionDeliverTimeout = 2 * time.Second

// GatewayFactory builds the execution gateway once the orchestrator's
// completion sink exists. Breaks the construction cycle between the two.
type GatewayFactory func(sink execution.CompletionSink) (execution.Gateway, error)

// Orchestrator spawns one worker per configured symbol and routes every
// event to the owning worker's inbox. Workers never see each other's data;
// symbol isolation is structural, not locked.
type Orchestrator struct {
	workers  map[string]*Worker
	counters *Counters
	tracker  *latency.Tracker
	gateway  execution.Gateway

	closes    chan domain.ClosedRecord
	onArchive func(domain.ClosedRecord)

	stopped atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	archWg  sync.WaitGroup
}

// NewOrchestrator wires workers from config. onArchive receives every closed
// position in close order per symbol (journal hookup); may be nil.
func NewOrchestrator(cfg *infra.Config, factory GatewayFactory, onArchive func(domain.ClosedRecord)) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	names := make([]string, len(cfg.Symbols))
	for i, s := range cfg.Symbols {
		names[i] = s.Name
	}
	tracker, err := latency.NewTracker(names, cfg.Latency.Window)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		workers:   make(map[string]*Worker, len(cfg.Symbols)),
		counters:  &Counters{},
		tracker:   tracker,
		closes:    make(chan domain.ClosedRecord, 256),
		onArchive: onArchive,
	}

	gateway, err := factory(o.CompletionSink)
	if err != nil {
		return nil, err
	}
	o.gateway = gateway

	tieBreak := position.TieBreakStopLoss
	if cfg.Risk.TieBreak == "take_profit" {
		tieBreak = position.TieBreakTakeProfit
	}

	for _, sc := range cfg.Symbols {
		sym := domain.Symbol{Name: sc.Name, PipMicros: sc.PipMicros}
		w, err := NewWorker(WorkerConfig{
			Symbol:    sym,
			InboxSize: 1024,
			Thresholds: filter.Thresholds{
				MaxSpreadMicros:     safe.SafeMul(cfg.Risk.MaxSpreadPips, sym.PipMicros),
				MinConfidenceMicros: cfg.Risk.MinConfidenceMicros,
			},
			Signal: signal.Params{
				OpenBiasMicros:      cfg.Signal.OpenBiasMicros,
				OpenImbalanceMicros: cfg.Signal.OpenImbalanceMicros,
				ReverseBiasMicros:   cfg.Signal.ReverseBiasMicros,
			},
			Position: position.Config{
				Symbol:         sym,
				StopLossPips:   cfg.Risk.StopLossPips,
				TakeProfitPips: cfg.Risk.TakeProfitPips,
				TieBreak:       tieBreak,
			},
			ReadTimeout:            time.Duration(cfg.Feed.ReadTimeoutMS) * time.Millisecond,
			MaxConsecutiveTimeouts: cfg.Feed.MaxConsecutiveTimeouts,
			TickWindow:             cfg.Feed.TickWindow,
			BiasLookback:           cfg.Feed.BiasLookback,
		}, WorkerDeps{
			Gateway:  gateway,
			Tracker:  tracker,
			Counters: o.counters,
			OnClose:  o.enqueueClose,
		})
		if err != nil {
			return nil, err
		}
		o.workers[sc.Name] = w
	}

	return o, nil
}

// Gateway exposes the constructed gateway (sim controls in integration
// runs).
func (o *Orchestrator) Gateway() execution.Gateway {
	return o.gateway
}

// Start launches every worker plus the archive consumer.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)

	o.archWg.Add(1)
	go o.archiveLoop()

	for _, w := range o.workers {
		o.wg.Add(1)
		go func(w *Worker) {
			defer o.wg.Done()
			w.Run(ctx)
		}(w)
	}
	slog.Info("orchestrator started", slog.Int("workers", len(o.workers)))
}

// Stop shuts workers down (each attempts to flatten its position), then
// stops routing. Completions arriving after Stop are counted and dropped.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	o.stopped.Store(true)
	close(o.closes)
	o.archWg.Wait()
	slog.Info("orchestrator stopped")
}

// MarketSink routes feed events into the owning worker's inbox. A full
// inbox drops the event rather than blocking the feed; the worker is behind
// and newer data supersedes it anyway.
func (o *Orchestrator) MarketSink(ev event.Event) {
	if o.stopped.Load() {
		return
	}
	w, ok := o.workers[ev.GetSymbol()]
	if !ok {
		slog.Warn("event for unknown symbol dropped", slog.String("symbol", ev.GetSymbol()))
		return
	}
	select {
	case w.Inbox() <- ev:
	default:
		o.counters.AddInboxDropped()
	}
}

// CompletionSink routes gateway completions. Unlike market data, a
// completion blocks until the worker takes it: losing one would strand a
// pending position. After teardown they are discarded and counted.
func (o *Orchestrator) CompletionSink(c event.CompletionEvent) {
	if o.stopped.Load() {
		o.counters.AddLateDiscarded()
		slog.Debug("completion after teardown discarded",
			slog.String("symbol", c.Symbol),
			slog.String("request_id", c.RequestID))
		return
	}
	w, ok := o.workers[c.Symbol]
	if !ok {
		o.counters.AddLateDiscarded()
		return
	}
	select {
	case w.Inbox() <- c:
	case <-time.After(completionDeliverTimeout):
		// Worker is gone or wedged; stranding the sender goroutine would
		// be worse than dropping.
		o.counters.AddLateDiscarded()
		slog.Warn("completion delivery timed out",
			slog.String("symbol", c.Symbol),
			slog.String("request_id", c.RequestID))
	}
}

func (o *Orchestrator) enqueueClose(rec domain.ClosedRecord) {
	select {
	case o.closes <- rec:
	default:
		slog.Error("archive queue full, record dropped",
			slog.String("symbol", rec.Symbol))
	}
}

func (o *Orchestrator) archiveLoop() {
	defer o.archWg.Done()
	for rec := range o.closes {
		if o.onArchive != nil {
			o.onArchive(rec)
		}
	}
}

// SymbolReport is one symbol's slice of the session report.
type SymbolReport struct {
	Stats    position.SessionStats
	Degraded bool
	Latency  map[latency.Stage]latency.Summary
}

// Report aggregates the whole session.
type Report struct {
	Symbols  map[string]SymbolReport
	Counters CountersSnapshot

	TotalTrades     uint64
	TotalWins       uint64
	TotalPnlMicros  int64
	WinRatePerMille uint64 // wins per thousand trades
}

// Report snapshots counters, latency and per-symbol accounting.
func (o *Orchestrator) Report() Report {
	lat := o.tracker.Snapshot()
	r := Report{
		Symbols:  make(map[string]SymbolReport, len(o.workers)),
		Counters: o.counters.Snapshot(),
	}
	for name, w := range o.workers {
		stats := w.SessionStats()
		r.Symbols[name] = SymbolReport{
			Stats:    stats,
			Degraded: w.Degraded(),
			Latency:  lat[name],
		}
		r.TotalTrades += stats.Trades
		r.TotalWins += stats.Wins
		r.TotalPnlMicros = safe.SafeAdd(r.TotalPnlMicros, stats.TotalPnlMicros)
	}
	if r.TotalTrades > 0 {
		r.WinRatePerMille = r.TotalWins * 1000 / r.TotalTrades
	}
	return r
}

// Worker returns the named worker, for tests and diagnostics.
func (o *Orchestrator) Worker(symbol string) (*Worker, error) {
	w, ok := o.workers[symbol]
	if !ok {
		return nil, fmt.Errorf("no worker for symbol %s", symbol)
	}
	return w, nil
}
