package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/event"
	"github.com/MuhammadAliAbid58/HFT-2/internal/execution"
	"github.com/MuhammadAliAbid58/HFT-2/internal/infra"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

// testEngineConfig assembles a validated config without a yaml file.
func testEngineConfig() *infra.Config {
	cfg := &infra.Config{}
	cfg.Trading.Mode = infra.ModeSim
	cfg.Symbols = []infra.SymbolConfig{
		{Name: "EURUSD", PipMicros: 100},
		{Name: "GBPUSD", PipMicros: 100},
	}
	cfg.Risk.StopLossPips = 10
	cfg.Risk.TakeProfitPips = 20
	cfg.Risk.MaxSpreadPips = 2
	cfg.Risk.MinConfidenceMicros = 400000
	cfg.Risk.TieBreak = "stop_loss"
	cfg.Signal.OpenBiasMicros = 300000
	cfg.Signal.OpenImbalanceMicros = 200000
	cfg.Signal.ReverseBiasMicros = 300000
	cfg.Feed.ReadTimeoutMS = 60_000 // quiet watchdog for scripted tests
	cfg.Feed.MaxConsecutiveTimeouts = 5
	cfg.Feed.TickWindow = 256
	cfg.Feed.BiasLookback = 10
	cfg.Gateway.MaxRequestsBurst = 20
	cfg.Gateway.RequestsPerSecond = 100
	cfg.Gateway.Seed = 1
	cfg.Storage.DBPath = "unused.db"
	cfg.Latency.Window = 1024
	return cfg
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	cfg := testEngineConfig()

	var mu sync.Mutex
	var archived []domain.ClosedRecord

	var gw *execution.MockGateway
	o, err := NewOrchestrator(cfg,
		func(sink execution.CompletionSink) (execution.Gateway, error) {
			gw = execution.NewMockGateway(sink)
			return gw, nil
		},
		func(rec domain.ClosedRecord) {
			mu.Lock()
			archived = append(archived, rec)
			mu.Unlock()
		})
	if err != nil {
		t.Fatal(err)
	}
	return &orchestratorFixture{
		o:  o,
		gw: gw,
		archived: func() []domain.ClosedRecord {
			mu.Lock()
			defer mu.Unlock()
			out := make([]domain.ClosedRecord, len(archived))
			copy(out, archived)
			return out
		},
	}
}

type orchestratorFixture struct {
	o        *Orchestrator
	gw       *execution.MockGateway
	archived func() []domain.ClosedRecord
}

func tickEvent(symbol string, bid int64, seq uint64) event.TickEvent {
	return event.TickEvent{Tick: domain.Tick{
		Symbol:    symbol,
		BidMicros: quant.PriceMicros(bid),
		AskMicros: quant.PriceMicros(bid + 100),
		Ts:        quant.Now(),
		Seq:       seq,
	}}
}

func depthEvent(symbol string, bidVol, askVol int64, seq uint64) event.DepthEvent {
	return event.DepthEvent{
		Dom: &domain.DomSnapshot{
			Symbol: symbol,
			Bids:   []domain.DomLevel{{PriceMicros: 1105000, Volume: quant.VolumeUnits(bidVol)}},
			Asks:   []domain.DomLevel{{PriceMicros: 1105100, Volume: quant.VolumeUnits(askVol)}},
			Ts:     quant.Now(),
		},
		Seq: seq,
	}
}

// Two symbols fed interleaved scripted paths: each worker trades its own
// stream, and no record ever crosses symbols.
func TestOrchestrator_SymbolIsolation(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fx.o.Start(ctx)

	symbols := []string{"EURUSD", "GBPUSD"}
	seqs := map[string]uint64{}
	bids := map[string]int64{"EURUSD": 1105000, "GBPUSD": 1255000}

	send := func(ev event.Event) { fx.o.MarketSink(ev) }

	for _, sym := range symbols {
		seqs[sym]++
		send(depthEvent(sym, 300, 100, seqs[sym]))
	}

	// Interleaved ramps: up 2000 micros, down 4000, up 2000, for both
	// symbols. Crosses SL and TP levels repeatedly.
	script := []int64{}
	for i := 0; i < 20; i++ {
		script = append(script, 100)
	}
	for i := 0; i < 40; i++ {
		script = append(script, -100)
	}
	for i := 0; i < 20; i++ {
		script = append(script, 100)
	}

	for _, step := range script {
		for _, sym := range symbols {
			bids[sym] += step
			seqs[sym]++
			send(tickEvent(sym, bids[sym], seqs[sym]))
		}
		time.Sleep(100 * time.Microsecond) // let workers drain
	}

	time.Sleep(50 * time.Millisecond)
	fx.o.Stop()

	for _, rec := range fx.archived() {
		if rec.Symbol != "EURUSD" && rec.Symbol != "GBPUSD" {
			t.Fatalf("record for unexpected symbol %q", rec.Symbol)
		}
	}

	report := fx.o.Report()
	var fromRecords uint64
	perSymbol := map[string]uint64{}
	for _, rec := range fx.archived() {
		fromRecords++
		perSymbol[rec.Symbol]++
	}
	if report.TotalTrades != fromRecords {
		t.Errorf("report trades = %d, archived = %d", report.TotalTrades, fromRecords)
	}
	for sym, n := range perSymbol {
		if report.Symbols[sym].Stats.Trades != n {
			t.Errorf("%s: report %d trades, archived %d", sym, report.Symbols[sym].Stats.Trades, n)
		}
	}
}

func TestOrchestrator_UnknownSymbolDropped(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fx.o.Start(ctx)

	// Must not panic or reach any worker.
	fx.o.MarketSink(tickEvent("XAUUSD", 1105000, 1))
	fx.o.Stop()

	if fx.o.Report().TotalTrades != 0 {
		t.Error("unknown symbol produced trades")
	}
}

func TestOrchestrator_LateCompletionAfterStop(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fx.o.Start(ctx)
	fx.o.Stop()

	fx.o.CompletionSink(event.CompletionEvent{
		RequestID: "r-late",
		Symbol:    "EURUSD",
		Status:    event.CompletionFill,
		Ts:        quant.Now(),
	})

	if got := fx.o.Report().Counters.LateDiscarded; got != 1 {
		t.Errorf("late discarded = %d; want 1", got)
	}
}

func TestOrchestrator_WorkerLookup(t *testing.T) {
	fx := newFixture(t)
	if _, err := fx.o.Worker("EURUSD"); err != nil {
		t.Errorf("expected EURUSD worker: %v", err)
	}
	if _, err := fx.o.Worker("XAUUSD"); err == nil {
		t.Error("expected error for unknown symbol")
	}
}
