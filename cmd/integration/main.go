package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/engine"
	"github.com/MuhammadAliAbid58/HFT-2/internal/execution"
	"github.com/MuhammadAliAbid58/HFT-2/internal/feed"
	"github.com/MuhammadAliAbid58/HFT-2/internal/infra"
	"github.com/MuhammadAliAbid58/HFT-2/internal/latency"
	"github.com/MuhammadAliAbid58/HFT-2/internal/storage"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

// End-to-end sim session: random-walk feed, simulated venue with a mid-run
// outage, journal persistence. Exits non-zero if accounting disagrees.
func main() {
	// 1. Setup Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("🚀 Starting Sim Integration Run...")

	// 2. Manually Construct Config
	// Note: We bypass LoadConfig to force a specific testing state.
	cfg := &infra.Config{}
	cfg.Trading.Mode = infra.ModeSim
	cfg.Symbols = []infra.SymbolConfig{
		{Name: "EURUSD", PipMicros: 100},
		{Name: "USDJPY", PipMicros: 10000},
	}
	cfg.Risk.StopLossPips = 10
	cfg.Risk.TakeProfitPips = 20
	cfg.Risk.MaxSpreadPips = 2
	cfg.Risk.MinConfidenceMicros = 400000
	cfg.Risk.TieBreak = "stop_loss"
	cfg.Signal.OpenBiasMicros = 300000
	cfg.Signal.OpenImbalanceMicros = 200000
	cfg.Signal.ReverseBiasMicros = 300000
	cfg.Feed.ReadTimeoutMS = 1000
	cfg.Feed.MaxConsecutiveTimeouts = 5
	cfg.Feed.TickWindow = 256
	cfg.Feed.BiasLookback = 10
	cfg.Gateway.FillDelayMS = 2
	cfg.Gateway.SlippageMicros = 50
	cfg.Gateway.RejectPerMille = 10
	cfg.Gateway.Seed = 42
	cfg.Gateway.MaxRequestsBurst = 50
	cfg.Gateway.RequestsPerSecond = 500
	cfg.Storage.DBPath = filepath.Join(os.TempDir(), "fx-integration.db")
	cfg.Latency.Window = 8192
	cfg.Logging.Level = "info"

	if err := cfg.Validate(); err != nil {
		slog.Error("❌ Config invalid", "error", err)
		os.Exit(1)
	}

	// 3. Journal
	_ = os.Remove(cfg.Storage.DBPath)
	journal, err := storage.NewJournal(cfg.Storage.DBPath)
	if err != nil {
		slog.Error("❌ Failed to open journal", "error", err)
		os.Exit(1)
	}
	defer journal.Close()

	// 4. Orchestrator with Simulated Venue
	var gateway *execution.SimGateway
	orchestrator, err := engine.NewOrchestrator(cfg,
		func(sink execution.CompletionSink) (execution.Gateway, error) {
			gw, err := execution.NewSimGateway(execution.SimConfig{
				FillDelay:         time.Duration(cfg.Gateway.FillDelayMS) * time.Millisecond,
				SlippageMicros:    cfg.Gateway.SlippageMicros,
				RejectPerMille:    cfg.Gateway.RejectPerMille,
				Seed:              cfg.Gateway.Seed,
				MaxRequestsBurst:  cfg.Gateway.MaxRequestsBurst,
				RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
			}, sink)
			if err != nil {
				return nil, err
			}
			gateway = gw
			return gw, nil
		},
		func(rec domain.ClosedRecord) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := journal.RecordClose(ctx, rec); err != nil {
				slog.Error("journal write failed", "error", err)
			}
		})
	if err != nil {
		slog.Error("❌ Failed to build orchestrator", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orchestrator.Start(ctx)

	// 5. Random-Walk Feed
	symbols := []domain.Symbol{
		{Name: "EURUSD", PipMicros: 100},
		{Name: "USDJPY", PipMicros: 10000},
	}
	feedCfg := feed.DefaultSimConfig(symbols)
	feedCfg.Seed = 7
	simFeed, err := feed.NewSimFeed(feedCfg, orchestrator.MarketSink)
	if err != nil {
		slog.Error("❌ Failed to build feed", "error", err)
		os.Exit(1)
	}
	if err := simFeed.Start(ctx); err != nil {
		slog.Error("❌ Failed to start feed", "error", err)
		os.Exit(1)
	}

	// 6. Scenario: trade, suffer a venue outage, recover, shut down flat.
	slog.Info("STEP 1: Trading normally for 3s...")
	time.Sleep(3 * time.Second)

	slog.Info("STEP 2: Venue outage for 1s...")
	gateway.SetDown(true)
	time.Sleep(1 * time.Second)
	gateway.SetDown(false)

	slog.Info("STEP 3: Recovery trading for 3s...")
	time.Sleep(3 * time.Second)

	slog.Info("STEP 4: Graceful shutdown...")
	simFeed.Stop()
	orchestrator.Stop()
	gateway.Close()

	// 7. Verify accounting
	report := orchestrator.Report()
	slog.Info("📊 Session report",
		"trades", report.TotalTrades,
		"wins", report.TotalWins,
		"pnl_micros", report.TotalPnlMicros,
		"win_rate_permille", report.WinRatePerMille,
		"gateway_unavailable", report.Counters.GatewayUnavailable,
		"orders_rejected", report.Counters.OrdersRejected)

	failed := false

	if report.TotalTrades == 0 {
		slog.Error("❌ No trades executed; walk or thresholds broken")
		failed = true
	}
	if report.Counters.GatewayUnavailable == 0 {
		slog.Error("❌ Outage produced no gateway errors")
		failed = true
	}

	var fromJournal uint64
	for _, sym := range symbols {
		records, err := journal.ClosedBySymbol(context.Background(), sym.Name)
		if err != nil {
			slog.Error("❌ Journal read failed", "symbol", sym.Name, "error", err)
			failed = true
			continue
		}
		fromJournal += uint64(len(records))
		sr := report.Symbols[sym.Name]
		if uint64(len(records)) != sr.Stats.Trades {
			slog.Error("❌ Journal disagrees with worker accounting",
				"symbol", sym.Name, "journal", len(records), "worker", sr.Stats.Trades)
			failed = true
		}
	}
	if fromJournal != report.TotalTrades {
		slog.Error("❌ Journal total disagrees with report",
			"journal", fromJournal, "report", report.TotalTrades)
		failed = true
	}

	if err := journal.SaveLatencySnapshot(context.Background(), latencyMap(report), quant.Now()); err != nil {
		slog.Error("❌ Latency snapshot failed", "error", err)
		failed = true
	}

	for symbol, sr := range report.Symbols {
		for stage, summary := range sr.Latency {
			slog.Info("⏱️ Latency",
				"symbol", symbol,
				"stage", string(stage),
				"count", summary.Count,
				"p50_us", summary.P50Micros,
				"p95_us", summary.P95Micros,
				"max_us", summary.MaxMicros)
		}
	}

	if failed {
		slog.Error("💥 Integration Run Failed")
		os.Exit(1)
	}
	slog.Info("🎉 Integration Run Passed!")
}

func latencyMap(r engine.Report) map[string]map[latency.Stage]latency.Summary {
	out := make(map[string]map[latency.Stage]latency.Summary, len(r.Symbols))
	for sym, sr := range r.Symbols {
		out[sym] = sr.Latency
	}
	return out
}
