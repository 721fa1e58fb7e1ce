package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MuhammadAliAbid58/HFT-2/internal/app"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Orchestrator (one worker goroutine per symbol)
	orchestrator, err := bootstrap.BuildOrchestrator()
	if err != nil {
		slog.Error("❌ Orchestrator build failed", slog.Any("error", err))
		os.Exit(1)
	}
	orchestrator.Start(ctx)
	slog.InfoContext(ctx, "✅ Workers started", slog.Int("symbols", len(bootstrap.Config.Symbols)))

	// 5. Market data feed (websocket in live mode, random walk in sim)
	marketFeed, err := bootstrap.BuildFeed(orchestrator)
	if err != nil {
		slog.Error("❌ Feed build failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := marketFeed.Start(ctx); err != nil {
		slog.Error("❌ Feed start failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.InfoContext(ctx, "✅ Market data flowing", slog.String("mode", bootstrap.Config.Trading.Mode))

	// 6. Periodic performance report
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r := orchestrator.Report()
				slog.Info("📊 Performance",
					slog.Uint64("trades", r.TotalTrades),
					slog.Uint64("win_rate_permille", r.WinRatePerMille),
					slog.Int64("pnl_micros", r.TotalPnlMicros),
					slog.Uint64("feed_timeouts", r.Counters.FeedTimeouts),
					slog.Uint64("orders_rejected", r.Counters.OrdersRejected),
					slog.Uint64("gateway_unavailable", r.Counters.GatewayUnavailable))
			}
		}
	}()

	slog.InfoContext(ctx, "✨ FX engine fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.Info("👋 Shutting down gracefully...")

	// Feed first so no new data races the position flattening.
	marketFeed.Stop()
	orchestrator.Stop()

	report := orchestrator.Report()
	slog.Info("📊 Session report",
		slog.Uint64("trades", report.TotalTrades),
		slog.Uint64("wins", report.TotalWins),
		slog.Int64("pnl_micros", report.TotalPnlMicros),
		slog.Uint64("win_rate_permille", report.WinRatePerMille))
	for symbol, sr := range report.Symbols {
		slog.Info("📈 Symbol summary",
			slog.String("symbol", symbol),
			slog.Uint64("trades", sr.Stats.Trades),
			slog.Int64("pnl_micros", sr.Stats.TotalPnlMicros),
			slog.Bool("degraded", sr.Degraded))
	}

	bootstrap.Shutdown(orchestrator)
}
