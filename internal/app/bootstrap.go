package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/engine"
	"github.com/MuhammadAliAbid58/HFT-2/internal/execution"
	"github.com/MuhammadAliAbid58/HFT-2/internal/feed"
	"github.com/MuhammadAliAbid58/HFT-2/internal/infra"
	"github.com/MuhammadAliAbid58/HFT-2/internal/latency"
	"github.com/MuhammadAliAbid58/HFT-2/internal/storage"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

// Bootstrap performs the startup sequence: config, logger, journal,
// orchestrator, feed. Everything validates before anything trades.
type Bootstrap struct {
	Config    *infra.Config
	Journal   *storage.Journal
	SessionID string

	gateway *execution.SimGateway
}

func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, installs the logger and opens the journal.
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg.Logging.Level))
	slog.Info("🚀 bootstrapping fx engine",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("mode", cfg.Trading.Mode))

	journal, err := storage.NewJournal(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	b.Journal = journal

	b.SessionID = uuid.NewString()
	if err := journal.UpsertMetadata(context.Background(), "session_id", b.SessionID, quant.Now()); err != nil {
		return fmt.Errorf("write session metadata: %w", err)
	}

	slog.Info("✅ journal ready", slog.String("path", cfg.Storage.DBPath), slog.String("session", b.SessionID))
	return nil
}

// BuildOrchestrator wires the workers to the simulated venue and the
// journal. Completions route back through the orchestrator's sink.
func (b *Bootstrap) BuildOrchestrator() (*engine.Orchestrator, error) {
	cfg := b.Config

	simCfg := execution.SimConfig{
		FillDelay:         time.Duration(cfg.Gateway.FillDelayMS) * time.Millisecond,
		SlippageMicros:    cfg.Gateway.SlippageMicros,
		RejectPerMille:    cfg.Gateway.RejectPerMille,
		Seed:              cfg.Gateway.Seed,
		MaxRequestsBurst:  cfg.Gateway.MaxRequestsBurst,
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
	}

	o, err := engine.NewOrchestrator(cfg,
		func(sink execution.CompletionSink) (execution.Gateway, error) {
			gw, err := execution.NewSimGateway(simCfg, sink)
			if err != nil {
				return nil, err
			}
			b.gateway = gw
			return gw, nil
		},
		b.archive)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// BuildFeed picks the market data source by trading mode: a live websocket
// stream, or the deterministic random-walk generator.
func (b *Bootstrap) BuildFeed(o *engine.Orchestrator) (feed.Feed, error) {
	cfg := b.Config

	symbols := make([]domain.Symbol, len(cfg.Symbols))
	for i, s := range cfg.Symbols {
		symbols[i] = domain.Symbol{Name: s.Name, PipMicros: s.PipMicros}
	}

	if cfg.Trading.Mode == infra.ModeLive {
		f, err := feed.NewWSFeed(feed.WSConfig{
			URL:         cfg.Feed.WSURL,
			Symbols:     symbols,
			ReadTimeout: time.Duration(cfg.Feed.ReadTimeoutMS) * time.Millisecond,
		}, o.MarketSink)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	f, err := feed.NewSimFeed(feed.DefaultSimConfig(symbols), o.MarketSink)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (b *Bootstrap) archive(rec domain.ClosedRecord) {
	if b.Journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Journal.RecordClose(ctx, rec); err != nil {
		slog.Error("journal write failed",
			slog.String("symbol", rec.Symbol),
			slog.Any("err", err))
	}
}

// Shutdown flushes the final report into the journal and closes resources.
func (b *Bootstrap) Shutdown(o *engine.Orchestrator) {
	if b.gateway != nil {
		b.gateway.Close()
	}
	if b.Journal == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report := o.Report()
	if err := b.Journal.SaveLatencySnapshot(ctx, latencyBySymbol(o), quant.Now()); err != nil {
		slog.Error("latency snapshot write failed", slog.Any("err", err))
	}
	if err := b.Journal.UpsertMetadata(ctx, "final_trades", fmt.Sprintf("%d", report.TotalTrades), quant.Now()); err != nil {
		slog.Error("final metadata write failed", slog.Any("err", err))
	}
	if err := b.Journal.Close(); err != nil {
		slog.Error("journal close failed", slog.Any("err", err))
	}
}

func latencyBySymbol(o *engine.Orchestrator) map[string]map[latency.Stage]latency.Summary {
	report := o.Report()
	out := make(map[string]map[latency.Stage]latency.Summary, len(report.Symbols))
	for sym, sr := range report.Symbols {
		out[sym] = sr.Latency
	}
	return out
}
