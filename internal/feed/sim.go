package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/event"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

// SimConfig tunes the synthetic quote stream.
type SimConfig struct {
	Symbols      []domain.Symbol
	Interval     time.Duration // time between ticks per symbol
	Seed         int64
	StartMicros  int64 // initial bid for every symbol
	StepMicros   int64 // max random-walk step per tick
	SpreadMicros int64 // quoted spread
	DepthEvery   int   // emit a DOM snapshot every N ticks
}

// DefaultSimConfig produces a EUR-major-looking walk: ~1.10 start, one-pip
// steps, one-pip spread, depth alongside every other tick.
func DefaultSimConfig(symbols []domain.Symbol) SimConfig {
	return SimConfig{
		Symbols:      symbols,
		Interval:     time.Millisecond,
		Seed:         1,
		StartMicros:  1_100_000,
		StepMicros:   100,
		SpreadMicros: 100,
		DepthEvery:   2,
	}
}

func (c SimConfig) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("sim feed: no symbols")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("sim feed: interval must be positive")
	}
	if c.StartMicros <= 0 || c.StepMicros <= 0 || c.SpreadMicros <= 0 {
		return fmt.Errorf("sim feed: prices must be positive")
	}
	if c.DepthEvery <= 0 {
		return fmt.Errorf("sim feed: depth cadence must be positive")
	}
	return nil
}

// SimFeed generates a deterministic random-walk quote stream per symbol.
// Each symbol runs its own goroutine with its own rng and sequence counter,
// so streams are independent and reproducible from the seed.
type SimFeed struct {
	cfg  SimConfig
	emit Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSimFeed(cfg SimConfig, emit Handler) (*SimFeed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if emit == nil {
		return nil, fmt.Errorf("sim feed: nil handler")
	}
	return &SimFeed{cfg: cfg, emit: emit}, nil
}

func (f *SimFeed) Start(ctx context.Context) error {
	ctx, f.cancel = context.WithCancel(ctx)
	for i, sym := range f.cfg.Symbols {
		f.wg.Add(1)
		go f.run(ctx, sym, f.cfg.Seed+int64(i))
	}
	slog.Info("sim feed started",
		slog.Int("symbols", len(f.cfg.Symbols)),
		slog.Duration("interval", f.cfg.Interval))
	return nil
}

func (f *SimFeed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
}

func (f *SimFeed) run(ctx context.Context, sym domain.Symbol, seed int64) {
	defer f.wg.Done()

	rng := rand.New(rand.NewSource(seed))
	bid := f.cfg.StartMicros
	var seq uint64

	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		step := rng.Int63n(2*f.cfg.StepMicros+1) - f.cfg.StepMicros
		bid += step
		if bid < f.cfg.SpreadMicros {
			bid = f.cfg.SpreadMicros // walk never goes non-positive
		}

		seq++
		f.emit(event.TickEvent{Tick: domain.Tick{
			Symbol:    sym.Name,
			BidMicros: quant.PriceMicros(bid),
			AskMicros: quant.PriceMicros(bid + f.cfg.SpreadMicros),
			Ts:        quant.Now(),
			Seq:       seq,
		}})

		if n%f.cfg.DepthEvery == 0 {
			seq++
			f.emit(event.DepthEvent{Dom: f.dom(sym.Name, bid, step, rng), Seq: seq})
		}
	}
}

// dom builds a one-level book whose volume imbalance leans the way the walk
// just moved, so the synthetic stream produces actionable signals.
func (f *SimFeed) dom(symbol string, bid, step int64, rng *rand.Rand) *domain.DomSnapshot {
	base := quant.VolumeUnits(1_000_000 + rng.Int63n(500_000))
	lean := quant.VolumeUnits(rng.Int63n(800_000))

	bidVol, askVol := base, base
	if step > 0 {
		bidVol += lean
	} else if step < 0 {
		askVol += lean
	}

	return &domain.DomSnapshot{
		Symbol: symbol,
		Bids:   []domain.DomLevel{{PriceMicros: quant.PriceMicros(bid), Volume: bidVol}},
		Asks:   []domain.DomLevel{{PriceMicros: quant.PriceMicros(bid + f.cfg.SpreadMicros), Volume: askVol}},
		Ts:     quant.Now(),
	}
}
