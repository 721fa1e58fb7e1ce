package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/event"
	"github.com/MuhammadAliAbid58/HFT-2/internal/infra"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/safe"
)

// SimConfig tunes the simulated venue.
type SimConfig struct {
	FillDelay      time.Duration // one-way latency before the completion fires
	SlippageMicros int64         // adverse fill offset applied to every fill
	RejectPerMille int           // 0..1000, share of requests rejected
	Seed           int64

	MaxRequestsBurst  int
	RequestsPerSecond float64
}

// DefaultSimConfig mirrors a calm venue: 5ms fills, half-pip slippage on
// majors, 1% rejects.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		FillDelay:         5 * time.Millisecond,
		SlippageMicros:    50,
		RejectPerMille:    10,
		Seed:              1,
		MaxRequestsBurst:  20,
		RequestsPerSecond: 100,
	}
}

// Validate fails fast on nonsense knobs.
func (c SimConfig) Validate() error {
	if c.FillDelay < 0 {
		return fmt.Errorf("sim gateway: negative fill delay")
	}
	if c.SlippageMicros < 0 {
		return fmt.Errorf("sim gateway: negative slippage")
	}
	if c.RejectPerMille < 0 || c.RejectPerMille > 1000 {
		return fmt.Errorf("sim gateway: reject rate %d out of [0,1000]", c.RejectPerMille)
	}
	if c.MaxRequestsBurst <= 0 || c.RequestsPerSecond <= 0 {
		return fmt.Errorf("sim gateway: rate limit must be positive")
	}
	return nil
}

// SimGateway emulates an execution venue: configurable latency, adverse
// slippage and random rejects, guarded by a token bucket and a circuit
// breaker. Completions are delivered from per-request goroutines, so they
// race against market data exactly like a real venue's reports would.
type SimGateway struct {
	cfg  SimConfig
	sink CompletionSink

	limiter *infra.RateLimiter
	breaker *infra.CircuitBreaker

	mu  sync.Mutex // guards rng
	rng *rand.Rand

	down   atomic.Bool
	closed chan struct{}
	wg     sync.WaitGroup
}

// NewSimGateway wires the simulated venue to a completion sink.
func NewSimGateway(cfg SimConfig, sink CompletionSink) (*SimGateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, fmt.Errorf("sim gateway: nil completion sink")
	}
	return &SimGateway{
		cfg:     cfg,
		sink:    sink,
		limiter: infra.NewRateLimiter(cfg.MaxRequestsBurst, cfg.RequestsPerSecond),
		// Trading timescale: a venue outage should not sideline the
		// session for the default 30s.
		breaker: infra.NewCircuitBreaker(infra.CircuitBreakerConfig{
			Name:             "sim-gateway",
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          2 * time.Second,
		}),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		closed:  make(chan struct{}),
	}, nil
}

// SetDown toggles a simulated outage. While down every submit fails
// synchronously and feeds the circuit breaker.
func (g *SimGateway) SetDown(down bool) {
	g.down.Store(down)
}

func (g *SimGateway) SubmitOpen(ctx context.Context, req domain.OrderRequest) error {
	return g.submit(ctx, req)
}

func (g *SimGateway) SubmitClose(ctx context.Context, req domain.OrderRequest) error {
	return g.submit(ctx, req)
}

func (g *SimGateway) submit(ctx context.Context, req domain.OrderRequest) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("submit %s %s: %w", req.Symbol, req.Intent, ErrGatewayUnavailable)
	}
	if g.down.Load() {
		g.breaker.RecordFailure()
		return fmt.Errorf("submit %s %s: venue down: %w", req.Symbol, req.Intent, ErrGatewayUnavailable)
	}
	if !g.limiter.TryAcquire() {
		return fmt.Errorf("submit %s %s: %w", req.Symbol, req.Intent, ErrRateLimited)
	}
	g.breaker.RecordSuccess()

	reject := g.roll() < g.cfg.RejectPerMille

	g.wg.Add(1)
	go g.complete(req, reject)
	return nil
}

func (g *SimGateway) roll() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(1000)
}

// complete delivers the fill or reject after the configured delay. An
// accepted request always completes, even if the submitter's context has
// since been canceled; only closing the gateway suppresses delivery.
func (g *SimGateway) complete(req domain.OrderRequest, reject bool) {
	defer g.wg.Done()

	if g.cfg.FillDelay > 0 {
		timer := time.NewTimer(g.cfg.FillDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-g.closed:
			return
		}
	}

	c := event.CompletionEvent{
		RequestID:  req.ID,
		PositionID: req.PositionID,
		Intent:     req.Intent,
		Symbol:     req.Symbol,
		Ts:         quant.Now(),
	}
	if reject {
		c.Status = event.CompletionReject
		c.Reason = "SIM_NO_LIQUIDITY"
	} else {
		c.Status = event.CompletionFill
		c.PriceMicros = g.fillPrice(req)
	}

	slog.Debug("sim gateway completion",
		slog.String("symbol", req.Symbol),
		slog.String("request_id", req.ID),
		slog.String("status", c.Status.String()),
		slog.Int64("price", int64(c.PriceMicros)))

	g.sink(c)
}

// fillPrice applies adverse slippage: buys fill above the requested price,
// sells below. Opening a long and closing a short are both buys.
func (g *SimGateway) fillPrice(req domain.OrderRequest) quant.PriceMicros {
	buy := (req.Intent == domain.RequestOpen) == (req.Direction == domain.Long)
	p := int64(req.PriceMicros)
	if buy {
		return quant.PriceMicros(safe.SafeAdd(p, g.cfg.SlippageMicros))
	}
	return quant.PriceMicros(safe.SafeSub(p, g.cfg.SlippageMicros))
}

// Close stops completion delivery and waits for in-flight goroutines.
func (g *SimGateway) Close() {
	close(g.closed)
	g.wg.Wait()
}
