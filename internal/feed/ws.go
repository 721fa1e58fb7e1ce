package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/event"
	"github.com/MuhammadAliAbid58/HFT-2/internal/infra"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

// WSConfig configures the live quote stream.
type WSConfig struct {
	URL              string
	Symbols          []domain.Symbol
	ReadTimeout      time.Duration // bounded wait for feed data
	PingInterval     time.Duration
	HandshakeTimeout time.Duration
}

func (c WSConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("ws feed: empty url")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("ws feed: no symbols")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("ws feed: read timeout must be positive")
	}
	return nil
}

// WSFeed maintains one websocket connection to the quote venue. It handles
// reconnection with exponential backoff, bounded reads, and pings. A read
// deadline that expires without data emits one FeedTimeoutEvent per symbol
// and keeps the connection; any other read error tears down and reconnects.
type WSFeed struct {
	cfg  WSConfig
	emit Handler

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWSFeed(cfg WSConfig, emit Handler) (*WSFeed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if emit == nil {
		return nil, fmt.Errorf("ws feed: nil handler")
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &WSFeed{cfg: cfg, emit: emit}, nil
}

func (f *WSFeed) Start(ctx context.Context) error {
	ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	go f.runLoop(ctx)
	return nil
}

func (f *WSFeed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.close()
	f.wg.Wait()
}

func (f *WSFeed) runLoop(ctx context.Context) {
	defer f.wg.Done()
	retry := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := f.connect(ctx); err != nil {
			slog.Warn("feed connect failed",
				slog.String("url", f.cfg.URL),
				slog.Int("retry", retry),
				slog.Any("err", err))
			delay := infra.CalculateBackoff(retry)
			retry++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		f.process(ctx)
	}
}

func (f *WSFeed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: f.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	if err := f.subscribe(); err != nil {
		f.close()
		return fmt.Errorf("subscribe: %w", err)
	}

	if f.cfg.PingInterval > 0 {
		go f.pingLoop(ctx)
	}

	slog.Info("feed connected", slog.String("url", f.cfg.URL), slog.Int("symbols", len(f.cfg.Symbols)))
	return nil
}

func (f *WSFeed) subscribe() error {
	names := make([]string, len(f.cfg.Symbols))
	for i, s := range f.cfg.Symbols {
		names[i] = s.Name
	}
	msg, err := json.Marshal(map[string]any{"op": "subscribe", "symbols": names})
	if err != nil {
		return err
	}
	return f.write(websocket.TextMessage, msg)
}

func (f *WSFeed) process(ctx context.Context) {
	for {
		f.mu.RLock()
		c := f.conn
		f.mu.RUnlock()
		if c == nil || ctx.Err() != nil {
			return
		}

		c.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
		_, msg, err := c.ReadMessage()
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				// Silent feed, not a broken socket. Surface per symbol
				// so each worker counts its own timeouts.
				now := quant.Now()
				for _, s := range f.cfg.Symbols {
					f.emit(event.FeedTimeoutEvent{Symbol: s.Name, Ts: now})
				}
				continue
			}
			slog.Warn("feed read error", slog.Any("err", err))
			f.close()
			return
		}

		ev, err := ParseMessage(msg)
		if err != nil {
			slog.Warn("feed message dropped", slog.Any("err", err))
			continue
		}
		f.emit(ev)
	}
}

func (f *WSFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.write(websocket.PingMessage, nil); err != nil {
				slog.Warn("feed ping failed", slog.Any("err", err))
				f.close()
				return
			}
		}
	}
}

func (f *WSFeed) write(msgType int, data []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	f.mu.RLock()
	c := f.conn
	f.mu.RUnlock()
	if c == nil {
		return fmt.Errorf("ws feed: not connected")
	}
	return c.WriteMessage(msgType, data)
}

func (f *WSFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
}

// Wire format of the quote venue. Prices and volumes arrive as decimal
// strings and are converted losslessly at this boundary; everything past it
// is int64 micros.
type wireMessage struct {
	Type   string     `json:"type"`
	Symbol string     `json:"symbol"`
	Bid    string     `json:"bid"`
	Ask    string     `json:"ask"`
	Bids   [][]string `json:"bids"`
	Asks   [][]string `json:"asks"`
	TsMs   int64      `json:"ts_ms"`
	Seq    uint64     `json:"seq"`
}

// ParseMessage decodes one venue message into a feed event.
func ParseMessage(data []byte) (event.Event, error) {
	var m wireMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode feed message: %w", err)
	}

	switch m.Type {
	case "tick":
		bid, err := parsePrice(m.Bid)
		if err != nil {
			return nil, fmt.Errorf("tick %s bid: %w", m.Symbol, err)
		}
		ask, err := parsePrice(m.Ask)
		if err != nil {
			return nil, fmt.Errorf("tick %s ask: %w", m.Symbol, err)
		}
		t := domain.Tick{
			Symbol:    m.Symbol,
			BidMicros: bid,
			AskMicros: ask,
			Ts:        quant.TimeStamp(m.TsMs * 1000),
			Seq:       m.Seq,
		}
		if !t.Valid() {
			return nil, fmt.Errorf("tick %s: crossed or non-positive quote", m.Symbol)
		}
		return event.TickEvent{Tick: t}, nil

	case "depth":
		bids, err := parseLevels(m.Bids)
		if err != nil {
			return nil, fmt.Errorf("depth %s bids: %w", m.Symbol, err)
		}
		asks, err := parseLevels(m.Asks)
		if err != nil {
			return nil, fmt.Errorf("depth %s asks: %w", m.Symbol, err)
		}
		dom := &domain.DomSnapshot{
			Symbol: m.Symbol,
			Bids:   bids,
			Asks:   asks,
			Ts:     quant.TimeStamp(m.TsMs * 1000),
		}
		if !dom.Valid() {
			return nil, fmt.Errorf("depth %s: empty side", m.Symbol)
		}
		return event.DepthEvent{Dom: dom, Seq: m.Seq}, nil

	default:
		return nil, fmt.Errorf("unknown feed message type %q", m.Type)
	}
}

func parsePrice(s string) (quant.PriceMicros, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return quant.PriceMicros(d.Shift(6).IntPart()), nil
}

func parseLevels(raw [][]string) ([]domain.DomLevel, error) {
	levels := make([]domain.DomLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("level needs [price, volume], got %d fields", len(pair))
		}
		price, err := parsePrice(pair[0])
		if err != nil {
			return nil, err
		}
		vol, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, err
		}
		levels = append(levels, domain.DomLevel{
			PriceMicros: price,
			Volume:      quant.VolumeUnits(vol.Shift(6).IntPart()),
		})
	}
	return levels, nil
}
