package market_test

import (
	"testing"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/market"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

func tick(bid int64) domain.Tick {
	return domain.Tick{
		Symbol:    "EURUSD",
		BidMicros: quant.PriceMicros(bid),
		AskMicros: quant.PriceMicros(bid + 200),
	}
}

func TestStats_DirectionBias(t *testing.T) {
	s := market.NewStats("EURUSD", 50, 4)

	// First tick has no previous price: direction 0.
	s.ApplyTick(tick(1105000))
	if s.Ready() {
		t.Fatal("should not be ready after one tick")
	}

	// Three rising ticks.
	s.ApplyTick(tick(1105100))
	s.ApplyTick(tick(1105200))
	s.ApplyTick(tick(1105300))

	if !s.Ready() {
		t.Fatal("should be ready after lookback ticks")
	}

	// Last 4 directions: 0, +1, +1, +1 -> bias 750,000.
	if got := s.DirectionBiasMicros(); got != 750000 {
		t.Errorf("bias = %d; want 750000", got)
	}

	// One more rising tick pushes the neutral out of the lookback.
	s.ApplyTick(tick(1105400))
	if got := s.DirectionBiasMicros(); got != 1000000 {
		t.Errorf("bias = %d; want 1000000", got)
	}
}

func TestStats_FallingBias(t *testing.T) {
	s := market.NewStats("EURUSD", 50, 3)
	for _, bid := range []int64{1105000, 1104900, 1104800, 1104700} {
		s.ApplyTick(tick(bid))
	}
	if got := s.DirectionBiasMicros(); got != -1000000 {
		t.Errorf("bias = %d; want -1000000", got)
	}
}

func TestStats_Snapshot(t *testing.T) {
	s := market.NewStats("EURUSD", 50, 2)
	s.ApplyTick(tick(1105000))
	s.ApplyTick(tick(1105100))

	dom := &domain.DomSnapshot{
		Symbol: "EURUSD",
		Bids:   []domain.DomLevel{{PriceMicros: 1105000, Volume: 300}},
		Asks:   []domain.DomLevel{{PriceMicros: 1105200, Volume: 100}},
	}
	s.ApplyDom(dom)

	snap := s.Snapshot(tick(1105100))
	if snap.Dom != dom {
		t.Fatal("snapshot must carry latest DOM")
	}
	if snap.ImbalanceMicros != 500000 {
		t.Errorf("imbalance = %d; want 500000", snap.ImbalanceMicros)
	}
}

func TestStats_IgnoresInvalidDom(t *testing.T) {
	s := market.NewStats("EURUSD", 50, 2)
	s.ApplyDom(&domain.DomSnapshot{Symbol: "EURUSD"}) // no levels

	snap := s.Snapshot(tick(1105000))
	if snap.Dom != nil {
		t.Error("invalid DOM must not be stored")
	}
}
