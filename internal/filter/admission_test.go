package filter_test

import (
	"sync"
	"testing"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/filter"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

func snapshot(bid, ask int64, bias, imbalance int64) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Tick: domain.Tick{
			Symbol:    "EURUSD",
			BidMicros: quant.PriceMicros(bid),
			AskMicros: quant.PriceMicros(ask),
		},
		DirectionBiasMicros: bias,
		ImbalanceMicros:     imbalance,
	}
}

func TestAdmit(t *testing.T) {
	th := filter.Thresholds{MaxSpreadMicros: 200, MinConfidenceMicros: 400000}

	tests := []struct {
		name string
		snap domain.MarketSnapshot
		want bool
	}{
		{"Passes", snapshot(1105000, 1105100, 500000, 200000), true},
		{"Spread Too Wide", snapshot(1105000, 1105300, 500000, 200000), false},
		{"Low Confidence", snapshot(1105000, 1105100, 100000, 100000), false},
		{"Crossed Tick", snapshot(1105300, 1105000, 500000, 200000), false},
		{"Negative Bias Counts", snapshot(1105000, 1105100, -500000, -200000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter.Admit(tt.snap, th); got != tt.want {
				t.Errorf("Admit() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	snap := snapshot(1105000, 1105100, 300000, 200000)
	if got := filter.Confidence(snap); got != 400000 {
		t.Errorf("Confidence() = %d; want 400000", got)
	}
}

// Identical inputs must yield identical results regardless of concurrency.
func TestAdmit_PureUnderConcurrency(t *testing.T) {
	th := filter.Thresholds{MaxSpreadMicros: 200, MinConfidenceMicros: 400000}
	snap := snapshot(1105000, 1105100, 500000, 200000)

	var wg sync.WaitGroup
	results := make([]bool, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = filter.Admit(snap, th)
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if !r {
			t.Fatalf("call %d diverged", i)
		}
	}
}
