package latency_test

import (
	"sync"
	"testing"

	"github.com/MuhammadAliAbid58/HFT-2/internal/latency"
)

func newTracker(t *testing.T, window int) *latency.Tracker {
	t.Helper()
	tr, err := latency.NewTracker([]string{"EURUSD", "USDJPY"}, window)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	return tr
}

func TestNewTracker_Validation(t *testing.T) {
	if _, err := latency.NewTracker(nil, 100); err == nil {
		t.Error("empty symbol set must fail")
	}
	if _, err := latency.NewTracker([]string{"EURUSD"}, 0); err == nil {
		t.Error("zero window must fail")
	}
	if _, err := latency.NewTracker([]string{""}, 100); err == nil {
		t.Error("empty symbol name must fail")
	}
}

func TestSnapshot_Percentiles(t *testing.T) {
	tr := newTracker(t, 1024)

	// 1..100 micros: p50=50, p95=95, max=100 by nearest rank.
	for i := int64(1); i <= 100; i++ {
		tr.Observe("EURUSD", latency.StageTickToDecision, i)
	}

	snap := tr.Snapshot()
	sum := snap["EURUSD"][latency.StageTickToDecision]
	if sum.Count != 100 {
		t.Errorf("count = %d; want 100", sum.Count)
	}
	if sum.P50Micros != 50 {
		t.Errorf("p50 = %d; want 50", sum.P50Micros)
	}
	if sum.P95Micros != 95 {
		t.Errorf("p95 = %d; want 95", sum.P95Micros)
	}
	if sum.MaxMicros != 100 {
		t.Errorf("max = %d; want 100", sum.MaxMicros)
	}
}

func TestSnapshot_SingleSample(t *testing.T) {
	tr := newTracker(t, 16)
	tr.Observe("USDJPY", latency.StageRequestToFill, 42)

	sum := tr.Snapshot()["USDJPY"][latency.StageRequestToFill]
	if sum.Count != 1 || sum.P50Micros != 42 || sum.P95Micros != 42 || sum.MaxMicros != 42 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestObserve_DropsBadInput(t *testing.T) {
	tr := newTracker(t, 16)
	tr.Observe("GBPUSD", latency.StageTickToDecision, 10) // unknown symbol
	tr.Observe("EURUSD", latency.StageTickToDecision, -5) // negative duration

	if sum := tr.Snapshot()["EURUSD"][latency.StageTickToDecision]; sum.Count != 0 {
		t.Errorf("count = %d; want 0", sum.Count)
	}
}

// Old samples fall out of the window once it wraps.
func TestWindowWraps(t *testing.T) {
	tr := newTracker(t, 4)
	for i := int64(1); i <= 10; i++ {
		tr.Observe("EURUSD", latency.StageDecisionToRequest, i)
	}

	sum := tr.Snapshot()["EURUSD"][latency.StageDecisionToRequest]
	if sum.Count != 4 {
		t.Errorf("count = %d; want 4", sum.Count)
	}
	// Window now holds 7..10.
	if sum.MaxMicros != 10 || sum.P50Micros != 8 {
		t.Errorf("summary = %+v", sum)
	}
}

// Symbols record independently; one symbol's samples never appear under
// another.
func TestSymbolIsolation(t *testing.T) {
	tr := newTracker(t, 64)
	tr.Observe("EURUSD", latency.StageTickToDecision, 100)
	tr.Observe("USDJPY", latency.StageTickToDecision, 900)

	snap := tr.Snapshot()
	if snap["EURUSD"][latency.StageTickToDecision].MaxMicros != 100 {
		t.Error("EURUSD window polluted")
	}
	if snap["USDJPY"][latency.StageTickToDecision].MaxMicros != 900 {
		t.Error("USDJPY window polluted")
	}
}

func TestConcurrentObserve(t *testing.T) {
	tr := newTracker(t, 4096)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := int64(0); i < 500; i++ {
				tr.Observe("EURUSD", latency.StageTickToDecision, i)
				tr.Snapshot()
			}
		}()
	}
	wg.Wait()

	if sum := tr.Snapshot()["EURUSD"][latency.StageTickToDecision]; sum.Count != 4000 {
		t.Errorf("count = %d; want 4000", sum.Count)
	}
}

func BenchmarkObserve(b *testing.B) {
	tr, err := latency.NewTracker([]string{"EURUSD"}, latency.DefaultWindow)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.Observe("EURUSD", latency.StageTickToDecision, int64(i%1000))
	}
}
