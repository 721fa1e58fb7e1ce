package infra

import (
	"testing"
	"time"
)

// =====================================================
// Infra Backoff Tests
// =====================================================

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		retryCount int
		minDelay   time.Duration
		maxDelay   time.Duration
	}{
		{0, 1 * time.Second, 1 * time.Second},     // 1s
		{1, 2 * time.Second, 2 * time.Second},     // 2s
		{2, 4 * time.Second, 4 * time.Second},     // 4s
		{3, 8 * time.Second, 8 * time.Second},     // 8s
		{10, 60 * time.Second, 60 * time.Second},  // max 60s
		{100, 60 * time.Second, 60 * time.Second}, // still max 60s
	}

	for _, tt := range tests {
		delay := CalculateBackoff(tt.retryCount)
		if delay < tt.minDelay || delay > tt.maxDelay {
			t.Errorf("CalculateBackoff(%d) = %s, want between %s and %s",
				tt.retryCount, delay, tt.minDelay, tt.maxDelay)
		}
	}
}

func TestBackoff_CustomCurve(t *testing.T) {
	const (
		base = 50 * time.Millisecond
		max  = 5 * time.Second
	)
	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{-1, 50 * time.Millisecond},
		{0, 50 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{7, 5 * time.Second}, // capped
		{31, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := Backoff(tt.retryCount, base, max); got != tt.want {
			t.Errorf("Backoff(%d, %s, %s) = %s; want %s", tt.retryCount, base, max, got, tt.want)
		}
	}
}
