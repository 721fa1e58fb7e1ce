package infra

import (
	"time"
)

const (
	// Standard backoff constants for connection-scale retries.
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// Backoff returns base * 2^retryCount capped at max.
// If retryCount is negative, it returns base.
func Backoff(retryCount int, base, max time.Duration) time.Duration {
	if retryCount < 0 {
		return base
	}

	// 2^retryCount
	// To prevent overflow with bit shifting, we check explicitly or cap it early.
	// 2^30 is already > 1 billion seconds > any sane max.
	if retryCount > 30 {
		return max
	}

	backoff := base * time.Duration(1<<retryCount)

	if backoff > max {
		return max
	}

	return backoff
}

// CalculateBackoff returns the exponential backoff duration for a given retry
// count at connection timescale (1s base, 60s cap).
func CalculateBackoff(retryCount int) time.Duration {
	return Backoff(retryCount, baseDelay, maxDelay)
}
