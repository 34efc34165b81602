package queue

import (
	"math"
	"math/rand"
	"time"
)

// RetryConfig shapes the backoff between attempts of a failed task.
type RetryConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig matches the execution contract: exponential growth
// capped at ten minutes.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     600 * time.Second,
		Multiplier:     2.0,
	}
}

// Backoff calculates the wait before the given retry attempt (0-based):
// min(initial * multiplier^attempt, max) with ±25% jitter.
func Backoff(attempt int, config RetryConfig) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(config.Multiplier, float64(attempt))
	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	jitterRange := 0.25 * backoff
	jitter := (rand.Float64() * 2 * jitterRange) - jitterRange
	result := backoff + jitter

	if result > float64(config.MaxBackoff) {
		result = float64(config.MaxBackoff)
	}
	if result < 0 {
		result = 0
	}
	return time.Duration(result)
}
