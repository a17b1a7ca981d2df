package github

import (
	"context"
	"sync"
	"time"

	"github.com/google/go-github/v66/github"
)

// RateLimiter paces GitHub API calls using the primary rate limit headers.
// Secondary rate limits are handled by the HTTP transport.
type RateLimiter interface {
	// Wait blocks until it's safe to make an API call
	Wait(ctx context.Context) error

	// Observe records the rate limit reported by the last response
	Observe(rate github.Rate)

	// GetStats returns current rate limiter statistics
	GetStats() RateLimiterStats
}

// RateLimiterStats provides statistics about rate limiter usage
type RateLimiterStats struct {
	RemainingRequests int           `json:"remaining_requests"`
	ResetTime         time.Time     `json:"reset_time"`
	CurrentDelay      time.Duration `json:"current_delay"`
	TotalWaits        int64         `json:"total_waits"`
	TotalDelayTime    time.Duration `json:"total_delay_time"`
}

// RateLimiterConfig configures the rate limiter behavior
type RateLimiterConfig struct {
	// BaseDelay is the minimum delay between requests
	BaseDelay time.Duration

	// MaxDelay is the maximum delay between requests
	MaxDelay time.Duration

	// MinRemainingRequests is the threshold below which we start throttling
	MinRemainingRequests int

	// ThrottleDelay is the delay applied when no requests remain before reset
	ThrottleDelay time.Duration
}

// DefaultRateLimiterConfig returns a default rate limiter configuration
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		BaseDelay:            50 * time.Millisecond,
		MaxDelay:             time.Minute,
		MinRemainingRequests: 100,
		ThrottleDelay:        5 * time.Second,
	}
}

// rateLimiter implements the RateLimiter interface
type rateLimiter struct {
	config *RateLimiterConfig
	mu     sync.Mutex

	remaining int
	resetTime time.Time
	lastCall  time.Time

	stats RateLimiterStats
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimiterConfig) RateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}

	return &rateLimiter{
		config:    config,
		remaining: 5000, // GitHub's default rate limit
		resetTime: time.Now().Add(time.Hour),
	}
}

// Wait blocks until it's safe to make an API call
func (rl *rateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	delay := rl.calculateDelay(time.Now())
	if delay > 0 {
		rl.stats.TotalWaits++
		rl.stats.TotalDelayTime += delay
	}
	rl.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	rl.mu.Lock()
	rl.lastCall = time.Now()
	rl.mu.Unlock()
	return nil
}

// Observe records the rate limit reported by the last response
func (rl *rateLimiter) Observe(rate github.Rate) {
	if rate.Limit == 0 {
		return // response carried no rate limit headers
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.remaining = rate.Remaining
	rl.resetTime = rate.Reset.Time
	rl.stats.RemainingRequests = rate.Remaining
	rl.stats.ResetTime = rate.Reset.Time
}

// GetStats returns current rate limiter statistics
func (rl *rateLimiter) GetStats() RateLimiterStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := rl.stats
	stats.CurrentDelay = rl.calculateDelay(time.Now())
	return stats
}

// calculateDelay calculates the delay needed before the next API call
func (rl *rateLimiter) calculateDelay(now time.Time) time.Duration {
	if now.After(rl.resetTime) {
		return 0
	}

	var delay time.Duration

	if !rl.lastCall.IsZero() {
		if since := now.Sub(rl.lastCall); since < rl.config.BaseDelay {
			delay = rl.config.BaseDelay - since
		}
	}

	if rl.remaining < rl.config.MinRemainingRequests {
		if throttle := rl.throttleDelay(now); throttle > delay {
			delay = throttle
		}
	}

	if delay > rl.config.MaxDelay {
		delay = rl.config.MaxDelay
	}
	return delay
}

// throttleDelay spreads the remaining requests when the budget runs low
func (rl *rateLimiter) throttleDelay(now time.Time) time.Duration {
	if rl.remaining <= 0 {
		return rl.resetTime.Sub(now)
	}

	ratio := float64(rl.remaining) / float64(rl.config.MinRemainingRequests)
	return time.Duration(float64(rl.config.ThrottleDelay) * (1.0 - ratio))
}
