// Package resilience retries upstream calls that fail transiently.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retries with exponential backoff and jitter.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay.
	MaxBackoff time.Duration
	// Jitter is the random spread as a fraction of the delay.
	Jitter float64
	// ShouldRetry overrides IsTransient.
	ShouldRetry func(err error) bool
	// OnRetry runs before each sleep.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy suits a rate-limited HTTP API.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     20 * time.Second,
		Jitter:         0.25,
	}
}

// Do runs fn until it succeeds, returns a non-transient error, runs out of
// attempts, or ctx is done. The last error is returned.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = withDefaults(p)
	retryable := p.ShouldRetry
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == p.MaxAttempts-1 {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(backoff(attempt, p))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func withDefaults(p Policy) Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

func backoff(attempt int, p Policy) time.Duration {
	delay := float64(p.InitialBackoff) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxBackoff) {
		delay = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		delay += (rand.Float64()*2 - 1) * delay * p.Jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// LogRetry returns an OnRetry callback that logs the attempt.
func LogRetry(operation string, fields ...zap.Field) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("resilience: retrying",
			append(fields,
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)...,
		)
	}
}
