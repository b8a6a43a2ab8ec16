// Package resilience provides retry and circuit breaking for calls to
// search, scrape and extraction services.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior with exponential backoff and jitter.
type Policy struct {
	// Attempts is the total number of tries including the first. Default: 3.
	Attempts int
	// BaseDelay is the wait before the first retry. Default: 500ms.
	BaseDelay time.Duration
	// MaxDelay caps any single wait. Default: 20s.
	MaxDelay time.Duration
	// Factor multiplies the delay after each retry. Default: 2.
	Factor float64
	// Jitter is the +/- fraction of randomness applied to each delay.
	Jitter float64
	// Retryable decides whether an error is worth another try. Defaults to
	// IsTransient.
	Retryable func(err error) bool
	// OnRetry is called before each wait with the 1-based retry number.
	OnRetry func(retry int, err error)
}

// DefaultPolicy returns the policy used for external API calls.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  20 * time.Second,
		Factor:    2,
		Jitter:    0.2,
	}
}

// PolicyFromMillis builds a policy from flat config values. Zero values keep
// the defaults.
func PolicyFromMillis(attempts, baseMs, maxMs int) Policy {
	p := DefaultPolicy()
	if attempts > 0 {
		p.Attempts = attempts
	}
	if baseMs > 0 {
		p.BaseDelay = time.Duration(baseMs) * time.Millisecond
	}
	if maxMs > 0 {
		p.MaxDelay = time.Duration(maxMs) * time.Millisecond
	}
	return p
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Factor <= 0 {
		p.Factor = d.Factor
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// Delay returns the wait before retry number n (0-based).
func (p Policy) Delay(n int) time.Duration {
	p = p.normalized()
	d := float64(p.BaseDelay) * math.Pow(p.Factor, float64(n))
	d = math.Min(d, float64(p.MaxDelay))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	return time.Duration(math.Max(d, 0))
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	var err error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		var v T
		if v, err = fn(ctx); err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt == p.Attempts-1 {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
	return zero, err
}

// LogRetry returns an OnRetry callback that logs each retry.
func LogRetry(service, operation string) func(int, error) {
	return func(retry int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("retry", retry),
			zap.Error(err),
		)
	}
}
