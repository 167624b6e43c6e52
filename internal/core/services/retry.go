package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// RetryPolicy runs provider calls with a per-attempt timeout and exponential
// backoff. Only transient errors are retried; an attempt that hits its own
// timeout counts as transient. Cancellation of the caller's context stops
// immediately and is returned as is.
type RetryPolicy struct {
	maxAttempts    int
	initialBackoff time.Duration
	multiplier     float64
	maxBackoff     time.Duration
	attemptTimeout time.Duration

	// sleep waits between attempts. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	// pace, when set, runs before every attempt outside its timeout.
	pace func(ctx context.Context) error
}

// NewRetryPolicy creates a policy from settings. Invalid values fall back
// to the defaults.
func NewRetryPolicy(s domain.RetrySettings) *RetryPolicy {
	defaults := domain.DefaultAppSettings().Retry
	if s.Validate() != nil {
		logger.Warn("retry settings invalid, using defaults")
		s = defaults
	}
	return &RetryPolicy{
		maxAttempts:    s.MaxAttempts,
		initialBackoff: s.InitialBackoff,
		multiplier:     s.Multiplier,
		maxBackoff:     s.MaxBackoff,
		attemptTimeout: s.AttemptTimeout,
		sleep:          sleepContext,
	}
}

// WithPacer returns a copy of p that calls pace before each attempt,
// for example a rate limiter's Wait. Time spent pacing does not count
// against the attempt timeout.
func (p *RetryPolicy) WithPacer(pace func(ctx context.Context) error) *RetryPolicy {
	cp := *p
	cp.pace = pace
	return &cp
}

// MaxAttempts returns the total number of attempts per call.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	d := float64(p.initialBackoff) * math.Pow(p.multiplier, float64(attempt-1))
	if p.maxBackoff > 0 && d > float64(p.maxBackoff) {
		return p.maxBackoff
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds, fails permanently or attempts run out.
func (p *RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return p.run(ctx, op, p.maxAttempts, fn)
}

// Once runs fn a single time under the attempt timeout.
func (p *RetryPolicy) Once(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return p.run(ctx, op, 1, fn)
}

func (p *RetryPolicy) run(ctx context.Context, op string, attempts int, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if p.pace != nil {
			if err := p.pace(ctx); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		err := p.attempt(ctx, op, fn)
		if err == nil {
			if attempt > 1 {
				logger.Debug("%s succeeded on attempt %d", op, attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !domain.IsTransient(err) {
			return err
		}

		lastErr = err
		if attempt == attempts {
			break
		}

		wait := p.Backoff(attempt)
		logger.Warn("%s attempt %d/%d failed: %v (retrying in %s)", op, attempt, attempts, err, wait)
		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("%s: %d attempts exhausted: %w", op, attempts, lastErr)
}

func (p *RetryPolicy) attempt(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	err := fn(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !domain.IsTransient(err) {
		// The attempt ran out of time; whatever the provider returned, it is retryable.
		return domain.NewTransientError("provider", op, fmt.Errorf("%w after %s: %w", domain.ErrTimeout, p.attemptTimeout, err))
	}
	return err
}

// retryValue is Do for calls that produce a value.
func retryValue[T any](ctx context.Context, p *RetryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
