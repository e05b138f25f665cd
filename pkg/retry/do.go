// Package retry runs an operation until it succeeds, the attempts run out or
// the context is done, sleeping between attempts according to a Backoff.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Func is a retryable operation. It must respect ctx.
type Func func(ctx context.Context) error

// RetryIf decides whether err deserves another attempt.
type RetryIf func(error) bool

// OnRetry is called before sleeping, with the attempt that just failed (1-based).
type OnRetry func(attempt int, err error)

// Backoff returns the wait before the retry following attempt (0-based).
type Backoff interface {
	Next(attempt int) time.Duration
}

type fixedBackoff time.Duration

func (b fixedBackoff) Next(int) time.Duration { return time.Duration(b) }

// Fixed waits the same interval between every attempt.
func Fixed(interval time.Duration) Backoff {
	return fixedBackoff(interval)
}

type exponentialBackoff struct {
	base time.Duration
	max  time.Duration
}

func (b exponentialBackoff) Next(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	d := b.base * time.Duration(1<<attempt)
	if b.max > 0 && d > b.max {
		return b.max
	}
	return d
}

// Exponential doubles the wait after each attempt, capped by max when given.
func Exponential(base time.Duration, max ...time.Duration) Backoff {
	b := exponentialBackoff{base: base}
	if len(max) > 0 {
		b.max = max[0]
	}
	return b
}

// Jitter perturbs a computed wait.
type Jitter func(time.Duration) time.Duration

func NoJitter(d time.Duration) time.Duration { return d }

// FullJitter picks a random wait in [0, d).
func FullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d)))
}

type config struct {
	maxAttempts int
	backoff     Backoff
	jitter      Jitter
	retryIf     RetryIf
	onRetry     OnRetry
}

type Option func(*config)

// WithMaxAttempts sets the total number of attempts, the first one included.
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithBackoff(b Backoff) Option {
	return func(c *config) {
		if b != nil {
			c.backoff = b
		}
	}
}

func WithJitter(j Jitter) Option {
	return func(c *config) {
		if j != nil {
			c.jitter = j
		}
	}
}

func WithRetryIf(fn RetryIf) Option {
	return func(c *config) {
		if fn != nil {
			c.retryIf = fn
		}
	}
}

func WithOnRetry(fn OnRetry) Option {
	return func(c *config) {
		c.onRetry = fn
	}
}

// Do runs fn until it returns nil or the attempts are used up and returns the
// last error. Errors wrapped with Permanent stop immediately.
func Do(ctx context.Context, fn Func, opts ...Option) error {
	cfg := &config{
		maxAttempts: 3,
		backoff:     Fixed(time.Second),
		jitter:      NoJitter,
		retryIf:     IsRetryableError,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var lastErr error
	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if !cfg.retryIf(err) || attempt == cfg.maxAttempts-1 {
			break
		}
		if cfg.onRetry != nil {
			cfg.onRetry(attempt+1, err)
		}

		wait := cfg.jitter(cfg.backoff.Next(attempt))
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		}
	}
	return lastErr
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryableError retries everything except context cancellation and deadlines.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
