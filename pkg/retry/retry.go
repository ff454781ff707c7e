// Package retry is a generic bounded-backoff decorator for fallible calls.
// It knows nothing about the wrapped operation beyond a label used in error
// messages and logs. Only errors the policy classifies as retryable (by
// default, an upstream rate-limit signal) are retried; everything else
// propagates immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// RateLimitError marks an upstream 429 (or an error carrying that signal).
type RateLimitError struct {
	Op string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited (429)", e.Op)
}

// ExhaustedError reports that every attempt of an operation was rate limited.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: rate limit retries exhausted after %d attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// Policy controls how Do behaves. The zero value is not useful; start from
// DefaultPolicy.
type Policy struct {
	Attempts  int
	Retryable func(error) bool

	// Sleep is the backoff wait. Nil means a real context-aware sleep;
	// tests inject their own to observe the requested durations.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultPolicy(attempts int) Policy {
	if attempts <= 0 {
		attempts = 3
	}
	return Policy{Attempts: attempts, Retryable: IsRateLimit}
}

// Do runs fn up to p.Attempts times, sleeping 2^attempt seconds between
// retryable failures. Exhausting every attempt yields an ExhaustedError
// naming the operation.
func Do[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var last error

	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return zero, err
		}
		last = err
		if attempt == p.Attempts {
			break
		}

		wait := time.Duration(1<<uint(attempt)) * time.Second
		log.Warn().Str("op", op).Int("attempt", attempt).Dur("backoff", wait).Msg("rate limited, backing off")
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Op: op, Attempts: p.Attempts, Last: last}
}

// DoFunc is Do for operations with no result value.
func DoFunc(ctx context.Context, p Policy, op string, fn func(context.Context) error) error {
	_, err := Do(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
