// Package retry implements the backoff policy shared by the Reddit client
// and the media downloader: capped exponential backoff with jitter and a
// caller-supplied predicate deciding which errors are worth another attempt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Hinter is implemented by errors that carry an explicit retry delay,
// such as a 429 response with a Retry-After header.
type Hinter interface {
	RetryAfter() time.Duration
}

// Do runs fn up to p.MaxAttempts times, but always at least once. Between
// attempts it sleeps for the backoff of the failed attempt, honoring a
// Hinter delay when the error provides one. It stops early when retryable
// returns false or the context is done; the last error is returned wrapped
// with the attempt count.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt == attempts {
			break
		}

		delay := p.backoff(attempt)
		var h Hinter
		if errors.As(err, &h) {
			if hinted := h.RetryAfter(); hinted > delay {
				delay = hinted
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	if !retryable(err) {
		return err
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}

// backoff doubles the initial delay per attempt, caps it at MaxBackoff and
// spreads the result over ±25% so concurrent retries against the same host
// do not fire in lockstep.
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxBackoff {
			delay = p.MaxBackoff
			break
		}
	}

	jitter := time.Duration(rand.Int64N(int64(delay)/2 + 1))
	return delay*3/4 + jitter
}
