package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func alwaysRetry(error) bool { return true }

func testPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), alwaysRetry, func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), alwaysRetry, func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), alwaysRetry, func(context.Context) error {
		calls++
		return errTransient
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, errTransient)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestDo_TerminalErrorNotRetried(t *testing.T) {
	terminal := errors.New("permanent")
	calls := 0
	err := testPolicy(3).Do(context.Background(), func(err error) bool {
		return !errors.Is(err, terminal)
	}, func(context.Context) error {
		calls++
		return terminal
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	// Terminal errors come back unwrapped, without the attempt prefix.
	assert.Equal(t, terminal, err)
}

func TestDo_NonPositiveMaxAttemptsStillRunsOnce(t *testing.T) {
	for _, attempts := range []int{0, -1} {
		calls := 0
		err := testPolicy(attempts).Do(context.Background(), alwaysRetry, func(context.Context) error {
			calls++
			return errTransient
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, errTransient)
		assert.Contains(t, err.Error(), "after 1 attempts")
	}
}

type hintedError struct{ delay time.Duration }

func (e *hintedError) Error() string             { return "rate limited" }
func (e *hintedError) RetryAfter() time.Duration { return e.delay }

func TestDo_HonorsRetryHint(t *testing.T) {
	hint := 30 * time.Millisecond
	calls := 0
	start := time.Now()

	err := testPolicy(2).Do(context.Background(), alwaysRetry, func(context.Context) error {
		calls++
		if calls == 1 {
			return &hintedError{delay: hint}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), hint)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := Policy{MaxAttempts: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour}
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, alwaysRetry, func(context.Context) error {
		calls++
		return errTransient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
