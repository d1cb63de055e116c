package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrTooLarge marks a download aborted for exceeding the size limit.
// It is a terminal per-URL outcome, not a failure of the run.
var ErrTooLarge = errors.New("media: payload exceeds size limit")

type httpError struct {
	StatusCode     int
	RetryAfterHint time.Duration
}

func (e *httpError) Error() string {
	return fmt.Sprintf("media: unexpected status %d", e.StatusCode)
}

func (e *httpError) RetryAfter() time.Duration {
	return e.RetryAfterHint
}

// retryable classifies download errors: 429 and server errors are worth
// another attempt, oversized payloads and client errors are not. Transport
// failures fall through to true.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrTooLarge) {
		return false
	}

	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	return true
}

func retryAfterHeader(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
