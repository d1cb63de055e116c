package reddit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAuth marks 401/403 responses. These are terminal for the run; the
// token source refreshes credentials on its own, so retrying inside the
// same call would just burn attempts.
var ErrAuth = errors.New("reddit: authentication failed")

// APIError is a non-2xx response from the Reddit API.
type APIError struct {
	StatusCode     int
	RetryAfterHint time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit: unexpected status %d", e.StatusCode)
}

// RetryAfter exposes the Retry-After hint to the retry policy; zero when
// the response carried none.
func (e *APIError) RetryAfter() time.Duration {
	return e.RetryAfterHint
}

// IsRetryable classifies errors for the retry policy: rate limiting and
// server errors are transient, other API statuses terminal. Anything that
// is not an APIError or a context end is assumed to be a network failure
// and retried.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrAuth) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	// Connection resets, timeouts and other transport failures.
	return true
}
