package fetcher

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx upstream response, carrying status and raw body for
// diagnostics.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("upstream api error (%d)", e.Status)
	}
	return fmt.Sprintf("upstream api error (%d): %s", e.Status, body)
}

// RateLimitError is a 429 response. It is kept distinct from APIError so
// callers can back off deliberately instead of retrying blindly.
type RateLimitError struct {
	Body string
}

func (e *RateLimitError) Error() string {
	return "upstream rate limit exceeded (429)"
}

// IsRateLimited reports whether err is (or wraps) a RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
