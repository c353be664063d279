package httpclient

import (
	"fmt"
	"time"
)

// RetryableError is returned when a request still fails after every retry
// attempt. RetryAfter carries the server's last advertised wait, when any.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableError) Error() string {
	msg := fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %v)", e.RetryAfter)
	}
	return msg
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the caller may safely repeat the request.
func (e *RetryableError) IsRetryable() bool {
	return true
}
