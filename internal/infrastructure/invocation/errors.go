package invocation

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError wraps failures worth retrying: the sidecar was
// unreachable or the upstream answered 5xx. Bus handlers translate it
// into a RETRY status.
type TransientError struct {
	Err error
}

func (e TransientError) Error() string { return e.Err.Error() }
func (e TransientError) Unwrap() error { return e.Err }

// Transient wraps an error as retryable.
func Transient(err error) error {
	return TransientError{Err: err}
}

// IsTransient reports whether the error should be retried.
func IsTransient(err error) bool {
	var t TransientError
	return errors.As(err, &t)
}

// StatusError is a permanent upstream rejection (4xx). Handlers log it
// and drop the message; redelivery would fail the same way.
type StatusError struct {
	Code int
	Body string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Code, e.Body)
}

// IsNotFound reports whether the error is an upstream 404.
func IsNotFound(err error) bool {
	var s StatusError
	return errors.As(err, &s) && s.Code == http.StatusNotFound
}
