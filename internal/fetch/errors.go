package fetch

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatus is wrapped by FetchError when the server answered
// with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// ErrBodyTooLarge is wrapped by FetchError when an HTML page exceeds the
// configured size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// FetchError reports a request that could not be completed.
type FetchError struct {
	// URL is the requested address.
	URL string

	// StatusCode is the last HTTP status received, or 0 when no response
	// arrived.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure class is one that is retried.
func (e *FetchError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}
