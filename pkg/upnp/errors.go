package upnp

import (
	"errors"
	"fmt"
)

// Lease errors.
var (
	ErrTransport          = errors.New("transport error")
	ErrRemoteRejected     = errors.New("remote rejected request")
	ErrPreconditionFailed = errors.New("remote precondition failed")
	ErrRenewalFailed      = errors.New("renewal failed")
)

// StatusError reports an unexpected HTTP status from a device.
type StatusError struct {
	// Method is the request method (SUBSCRIBE or UNSUBSCRIBE).
	Method string

	// URL is the event endpoint URL.
	URL string

	// StatusCode is the HTTP status code returned.
	StatusCode int

	// Status is the HTTP status line text.
	Status string

	kind error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %v: %s", e.Method, e.URL, e.kind, e.Status)
}

// Unwrap returns the error kind (ErrRemoteRejected, ErrPreconditionFailed or
// ErrRenewalFailed).
func (e *StatusError) Unwrap() error {
	return e.kind
}
