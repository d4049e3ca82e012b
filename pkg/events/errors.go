package events

import (
	"errors"
	"fmt"
)

// Listener errors.
var (
	ErrNotListening         = errors.New("listener not listening")
	ErrAlreadyListening     = errors.New("listener already listening")
	ErrClosed               = errors.New("listener closed")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrDecode               = errors.New("malformed notification")
)

// DecodeError reports a notification body that could not be fully decoded.
// Properties decoded before the failure are still applied.
type DecodeError struct {
	// SID of the notification.
	SID string

	// Decoded is the number of properties decoded before the failure.
	Decoded int

	// Err is the underlying XML error.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("notification %s: %v after %d properties: %v", e.SID, ErrDecode, e.Decoded, e.Err)
}

// Unwrap returns ErrDecode and the underlying error.
func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
