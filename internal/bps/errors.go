package bps

import (
	"errors"
	"fmt"
)

// Sentinel errors for connectivity failures. Callers match with errors.Is.
var (
	// ErrNetwork means the request never reached the BPS service.
	ErrNetwork = errors.New("no connection to the BPS service")
	// ErrTimeout means the bounded request deadline elapsed.
	ErrTimeout = errors.New("request to the BPS service timed out")
	// ErrNoToken means the client was constructed without an API token.
	ErrNoToken = errors.New("API token is not set")
)

// StatusError reports a non-200 HTTP response from the service.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("BPS service returned HTTP %d", e.Code)
}

// IsAuth reports whether the status indicates an invalid or rejected token.
func (e *StatusError) IsAuth() bool { return e.Code == 401 || e.Code == 403 }

// IsServer reports whether the status indicates trouble on the BPS side.
func (e *StatusError) IsServer() bool { return e.Code >= 500 }

// MalformedError reports a response body that decoded but did not match the
// expected shape, or failed to decode at all.
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected BPS response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unexpected BPS response: %s", e.Reason)
}

func (e *MalformedError) Unwrap() error { return e.Err }
