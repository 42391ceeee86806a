package gateway

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when a request method is called before Init
// or after Dispose.
var ErrNotInitialized = errors.New("gateway client not initialized: call Init first")

// TransportInitError reports that a request context could not be established.
type TransportInitError struct {
	BaseURL string
	Err     error
}

func (e *TransportInitError) Error() string {
	return fmt.Sprintf("failed to initialize transport for %q: %v", e.BaseURL, e.Err)
}

func (e *TransportInitError) Unwrap() error {
	return e.Err
}

// TransportError reports a network-level failure (DNS, refused connection,
// timeout). No Envelope is produced when it occurs.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport failure: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError describes a well-formed failure envelope. It is a value
// obtained from Envelope.Failure, never returned by the request methods.
type ApplicationError struct {
	TransportStatus int
	ApplicationCode int
	Message         string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("application failure: status %d, code %d: %s", e.TransportStatus, e.ApplicationCode, e.Message)
}
