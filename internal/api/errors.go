package api

import (
	"errors"
	"fmt"
)

// ErrInvalidResponse is returned when a response body does not match the expected schema
var ErrInvalidResponse = errors.New("invalid api response")

// TransportError means the request never produced a response: dial, timeout,
// cancelled context or the client-side rate limiter gave up.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectedError means the server answered with a status the operation does not accept.
type RejectedError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: rejected with status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: rejected with status %d", e.Op, e.StatusCode)
}

// IsRejected reports whether err carries a *RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// IsTransport reports whether err carries a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusCode returns the rejected status carried by err, or 0.
func StatusCode(err error) int {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
