package api

import (
	"errors"
	"fmt"
)

// NetworkError reports a request that never produced an HTTP response:
// dial failures, resets, timeouts, cancelled contexts.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a non-2xx status or a response body we could not use.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: server status %d: %s", e.Op, e.StatusCode, e.Message)
}

// IsNetwork reports whether err is (or wraps) a *NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsServer reports whether err is (or wraps) a *ServerError.
func IsServer(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}
