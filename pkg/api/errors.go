package api

import (
	"errors"
	"fmt"
)

// ErrNoBody is returned when a stream response carries no body.
var ErrNoBody = errors.New("response body is null")

// TransportError means the chat stream could not be opened.
type TransportError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	default:
		return e.Reason
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NetworkError is a failed conversation request.
type NetworkError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s: %d - %s", e.Op, e.StatusCode, e.Body)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
