package infra

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatus marks a non-2xx response from a remote service.
var ErrUnexpectedStatus = errors.New("unexpected status")

const msgUnavailable = "The service is temporarily unavailable. Please try again later."

// ServiceError describes a failed call to a remote collaborator.
// Message is the server-provided text, suitable for the user.
type ServiceError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Presentable returns the message for the user; empty when the server sent none.
func (e *ServiceError) Presentable() string { return e.Message }

// retryable reports whether another attempt may succeed.
func retryable(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Status == 429 || se.Status >= 500
	}
	return !errors.Is(err, errDecode)
}

var errDecode = errors.New("decode response")
