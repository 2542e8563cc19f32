package domain

import "errors"

// PresentableError is implemented by collaborator errors that carry a
// message meant for the user rather than for logs.
type PresentableError interface {
	error
	Presentable() string
}

// UserMessage extracts the message to show for err.
// Returns "" for a nil error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe PresentableError
	if errors.As(err, &pe) {
		return pe.Presentable()
	}
	return err.Error()
}
