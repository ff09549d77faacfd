package service

import (
	"errors"
	"strings"
)

// ErrUnauthenticated is returned when an operation needs a signed-in user
// and the caller has none.
var ErrUnauthenticated = errors.New("authentication required")

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password. Callers cannot tell the two cases apart.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ValidationError carries every rule the input broke. It is returned before
// anything touches the store.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func invalid(messages []string) error {
	if len(messages) == 0 {
		return nil
	}
	return &ValidationError{Messages: messages}
}
