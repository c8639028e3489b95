package state

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned by an operation whose result arrived after a newer
// operation on the same container had started. The result was not applied.
var ErrSuperseded = errors.New("operation superseded")

// AuthError is returned by a failed login or registration. Message is the
// text recorded in the session state.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// FetchError is returned by a failed list or get
type FetchError struct {
	Op      string
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MutationError is returned by a failed create, update or delete
type MutationError struct {
	Op      string
	Message string
	Err     error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}
