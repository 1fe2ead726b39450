package app

import (
	"errors"
	"fmt"
)

// Every error leaving this package matches exactly one of these with
// errors.Is. Handlers switch on them; nothing else is inspected.
var (
	ErrValidation        = errors.New("invalid input")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrStorage           = errors.New("storage failure")
	ErrBackend           = errors.New("generation backend failure")
)

// ErrInvalidCredentials is the single login failure. It does not say which
// field was wrong.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrUnauthenticated)

// ValidationError carries a message that is safe to show to the client.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

func storageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func backendError(err error) error {
	return fmt.Errorf("%w: %w", ErrBackend, err)
}
