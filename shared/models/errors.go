package models

import (
	"github.com/pkg/errors"
)

// Error kinds shared by every service. Callers classify with errors.Is.
var (
	// ErrInvalidInput marks malformed or incomplete input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means a required entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable marks a transient infrastructure failure. Events
	// failing with it are redelivered, never dropped.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrIllegalTransition means the requested status change is not an edge
	// of the order state machine.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrTransitionPending means the order has not reached the predecessor of
	// the requested status yet; a later redelivery can still apply it.
	ErrTransitionPending = errors.New("status transition pending")
)

type unavailableError struct {
	cause error
	msg   string
}

func (e *unavailableError) Error() string {
	return e.msg + ": " + e.cause.Error()
}

func (e *unavailableError) Unwrap() error {
	return e.cause
}

func (e *unavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// Unavailable annotates an infrastructure error so that it matches
// ErrStoreUnavailable while keeping the original cause in the chain.
func Unavailable(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &unavailableError{cause: err, msg: msg}
}

// IsTransient reports whether err should be retried by redelivery.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrTransitionPending)
}
