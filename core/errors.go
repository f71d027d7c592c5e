package core

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyPaused is returned by Pause when the task is already paused.
	ErrAlreadyPaused = errors.New("periodic task is already paused")

	// ErrNotPaused is returned by Resume when the task is not paused.
	ErrNotPaused = errors.New("periodic task is not paused")

	// ErrStopped is returned by Pause and Resume once Stop has been called.
	ErrStopped = errors.New("periodic task is stopped")

	// ErrInvalidPeriod is returned by SetPeriod for non-positive periods.
	ErrInvalidPeriod = errors.New("period must be greater than zero")

	// ErrUnknownFailure matches routine failures whose panic value was not an error.
	ErrUnknownFailure = errors.New("unknown error in periodic task")
)

// PanicError wraps a routine panic whose value does not implement error.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUnknownFailure, e.Value)
}

func (e *PanicError) Unwrap() error {
	return ErrUnknownFailure
}

// failureFromPanic turns a recovered panic value into the error handed to the
// error callback. Panics carrying an error are forwarded as is.
func failureFromPanic(rec any, stack []byte) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return &PanicError{Value: rec, Stack: stack}
}
