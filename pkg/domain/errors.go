package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistration is the class of malformed unit registrations.
	ErrRegistration = errors.New("registration error")

	// ErrInvocation is the class of synchronous unit failures during a tick.
	ErrInvocation = errors.New("invocation error")

	// ErrBackgroundFailure is the class of threaded unit loops that terminated unexpectedly.
	ErrBackgroundFailure = errors.New("background failure")

	// ErrArity is returned when a unit produces a result count that does not match its outputs.
	ErrArity = errors.New("result arity mismatch")

	// ErrAlreadyStarted is returned when a loop is started twice or modified while running.
	ErrAlreadyStarted = errors.New("loop already started")

	// ErrUnknownModelType is returned for a model variant name that is not registered.
	ErrUnknownModelType = errors.New("unknown model type")

	// ErrUnsupportedModel is returned when a model variant cannot be served natively.
	ErrUnsupportedModel = errors.New("unsupported model")

	// ErrRecordNotFound is returned when a record index does not exist in a store.
	ErrRecordNotFound = errors.New("record not found")

	// ErrResourceLocked is returned when a resource is already owned by another unit or process.
	ErrResourceLocked = errors.New("resource locked")
)

// RegistrationError reports a malformed unit descriptor.
type RegistrationError struct {
	Unit   string
	Reason string
}

func (e *RegistrationError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("registration: %s", e.Reason)
	}
	return fmt.Sprintf("registration of %q: %s", e.Unit, e.Reason)
}

func (e *RegistrationError) Unwrap() error { return ErrRegistration }

// InvocationError reports a synchronous unit that failed during a tick.
type InvocationError struct {
	Unit string
	Tick uint64
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("unit %q failed on tick %d: %v", e.Unit, e.Tick, e.Err)
}

func (e *InvocationError) Unwrap() []error { return []error{ErrInvocation, e.Err} }

// BackgroundFailure reports a threaded unit whose loop terminated with an error.
type BackgroundFailure struct {
	Unit string
	Err  error
}

func (e *BackgroundFailure) Error() string {
	return fmt.Sprintf("unit %q background loop failed: %v", e.Unit, e.Err)
}

func (e *BackgroundFailure) Unwrap() []error { return []error{ErrBackgroundFailure, e.Err} }
