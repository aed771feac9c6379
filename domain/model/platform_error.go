package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the normalized taxonomy every adapter error is mapped into
// before it reaches a queue worker. The retry decision is made on the kind
// only, never on raw provider codes.
type ErrorKind string

const (
	ErrKindValidation       ErrorKind = "validation"
	ErrKindAuthExpired      ErrorKind = "auth_expired"
	ErrKindRateLimit        ErrorKind = "rate_limit"
	ErrKindTransientNetwork ErrorKind = "transient_network"
	ErrKindContentRejected  ErrorKind = "content_rejected"
	ErrKindUnknownProvider  ErrorKind = "unknown_provider"
)

// PlatformError is an adapter failure carrying its taxonomy kind and a
// human-readable message suitable for a task's errorMsg.
type PlatformError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *PlatformError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PlatformError) Unwrap() error { return e.Cause }

// Retryable reports whether a worker may re-enqueue the job with backoff.
func (e *PlatformError) Retryable() bool {
	return e.Kind == ErrKindRateLimit || e.Kind == ErrKindTransientNetwork
}

func NewPlatformError(kind ErrorKind, message string, cause error) *PlatformError {
	return &PlatformError{Kind: kind, Message: message, Cause: cause}
}

// AsPlatformError normalizes any error into a PlatformError. Errors that are
// not already classified become terminal unknown-provider errors.
func AsPlatformError(err error) *PlatformError {
	if err == nil {
		return nil
	}
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe
	}
	return &PlatformError{Kind: ErrKindUnknownProvider, Message: err.Error(), Cause: err}
}
