package pipeline

import (
	"context"
	"errors"

	"tekshila/internal/forge"
)

// ValidationError reports a failed precondition. No external call was made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ErrConcurrentInvocation rejects an action whose kind is already pending.
var ErrConcurrentInvocation = errors.New("action already in progress")

// ServiceError is a failure reported by a generation, quality or host call.
type ServiceError struct {
	Message string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }
func (e *ServiceError) Unwrap() error { return e.Err }

// AuthError is a rejected or unusable token.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

func invalid(reason string) error { return &ValidationError{Reason: reason} }

// classify maps a collaborator error onto the pipeline taxonomy. Every
// failure of Authenticate is an AuthError; elsewhere only an unauthorized
// host response is.
func classify(k Kind, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		se *ServiceError
		ae *AuthError
	)
	if errors.As(err, &ve) || errors.As(err, &se) || errors.As(err, &ae) {
		return err
	}
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out: " + msg
	}
	if k == KindAuthenticate || errors.Is(err, forge.ErrUnauthorized) {
		return &AuthError{Message: msg, Err: err}
	}
	return &ServiceError{Message: msg, Err: err}
}
