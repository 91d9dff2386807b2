// Package common defines sentinel errors and small helpers shared by the
// storage, service and transport layers of taskdesk. Callers should use
// errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Authentication errors. ErrAuthenticationFailed is deliberately uniform:
	// it never says whether the identity or the credential was wrong.
	ErrAuthenticationFailed = errors.New("invalid email or password")
	ErrAccountDisabled      = errors.New("account is disabled")
	ErrSessionInvalid       = errors.New("not authenticated")

	// Authorization and input errors.
	ErrAuthorizationDenied  = errors.New("forbidden")
	ErrPreconditionViolated = errors.New("precondition violated")

	// Storage errors. Nothing more specific than these leaves a service.
	ErrStorage         = errors.New("storage failure")
	ErrConflict        = errors.New("concurrent modification, retry")
	ErrSessionCreation = errors.New("session could not be created")
)

// ReasonError is a rejection with a human readable reason, e.g. a safe delete
// refused by the database procedure.
type ReasonError struct {
	Kind   error
	Reason string
}

// Reject builds a ReasonError of kind ErrPreconditionViolated.
func Reject(reason string) *ReasonError {
	return &ReasonError{Kind: ErrPreconditionViolated, Reason: reason}
}

func (e *ReasonError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

func (e *ReasonError) Unwrap() error {
	return e.Kind
}
