package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// FetchError indicates that a read from the school API failed. Prior cache
// contents (if any) remain usable; the fetch can be retried.
type FetchError struct {
	Resource   string
	StatusCode int // 0 on transport failure
	Err        error
}

func NewFetchError(resource string, statusCode int, err error) error {
	return &FetchError{Resource: resource, StatusCode: statusCode, Err: err}
}

func (err FetchError) Error() string {
	if err.StatusCode > 0 {
		return fmt.Sprintf("failed to load %s (status %d)", err.Resource, err.StatusCode)
	}
	return fmt.Sprintf("failed to load %s", err.Resource)
}

func (err FetchError) Unwrap() error { return err.Err }

func IsFetchError(err error) bool {
	_, ok := errors.Cause(err).(*FetchError)
	return ok
}

// ConflictError rejects a mutation on a target that already has one in flight.
type ConflictError struct {
	Type     string
	TargetID int
}

func (err ConflictError) Error() string {
	if err.TargetID > 0 {
		return fmt.Sprintf("a change to %s %d is already in progress", err.Type, err.TargetID)
	}
	return fmt.Sprintf("a change to %s is already in progress", err.Type)
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

// DerivationError marks a single derived field that could not be computed.
// It never fails the row it belongs to.
type DerivationError struct {
	Field string
	Err   error
}

func (err DerivationError) Error() string {
	return fmt.Sprintf("deriving %s: %v", err.Field, err.Err)
}

func (err DerivationError) Unwrap() error { return err.Err }
