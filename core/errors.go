package core

import "github.com/pkg/errors"

type errorKind int

const (
	kindNotFound errorKind = iota + 1
	kindInvalidState
	kindConflict
	kindPermissionDenied
	kindInvalidAssignment
	kindTransportFailure
)

// DomainError is a classified business-rule failure. Domain packages declare
// their failures as package-level sentinels built with the constructors below
// so callers can compare with == while the API layer switches on the class.
type DomainError struct {
	kind errorKind
	msg  string
}

func (e *DomainError) Error() string { return e.msg }

func NotFoundError(msg string) error          { return &DomainError{kindNotFound, msg} }
func InvalidStateError(msg string) error      { return &DomainError{kindInvalidState, msg} }
func ConflictError(msg string) error          { return &DomainError{kindConflict, msg} }
func PermissionDeniedError(msg string) error  { return &DomainError{kindPermissionDenied, msg} }
func InvalidAssignmentError(msg string) error { return &DomainError{kindInvalidAssignment, msg} }
func TransportFailureError(msg string) error  { return &DomainError{kindTransportFailure, msg} }

func hasKind(err error, kind errorKind) bool {
	if derr, ok := errors.Cause(err).(*DomainError); ok {
		return derr.kind == kind
	}
	return false
}

func IsNotFound(err error) bool          { return hasKind(err, kindNotFound) }
func IsInvalidState(err error) bool      { return hasKind(err, kindInvalidState) }
func IsConflict(err error) bool          { return hasKind(err, kindConflict) }
func IsPermissionDenied(err error) bool  { return hasKind(err, kindPermissionDenied) }
func IsInvalidAssignment(err error) bool { return hasKind(err, kindInvalidAssignment) }
func IsTransportFailure(err error) bool  { return hasKind(err, kindTransportFailure) }

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

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
