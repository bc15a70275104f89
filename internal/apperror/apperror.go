// Package apperror is the error taxonomy shared by the pipeline services and the REST layer.
// Services return these kinds instead of raw storage errors so handlers can map them to
// HTTP statuses deterministically.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

var (
	// ErrValidation covers malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidQuantity is a quantity conservation violation (received > sent,
	// good+damaged+rejected != total, ...).
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidTransition is a status change the pipeline state machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrNotFound = errors.New("not found")

	// ErrConflict is a write blocked by a downstream reference or a duplicate number.
	ErrConflict = errors.New("conflict")

	// ErrAlreadyConverted signals the conversion already happened for this challan.
	ErrAlreadyConverted = errors.New("already converted")
)

// Error wraps one of the sentinel kinds with a human readable message.
type Error struct {
	Err     error
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Err: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

func InvalidQuantity(format string, args ...interface{}) error {
	return newError(ErrInvalidQuantity, format, args...)
}

func InvalidTransition(format string, args ...interface{}) error {
	return newError(ErrInvalidTransition, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

func AlreadyConverted(format string, args ...interface{}) error {
	return newError(ErrAlreadyConverted, format, args...)
}

// IsDomain reports whether err belongs to the taxonomy (anything else is a storage or
// transport failure).
func IsDomain(err error) bool {
	return Kind(err) != nil
}

// Kind returns the sentinel err wraps, or nil.
func Kind(err error) error {
	for _, kind := range []error{
		ErrValidation,
		ErrInvalidQuantity,
		ErrInvalidTransition,
		ErrNotFound,
		ErrConflict,
		ErrAlreadyConverted,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// HTTPStatus maps an error to the status code the REST layer answers with.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrInvalidQuantity:
		return http.StatusUnprocessableEntity
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidTransition, ErrConflict, ErrAlreadyConverted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message is the text shown to users. Storage failures never leak their raw error.
func Message(err error) string {
	if IsDomain(err) {
		return err.Error()
	}
	return "The operation could not be completed because storage is unavailable, please try again"
}

// FromDB translates gorm errors for entity (e.g. "purchase") into the taxonomy and wraps
// everything else.
func FromDB(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case IsDomain(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("%s not found", entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Conflict("%s with the same number already exists", entity)
	default:
		return fmt.Errorf("%s storage error: %w", entity, err)
	}
}
