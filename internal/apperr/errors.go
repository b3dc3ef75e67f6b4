// Package apperr holds the error taxonomy shared by all services.
// Validation and not-found errors are recoverable and reported to the
// caller without side effects; anything else is treated as a persistence
// failure and propagated unchanged.
package apperr

import (
	"errors"
	"fmt"
)

// ErrInsufficientQuantity rejects outbound inventory transactions that
// would take an item below zero.
var ErrInsufficientQuantity = errors.New("insufficient quantity")

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func Validation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string {
	return e.Msg
}

func Forbidden(format string, args ...interface{}) error {
	return &ForbiddenError{Msg: fmt.Sprintf(format, args...)}
}

func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}
