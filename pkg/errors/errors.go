package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrValidation
	ErrUnauthorized
	ErrInternal
	ErrStorage
)

// Domain error codes for inventory and prescription workflows
const (
	ErrInvalidTransition ErrorCode = iota + 2000
	ErrInvalidOperation
	ErrInsufficientStock
	ErrExpiredDrug
	ErrCannotExpireDispensed
	ErrIntegrityViolation
)

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Err:     err,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: message,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Storage reports an I/O failure against the backing store. Callers may
// retry these; every other error kind signals a precondition that will not
// resolve by retrying.
func Storage(err error) *AppError {
	return &AppError{
		Code:    ErrStorage,
		Message: "storage failure",
		Err:     err,
	}
}

func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("illegal transition from %s to %s", from, to),
	}
}

func InvalidOperation(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidOperation,
		Message: message,
	}
}

func InsufficientStock(available, requested int) *AppError {
	return &AppError{
		Code:    ErrInsufficientStock,
		Message: fmt.Sprintf("insufficient stock: %d available, %d requested", available, requested),
	}
}

func ExpiredDrug(name string) *AppError {
	return &AppError{
		Code:    ErrExpiredDrug,
		Message: fmt.Sprintf("drug %s is expired or inactive", name),
	}
}

func CannotExpireDispensed() *AppError {
	return &AppError{
		Code:    ErrCannotExpireDispensed,
		Message: "a dispensed prescription cannot be expired",
	}
}

// IntegrityViolation is fatal to trust in the affected chain segment and
// must reach the audit-facing caller unwrapped.
func IntegrityViolation(sequence int64) *AppError {
	return &AppError{
		Code:    ErrIntegrityViolation,
		Message: fmt.Sprintf("ledger integrity violation at sequence %d", sequence),
	}
}

// CodeOf extracts the ErrorCode from err, or ErrInternal when err is not an
// AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
