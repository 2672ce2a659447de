package ledger

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes ledger errors.
type ErrorCode string

const (
	// CodeInvalidInput indicates malformed arguments or an invalid call context.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates an unknown property or agreement id.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUnauthorized indicates the caller lacks the required role.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeInvalidState indicates the operation is not valid for the current lifecycle state.
	CodeInvalidState ErrorCode = "INVALID_STATE"

	// CodeInvalidWindow indicates start >= end or a clock outside the agreement window.
	CodeInvalidWindow ErrorCode = "INVALID_WINDOW"

	// CodeAlreadyPaid indicates the current billing period is already settled.
	CodeAlreadyPaid ErrorCode = "ALREADY_PAID"

	// CodeTooEarly indicates the first billing period has not opened yet.
	CodeTooEarly ErrorCode = "TOO_EARLY"

	// CodeTransferFailed indicates the transfer collaborator declined a movement.
	CodeTransferFailed ErrorCode = "TRANSFER_FAILED"

	// CodePropertyAlreadyRented indicates the property is bound to an active agreement.
	CodePropertyAlreadyRented ErrorCode = "PROPERTY_ALREADY_RENTED"

	// CodeStorage indicates the journal could not record the call.
	CodeStorage ErrorCode = "STORAGE"
)

// Reasons refine an ErrorCode and match with errors.Is.
var (
	ErrPropertyNotFound   = errors.New("property not found")
	ErrAgreementNotFound  = errors.New("agreement not found")
	ErrPropertyInactive   = errors.New("property is inactive")
	ErrAgreementNotActive = errors.New("agreement is not active")
	ErrSelfRental         = errors.New("owner cannot rent own property")
	ErrNotOwner           = errors.New("caller is not the property owner")
	ErrNotTenant          = errors.New("caller is not the tenant")
	ErrNotParty           = errors.New("caller is neither owner nor tenant")
	ErrClockRegression    = errors.New("block height moved backwards")
	ErrEmptyCaller        = errors.New("caller identity is empty")
	ErrStartInPast        = errors.New("agreement start is in the past")
	ErrWindowClosed       = errors.New("agreement window has closed")
)

// Error is returned by every ledger operation that fails.
//
// A failed operation never mutates ledger state.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the journal operation name, e.g. "pay-monthly-rent".
	Op string

	// Message is a human-readable description.
	Message string

	// Reason is an optional finer cause (one of the Err* values or a collaborator error).
	Reason error

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes Reason to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Reason
}

func newError(code ErrorCode, reason error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if reason != nil && msg == "" {
		msg = reason.Error()
	} else if reason != nil {
		msg = fmt.Sprintf("%s: %v", msg, reason)
	}
	return &Error{Code: code, Message: msg, Reason: reason}
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not a ledger error.
func CodeOf(err error) ErrorCode {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsNotFound returns true if the error is a NOT_FOUND ledger error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }
