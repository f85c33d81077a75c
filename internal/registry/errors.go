package registry

import (
	"errors"
	"fmt"

	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
)

type ErrorCode string

const (
	// ErrCodeForbidden: the caller's role or authorization status does not allow the operation
	ErrCodeForbidden ErrorCode = "forbidden"

	// ErrCodeUnauthorized: the identity is not known to the ledger (login)
	ErrCodeUnauthorized ErrorCode = "unauthorized"

	// ErrCodeValidation: the input is missing or malformed
	ErrCodeValidation ErrorCode = "validation"

	// ErrCodeConflict: the operation conflicts with the current ledger state
	ErrCodeConflict ErrorCode = "conflict"

	// ErrCodeNotFound: the addressed request, identity or credential does not exist
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeUpstream: the ledger or the content store failed or timed out
	ErrCodeUpstream ErrorCode = "upstream"

	// ErrCodeInternal: unexpected failure
	ErrCodeInternal ErrorCode = "internal"
)

// RegistryError is returned by the authorization workflow and credential lifecycle operations.
type RegistryError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *RegistryError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *RegistryError) Code() ErrorCode { return e.code }
func (e *RegistryError) Unwrap() error   { return e.wrapped }
func (e *RegistryError) Message() string { return e.message }

func NewForbiddenError(msg string) error {
	return &RegistryError{code: ErrCodeForbidden, message: msg}
}

func NewUnauthorizedError(msg string) error {
	return &RegistryError{code: ErrCodeUnauthorized, message: msg}
}

func NewValidationError(msg string) error {
	return &RegistryError{code: ErrCodeValidation, message: msg}
}

func WrapValidationError(err error, msg string) error {
	return &RegistryError{code: ErrCodeValidation, message: msg, wrapped: err}
}

func NewConflictError(msg string) error {
	return &RegistryError{code: ErrCodeConflict, message: msg}
}

func NewNotFoundError(msg string) error {
	return &RegistryError{code: ErrCodeNotFound, message: msg}
}

func WrapUpstreamError(err error, msg string) error {
	return &RegistryError{code: ErrCodeUpstream, message: msg, wrapped: err}
}

func WrapInternalError(err error, msg string) error {
	return &RegistryError{code: ErrCodeInternal, message: msg, wrapped: err}
}

// CodeOf returns the registry error code of err, or "" when err is not a RegistryError.
func CodeOf(err error) ErrorCode {
	var registryErr *RegistryError
	if errors.As(err, &registryErr) {
		return registryErr.code
	}
	return ""
}

// fromLedger converts a ledger error. The ledger message is kept: it describes the rule that was violated.
func fromLedger(err error, action string) error {
	var ledgerErr *ledger.LedgerError
	if !errors.As(err, &ledgerErr) {
		return WrapInternalError(err, action)
	}

	var code ErrorCode
	switch ledgerErr.Code() {
	case ledger.ErrCodeNotFound:
		code = ErrCodeNotFound
	case ledger.ErrCodeConflict:
		code = ErrCodeConflict
	case ledger.ErrCodeForbidden:
		code = ErrCodeForbidden
	case ledger.ErrCodeInvalid:
		code = ErrCodeValidation
	case ledger.ErrCodeUpstream:
		return WrapUpstreamError(err, action)
	default:
		return WrapInternalError(err, action)
	}
	return &RegistryError{code: code, message: ledgerErr.Message(), wrapped: err}
}
