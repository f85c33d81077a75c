package crypto

import (
	"errors"
	"fmt"
)

// Error represents a structured error from the crypto package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	ErrCodeEnvelope      ErrorCode = "envelope"
	ErrCodeTokenExpired  ErrorCode = "token_expired"
	ErrCodeTokenInvalid  ErrorCode = "token_invalid"
	ErrCodeValidation    ErrorCode = "validation"
	ErrCodeKeyManagement ErrorCode = "key_management"
	ErrCodeInternal      ErrorCode = "internal"
)

// CryptoError represents a structured error from the crypto package
type CryptoError struct {

	// code is the cryptoerror code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *CryptoError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *CryptoError) Code() ErrorCode { return e.code }
func (e *CryptoError) Unwrap() error   { return e.wrapped }
func (e *CryptoError) Message() string { return e.message }

// NewEnvelopeError creates an envelope error.
// Use this when an encrypted envelope is malformed, cannot be decrypted with any configured key,
// or does not contain JSON.
//
// The returned error will have code ErrCodeEnvelope.
func NewEnvelopeError(msg string) error {
	return &CryptoError{code: ErrCodeEnvelope, message: msg}
}

// WrapEnvelopeError wraps an existing error as an envelope error.
//
// The returned error will have code ErrCodeEnvelope.
func WrapEnvelopeError(err error, msg string) error {
	return &CryptoError{code: ErrCodeEnvelope, message: msg, wrapped: err}
}

// NewTokenExpiredError is returned when a correctly signed session token is past its expiry.
//
// The returned error will have code ErrCodeTokenExpired.
func NewTokenExpiredError(msg string) error {
	return &CryptoError{code: ErrCodeTokenExpired, message: msg}
}

// NewTokenInvalidError creates an invalid token error.
// Use this for malformed tokens, bad signatures and claims that fail validation.
//
// The returned error will have code ErrCodeTokenInvalid.
func NewTokenInvalidError(msg string) error {
	return &CryptoError{code: ErrCodeTokenInvalid, message: msg}
}

// WrapTokenInvalidError wraps an existing error as an invalid token error.
//
// The returned error will have code ErrCodeTokenInvalid.
func WrapTokenInvalidError(err error, msg string) error {
	return &CryptoError{code: ErrCodeTokenInvalid, message: msg, wrapped: err}
}

// NewValidationError creates a validation error for invalid input.
// Use this for errors related to missing required fields, bad format,
// or bad encoding.
//
// The returned error will have code ErrCodeValidation.
func NewValidationError(msg string) error {
	return &CryptoError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError wraps an existing error as a validation error.
//
// The returned error will have code ErrCodeValidation.
func WrapValidationError(err error, msg string) error {
	return &CryptoError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// NewKeyManagementError creates a key management error.
// Use this for errors related to missing or unusable secrets and key derivation failures.
//
// The returned error will have code ErrCodeKeyManagement.
func NewKeyManagementError(msg string) error {
	return &CryptoError{code: ErrCodeKeyManagement, message: msg}
}

// WrapKeyManagementError wraps an existing error as a key management error.
//
// The returned error will have code ErrCodeKeyManagement.
func WrapKeyManagementError(err error, msg string) error {
	return &CryptoError{code: ErrCodeKeyManagement, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
// Use this for errors related to crypto library failures or system errors that should not normally occur.
//
// The returned error will have code ErrCodeInternal.
func NewInternalError(msg string) error {
	return &CryptoError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
//
// The returned error will have code ErrCodeInternal.
func WrapInternalError(err error, msg string) error {
	return &CryptoError{code: ErrCodeInternal, message: msg, wrapped: err}
}

// CodeOf returns the code of the first CryptoError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var cryptoErr *CryptoError
	if errors.As(err, &cryptoErr) {
		return cryptoErr.code
	}
	return ""
}
