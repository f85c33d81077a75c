package api

// errors.go defines the error codes returned by the HTTP API

import "fmt"

// ApiError is an error raised by the HTTP layer itself (middleware and request decoding).
type ApiError struct {
	// code is the API error code
	code ErrorCode

	// message is a human-readable error message, returned to the client
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *ApiError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *ApiError) Code() ErrorCode { return e.code }
func (e *ApiError) Unwrap() error   { return e.wrapped }
func (e *ApiError) Message() string { return e.message }

// ErrorCode is returned to clients in the "code" field of error responses.
type ErrorCode string

const (
	// ErrCodeEnvelope: the request body is not a valid encrypted envelope
	ErrCodeEnvelope ErrorCode = "envelope"

	// ErrCodeUnauthenticated: no session token was supplied
	ErrCodeUnauthenticated ErrorCode = "unauthenticated"

	// ErrCodeUnauthorized: the session token is invalid or expired, or the identity is unknown
	ErrCodeUnauthorized ErrorCode = "unauthorized"

	// ErrCodeValidation: the request is malformed or a field is invalid
	ErrCodeValidation ErrorCode = "validation"

	// ErrCodeForbidden: the caller's role does not allow the operation
	ErrCodeForbidden ErrorCode = "forbidden"

	// ErrCodeConflict: the operation conflicts with the ledger state
	ErrCodeConflict ErrorCode = "conflict"

	// ErrCodeNotFound: the addressed record does not exist
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeUpstream: the ledger or the content store failed or timed out
	ErrCodeUpstream ErrorCode = "upstream"

	// ErrCodeInternal: unexpected server error
	ErrCodeInternal ErrorCode = "internal"

	// ErrCodeRateLimited is only used in the middleware
	ErrCodeRateLimited ErrorCode = "rate_limited"

	// ErrCodeRequestTooLarge is only used in the middleware
	ErrCodeRequestTooLarge ErrorCode = "request_too_large"
)

func NewEnvelopeError(msg string) error {
	return &ApiError{code: ErrCodeEnvelope, message: msg}
}

func WrapEnvelopeError(err error, msg string) error {
	return &ApiError{code: ErrCodeEnvelope, message: msg, wrapped: err}
}

// NewUnauthenticatedError is used when the Authorization header is missing.
func NewUnauthenticatedError(msg string) error {
	return &ApiError{code: ErrCodeUnauthenticated, message: msg}
}

// WrapUnauthorizedError is used when the session token fails verification.
func WrapUnauthorizedError(err error, msg string) error {
	return &ApiError{code: ErrCodeUnauthorized, message: msg, wrapped: err}
}

func NewValidationError(msg string) error {
	return &ApiError{code: ErrCodeValidation, message: msg}
}

func WrapValidationError(err error, msg string) error {
	return &ApiError{code: ErrCodeValidation, message: msg, wrapped: err}
}

func NewNotFoundError(msg string) error {
	return &ApiError{code: ErrCodeNotFound, message: msg}
}

func WrapInternalError(err error, msg string) error {
	return &ApiError{code: ErrCodeInternal, message: msg, wrapped: err}
}

func NewRateLimitError(msg string) error {
	return &ApiError{code: ErrCodeRateLimited, message: msg}
}

func NewRequestTooLargeError(msg string) error {
	return &ApiError{code: ErrCodeRequestTooLarge, message: msg}
}
