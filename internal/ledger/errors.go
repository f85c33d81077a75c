package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Error represents a structured error from the ledger
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeNotFound: the record addressed by the call does not exist
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeConflict: the write is inconsistent with the current state (duplicate, wrong status)
	ErrCodeConflict ErrorCode = "conflict"

	// ErrCodeForbidden: the signer is not allowed to perform the write
	ErrCodeForbidden ErrorCode = "forbidden"

	// ErrCodeInvalid: the call arguments are malformed or the method is unknown
	ErrCodeInvalid ErrorCode = "invalid"

	// ErrCodeUpstream: the ledger could not be reached, timed out or failed
	ErrCodeUpstream ErrorCode = "upstream"
)

// LedgerError represents a structured error from the ledger
type LedgerError struct {

	// code is the ledger error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *LedgerError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *LedgerError) Code() ErrorCode { return e.code }
func (e *LedgerError) Unwrap() error   { return e.wrapped }
func (e *LedgerError) Message() string { return e.message }

func NewNotFoundError(msg string) error {
	return &LedgerError{code: ErrCodeNotFound, message: msg}
}

func NewConflictError(msg string) error {
	return &LedgerError{code: ErrCodeConflict, message: msg}
}

func NewForbiddenError(msg string) error {
	return &LedgerError{code: ErrCodeForbidden, message: msg}
}

func NewInvalidError(msg string) error {
	return &LedgerError{code: ErrCodeInvalid, message: msg}
}

func WrapInvalidError(err error, msg string) error {
	return &LedgerError{code: ErrCodeInvalid, message: msg, wrapped: err}
}

// WrapUpstreamError wraps a transport or storage failure.
func WrapUpstreamError(err error, msg string) error {
	return &LedgerError{code: ErrCodeUpstream, message: msg, wrapped: err}
}

// CodeOf returns the ledger error code of err, or "" if err is not a ledger error.
func CodeOf(err error) ErrorCode {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr.code
	}
	return ""
}

// IsNotFound reports whether err is a ledger not found error
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// FormatError renders a contract error for transport across a process boundary (chaincode responses).
// The result is parsed back with ParseError.
func FormatError(err error) string {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return fmt.Sprintf("%s: %s", ledgerErr.code, ledgerErr.message)
	}
	return fmt.Sprintf("%s: %s", ErrCodeInvalid, err.Error())
}

// the chaincode message is embedded somewhere in the peer's error description
var contractErrorPattern = regexp.MustCompile(`\b(not_found|conflict|forbidden|invalid): ([^\n]*)`)

// ParseError converts an error returned by a remote ledger into a LedgerError.
//
// Errors carrying a contract error code (see FormatError) keep their code and message.
// Context deadline/cancellation and anything else are reported as upstream errors.
func ParseError(err error) error {
	if err == nil {
		return nil
	}

	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return WrapUpstreamError(err, "ledger call timed out")
	}
	if errors.Is(err, context.Canceled) {
		return WrapUpstreamError(err, "ledger call cancelled")
	}

	if m := contractErrorPattern.FindStringSubmatch(err.Error()); m != nil {
		return &LedgerError{code: ErrorCode(m[1]), message: m[2]}
	}

	return WrapUpstreamError(err, "ledger call failed")
}
