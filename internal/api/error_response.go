package api

// error_response.go maps the errors of the lower level packages to HTTP error responses

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
	"github.com/information-sharing-networks/credential-ledger/internal/registry"
)

// ErrorResponse is the payload of an error response.
type ErrorResponse struct {
	// Error is a sanitised description of the problem
	Error string `json:"error" example:"only Gov identities can approve authorization requests"`

	// Code is the API error code
	Code ErrorCode `json:"code" example:"forbidden"`

	// RequestID identifies the request in the server logs
	RequestID string `json:"requestId,omitempty"`

	// Status is always false
	Status bool `json:"status" example:"false"`

	statusCode int
}

// StatusCode is the HTTP status of the response.
func (e *ErrorResponse) StatusCode() int { return e.statusCode }

// messages returned instead of the error text for server side failures
const (
	upstreamMessage = "the ledger or content store is unavailable, try again later"
	internalMessage = "an internal error occurred"
)

// MapErrorToResponse maps api, registry, ledger or crypto errors to an error response.
//
// Client errors (4xx) carry the error's own message (never the wrapped cause). Server errors (5xx) carry a
// generic message. Unmapped error types are reported as internal errors and logged with a BUG prefix.
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	requestID := middleware.GetReqID(r.Context())

	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return newErrorResponse(apiErr.Code(), apiErr.Message(), requestID)
	}

	var registryErr *registry.RegistryError
	if errors.As(err, &registryErr) {
		return newErrorResponse(codeFromRegistry(registryErr.Code()), registryErr.Message(), requestID)
	}

	var ledgerErr *ledger.LedgerError
	if errors.As(err, &ledgerErr) {
		return newErrorResponse(codeFromLedger(ledgerErr.Code()), ledgerErr.Message(), requestID)
	}

	var cryptoErr *crypto.CryptoError
	if errors.As(err, &cryptoErr) {
		return newErrorResponse(codeFromCrypto(cryptoErr.Code()), cryptoErr.Message(), requestID)
	}

	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Error("BUG: Unmapped error type in MapErrorToResponse",
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("error", err.Error()),
		slog.String("request_id", requestID),
	)
	return newErrorResponse(ErrCodeInternal, internalMessage, requestID)
}

// HTTPStatus returns the HTTP status for an API error code.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeEnvelope, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeUnauthorized, ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newErrorResponse(code ErrorCode, message, requestID string) *ErrorResponse {
	switch code {
	case ErrCodeUpstream:
		message = upstreamMessage
	case ErrCodeInternal:
		message = internalMessage
	}
	return &ErrorResponse{
		Error:      message,
		Code:       code,
		RequestID:  requestID,
		Status:     false,
		statusCode: HTTPStatus(code),
	}
}

func codeFromRegistry(code registry.ErrorCode) ErrorCode {
	switch code {
	case registry.ErrCodeForbidden:
		return ErrCodeForbidden
	case registry.ErrCodeUnauthorized:
		return ErrCodeUnauthorized
	case registry.ErrCodeValidation:
		return ErrCodeValidation
	case registry.ErrCodeConflict:
		return ErrCodeConflict
	case registry.ErrCodeNotFound:
		return ErrCodeNotFound
	case registry.ErrCodeUpstream:
		return ErrCodeUpstream
	default:
		return ErrCodeInternal
	}
}

func codeFromLedger(code ledger.ErrorCode) ErrorCode {
	switch code {
	case ledger.ErrCodeNotFound:
		return ErrCodeNotFound
	case ledger.ErrCodeConflict:
		return ErrCodeConflict
	case ledger.ErrCodeForbidden:
		return ErrCodeForbidden
	case ledger.ErrCodeInvalid:
		return ErrCodeValidation
	case ledger.ErrCodeUpstream:
		return ErrCodeUpstream
	default:
		return ErrCodeInternal
	}
}

func codeFromCrypto(code crypto.ErrorCode) ErrorCode {
	switch code {
	case crypto.ErrCodeEnvelope:
		return ErrCodeEnvelope
	case crypto.ErrCodeTokenExpired, crypto.ErrCodeTokenInvalid:
		return ErrCodeUnauthorized
	case crypto.ErrCodeValidation:
		return ErrCodeValidation
	default:
		return ErrCodeInternal
	}
}
