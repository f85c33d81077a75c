package api

// responses.go provides helper functions for sending HTTP responses from the handlers.

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
)

// Responder sends envelope-wrapped JSON responses.
type Responder struct {
	codec *crypto.EnvelopeCodec
}

func NewResponder(codec *crypto.EnvelopeCodec) *Responder {
	return &Responder{codec: codec}
}

// RespondEncrypted encrypts payload and sends {"content": "<jwe>"} with the given status code.
func (rs *Responder) RespondEncrypted(w http.ResponseWriter, r *http.Request, statusCode int, payload any) {
	envelope, err := rs.codec.Encrypt(payload)
	if err != nil {
		// nothing sensitive is sent in clear: report a plain internal error
		RespondWithErrorResponse(w, r, WrapInternalError(err, "failed to encrypt response"))
		return
	}
	RespondWithJSONPayload(w, statusCode, envelope)
}

// RespondWithError maps err to an error response and sends it encrypted.
//
// It logs the full error details server-side and sends a sanitized response to the client.
func (rs *Responder) RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse := MapErrorToResponse(err, r)
	logRequestError(r, err, errorResponse)
	rs.RespondEncrypted(w, r, errorResponse.StatusCode(), errorResponse)
}

// RespondWithErrorResponse maps err to an error response and sends it as plain JSON.
//
// Use this for failures detected before a request is routed to an encrypted endpoint (size and rate limits)
// and for the plain endpoints.
func RespondWithErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse := MapErrorToResponse(err, r)
	logRequestError(r, err, errorResponse)
	RespondWithJSONPayload(w, errorResponse.StatusCode(), errorResponse)
}

// RespondWithJSONPayload sends a JSON response with the given status code
func RespondWithJSONPayload(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// If encoding fails, log it but don't try to send another response
			// (headers are already written)
			slog.Error("Failed to encode JSON response",
				slog.String("error", err.Error()),
			)
		}
	}
}

func logRequestError(r *http.Request, err error, errorResponse *ErrorResponse) {
	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Warn("Request failed",
		slog.String("error", err.Error()),
		slog.Int("status_code", errorResponse.StatusCode()),
		slog.String("error_code", string(errorResponse.Code)),
		slog.String("request_id", errorResponse.RequestID),
	)
}
