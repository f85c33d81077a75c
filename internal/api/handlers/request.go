package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/server/middleware"
)

// decodeRequest decodes the (decrypted) JSON request body into v.
func decodeRequest(r *http.Request, v any) error {
	if r.Body == nil {
		return api.NewValidationError("request body is required")
	}
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return api.NewValidationError("request body is required")
		}
		return api.WrapValidationError(err, "failed to decode request JSON")
	}
	return nil
}

// callerSession returns the session set by the authentication middleware.
// A missing session means the route was registered without it.
func callerSession(r *http.Request) (crypto.Session, error) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return crypto.Session{}, api.WrapInternalError(errors.New("no session in request context"), "route is not authenticated")
	}
	return session, nil
}
