package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
)

// DecryptBody replaces an envelope body ({"content": "<jwe>"}) with the decrypted JSON before the handler runs.
//
// Empty bodies are passed through. Bodies that are not envelopes are passed through unchanged unless
// requireEncrypted is set, in which case they are rejected. A body that is an envelope but cannot be decrypted
// is rejected with an envelope error (400) and the handler is not called.
func DecryptBody(codec *crypto.EnvelopeCodec, responder *api.Responder, requireEncrypted bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			_ = r.Body.Close()
			if err != nil {
				var maxBytesErr *http.MaxBytesError
				if errors.As(err, &maxBytesErr) {
					responder.RespondWithError(w, r, api.NewRequestTooLargeError(
						fmt.Sprintf("request body exceeds maximum allowed size (%d bytes)", maxBytesErr.Limit)))
					return
				}
				responder.RespondWithError(w, r, api.WrapEnvelopeError(err, "failed to read request body"))
				return
			}

			if len(bytes.TrimSpace(body)) == 0 {
				setBody(r, nil)
				next.ServeHTTP(w, r)
				return
			}

			envelope, ok := crypto.ParseEnvelope(body)
			if !ok {
				if requireEncrypted {
					responder.RespondWithError(w, r, api.NewEnvelopeError("request body must be an encrypted envelope"))
					return
				}
				setBody(r, body)
				next.ServeHTTP(w, r)
				return
			}

			plaintext, err := codec.Decrypt(envelope)
			if err != nil {
				responder.RespondWithError(w, r, err)
				return
			}

			logger.ContextWithLogAttrs(r.Context(), slog.Bool("encrypted_body", true))
			setBody(r, plaintext)
			next.ServeHTTP(w, r)
		})
	}
}

func setBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
}
