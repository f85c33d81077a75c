package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
)

type contextKey string

const sessionKey contextKey = "session"

// Authenticate verifies the bearer token in the Authorization header and stores the session in the request
// context.
//
// A missing token is rejected with 401 (unauthenticated). An invalid or expired token is rejected with 403
// (unauthorized); the two failure kinds are distinguished in the log.
func Authenticate(tokens *crypto.SessionTokens, responder *api.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				responder.RespondWithError(w, r, api.NewUnauthenticatedError("missing bearer token"))
				return
			}

			session, err := tokens.Verify(token)
			if err != nil {
				reqLogger := logger.ContextRequestLogger(r.Context())
				reqLogger.Info("session token rejected",
					slog.String("component", "Authenticate"),
					slog.String("kind", string(crypto.CodeOf(err))),
				)
				responder.RespondWithError(w, r, err)
				return
			}

			logger.ContextWithLogAttrs(r.Context(),
				slog.String("identity", session.Identity),
				slog.String("role", string(session.Role)),
			)
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// ContextWithSession returns a context carrying the session.
func ContextWithSession(ctx context.Context, session crypto.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the session stored by Authenticate.
func SessionFromContext(ctx context.Context) (crypto.Session, bool) {
	session, ok := ctx.Value(sessionKey).(crypto.Session)
	return session, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
