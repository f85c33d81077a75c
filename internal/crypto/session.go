// session.go issues and verifies the signed session tokens returned by login.
//
// Tokens are compact JWS (HS256) over a small JSON claims set. They are stateless: there is no
// refresh and no revocation list, a token is valid until it expires or the signing secret is rotated out.
package crypto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"

	"github.com/information-sharing-networks/credential-ledger/internal/identity"
)

// SessionClaims is the signed payload of a session token
type SessionClaims struct {
	Subject   string `json:"sub"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	TokenID   string `json:"jti"`
}

// Session is the verified content of a session token.
type Session struct {
	Identity  string
	Role      identity.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenID   string
}

// SessionTokens issues and verifies session tokens.
type SessionTokens struct {
	keys *Keyring
	ttl  time.Duration
	now  func() time.Time
}

// NewSessionTokens creates a token service. The keyring must have been created for PurposeSession.
func NewSessionTokens(keys *Keyring, ttl time.Duration) (*SessionTokens, error) {
	if keys == nil {
		return nil, NewKeyManagementError("session keyring is required")
	}
	if keys.Purpose() != PurposeSession {
		return nil, NewKeyManagementError("keyring was not derived for session tokens")
	}
	if ttl <= 0 {
		return nil, NewValidationError("session token ttl must be positive")
	}
	return &SessionTokens{keys: keys, ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the clock used to set and check expiry (tests).
func (s *SessionTokens) WithClock(now func() time.Time) *SessionTokens {
	s.now = now
	return s
}

// TTL returns the validity window of issued tokens.
func (s *SessionTokens) TTL() time.Duration { return s.ttl }

// Issue returns a signed token for the identity and role, valid for the configured ttl.
func (s *SessionTokens) Issue(subject string, role identity.Role) (string, error) {
	if subject == "" {
		return "", NewValidationError("identity is required")
	}
	if !role.Valid() {
		return "", NewValidationError("invalid role: " + string(role))
	}

	issuedAt := s.now().UTC()
	claims := SessionClaims{
		Subject:   subject,
		Role:      string(role),
		IssuedAt:  issuedAt.Unix(),
		ExpiresAt: issuedAt.Add(s.ttl).Unix(),
		TokenID:   uuid.NewString(),
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", WrapInternalError(err, "failed to marshal claims")
	}

	token, err := jws.Sign(payload, jws.WithKey(jwa.HS256(), s.keys.Current().Secret))
	if err != nil {
		return "", WrapInternalError(err, "failed to sign session token")
	}

	return string(token), nil
}

// Verify checks the token signature against the current and previous keys and returns the session.
//
// Returns an error with code ErrCodeTokenExpired when the token is correctly signed but expired,
// and ErrCodeTokenInvalid for any other problem.
func (s *SessionTokens) Verify(token string) (Session, error) {
	if token == "" {
		return Session{}, NewTokenInvalidError("token is empty")
	}

	var (
		payload []byte
		err     error
	)
	for _, key := range s.keys.All() {
		payload, err = jws.Verify([]byte(token), jws.WithKey(jwa.HS256(), key.Secret))
		if err == nil {
			break
		}
	}
	if err != nil {
		return Session{}, WrapTokenInvalidError(err, "token signature could not be verified")
	}

	var claims SessionClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Session{}, WrapTokenInvalidError(err, "token claims are malformed")
	}
	if claims.Subject == "" {
		return Session{}, NewTokenInvalidError("token has no subject")
	}
	role := identity.Role(claims.Role)
	if !role.Valid() {
		return Session{}, NewTokenInvalidError("token has an unknown role")
	}
	if claims.ExpiresAt <= claims.IssuedAt {
		return Session{}, NewTokenInvalidError("token expiry is before its issue time")
	}

	expiresAt := time.Unix(claims.ExpiresAt, 0).UTC()
	if !s.now().Before(expiresAt) {
		return Session{}, NewTokenExpiredError("token expired at " + expiresAt.Format(time.RFC3339))
	}

	return Session{
		Identity:  claims.Subject,
		Role:      role,
		IssuedAt:  time.Unix(claims.IssuedAt, 0).UTC(),
		ExpiresAt: expiresAt,
		TokenID:   claims.TokenID,
	}, nil
}
