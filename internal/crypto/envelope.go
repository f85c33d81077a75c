// envelope.go implements the encrypted envelope used in place of plain JSON request and response bodies.
//
// An envelope is a JSON object with a single "content" field holding a compact JWE:
//
//	{"content": "<protected header>..<iv>.<ciphertext>.<tag>"}
//
// The JWE uses direct encryption (alg=dir) with AES-256-GCM (enc=A256GCM) and a key derived from the shared
// envelope secret (see keyring.go). Every client holding the secret can read and forge envelopes:
// the envelope hides payloads in transit but is not an authentication mechanism.
package crypto

import (
	"bytes"
	"encoding/json"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwe"
)

// Envelope is the wire form of an encrypted payload.
type Envelope struct {
	Content string `json:"content" example:"eyJhbGciOiJkaXIiLCJlbmMiOiJBMjU2R0NNIn0..nF1xk3c9eUo0d2sU.Zm9v.Q2hlY2s"`
}

// EnvelopeCodec encrypts and decrypts envelopes with the keys in an envelope keyring.
type EnvelopeCodec struct {
	keys *Keyring
}

// NewEnvelopeCodec creates a codec. The keyring must have been created for PurposeEnvelope.
func NewEnvelopeCodec(keys *Keyring) (*EnvelopeCodec, error) {
	if keys == nil {
		return nil, NewKeyManagementError("envelope keyring is required")
	}
	if keys.Purpose() != PurposeEnvelope {
		return nil, NewKeyManagementError("keyring was not derived for envelopes")
	}
	return &EnvelopeCodec{keys: keys}, nil
}

// Encrypt serialises payload as JSON and encrypts it with the current key.
func (c *EnvelopeCodec) Encrypt(payload any) (Envelope, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, WrapValidationError(err, "failed to marshal payload")
	}
	return c.EncryptJSON(plaintext)
}

// EncryptJSON encrypts a payload that is already serialised JSON.
func (c *EnvelopeCodec) EncryptJSON(plaintext []byte) (Envelope, error) {
	if !json.Valid(plaintext) {
		return Envelope{}, NewValidationError("payload is not valid JSON")
	}

	compact, err := jwe.Encrypt(plaintext,
		jwe.WithKey(jwa.DIRECT(), c.keys.Current().Secret),
		jwe.WithContentEncryption(jwa.A256GCM()),
	)
	if err != nil {
		return Envelope{}, WrapInternalError(err, "failed to encrypt payload")
	}

	return Envelope{Content: string(compact)}, nil
}

// Decrypt returns the JSON payload of an envelope.
// The current key is tried first, then the previous keys.
func (c *EnvelopeCodec) Decrypt(envelope Envelope) (json.RawMessage, error) {
	if envelope.Content == "" {
		return nil, NewEnvelopeError("envelope content is empty")
	}

	var lastErr error
	for _, key := range c.keys.All() {
		plaintext, err := jwe.Decrypt([]byte(envelope.Content), jwe.WithKey(jwa.DIRECT(), key.Secret))
		if err != nil {
			lastErr = err
			continue
		}
		if !json.Valid(plaintext) {
			return nil, NewEnvelopeError("decrypted envelope does not contain JSON")
		}
		return json.RawMessage(plaintext), nil
	}

	return nil, WrapEnvelopeError(lastErr, "failed to decrypt envelope")
}

// ParseEnvelope reports whether body is an envelope: a JSON object whose only field is a string "content".
func ParseEnvelope(body []byte) (Envelope, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return Envelope{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Envelope{}, false
	}
	raw, ok := fields["content"]
	if !ok || len(fields) != 1 {
		return Envelope{}, false
	}

	var content string
	if err := json.Unmarshal(raw, &content); err != nil {
		return Envelope{}, false
	}
	return Envelope{Content: content}, true
}
