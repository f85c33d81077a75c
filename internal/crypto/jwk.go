// JWK export of the shared secrets
//
// The envelope and session secrets are shared with the client applications. keygen writes them as a
// JWK set of "oct" keys so they can be distributed in a standard format (RFC 7517).
// The key material ("k") is the secret exactly as configured in ENVELOPE_SECRET / SESSION_SECRET.

package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// minGeneratedSecretBytes is the amount of randomness in generated secrets
const minGeneratedSecretBytes = 32

// GenerateSecret returns a random secret suitable for ENVELOPE_SECRET or SESSION_SECRET.
func GenerateSecret() (string, error) {
	buf := make([]byte, minGeneratedSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", WrapKeyManagementError(err, "failed to generate secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SecretToJWK converts a configured secret to an oct JWK.
// Envelope secrets are tagged alg=dir/use=enc, session secrets alg=HS256/use=sig.
// The key id is the fingerprint of the derived key (see Keyring), so it matches what the server logs.
func SecretToJWK(purpose KeyPurpose, secret string) (jwk.Key, error) {
	if secret == "" {
		return nil, NewKeyManagementError("secret is required")
	}

	derived, err := deriveKey(purpose, secret)
	if err != nil {
		return nil, err
	}

	key, err := jwk.Import([]byte(secret))
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to create JWK from secret")
	}

	if err := key.Set(jwk.KeyIDKey, derived.ID); err != nil {
		return nil, WrapKeyManagementError(err, "failed to set key ID")
	}

	switch purpose {
	case PurposeEnvelope:
		if err := key.Set(jwk.AlgorithmKey, jwa.DIRECT()); err != nil {
			return nil, WrapKeyManagementError(err, "failed to set algorithm")
		}
		if err := key.Set(jwk.KeyUsageKey, jwk.ForEncryption); err != nil {
			return nil, WrapKeyManagementError(err, "failed to set key usage")
		}
	case PurposeSession:
		if err := key.Set(jwk.AlgorithmKey, jwa.HS256()); err != nil {
			return nil, WrapKeyManagementError(err, "failed to set algorithm")
		}
		if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
			return nil, WrapKeyManagementError(err, "failed to set key usage")
		}
	default:
		return nil, NewKeyManagementError(fmt.Sprintf("unknown key purpose %q", purpose))
	}

	return key, nil
}

// SaveSecretsToJWKSetFile writes the keys to a JWK set file.
// note the keys are not encrypted
//
// Parameters:
//   - baseDir: The base directory to scope file access (e.g., "./keys")
//   - filename: The filename within the base directory (e.g., "secrets.jwks")
func SaveSecretsToJWKSetFile(keys []jwk.Key, baseDir, filename string) error {
	jwkSet := jwk.NewSet()
	for _, key := range keys {
		if err := jwkSet.AddKey(key); err != nil {
			return WrapKeyManagementError(err, "failed to add key to set")
		}
	}

	jsonBytes, err := json.MarshalIndent(jwkSet, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JWK set: %w", err)
	}

	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return fmt.Errorf("failed to open root directory %s: %w", baseDir, err)
	}
	defer root.Close()

	if err := root.WriteFile(filename, jsonBytes, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// LoadSecretFromJWKSetFile returns the secret of the key with the given purpose from a JWK set file
// written by SaveSecretsToJWKSetFile.
func LoadSecretFromJWKSetFile(path string, purpose KeyPurpose) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read JWK set file: %w", err)
	}

	set, err := jwk.Parse(data)
	if err != nil {
		return "", WrapKeyManagementError(err, "failed to parse JWK set")
	}

	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		kid, ok := key.KeyID()
		if !ok || len(kid) <= len(purpose) || kid[:len(purpose)+1] != string(purpose)+"-" {
			continue
		}
		var raw []byte
		if err := jwk.Export(key, &raw); err != nil {
			return "", WrapKeyManagementError(err, "failed to export secret")
		}
		return string(raw), nil
	}

	return "", NewKeyManagementError(fmt.Sprintf("no %s key found in %s", purpose, path))
}
