// this file provides the SHA-256 helpers used for credential files.
//
// Credential hashes are computed by the issuing client and recorded on the ledger as 64 lower case hex characters.
// Credential files arrive base64 encoded, optionally as a data URL (data:application/pdf;base64,....).

package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Hash calculates the SHA-256 hash of data and returns it as lower case hex.
func Hash(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("data is empty")
	}
	hasher := sha256.New()

	if _, err := io.Copy(hasher, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to hash data: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifyHash verifies that data matches the expected SHA-256 hash (any case, optional 0x prefix).
func VerifyHash(data []byte, expectedHash string) bool {
	expected, err := NormalizeHash(expectedHash)
	if err != nil {
		return false
	}
	hash, _ := Hash(data)
	return hash == expected
}

// NormalizeHash validates a hex encoded SHA-256 hash and returns it in canonical form
// (64 lower case hex characters without prefix).
func NormalizeHash(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != sha256.Size*2 {
		return "", NewValidationError(fmt.Sprintf("hash must be %d hex characters, got %d", sha256.Size*2, len(s)))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", WrapValidationError(err, "hash is not valid hex")
	}
	return strings.ToLower(s), nil
}

// DecodeBase64Content decodes base64 content, stripping a data URL prefix if present.
// The decoded content must be non-empty and no larger than maxSize bytes.
func DecodeBase64Content(encoded string, maxSize int64) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 {
			return nil, NewValidationError("data URL has no content")
		}
		if !strings.HasSuffix(encoded[:comma], ";base64") {
			return nil, NewValidationError("data URL is not base64 encoded")
		}
		encoded = encoded[comma+1:]
	}

	if len(encoded) == 0 {
		return nil, NewValidationError("content is empty")
	}
	// base64 expands content by 4/3, reject before decoding
	if int64(base64.StdEncoding.DecodedLen(len(encoded))) > maxSize+2 {
		return nil, NewValidationError(fmt.Sprintf("content exceeds maximum size (%d bytes)", maxSize))
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, WrapValidationError(err, "invalid base64 content")
	}
	if len(decoded) == 0 {
		return nil, NewValidationError("content is empty")
	}
	if int64(len(decoded)) > maxSize {
		return nil, NewValidationError(fmt.Sprintf("content size (%d bytes) exceeds maximum (%d bytes)", len(decoded), maxSize))
	}

	return decoded, nil
}
