// keyring.go derives the symmetric keys used for envelopes and session tokens from configured secrets.
//
// Each secret is expanded to a 256 bit key with HKDF-SHA256. The info string binds the key to its purpose,
// so the same secret never produces the same key for envelopes and tokens.
//
// The current key is used to encrypt/sign. Previous keys are only used to decrypt/verify, which allows
// secrets to be rotated without invalidating in-flight sessions.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// KeyPurpose scopes a derived key to one use.
type KeyPurpose string

const (
	PurposeEnvelope KeyPurpose = "envelope"
	PurposeSession  KeyPurpose = "session"
)

// keySize is the size of the derived keys (A256GCM and HS256)
const keySize = 32

// Key is a derived symmetric key and its key id (a short fingerprint, safe to log).
type Key struct {
	ID     string
	Secret []byte
}

// Keyring holds the current key and any previous keys for one purpose.
type Keyring struct {
	purpose  KeyPurpose
	current  Key
	previous []Key
}

// NewKeyring derives the keys for purpose from the current secret and the previous secrets.
// Empty previous secrets are ignored.
func NewKeyring(purpose KeyPurpose, currentSecret string, previousSecrets []string) (*Keyring, error) {
	if purpose == "" {
		return nil, NewKeyManagementError("key purpose is required")
	}
	if currentSecret == "" {
		return nil, NewKeyManagementError("a current secret is required")
	}

	current, err := deriveKey(purpose, currentSecret)
	if err != nil {
		return nil, err
	}

	k := &Keyring{purpose: purpose, current: current}
	for _, s := range previousSecrets {
		if strings.TrimSpace(s) == "" {
			continue
		}
		key, err := deriveKey(purpose, s)
		if err != nil {
			return nil, err
		}
		k.previous = append(k.previous, key)
	}

	return k, nil
}

// Purpose returns the purpose the keys were derived for.
func (k *Keyring) Purpose() KeyPurpose { return k.purpose }

// Current returns the key used for encryption and signing.
func (k *Keyring) Current() Key { return k.current }

// All returns the current key followed by the previous keys, in the order they should be tried.
func (k *Keyring) All() []Key {
	keys := make([]Key, 0, len(k.previous)+1)
	keys = append(keys, k.current)
	return append(keys, k.previous...)
}

func deriveKey(purpose KeyPurpose, secret string) (Key, error) {
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte("credential-ledger/"+string(purpose)))

	secretKey := make([]byte, keySize)
	if _, err := io.ReadFull(reader, secretKey); err != nil {
		return Key{}, WrapKeyManagementError(err, "failed to derive key")
	}

	fingerprint := sha256.Sum256(secretKey)
	return Key{
		ID:     string(purpose) + "-" + hex.EncodeToString(fingerprint[:4]),
		Secret: secretKey,
	}, nil
}
