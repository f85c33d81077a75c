// Package identity defines the actors of the credential ledger: keypair-derived addresses and their roles.
//
// Addresses use the Ethereum account format: the last 20 bytes of the Keccak-256 hash of the
// uncompressed secp256k1 public key, hex encoded with a 0x prefix and EIP-55 mixed-case checksum.
// Addresses are compared case-insensitively and stored in checksum form.
package identity

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

// Role is the authorization level of an identity.
type Role string

const (
	RoleStudent    Role = "Student"
	RoleUniversity Role = "University"
	RoleGov        Role = "Gov"
)

// ParseRole parses a role name (case-insensitive). "Government" is accepted as an alias of Gov.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student":
		return RoleStudent, nil
	case "university":
		return RoleUniversity, nil
	case "gov", "government":
		return RoleGov, nil
	default:
		return "", fmt.Errorf("unknown role %q (must be Student, University or Gov)", s)
	}
}

func (r Role) String() string { return string(r) }

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleUniversity || r == RoleGov
}

// Account is a newly generated identity and its private key.
type Account struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

// NewAccount generates a secp256k1 keypair and derives its address.
func NewAccount() (Account, error) {
	privateKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return Account{}, fmt.Errorf("failed to generate private key: %w", err)
	}

	return Account{
		Address:    AddressFromPublicKey(privateKey.PubKey()),
		PrivateKey: "0x" + hex.EncodeToString(privateKey.Serialize()),
	}, nil
}

// AccountFromPrivateKey restores the account for a hex encoded private key (0x prefix optional).
func AccountFromPrivateKey(privateKeyHex string) (Account, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return Account{}, fmt.Errorf("private key is not valid hex: %w", err)
	}
	if len(raw) != secp256k1.PrivKeyBytesLen {
		return Account{}, fmt.Errorf("private key must be %d bytes, got %d", secp256k1.PrivKeyBytesLen, len(raw))
	}

	privateKey := secp256k1.PrivKeyFromBytes(raw)
	return Account{
		Address:    AddressFromPublicKey(privateKey.PubKey()),
		PrivateKey: "0x" + hex.EncodeToString(raw),
	}, nil
}

// AddressFromPublicKey derives the checksummed address of a secp256k1 public key.
func AddressFromPublicKey(publicKey *secp256k1.PublicKey) string {
	// drop the 0x04 uncompressed point prefix before hashing
	uncompressed := publicKey.SerializeUncompressed()[1:]
	digest := keccak256(uncompressed)
	return checksum(hex.EncodeToString(digest[12:]))
}

// IsAddress reports whether s is a 0x-prefixed, 20 byte hex address (any case).
func IsAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

// NormalizeAddress validates s and returns it in EIP-55 checksum form.
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !IsAddress(s) {
		return "", fmt.Errorf("%q is not a valid address (expected 0x followed by 40 hex characters)", s)
	}
	return checksum(strings.ToLower(s[2:])), nil
}

// checksum applies EIP-55 mixed-case encoding to a lower case hex address without prefix
func checksum(lowerHex string) string {
	hash := hex.EncodeToString(keccak256([]byte(lowerHex)))

	out := make([]byte, 0, len(lowerHex)+2)
	out = append(out, '0', 'x')
	for i := 0; i < len(lowerHex); i++ {
		c := lowerHex[i]
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
