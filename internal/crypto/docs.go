// crypto package provides the symmetric cryptography used by the credential ledger gateway:
// encrypted request/response envelopes, signed session tokens, the keyring they share and
// the SHA-256 helpers used for credential files.
package crypto
