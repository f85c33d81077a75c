// Package registry orchestrates the credential registry: the authorization workflow that turns a university
// into an approved issuer, and the lifecycle of the credentials it issues.
//
// Operations receive the caller's verified session and check its role before touching the ledger. The
// ledger contract enforces the same rules inside each write, so a state change between the read and the write
// (e.g. an issuer revoked in the meantime) is still rejected; the registry reports the ledger's answer.
//
// Nothing is retried here. Ledger and content store failures are returned as upstream errors.
package registry
