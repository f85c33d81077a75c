// Package integration contains end-to-end tests for the credential server.
//
// The server is started in-process with the postgres ledger backend: each test gets an empty temporary
// database with the migrations applied, so ledger state and the transaction log are checked against the real schema.
// Requests and responses go through the encrypted envelope exactly as a client would send them.
//
// These tests assume the crypto, ledger and registry packages are working correctly (tested separately).
// If bugs are introduced in lower-level packages, there will be cascading failures here -
// fix the low-level problems first.
//
// Run with:
//
//	go test -tags=integration -v ./test/integration
package integration
