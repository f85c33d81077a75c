// Package handlers implements the credential ledger API endpoints.
//
// Request bodies reach the handlers already decrypted (middleware.DecryptBody) and the caller's session is
// taken from the request context (middleware.Authenticate). Responses and errors are sent encrypted with
// api.Responder. The role checks themselves are done by the registry package.
//
// dev.go holds the development-only endpoints, registered only when ENVIRONMENT=dev.
package handlers
