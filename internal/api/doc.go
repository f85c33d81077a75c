// Package api defines the HTTP error taxonomy of the credential server and the helpers handlers use to respond.
//
// Responses of routes that accept encrypted bodies or session tokens are envelope-wrapped:
//
//	{"content": "<compact JWE of the JSON payload>"}
//
// Errors use the same wrapping with the payload {"error": "...", "code": "...", "status": false}.
// MapErrorToResponse maps the structured errors of the lower packages (registry, ledger, crypto) to an HTTP
// status and a sanitised message. The full error is only logged server side.
package api
