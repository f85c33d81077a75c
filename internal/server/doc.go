// Package server provides the HTTP server of the credential ledger gateway.
//
// The server is configured through environment variables (see internal/config/config.go for details).
//
// Routes:
//   - infrastructure: /health, /ready, /version, /metrics
//   - the credential API (internal/api/handlers), served at the root and under /api
//   - development routes under /dev, only when ENVIRONMENT=dev
//
// Middleware is in internal/server/middleware.
package server
