// Package commonhandlers provides the infrastructure HTTP handlers (health, readiness, version).
//
// The credential API handlers are in internal/api/handlers.
package commonhandlers
