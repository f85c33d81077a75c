// Package services builds the external collaborators of the credential server from configuration.
//
// The ledger gateway (memory, postgres or fabric) and the content store (sqlite or ipfs) are interfaces with
// several implementations. NewServices picks one of each, wraps them with metrics and returns them ready to be
// injected into the registry services.
package services
