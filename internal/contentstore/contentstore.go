// Package contentstore uploads credential files to a content-addressable store.
//
// Store returns the content id the ledger records next to the credential hash. Two stores are provided:
// IPFSStore (a kubo node's HTTP RPC API, the id is the CID) and SQLiteStore (a local database for
// development and single node deployments, the id is the sha256 of the content).
package contentstore

import (
	"context"
	"errors"
)

// ErrEmptyContent is returned when asked to store zero bytes.
var ErrEmptyContent = errors.New("content is empty")

// Store is a content-addressable store. Storing the same bytes twice returns the same id.
type Store interface {
	Store(ctx context.Context, content []byte) (string, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Locator is implemented by stores whose content can be fetched over HTTP.
type Locator interface {
	URL(contentID string) string
}

// ContentURL returns the public URL of a stored content id, if the store (or the store it wraps) has one.
func ContentURL(s Store, contentID string) (string, bool) {
	for s != nil {
		if l, ok := s.(Locator); ok {
			return l.URL(contentID), true
		}
		w, ok := s.(interface{ Unwrap() Store })
		if !ok {
			break
		}
		s = w.Unwrap()
	}
	return "", false
}
