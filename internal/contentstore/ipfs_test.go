package contentstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCID = "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy"

func newIPFSNode(t *testing.T, handler http.HandlerFunc) *IPFSStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewIPFSStore(server.URL, "https://ipfs.example.org/ipfs/", time.Second)
	require.NoError(t, err)
	return store
}

func TestIPFSStore(t *testing.T) {
	var received []byte
	store := newIPFSNode(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v0/add" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "true", r.URL.Query().Get("pin"))

		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"Name":"credential","Hash":"`+testCID+`","Size":"24"}`)
	})

	id, err := store.Store(context.Background(), []byte("%PDF-1.7 diploma"))
	require.NoError(t, err)
	assert.Equal(t, testCID, id)
	assert.Equal(t, []byte("%PDF-1.7 diploma"), received)

	assert.Equal(t, "https://ipfs.example.org/ipfs/"+testCID, store.URL(id))
}

func TestIPFSStoreErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"rpc error", http.StatusInternalServerError, `{"Message":"blockstore full","Code":0,"Type":"error"}`, "blockstore full"},
		{"plain error", http.StatusBadGateway, `oops`, "IPFS returned 502"},
		{"no hash", http.StatusOK, `{"Name":"credential"}`, "no hash"},
		{"not json", http.StatusOK, `<html>`, "failed to decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newIPFSNode(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := store.Store(context.Background(), []byte("data"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIPFSStoreEmptyContent(t *testing.T) {
	called := false
	store := newIPFSNode(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := store.Store(context.Background(), []byte{})
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.False(t, called)
}

func TestIPFSStorePing(t *testing.T) {
	store := newIPFSNode(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/version" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = io.WriteString(w, `{"Version":"0.29.0"}`)
	})
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewIPFSStoreValidatesURL(t *testing.T) {
	for _, u := range []string{"", "127.0.0.1:5001", "ftp://node:5001", "http://"} {
		_, err := NewIPFSStore(u, "", time.Second)
		assert.Error(t, err, u)
	}
}
