package contentstore

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	sqlite, err := OpenSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	store, err := Instrument(sqlite, reg)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Store(ctx, []byte("file"))
	require.NoError(t, err)
	_, err = store.Store(ctx, nil)
	require.Error(t, err)

	instrumented := store.(*instrumentedStore)
	assert.Equal(t, 1.0, testutil.ToFloat64(instrumented.calls.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(instrumented.calls.WithLabelValues("error")))

	_, err = Instrument(sqlite, reg)
	assert.Error(t, err)
}

func TestContentURL(t *testing.T) {
	ipfs, err := NewIPFSStore("http://127.0.0.1:5001", "https://gateway.example/ipfs", 0)
	require.NoError(t, err)

	store, err := Instrument(ipfs, prometheus.NewRegistry())
	require.NoError(t, err)

	link, ok := ContentURL(store, "bafkreiabc")
	assert.True(t, ok, "the wrapped IPFS store provides links")
	assert.Equal(t, "https://gateway.example/ipfs/bafkreiabc", link)

	sqlite, err := OpenSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	defer sqlite.Close()

	_, ok = ContentURL(sqlite, "abc")
	assert.False(t, ok)
}
