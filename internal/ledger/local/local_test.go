package local

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/credential-ledger/internal/identity"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger/contract"
)

const (
	gov        = "0x1111111111111111111111111111111111111111"
	university = "0x2222222222222222222222222222222222222222"
	hash1      = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
)

func newMemoryGateway(t *testing.T) (*Gateway, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend()
	gateway, err := NewGateway(context.Background(), backend, []string{gov}, time.Second)
	require.NoError(t, err)
	return gateway, backend
}

func TestGatewayWriteAndRead(t *testing.T) {
	gateway, backend := newMemoryGateway(t)
	client := ledger.NewClient(gateway)
	ctx := context.Background()

	record, err := client.GetAuthLevel(ctx, gov)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleGov, record.Role)

	receipt, err := client.RegisterIdentity(ctx, university, identity.RoleUniversity, "Acme University")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Nonce)
	assert.Equal(t, ledger.MethodRegisterIdentity, receipt.Method)
	assert.NotEmpty(t, receipt.TxID)

	receipt, err = client.RequestAuthorization(ctx, university, "Acme University")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), receipt.Nonce, "nonces increase per signer")

	receipt, err = client.ApproveRequest(ctx, gov, "Acme University")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Nonce, "each signer has its own sequence")

	request, err := client.GetRequestByRequester(ctx, university)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, request.Status)

	txs := backend.Transactions()
	require.Len(t, txs, 3)
	var args []string
	require.NoError(t, json.Unmarshal(txs[0].Args, &args))
	assert.Equal(t, []string{"University", "Acme University"}, args)
}

func TestGatewayFailedWriteLeavesNoTrace(t *testing.T) {
	gateway, backend := newMemoryGateway(t)
	client := ledger.NewClient(gateway)
	ctx := context.Background()

	// university is not registered, the write is rejected by the contract
	_, err := client.IssueCredential(ctx, university, gov, hash1, "cid")
	assert.Equal(t, ledger.ErrCodeForbidden, ledger.CodeOf(err))
	assert.Empty(t, backend.Transactions())

	// the failed write did not consume a nonce
	receipt, err := client.RegisterIdentity(ctx, university, identity.RoleUniversity, "Acme University")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Nonce)
}

func TestGatewayRejectsWrongMethodKind(t *testing.T) {
	gateway, _ := newMemoryGateway(t)
	ctx := context.Background()

	_, err := gateway.Read(ctx, ledger.MethodIssueCredential, university, hash1, "cid")
	assert.Equal(t, ledger.ErrCodeInvalid, ledger.CodeOf(err))

	_, err = gateway.Write(ctx, ledger.MethodVerifyCredential, gov, hash1)
	assert.Equal(t, ledger.ErrCodeInvalid, ledger.CodeOf(err))
}

func TestGatewayCancelledContext(t *testing.T) {
	gateway, _ := newMemoryGateway(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gateway.Read(ctx, ledger.MethodGetAllRequests)
	assert.Equal(t, ledger.ErrCodeUpstream, ledger.CodeOf(err))

	_, err = gateway.Write(ctx, ledger.MethodRegisterIdentity, university, "University", "Acme University")
	assert.Equal(t, ledger.ErrCodeUpstream, ledger.CodeOf(err))
}

func TestGatewayConcurrentWritesAreSerialised(t *testing.T) {
	gateway, backend := newMemoryGateway(t)
	client := ledger.NewClient(gateway)
	ctx := context.Background()

	_, err := client.RegisterIdentity(ctx, university, identity.RoleUniversity, "Acme University")
	require.NoError(t, err)

	// many concurrent attempts to file the same request: exactly one succeeds
	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.RequestAuthorization(ctx, university, "Acme University")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case ledger.CodeOf(err) == ledger.ErrCodeConflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)
	assert.Len(t, backend.Transactions(), 2)
}

func TestMemoryStateReadOnlyView(t *testing.T) {
	backend := NewMemoryBackend()
	err := backend.View(context.Background(), func(state contract.State) error {
		return state.PutState("k", []byte("v"))
	})
	assert.ErrorIs(t, err, errReadOnly)
}
