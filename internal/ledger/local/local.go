// Package local runs the registry contract in-process.
//
// It is the ledger used for development and tests (memory backend) and for single-node deployments
// that want a durable, auditable ledger without running a Fabric network (postgres backend).
//
// Writes are serialised: each write runs the contract against a consistent view of the state, assigns the
// signer's next nonce and appends the transaction to the log, all-or-nothing. A failed write leaves no trace.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/identity"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger/contract"
)

// Transaction is an entry in the ledger transaction log.
type Transaction struct {
	TxID      string
	Signer    string
	Nonce     uint64
	Method    string
	Args      []byte // canonical JSON array of the call arguments
	Result    []byte
	Timestamp time.Time
}

// Backend stores the world state and the transaction log.
type Backend interface {
	// View runs fn against a read-only snapshot of the state.
	View(ctx context.Context, fn func(state contract.State) error) error

	// Update runs fn in a serialised write transaction. Changes made through state and log are committed
	// only if fn returns nil.
	Update(ctx context.Context, fn func(state contract.State, log TxLog) error) error

	Ping(ctx context.Context) error
	Close() error
}

// TxLog is the transaction log as seen from inside a write transaction.
type TxLog interface {
	// NextNonce returns the nonce the next transaction from signer will get.
	NextNonce(signer string) (uint64, error)

	Append(tx Transaction) error
}

// Gateway is a ledger.Gateway running the registry contract over a Backend.
type Gateway struct {
	backend  Backend
	registry *contract.Registry
	timeout  time.Duration
	now      func() time.Time
}

// NewGateway creates the gateway and writes the genesis state (government identities).
// timeout bounds every call, zero means no limit other than the caller's context.
func NewGateway(ctx context.Context, backend Backend, govIdentities []string, timeout time.Duration) (*Gateway, error) {
	g := &Gateway{
		backend:  backend,
		registry: contract.New(),
		timeout:  timeout,
		now:      time.Now,
	}

	err := backend.Update(ctx, func(state contract.State, _ TxLog) error {
		return contract.InitGenesis(state, govIdentities, g.now())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise genesis state: %w", err)
	}

	return g, nil
}

// WithClock replaces the clock used for transaction timestamps (tests).
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

func (g *Gateway) Read(ctx context.Context, method string, args ...string) ([]byte, error) {
	if !g.registry.IsQuery(method) {
		return nil, ledger.NewInvalidError(fmt.Sprintf("%s is not a query method", method))
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var result []byte
	err := g.backend.View(ctx, func(state contract.State) error {
		var err error
		result, err = g.registry.Query(state, method, args)
		return err
	})
	if err != nil {
		return nil, ledger.ParseError(err)
	}
	return result, nil
}

func (g *Gateway) Write(ctx context.Context, method string, signer string, args ...string) (ledger.Receipt, error) {
	if !g.registry.IsInvoke(method) {
		return ledger.Receipt{}, ledger.NewInvalidError(fmt.Sprintf("%s is not a transaction method", method))
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return ledger.Receipt{}, ledger.WrapInvalidError(err, "failed to marshal arguments")
	}
	canonicalArgs, err := crypto.CanonicalizeJSON(argsJSON)
	if err != nil {
		return ledger.Receipt{}, ledger.WrapInvalidError(err, "failed to canonicalize arguments")
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var receipt ledger.Receipt
	err = g.backend.Update(ctx, func(state contract.State, log TxLog) error {
		tx := contract.TxContext{
			Signer:    signer,
			Timestamp: g.now().UTC(),
			TxID:      uuid.NewString(),
		}

		result, err := g.registry.Invoke(state, tx, method, args)
		if err != nil {
			return err
		}

		// the contract has validated the signer, use its checksum form for the nonce sequence
		address, err := identity.NormalizeAddress(signer)
		if err != nil {
			return ledger.WrapInvalidError(err, "signer is not a valid address")
		}

		nonce, err := log.NextNonce(address)
		if err != nil {
			return fmt.Errorf("failed to assign nonce: %w", err)
		}

		entry := Transaction{
			TxID:      tx.TxID,
			Signer:    address,
			Nonce:     nonce,
			Method:    method,
			Args:      canonicalArgs,
			Result:    result,
			Timestamp: tx.Timestamp,
		}
		if err := log.Append(entry); err != nil {
			return fmt.Errorf("failed to append transaction: %w", err)
		}

		receipt = ledger.Receipt{
			TxID:      entry.TxID,
			Signer:    entry.Signer,
			Nonce:     entry.Nonce,
			Method:    method,
			Timestamp: entry.Timestamp,
		}
		return nil
	})
	if err != nil {
		return ledger.Receipt{}, ledger.ParseError(err)
	}

	return receipt, nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.backend.Ping(ctx); err != nil {
		return ledger.WrapUpstreamError(err, "ledger backend is not available")
	}
	return nil
}

func (g *Gateway) Close() error {
	return g.backend.Close()
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
