package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/information-sharing-networks/credential-ledger/internal/config"
	"github.com/information-sharing-networks/credential-ledger/internal/contentstore"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger/fabric"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger/local"
)

// Services aggregates the external service integrations used by the credential server.
type Services struct {
	Ledger       ledger.Gateway
	ContentStore contentstore.Store
}

// NewServices creates the ledger gateway and content store selected by configuration.
// pool is only used when LEDGER_BACKEND=postgres and may be nil otherwise.
func NewServices(ctx context.Context, cfg *config.ServerEnvironment, pool *pgxpool.Pool, reg prometheus.Registerer) (*Services, error) {
	gateway, err := newLedgerGateway(ctx, cfg, pool)
	if err != nil {
		return nil, err
	}
	instrumentedGateway, err := ledger.Instrument(gateway, reg)
	if err != nil {
		gateway.Close()
		return nil, fmt.Errorf("failed to register ledger metrics: %w", err)
	}

	store, err := newContentStore(ctx, cfg)
	if err != nil {
		gateway.Close()
		return nil, err
	}
	instrumentedStore, err := contentstore.Instrument(store, reg)
	if err != nil {
		gateway.Close()
		store.Close()
		return nil, fmt.Errorf("failed to register content store metrics: %w", err)
	}

	return &Services{Ledger: instrumentedGateway, ContentStore: instrumentedStore}, nil
}

// Close releases the ledger and content store connections.
func (s *Services) Close() error {
	return errors.Join(s.Ledger.Close(), s.ContentStore.Close())
}

func newLedgerGateway(ctx context.Context, cfg *config.ServerEnvironment, pool *pgxpool.Pool) (ledger.Gateway, error) {
	switch cfg.LedgerBackend {
	case "memory":
		slog.Warn("using the in-memory ledger: state is lost when the server stops")
		return local.NewGateway(ctx, local.NewMemoryBackend(), cfg.GovIdentities, cfg.LedgerCallTimeout)
	case "postgres":
		if pool == nil {
			return nil, errors.New("postgres ledger requires a database pool")
		}
		return local.NewGateway(ctx, local.NewPostgresBackend(pool), cfg.GovIdentities, cfg.LedgerCallTimeout)
	case "fabric":
		return fabric.New(fabric.Config{
			ConfigPath: cfg.FabricConfigPath,
			Channel:    cfg.FabricChannel,
			Chaincode:  cfg.FabricChaincode,
			User:       cfg.FabricUser,
			Org:        cfg.FabricOrg,
			Timeout:    cfg.LedgerCallTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}

func newContentStore(ctx context.Context, cfg *config.ServerEnvironment) (contentstore.Store, error) {
	switch cfg.ContentStoreBackend {
	case "sqlite":
		return contentstore.OpenSQLiteStore(ctx, cfg.ContentStorePath)
	case "ipfs":
		return contentstore.NewIPFSStore(cfg.IPFSAPIURL, cfg.IPFSGatewayURL, cfg.ContentStoreTimeout)
	default:
		return nil, fmt.Errorf("unknown content store backend %q", cfg.ContentStoreBackend)
	}
}
