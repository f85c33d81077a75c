package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/credential-ledger/internal/config"
	"github.com/information-sharing-networks/credential-ledger/internal/database"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
	"github.com/information-sharing-networks/credential-ledger/internal/server"
	"github.com/information-sharing-networks/credential-ledger/internal/services"
	"github.com/information-sharing-networks/credential-ledger/internal/version"
)

//	@title			credential-server
//	@description	credential-server is the gateway between web clients and the credential ledger. Universities
//	@description	apply to become credential issuers, a government authority approves them, approved universities
//	@description	issue credentials to students and anyone can verify a credential by its hash.
//	@description
//	@description	## Encrypted bodies
//	@description	Request and response bodies of the credential endpoints are encrypted envelopes:
//	@description	`{"content": "<compact JWE, alg=dir, enc=A256GCM>"}` using the shared ENVELOPE_SECRET.
//	@description	The request and response types documented below are the decrypted content.
//	@description	Unencrypted JSON bodies are accepted unless REQUIRE_ENCRYPTED_BODIES=true.
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded
//	@description	- `500` Internal server error
//	@description	- `502` The ledger or the content store is unavailable
//	@description
//	@description	Error bodies are `{"error": "...", "code": "...", "status": false}`.
//	@description
//	@description	## Authentication & Authorization
//	@description	POST /login returns a session token for an identity registered on the ledger. Send it as
//	@description	`Authorization: Bearer <token>`. A missing token is rejected with 401, an invalid or expired
//	@description	token with 403. Each endpoint requires a role (Gov, University or Student) carried by the token.
//	@description
//	@license.name	MIT

//	@servers.url			http://localhost:8080
//	@servers.description	Development server

//	@accept		json
//	@produce	json

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

//	@tag.name			Auth
//	@tag.description	Registration and login

//	@tag.name			Authorization
//	@tag.description	Gov approval of universities as credential issuers

//	@tag.name			Credentials
//	@tag.description	Issue, revoke, list and verify credentials

//	@tag.name			Common
//	@tag.description	Server API endpoints (health, readiness, version, metrics)

//	@tag.name			Development
//	@tag.description	Unauthenticated endpoints for local testing, only registered when ENVIRONMENT=dev.

func main() {
	cmd := &cobra.Command{
		Use:   "credential-server",
		Short: "Credential ledger gateway",
		Long:  `credential-server serves the credential ledger API: university authorization, credential issue, revocation and verification`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("LEDGER_BACKEND", cfg.LedgerBackend),
		slog.Int("GOV_IDENTITIES", len(cfg.GovIdentities)),
		slog.String("CONTENT_STORE_BACKEND", cfg.ContentStoreBackend),
		slog.Bool("REQUIRE_ENCRYPTED_BODIES", cfg.RequireEncryptedBodies),
		slog.Duration("SESSION_TOKEN_TTL", cfg.SessionTokenTTL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.LedgerBackend == "postgres" {
		pool, err = connectDatabase(ctx, cfg, appLogger)
		if err != nil {
			appLogger.Error("Database setup failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			pool.Close()
			appLogger.Info("database connection closed")
		}()
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := services.NewServices(ctx, cfg, pool, metrics)
	if err != nil {
		appLogger.Error("Failed to create ledger and content store clients", slog.String("error", err.Error()))
		os.Exit(1)
	}

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	server, err := server.NewServer(cfg, appLogger, svc, metrics)
	if err != nil {
		_ = svc.Close()
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer server.Shutdown()

	if err := server.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}

// connectDatabase opens the pool for the postgres ledger and applies the schema migrations.
func connectDatabase(ctx context.Context, cfg *config.ServerEnvironment, appLogger *slog.Logger) (*pgxpool.Pool, error) {
	dbCtx, dbCancel := context.WithTimeout(ctx, cfg.DatabasePingTimeout)
	defer dbCancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.DBMaxConnections
	poolConfig.MinConns = cfg.DBMinConnections
	poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.DBMaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.DBConnectTimeout

	pool, err := pgxpool.NewWithConfig(dbCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err = pool.Ping(dbCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database via pool: %w", err)
	}
	appLogger.Info("connected to PostgreSQL")

	if err := database.Migrate(dbCtx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	appLogger.Info("database migrations applied")

	return pool, nil
}
