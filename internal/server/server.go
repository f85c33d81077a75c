package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/api/handlers"
	"github.com/information-sharing-networks/credential-ledger/internal/config"
	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
	"github.com/information-sharing-networks/credential-ledger/internal/registry"
	commonhandlers "github.com/information-sharing-networks/credential-ledger/internal/server/handlers"
	servermiddleware "github.com/information-sharing-networks/credential-ledger/internal/server/middleware"
	"github.com/information-sharing-networks/credential-ledger/internal/services"
	"github.com/information-sharing-networks/credential-ledger/internal/version"
)

type Server struct {
	config   *config.ServerEnvironment
	logger   *slog.Logger
	router   *chi.Mux
	services *services.Services
	metrics  *prometheus.Registry

	codec     *crypto.EnvelopeCodec
	tokens    *crypto.SessionTokens
	responder *api.Responder

	workflow  *registry.AuthorizationWorkflow
	lifecycle *registry.CredentialLifecycle
}

// NewServer creates the HTTP server. svc holds the ledger gateway and content store; metrics is the registry
// served on /metrics (the gateways register their collectors on it).
func NewServer(
	cfg *config.ServerEnvironment,
	logger *slog.Logger,
	svc *services.Services,
	metrics *prometheus.Registry,
) (*Server, error) {
	server := &Server{
		config:   cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		services: svc,
		metrics:  metrics,
	}

	if err := server.initCrypto(); err != nil {
		return nil, fmt.Errorf("failed to initialize envelope and session keys: %w", err)
	}

	server.workflow = registry.NewAuthorizationWorkflow(svc.Ledger, server.tokens)
	server.lifecycle = registry.NewCredentialLifecycle(svc.Ledger, svc.ContentStore, cfg.MaxCredentialFileSize)

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

// initCrypto derives the envelope and session keys from the configured secrets.
func (s *Server) initCrypto() error {
	envelopeKeys, err := crypto.NewKeyring(crypto.PurposeEnvelope, s.config.EnvelopeSecret, s.config.EnvelopePreviousSecrets)
	if err != nil {
		return err
	}
	s.codec, err = crypto.NewEnvelopeCodec(envelopeKeys)
	if err != nil {
		return err
	}

	sessionKeys, err := crypto.NewKeyring(crypto.PurposeSession, s.config.SessionSecret, s.config.SessionPreviousSecrets)
	if err != nil {
		return err
	}
	s.tokens, err = crypto.NewSessionTokens(sessionKeys, s.config.SessionTokenTTL)
	if err != nil {
		return err
	}

	s.responder = api.NewResponder(s.codec)

	s.logger.Info("envelope and session keys loaded",
		slog.Int("previous_envelope_keys", len(envelopeKeys.All())-1),
		slog.Int("previous_session_keys", len(sessionKeys.All())-1),
		slog.Bool("require_encrypted_bodies", s.config.RequireEncryptedBodies))
	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.config.RequestTimeout))
	s.router.Use(servermiddleware.SecurityHeaders(s.config.Environment))
	s.router.Use(servermiddleware.RequestSizeLimit(s.config.MaxRequestSize))
	s.router.Use(servermiddleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", commonhandlers.HandleHealth)
	s.router.Get("/ready", commonhandlers.HandleReadiness(map[string]commonhandlers.ReadinessCheck{
		"ledger":        s.services.Ledger.Ping,
		"content_store": s.services.ContentStore.Ping,
	}, s.config.LedgerCallTimeout))
	s.router.Get("/version", commonhandlers.HandleVersion(version.Get(), s.config.LedgerBackend))
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))

	// the API is served at the root and under /api (the path used by the web client)
	s.router.Group(s.apiRoutes)
	s.router.Route("/api", s.apiRoutes)

	if s.config.Environment == "dev" {
		s.logger.Warn("development routes enabled (/dev/requests, /dev/upload)")
		devHandler := handlers.NewDevHandler(s.workflow, s.services.ContentStore, s.config.MaxCredentialFileSize)
		s.router.Route("/dev", func(r chi.Router) {
			r.Get("/requests", devHandler.HandlePendingRequests)
			r.Post("/upload", devHandler.HandleUpload)
		})
	}
}

func (s *Server) apiRoutes(r chi.Router) {
	decrypt := servermiddleware.DecryptBody(s.codec, s.responder, s.config.RequireEncryptedBodies)
	authenticate := servermiddleware.Authenticate(s.tokens, s.responder)

	authHandler := handlers.NewAuthHandler(s.workflow, s.responder)
	authorizationHandler := handlers.NewAuthorizationHandler(s.workflow, s.responder)
	credentialsHandler := handlers.NewCredentialsHandler(s.lifecycle, s.responder, s.config.MaxCredentialFileSize)

	// decrypt only
	r.Group(func(r chi.Router) {
		r.Use(decrypt)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/verifyCredential", credentialsHandler.HandleVerifyCredential)
	})

	// token and decrypt
	r.Group(func(r chi.Router) {
		r.Use(decrypt)
		r.Use(authenticate)
		r.Post("/approve", authorizationHandler.HandleApprove)
		r.Post("/reject", authorizationHandler.HandleReject)
		r.Get("/issueCredentials", credentialsHandler.HandleIssueCredential)
		r.Post("/issueCredentials", credentialsHandler.HandleIssueCredential)
		r.Post("/revokeCredential", credentialsHandler.HandleRevokeCredential)

		// misspelled paths used by earlier web clients
		r.Get("/issueCredenctials", credentialsHandler.HandleIssueCredential)
		r.Post("/issueCredenctials", credentialsHandler.HandleIssueCredential)
	})

	// token only
	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/requests", authorizationHandler.HandleListRequests)
		r.Get("/getAllCredentials", credentialsHandler.HandleListCredentials)
		r.Get("/getAllCrentials", credentialsHandler.HandleListCredentials)
	})
}

// Router returns the HTTP handler (tests).
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr),
			slog.String("ledger_backend", s.config.LedgerBackend),
			slog.String("content_store_backend", s.config.ContentStoreBackend))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// Shutdown closes the ledger and content store connections.
func (s *Server) Shutdown() {
	if err := s.services.Close(); err != nil {
		s.logger.Warn("failed to close services", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("ledger and content store connections closed")
}
