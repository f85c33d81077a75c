package handlers

// auth.go implements POST /login and POST /register

import (
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/identity"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
	"github.com/information-sharing-networks/credential-ledger/internal/registry"
)

type AuthHandler struct {
	workflow  *registry.AuthorizationWorkflow
	responder *api.Responder
}

func NewAuthHandler(workflow *registry.AuthorizationWorkflow, responder *api.Responder) *AuthHandler {
	return &AuthHandler{workflow: workflow, responder: responder}
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Issues a session token for an identity registered on the ledger. The token carries the role the
//	@Description	ledger holds for the identity and is valid for SESSION_TOKEN_TTL (24 hours by default).
//	@Description
//	@Description	The request and response bodies are encrypted envelopes (`{"content": "<jwe>"}`).
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		api.LoginRequest	true	"Identity to log in"
//	@Success	200		{object}	api.LoginResponse	"Session token"
//	@Failure	400		{object}	api.ErrorResponse	"Invalid request"
//	@Failure	403		{object}	api.ErrorResponse	"Identity is not registered"
//	@Failure	502		{object}	api.ErrorResponse	"Ledger unavailable"
//	@Router		/login [post]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decodeRequest(r, &req); err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	address := req.Address()
	if address == "" {
		h.responder.RespondWithError(w, r, api.NewValidationError("identity is required"))
		return
	}

	result, err := h.workflow.Login(r.Context(), address)
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	logger.ContextWithLogAttrs(r.Context(),
		slog.String("identity", address),
		slog.String("role", string(result.Role)),
	)

	h.responder.RespondEncrypted(w, r, http.StatusOK, api.LoginResponse{
		Token:     result.Token,
		Role:      string(result.Role),
		ExpiresAt: result.ExpiresAt,
		Status:    true,
	})
}

// HandleRegister godoc
//
//	@Summary		Register an identity
//	@Description	Creates a new identity (address and private key) with the role Student or University and
//	@Description	records it on the ledger. For a university a Pending authorization request is filed under the
//	@Description	institution name; a Gov identity must approve it before the university can issue credentials.
//	@Description
//	@Description	The private key is returned once and is not kept by the server.
//	@Description
//	@Description	An institution name with a Pending or Approved request is a conflict. A rejected institution
//	@Description	can apply again.
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		api.RegisterRequest		true	"Role and name"
//	@Success	201		{object}	api.RegisterResponse	"Registered"
//	@Failure	400		{object}	api.ErrorResponse		"Invalid role or name"
//	@Failure	409		{object}	api.ErrorResponse		"Institution already has an open or approved request"
//	@Failure	502		{object}	api.ErrorResponse		"Ledger unavailable"
//	@Router		/register [post]
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := decodeRequest(r, &req); err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	role, err := identity.ParseRole(req.Role)
	if err != nil {
		h.responder.RespondWithError(w, r, api.WrapValidationError(err, "role must be Student or University"))
		return
	}

	registration, err := h.workflow.Register(r.Context(), role, req.DisplayName())
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	logger.ContextWithLogAttrs(r.Context(),
		slog.String("identity", registration.Account.Address),
		slog.String("role", string(registration.Role)),
	)

	h.responder.RespondEncrypted(w, r, http.StatusCreated, api.RegisterResponse{
		Account: registration.Account,
		Role:    string(registration.Role),
		Name:    registration.Name,
		Receipt: registration.Request,
		Status:  true,
	})
}
