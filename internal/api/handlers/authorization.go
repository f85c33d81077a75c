package handlers

// authorization.go implements the Gov endpoints of the authorization workflow

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
	"github.com/information-sharing-networks/credential-ledger/internal/registry"
)

type AuthorizationHandler struct {
	workflow  *registry.AuthorizationWorkflow
	responder *api.Responder
}

func NewAuthorizationHandler(workflow *registry.AuthorizationWorkflow, responder *api.Responder) *AuthorizationHandler {
	return &AuthorizationHandler{workflow: workflow, responder: responder}
}

// HandleListRequests godoc
//
//	@Summary		List authorization requests
//	@Description	Returns the current authorization request of every institution.
//	@Tags		Authorization
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	api.RequestsResponse	"Requests"
//	@Failure	401	{object}	api.ErrorResponse		"Missing token"
//	@Failure	403	{object}	api.ErrorResponse		"Not a Gov identity"
//	@Failure	502	{object}	api.ErrorResponse		"Ledger unavailable"
//	@Router		/requests [get]
func (h *AuthorizationHandler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	caller, err := callerSession(r)
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	requests, err := h.workflow.ListRequests(r.Context(), caller)
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}
	if requests == nil {
		requests = []ledger.AuthorizationRequest{}
	}

	h.responder.RespondEncrypted(w, r, http.StatusOK, api.RequestsResponse{Requests: requests, Status: true})
}

// HandleApprove godoc
//
//	@Summary		Approve an authorization request
//	@Description	Moves the Pending request of an institution to Approved. The approved university can then issue
//	@Description	credentials.
//	@Tags		Authorization
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		api.DecisionRequest		true	"Institution"
//	@Success	200		{object}	api.DecisionResponse	"Approved"
//	@Failure	400		{object}	api.ErrorResponse		"Invalid request"
//	@Failure	403		{object}	api.ErrorResponse		"Not a Gov identity"
//	@Failure	404		{object}	api.ErrorResponse		"No request for the institution"
//	@Failure	409		{object}	api.ErrorResponse		"Request is not Pending"
//	@Router		/approve [post]
func (h *AuthorizationHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.workflow.Approve)
}

// HandleReject godoc
//
//	@Summary		Reject an authorization request
//	@Description	Moves the Pending request of an institution to Rejected. The institution may apply again.
//	@Tags		Authorization
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		api.DecisionRequest		true	"Institution"
//	@Success	200		{object}	api.DecisionResponse	"Rejected"
//	@Failure	400		{object}	api.ErrorResponse		"Invalid request"
//	@Failure	403		{object}	api.ErrorResponse		"Not a Gov identity"
//	@Failure	404		{object}	api.ErrorResponse		"No request for the institution"
//	@Failure	409		{object}	api.ErrorResponse		"Request is not Pending"
//	@Router		/reject [post]
func (h *AuthorizationHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.workflow.Reject)
}

type decideFunc func(ctx context.Context, caller crypto.Session, institutionName string) (ledger.Receipt, error)

func (h *AuthorizationHandler) handleDecision(w http.ResponseWriter, r *http.Request, decide decideFunc) {
	caller, err := callerSession(r)
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	var req api.DecisionRequest
	if err := decodeRequest(r, &req); err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	institution := req.Institution()
	if institution == "" {
		h.responder.RespondWithError(w, r, api.NewValidationError("institutionName is required"))
		return
	}

	receipt, err := decide(r.Context(), caller, institution)
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	logger.ContextWithLogAttrs(r.Context(),
		slog.String("institution", institution),
		slog.String("tx_id", receipt.TxID),
	)

	h.responder.RespondEncrypted(w, r, http.StatusOK, api.DecisionResponse{Receipt: receipt, Status: true})
}
