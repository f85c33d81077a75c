package handlers

// credentials.go implements the credential lifecycle endpoints

import (
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
	"github.com/information-sharing-networks/credential-ledger/internal/registry"
)

type CredentialsHandler struct {
	lifecycle   *registry.CredentialLifecycle
	responder   *api.Responder
	maxFileSize int64
}

func NewCredentialsHandler(lifecycle *registry.CredentialLifecycle, responder *api.Responder, maxFileSize int64) *CredentialsHandler {
	return &CredentialsHandler{lifecycle: lifecycle, responder: responder, maxFileSize: maxFileSize}
}

// HandleIssueCredential godoc
//
//	@Summary		Issue a credential
//	@Description	Uploads the credential file to the content store and records the credential on the ledger,
//	@Description	signed by the calling university. The university must have an Approved authorization request.
//	@Description
//	@Description	`student` is the holder's address or student username. `credentialFile` is base64 or a
//	@Description	`data:<mime>;base64,` URL. The ledger is written only after the upload succeeded.
//	@Description
//	@Description	The endpoint accepts GET (with a body) for compatibility with existing clients, and POST.
//	@Tags		Credentials
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		api.IssueCredentialRequest	true	"Credential to issue"
//	@Success	201		{object}	api.IssueCredentialResponse	"Issued"
//	@Failure	400		{object}	api.ErrorResponse			"Invalid request"
//	@Failure	403		{object}	api.ErrorResponse			"Not an approved university"
//	@Failure	404		{object}	api.ErrorResponse			"Student not registered"
//	@Failure	409		{object}	api.ErrorResponse			"Hash already issued"
//	@Failure	502		{object}	api.ErrorResponse			"Ledger or content store unavailable"
//	@Router		/issueCredentials [post]
//	@Router		/issueCredentials [get]
func (h *CredentialsHandler) HandleIssueCredential(w http.ResponseWriter, r *http.Request) {
	caller, err := callerSession(r)
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	var req api.IssueCredentialRequest
	if err := decodeRequest(r, &req); err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}
	if req.CredentialFile == "" {
		h.responder.RespondWithError(w, r, api.NewValidationError("credentialFile is required"))
		return
	}

	file, err := crypto.DecodeBase64Content(req.CredentialFile, h.maxFileSize)
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	result, err := h.lifecycle.Issue(r.Context(), caller, registry.IssueRequest{
		Student: req.Student,
		Hash:    req.CredentialHash,
		File:    file,
	})
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	logger.ContextWithLogAttrs(r.Context(),
		slog.String("credential_hash", result.Hash),
		slog.String("content_id", result.ContentID),
		slog.String("tx_id", result.Receipt.TxID),
	)

	h.responder.RespondEncrypted(w, r, http.StatusCreated, api.IssueCredentialResponse{
		Message:        "credential issued",
		CredentialHash: result.Hash,
		Holder:         result.Holder,
		ContentID:      result.ContentID,
		Receipt:        result.Receipt,
		Status:         true,
	})
}

// HandleRevokeCredential godoc
//
//	@Summary		Revoke a credential
//	@Description	Revokes a credential issued by the calling university. Revoking a hash that was never issued or
//	@Description	is already revoked does not write to the ledger: the response has status false and a message.
//	@Tags		Credentials
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		api.CredentialHashRequest		true	"Credential hash"
//	@Success	200		{object}	api.RevokeCredentialResponse	"Revoked, or nothing to revoke"
//	@Failure	400		{object}	api.ErrorResponse				"Invalid hash"
//	@Failure	403		{object}	api.ErrorResponse				"Not a university, or not the issuer"
//	@Failure	502		{object}	api.ErrorResponse				"Ledger unavailable"
//	@Router		/revokeCredential [post]
func (h *CredentialsHandler) HandleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	caller, err := callerSession(r)
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	var req api.CredentialHashRequest
	if err := decodeRequest(r, &req); err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	result, err := h.lifecycle.Revoke(r.Context(), caller, req.CredentialHash)
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	logger.ContextWithLogAttrs(r.Context(), slog.Bool("revoked", result.Revoked))

	h.responder.RespondEncrypted(w, r, http.StatusOK, api.RevokeCredentialResponse{
		Message: result.Message,
		Receipt: result.Receipt,
		Status:  result.Revoked,
	})
}

// HandleListCredentials godoc
//
//	@Summary		List the caller's credentials
//	@Description	Returns every credential held by the calling student, revoked ones included (valid=false).
//	@Tags		Credentials
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	api.CredentialsResponse	"Credentials"
//	@Failure	403	{object}	api.ErrorResponse		"Not a student"
//	@Failure	502	{object}	api.ErrorResponse		"Ledger unavailable"
//	@Router		/getAllCredentials [get]
func (h *CredentialsHandler) HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	caller, err := callerSession(r)
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	credentials, err := h.lifecycle.ListForHolder(r.Context(), caller)
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}
	if credentials == nil {
		credentials = []ledger.Credential{}
	}

	h.responder.RespondEncrypted(w, r, http.StatusOK, api.CredentialsResponse{Credentials: credentials, Status: true})
}

// HandleVerifyCredential godoc
//
//	@Summary		Verify a credential
//	@Description	Reports whether a hash is an issued, unrevoked credential. Unknown and revoked hashes are both
//	@Description	reported as not valid. The ledger record is included when the hash has been issued.
//	@Tags		Credentials
//	@Accept		json
//	@Produce	json
//	@Param		request	body		api.CredentialHashRequest		true	"Credential hash"
//	@Success	200		{object}	api.VerifyCredentialResponse	"Verification result"
//	@Failure	400		{object}	api.ErrorResponse				"Invalid hash"
//	@Failure	502		{object}	api.ErrorResponse				"Ledger unavailable"
//	@Router		/verifyCredential [post]
func (h *CredentialsHandler) HandleVerifyCredential(w http.ResponseWriter, r *http.Request) {
	var req api.CredentialHashRequest
	if err := decodeRequest(r, &req); err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	valid, err := h.lifecycle.Verify(r.Context(), req.CredentialHash)
	if err != nil {
		h.responder.RespondWithError(w, r, err)
		return
	}

	response := api.VerifyCredentialResponse{Valid: valid, Status: true}

	credential, err := h.lifecycle.Get(r.Context(), req.CredentialHash)
	switch {
	case err == nil:
		response.Credential = &credential
	case registry.CodeOf(err) != registry.ErrCodeNotFound:
		h.responder.RespondWithError(w, r, err)
		return
	}

	h.responder.RespondEncrypted(w, r, http.StatusOK, response)
}
