package handlers

// dev.go implements the development endpoints. They are unauthenticated and use plain JSON.

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/contentstore"
	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
	"github.com/information-sharing-networks/credential-ledger/internal/registry"
)

type DevHandler struct {
	workflow    *registry.AuthorizationWorkflow
	store       contentstore.Store
	maxFileSize int64
}

func NewDevHandler(workflow *registry.AuthorizationWorkflow, store contentstore.Store, maxFileSize int64) *DevHandler {
	return &DevHandler{workflow: workflow, store: store, maxFileSize: maxFileSize}
}

// HandlePendingRequests godoc
//
//	@Summary		List pending requests (dev only)
//	@Description	Unauthenticated list of the Pending authorization requests. Only registered when ENVIRONMENT=dev.
//	@Tags		Development
//	@Produce	json
//	@Success	200	{object}	api.RequestsResponse	"Pending requests"
//	@Failure	502	{object}	api.ErrorResponse		"Ledger unavailable"
//	@Router		/dev/requests [get]
func (h *DevHandler) HandlePendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.workflow.ListPendingRequests(r.Context())
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	if requests == nil {
		requests = []ledger.AuthorizationRequest{}
	}
	api.RespondWithJSONPayload(w, http.StatusOK, api.RequestsResponse{Requests: requests, Status: true})
}

// HandleUpload godoc
//
//	@Summary		Upload a file to the content store (dev only)
//	@Description	Stores a base64 encoded file and returns its content id, without touching the ledger.
//	@Description	Only registered when ENVIRONMENT=dev.
//	@Tags		Development
//	@Accept		json
//	@Produce	json
//	@Param		request	body		api.UploadRequest	true	"File"
//	@Success	201		{object}	api.UploadResponse	"Stored"
//	@Failure	400		{object}	api.ErrorResponse	"Invalid request"
//	@Failure	502		{object}	api.ErrorResponse	"Content store unavailable"
//	@Router		/dev/upload [post]
func (h *DevHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	var req api.UploadRequest
	if err := decodeRequest(r, &req); err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		api.RespondWithErrorResponse(w, r, api.NewValidationError("fileName is required"))
		return
	}

	content, err := crypto.DecodeBase64Content(req.Base64Data, h.maxFileSize)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	contentID, err := h.store.Store(r.Context(), content)
	if err != nil {
		api.RespondWithErrorResponse(w, r, registry.WrapUpstreamError(err, "failed to upload file"))
		return
	}

	logger.ContextWithLogAttrs(r.Context(),
		slog.String("file_name", fileName),
		slog.String("content_id", contentID),
	)

	link, _ := contentstore.ContentURL(h.store, contentID)
	api.RespondWithJSONPayload(w, http.StatusCreated, api.UploadResponse{
		FileName:  fileName,
		ContentID: contentID,
		URL:       link,
		Status:    true,
	})
}
