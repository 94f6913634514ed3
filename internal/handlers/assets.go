package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/go-link/api/internal/platform/auth"
	"github.com/go-link/api/internal/platform/httpx"
	"github.com/go-link/api/internal/services"
)

const maxAssetBodySize = 4 * 1024

// AssetHandlers mints short-lived signed URLs for media uploads and downloads.
type AssetHandlers struct {
	assets services.AssetService
}

// AssetHandlersDeps bundles collaborators for the /me/assets surface.
type AssetHandlersDeps struct {
	Assets services.AssetService
}

// NewAssetHandlers constructs the asset handlers. Authentication is applied by
// the enclosing /me group.
func NewAssetHandlers(deps AssetHandlersDeps) *AssetHandlers {
	return &AssetHandlers{assets: deps.Assets}
}

// Routes registers the asset endpoints on the provided router.
func (h *AssetHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/uploads", h.issueSignedUpload)
	r.Post("/downloads", h.issueSignedDownload)
}

func (h *AssetHandlers) issueSignedUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.assets == nil {
		httpx.WriteError(ctx, w, httpx.NewError("asset_service_unavailable", "asset service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxAssetBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req signedUploadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	response, err := h.assets.IssueSignedUpload(ctx, services.SignedUploadCommand{
		ActorUID:    identity.UID,
		IsAdmin:     identity.HasAnyRole(auth.RoleAdmin),
		Purpose:     req.Purpose,
		Collection:  req.Collection,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		writeAssetError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, signedAssetPayloadFrom(response))
}

func (h *AssetHandlers) issueSignedDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.assets == nil {
		httpx.WriteError(ctx, w, httpx.NewError("asset_service_unavailable", "asset service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxAssetBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req signedDownloadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	response, err := h.assets.IssueSignedDownload(ctx, services.SignedDownloadCommand{
		ActorUID:   identity.UID,
		OwnerUID:   req.OwnerUID,
		ObjectPath: req.ObjectPath,
	})
	if err != nil {
		writeAssetError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, signedAssetPayloadFrom(response))
}

func writeAssetError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAssetInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrAssetForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "not allowed for this object", http.StatusForbidden))
	case errors.Is(err, services.ErrAssetUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("asset_service_unavailable", "storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("asset_error", err.Error(), http.StatusInternalServerError))
	}
}

type signedUploadRequest struct {
	Purpose     string `json:"purpose"`
	Collection  string `json:"collection,omitempty"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

type signedDownloadRequest struct {
	OwnerUID   string `json:"owner_uid,omitempty"`
	ObjectPath string `json:"object_path"`
}

type signedAssetPayload struct {
	URL        string            `json:"url"`
	Method     string            `json:"method"`
	ObjectPath string            `json:"object_path"`
	ExpiresAt  string            `json:"expires_at,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

func signedAssetPayloadFrom(response services.SignedAssetResponse) signedAssetPayload {
	return signedAssetPayload{
		URL:        response.URL,
		Method:     response.Method,
		ObjectPath: response.ObjectPath,
		ExpiresAt:  formatTime(response.ExpiresAt),
		Headers:    response.Headers,
	}
}
