package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/platform/auth"
	"github.com/go-link/api/internal/platform/httpx"
	"github.com/go-link/api/internal/services"
)

const maxDirectoryBodySize = 32 * 1024

// DirectoryHandlers serves the master flower and wrapping catalogs. Reads are
// open to any authenticated owner so block editors can browse; writes require
// the admin role.
type DirectoryHandlers struct {
	authn     *auth.Authenticator
	directory services.DirectoryService
}

// DirectoryHandlersDeps bundles collaborators for the /directory surface.
type DirectoryHandlersDeps struct {
	Authenticator *auth.Authenticator
	Directory     services.DirectoryService
}

// NewDirectoryHandlers constructs the directory handlers.
func NewDirectoryHandlers(deps DirectoryHandlersDeps) *DirectoryHandlers {
	return &DirectoryHandlers{
		authn:     deps.Authenticator,
		directory: deps.Directory,
	}
}

// Routes wires the /directory endpoints onto the provided router.
func (h *DirectoryHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/{collection}", h.listItems)
	r.Post("/{collection}", h.upsertItem)
	r.Put("/{collection}/{itemID}", h.upsertItem)
	r.Delete("/{collection}/{itemID}", h.deleteItem)
}

func (h *DirectoryHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.directory == nil {
		writeHubUnavailable(ctx, w, "directory")
		return
	}
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}

	collection := domain.DirectoryCollection(chi.URLParam(r, "collection"))
	activeOnly := strings.EqualFold(r.URL.Query().Get("active_only"), "true")

	items, err := h.directory.ListItems(ctx, collection, activeOnly)
	if err != nil {
		writeDirectoryError(ctx, w, err)
		return
	}

	payloads := make([]directoryItemPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, directoryItemPayloadFrom(item))
	}
	writeJSONResponse(w, http.StatusOK, directoryListResponse{Items: payloads})
}

func (h *DirectoryHandlers) upsertItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.directory == nil {
		writeHubUnavailable(ctx, w, "directory")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if !identity.HasAnyRole(auth.RoleAdmin) {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "admin role required", http.StatusForbidden))
		return
	}

	body, err := readLimitedBody(r, maxDirectoryBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req directoryItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	item, err := h.directory.UpsertItem(ctx, services.DirectoryItemCommand{
		Collection: domain.DirectoryCollection(chi.URLParam(r, "collection")),
		Item: domain.DirectoryItem{
			ID:       chi.URLParam(r, "itemID"),
			Name:     strings.TrimSpace(req.Name),
			Price:    req.Price,
			ImageURL: strings.TrimSpace(req.ImageURL),
			IsActive: active,
		},
	})
	if err != nil {
		writeDirectoryError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, directoryItemPayloadFrom(item))
}

func (h *DirectoryHandlers) deleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.directory == nil {
		writeHubUnavailable(ctx, w, "directory")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if !identity.HasAnyRole(auth.RoleAdmin) {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "admin role required", http.StatusForbidden))
		return
	}

	collection := domain.DirectoryCollection(chi.URLParam(r, "collection"))
	if err := h.directory.DeleteItem(ctx, collection, chi.URLParam(r, "itemID")); err != nil {
		writeDirectoryError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeDirectoryError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDirectoryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrDirectoryNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("directory_item_not_found", "directory item not found", http.StatusNotFound))
	case errors.Is(err, services.ErrDirectoryUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("directory_service_unavailable", "storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("directory_error", err.Error(), http.StatusInternalServerError))
	}
}

type directoryListResponse struct {
	Items []directoryItemPayload `json:"items"`
}

type directoryItemRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	ImageURL string `json:"image_url"`
	IsActive *bool  `json:"is_active"`
}

type directoryItemPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	ImageURL string `json:"image_url,omitempty"`
	IsActive bool   `json:"is_active"`
}

func directoryItemPayloadFrom(item domain.DirectoryItem) directoryItemPayload {
	return directoryItemPayload{
		ID:       item.ID,
		Name:     item.Name,
		Price:    item.Price,
		ImageURL: item.ImageURL,
		IsActive: item.IsActive,
	}
}
