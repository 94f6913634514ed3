package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/platform/httpx"
	"github.com/go-link/api/internal/services"
)

func (h *HubHandlers) listFlorists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.florists == nil {
		writeHubUnavailable(ctx, w, "florist")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	florists, err := h.florists.ListFlorists(ctx, identity.UID)
	if err != nil {
		writeHubError(ctx, w, err)
		return
	}

	items := make([]floristPayload, 0, len(florists))
	for _, florist := range florists {
		items = append(items, floristPayloadFrom(florist))
	}
	writeJSONResponse(w, http.StatusOK, floristListResponse{Florists: items})
}

func (h *HubHandlers) addFlorist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.florists == nil {
		writeHubUnavailable(ctx, w, "florist")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxHubBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req addFloristRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	florist, err := h.florists.AddFlorist(ctx, identity.UID, req.Name)
	if err != nil {
		writeHubError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, floristPayloadFrom(florist))
}

func (h *HubHandlers) removeFlorist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.florists == nil {
		writeHubUnavailable(ctx, w, "florist")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	if err := h.florists.RemoveFlorist(ctx, identity.UID, chi.URLParam(r, "floristID")); err != nil {
		writeHubError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HubHandlers) listInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeHubUnavailable(ctx, w, "inventory")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	items, err := h.inventory.ListItems(ctx, identity.UID)
	if err != nil {
		writeHubError(ctx, w, err)
		return
	}

	payloads := make([]inventoryItemPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, inventoryItemPayloadFrom(item))
	}
	writeJSONResponse(w, http.StatusOK, inventoryListResponse{Items: payloads})
}

func (h *HubHandlers) createInventoryItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeHubUnavailable(ctx, w, "inventory")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxHubBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req inventoryItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	item, err := h.inventory.CreateItem(ctx, services.InventoryItemCommand{
		OwnerUID: identity.UID,
		Item:     req.toDomain(""),
	})
	if err != nil {
		writeHubError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, inventoryItemPayloadFrom(item))
}

func (h *HubHandlers) updateInventoryItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeHubUnavailable(ctx, w, "inventory")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxHubBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req inventoryItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	item, err := h.inventory.UpdateItem(ctx, services.InventoryItemCommand{
		OwnerUID: identity.UID,
		Item:     req.toDomain(chi.URLParam(r, "itemID")),
	})
	if err != nil {
		writeHubError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, inventoryItemPayloadFrom(item))
}

func (h *HubHandlers) deleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeHubUnavailable(ctx, w, "inventory")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	if err := h.inventory.DeleteItem(ctx, identity.UID, chi.URLParam(r, "itemID")); err != nil {
		writeHubError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HubHandlers) adjustInventoryStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeHubUnavailable(ctx, w, "inventory")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxHubBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req adjustStockRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	item, err := h.inventory.AdjustStock(ctx, identity.UID, chi.URLParam(r, "itemID"), req.Delta)
	if err != nil {
		writeHubError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, inventoryItemPayloadFrom(item))
}

// Staff and stock wire payloads -----------------------------------------------

type addFloristRequest struct {
	Name string `json:"name"`
}

type floristListResponse struct {
	Florists []floristPayload `json:"florists"`
}

type floristPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

func floristPayloadFrom(florist domain.Florist) floristPayload {
	return floristPayload{
		ID:        florist.ID,
		Name:      florist.Name,
		CreatedAt: formatTime(florist.CreatedAt),
	}
}

type inventoryListResponse struct {
	Items []inventoryItemPayload `json:"items"`
}

type inventoryItemRequest struct {
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	CostPrice     int64  `json:"cost_price"`
	StockQuantity int    `json:"stock_quantity"`
	ImageURL      string `json:"image_url"`
}

func (req inventoryItemRequest) toDomain(id string) domain.InventoryItem {
	return domain.InventoryItem{
		ID:            id,
		Name:          strings.TrimSpace(req.Name),
		Price:         req.Price,
		CostPrice:     req.CostPrice,
		StockQuantity: req.StockQuantity,
		ImageURL:      strings.TrimSpace(req.ImageURL),
	}
}

type adjustStockRequest struct {
	Delta int `json:"delta"`
}

type inventoryItemPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	CostPrice     int64  `json:"cost_price"`
	StockQuantity int    `json:"stock_quantity"`
	ImageURL      string `json:"image_url,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

func inventoryItemPayloadFrom(item domain.InventoryItem) inventoryItemPayload {
	return inventoryItemPayload{
		ID:            item.ID,
		Name:          item.Name,
		Price:         item.Price,
		CostPrice:     item.CostPrice,
		StockQuantity: item.StockQuantity,
		ImageURL:      item.ImageURL,
		CreatedAt:     formatTime(item.CreatedAt),
		UpdatedAt:     formatTime(item.UpdatedAt),
	}
}
