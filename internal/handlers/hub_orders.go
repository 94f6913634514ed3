package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/platform/auth"
	"github.com/go-link/api/internal/platform/httpx"
	"github.com/go-link/api/internal/platform/pagination"
	"github.com/go-link/api/internal/repositories"
	"github.com/go-link/api/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
	maxHubBodySize       = 32 * 1024
)

// HubHandlers exposes the Business Hub board: orders, staff, stock and stats.
type HubHandlers struct {
	authn     *auth.Authenticator
	orders    services.OrderService
	florists  services.FloristService
	inventory services.InventoryService
	limiter   rateLimiter
}

// HubHandlersDeps bundles collaborators for the /hub surface.
type HubHandlersDeps struct {
	Authenticator *auth.Authenticator
	Orders        services.OrderService
	Florists      services.FloristService
	Inventory     services.InventoryService

	// RatePerMinute caps requests per authenticated caller. Zero disables
	// throttling.
	RatePerMinute int
	Clock         func() time.Time
}

// NewHubHandlers constructs the Business Hub handlers.
func NewHubHandlers(deps HubHandlersDeps) *HubHandlers {
	return &HubHandlers{
		authn:     deps.Authenticator,
		orders:    deps.Orders,
		florists:  deps.Florists,
		inventory: deps.Inventory,
		limiter:   newSimpleRateLimiter(deps.RatePerMinute, time.Minute, deps.Clock),
	}
}

// Routes wires the /hub endpoints onto the provided router.
func (h *HubHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	if h.limiter != nil {
		r.Use(identityRateLimit(h.limiter))
	}
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Post("/orders/{orderID}/status", h.transitionStatus)
	r.Patch("/orders/{orderID}", h.updateOrderDetails)
	r.Get("/stats", h.stats)

	r.Get("/florists", h.listFlorists)
	r.Post("/florists", h.addFlorist)
	r.Delete("/florists/{floristID}", h.removeFlorist)

	r.Get("/inventory", h.listInventory)
	r.Post("/inventory", h.createInventoryItem)
	r.Patch("/inventory/{itemID}", h.updateInventoryItem)
	r.Delete("/inventory/{itemID}", h.deleteInventoryItem)
	r.Post("/inventory/{itemID}/adjust", h.adjustInventoryStock)
}

func (h *HubHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeHubUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := repositories.OrderListFilter{}
	for _, raw := range query["status"] {
		for _, value := range strings.Split(raw, ",") {
			value = strings.TrimSpace(value)
			if value != "" {
				filter.Status = append(filter.Status, domain.OrderStatus(value))
			}
		}
	}
	if raw := strings.TrimSpace(query.Get("source")); raw != "" {
		source := domain.OrderSource(raw)
		filter.Source = &source
	}
	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseRFC3339(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.CreatedAfter = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseRFC3339(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.CreatedBefore = &ts
	}

	pageSize, err := pagination.ParsePageSize(query.Get("page_size"), defaultOrderPageSize, maxOrderPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
		return
	}
	filter.Pagination = domain.Pagination{
		PageSize:  pageSize,
		PageToken: strings.TrimSpace(query.Get("page_token")),
	}

	page, err := h.orders.ListOrders(ctx, identity.UID, filter)
	if err != nil {
		writeHubError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, orderPayloadFrom(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Orders:        items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *HubHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeHubUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	details, err := h.orders.GetOrder(ctx, identity.UID, chi.URLParam(r, "orderID"))
	if err != nil {
		writeHubError(ctx, w, err)
		return
	}

	history := make([]orderHistoryPayload, 0, len(details.History))
	for _, entry := range details.History {
		history = append(history, orderHistoryPayload{
			Status:    string(entry.Status),
			ChangedAt: formatTime(entry.ChangedAt),
		})
	}
	writeJSONResponse(w, http.StatusOK, orderDetailsResponse{
		Order:   orderPayloadFrom(details.Order),
		History: history,
	})
}

func (h *HubHandlers) transitionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeHubUnavailable(ctx, w, "order")
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
	var req transitionStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderTransitionCommand{
		OwnerUID: identity.UID,
		OrderID:  chi.URLParam(r, "orderID"),
		Next:     domain.OrderStatus(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		writeHubError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderPayloadFrom(order))
}

func (h *HubHandlers) updateOrderDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeHubUnavailable(ctx, w, "order")
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

	cmd, err := parseOrderDetailsRequest(body)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	cmd.OwnerUID = identity.UID
	cmd.OrderID = chi.URLParam(r, "orderID")

	order, err := h.orders.UpdateDetails(ctx, cmd)
	if err != nil {
		writeHubError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderPayloadFrom(order))
}

func (h *HubHandlers) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeHubUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	stats, err := h.orders.Stats(ctx, identity.UID)
	if err != nil {
		writeHubError(ctx, w, err)
		return
	}

	leaderboard := make([]floristStandingPayload, 0, len(stats.Leaderboard))
	for _, standing := range stats.Leaderboard {
		leaderboard = append(leaderboard, floristStandingPayload{
			FloristName: standing.FloristName,
			Completed:   standing.Completed,
		})
	}
	writeJSONResponse(w, http.StatusOK, orderStatsPayload{
		Total:         stats.Total,
		Completed:     stats.Completed,
		Cancelled:     stats.Cancelled,
		Active:        stats.Active,
		CancelledRate: stats.CancelledRate,
		Revenue:       stats.Revenue,
		Leaderboard:   leaderboard,
	})
}

// parseOrderDetailsRequest accepts florist_name and notes only; immutable
// order fields are rejected explicitly.
func parseOrderDetailsRequest(data []byte) (services.OrderDetailsCommand, error) {
	var cmd services.OrderDetailsCommand

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return cmd, errors.New("invalid JSON payload")
	}
	if len(raw) == 0 {
		return cmd, errNoEditableFields
	}

	for key, value := range raw {
		switch key {
		case "florist_name":
			if isJSONNull(value) {
				empty := ""
				cmd.FloristName = &empty
				continue
			}
			var name string
			if err := json.Unmarshal(value, &name); err != nil {
				return cmd, errors.New("florist_name must be a string")
			}
			cmd.FloristName = &name
		case "notes":
			if isJSONNull(value) {
				empty := ""
				cmd.Notes = &empty
				continue
			}
			var notes string
			if err := json.Unmarshal(value, &notes); err != nil {
				return cmd, errors.New("notes must be a string")
			}
			cmd.Notes = &notes
		default:
			return cmd, errors.New("only florist_name and notes are editable")
		}
	}
	return cmd, nil
}

func writeHubUnavailable(ctx context.Context, w http.ResponseWriter, name string) {
	httpx.WriteError(ctx, w, httpx.NewError(name+"_service_unavailable", name+" service unavailable", http.StatusServiceUnavailable))
}

func writeHubError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, services.ErrFloristInvalidInput),
		errors.Is(err, services.ErrInventoryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrFloristNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("florist_not_found", "florist not found", http.StatusNotFound))
	case errors.Is(err, services.ErrInventoryNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("inventory_item_not_found", "inventory item not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_status_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderFloristLocked):
		httpx.WriteError(ctx, w, httpx.NewError("florist_locked", "florist cannot change on a finished order", http.StatusConflict))
	case errors.Is(err, services.ErrFloristDuplicate):
		httpx.WriteError(ctx, w, httpx.NewError("florist_exists", "florist already on the roster", http.StatusConflict))
	case errors.Is(err, services.ErrInventoryInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", "stock cannot go below zero", http.StatusConflict))
	case errors.Is(err, services.ErrOrderUnavailable),
		errors.Is(err, services.ErrFloristUnavailable),
		errors.Is(err, services.ErrInventoryUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("hub_service_unavailable", "storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("hub_error", err.Error(), http.StatusInternalServerError))
	}
}

// Hub wire payloads -----------------------------------------------------------

type transitionStatusRequest struct {
	Status string `json:"status"`
}

type orderListResponse struct {
	Orders        []orderPayload `json:"orders"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

type orderDetailsResponse struct {
	Order   orderPayload          `json:"order"`
	History []orderHistoryPayload `json:"history"`
}

type orderHistoryPayload struct {
	Status    string `json:"status"`
	ChangedAt string `json:"changed_at"`
}

type orderPayload struct {
	ID            string             `json:"id"`
	Items         []orderItemPayload `json:"items"`
	TotalPrice    int64              `json:"total_price"`
	CustomerPhone string             `json:"customer_phone,omitempty"`
	Status        string             `json:"status"`
	FloristName   string             `json:"florist_name,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Source        string             `json:"source"`
	CreatedAt     string             `json:"created_at,omitempty"`
	UpdatedAt     string             `json:"updated_at,omitempty"`
}

func orderPayloadFrom(order domain.Order) orderPayload {
	return orderPayload{
		ID:            order.ID,
		Items:         orderItemPayloads(order.Items),
		TotalPrice:    order.TotalPrice,
		CustomerPhone: order.CustomerPhone,
		Status:        string(order.Status),
		FloristName:   order.FloristName,
		Notes:         order.Notes,
		Source:        string(order.Source),
		CreatedAt:     formatTime(order.CreatedAt),
		UpdatedAt:     formatTime(order.UpdatedAt),
	}
}

type orderStatsPayload struct {
	Total         int                      `json:"total"`
	Completed     int                      `json:"completed"`
	Cancelled     int                      `json:"cancelled"`
	Active        int                      `json:"active"`
	CancelledRate float64                  `json:"cancelled_rate"`
	Revenue       int64                    `json:"revenue"`
	Leaderboard   []floristStandingPayload `json:"leaderboard"`
}

type floristStandingPayload struct {
	FloristName string `json:"florist_name"`
	Completed   int    `json:"completed"`
}
