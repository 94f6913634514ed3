package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/platform/httpx"
	"github.com/go-link/api/internal/services"
)

const (
	maxPublicOrderBodySize = 32 * 1024

	publicOrderRateLimit  = 10
	publicOrderRateWindow = time.Minute
)

// PublicHandlers serves the anonymous profile pages and the buyer-side
// configurator endpoints.
type PublicHandlers struct {
	pages   services.PublicService
	bouquet services.BouquetService
	limiter rateLimiter
}

// PublicHandlersDeps bundles collaborators for the public surface.
type PublicHandlersDeps struct {
	Pages   services.PublicService
	Bouquet services.BouquetService
	// Limiter guards the order endpoints; nil falls back to a per-IP window
	// of RatePerMinute requests (default 10).
	Limiter       rateLimiter
	RatePerMinute int
	Clock         func() time.Time
}

// NewPublicHandlers constructs the public handlers with a per-IP rate limit on
// order submission.
func NewPublicHandlers(deps PublicHandlersDeps) *PublicHandlers {
	limiter := deps.Limiter
	if limiter == nil {
		limit := deps.RatePerMinute
		if limit <= 0 {
			limit = publicOrderRateLimit
		}
		limiter = newSimpleRateLimiter(limit, publicOrderRateWindow, deps.Clock)
	}
	return &PublicHandlers{
		pages:   deps.Pages,
		bouquet: deps.Bouquet,
		limiter: limiter,
	}
}

// Routes wires the public endpoints onto the provided router.
func (h *PublicHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/p/{slug}", h.getPage)
	r.Post("/p/{slug}/bouquet/{blockID}/quote", h.quoteBouquet)
	r.Post("/p/{slug}/bouquet/{blockID}/orders", h.submitBouquetOrder)
	r.Post("/p/{slug}/catalog/{blockID}/orders", h.submitCatalogOrder)
}

func (h *PublicHandlers) getPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.pages == nil {
		httpx.WriteError(ctx, w, httpx.NewError("public_service_unavailable", "public service unavailable", http.StatusServiceUnavailable))
		return
	}

	page, err := h.pages.Page(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		writePublicError(ctx, w, err)
		return
	}

	blocks := make([]publicBlockPayload, 0, len(page.Blocks))
	for _, entry := range page.Blocks {
		block := publicBlockPayload{blockPayload: blockPayloadFrom(entry.Block)}
		if entry.Countdown != nil {
			block.Countdown = &countdownPayload{
				Expired: entry.Countdown.Expired,
				Hours:   entry.Countdown.Hours,
				Minutes: entry.Countdown.Minutes,
				Seconds: entry.Countdown.Seconds,
				Urgency: string(entry.Countdown.Urgency),
				Label:   entry.Countdown.Label(),
			}
		}
		blocks = append(blocks, block)
	}

	writeJSONResponse(w, http.StatusOK, publicPageResponse{
		Slug: page.Slug,
		Profile: profileBlockPayload{
			OrgName:    page.Profile.OrgName,
			OrgAddress: page.Profile.OrgAddress,
			LogoURL:    page.Profile.LogoURL,
			CoverURL:   page.Profile.CoverURL,
		},
		Blocks: blocks,
	})
}

func (h *PublicHandlers) quoteBouquet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bouquet == nil {
		httpx.WriteError(ctx, w, httpx.NewError("bouquet_service_unavailable", "bouquet service unavailable", http.StatusServiceUnavailable))
		return
	}

	req, ok := decodeBouquetOrderBody(ctx, w, r)
	if !ok {
		return
	}

	quote, err := h.bouquet.Quote(ctx, services.BouquetQuoteCommand{
		Slug:       chi.URLParam(r, "slug"),
		BlockID:    chi.URLParam(r, "blockID"),
		Selection:  req.selection(),
		WrappingID: req.WrappingID,
	})
	if err != nil {
		writePublicError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, bouquetQuoteResponse{
		Items:        orderItemPayloads(quote.Items),
		Total:        quote.Total,
		Message:      quote.Message,
		WhatsAppLink: quote.WhatsAppLink,
	})
}

func (h *PublicHandlers) submitBouquetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bouquet == nil {
		httpx.WriteError(ctx, w, httpx.NewError("bouquet_service_unavailable", "bouquet service unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.allow(r) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many order attempts, try again later", http.StatusTooManyRequests))
		return
	}

	req, ok := decodeBouquetOrderBody(ctx, w, r)
	if !ok {
		return
	}

	handOff, err := h.bouquet.SubmitOrder(ctx, services.BouquetOrderCommand{
		Slug:          chi.URLParam(r, "slug"),
		BlockID:       chi.URLParam(r, "blockID"),
		Selection:     req.selection(),
		WrappingID:    req.WrappingID,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		writePublicError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderHandOffPayload{
		WhatsAppLink: handOff.WhatsAppLink,
		Message:      handOff.Message,
		Total:        handOff.Total,
		Items:        orderItemPayloads(handOff.Items),
		OrderID:      handOff.OrderID,
		Recorded:     handOff.Recorded,
	})
}

func (h *PublicHandlers) submitCatalogOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bouquet == nil {
		httpx.WriteError(ctx, w, httpx.NewError("bouquet_service_unavailable", "bouquet service unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.allow(r) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many order attempts, try again later", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxPublicOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req catalogOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	handOff, err := h.bouquet.SubmitCatalogOrder(ctx, services.CatalogOrderCommand{
		Slug:       chi.URLParam(r, "slug"),
		BlockID:    chi.URLParam(r, "blockID"),
		ProductIdx: req.ProductIdx,
	})
	if err != nil {
		writePublicError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderHandOffPayload{
		WhatsAppLink: handOff.WhatsAppLink,
		Message:      handOff.Message,
		Total:        handOff.Total,
		Items:        orderItemPayloads(handOff.Items),
		OrderID:      handOff.OrderID,
		Recorded:     handOff.Recorded,
	})
}

func (h *PublicHandlers) allow(r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(clientKey(r))
}

// clientKey prefers the RealIP-resolved remote address so one buyer cannot
// starve the whole endpoint.
func clientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

func decodeBouquetOrderBody(ctx context.Context, w http.ResponseWriter, r *http.Request) (bouquetOrderRequest, bool) {
	body, err := readLimitedBody(r, maxPublicOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return bouquetOrderRequest{}, false
	}

	var req bouquetOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return bouquetOrderRequest{}, false
	}
	return req, true
}

func writePublicError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrPublicPageNotFound),
		errors.Is(err, services.ErrBouquetNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("profile_not_found", "page not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogOrderInFlight):
		httpx.WriteError(ctx, w, httpx.NewError("order_in_flight", "an order for this product is already being processed", http.StatusConflict))
	case errors.Is(err, services.ErrBouquetEmptySelection),
		errors.Is(err, services.ErrBouquetUnknownFlower),
		errors.Is(err, services.ErrBouquetUnknownWrapping),
		errors.Is(err, services.ErrBouquetInvalidInput),
		errors.Is(err, services.ErrPublicInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrBouquetNoWhatsApp):
		httpx.WriteError(ctx, w, httpx.NewError("no_whatsapp_number", "this page cannot receive orders", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrPublicUnavailable),
		errors.Is(err, services.ErrBouquetUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("public_error", err.Error(), http.StatusInternalServerError))
	}
}

// Public wire payloads --------------------------------------------------------

type publicPageResponse struct {
	Slug    string               `json:"slug"`
	Profile profileBlockPayload  `json:"profile"`
	Blocks  []publicBlockPayload `json:"blocks"`
}

type publicBlockPayload struct {
	blockPayload
	Countdown *countdownPayload `json:"countdown,omitempty"`
}

type countdownPayload struct {
	Expired bool   `json:"expired"`
	Hours   int    `json:"hours"`
	Minutes int    `json:"minutes"`
	Seconds int    `json:"seconds"`
	Urgency string `json:"urgency,omitempty"`
	Label   string `json:"label"`
}

type bouquetOrderRequest struct {
	Selection     map[string]int `json:"selection"`
	WrappingID    string         `json:"wrapping_id"`
	CustomerPhone string         `json:"customer_phone"`
}

func (r bouquetOrderRequest) selection() domain.Selection {
	sel := make(domain.Selection, len(r.Selection))
	for id, qty := range r.Selection {
		sel.Set(strings.TrimSpace(id), qty)
	}
	return sel
}

type catalogOrderRequest struct {
	ProductIdx int `json:"product_idx"`
}

type orderItemPayload struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

func orderItemPayloads(items []domain.OrderItem) []orderItemPayload {
	out := make([]orderItemPayload, 0, len(items))
	for _, item := range items {
		out = append(out, orderItemPayload{Name: item.Name, Quantity: item.Quantity, Price: item.Price})
	}
	return out
}

type bouquetQuoteResponse struct {
	Items        []orderItemPayload `json:"items"`
	Total        int64              `json:"total"`
	Message      string             `json:"message"`
	WhatsAppLink string             `json:"whatsapp_link"`
}

type orderHandOffPayload struct {
	WhatsAppLink string             `json:"whatsapp_link"`
	Message      string             `json:"message"`
	Total        int64              `json:"total"`
	Items        []orderItemPayload `json:"items"`
	OrderID      string             `json:"order_id,omitempty"`
	Recorded     bool               `json:"recorded"`
}
