package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/platform/auth"
	"github.com/go-link/api/internal/platform/httpx"
	"github.com/go-link/api/internal/services"
)

const maxBlockBodySize = 256 * 1024

// BlockHandlers exposes the owner's block CRUD and ordering endpoints.
type BlockHandlers struct {
	blocks services.BlockService
}

// NewBlockHandlers constructs handlers over the block service.
func NewBlockHandlers(blocks services.BlockService) *BlockHandlers {
	return &BlockHandlers{blocks: blocks}
}

// Routes wires the block endpoints onto the provided router. Authentication is
// applied by the enclosing /me group.
func (h *BlockHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listBlocks)
	r.Post("/", h.createBlock)
	r.Patch("/{blockID}", h.updateBlock)
	r.Delete("/{blockID}", h.deleteBlock)
	r.Post("/{blockID}/move", h.moveBlock)
}

func (h *BlockHandlers) listBlocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	blocks, err := h.blocks.ListBlocks(ctx, identity.UID)
	if err != nil {
		writeBlockError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, blockListResponse{Blocks: blockPayloads(blocks)})
}

func (h *BlockHandlers) createBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	block, ok := decodeBlockBody(ctx, w, r)
	if !ok {
		return
	}

	created, err := h.blocks.CreateBlock(ctx, services.CreateBlockCommand{UID: identity.UID, Block: block})
	if err != nil {
		writeBlockError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, blockPayloadFrom(created))
}

func (h *BlockHandlers) updateBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	block, ok := decodeBlockBody(ctx, w, r)
	if !ok {
		return
	}
	block.ID = strings.TrimSpace(chi.URLParam(r, "blockID"))

	updated, err := h.blocks.UpdateBlock(ctx, services.UpdateBlockCommand{UID: identity.UID, Block: block})
	if err != nil {
		writeBlockError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, blockPayloadFrom(updated))
}

func (h *BlockHandlers) deleteBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	blockID := strings.TrimSpace(chi.URLParam(r, "blockID"))
	if err := h.blocks.DeleteBlock(ctx, identity.UID, blockID); err != nil {
		writeBlockError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BlockHandlers) moveBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxBlockBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req moveBlockRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	var direction domain.MoveDirection
	switch strings.ToLower(strings.TrimSpace(req.Direction)) {
	case "up":
		direction = domain.MoveUp
	case "down":
		direction = domain.MoveDown
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "direction must be up or down", http.StatusBadRequest))
		return
	}

	blocks, err := h.blocks.MoveBlock(ctx, services.MoveBlockCommand{
		UID:       identity.UID,
		BlockID:   strings.TrimSpace(chi.URLParam(r, "blockID")),
		Direction: direction,
	})
	if err != nil {
		writeBlockError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, blockListResponse{Blocks: blockPayloads(blocks)})
}

func decodeBlockBody(ctx context.Context, w http.ResponseWriter, r *http.Request) (domain.Block, bool) {
	body, err := readLimitedBody(r, maxBlockBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return domain.Block{}, false
	}

	var payload blockPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return domain.Block{}, false
	}

	block, err := payload.toDomain()
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return domain.Block{}, false
	}
	return block, true
}

func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeBlockError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrBlockInvalidInput),
		errors.Is(err, services.ErrBlockGalleryTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_block", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrBlockTypeImmutable):
		httpx.WriteError(ctx, w, httpx.NewError("block_type_immutable", "block type cannot be changed", http.StatusConflict))
	case errors.Is(err, services.ErrBlockNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("block_not_found", "block not found", http.StatusNotFound))
	case errors.Is(err, services.ErrBlockUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("block_service_unavailable", "block storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("block_error", err.Error(), http.StatusInternalServerError))
	}
}

// Block wire payloads ---------------------------------------------------------

type blockListResponse struct {
	Blocks []blockPayload `json:"blocks"`
}

type moveBlockRequest struct {
	Direction string `json:"direction"`
}

type blockPayload struct {
	ID    string `json:"id,omitempty"`
	Type  string `json:"type"`
	Order int    `json:"order"`

	WhatsApp *whatsAppBlockPayload `json:"whatsapp,omitempty"`
	Catalog  *catalogBlockPayload  `json:"catalog,omitempty"`
	Gallery  *galleryBlockPayload  `json:"gallery,omitempty"`
	Promo    *promoBlockPayload    `json:"promo,omitempty"`
	Profile  *profileBlockPayload  `json:"profile,omitempty"`
	Bouquet  *bouquetBlockPayload  `json:"bouquet,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type whatsAppBlockPayload struct {
	Number string `json:"number,omitempty"`
	Label  string `json:"label,omitempty"`
	Color  string `json:"color,omitempty"`
	Link   string `json:"link,omitempty"`
}

type productPayload struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	ImageURL string `json:"image_url,omitempty"`
}

type catalogBlockPayload struct {
	Title          string           `json:"title,omitempty"`
	WhatsAppNumber string           `json:"whatsapp_number,omitempty"`
	Layout         string           `json:"layout,omitempty"`
	ButtonColor    string           `json:"button_color,omitempty"`
	Products       []productPayload `json:"products"`
}

type galleryBlockPayload struct {
	Images []string `json:"images"`
}

type promoBlockPayload struct {
	Text      string `json:"text"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Link      string `json:"link,omitempty"`
	Color     string `json:"color,omitempty"`
}

type profileBlockPayload struct {
	OrgName    string `json:"org_name,omitempty"`
	OrgAddress string `json:"org_address,omitempty"`
	LogoURL    string `json:"logo_url,omitempty"`
	CoverURL   string `json:"cover_url,omitempty"`
}

type catalogItemPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	ImageURL string `json:"image_url,omitempty"`
}

type deliveryOptionsPayload struct {
	Delivery bool `json:"delivery"`
	Pickup   bool `json:"pickup"`
}

type bouquetBlockPayload struct {
	Flowers         []catalogItemPayload   `json:"flowers"`
	Wrappings       []catalogItemPayload   `json:"wrappings"`
	WhatsAppNumber  string                 `json:"whatsapp_number,omitempty"`
	DeliveryOptions deliveryOptionsPayload `json:"delivery_options"`
}

func blockPayloads(blocks []domain.Block) []blockPayload {
	out := make([]blockPayload, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, blockPayloadFrom(block))
	}
	return out
}

func blockPayloadFrom(block domain.Block) blockPayload {
	payload := blockPayload{
		ID:        block.ID,
		Type:      string(block.Type),
		Order:     block.Order,
		CreatedAt: formatTime(block.CreatedAt),
		UpdatedAt: formatTime(block.UpdatedAt),
	}

	if block.WhatsApp != nil {
		payload.WhatsApp = &whatsAppBlockPayload{
			Number: block.WhatsApp.Number,
			Label:  block.WhatsApp.Label,
			Color:  block.WhatsApp.Color,
			Link:   block.WhatsApp.Link,
		}
	}
	if block.Catalog != nil {
		products := make([]productPayload, 0, len(block.Catalog.Products))
		for _, p := range block.Catalog.Products {
			products = append(products, productPayload{Name: p.Name, Price: p.Price, ImageURL: p.ImageURL})
		}
		payload.Catalog = &catalogBlockPayload{
			Title:          block.Catalog.Title,
			WhatsAppNumber: block.Catalog.WhatsAppNumber,
			Layout:         string(block.Catalog.Layout),
			ButtonColor:    block.Catalog.ButtonColor,
			Products:       products,
		}
	}
	if block.Gallery != nil {
		payload.Gallery = &galleryBlockPayload{Images: block.Gallery.Images}
	}
	if block.Promo != nil {
		payload.Promo = &promoBlockPayload{
			Text:      block.Promo.Text,
			ExpiresAt: formatTime(block.Promo.ExpiresAt),
			Link:      block.Promo.Link,
			Color:     block.Promo.Color,
		}
	}
	if block.Profile != nil {
		payload.Profile = &profileBlockPayload{
			OrgName:    block.Profile.OrgName,
			OrgAddress: block.Profile.OrgAddress,
			LogoURL:    block.Profile.LogoURL,
			CoverURL:   block.Profile.CoverURL,
		}
	}
	if block.Bouquet != nil {
		payload.Bouquet = &bouquetBlockPayload{
			Flowers:        catalogItemPayloads(block.Bouquet.Flowers),
			Wrappings:      catalogItemPayloads(block.Bouquet.Wrappings),
			WhatsAppNumber: block.Bouquet.WhatsAppNumber,
			DeliveryOptions: deliveryOptionsPayload{
				Delivery: block.Bouquet.DeliveryOptions.Delivery,
				Pickup:   block.Bouquet.DeliveryOptions.Pickup,
			},
		}
	}
	return payload
}

func catalogItemPayloads(items []domain.CatalogItem) []catalogItemPayload {
	out := make([]catalogItemPayload, 0, len(items))
	for _, item := range items {
		out = append(out, catalogItemPayload{ID: item.ID, Name: item.Name, Price: item.Price, ImageURL: item.ImageURL})
	}
	return out
}

func (p blockPayload) toDomain() (domain.Block, error) {
	block := domain.Block{
		ID:   strings.TrimSpace(p.ID),
		Type: domain.BlockType(strings.TrimSpace(p.Type)),
	}

	if p.WhatsApp != nil {
		block.WhatsApp = &domain.WhatsAppBlock{
			Number: strings.TrimSpace(p.WhatsApp.Number),
			Label:  p.WhatsApp.Label,
			Color:  p.WhatsApp.Color,
			Link:   strings.TrimSpace(p.WhatsApp.Link),
		}
	}
	if p.Catalog != nil {
		products := make([]domain.Product, 0, len(p.Catalog.Products))
		for _, prod := range p.Catalog.Products {
			products = append(products, domain.Product{
				Name:     prod.Name,
				Price:    prod.Price,
				ImageURL: strings.TrimSpace(prod.ImageURL),
			})
		}
		block.Catalog = &domain.CatalogBlock{
			Title:          p.Catalog.Title,
			WhatsAppNumber: strings.TrimSpace(p.Catalog.WhatsAppNumber),
			Layout:         domain.CatalogLayout(strings.TrimSpace(p.Catalog.Layout)),
			ButtonColor:    p.Catalog.ButtonColor,
			Products:       products,
		}
	}
	if p.Gallery != nil {
		block.Gallery = &domain.GalleryBlock{Images: p.Gallery.Images}
	}
	if p.Promo != nil {
		promo := &domain.PromoBlock{
			Text:  p.Promo.Text,
			Link:  strings.TrimSpace(p.Promo.Link),
			Color: p.Promo.Color,
		}
		if raw := strings.TrimSpace(p.Promo.ExpiresAt); raw != "" {
			expiresAt, err := parseRFC3339(raw)
			if err != nil {
				return domain.Block{}, fmt.Errorf("promo.expires_at must be an RFC3339 timestamp: %w", err)
			}
			promo.ExpiresAt = expiresAt
		}
		block.Promo = promo
	}
	if p.Profile != nil {
		block.Profile = &domain.ProfileBlock{
			OrgName:    p.Profile.OrgName,
			OrgAddress: p.Profile.OrgAddress,
			LogoURL:    strings.TrimSpace(p.Profile.LogoURL),
			CoverURL:   strings.TrimSpace(p.Profile.CoverURL),
		}
	}
	if p.Bouquet != nil {
		block.Bouquet = &domain.BouquetBlock{
			Flowers:        catalogItemsFromPayload(p.Bouquet.Flowers),
			Wrappings:      catalogItemsFromPayload(p.Bouquet.Wrappings),
			WhatsAppNumber: strings.TrimSpace(p.Bouquet.WhatsAppNumber),
			DeliveryOptions: domain.DeliveryOptions{
				Delivery: p.Bouquet.DeliveryOptions.Delivery,
				Pickup:   p.Bouquet.DeliveryOptions.Pickup,
			},
		}
	}
	return block, nil
}

func catalogItemsFromPayload(payloads []catalogItemPayload) []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, len(payloads))
	for _, p := range payloads {
		items = append(items, domain.CatalogItem{
			ID:       strings.TrimSpace(p.ID),
			Name:     p.Name,
			Price:    p.Price,
			ImageURL: strings.TrimSpace(p.ImageURL),
		})
	}
	return items
}

func parseRFC3339(value string) (time.Time, error) {
	layouts := []string{time.RFC3339Nano, time.RFC3339}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", value)
}
