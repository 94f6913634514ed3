package domain

import (
	"strings"
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// BlockType discriminates the polymorphic block documents stored per user.
type BlockType string

const (
	// BlockTypeWhatsApp renders a contact button (WhatsApp number or plain link).
	BlockTypeWhatsApp BlockType = "whatsapp"
	// BlockTypeCatalog renders a horizontally scrolled product list with buy actions.
	BlockTypeCatalog BlockType = "catalog"
	// BlockTypeGallery renders a rotating image strip (capped at five images).
	BlockTypeGallery BlockType = "gallery"
	// BlockTypePromo renders a timed promotion banner with a countdown.
	BlockTypePromo BlockType = "promo"
	// BlockTypeProfile renders the organisation header (name, address, logo, cover).
	BlockTypeProfile BlockType = "profile"
	// BlockTypeBouquet renders the interactive bouquet configurator.
	BlockTypeBouquet BlockType = "bouquet"
)

// Known reports whether the type is one the renderer understands. Unknown
// types are preserved in storage but skipped on public pages.
func (t BlockType) Known() bool {
	switch t {
	case BlockTypeWhatsApp, BlockTypeCatalog, BlockTypeGallery, BlockTypePromo, BlockTypeProfile, BlockTypeBouquet:
		return true
	}
	return false
}

// Block is one composable unit of a profile page. Exactly one payload pointer
// matching Type is set for known types; unknown types carry only Raw.
type Block struct {
	ID    string
	Type  BlockType
	Order int

	WhatsApp *WhatsAppBlock
	Catalog  *CatalogBlock
	Gallery  *GalleryBlock
	Promo    *PromoBlock
	Profile  *ProfileBlock
	Bouquet  *BouquetBlock

	// Raw retains the stored payload for block types this build does not know.
	Raw map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WhatsAppBlock is a contact button. Link is used instead of the number when
// the button points at a generic URL (e.g. a 2GIS card).
type WhatsAppBlock struct {
	Number string
	Label  string
	Color  string
	Link   string
}

// CatalogLayout selects the product presentation style.
type CatalogLayout string

const (
	CatalogLayoutGrid   CatalogLayout = "grid"
	CatalogLayoutScroll CatalogLayout = "scroll"
)

// Product is a catalog line item. Price is a whole amount in tenge.
type Product struct {
	Name     string
	Price    int64
	ImageURL string
}

// CatalogBlock lists products with per-product buy actions.
type CatalogBlock struct {
	Title          string
	WhatsAppNumber string
	Layout         CatalogLayout
	ButtonColor    string
	Products       []Product
}

// GalleryMaxImages caps the number of images per gallery block.
const GalleryMaxImages = 5

// GalleryBlock rotates up to GalleryMaxImages images on the public page.
type GalleryBlock struct {
	Images []string
}

// PromoBlock is a timed promotion banner.
type PromoBlock struct {
	Text      string
	ExpiresAt time.Time
	Link      string
	Color     string
}

// ProfileBlock duplicates the organisation header as an orderable block.
type ProfileBlock struct {
	OrgName    string
	OrgAddress string
	LogoURL    string
	CoverURL   string
}

// CatalogItem is a flower or wrapping offered by a bouquet block. The price is
// a snapshot copied from the master directory when the owner saved the block;
// later directory edits do not reprice existing blocks.
type CatalogItem struct {
	ID       string
	Name     string
	Price    int64
	ImageURL string
}

// DeliveryOptions records which fulfilment modes the florist offers.
type DeliveryOptions struct {
	Delivery bool
	Pickup   bool
}

// BouquetBlock holds the configurator's selectable catalog for one block
// instance.
type BouquetBlock struct {
	Flowers         []CatalogItem
	Wrappings       []CatalogItem
	WhatsAppNumber  string
	DeliveryOptions DeliveryOptions
}

// FlowerByID looks up a flower offered by the block.
func (b *BouquetBlock) FlowerByID(id string) (CatalogItem, bool) {
	if b == nil {
		return CatalogItem{}, false
	}
	for _, f := range b.Flowers {
		if f.ID == id {
			return f, true
		}
	}
	return CatalogItem{}, false
}

// WrappingByID looks up a wrapping offered by the block.
func (b *BouquetBlock) WrappingByID(id string) (CatalogItem, bool) {
	if b == nil {
		return CatalogItem{}, false
	}
	for _, w := range b.Wrappings {
		if w.ID == id {
			return w, true
		}
	}
	return CatalogItem{}, false
}

// Profile is the per-user organisation record stored at users/{uid}.
type Profile struct {
	UID                 string
	Email               string
	OrgName             string
	OrgAddress          string
	LogoURL             string
	CoverURL            string
	Slug                string
	ShowProfile         bool
	Role                string
	SubscriptionExpires *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SlugReservation maps a public slug to the owning user. The reservation is
// the source of truth for slug resolution and is created before the profile.
type SlugReservation struct {
	Slug      string
	UID       string
	CreatedAt time.Time
}

// OrderStatus tracks an order through the Business Hub board.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusInProgress OrderStatus = "inProgress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether the status is a recognised lifecycle state.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo encodes the Business Hub board state machine:
// new -> inProgress -> completed, with cancellation allowed from any
// non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() || s == next {
		return false
	}
	switch s {
	case OrderStatusNew:
		return next == OrderStatusInProgress || next == OrderStatusCancelled
	case OrderStatusInProgress:
		return next == OrderStatusCompleted || next == OrderStatusCancelled
	}
	return false
}

// OrderSource records which block kind produced the order.
type OrderSource string

const (
	OrderSourceBouquet OrderSource = "bouquet"
	OrderSourceCatalog OrderSource = "catalog"
)

// OrderItem is one purchased line. Immutable after the order is created.
type OrderItem struct {
	Name     string
	Quantity int
	Price    int64
}

// Order is a buyer-initiated purchase record scoped to the florist's user
// document. Items and TotalPrice never change after creation; staff mutate
// status, florist assignment and notes only.
type Order struct {
	ID            string
	Items         []OrderItem
	TotalPrice    int64
	CustomerPhone string
	Status        OrderStatus
	FloristName   string
	Notes         string
	Source        OrderSource
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderHistoryEntry is an append-only audit record written on every status
// change. Entries are never mutated or deleted.
type OrderHistoryEntry struct {
	ID        string
	Status    OrderStatus
	ChangedAt time.Time
}

// Florist is a staff member orders can be assigned to.
type Florist struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// InventoryItem is a Business Hub stock record.
type InventoryItem struct {
	ID            string
	Name          string
	Price         int64
	CostPrice     int64
	StockQuantity int
	ImageURL      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DirectoryCollection names an admin-curated master catalog.
type DirectoryCollection string

const (
	DirectoryFlowers   DirectoryCollection = "master_flowers"
	DirectoryWrappings DirectoryCollection = "master_wrappings"
)

// Valid reports whether the collection is one of the known directories.
func (c DirectoryCollection) Valid() bool {
	return c == DirectoryFlowers || c == DirectoryWrappings
}

// DirectoryItem is a master catalog entry. Block editors copy Price into the
// block payload at save time.
type DirectoryItem struct {
	ID       string
	Name     string
	Price    int64
	ImageURL string
	IsActive bool
}

// NormalizePhone strips every non-digit character from the supplied phone
// number, matching the customerPhone storage format.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
