package services

import (
	"context"
	"time"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	Block              = domain.Block
	BlockType          = domain.BlockType
	Profile            = domain.Profile
	Selection          = domain.Selection
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	OrderSource        = domain.OrderSource
	OrderHistoryEntry  = domain.OrderHistoryEntry
	Florist            = domain.Florist
	InventoryItem      = domain.InventoryItem
	DirectoryItem      = domain.DirectoryItem
	SystemHealthReport = domain.SystemHealthReport
)

// ProfileService owns the florist account: first-login provisioning with slug
// reservation, profile edits, and the public visibility toggle.
type ProfileService interface {
	Provision(ctx context.Context, cmd ProvisionCommand) (Profile, error)
	GetProfile(ctx context.Context, uid string) (Profile, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (Profile, error)
	SetVisibility(ctx context.Context, uid string, visible bool) (Profile, error)
}

// PublicService renders the unauthenticated slug-addressed page payload.
type PublicService interface {
	Page(ctx context.Context, slug string) (PublicPage, error)
}

// BlockService manages the ordered block list behind the page editor.
type BlockService interface {
	ListBlocks(ctx context.Context, uid string) ([]Block, error)
	GetBlock(ctx context.Context, uid string, blockID string) (Block, error)
	CreateBlock(ctx context.Context, cmd CreateBlockCommand) (Block, error)
	UpdateBlock(ctx context.Context, cmd UpdateBlockCommand) (Block, error)
	DeleteBlock(ctx context.Context, uid string, blockID string) error
	// MoveBlock permutes the sequence and rewrites every block's order field
	// atomically. Boundary moves return the unchanged sequence.
	MoveBlock(ctx context.Context, cmd MoveBlockCommand) ([]Block, error)
}

// BouquetService prices configurator selections and converts them into
// WhatsApp hand-offs, recording the order on the owner's board best-effort.
type BouquetService interface {
	Quote(ctx context.Context, cmd BouquetQuoteCommand) (BouquetQuote, error)
	SubmitOrder(ctx context.Context, cmd BouquetOrderCommand) (OrderHandOff, error)
	SubmitCatalogOrder(ctx context.Context, cmd CatalogOrderCommand) (OrderHandOff, error)
}

// OrderService drives the Business Hub board: listings, the status machine
// with history, florist assignment, notes, and aggregate stats.
type OrderService interface {
	ListOrders(ctx context.Context, ownerUID string, filter OrderListFilter) (domain.CursorPage[Order], error)
	GetOrder(ctx context.Context, ownerUID string, orderID string) (OrderDetails, error)
	TransitionStatus(ctx context.Context, cmd OrderTransitionCommand) (Order, error)
	UpdateDetails(ctx context.Context, cmd OrderDetailsCommand) (Order, error)
	Stats(ctx context.Context, ownerUID string) (OrderStats, error)
}

// FloristService maintains the assignable staff roster.
type FloristService interface {
	ListFlorists(ctx context.Context, ownerUID string) ([]Florist, error)
	AddFlorist(ctx context.Context, ownerUID string, name string) (Florist, error)
	RemoveFlorist(ctx context.Context, ownerUID string, floristID string) error
}

// InventoryService manages Business Hub stock records.
type InventoryService interface {
	ListItems(ctx context.Context, ownerUID string) ([]InventoryItem, error)
	CreateItem(ctx context.Context, cmd InventoryItemCommand) (InventoryItem, error)
	UpdateItem(ctx context.Context, cmd InventoryItemCommand) (InventoryItem, error)
	DeleteItem(ctx context.Context, ownerUID string, itemID string) error
	AdjustStock(ctx context.Context, ownerUID string, itemID string, delta int) (InventoryItem, error)
}

// DirectoryService exposes the admin-curated master catalogs. Reads are open
// to any authenticated owner; writes require the admin role upstream.
type DirectoryService interface {
	ListItems(ctx context.Context, collection domain.DirectoryCollection, activeOnly bool) ([]DirectoryItem, error)
	UpsertItem(ctx context.Context, cmd DirectoryItemCommand) (DirectoryItem, error)
	DeleteItem(ctx context.Context, collection domain.DirectoryCollection, itemID string) error
}

// AssetService issues signed upload/download URLs for media objects.
type AssetService interface {
	IssueSignedUpload(ctx context.Context, cmd SignedUploadCommand) (SignedAssetResponse, error)
	IssueSignedDownload(ctx context.Context, cmd SignedDownloadCommand) (SignedAssetResponse, error)
}

// SystemService aggregates health reporting and build metadata.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
	Build() BuildInfo
}

// OrderEventPublisher publishes order lifecycle events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// OrderEventMessage is the wire payload for order lifecycle events.
type OrderEventMessage struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	OwnerUID   string    `json:"ownerUid"`
	Status     string    `json:"status"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Command and DTO definitions ------------------------------------------------

// ProvisionCommand creates the profile and slug reservation on first login.
type ProvisionCommand struct {
	UID     string
	Email   string
	OrgName string
}

// UpdateProfileCommand patches editable profile fields. Nil pointers leave the
// stored value untouched; the slug is immutable after provisioning.
type UpdateProfileCommand struct {
	UID        string
	OrgName    *string
	OrgAddress *string
	LogoURL    *string
	CoverURL   *string
}

// PublicPage is the rendered payload for GET /p/{slug}.
type PublicPage struct {
	Slug    string
	Profile PublicProfile
	Blocks  []PublicBlock
}

// PublicProfile carries only the fields safe to expose anonymously.
type PublicProfile struct {
	OrgName    string
	OrgAddress string
	LogoURL    string
	CoverURL   string
}

// PublicBlock is a visible block plus server-computed extras such as the promo
// countdown snapshot.
type PublicBlock struct {
	Block     Block
	Countdown *domain.PromoCountdown
}

// CreateBlockCommand appends a new block at the end of the sequence.
type CreateBlockCommand struct {
	UID   string
	Block Block
}

// UpdateBlockCommand merges payload changes into an existing block. The block
// type is immutable.
type UpdateBlockCommand struct {
	UID   string
	Block Block
}

// MoveBlockCommand shifts a block one position up or down.
type MoveBlockCommand struct {
	UID       string
	BlockID   string
	Direction domain.MoveDirection
}

// BouquetQuoteCommand prices a selection against a bouquet block.
type BouquetQuoteCommand struct {
	Slug       string
	BlockID    string
	Selection  Selection
	WrappingID string
}

// BouquetQuote is the priced result plus the WhatsApp deep link.
type BouquetQuote struct {
	Items        []OrderItem
	Total        int64
	Message      string
	WhatsAppLink string
}

// BouquetOrderCommand converts a selection into a WhatsApp hand-off.
type BouquetOrderCommand struct {
	Slug          string
	BlockID       string
	Selection     Selection
	WrappingID    string
	CustomerPhone string
}

// CatalogOrderCommand orders a single catalog product.
type CatalogOrderCommand struct {
	Slug       string
	BlockID    string
	ProductIdx int
}

// OrderHandOff is the customer-facing result: the deep link is always present
// when the block carries a WhatsApp number; Recorded reports whether the order
// also landed on the owner's board.
type OrderHandOff struct {
	WhatsAppLink string
	Message      string
	Total        int64
	Items        []OrderItem
	OrderID      string
	Recorded     bool
}

// OrderListFilter narrows Business Hub order listings.
type OrderListFilter = repositories.OrderListFilter

// OrderDetails pairs an order with its status history, newest change first.
type OrderDetails struct {
	Order   Order
	History []OrderHistoryEntry
}

// OrderTransitionCommand moves an order through the status machine.
type OrderTransitionCommand struct {
	OwnerUID string
	OrderID  string
	Next     OrderStatus
}

// OrderDetailsCommand patches florist assignment and notes. Nil pointers leave
// the stored value untouched.
type OrderDetailsCommand struct {
	OwnerUID    string
	OrderID     string
	FloristName *string
	Notes       *string
}

// OrderStats aggregates the board for the hub stats tab.
type OrderStats struct {
	Total         int
	Completed     int
	Cancelled     int
	Active        int
	CancelledRate float64
	Revenue       int64
	Leaderboard   []FloristStanding
}

// FloristStanding ranks a florist by completed orders.
type FloristStanding struct {
	FloristName string
	Completed   int
}

// InventoryItemCommand creates or updates a stock record.
type InventoryItemCommand struct {
	OwnerUID string
	Item     InventoryItem
}

// DirectoryItemCommand creates or updates a master catalog entry.
type DirectoryItemCommand struct {
	Collection domain.DirectoryCollection
	Item       DirectoryItem
}

// SignedUploadCommand requests an upload URL for a media object.
type SignedUploadCommand struct {
	ActorUID    string
	IsAdmin     bool
	Purpose     string
	Collection  string
	FileName    string
	ContentType string
	SizeBytes   int64
}

// SignedDownloadCommand requests a download URL for an owned object.
type SignedDownloadCommand struct {
	ActorUID   string
	OwnerUID   string
	ObjectPath string
}

// SignedAssetResponse carries the minted URL back to the handler layer.
type SignedAssetResponse = repositories.SignedAssetResponse
