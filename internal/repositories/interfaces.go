package repositories

import (
	"context"
	"time"

	domain "github.com/go-link/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UserRepository stores florist profiles keyed by Firebase UID.
type UserRepository interface {
	FindByID(ctx context.Context, uid string) (domain.Profile, error)
	Insert(ctx context.Context, profile domain.Profile) error
	UpdateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error)
	SetVisibility(ctx context.Context, uid string, visible bool, updatedAt time.Time) error
}

// SlugRepository owns the slug reservation documents that map public slugs to
// user IDs. Reserve must fail with a conflict when the slug is already taken.
type SlugRepository interface {
	Reserve(ctx context.Context, reservation domain.SlugReservation) error
	Resolve(ctx context.Context, slug string) (domain.SlugReservation, error)
	Release(ctx context.Context, slug string, uid string) error
}

// BlockRepository persists the ordered block list beneath a user document.
type BlockRepository interface {
	List(ctx context.Context, uid string) ([]domain.Block, error)
	Get(ctx context.Context, uid string, blockID string) (domain.Block, error)
	Insert(ctx context.Context, uid string, block domain.Block) (domain.Block, error)
	Update(ctx context.Context, uid string, block domain.Block) (domain.Block, error)
	Delete(ctx context.Context, uid string, blockID string) error
	// ReplaceOrder rewrites the order field of every listed block in a single
	// transaction so a failure leaves the previous numbering intact.
	ReplaceOrder(ctx context.Context, uid string, orderedIDs []string) error
}

// OrderRepository persists Business Hub orders and their status history.
type OrderRepository interface {
	Insert(ctx context.Context, ownerUID string, order domain.Order) (domain.Order, error)
	FindByID(ctx context.Context, ownerUID string, orderID string) (domain.Order, error)
	List(ctx context.Context, ownerUID string, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	// UpdateStatus mutates the order status and appends the matching history
	// entry in one transaction.
	UpdateStatus(ctx context.Context, ownerUID string, orderID string, status domain.OrderStatus, changedAt time.Time) (domain.Order, error)
	AssignFlorist(ctx context.Context, ownerUID string, orderID string, floristName string, updatedAt time.Time) (domain.Order, error)
	UpdateNotes(ctx context.Context, ownerUID string, orderID string, notes string, updatedAt time.Time) (domain.Order, error)
	ListHistory(ctx context.Context, ownerUID string, orderID string) ([]domain.OrderHistoryEntry, error)
}

// FloristRepository stores assignable staff members per owner.
type FloristRepository interface {
	List(ctx context.Context, ownerUID string) ([]domain.Florist, error)
	Insert(ctx context.Context, ownerUID string, florist domain.Florist) (domain.Florist, error)
	Delete(ctx context.Context, ownerUID string, floristID string) error
}

// InventoryRepository stores Business Hub stock records per owner.
type InventoryRepository interface {
	List(ctx context.Context, ownerUID string) ([]domain.InventoryItem, error)
	Get(ctx context.Context, ownerUID string, itemID string) (domain.InventoryItem, error)
	Insert(ctx context.Context, ownerUID string, item domain.InventoryItem) (domain.InventoryItem, error)
	Update(ctx context.Context, ownerUID string, item domain.InventoryItem) (domain.InventoryItem, error)
	Delete(ctx context.Context, ownerUID string, itemID string) error
	// AdjustStock atomically applies a delta to stockQuantity, failing with a
	// conflict when the result would be negative.
	AdjustStock(ctx context.Context, ownerUID string, itemID string, delta int, updatedAt time.Time) (domain.InventoryItem, error)
}

// DirectoryRepository stores the admin-curated master catalogs.
type DirectoryRepository interface {
	List(ctx context.Context, collection domain.DirectoryCollection, activeOnly bool) ([]domain.DirectoryItem, error)
	Get(ctx context.Context, collection domain.DirectoryCollection, itemID string) (domain.DirectoryItem, error)
	Upsert(ctx context.Context, collection domain.DirectoryCollection, item domain.DirectoryItem) (domain.DirectoryItem, error)
	Delete(ctx context.Context, collection domain.DirectoryCollection, itemID string) error
}

// AssetRepository issues signed upload/download URLs for media objects.
type AssetRepository interface {
	CreateSignedUpload(ctx context.Context, cmd SignedUploadRecord) (SignedAssetResponse, error)
	CreateSignedDownload(ctx context.Context, cmd SignedDownloadRecord) (SignedAssetResponse, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

// OrderListFilter narrows Business Hub order listings.
type OrderListFilter struct {
	Status        []domain.OrderStatus
	Source        *domain.OrderSource
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Pagination    domain.Pagination
}

// SignedUploadRecord collects the inputs needed to mint an upload URL.
type SignedUploadRecord struct {
	ActorUID    string
	Purpose     string
	Collection  string
	FileName    string
	ContentType string
	SizeBytes   int64
}

// SignedDownloadRecord collects the inputs needed to mint a download URL.
type SignedDownloadRecord struct {
	ActorUID   string
	OwnerUID   string
	ObjectPath string
}

// SignedAssetResponse carries the minted URL back to the handler layer.
type SignedAssetResponse struct {
	URL        string
	Method     string
	ObjectPath string
	ExpiresAt  time.Time
	Headers    map[string]string
}

