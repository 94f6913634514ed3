package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/go-link/api/internal/domain"
	pfirestore "github.com/go-link/api/internal/platform/firestore"
	"github.com/go-link/api/internal/repositories"
)

const inventorySubcollection = "inventory"

// InventoryRepository stores stock records at users/{uid}/inventory.
type InventoryRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[inventoryDocument]
	clock    func() time.Time
	newID    func() string
}

// InventoryRepositoryOption customises repository behaviour.
type InventoryRepositoryOption func(*InventoryRepository)

// WithInventoryRepositoryClock overrides the clock used for timestamps.
func WithInventoryRepositoryClock(clock func() time.Time) InventoryRepositoryOption {
	return func(r *InventoryRepository) {
		if clock != nil {
			r.clock = func() time.Time { return clock().UTC() }
		}
	}
}

// WithInventoryRepositoryIDGenerator overrides the document ID generator.
func WithInventoryRepositoryIDGenerator(generator func() string) InventoryRepositoryOption {
	return func(r *InventoryRepository) {
		if generator != nil {
			r.newID = generator
		}
	}
}

// NewInventoryRepository constructs a Firestore-backed inventory repository.
func NewInventoryRepository(provider *pfirestore.Provider, opts ...InventoryRepositoryOption) (*InventoryRepository, error) {
	if provider == nil {
		return nil, errors.New("inventory repository: firestore provider is required")
	}
	repo := &InventoryRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[inventoryDocument](provider, usersCollection, nil, nil),
		clock:    func() time.Time { return time.Now().UTC() },
		newID:    func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

func (r *InventoryRepository) scoped(ownerUID string) (*pfirestore.BaseRepository[inventoryDocument], error) {
	ownerUID = strings.TrimSpace(ownerUID)
	if ownerUID == "" {
		return nil, errors.New("inventory repository: owner uid is required")
	}
	return r.base.Scoped(ownerUID, inventorySubcollection)
}

// List returns all stock records ordered by name.
func (r *InventoryRepository) List(ctx context.Context, ownerUID string) ([]domain.InventoryItem, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("inventory repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return nil, err
	}
	docs, err := scoped.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.InventoryItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data.toDomain(doc.ID))
	}
	return items, nil
}

// Get loads a single stock record.
func (r *InventoryRepository) Get(ctx context.Context, ownerUID string, itemID string) (domain.InventoryItem, error) {
	if r == nil || r.base == nil {
		return domain.InventoryItem{}, errors.New("inventory repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	doc, err := scoped.Get(ctx, strings.TrimSpace(itemID))
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Insert creates a stock record.
func (r *InventoryRepository) Insert(ctx context.Context, ownerUID string, item domain.InventoryItem) (domain.InventoryItem, error) {
	if r == nil || r.base == nil {
		return domain.InventoryItem{}, errors.New("inventory repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	now := r.clock()
	if strings.TrimSpace(item.ID) == "" {
		item.ID = r.newID()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = item.CreatedAt
	if _, err := scoped.Set(ctx, item.ID, inventoryDocumentFrom(item)); err != nil {
		return domain.InventoryItem{}, err
	}
	return item, nil
}

// Update replaces the stock record, preserving its creation timestamp.
func (r *InventoryRepository) Update(ctx context.Context, ownerUID string, item domain.InventoryItem) (domain.InventoryItem, error) {
	if r == nil || r.base == nil {
		return domain.InventoryItem{}, errors.New("inventory repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	itemID := strings.TrimSpace(item.ID)
	existing, err := scoped.Get(ctx, itemID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	item.ID = itemID
	item.CreatedAt = existing.Data.CreatedAt
	item.UpdatedAt = r.clock()
	if _, err := scoped.Set(ctx, itemID, inventoryDocumentFrom(item)); err != nil {
		return domain.InventoryItem{}, err
	}
	return item, nil
}

// Delete removes the stock record.
func (r *InventoryRepository) Delete(ctx context.Context, ownerUID string, itemID string) error {
	if r == nil || r.base == nil {
		return errors.New("inventory repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return err
	}
	_, err = scoped.Delete(ctx, strings.TrimSpace(itemID))
	return err
}

// AdjustStock applies the delta to stockQuantity inside a transaction. The
// write is rejected when the resulting quantity would be negative.
func (r *InventoryRepository) AdjustStock(ctx context.Context, ownerUID string, itemID string, delta int, updatedAt time.Time) (domain.InventoryItem, error) {
	if r == nil || r.base == nil {
		return domain.InventoryItem{}, errors.New("inventory repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	itemID = strings.TrimSpace(itemID)
	ref, err := scoped.DocumentRef(ctx, itemID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	updatedAt = updatedAt.UTC()
	var adjusted domain.InventoryItem
	err = pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewInventoryError(repositories.InventoryErrorItemNotFound,
					fmt.Sprintf("inventory item %s not found", itemID), err)
			}
			return err
		}
		var doc inventoryDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		next := doc.StockQuantity + delta
		if next < 0 {
			return repositories.NewInventoryError(repositories.InventoryErrorInsufficientStock,
				fmt.Sprintf("stock for %s cannot go below zero (have %d, delta %d)", itemID, doc.StockQuantity, delta), nil)
		}
		doc.StockQuantity = next
		doc.UpdatedAt = updatedAt
		adjusted = doc.toDomain(snap.Ref.ID)
		return tx.Update(ref, []firestore.Update{
			{Path: "stockQuantity", Value: next},
			{Path: "updatedAt", Value: updatedAt},
		})
	})
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return adjusted, nil
}

type inventoryDocument struct {
	Name          string    `firestore:"name"`
	Price         int64     `firestore:"price"`
	CostPrice     int64     `firestore:"costPrice"`
	StockQuantity int       `firestore:"stockQuantity"`
	ImageURL      string    `firestore:"imageUrl,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func inventoryDocumentFrom(item domain.InventoryItem) inventoryDocument {
	return inventoryDocument{
		Name:          strings.TrimSpace(item.Name),
		Price:         item.Price,
		CostPrice:     item.CostPrice,
		StockQuantity: item.StockQuantity,
		ImageURL:      strings.TrimSpace(item.ImageURL),
		CreatedAt:     item.CreatedAt.UTC(),
		UpdatedAt:     item.UpdatedAt.UTC(),
	}
}

func (d inventoryDocument) toDomain(id string) domain.InventoryItem {
	return domain.InventoryItem{
		ID:            id,
		Name:          d.Name,
		Price:         d.Price,
		CostPrice:     d.CostPrice,
		StockQuantity: d.StockQuantity,
		ImageURL:      d.ImageURL,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

var _ repositories.InventoryRepository = (*InventoryRepository)(nil)
