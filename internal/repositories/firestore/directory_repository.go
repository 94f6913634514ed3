package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"

	domain "github.com/go-link/api/internal/domain"
	pfirestore "github.com/go-link/api/internal/platform/firestore"
	"github.com/go-link/api/internal/repositories"
)

// DirectoryRepository stores the admin-curated master catalogs. Each
// domain.DirectoryCollection maps to a top-level Firestore collection.
type DirectoryRepository struct {
	provider *pfirestore.Provider
	newID    func() string
}

// DirectoryRepositoryOption customises repository behaviour.
type DirectoryRepositoryOption func(*DirectoryRepository)

// WithDirectoryRepositoryIDGenerator overrides the document ID generator.
func WithDirectoryRepositoryIDGenerator(generator func() string) DirectoryRepositoryOption {
	return func(r *DirectoryRepository) {
		if generator != nil {
			r.newID = generator
		}
	}
}

// NewDirectoryRepository constructs a Firestore-backed directory repository.
func NewDirectoryRepository(provider *pfirestore.Provider, opts ...DirectoryRepositoryOption) (*DirectoryRepository, error) {
	if provider == nil {
		return nil, errors.New("directory repository: firestore provider is required")
	}
	repo := &DirectoryRepository{
		provider: provider,
		newID:    func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

func (r *DirectoryRepository) base(collection domain.DirectoryCollection) (*pfirestore.BaseRepository[directoryDocument], error) {
	if !collection.Valid() {
		return nil, fmt.Errorf("directory repository: unknown collection %q", collection)
	}
	return pfirestore.NewBaseRepository[directoryDocument](r.provider, string(collection), nil, nil), nil
}

// List returns catalog entries ordered by name, optionally only active ones.
func (r *DirectoryRepository) List(ctx context.Context, collection domain.DirectoryCollection, activeOnly bool) ([]domain.DirectoryItem, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("directory repository: not initialised")
	}
	base, err := r.base(collection)
	if err != nil {
		return nil, err
	}
	docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
		if activeOnly {
			q = q.Where("isActive", "==", true)
		}
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.DirectoryItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data.toDomain(doc.ID))
	}
	return items, nil
}

// Get loads a single catalog entry.
func (r *DirectoryRepository) Get(ctx context.Context, collection domain.DirectoryCollection, itemID string) (domain.DirectoryItem, error) {
	if r == nil || r.provider == nil {
		return domain.DirectoryItem{}, errors.New("directory repository: not initialised")
	}
	base, err := r.base(collection)
	if err != nil {
		return domain.DirectoryItem{}, err
	}
	doc, err := base.Get(ctx, strings.TrimSpace(itemID))
	if err != nil {
		return domain.DirectoryItem{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Upsert creates or replaces a catalog entry.
func (r *DirectoryRepository) Upsert(ctx context.Context, collection domain.DirectoryCollection, item domain.DirectoryItem) (domain.DirectoryItem, error) {
	if r == nil || r.provider == nil {
		return domain.DirectoryItem{}, errors.New("directory repository: not initialised")
	}
	base, err := r.base(collection)
	if err != nil {
		return domain.DirectoryItem{}, err
	}
	if strings.TrimSpace(item.ID) == "" {
		item.ID = r.newID()
	}
	doc := directoryDocument{
		Name:     strings.TrimSpace(item.Name),
		Price:    item.Price,
		ImageURL: strings.TrimSpace(item.ImageURL),
		IsActive: item.IsActive,
	}
	if _, err := base.Set(ctx, item.ID, doc); err != nil {
		return domain.DirectoryItem{}, err
	}
	return doc.toDomain(item.ID), nil
}

// Delete removes a catalog entry.
func (r *DirectoryRepository) Delete(ctx context.Context, collection domain.DirectoryCollection, itemID string) error {
	if r == nil || r.provider == nil {
		return errors.New("directory repository: not initialised")
	}
	base, err := r.base(collection)
	if err != nil {
		return err
	}
	_, err = base.Delete(ctx, strings.TrimSpace(itemID))
	return err
}

type directoryDocument struct {
	Name     string `firestore:"name"`
	Price    int64  `firestore:"price"`
	ImageURL string `firestore:"imageUrl,omitempty"`
	IsActive bool   `firestore:"isActive"`
}

func (d directoryDocument) toDomain(id string) domain.DirectoryItem {
	return domain.DirectoryItem{
		ID:       id,
		Name:     d.Name,
		Price:    d.Price,
		ImageURL: d.ImageURL,
		IsActive: d.IsActive,
	}
}

var _ repositories.DirectoryRepository = (*DirectoryRepository)(nil)
