package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"

	domain "github.com/go-link/api/internal/domain"
	pfirestore "github.com/go-link/api/internal/platform/firestore"
	"github.com/go-link/api/internal/repositories"
)

const floristsSubcollection = "florists"

// FloristRepository stores the per-shop florist roster at users/{uid}/florists.
type FloristRepository struct {
	base  *pfirestore.BaseRepository[floristDocument]
	clock func() time.Time
	newID func() string
}

// FloristRepositoryOption customises repository behaviour.
type FloristRepositoryOption func(*FloristRepository)

// WithFloristRepositoryClock overrides the clock used for timestamps.
func WithFloristRepositoryClock(clock func() time.Time) FloristRepositoryOption {
	return func(r *FloristRepository) {
		if clock != nil {
			r.clock = func() time.Time { return clock().UTC() }
		}
	}
}

// WithFloristRepositoryIDGenerator overrides the document ID generator.
func WithFloristRepositoryIDGenerator(generator func() string) FloristRepositoryOption {
	return func(r *FloristRepository) {
		if generator != nil {
			r.newID = generator
		}
	}
}

// NewFloristRepository constructs a Firestore-backed florist repository.
func NewFloristRepository(provider *pfirestore.Provider, opts ...FloristRepositoryOption) (*FloristRepository, error) {
	if provider == nil {
		return nil, errors.New("florist repository: firestore provider is required")
	}
	repo := &FloristRepository{
		base:  pfirestore.NewBaseRepository[floristDocument](provider, usersCollection, nil, nil),
		clock: func() time.Time { return time.Now().UTC() },
		newID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

func (r *FloristRepository) scoped(ownerUID string) (*pfirestore.BaseRepository[floristDocument], error) {
	ownerUID = strings.TrimSpace(ownerUID)
	if ownerUID == "" {
		return nil, errors.New("florist repository: owner uid is required")
	}
	return r.base.Scoped(ownerUID, floristsSubcollection)
}

// List returns the roster ordered by name.
func (r *FloristRepository) List(ctx context.Context, ownerUID string) ([]domain.Florist, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("florist repository: not initialised")
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
	florists := make([]domain.Florist, 0, len(docs))
	for _, doc := range docs {
		florists = append(florists, doc.Data.toDomain(doc.ID))
	}
	return florists, nil
}

// Insert adds a florist to the roster.
func (r *FloristRepository) Insert(ctx context.Context, ownerUID string, florist domain.Florist) (domain.Florist, error) {
	if r == nil || r.base == nil {
		return domain.Florist{}, errors.New("florist repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return domain.Florist{}, err
	}
	if strings.TrimSpace(florist.ID) == "" {
		florist.ID = r.newID()
	}
	if florist.CreatedAt.IsZero() {
		florist.CreatedAt = r.clock()
	}
	doc := floristDocument{Name: strings.TrimSpace(florist.Name), CreatedAt: florist.CreatedAt.UTC()}
	if _, err := scoped.Set(ctx, florist.ID, doc); err != nil {
		return domain.Florist{}, err
	}
	return doc.toDomain(florist.ID), nil
}

// Delete removes a florist from the roster.
func (r *FloristRepository) Delete(ctx context.Context, ownerUID string, floristID string) error {
	if r == nil || r.base == nil {
		return errors.New("florist repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return err
	}
	_, err = scoped.Delete(ctx, strings.TrimSpace(floristID))
	return err
}

type floristDocument struct {
	Name      string    `firestore:"name"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func (d floristDocument) toDomain(id string) domain.Florist {
	return domain.Florist{ID: id, Name: d.Name, CreatedAt: d.CreatedAt}
}

var _ repositories.FloristRepository = (*FloristRepository)(nil)
