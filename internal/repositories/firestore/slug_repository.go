package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/go-link/api/internal/domain"
	pfirestore "github.com/go-link/api/internal/platform/firestore"
	"github.com/go-link/api/internal/repositories"
)

const slugsCollection = "slugs"

// SlugRepository owns the slug reservation documents. The document ID is the
// slug itself, which makes uniqueness a Create precondition rather than a
// read-then-write race.
type SlugRepository struct {
	base *pfirestore.BaseRepository[slugDocument]
}

// NewSlugRepository constructs a Firestore-backed slug repository.
func NewSlugRepository(provider *pfirestore.Provider) (*SlugRepository, error) {
	if provider == nil {
		return nil, errors.New("slug repository: firestore provider is required")
	}
	return &SlugRepository{
		base: pfirestore.NewBaseRepository[slugDocument](provider, slugsCollection, nil, nil),
	}, nil
}

// Reserve writes the reservation document, failing with a conflict when the
// slug is already taken.
func (r *SlugRepository) Reserve(ctx context.Context, reservation domain.SlugReservation) error {
	if r == nil || r.base == nil {
		return errors.New("slug repository: not initialised")
	}
	slug := strings.TrimSpace(reservation.Slug)
	if slug == "" {
		return errors.New("slug repository: slug is required")
	}
	uid := strings.TrimSpace(reservation.UID)
	if uid == "" {
		return errors.New("slug repository: uid is required")
	}

	ref, err := r.base.DocumentRef(ctx, slug)
	if err != nil {
		return err
	}
	doc := slugDocument{
		UID:       uid,
		CreatedAt: reservation.CreatedAt.UTC(),
	}
	if _, err := ref.Create(ctx, doc); err != nil {
		return pfirestore.WrapError("slugs.create", err)
	}
	return nil
}

// Resolve looks up the owner of a slug.
func (r *SlugRepository) Resolve(ctx context.Context, slug string) (domain.SlugReservation, error) {
	if r == nil || r.base == nil {
		return domain.SlugReservation{}, errors.New("slug repository: not initialised")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.SlugReservation{}, errors.New("slug repository: slug is required")
	}

	doc, err := r.base.Get(ctx, slug)
	if err != nil {
		return domain.SlugReservation{}, err
	}
	return domain.SlugReservation{
		Slug:      doc.ID,
		UID:       doc.Data.UID,
		CreatedAt: doc.Data.CreatedAt,
	}, nil
}

// Release deletes the reservation when it belongs to the given UID. Releasing
// a slug held by another user is a conflict.
func (r *SlugRepository) Release(ctx context.Context, slug string, uid string) error {
	if r == nil || r.base == nil {
		return errors.New("slug repository: not initialised")
	}
	reservation, err := r.Resolve(ctx, slug)
	if err != nil {
		return err
	}
	if reservation.UID != strings.TrimSpace(uid) {
		return repositories.NewSlugError(repositories.SlugErrorOwnedByOther, "slug reserved by another user", nil)
	}
	_, err = r.base.Delete(ctx, reservation.Slug)
	return err
}

type slugDocument struct {
	UID       string    `firestore:"uid"`
	CreatedAt time.Time `firestore:"createdAt"`
}

var _ repositories.SlugRepository = (*SlugRepository)(nil)
