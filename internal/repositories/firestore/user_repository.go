package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/go-link/api/internal/domain"
	pfirestore "github.com/go-link/api/internal/platform/firestore"
	"github.com/go-link/api/internal/repositories"
)

const usersCollection = "users"

// UserRepository persists florist profiles keyed by Firebase UID.
type UserRepository struct {
	base *pfirestore.BaseRepository[profileDocument]
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository: firestore provider is required")
	}
	return &UserRepository{
		base: pfirestore.NewBaseRepository[profileDocument](provider, usersCollection, nil, nil),
	}, nil
}

// FindByID loads the profile stored at users/{uid}.
func (r *UserRepository) FindByID(ctx context.Context, uid string) (domain.Profile, error) {
	if r == nil || r.base == nil {
		return domain.Profile{}, errors.New("user repository: not initialised")
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return domain.Profile{}, errors.New("user repository: uid is required")
	}

	doc, err := r.base.Get(ctx, uid)
	if err != nil {
		return domain.Profile{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Insert creates the profile document. Fails when the document already exists.
func (r *UserRepository) Insert(ctx context.Context, profile domain.Profile) error {
	if r == nil || r.base == nil {
		return errors.New("user repository: not initialised")
	}
	uid := strings.TrimSpace(profile.UID)
	if uid == "" {
		return errors.New("user repository: uid is required")
	}

	ref, err := r.base.DocumentRef(ctx, uid)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, profileDocumentFrom(profile)); err != nil {
		return pfirestore.WrapError("users.create", err)
	}
	return nil
}

// UpdateProfile persists the editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	if r == nil || r.base == nil {
		return domain.Profile{}, errors.New("user repository: not initialised")
	}
	uid := strings.TrimSpace(profile.UID)
	if uid == "" {
		return domain.Profile{}, errors.New("user repository: uid is required")
	}

	updates := []firestore.Update{
		{Path: "orgName", Value: strings.TrimSpace(profile.OrgName)},
		{Path: "orgAddress", Value: strings.TrimSpace(profile.OrgAddress)},
		{Path: "logoUrl", Value: strings.TrimSpace(profile.LogoURL)},
		{Path: "coverUrl", Value: strings.TrimSpace(profile.CoverURL)},
		{Path: "updatedAt", Value: profile.UpdatedAt.UTC()},
	}
	if slug := strings.TrimSpace(profile.Slug); slug != "" {
		updates = append(updates, firestore.Update{Path: "slug", Value: slug})
	}

	result, err := r.base.Update(ctx, uid, updates)
	if err != nil {
		return domain.Profile{}, err
	}

	saved := profile
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

// SetVisibility toggles the public page flag.
func (r *UserRepository) SetVisibility(ctx context.Context, uid string, visible bool, updatedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("user repository: not initialised")
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return errors.New("user repository: uid is required")
	}

	_, err := r.base.Update(ctx, uid, []firestore.Update{
		{Path: "showProfile", Value: visible},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	})
	return err
}

type profileDocument struct {
	Email               string     `firestore:"email,omitempty"`
	OrgName             string     `firestore:"orgName"`
	OrgAddress          string     `firestore:"orgAddress,omitempty"`
	LogoURL             string     `firestore:"logoUrl,omitempty"`
	CoverURL            string     `firestore:"coverUrl,omitempty"`
	Slug                string     `firestore:"slug,omitempty"`
	ShowProfile         bool       `firestore:"showProfile"`
	Role                string     `firestore:"role,omitempty"`
	SubscriptionExpires *time.Time `firestore:"subscriptionExpires,omitempty"`
	CreatedAt           time.Time  `firestore:"createdAt"`
	UpdatedAt           time.Time  `firestore:"updatedAt"`
}

func profileDocumentFrom(profile domain.Profile) profileDocument {
	return profileDocument{
		Email:               strings.TrimSpace(profile.Email),
		OrgName:             strings.TrimSpace(profile.OrgName),
		OrgAddress:          strings.TrimSpace(profile.OrgAddress),
		LogoURL:             strings.TrimSpace(profile.LogoURL),
		CoverURL:            strings.TrimSpace(profile.CoverURL),
		Slug:                strings.TrimSpace(profile.Slug),
		ShowProfile:         profile.ShowProfile,
		Role:                strings.TrimSpace(profile.Role),
		SubscriptionExpires: profile.SubscriptionExpires,
		CreatedAt:           profile.CreatedAt.UTC(),
		UpdatedAt:           profile.UpdatedAt.UTC(),
	}
}

func (d profileDocument) toDomain(uid string) domain.Profile {
	return domain.Profile{
		UID:                 uid,
		Email:               d.Email,
		OrgName:             d.OrgName,
		OrgAddress:          d.OrgAddress,
		LogoURL:             d.LogoURL,
		CoverURL:            d.CoverURL,
		Slug:                d.Slug,
		ShowProfile:         d.ShowProfile,
		Role:                d.Role,
		SubscriptionExpires: d.SubscriptionExpires,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

var _ repositories.UserRepository = (*UserRepository)(nil)
