package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/platform/textutil"
	"github.com/go-link/api/internal/repositories"
)

const (
	eventProfileProvisioned = "profile.provisioned"
	eventProfileUpdated     = "profile.updated"
	eventProfileVisibility  = "profile.visibility.changed"

	// slugProbeLimit bounds suffix probing when every candidate is taken.
	slugProbeLimit = 25
)

var (
	// ErrProfileInvalidInput signals the caller provided invalid arguments.
	ErrProfileInvalidInput = errors.New("profile: invalid input")
	// ErrProfileNotFound indicates no profile exists for the user.
	ErrProfileNotFound = errors.New("profile: not found")
	// ErrProfileAlreadyExists indicates provisioning ran twice for the same user.
	ErrProfileAlreadyExists = errors.New("profile: already exists")
	// ErrProfileSlugExhausted indicates no free slug candidate was found.
	ErrProfileSlugExhausted = errors.New("profile: slug candidates exhausted")
	// ErrProfileUnavailable indicates the persistence layer is unreachable.
	ErrProfileUnavailable = errors.New("profile: temporarily unavailable")
)

// ProfileServiceDeps bundles collaborators required to construct the profile service.
type ProfileServiceDeps struct {
	Users  repositories.UserRepository
	Slugs  repositories.SlugRepository
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type profileService struct {
	users  repositories.UserRepository
	slugs  repositories.SlugRepository
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

var _ ProfileService = (*profileService)(nil)

// NewProfileService wires dependencies into a concrete ProfileService implementation.
func NewProfileService(deps ProfileServiceDeps) (ProfileService, error) {
	if deps.Users == nil {
		return nil, errors.New("profile service: user repository is required")
	}
	if deps.Slugs == nil {
		return nil, errors.New("profile service: slug repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &profileService{
		users:  deps.Users,
		slugs:  deps.Slugs,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

// Provision reserves a slug derived from the organisation name and creates the
// profile. The reservation is written first so a crash between the two writes
// never leaves a profile pointing at an unreserved slug.
func (s *profileService) Provision(ctx context.Context, cmd ProvisionCommand) (Profile, error) {
	uid := strings.TrimSpace(cmd.UID)
	orgName := strings.TrimSpace(cmd.OrgName)
	if uid == "" || orgName == "" {
		return Profile{}, ErrProfileInvalidInput
	}

	if existing, err := s.users.FindByID(ctx, uid); err == nil {
		return existing, ErrProfileAlreadyExists
	} else if !isRepoNotFound(err) {
		return Profile{}, s.translate(err)
	}

	base := textutil.Slugify(orgName)
	if base == "" {
		return Profile{}, ErrProfileInvalidInput
	}

	now := s.clock()
	slug, err := s.reserveSlug(ctx, base, uid, now)
	if err != nil {
		return Profile{}, err
	}

	profile := Profile{
		UID:         uid,
		Email:       strings.TrimSpace(cmd.Email),
		OrgName:     orgName,
		Slug:        slug,
		ShowProfile: true,
		Role:        "user",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.users.Insert(ctx, profile); err != nil {
		// Give the slug back so a retried provision can claim it again.
		if releaseErr := s.slugs.Release(ctx, slug, uid); releaseErr != nil {
			s.logger(ctx, eventProfileProvisioned, map[string]any{
				"uid":   uid,
				"slug":  slug,
				"error": "slug release failed: " + releaseErr.Error(),
			})
		}
		if isRepoConflict(err) {
			return Profile{}, ErrProfileAlreadyExists
		}
		return Profile{}, s.translate(err)
	}

	s.logger(ctx, eventProfileProvisioned, map[string]any{"uid": uid, "slug": slug})
	return profile, nil
}

func (s *profileService) reserveSlug(ctx context.Context, base string, uid string, now time.Time) (string, error) {
	for attempt := 0; attempt <= slugProbeLimit; attempt++ {
		candidate := textutil.SlugCandidate(base, attempt)
		err := s.slugs.Reserve(ctx, domain.SlugReservation{Slug: candidate, UID: uid, CreatedAt: now})
		if err == nil {
			return candidate, nil
		}
		if isRepoConflict(err) {
			continue
		}
		return "", s.translate(err)
	}
	return "", ErrProfileSlugExhausted
}

func (s *profileService) GetProfile(ctx context.Context, uid string) (Profile, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return Profile{}, ErrProfileInvalidInput
	}
	profile, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return Profile{}, s.translate(err)
	}
	return profile, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (Profile, error) {
	uid := strings.TrimSpace(cmd.UID)
	if uid == "" {
		return Profile{}, ErrProfileInvalidInput
	}

	current, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return Profile{}, s.translate(err)
	}

	if cmd.OrgName != nil {
		name := strings.TrimSpace(*cmd.OrgName)
		if name == "" {
			return Profile{}, ErrProfileInvalidInput
		}
		current.OrgName = name
	}
	if cmd.OrgAddress != nil {
		current.OrgAddress = strings.TrimSpace(*cmd.OrgAddress)
	}
	if cmd.LogoURL != nil {
		current.LogoURL = strings.TrimSpace(*cmd.LogoURL)
	}
	if cmd.CoverURL != nil {
		current.CoverURL = strings.TrimSpace(*cmd.CoverURL)
	}
	current.UpdatedAt = s.clock()

	updated, err := s.users.UpdateProfile(ctx, current)
	if err != nil {
		return Profile{}, s.translate(err)
	}

	s.logger(ctx, eventProfileUpdated, map[string]any{"uid": uid})
	return updated, nil
}

func (s *profileService) SetVisibility(ctx context.Context, uid string, visible bool) (Profile, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return Profile{}, ErrProfileInvalidInput
	}

	now := s.clock()
	if err := s.users.SetVisibility(ctx, uid, visible, now); err != nil {
		return Profile{}, s.translate(err)
	}

	profile, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return Profile{}, s.translate(err)
	}

	s.logger(ctx, eventProfileVisibility, map[string]any{"uid": uid, "visible": visible})
	return profile, nil
}

func (s *profileService) translate(err error) error {
	switch {
	case isRepoNotFound(err):
		return ErrProfileNotFound
	case isRepoConflict(err):
		return ErrProfileAlreadyExists
	case isRepoUnavailable(err):
		return ErrProfileUnavailable
	default:
		return err
	}
}
