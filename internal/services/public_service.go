package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/repositories"
)

const eventPublicPageServed = "public.page.served"

var (
	// ErrPublicPageNotFound covers a missing slug, a missing profile, and a
	// hidden profile alike so the public surface never leaks which it was.
	ErrPublicPageNotFound = errors.New("public: page not found")
	// ErrPublicInvalidInput signals a malformed slug.
	ErrPublicInvalidInput = errors.New("public: invalid input")
	// ErrPublicUnavailable indicates the persistence layer is unreachable.
	ErrPublicUnavailable = errors.New("public: temporarily unavailable")
)

// PublicServiceDeps bundles collaborators required to construct the public service.
type PublicServiceDeps struct {
	Slugs  repositories.SlugRepository
	Users  repositories.UserRepository
	Blocks repositories.BlockRepository
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type publicService struct {
	slugs    repositories.SlugRepository
	users    repositories.UserRepository
	blocks   repositories.BlockRepository
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
	sanitize *bluemonday.Policy
}

var _ PublicService = (*publicService)(nil)

// NewPublicService wires dependencies into a concrete PublicService implementation.
func NewPublicService(deps PublicServiceDeps) (PublicService, error) {
	if deps.Slugs == nil {
		return nil, errors.New("public service: slug repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("public service: user repository is required")
	}
	if deps.Blocks == nil {
		return nil, errors.New("public service: block repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &publicService{
		slugs:  deps.Slugs,
		users:  deps.Users,
		blocks: deps.Blocks,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
		// User-authored text renders on anonymous pages, so strip all markup.
		sanitize: bluemonday.StrictPolicy(),
	}, nil
}

// Page resolves the slug to a profile and its visible blocks.
func (s *publicService) Page(ctx context.Context, slug string) (PublicPage, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return PublicPage{}, ErrPublicInvalidInput
	}

	reservation, err := s.slugs.Resolve(ctx, slug)
	if err != nil {
		return PublicPage{}, s.translate(err)
	}

	profile, err := s.users.FindByID(ctx, reservation.UID)
	if err != nil {
		return PublicPage{}, s.translate(err)
	}
	if !profile.ShowProfile {
		return PublicPage{}, ErrPublicPageNotFound
	}

	blocks, err := s.blocks.List(ctx, reservation.UID)
	if err != nil {
		return PublicPage{}, s.translate(err)
	}

	now := s.clock()
	visible := make([]PublicBlock, 0, len(blocks))
	for _, block := range blocks {
		if !block.Type.Known() {
			continue
		}
		entry := PublicBlock{Block: s.sanitizeBlock(block)}
		if block.Type == domain.BlockTypePromo && block.Promo != nil {
			countdown := domain.Countdown(block.Promo.ExpiresAt, now)
			entry.Countdown = &countdown
		}
		visible = append(visible, entry)
	}

	s.logger(ctx, eventPublicPageServed, map[string]any{"slug": slug, "blocks": len(visible)})

	return PublicPage{
		Slug: slug,
		Profile: PublicProfile{
			OrgName:    s.clean(profile.OrgName),
			OrgAddress: s.clean(profile.OrgAddress),
			LogoURL:    profile.LogoURL,
			CoverURL:   profile.CoverURL,
		},
		Blocks: visible,
	}, nil
}

func (s *publicService) clean(value string) string {
	return s.sanitize.Sanitize(value)
}

// sanitizeBlock scrubs the user-authored text fields rendered on the page.
// URLs and prices pass through unchanged.
func (s *publicService) sanitizeBlock(block Block) Block {
	switch block.Type {
	case domain.BlockTypeWhatsApp:
		if block.WhatsApp != nil {
			wa := *block.WhatsApp
			wa.Label = s.clean(wa.Label)
			block.WhatsApp = &wa
		}
	case domain.BlockTypeCatalog:
		if block.Catalog != nil {
			cat := *block.Catalog
			cat.Title = s.clean(cat.Title)
			products := make([]domain.Product, len(cat.Products))
			for i, p := range cat.Products {
				p.Name = s.clean(p.Name)
				products[i] = p
			}
			cat.Products = products
			block.Catalog = &cat
		}
	case domain.BlockTypePromo:
		if block.Promo != nil {
			promo := *block.Promo
			promo.Text = s.clean(promo.Text)
			block.Promo = &promo
		}
	case domain.BlockTypeProfile:
		if block.Profile != nil {
			prof := *block.Profile
			prof.OrgName = s.clean(prof.OrgName)
			prof.OrgAddress = s.clean(prof.OrgAddress)
			block.Profile = &prof
		}
	case domain.BlockTypeBouquet:
		if block.Bouquet != nil {
			bq := *block.Bouquet
			bq.Flowers = s.cleanItems(bq.Flowers)
			bq.Wrappings = s.cleanItems(bq.Wrappings)
			block.Bouquet = &bq
		}
	}
	return block
}

func (s *publicService) cleanItems(items []domain.CatalogItem) []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(items))
	for i, item := range items {
		item.Name = s.clean(item.Name)
		out[i] = item
	}
	return out
}

func (s *publicService) translate(err error) error {
	switch {
	case isRepoNotFound(err):
		return ErrPublicPageNotFound
	case isRepoUnavailable(err):
		return ErrPublicUnavailable
	default:
		return err
	}
}
