package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/go-link/api/internal/domain"
)

func newPublicServiceForTest(t *testing.T, deps PublicServiceDeps) PublicService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = fixedClock(time.Date(2025, 4, 20, 10, 0, 0, 0, time.UTC))
	}
	svc, err := NewPublicService(deps)
	if err != nil {
		t.Fatalf("NewPublicService: %v", err)
	}
	return svc
}

func publicFixtureDeps(blocks []domain.Block, showProfile bool) PublicServiceDeps {
	return PublicServiceDeps{
		Slugs: &stubSlugRepository{
			resolve: func(_ context.Context, slug string) (domain.SlugReservation, error) {
				if slug != "flower-shop" {
					return domain.SlugReservation{}, errNotFoundProbe{}
				}
				return domain.SlugReservation{Slug: slug, UID: "uid-1"}, nil
			},
		},
		Users: &stubUserRepository{
			findByID: func(_ context.Context, uid string) (domain.Profile, error) {
				return domain.Profile{
					UID:         uid,
					OrgName:     "Цветы у Ани",
					OrgAddress:  "ул. Абая 10",
					ShowProfile: showProfile,
				}, nil
			},
		},
		Blocks: &stubBlockRepository{
			list: func(context.Context, string) ([]domain.Block, error) {
				return blocks, nil
			},
		},
	}
}

func TestPageHiddenProfileIsNotFound(t *testing.T) {
	svc := newPublicServiceForTest(t, publicFixtureDeps(nil, false))

	_, err := svc.Page(context.Background(), "flower-shop")
	if !errors.Is(err, ErrPublicPageNotFound) {
		t.Fatalf("expected ErrPublicPageNotFound got %v", err)
	}
}

func TestPageUnknownSlugIsNotFound(t *testing.T) {
	svc := newPublicServiceForTest(t, publicFixtureDeps(nil, true))

	_, err := svc.Page(context.Background(), "no-such-shop")
	if !errors.Is(err, ErrPublicPageNotFound) {
		t.Fatalf("expected ErrPublicPageNotFound got %v", err)
	}
}

func TestPageSkipsUnknownBlockTypes(t *testing.T) {
	blocks := []domain.Block{
		{ID: "b1", Type: domain.BlockTypeWhatsApp, WhatsApp: &domain.WhatsAppBlock{Number: "77001234567"}},
		{ID: "b2", Type: "video", Raw: map[string]any{"url": "clip.mp4"}},
		{ID: "b3", Type: domain.BlockTypeGallery, Gallery: &domain.GalleryBlock{Images: []string{"a.jpg"}}},
	}
	svc := newPublicServiceForTest(t, publicFixtureDeps(blocks, true))

	page, err := svc.Page(context.Background(), "flower-shop")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page.Blocks) != 2 {
		t.Fatalf("expected 2 rendered blocks got %d", len(page.Blocks))
	}
	if page.Blocks[0].Block.ID != "b1" || page.Blocks[1].Block.ID != "b3" {
		t.Fatalf("unexpected block sequence: %+v", page.Blocks)
	}
}

func TestPageSanitizesUserAuthoredText(t *testing.T) {
	blocks := []domain.Block{
		{
			ID:   "b1",
			Type: domain.BlockTypePromo,
			Promo: &domain.PromoBlock{
				Text:      `Скидка <script>alert(1)</script>20%`,
				ExpiresAt: time.Date(2025, 4, 21, 10, 0, 0, 0, time.UTC),
			},
		},
		{
			ID:   "b2",
			Type: domain.BlockTypeCatalog,
			Catalog: &domain.CatalogBlock{
				Title:    `<img src=x onerror=alert(1)>Каталог`,
				Products: []domain.Product{{Name: `<b>Пионы</b>`, Price: 12000}},
			},
		},
	}
	svc := newPublicServiceForTest(t, publicFixtureDeps(blocks, true))

	page, err := svc.Page(context.Background(), "flower-shop")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	promo := page.Blocks[0].Block.Promo
	if strings.Contains(promo.Text, "<script>") {
		t.Fatalf("script tag survived sanitization: %q", promo.Text)
	}
	catalog := page.Blocks[1].Block.Catalog
	if strings.Contains(catalog.Title, "<img") {
		t.Fatalf("img tag survived sanitization: %q", catalog.Title)
	}
	if catalog.Products[0].Name != "Пионы" {
		t.Fatalf("expected stripped product name got %q", catalog.Products[0].Name)
	}
	if catalog.Products[0].Price != 12000 {
		t.Fatalf("price must pass through unchanged, got %d", catalog.Products[0].Price)
	}
}

func TestPageSanitizationDoesNotMutateStoredBlocks(t *testing.T) {
	promo := &domain.PromoBlock{Text: "<b>Акция</b>", ExpiresAt: time.Date(2025, 4, 21, 10, 0, 0, 0, time.UTC)}
	blocks := []domain.Block{{ID: "b1", Type: domain.BlockTypePromo, Promo: promo}}
	svc := newPublicServiceForTest(t, publicFixtureDeps(blocks, true))

	if _, err := svc.Page(context.Background(), "flower-shop"); err != nil {
		t.Fatalf("Page: %v", err)
	}
	if promo.Text != "<b>Акция</b>" {
		t.Fatalf("stored payload mutated: %q", promo.Text)
	}
}

func TestPageAttachesPromoCountdown(t *testing.T) {
	now := time.Date(2025, 4, 20, 10, 0, 0, 0, time.UTC)
	blocks := []domain.Block{
		{
			ID:    "active",
			Type:  domain.BlockTypePromo,
			Promo: &domain.PromoBlock{Text: "Акция", ExpiresAt: now.Add(90 * time.Minute)},
		},
		{
			ID:    "expired",
			Type:  domain.BlockTypePromo,
			Promo: &domain.PromoBlock{Text: "Старая акция", ExpiresAt: now.Add(-time.Minute)},
		},
	}
	deps := publicFixtureDeps(blocks, true)
	deps.Clock = fixedClock(now)
	svc := newPublicServiceForTest(t, deps)

	page, err := svc.Page(context.Background(), "flower-shop")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	active := page.Blocks[0].Countdown
	if active == nil || active.Expired {
		t.Fatalf("expected running countdown got %+v", active)
	}
	if active.Hours != 1 || active.Minutes != 30 || active.Seconds != 0 {
		t.Fatalf("unexpected countdown %+v", active)
	}
	expired := page.Blocks[1].Countdown
	if expired == nil || !expired.Expired {
		t.Fatalf("expected expired countdown got %+v", expired)
	}
}

func TestPageNormalizesSlugCase(t *testing.T) {
	svc := newPublicServiceForTest(t, publicFixtureDeps(nil, true))

	page, err := svc.Page(context.Background(), "  Flower-Shop ")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if page.Slug != "flower-shop" {
		t.Fatalf("expected normalized slug got %q", page.Slug)
	}
	if page.Profile.OrgName != "Цветы у Ани" {
		t.Fatalf("unexpected profile: %+v", page.Profile)
	}
}
