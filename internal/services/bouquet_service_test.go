package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/repositories"
)

type stubSlugRepository struct {
	reserve func(ctx context.Context, reservation domain.SlugReservation) error
	resolve func(ctx context.Context, slug string) (domain.SlugReservation, error)
	release func(ctx context.Context, slug string, uid string) error
}

func (s *stubSlugRepository) Reserve(ctx context.Context, reservation domain.SlugReservation) error {
	if s.reserve == nil {
		return nil
	}
	return s.reserve(ctx, reservation)
}

func (s *stubSlugRepository) Resolve(ctx context.Context, slug string) (domain.SlugReservation, error) {
	if s.resolve == nil {
		return domain.SlugReservation{}, errors.New("resolve not stubbed")
	}
	return s.resolve(ctx, slug)
}

func (s *stubSlugRepository) Release(ctx context.Context, slug string, uid string) error {
	if s.release == nil {
		return nil
	}
	return s.release(ctx, slug, uid)
}

type stubUserRepository struct {
	findByID      func(ctx context.Context, uid string) (domain.Profile, error)
	insert        func(ctx context.Context, profile domain.Profile) error
	updateProfile func(ctx context.Context, profile domain.Profile) (domain.Profile, error)
	setVisibility func(ctx context.Context, uid string, visible bool, updatedAt time.Time) error
}

func (s *stubUserRepository) FindByID(ctx context.Context, uid string) (domain.Profile, error) {
	if s.findByID == nil {
		return domain.Profile{}, errors.New("findByID not stubbed")
	}
	return s.findByID(ctx, uid)
}

func (s *stubUserRepository) Insert(ctx context.Context, profile domain.Profile) error {
	if s.insert == nil {
		return nil
	}
	return s.insert(ctx, profile)
}

func (s *stubUserRepository) UpdateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	if s.updateProfile == nil {
		return profile, nil
	}
	return s.updateProfile(ctx, profile)
}

func (s *stubUserRepository) SetVisibility(ctx context.Context, uid string, visible bool, updatedAt time.Time) error {
	if s.setVisibility == nil {
		return nil
	}
	return s.setVisibility(ctx, uid, visible, updatedAt)
}

type stubBlockRepository struct {
	list         func(ctx context.Context, uid string) ([]domain.Block, error)
	get          func(ctx context.Context, uid string, blockID string) (domain.Block, error)
	insert       func(ctx context.Context, uid string, block domain.Block) (domain.Block, error)
	update       func(ctx context.Context, uid string, block domain.Block) (domain.Block, error)
	delete       func(ctx context.Context, uid string, blockID string) error
	replaceOrder func(ctx context.Context, uid string, orderedIDs []string) error
}

func (s *stubBlockRepository) List(ctx context.Context, uid string) ([]domain.Block, error) {
	if s.list == nil {
		return nil, nil
	}
	return s.list(ctx, uid)
}

func (s *stubBlockRepository) Get(ctx context.Context, uid string, blockID string) (domain.Block, error) {
	if s.get == nil {
		return domain.Block{}, errors.New("get not stubbed")
	}
	return s.get(ctx, uid, blockID)
}

func (s *stubBlockRepository) Insert(ctx context.Context, uid string, block domain.Block) (domain.Block, error) {
	if s.insert == nil {
		return block, nil
	}
	return s.insert(ctx, uid, block)
}

func (s *stubBlockRepository) Update(ctx context.Context, uid string, block domain.Block) (domain.Block, error) {
	if s.update == nil {
		return block, nil
	}
	return s.update(ctx, uid, block)
}

func (s *stubBlockRepository) Delete(ctx context.Context, uid string, blockID string) error {
	if s.delete == nil {
		return nil
	}
	return s.delete(ctx, uid, blockID)
}

func (s *stubBlockRepository) ReplaceOrder(ctx context.Context, uid string, orderedIDs []string) error {
	if s.replaceOrder == nil {
		return nil
	}
	return s.replaceOrder(ctx, uid, orderedIDs)
}

type stubOrderRepository struct {
	insert        func(ctx context.Context, ownerUID string, order domain.Order) (domain.Order, error)
	findByID      func(ctx context.Context, ownerUID string, orderID string) (domain.Order, error)
	list          func(ctx context.Context, ownerUID string, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	updateStatus  func(ctx context.Context, ownerUID string, orderID string, status domain.OrderStatus, changedAt time.Time) (domain.Order, error)
	assignFlorist func(ctx context.Context, ownerUID string, orderID string, floristName string, updatedAt time.Time) (domain.Order, error)
	updateNotes   func(ctx context.Context, ownerUID string, orderID string, notes string, updatedAt time.Time) (domain.Order, error)
	listHistory   func(ctx context.Context, ownerUID string, orderID string) ([]domain.OrderHistoryEntry, error)
}

func (s *stubOrderRepository) Insert(ctx context.Context, ownerUID string, order domain.Order) (domain.Order, error) {
	if s.insert == nil {
		order.ID = "order-1"
		return order, nil
	}
	return s.insert(ctx, ownerUID, order)
}

func (s *stubOrderRepository) FindByID(ctx context.Context, ownerUID string, orderID string) (domain.Order, error) {
	if s.findByID == nil {
		return domain.Order{}, errors.New("findByID not stubbed")
	}
	return s.findByID(ctx, ownerUID, orderID)
}

func (s *stubOrderRepository) List(ctx context.Context, ownerUID string, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.list == nil {
		return domain.CursorPage[domain.Order]{}, nil
	}
	return s.list(ctx, ownerUID, filter)
}

func (s *stubOrderRepository) UpdateStatus(ctx context.Context, ownerUID string, orderID string, status domain.OrderStatus, changedAt time.Time) (domain.Order, error) {
	if s.updateStatus == nil {
		return domain.Order{}, errors.New("updateStatus not stubbed")
	}
	return s.updateStatus(ctx, ownerUID, orderID, status, changedAt)
}

func (s *stubOrderRepository) AssignFlorist(ctx context.Context, ownerUID string, orderID string, floristName string, updatedAt time.Time) (domain.Order, error) {
	if s.assignFlorist == nil {
		return domain.Order{}, errors.New("assignFlorist not stubbed")
	}
	return s.assignFlorist(ctx, ownerUID, orderID, floristName, updatedAt)
}

func (s *stubOrderRepository) UpdateNotes(ctx context.Context, ownerUID string, orderID string, notes string, updatedAt time.Time) (domain.Order, error) {
	if s.updateNotes == nil {
		return domain.Order{}, errors.New("updateNotes not stubbed")
	}
	return s.updateNotes(ctx, ownerUID, orderID, notes, updatedAt)
}

func (s *stubOrderRepository) ListHistory(ctx context.Context, ownerUID string, orderID string) ([]domain.OrderHistoryEntry, error) {
	if s.listHistory == nil {
		return nil, nil
	}
	return s.listHistory(ctx, ownerUID, orderID)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func bouquetFixtureDeps(orders repositories.OrderRepository) BouquetServiceDeps {
	bouquetBlock := domain.Block{
		ID:   "blk-1",
		Type: domain.BlockTypeBouquet,
		Bouquet: &domain.BouquetBlock{
			Flowers: []domain.CatalogItem{
				{ID: "roses", Name: "Розы", Price: 300},
				{ID: "tulips", Name: "Тюльпаны", Price: 250},
			},
			Wrappings: []domain.CatalogItem{
				{ID: "kraft", Name: "Крафт", Price: 500},
			},
			WhatsAppNumber: "+7 (700) 123-45-67",
		},
	}
	catalogBlock := domain.Block{
		ID:   "blk-2",
		Type: domain.BlockTypeCatalog,
		Catalog: &domain.CatalogBlock{
			WhatsAppNumber: "+7 700 123 45 67",
			Products: []domain.Product{
				{Name: "Букет дня", Price: 7000},
				{Name: "Пионы", Price: 12000},
			},
		},
	}

	return BouquetServiceDeps{
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
				return domain.Profile{UID: uid, OrgName: "Цветы", ShowProfile: true}, nil
			},
		},
		Blocks: &stubBlockRepository{
			get: func(_ context.Context, _ string, blockID string) (domain.Block, error) {
				switch blockID {
				case bouquetBlock.ID:
					return bouquetBlock, nil
				case catalogBlock.ID:
					return catalogBlock, nil
				default:
					return domain.Block{}, errNotFoundProbe{}
				}
			},
		},
		Orders: orders,
		Clock:  fixedClock(time.Date(2025, 4, 20, 10, 0, 0, 0, time.UTC)),
	}
}

// errNotFoundProbe satisfies repositories.RepositoryError for stubbed misses.
type errNotFoundProbe struct{}

func (errNotFoundProbe) Error() string       { return "not found" }
func (errNotFoundProbe) IsNotFound() bool    { return true }
func (errNotFoundProbe) IsConflict() bool    { return false }
func (errNotFoundProbe) IsUnavailable() bool { return false }

func TestBouquetQuoteComputesRosesWithKraftExample(t *testing.T) {
	svc, err := NewBouquetService(bouquetFixtureDeps(&stubOrderRepository{}))
	if err != nil {
		t.Fatalf("NewBouquetService: %v", err)
	}

	quote, err := svc.Quote(context.Background(), BouquetQuoteCommand{
		Slug:       "flower-shop",
		BlockID:    "blk-1",
		Selection:  Selection{"roses": 3},
		WrappingID: "kraft",
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	if quote.Total != 1400 {
		t.Fatalf("expected total 1400 got %d", quote.Total)
	}
	if len(quote.Items) != 2 {
		t.Fatalf("expected 2 line items got %d", len(quote.Items))
	}
	if quote.Items[0].Name != "Розы" || quote.Items[0].Quantity != 3 {
		t.Fatalf("unexpected first line: %+v", quote.Items[0])
	}
	if quote.Items[1].Name != "Крафт" || quote.Items[1].Quantity != 1 {
		t.Fatalf("unexpected wrapping line: %+v", quote.Items[1])
	}
	if !strings.Contains(quote.Message, "Здравствуйте! Хочу заказать букет:") {
		t.Fatalf("greeting missing from message: %q", quote.Message)
	}
	if !strings.Contains(quote.Message, "*Итого: 1400 ₸*") {
		t.Fatalf("total line missing from message: %q", quote.Message)
	}
	if !strings.HasPrefix(quote.WhatsAppLink, "https://wa.me/77001234567?text=") {
		t.Fatalf("unexpected deep link: %q", quote.WhatsAppLink)
	}
}

func TestBouquetQuoteRejectsUnknownFlower(t *testing.T) {
	svc, _ := NewBouquetService(bouquetFixtureDeps(&stubOrderRepository{}))

	_, err := svc.Quote(context.Background(), BouquetQuoteCommand{
		Slug:      "flower-shop",
		BlockID:   "blk-1",
		Selection: Selection{"orchid": 1},
	})
	if !errors.Is(err, ErrBouquetUnknownFlower) {
		t.Fatalf("expected ErrBouquetUnknownFlower got %v", err)
	}
}

func TestBouquetQuoteRejectsEmptySelection(t *testing.T) {
	svc, _ := NewBouquetService(bouquetFixtureDeps(&stubOrderRepository{}))

	_, err := svc.Quote(context.Background(), BouquetQuoteCommand{
		Slug:      "flower-shop",
		BlockID:   "blk-1",
		Selection: Selection{},
	})
	if !errors.Is(err, ErrBouquetEmptySelection) {
		t.Fatalf("expected ErrBouquetEmptySelection got %v", err)
	}
}

func TestSubmitOrderReturnsLinkEvenWhenRecordingFails(t *testing.T) {
	orders := &stubOrderRepository{
		insert: func(context.Context, string, domain.Order) (domain.Order, error) {
			return domain.Order{}, errors.New("firestore down")
		},
	}
	svc, _ := NewBouquetService(bouquetFixtureDeps(orders))

	handOff, err := svc.SubmitOrder(context.Background(), BouquetOrderCommand{
		Slug:      "flower-shop",
		BlockID:   "blk-1",
		Selection: Selection{"roses": 3},
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if handOff.WhatsAppLink == "" {
		t.Fatal("expected deep link despite recording failure")
	}
	if handOff.Recorded {
		t.Fatal("expected recorded=false when insert fails")
	}
	if handOff.OrderID != "" {
		t.Fatalf("expected empty order id got %q", handOff.OrderID)
	}
}

func TestSubmitOrderRecordsOrderWithDigitsOnlyPhone(t *testing.T) {
	var captured domain.Order
	orders := &stubOrderRepository{
		insert: func(_ context.Context, ownerUID string, order domain.Order) (domain.Order, error) {
			if ownerUID != "uid-1" {
				t.Fatalf("unexpected owner uid %q", ownerUID)
			}
			captured = order
			order.ID = "order-7"
			return order, nil
		},
	}
	svc, _ := NewBouquetService(bouquetFixtureDeps(orders))

	handOff, err := svc.SubmitOrder(context.Background(), BouquetOrderCommand{
		Slug:       "flower-shop",
		BlockID:    "blk-1",
		Selection:  Selection{"roses": 3, "tulips": 2},
		WrappingID: "kraft",
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if !handOff.Recorded || handOff.OrderID != "order-7" {
		t.Fatalf("expected recorded order-7 got %+v", handOff)
	}
	if captured.CustomerPhone != "77001234567" {
		t.Fatalf("expected digits-only phone got %q", captured.CustomerPhone)
	}
	if captured.Status != domain.OrderStatusNew {
		t.Fatalf("expected status new got %q", captured.Status)
	}
	if captured.Source != domain.OrderSourceBouquet {
		t.Fatalf("expected source bouquet got %q", captured.Source)
	}
	// 3x300 + 2x250 + 500 wrapping
	if captured.TotalPrice != 1900 {
		t.Fatalf("expected total 1900 got %d", captured.TotalPrice)
	}
}

func TestSubmitCatalogOrderInFlightGuardIsPerProduct(t *testing.T) {
	started := make(chan struct{})
	proceed := make(chan struct{})
	var startedOnce sync.Once
	orders := &stubOrderRepository{
		insert: func(_ context.Context, _ string, order domain.Order) (domain.Order, error) {
			if order.Items[0].Name == "Букет дня" {
				startedOnce.Do(func() { close(started) })
				<-proceed
			}
			order.ID = "order-" + order.Items[0].Name
			return order, nil
		},
	}
	svc, _ := NewBouquetService(bouquetFixtureDeps(orders))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.SubmitCatalogOrder(context.Background(), CatalogOrderCommand{
			Slug: "flower-shop", BlockID: "blk-2", ProductIdx: 0,
		})
		if err != nil {
			t.Errorf("first submit: %v", err)
		}
	}()

	<-started

	// Duplicate submission for the same product while pending is rejected.
	_, err := svc.SubmitCatalogOrder(context.Background(), CatalogOrderCommand{
		Slug: "flower-shop", BlockID: "blk-2", ProductIdx: 0,
	})
	if !errors.Is(err, ErrCatalogOrderInFlight) {
		t.Fatalf("expected ErrCatalogOrderInFlight got %v", err)
	}

	// A different product on the same block is unaffected.
	if _, err := svc.SubmitCatalogOrder(context.Background(), CatalogOrderCommand{
		Slug: "flower-shop", BlockID: "blk-2", ProductIdx: 1,
	}); err != nil {
		t.Fatalf("second product submit: %v", err)
	}

	close(proceed)
	wg.Wait()

	// After the first completes, the product is submittable again.
	if _, err := svc.SubmitCatalogOrder(context.Background(), CatalogOrderCommand{
		Slug: "flower-shop", BlockID: "blk-2", ProductIdx: 0,
	}); err != nil {
		t.Fatalf("resubmit after completion: %v", err)
	}
}

func TestSubmitOrderHiddenProfileIsNotFound(t *testing.T) {
	deps := bouquetFixtureDeps(&stubOrderRepository{})
	deps.Users = &stubUserRepository{
		findByID: func(_ context.Context, uid string) (domain.Profile, error) {
			return domain.Profile{UID: uid, ShowProfile: false}, nil
		},
	}
	svc, _ := NewBouquetService(deps)

	_, err := svc.SubmitOrder(context.Background(), BouquetOrderCommand{
		Slug: "flower-shop", BlockID: "blk-1", Selection: Selection{"roses": 1},
	})
	if !errors.Is(err, ErrBouquetNotFound) {
		t.Fatalf("expected ErrBouquetNotFound got %v", err)
	}
}

func TestSubmitCatalogOrderProductIndexOutOfRange(t *testing.T) {
	svc, _ := NewBouquetService(bouquetFixtureDeps(&stubOrderRepository{}))

	_, err := svc.SubmitCatalogOrder(context.Background(), CatalogOrderCommand{
		Slug: "flower-shop", BlockID: "blk-2", ProductIdx: 5,
	})
	if !errors.Is(err, ErrBouquetInvalidInput) {
		t.Fatalf("expected ErrBouquetInvalidInput got %v", err)
	}
}
