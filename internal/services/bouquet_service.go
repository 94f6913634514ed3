package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/repositories"
)

const (
	orderEventCreated = "order.created"

	eventBouquetQuoted       = "bouquet.quoted"
	eventBouquetOrderHandOff = "bouquet.order.handoff"
	eventOrderRecordFailed   = "bouquet.order.record.failed"
)

var (
	// ErrBouquetInvalidInput signals the caller provided invalid arguments.
	ErrBouquetInvalidInput = errors.New("bouquet: invalid input")
	// ErrBouquetNotFound indicates the slug or block could not be resolved.
	ErrBouquetNotFound = errors.New("bouquet: not found")
	// ErrBouquetEmptySelection indicates the selection has no flowers.
	ErrBouquetEmptySelection = errors.New("bouquet: selection is empty")
	// ErrBouquetUnknownFlower indicates a selected flower is not offered by the block.
	ErrBouquetUnknownFlower = errors.New("bouquet: unknown flower")
	// ErrBouquetUnknownWrapping indicates the wrapping is not offered by the block.
	ErrBouquetUnknownWrapping = errors.New("bouquet: unknown wrapping")
	// ErrBouquetNoWhatsApp indicates the block has no WhatsApp number to hand off to.
	ErrBouquetNoWhatsApp = errors.New("bouquet: block has no whatsapp number")
	// ErrCatalogOrderInFlight indicates a duplicate buy for the same product is pending.
	ErrCatalogOrderInFlight = errors.New("bouquet: order for this product is already in flight")
	// ErrBouquetUnavailable indicates the persistence layer is unreachable.
	ErrBouquetUnavailable = errors.New("bouquet: temporarily unavailable")
)

// BouquetServiceDeps bundles collaborators required to construct the bouquet service.
type BouquetServiceDeps struct {
	Slugs  repositories.SlugRepository
	Users  repositories.UserRepository
	Blocks repositories.BlockRepository
	Orders repositories.OrderRepository
	Events OrderEventPublisher
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type bouquetService struct {
	slugs  repositories.SlugRepository
	users  repositories.UserRepository
	blocks repositories.BlockRepository
	orders repositories.OrderRepository
	events OrderEventPublisher
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)

	// inFlight guards duplicate catalog buys per uid/block/product.
	inFlightMu sync.Mutex
	inFlight   map[string]struct{}
}

var _ BouquetService = (*bouquetService)(nil)

// NewBouquetService wires dependencies into a concrete BouquetService implementation.
func NewBouquetService(deps BouquetServiceDeps) (BouquetService, error) {
	if deps.Slugs == nil {
		return nil, errors.New("bouquet service: slug repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("bouquet service: user repository is required")
	}
	if deps.Blocks == nil {
		return nil, errors.New("bouquet service: block repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("bouquet service: order repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &bouquetService{
		slugs:    deps.Slugs,
		users:    deps.Users,
		blocks:   deps.Blocks,
		orders:   deps.Orders,
		events:   deps.Events,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}, nil
}

// Quote prices the selection and returns the deep link without recording
// anything.
func (s *bouquetService) Quote(ctx context.Context, cmd BouquetQuoteCommand) (BouquetQuote, error) {
	_, bouquet, err := s.resolveBouquet(ctx, cmd.Slug, cmd.BlockID)
	if err != nil {
		return BouquetQuote{}, err
	}

	items, total, err := buildBouquetLines(bouquet, cmd.Selection, cmd.WrappingID)
	if err != nil {
		return BouquetQuote{}, err
	}

	message := domain.BouquetOrderMessage(items, total)
	s.logger(ctx, eventBouquetQuoted, map[string]any{"slug": cmd.Slug, "blockId": cmd.BlockID, "total": total})

	return BouquetQuote{
		Items:        items,
		Total:        total,
		Message:      message,
		WhatsAppLink: domain.WhatsAppDeepLink(bouquet.WhatsAppNumber, message),
	}, nil
}

// SubmitOrder converts the selection into a WhatsApp hand-off. The deep link
// is always returned when the block carries a number; recording the order on
// the owner's board is best-effort and reported via Recorded.
func (s *bouquetService) SubmitOrder(ctx context.Context, cmd BouquetOrderCommand) (OrderHandOff, error) {
	ownerUID, bouquet, err := s.resolveBouquet(ctx, cmd.Slug, cmd.BlockID)
	if err != nil {
		return OrderHandOff{}, err
	}

	items, total, err := buildBouquetLines(bouquet, cmd.Selection, cmd.WrappingID)
	if err != nil {
		return OrderHandOff{}, err
	}

	message := domain.BouquetOrderMessage(items, total)
	link := domain.WhatsAppDeepLink(bouquet.WhatsAppNumber, message)
	if link == "" {
		return OrderHandOff{}, ErrBouquetNoWhatsApp
	}

	handOff := OrderHandOff{
		WhatsAppLink: link,
		Message:      message,
		Total:        total,
		Items:        items,
	}

	customerPhone := strings.TrimSpace(cmd.CustomerPhone)
	if customerPhone == "" {
		customerPhone = bouquet.WhatsAppNumber
	}
	order := domain.Order{
		Items:         items,
		TotalPrice:    total,
		CustomerPhone: domain.NormalizePhone(customerPhone),
		Status:        domain.OrderStatusNew,
		Source:        domain.OrderSourceBouquet,
	}
	handOff.OrderID, handOff.Recorded = s.recordOrder(ctx, ownerUID, order)

	s.logger(ctx, eventBouquetOrderHandOff, map[string]any{
		"slug": cmd.Slug, "blockId": cmd.BlockID, "total": total, "recorded": handOff.Recorded,
	})
	return handOff, nil
}

// SubmitCatalogOrder handles the single-product buy. A second submission for
// the same product while one is pending is rejected; other products on the
// same block are unaffected.
func (s *bouquetService) SubmitCatalogOrder(ctx context.Context, cmd CatalogOrderCommand) (OrderHandOff, error) {
	ownerUID, block, err := s.resolveBlock(ctx, cmd.Slug, cmd.BlockID)
	if err != nil {
		return OrderHandOff{}, err
	}
	if block.Type != domain.BlockTypeCatalog || block.Catalog == nil {
		return OrderHandOff{}, ErrBouquetNotFound
	}
	if cmd.ProductIdx < 0 || cmd.ProductIdx >= len(block.Catalog.Products) {
		return OrderHandOff{}, fmt.Errorf("%w: product index out of range", ErrBouquetInvalidInput)
	}
	product := block.Catalog.Products[cmd.ProductIdx]

	guard := fmt.Sprintf("%s/%s/%d", ownerUID, block.ID, cmd.ProductIdx)
	if !s.acquire(guard) {
		return OrderHandOff{}, ErrCatalogOrderInFlight
	}
	defer s.release(guard)

	message := domain.CatalogOrderMessage(product)
	link := domain.WhatsAppDeepLink(block.Catalog.WhatsAppNumber, message)
	if link == "" {
		return OrderHandOff{}, ErrBouquetNoWhatsApp
	}

	items := []OrderItem{{Name: product.Name, Quantity: 1, Price: product.Price}}
	handOff := OrderHandOff{
		WhatsAppLink: link,
		Message:      message,
		Total:        product.Price,
		Items:        items,
	}

	order := domain.Order{
		Items:         items,
		TotalPrice:    product.Price,
		CustomerPhone: domain.NormalizePhone(block.Catalog.WhatsAppNumber),
		Status:        domain.OrderStatusNew,
		Source:        domain.OrderSourceCatalog,
	}
	handOff.OrderID, handOff.Recorded = s.recordOrder(ctx, ownerUID, order)

	s.logger(ctx, eventBouquetOrderHandOff, map[string]any{
		"slug": cmd.Slug, "blockId": cmd.BlockID, "product": product.Name, "recorded": handOff.Recorded,
	})
	return handOff, nil
}

// recordOrder persists the order and publishes the created event. Failures are
// logged, never propagated: the WhatsApp hand-off must not be blocked by the
// owner's board being unavailable.
func (s *bouquetService) recordOrder(ctx context.Context, ownerUID string, order domain.Order) (string, bool) {
	created, err := s.orders.Insert(ctx, ownerUID, order)
	if err != nil {
		s.logger(ctx, eventOrderRecordFailed, map[string]any{"ownerUid": ownerUID, "error": err.Error()})
		return "", false
	}

	if s.events != nil {
		message := OrderEventMessage{
			Type:       orderEventCreated,
			OrderID:    created.ID,
			OwnerUID:   ownerUID,
			Status:     string(created.Status),
			Source:     string(created.Source),
			OccurredAt: s.clock(),
		}
		if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
			s.logger(ctx, eventOrderRecordFailed, map[string]any{
				"ownerUid": ownerUID, "orderId": created.ID, "error": "publish: " + err.Error(),
			})
		}
	}
	return created.ID, true
}

func (s *bouquetService) resolveBouquet(ctx context.Context, slug string, blockID string) (string, *domain.BouquetBlock, error) {
	ownerUID, block, err := s.resolveBlock(ctx, slug, blockID)
	if err != nil {
		return "", nil, err
	}
	if block.Type != domain.BlockTypeBouquet || block.Bouquet == nil {
		return "", nil, ErrBouquetNotFound
	}
	return ownerUID, block.Bouquet, nil
}

func (s *bouquetService) resolveBlock(ctx context.Context, slug string, blockID string) (string, domain.Block, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	blockID = strings.TrimSpace(blockID)
	if slug == "" || blockID == "" {
		return "", domain.Block{}, ErrBouquetInvalidInput
	}

	reservation, err := s.slugs.Resolve(ctx, slug)
	if err != nil {
		return "", domain.Block{}, s.translate(err)
	}
	profile, err := s.users.FindByID(ctx, reservation.UID)
	if err != nil {
		return "", domain.Block{}, s.translate(err)
	}
	if !profile.ShowProfile {
		return "", domain.Block{}, ErrBouquetNotFound
	}

	block, err := s.blocks.Get(ctx, reservation.UID, blockID)
	if err != nil {
		return "", domain.Block{}, s.translate(err)
	}
	return reservation.UID, block, nil
}

func (s *bouquetService) acquire(key string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *bouquetService) release(key string) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	delete(s.inFlight, key)
}

// buildBouquetLines validates the selection against the block catalog and
// produces line items in the block's flower order plus the wrapping line.
func buildBouquetLines(bouquet *domain.BouquetBlock, sel Selection, wrappingID string) ([]OrderItem, int64, error) {
	if len(sel) == 0 {
		return nil, 0, ErrBouquetEmptySelection
	}
	for id, qty := range sel {
		if qty <= 0 {
			return nil, 0, fmt.Errorf("%w: quantity for %s must be positive", ErrBouquetInvalidInput, id)
		}
		if _, ok := bouquet.FlowerByID(id); !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrBouquetUnknownFlower, id)
		}
	}

	var wrapping *domain.CatalogItem
	if wrappingID = strings.TrimSpace(wrappingID); wrappingID != "" {
		item, ok := bouquet.WrappingByID(wrappingID)
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrBouquetUnknownWrapping, wrappingID)
		}
		wrapping = &item
	}

	items := make([]OrderItem, 0, len(sel)+1)
	for _, flower := range bouquet.Flowers {
		qty, selected := sel[flower.ID]
		if !selected {
			continue
		}
		items = append(items, OrderItem{Name: flower.Name, Quantity: qty, Price: flower.Price})
	}
	if wrapping != nil {
		items = append(items, OrderItem{Name: wrapping.Name, Quantity: 1, Price: wrapping.Price})
	}

	total := domain.BouquetTotal(sel, bouquet.Flowers, wrapping)
	return items, total, nil
}

func (s *bouquetService) translate(err error) error {
	switch {
	case isRepoNotFound(err):
		return ErrBouquetNotFound
	case isRepoUnavailable(err):
		return ErrBouquetUnavailable
	default:
		return err
	}
}
