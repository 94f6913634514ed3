package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-link/api/internal/repositories"
)

const (
	eventInventoryCreated  = "inventory.item.created"
	eventInventoryUpdated  = "inventory.item.updated"
	eventInventoryDeleted  = "inventory.item.deleted"
	eventInventoryAdjusted = "inventory.stock.adjusted"
)

var (
	// ErrInventoryInvalidInput signals the caller provided invalid arguments.
	ErrInventoryInvalidInput = errors.New("inventory: invalid input")
	// ErrInventoryNotFound indicates the stock record could not be located.
	ErrInventoryNotFound = errors.New("inventory: item not found")
	// ErrInventoryInsufficientStock indicates the adjustment would drive stock below zero.
	ErrInventoryInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInventoryUnavailable indicates the persistence layer is unreachable.
	ErrInventoryUnavailable = errors.New("inventory: temporarily unavailable")
)

// InventoryServiceDeps bundles collaborators required to construct the inventory service.
type InventoryServiceDeps struct {
	Inventory repositories.InventoryRepository
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type inventoryService struct {
	inventory repositories.InventoryRepository
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
}

var _ InventoryService = (*inventoryService)(nil)

// NewInventoryService wires dependencies into a concrete InventoryService implementation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Inventory == nil {
		return nil, errors.New("inventory service: inventory repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &inventoryService{
		inventory: deps.Inventory,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

func (s *inventoryService) ListItems(ctx context.Context, ownerUID string) ([]InventoryItem, error) {
	ownerUID = strings.TrimSpace(ownerUID)
	if ownerUID == "" {
		return nil, ErrInventoryInvalidInput
	}
	items, err := s.inventory.List(ctx, ownerUID)
	if err != nil {
		return nil, s.translate(err)
	}
	return items, nil
}

func (s *inventoryService) CreateItem(ctx context.Context, cmd InventoryItemCommand) (InventoryItem, error) {
	ownerUID := strings.TrimSpace(cmd.OwnerUID)
	if ownerUID == "" {
		return InventoryItem{}, ErrInventoryInvalidInput
	}
	if err := validateInventoryItem(cmd.Item); err != nil {
		return InventoryItem{}, err
	}

	created, err := s.inventory.Insert(ctx, ownerUID, cmd.Item)
	if err != nil {
		return InventoryItem{}, s.translate(err)
	}

	s.logger(ctx, eventInventoryCreated, map[string]any{"ownerUid": ownerUID, "itemId": created.ID})
	return created, nil
}

func (s *inventoryService) UpdateItem(ctx context.Context, cmd InventoryItemCommand) (InventoryItem, error) {
	ownerUID := strings.TrimSpace(cmd.OwnerUID)
	if ownerUID == "" || strings.TrimSpace(cmd.Item.ID) == "" {
		return InventoryItem{}, ErrInventoryInvalidInput
	}
	if err := validateInventoryItem(cmd.Item); err != nil {
		return InventoryItem{}, err
	}

	updated, err := s.inventory.Update(ctx, ownerUID, cmd.Item)
	if err != nil {
		return InventoryItem{}, s.translate(err)
	}

	s.logger(ctx, eventInventoryUpdated, map[string]any{"ownerUid": ownerUID, "itemId": updated.ID})
	return updated, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, ownerUID string, itemID string) error {
	ownerUID = strings.TrimSpace(ownerUID)
	itemID = strings.TrimSpace(itemID)
	if ownerUID == "" || itemID == "" {
		return ErrInventoryInvalidInput
	}
	if err := s.inventory.Delete(ctx, ownerUID, itemID); err != nil {
		return s.translate(err)
	}
	s.logger(ctx, eventInventoryDeleted, map[string]any{"ownerUid": ownerUID, "itemId": itemID})
	return nil
}

func (s *inventoryService) AdjustStock(ctx context.Context, ownerUID string, itemID string, delta int) (InventoryItem, error) {
	ownerUID = strings.TrimSpace(ownerUID)
	itemID = strings.TrimSpace(itemID)
	if ownerUID == "" || itemID == "" {
		return InventoryItem{}, ErrInventoryInvalidInput
	}
	if delta == 0 {
		return InventoryItem{}, fmt.Errorf("%w: delta must be non-zero", ErrInventoryInvalidInput)
	}

	adjusted, err := s.inventory.AdjustStock(ctx, ownerUID, itemID, delta, s.clock())
	if err != nil {
		return InventoryItem{}, s.translate(err)
	}

	s.logger(ctx, eventInventoryAdjusted, map[string]any{
		"ownerUid": ownerUID, "itemId": itemID, "delta": delta, "stock": adjusted.StockQuantity,
	})
	return adjusted, nil
}

func validateInventoryItem(item InventoryItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInventoryInvalidInput)
	}
	if item.Price < 0 || item.CostPrice < 0 {
		return fmt.Errorf("%w: prices must not be negative", ErrInventoryInvalidInput)
	}
	if item.StockQuantity < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInventoryInvalidInput)
	}
	return nil
}

func (s *inventoryService) translate(err error) error {
	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		switch invErr.Code {
		case repositories.InventoryErrorItemNotFound:
			return ErrInventoryNotFound
		case repositories.InventoryErrorInsufficientStock:
			return ErrInventoryInsufficientStock
		}
	}
	switch {
	case isRepoNotFound(err):
		return ErrInventoryNotFound
	case isRepoUnavailable(err):
		return ErrInventoryUnavailable
	default:
		return err
	}
}
