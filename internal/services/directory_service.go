package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/repositories"
)

const (
	eventDirectoryUpserted = "directory.item.upserted"
	eventDirectoryDeleted  = "directory.item.deleted"
)

var (
	// ErrDirectoryInvalidInput signals the caller provided invalid arguments.
	ErrDirectoryInvalidInput = errors.New("directory: invalid input")
	// ErrDirectoryNotFound indicates the catalog entry could not be located.
	ErrDirectoryNotFound = errors.New("directory: item not found")
	// ErrDirectoryUnavailable indicates the persistence layer is unreachable.
	ErrDirectoryUnavailable = errors.New("directory: temporarily unavailable")
)

// DirectoryServiceDeps bundles collaborators required to construct the directory service.
type DirectoryServiceDeps struct {
	Directory repositories.DirectoryRepository
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type directoryService struct {
	directory repositories.DirectoryRepository
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
}

var _ DirectoryService = (*directoryService)(nil)

// NewDirectoryService wires dependencies into a concrete DirectoryService implementation.
func NewDirectoryService(deps DirectoryServiceDeps) (DirectoryService, error) {
	if deps.Directory == nil {
		return nil, errors.New("directory service: directory repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &directoryService{
		directory: deps.Directory,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

func (s *directoryService) ListItems(ctx context.Context, collection domain.DirectoryCollection, activeOnly bool) ([]DirectoryItem, error) {
	if !collection.Valid() {
		return nil, fmt.Errorf("%w: unknown collection %q", ErrDirectoryInvalidInput, collection)
	}
	items, err := s.directory.List(ctx, collection, activeOnly)
	if err != nil {
		return nil, s.translate(err)
	}
	return items, nil
}

func (s *directoryService) UpsertItem(ctx context.Context, cmd DirectoryItemCommand) (DirectoryItem, error) {
	if !cmd.Collection.Valid() {
		return DirectoryItem{}, fmt.Errorf("%w: unknown collection %q", ErrDirectoryInvalidInput, cmd.Collection)
	}
	if strings.TrimSpace(cmd.Item.Name) == "" {
		return DirectoryItem{}, fmt.Errorf("%w: name is required", ErrDirectoryInvalidInput)
	}
	if cmd.Item.Price < 0 {
		return DirectoryItem{}, fmt.Errorf("%w: price must not be negative", ErrDirectoryInvalidInput)
	}

	item, err := s.directory.Upsert(ctx, cmd.Collection, cmd.Item)
	if err != nil {
		return DirectoryItem{}, s.translate(err)
	}

	s.logger(ctx, eventDirectoryUpserted, map[string]any{
		"collection": string(cmd.Collection), "itemId": item.ID,
	})
	return item, nil
}

func (s *directoryService) DeleteItem(ctx context.Context, collection domain.DirectoryCollection, itemID string) error {
	if !collection.Valid() {
		return fmt.Errorf("%w: unknown collection %q", ErrDirectoryInvalidInput, collection)
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return ErrDirectoryInvalidInput
	}
	if err := s.directory.Delete(ctx, collection, itemID); err != nil {
		return s.translate(err)
	}
	s.logger(ctx, eventDirectoryDeleted, map[string]any{"collection": string(collection), "itemId": itemID})
	return nil
}

func (s *directoryService) translate(err error) error {
	switch {
	case isRepoNotFound(err):
		return ErrDirectoryNotFound
	case isRepoUnavailable(err):
		return ErrDirectoryUnavailable
	default:
		return err
	}
}
