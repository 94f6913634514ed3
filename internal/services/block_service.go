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
	eventBlockCreated = "block.created"
	eventBlockUpdated = "block.updated"
	eventBlockDeleted = "block.deleted"
	eventBlockMoved   = "block.moved"
)

var (
	// ErrBlockInvalidInput signals the caller provided invalid arguments.
	ErrBlockInvalidInput = errors.New("block: invalid input")
	// ErrBlockNotFound indicates the block could not be located.
	ErrBlockNotFound = errors.New("block: not found")
	// ErrBlockTypeImmutable indicates an update attempted to change the block type.
	ErrBlockTypeImmutable = errors.New("block: type is immutable")
	// ErrBlockGalleryTooLarge indicates a gallery payload exceeds the image cap.
	ErrBlockGalleryTooLarge = fmt.Errorf("block: gallery holds at most %d images", domain.GalleryMaxImages)
	// ErrBlockUnavailable indicates the persistence layer is unreachable.
	ErrBlockUnavailable = errors.New("block: temporarily unavailable")
)

// BlockServiceDeps bundles collaborators required to construct the block service.
type BlockServiceDeps struct {
	Blocks repositories.BlockRepository
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type blockService struct {
	blocks repositories.BlockRepository
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

var _ BlockService = (*blockService)(nil)

// NewBlockService wires dependencies into a concrete BlockService implementation.
func NewBlockService(deps BlockServiceDeps) (BlockService, error) {
	if deps.Blocks == nil {
		return nil, errors.New("block service: block repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &blockService{
		blocks: deps.Blocks,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

func (s *blockService) ListBlocks(ctx context.Context, uid string) ([]Block, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, ErrBlockInvalidInput
	}
	blocks, err := s.blocks.List(ctx, uid)
	if err != nil {
		return nil, s.translate(err)
	}
	return blocks, nil
}

func (s *blockService) GetBlock(ctx context.Context, uid string, blockID string) (Block, error) {
	uid = strings.TrimSpace(uid)
	blockID = strings.TrimSpace(blockID)
	if uid == "" || blockID == "" {
		return Block{}, ErrBlockInvalidInput
	}
	block, err := s.blocks.Get(ctx, uid, blockID)
	if err != nil {
		return Block{}, s.translate(err)
	}
	return block, nil
}

// CreateBlock appends the block at the end of the sequence: its order is the
// current block count.
func (s *blockService) CreateBlock(ctx context.Context, cmd CreateBlockCommand) (Block, error) {
	uid := strings.TrimSpace(cmd.UID)
	if uid == "" {
		return Block{}, ErrBlockInvalidInput
	}
	block := cmd.Block
	if !block.Type.Known() {
		return Block{}, fmt.Errorf("%w: unknown block type %q", ErrBlockInvalidInput, block.Type)
	}
	if err := validateBlockPayload(block); err != nil {
		return Block{}, err
	}

	existing, err := s.blocks.List(ctx, uid)
	if err != nil {
		return Block{}, s.translate(err)
	}
	block.Order = len(existing)

	created, err := s.blocks.Insert(ctx, uid, block)
	if err != nil {
		return Block{}, s.translate(err)
	}

	s.logger(ctx, eventBlockCreated, map[string]any{"uid": uid, "blockId": created.ID, "type": string(created.Type)})
	return created, nil
}

// UpdateBlock merges the payload into the stored block. Type and order are
// immutable through this path; order only changes via MoveBlock.
func (s *blockService) UpdateBlock(ctx context.Context, cmd UpdateBlockCommand) (Block, error) {
	uid := strings.TrimSpace(cmd.UID)
	blockID := strings.TrimSpace(cmd.Block.ID)
	if uid == "" || blockID == "" {
		return Block{}, ErrBlockInvalidInput
	}

	current, err := s.blocks.Get(ctx, uid, blockID)
	if err != nil {
		return Block{}, s.translate(err)
	}
	if cmd.Block.Type != "" && cmd.Block.Type != current.Type {
		return Block{}, ErrBlockTypeImmutable
	}

	merged := mergeBlockPayload(current, cmd.Block)
	if err := validateBlockPayload(merged); err != nil {
		return Block{}, err
	}

	updated, err := s.blocks.Update(ctx, uid, merged)
	if err != nil {
		return Block{}, s.translate(err)
	}

	s.logger(ctx, eventBlockUpdated, map[string]any{"uid": uid, "blockId": blockID})
	return updated, nil
}

func (s *blockService) DeleteBlock(ctx context.Context, uid string, blockID string) error {
	uid = strings.TrimSpace(uid)
	blockID = strings.TrimSpace(blockID)
	if uid == "" || blockID == "" {
		return ErrBlockInvalidInput
	}
	if err := s.blocks.Delete(ctx, uid, blockID); err != nil {
		return s.translate(err)
	}
	s.logger(ctx, eventBlockDeleted, map[string]any{"uid": uid, "blockId": blockID})
	return nil
}

// MoveBlock shifts the block one position and renumbers the whole sequence in
// one transaction. A boundary move returns the unchanged sequence. When the
// renumbering write fails the pre-move sequence is returned so the caller can
// render the board exactly as it still is in storage.
func (s *blockService) MoveBlock(ctx context.Context, cmd MoveBlockCommand) ([]Block, error) {
	uid := strings.TrimSpace(cmd.UID)
	blockID := strings.TrimSpace(cmd.BlockID)
	if uid == "" || blockID == "" {
		return nil, ErrBlockInvalidInput
	}
	if cmd.Direction != domain.MoveUp && cmd.Direction != domain.MoveDown {
		return nil, fmt.Errorf("%w: direction must be up or down", ErrBlockInvalidInput)
	}

	blocks, err := s.blocks.List(ctx, uid)
	if err != nil {
		return nil, s.translate(err)
	}

	index := -1
	for i, b := range blocks {
		if b.ID == blockID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrBlockNotFound
	}

	move := reorderCommand{
		repo:   s.blocks,
		uid:    uid,
		before: blocks,
	}
	result, moved, err := move.apply(ctx, index, cmd.Direction)
	if err != nil {
		s.logger(ctx, eventBlockMoved, map[string]any{
			"uid": uid, "blockId": blockID, "error": err.Error(),
		})
		return move.rollback(), s.translate(err)
	}
	if moved {
		s.logger(ctx, eventBlockMoved, map[string]any{"uid": uid, "blockId": blockID})
	}
	return result, nil
}

// reorderCommand captures one move attempt so failure can hand the pre-move
// sequence back unchanged.
type reorderCommand struct {
	repo   repositories.BlockRepository
	uid    string
	before []Block
}

func (c *reorderCommand) apply(ctx context.Context, index int, direction domain.MoveDirection) ([]Block, bool, error) {
	permuted, moved := domain.MoveBlock(c.before, index, direction)
	if !moved {
		return c.before, false, nil
	}

	ids := make([]string, 0, len(permuted))
	for _, b := range permuted {
		ids = append(ids, b.ID)
	}
	if err := c.repo.ReplaceOrder(ctx, c.uid, ids); err != nil {
		return nil, false, err
	}
	return permuted, true, nil
}

func (c *reorderCommand) rollback() []Block {
	return c.before
}

func validateBlockPayload(block Block) error {
	if block.Type == domain.BlockTypeGallery && block.Gallery != nil {
		if len(block.Gallery.Images) > domain.GalleryMaxImages {
			return ErrBlockGalleryTooLarge
		}
	}
	if block.Type == domain.BlockTypePromo && block.Promo != nil {
		if strings.TrimSpace(block.Promo.Text) == "" {
			return fmt.Errorf("%w: promo text is required", ErrBlockInvalidInput)
		}
	}
	if block.Type == domain.BlockTypeCatalog && block.Catalog != nil {
		for _, p := range block.Catalog.Products {
			if p.Price < 0 {
				return fmt.Errorf("%w: product price must not be negative", ErrBlockInvalidInput)
			}
		}
	}
	if block.Type == domain.BlockTypeBouquet && block.Bouquet != nil {
		for _, item := range append(block.Bouquet.Flowers, block.Bouquet.Wrappings...) {
			if item.Price < 0 {
				return fmt.Errorf("%w: catalog item price must not be negative", ErrBlockInvalidInput)
			}
		}
	}
	return nil
}

// mergeBlockPayload overlays the incoming payload on the stored block. Only
// the payload pointer matching the block type is considered.
func mergeBlockPayload(current Block, incoming Block) Block {
	merged := current
	switch current.Type {
	case domain.BlockTypeWhatsApp:
		if incoming.WhatsApp != nil {
			merged.WhatsApp = incoming.WhatsApp
		}
	case domain.BlockTypeCatalog:
		if incoming.Catalog != nil {
			merged.Catalog = incoming.Catalog
		}
	case domain.BlockTypeGallery:
		if incoming.Gallery != nil {
			merged.Gallery = incoming.Gallery
		}
	case domain.BlockTypePromo:
		if incoming.Promo != nil {
			merged.Promo = incoming.Promo
		}
	case domain.BlockTypeProfile:
		if incoming.Profile != nil {
			merged.Profile = incoming.Profile
		}
	case domain.BlockTypeBouquet:
		if incoming.Bouquet != nil {
			merged.Bouquet = incoming.Bouquet
		}
	default:
		if incoming.Raw != nil {
			merged.Raw = incoming.Raw
		}
	}
	return merged
}

func (s *blockService) translate(err error) error {
	switch {
	case isRepoNotFound(err):
		return ErrBlockNotFound
	case isRepoUnavailable(err):
		return ErrBlockUnavailable
	default:
		return err
	}
}
