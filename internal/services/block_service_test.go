package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/go-link/api/internal/domain"
)

func blockFixtures() []domain.Block {
	return []domain.Block{
		{ID: "b1", Type: domain.BlockTypeProfile, Order: 0, Profile: &domain.ProfileBlock{OrgName: "Цветы"}},
		{ID: "b2", Type: domain.BlockTypeWhatsApp, Order: 1, WhatsApp: &domain.WhatsAppBlock{Number: "77001234567"}},
		{ID: "b3", Type: domain.BlockTypeGallery, Order: 2, Gallery: &domain.GalleryBlock{Images: []string{"a.jpg"}}},
	}
}

func newBlockServiceForTest(t *testing.T, repo *stubBlockRepository) BlockService {
	t.Helper()
	svc, err := NewBlockService(BlockServiceDeps{
		Blocks: repo,
		Clock:  fixedClock(time.Date(2025, 4, 20, 10, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewBlockService: %v", err)
	}
	return svc
}

func TestCreateBlockAppendsAtEndOfSequence(t *testing.T) {
	var inserted domain.Block
	repo := &stubBlockRepository{
		list: func(context.Context, string) ([]domain.Block, error) {
			return blockFixtures(), nil
		},
		insert: func(_ context.Context, _ string, block domain.Block) (domain.Block, error) {
			inserted = block
			block.ID = "b4"
			return block, nil
		},
	}
	svc := newBlockServiceForTest(t, repo)

	created, err := svc.CreateBlock(context.Background(), CreateBlockCommand{
		UID: "uid-1",
		Block: domain.Block{
			Type:  domain.BlockTypePromo,
			Promo: &domain.PromoBlock{Text: "Скидка 20%"},
		},
	})
	if err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	if inserted.Order != 3 {
		t.Fatalf("expected order 3 got %d", inserted.Order)
	}
	if created.ID != "b4" {
		t.Fatalf("expected id b4 got %q", created.ID)
	}
}

func TestCreateBlockRejectsUnknownType(t *testing.T) {
	svc := newBlockServiceForTest(t, &stubBlockRepository{})

	_, err := svc.CreateBlock(context.Background(), CreateBlockCommand{
		UID:   "uid-1",
		Block: domain.Block{Type: "video"},
	})
	if !errors.Is(err, ErrBlockInvalidInput) {
		t.Fatalf("expected ErrBlockInvalidInput got %v", err)
	}
}

func TestCreateBlockEnforcesGalleryCap(t *testing.T) {
	svc := newBlockServiceForTest(t, &stubBlockRepository{})

	images := make([]string, domain.GalleryMaxImages+1)
	for i := range images {
		images[i] = "img.jpg"
	}
	_, err := svc.CreateBlock(context.Background(), CreateBlockCommand{
		UID:   "uid-1",
		Block: domain.Block{Type: domain.BlockTypeGallery, Gallery: &domain.GalleryBlock{Images: images}},
	})
	if !errors.Is(err, ErrBlockGalleryTooLarge) {
		t.Fatalf("expected ErrBlockGalleryTooLarge got %v", err)
	}
}

func TestUpdateBlockTypeIsImmutable(t *testing.T) {
	repo := &stubBlockRepository{
		get: func(context.Context, string, string) (domain.Block, error) {
			return blockFixtures()[1], nil
		},
	}
	svc := newBlockServiceForTest(t, repo)

	_, err := svc.UpdateBlock(context.Background(), UpdateBlockCommand{
		UID:   "uid-1",
		Block: domain.Block{ID: "b2", Type: domain.BlockTypePromo},
	})
	if !errors.Is(err, ErrBlockTypeImmutable) {
		t.Fatalf("expected ErrBlockTypeImmutable got %v", err)
	}
}

func TestUpdateBlockMergesMatchingPayloadOnly(t *testing.T) {
	repo := &stubBlockRepository{
		get: func(context.Context, string, string) (domain.Block, error) {
			return blockFixtures()[1], nil
		},
		update: func(_ context.Context, _ string, block domain.Block) (domain.Block, error) {
			return block, nil
		},
	}
	svc := newBlockServiceForTest(t, repo)

	updated, err := svc.UpdateBlock(context.Background(), UpdateBlockCommand{
		UID: "uid-1",
		Block: domain.Block{
			ID:       "b2",
			WhatsApp: &domain.WhatsAppBlock{Number: "77009990000", Label: "Написать"},
			Gallery:  &domain.GalleryBlock{Images: []string{"x.jpg"}},
		},
	})
	if err != nil {
		t.Fatalf("UpdateBlock: %v", err)
	}
	if updated.WhatsApp == nil || updated.WhatsApp.Number != "77009990000" {
		t.Fatalf("whatsapp payload not merged: %+v", updated.WhatsApp)
	}
	if updated.Gallery != nil {
		t.Fatal("gallery payload must be ignored on a whatsapp block")
	}
	if updated.Order != 1 {
		t.Fatalf("order must stay 1 got %d", updated.Order)
	}
}

func TestMoveBlockSwapsNeighboursAndRenumbers(t *testing.T) {
	var replaced []string
	repo := &stubBlockRepository{
		list: func(context.Context, string) ([]domain.Block, error) {
			return blockFixtures(), nil
		},
		replaceOrder: func(_ context.Context, _ string, orderedIDs []string) error {
			replaced = orderedIDs
			return nil
		},
	}
	svc := newBlockServiceForTest(t, repo)

	result, err := svc.MoveBlock(context.Background(), MoveBlockCommand{
		UID: "uid-1", BlockID: "b3", Direction: domain.MoveUp,
	})
	if err != nil {
		t.Fatalf("MoveBlock: %v", err)
	}
	wantIDs := []string{"b1", "b3", "b2"}
	for i, id := range wantIDs {
		if replaced[i] != id {
			t.Fatalf("persisted order %v want %v", replaced, wantIDs)
		}
		if result[i].ID != id || result[i].Order != i {
			t.Fatalf("result[%d] = %+v want id %s order %d", i, result[i], id, i)
		}
	}
}

func TestMoveBlockBoundaryIsNoOp(t *testing.T) {
	replaceCalled := false
	repo := &stubBlockRepository{
		list: func(context.Context, string) ([]domain.Block, error) {
			return blockFixtures(), nil
		},
		replaceOrder: func(context.Context, string, []string) error {
			replaceCalled = true
			return nil
		},
	}
	svc := newBlockServiceForTest(t, repo)

	result, err := svc.MoveBlock(context.Background(), MoveBlockCommand{
		UID: "uid-1", BlockID: "b1", Direction: domain.MoveUp,
	})
	if err != nil {
		t.Fatalf("MoveBlock: %v", err)
	}
	if replaceCalled {
		t.Fatal("boundary move must not write")
	}
	for i, id := range []string{"b1", "b2", "b3"} {
		if result[i].ID != id {
			t.Fatalf("sequence changed on boundary move: %+v", result)
		}
	}
}

func TestMoveBlockReturnsPreMoveSequenceWhenWriteFails(t *testing.T) {
	repo := &stubBlockRepository{
		list: func(context.Context, string) ([]domain.Block, error) {
			return blockFixtures(), nil
		},
		replaceOrder: func(context.Context, string, []string) error {
			return errors.New("transaction aborted")
		},
	}
	svc := newBlockServiceForTest(t, repo)

	result, err := svc.MoveBlock(context.Background(), MoveBlockCommand{
		UID: "uid-1", BlockID: "b2", Direction: domain.MoveDown,
	})
	if err == nil {
		t.Fatal("expected error from failed reorder")
	}
	for i, id := range []string{"b1", "b2", "b3"} {
		if result[i].ID != id {
			t.Fatalf("expected pre-move sequence, got %+v", result)
		}
	}
}

func TestMoveBlockUnknownBlock(t *testing.T) {
	repo := &stubBlockRepository{
		list: func(context.Context, string) ([]domain.Block, error) {
			return blockFixtures(), nil
		},
	}
	svc := newBlockServiceForTest(t, repo)

	_, err := svc.MoveBlock(context.Background(), MoveBlockCommand{
		UID: "uid-1", BlockID: "missing", Direction: domain.MoveDown,
	})
	if !errors.Is(err, ErrBlockNotFound) {
		t.Fatalf("expected ErrBlockNotFound got %v", err)
	}
}
