package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/go-link/api/internal/domain"
)

type stubFloristRepository struct {
	list   func(ctx context.Context, ownerUID string) ([]domain.Florist, error)
	insert func(ctx context.Context, ownerUID string, florist domain.Florist) (domain.Florist, error)
	delete func(ctx context.Context, ownerUID string, floristID string) error
}

func (s *stubFloristRepository) List(ctx context.Context, ownerUID string) ([]domain.Florist, error) {
	if s.list == nil {
		return nil, nil
	}
	return s.list(ctx, ownerUID)
}

func (s *stubFloristRepository) Insert(ctx context.Context, ownerUID string, florist domain.Florist) (domain.Florist, error) {
	if s.insert == nil {
		florist.ID = "fl-1"
		return florist, nil
	}
	return s.insert(ctx, ownerUID, florist)
}

func (s *stubFloristRepository) Delete(ctx context.Context, ownerUID string, floristID string) error {
	if s.delete == nil {
		return nil
	}
	return s.delete(ctx, ownerUID, floristID)
}

func newFloristServiceForTest(t *testing.T, repo *stubFloristRepository) FloristService {
	t.Helper()
	svc, err := NewFloristService(FloristServiceDeps{
		Florists: repo,
		Clock:    fixedClock(time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewFloristService: %v", err)
	}
	return svc
}

func TestAddFloristTrimsAndStampsCreatedAt(t *testing.T) {
	var inserted domain.Florist
	repo := &stubFloristRepository{
		insert: func(_ context.Context, _ string, florist domain.Florist) (domain.Florist, error) {
			inserted = florist
			florist.ID = "fl-1"
			return florist, nil
		},
	}
	svc := newFloristServiceForTest(t, repo)

	created, err := svc.AddFlorist(context.Background(), "uid-1", "  Айгуль ")
	if err != nil {
		t.Fatalf("AddFlorist: %v", err)
	}
	if inserted.Name != "Айгуль" {
		t.Fatalf("expected trimmed name got %q", inserted.Name)
	}
	if inserted.CreatedAt.IsZero() {
		t.Fatal("expected createdAt stamped")
	}
	if created.ID != "fl-1" {
		t.Fatalf("expected id fl-1 got %q", created.ID)
	}
}

func TestAddFloristRejectsCaseInsensitiveDuplicate(t *testing.T) {
	repo := &stubFloristRepository{
		list: func(context.Context, string) ([]domain.Florist, error) {
			return []domain.Florist{{ID: "fl-1", Name: "Aigul"}}, nil
		},
	}
	svc := newFloristServiceForTest(t, repo)

	_, err := svc.AddFlorist(context.Background(), "uid-1", "AIGUL")
	if !errors.Is(err, ErrFloristDuplicate) {
		t.Fatalf("expected ErrFloristDuplicate got %v", err)
	}
}

func TestRemoveFloristRequiresIDs(t *testing.T) {
	svc := newFloristServiceForTest(t, &stubFloristRepository{})

	if err := svc.RemoveFlorist(context.Background(), "uid-1", " "); !errors.Is(err, ErrFloristInvalidInput) {
		t.Fatalf("expected ErrFloristInvalidInput got %v", err)
	}
}

func TestRemoveFloristTranslatesNotFound(t *testing.T) {
	repo := &stubFloristRepository{
		delete: func(context.Context, string, string) error {
			return errNotFoundProbe{}
		},
	}
	svc := newFloristServiceForTest(t, repo)

	if err := svc.RemoveFlorist(context.Background(), "uid-1", "fl-9"); !errors.Is(err, ErrFloristNotFound) {
		t.Fatalf("expected ErrFloristNotFound got %v", err)
	}
}
