package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-link/api/internal/repositories"
)

const (
	eventFloristAdded   = "florist.added"
	eventFloristRemoved = "florist.removed"
)

var (
	// ErrFloristInvalidInput signals the caller provided invalid arguments.
	ErrFloristInvalidInput = errors.New("florist: invalid input")
	// ErrFloristNotFound indicates the florist could not be located.
	ErrFloristNotFound = errors.New("florist: not found")
	// ErrFloristDuplicate indicates a florist with the same name already exists.
	ErrFloristDuplicate = errors.New("florist: name already on the roster")
	// ErrFloristUnavailable indicates the persistence layer is unreachable.
	ErrFloristUnavailable = errors.New("florist: temporarily unavailable")
)

// FloristServiceDeps bundles collaborators required to construct the florist service.
type FloristServiceDeps struct {
	Florists repositories.FloristRepository
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type floristService struct {
	florists repositories.FloristRepository
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

var _ FloristService = (*floristService)(nil)

// NewFloristService wires dependencies into a concrete FloristService implementation.
func NewFloristService(deps FloristServiceDeps) (FloristService, error) {
	if deps.Florists == nil {
		return nil, errors.New("florist service: florist repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &floristService{
		florists: deps.Florists,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

func (s *floristService) ListFlorists(ctx context.Context, ownerUID string) ([]Florist, error) {
	ownerUID = strings.TrimSpace(ownerUID)
	if ownerUID == "" {
		return nil, ErrFloristInvalidInput
	}
	florists, err := s.florists.List(ctx, ownerUID)
	if err != nil {
		return nil, s.translate(err)
	}
	return florists, nil
}

func (s *floristService) AddFlorist(ctx context.Context, ownerUID string, name string) (Florist, error) {
	ownerUID = strings.TrimSpace(ownerUID)
	name = strings.TrimSpace(name)
	if ownerUID == "" || name == "" {
		return Florist{}, ErrFloristInvalidInput
	}

	existing, err := s.florists.List(ctx, ownerUID)
	if err != nil {
		return Florist{}, s.translate(err)
	}
	for _, f := range existing {
		if strings.EqualFold(f.Name, name) {
			return Florist{}, ErrFloristDuplicate
		}
	}

	created, err := s.florists.Insert(ctx, ownerUID, Florist{Name: name, CreatedAt: s.clock()})
	if err != nil {
		return Florist{}, s.translate(err)
	}

	s.logger(ctx, eventFloristAdded, map[string]any{"ownerUid": ownerUID, "floristId": created.ID})
	return created, nil
}

func (s *floristService) RemoveFlorist(ctx context.Context, ownerUID string, floristID string) error {
	ownerUID = strings.TrimSpace(ownerUID)
	floristID = strings.TrimSpace(floristID)
	if ownerUID == "" || floristID == "" {
		return ErrFloristInvalidInput
	}
	if err := s.florists.Delete(ctx, ownerUID, floristID); err != nil {
		return s.translate(err)
	}
	s.logger(ctx, eventFloristRemoved, map[string]any{"ownerUid": ownerUID, "floristId": floristID})
	return nil
}

func (s *floristService) translate(err error) error {
	switch {
	case isRepoNotFound(err):
		return ErrFloristNotFound
	case isRepoUnavailable(err):
		return ErrFloristUnavailable
	default:
		return err
	}
}
