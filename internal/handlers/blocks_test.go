package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/platform/auth"
	"github.com/go-link/api/internal/services"
)

type stubBlockService struct {
	listFunc   func(ctx context.Context, uid string) ([]domain.Block, error)
	getFunc    func(ctx context.Context, uid string, blockID string) (domain.Block, error)
	createFunc func(ctx context.Context, cmd services.CreateBlockCommand) (domain.Block, error)
	updateFunc func(ctx context.Context, cmd services.UpdateBlockCommand) (domain.Block, error)
	deleteFunc func(ctx context.Context, uid string, blockID string) error
	moveFunc   func(ctx context.Context, cmd services.MoveBlockCommand) ([]domain.Block, error)
}

func (s *stubBlockService) ListBlocks(ctx context.Context, uid string) ([]domain.Block, error) {
	return s.listFunc(ctx, uid)
}

func (s *stubBlockService) GetBlock(ctx context.Context, uid string, blockID string) (domain.Block, error) {
	return s.getFunc(ctx, uid, blockID)
}

func (s *stubBlockService) CreateBlock(ctx context.Context, cmd services.CreateBlockCommand) (domain.Block, error) {
	return s.createFunc(ctx, cmd)
}

func (s *stubBlockService) UpdateBlock(ctx context.Context, cmd services.UpdateBlockCommand) (domain.Block, error) {
	return s.updateFunc(ctx, cmd)
}

func (s *stubBlockService) DeleteBlock(ctx context.Context, uid string, blockID string) error {
	return s.deleteFunc(ctx, uid, blockID)
}

func (s *stubBlockService) MoveBlock(ctx context.Context, cmd services.MoveBlockCommand) ([]domain.Block, error) {
	return s.moveFunc(ctx, cmd)
}

// authedRequest builds a request carrying a verified identity, the way the
// auth middleware would after token verification.
func authedRequest(method, target string, body io.Reader, identity *auth.Identity) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	}
	return req
}

func ownerIdentity() *auth.Identity {
	return &auth.Identity{UID: "uid-1", Email: "anna@example.com", Roles: []string{auth.RoleUser}}
}

func newBlockRouter(svc services.BlockService) chi.Router {
	r := chi.NewRouter()
	NewBlockHandlers(svc).Routes(r)
	return r
}

func TestBlockHandlersListBlocks(t *testing.T) {
	svc := &stubBlockService{
		listFunc: func(ctx context.Context, uid string) ([]domain.Block, error) {
			if uid != "uid-1" {
				t.Fatalf("unexpected uid %q", uid)
			}
			return []domain.Block{
				{ID: "b1", Type: domain.BlockTypeProfile, Order: 0, Profile: &domain.ProfileBlock{OrgName: "Цветы у Ани"}},
				{ID: "b2", Type: domain.BlockTypeWhatsApp, Order: 1, WhatsApp: &domain.WhatsAppBlock{Number: "+77001234567"}},
			}, nil
		},
	}
	router := newBlockRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/", nil, ownerIdentity()))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp blockListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if len(resp.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(resp.Blocks))
	}
	if resp.Blocks[1].WhatsApp == nil || resp.Blocks[1].WhatsApp.Number != "+77001234567" {
		t.Fatalf("unexpected whatsapp payload %+v", resp.Blocks[1].WhatsApp)
	}
}

func TestBlockHandlersListRequiresIdentity(t *testing.T) {
	router := newBlockRouter(&stubBlockService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/", nil, nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestBlockHandlersCreateBlock(t *testing.T) {
	svc := &stubBlockService{
		createFunc: func(ctx context.Context, cmd services.CreateBlockCommand) (domain.Block, error) {
			if cmd.UID != "uid-1" {
				t.Fatalf("unexpected uid %q", cmd.UID)
			}
			if cmd.Block.Type != domain.BlockTypeWhatsApp {
				t.Fatalf("unexpected type %q", cmd.Block.Type)
			}
			if cmd.Block.WhatsApp == nil || cmd.Block.WhatsApp.Number != "+77001234567" {
				t.Fatalf("unexpected payload %+v", cmd.Block.WhatsApp)
			}
			created := cmd.Block
			created.ID = "b3"
			created.Order = 2
			return created, nil
		},
	}
	router := newBlockRouter(svc)

	body := bytes.NewBufferString(`{"type":"whatsapp","whatsapp":{"number":"+77001234567","label":"Написать"}}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/", body, ownerIdentity()))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp blockPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if resp.ID != "b3" || resp.Order != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestBlockHandlersUpdateBlockImmutableType(t *testing.T) {
	svc := &stubBlockService{
		updateFunc: func(ctx context.Context, cmd services.UpdateBlockCommand) (domain.Block, error) {
			if cmd.Block.ID != "b2" {
				t.Fatalf("expected id from the URL, got %q", cmd.Block.ID)
			}
			return domain.Block{}, services.ErrBlockTypeImmutable
		},
	}
	router := newBlockRouter(svc)

	body := bytes.NewBufferString(`{"type":"gallery","gallery":{"images":["a.png"]}}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPatch, "/b2", body, ownerIdentity()))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestBlockHandlersDeleteBlock(t *testing.T) {
	deleted := ""
	svc := &stubBlockService{
		deleteFunc: func(ctx context.Context, uid string, blockID string) error {
			deleted = blockID
			return nil
		},
	}
	router := newBlockRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodDelete, "/b2", nil, ownerIdentity()))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if deleted != "b2" {
		t.Fatalf("expected delete of b2, got %q", deleted)
	}
}

func TestBlockHandlersMoveBlock(t *testing.T) {
	svc := &stubBlockService{
		moveFunc: func(ctx context.Context, cmd services.MoveBlockCommand) ([]domain.Block, error) {
			if cmd.BlockID != "b3" {
				t.Fatalf("unexpected block id %q", cmd.BlockID)
			}
			if cmd.Direction != domain.MoveUp {
				t.Fatalf("expected move up, got %d", cmd.Direction)
			}
			return []domain.Block{
				{ID: "b1", Type: domain.BlockTypeProfile, Order: 0},
				{ID: "b3", Type: domain.BlockTypeGallery, Order: 1},
				{ID: "b2", Type: domain.BlockTypeWhatsApp, Order: 2},
			}, nil
		},
	}
	router := newBlockRouter(svc)

	body := bytes.NewBufferString(`{"direction":"up"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/b3/move", body, ownerIdentity()))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp blockListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if len(resp.Blocks) != 3 || resp.Blocks[1].ID != "b3" {
		t.Fatalf("unexpected sequence %+v", resp.Blocks)
	}
}

func TestBlockHandlersMoveBlockBadDirection(t *testing.T) {
	router := newBlockRouter(&stubBlockService{})

	body := bytes.NewBufferString(`{"direction":"sideways"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/b3/move", body, ownerIdentity()))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
