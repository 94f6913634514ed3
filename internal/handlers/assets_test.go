package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/go-link/api/internal/services"
)

type stubAssetService struct {
	uploadFunc   func(ctx context.Context, cmd services.SignedUploadCommand) (services.SignedAssetResponse, error)
	downloadFunc func(ctx context.Context, cmd services.SignedDownloadCommand) (services.SignedAssetResponse, error)
}

func (s *stubAssetService) IssueSignedUpload(ctx context.Context, cmd services.SignedUploadCommand) (services.SignedAssetResponse, error) {
	return s.uploadFunc(ctx, cmd)
}

func (s *stubAssetService) IssueSignedDownload(ctx context.Context, cmd services.SignedDownloadCommand) (services.SignedAssetResponse, error) {
	return s.downloadFunc(ctx, cmd)
}

func newAssetRouter(svc services.AssetService) chi.Router {
	r := chi.NewRouter()
	NewAssetHandlers(AssetHandlersDeps{Assets: svc}).Routes(r)
	return r
}

func TestAssetHandlersIssueSignedUpload(t *testing.T) {
	expires := time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC)
	svc := &stubAssetService{
		uploadFunc: func(ctx context.Context, cmd services.SignedUploadCommand) (services.SignedAssetResponse, error) {
			if cmd.ActorUID != "uid-1" {
				t.Fatalf("unexpected actor %q", cmd.ActorUID)
			}
			if cmd.IsAdmin {
				t.Fatalf("plain owner must not be admin")
			}
			if cmd.Purpose != "logo" || cmd.ContentType != "image/png" {
				t.Fatalf("unexpected command %+v", cmd)
			}
			return services.SignedAssetResponse{
				URL:        "https://storage.example.com/signed",
				Method:     http.MethodPut,
				ObjectPath: "logos/uid-1",
				ExpiresAt:  expires,
				Headers:    map[string]string{"Content-Type": "image/png"},
			}, nil
		},
	}
	router := newAssetRouter(svc)

	body := bytes.NewBufferString(`{"purpose":"logo","file_name":"logo.png","content_type":"image/png","size_bytes":2048}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/uploads", body, ownerIdentity()))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp signedAssetPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if resp.Method != http.MethodPut || resp.ObjectPath != "logos/uid-1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.ExpiresAt != expires.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected expires_at %q", resp.ExpiresAt)
	}
}

func TestAssetHandlersUploadForbidden(t *testing.T) {
	svc := &stubAssetService{
		uploadFunc: func(ctx context.Context, cmd services.SignedUploadCommand) (services.SignedAssetResponse, error) {
			return services.SignedAssetResponse{}, services.ErrAssetForbidden
		},
	}
	router := newAssetRouter(svc)

	body := bytes.NewBufferString(`{"purpose":"directory","collection":"master_flowers","file_name":"rose.png","content_type":"image/png","size_bytes":2048}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/uploads", body, ownerIdentity()))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestAssetHandlersIssueSignedDownload(t *testing.T) {
	svc := &stubAssetService{
		downloadFunc: func(ctx context.Context, cmd services.SignedDownloadCommand) (services.SignedAssetResponse, error) {
			if cmd.ActorUID != "uid-1" || cmd.ObjectPath != "gallery/uid-1/shot.png" {
				t.Fatalf("unexpected command %+v", cmd)
			}
			return services.SignedAssetResponse{
				URL:        "https://storage.example.com/signed-get",
				Method:     http.MethodGet,
				ObjectPath: cmd.ObjectPath,
			}, nil
		},
	}
	router := newAssetRouter(svc)

	body := bytes.NewBufferString(`{"object_path":"gallery/uid-1/shot.png"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/downloads", body, ownerIdentity()))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp signedAssetPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if resp.Method != http.MethodGet {
		t.Fatalf("unexpected method %q", resp.Method)
	}
}
