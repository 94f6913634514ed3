package services

import (
	"context"
	"errors"
	"testing"
	"time"

	pstorage "github.com/go-link/api/internal/platform/storage"
	"github.com/go-link/api/internal/repositories"
)

type stubAssetRepository struct {
	upload   func(ctx context.Context, cmd repositories.SignedUploadRecord) (repositories.SignedAssetResponse, error)
	download func(ctx context.Context, cmd repositories.SignedDownloadRecord) (repositories.SignedAssetResponse, error)
}

func (s *stubAssetRepository) CreateSignedUpload(ctx context.Context, cmd repositories.SignedUploadRecord) (repositories.SignedAssetResponse, error) {
	if s.upload == nil {
		return repositories.SignedAssetResponse{URL: "https://signed.example/" + cmd.Purpose, Method: "PUT"}, nil
	}
	return s.upload(ctx, cmd)
}

func (s *stubAssetRepository) CreateSignedDownload(ctx context.Context, cmd repositories.SignedDownloadRecord) (repositories.SignedAssetResponse, error) {
	if s.download == nil {
		return repositories.SignedAssetResponse{URL: "https://signed.example/download", Method: "GET"}, nil
	}
	return s.download(ctx, cmd)
}

func newAssetServiceForTest(t *testing.T, repo *stubAssetRepository) AssetService {
	t.Helper()
	svc, err := NewAssetService(AssetServiceDeps{
		Assets: repo,
		Clock:  fixedClock(time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewAssetService: %v", err)
	}
	return svc
}

func TestIssueSignedUploadHappyPath(t *testing.T) {
	var got repositories.SignedUploadRecord
	repo := &stubAssetRepository{
		upload: func(_ context.Context, cmd repositories.SignedUploadRecord) (repositories.SignedAssetResponse, error) {
			got = cmd
			return repositories.SignedAssetResponse{URL: "https://signed.example/put", Method: "PUT", ObjectPath: "logos/uid-1"}, nil
		},
	}
	svc := newAssetServiceForTest(t, repo)

	response, err := svc.IssueSignedUpload(context.Background(), SignedUploadCommand{
		ActorUID:    "uid-1",
		Purpose:     "logo",
		ContentType: "image/png",
		SizeBytes:   2048,
	})
	if err != nil {
		t.Fatalf("IssueSignedUpload: %v", err)
	}
	if got.ActorUID != "uid-1" || got.Purpose != "logo" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if response.Method != "PUT" || response.ObjectPath != "logos/uid-1" {
		t.Fatalf("unexpected response: %+v", response)
	}
}

func TestIssueSignedUploadRejectsNonImageContent(t *testing.T) {
	svc := newAssetServiceForTest(t, &stubAssetRepository{})

	_, err := svc.IssueSignedUpload(context.Background(), SignedUploadCommand{
		ActorUID:    "uid-1",
		Purpose:     "gallery",
		ContentType: "application/pdf",
		SizeBytes:   2048,
	})
	if !errors.Is(err, ErrAssetInvalidInput) {
		t.Fatalf("expected ErrAssetInvalidInput got %v", err)
	}
}

func TestIssueSignedUploadBoundsSize(t *testing.T) {
	svc := newAssetServiceForTest(t, &stubAssetRepository{})

	for _, size := range []int64{0, maxAssetSizeBytes + 1} {
		_, err := svc.IssueSignedUpload(context.Background(), SignedUploadCommand{
			ActorUID:    "uid-1",
			Purpose:     "cover",
			ContentType: "image/jpeg",
			SizeBytes:   size,
		})
		if !errors.Is(err, ErrAssetInvalidInput) {
			t.Fatalf("size %d: expected ErrAssetInvalidInput got %v", size, err)
		}
	}
}

func TestIssueSignedUploadDirectoryPurposeRequiresAdmin(t *testing.T) {
	svc := newAssetServiceForTest(t, &stubAssetRepository{})

	_, err := svc.IssueSignedUpload(context.Background(), SignedUploadCommand{
		ActorUID:    "uid-1",
		Purpose:     "directory",
		Collection:  "master_flowers",
		ContentType: "image/png",
		SizeBytes:   2048,
	})
	if !errors.Is(err, ErrAssetForbidden) {
		t.Fatalf("expected ErrAssetForbidden got %v", err)
	}

	if _, err := svc.IssueSignedUpload(context.Background(), SignedUploadCommand{
		ActorUID:    "admin-1",
		IsAdmin:     true,
		Purpose:     "directory",
		Collection:  "master_flowers",
		ContentType: "image/png",
		SizeBytes:   2048,
	}); err != nil {
		t.Fatalf("admin upload: %v", err)
	}
}

func TestIssueSignedDownloadDefaultsOwnerToActor(t *testing.T) {
	var got repositories.SignedDownloadRecord
	repo := &stubAssetRepository{
		download: func(_ context.Context, cmd repositories.SignedDownloadRecord) (repositories.SignedAssetResponse, error) {
			got = cmd
			return repositories.SignedAssetResponse{URL: "https://signed.example/get", Method: "GET"}, nil
		},
	}
	svc := newAssetServiceForTest(t, repo)

	if _, err := svc.IssueSignedDownload(context.Background(), SignedDownloadCommand{
		ActorUID:   "uid-1",
		ObjectPath: "logos/uid-1",
	}); err != nil {
		t.Fatalf("IssueSignedDownload: %v", err)
	}
	if got.OwnerUID != "uid-1" {
		t.Fatalf("expected owner to default to actor, got %q", got.OwnerUID)
	}
}

func TestIssueSignedDownloadTranslatesPermissionDenied(t *testing.T) {
	repo := &stubAssetRepository{
		download: func(context.Context, repositories.SignedDownloadRecord) (repositories.SignedAssetResponse, error) {
			return repositories.SignedAssetResponse{}, pstorage.ErrPermissionDenied
		},
	}
	svc := newAssetServiceForTest(t, repo)

	_, err := svc.IssueSignedDownload(context.Background(), SignedDownloadCommand{
		ActorUID:   "uid-2",
		OwnerUID:   "uid-1",
		ObjectPath: "logos/uid-1",
	})
	if !errors.Is(err, ErrAssetForbidden) {
		t.Fatalf("expected ErrAssetForbidden got %v", err)
	}
}
