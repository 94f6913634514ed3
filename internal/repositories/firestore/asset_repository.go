package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-link/api/internal/platform/auth"
	pstorage "github.com/go-link/api/internal/platform/storage"
	"github.com/go-link/api/internal/repositories"
)

const (
	assetUploadTTL   = 15 * time.Minute
	assetDownloadTTL = 5 * time.Minute
)

// imageContentTypes bounds what profile and block media uploads may contain.
var imageContentTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// AssetRepository mints signed upload and download URLs for media objects.
// Object paths are deterministic per purpose, so re-uploading a logo or cover
// replaces the previous object without any bookkeeping document.
type AssetRepository struct {
	storage *pstorage.Client
	bucket  string
}

// NewAssetRepository constructs a signed-URL asset repository.
func NewAssetRepository(storageClient *pstorage.Client, bucket string) (*AssetRepository, error) {
	if storageClient == nil {
		return nil, errors.New("asset repository: storage client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("asset repository: bucket is required")
	}
	return &AssetRepository{storage: storageClient, bucket: bucket}, nil
}

// CreateSignedUpload resolves the object path for the purpose and returns a
// PUT URL the client uploads the media to directly.
func (r *AssetRepository) CreateSignedUpload(ctx context.Context, cmd repositories.SignedUploadRecord) (repositories.SignedAssetResponse, error) {
	if r == nil || r.storage == nil {
		return repositories.SignedAssetResponse{}, errors.New("asset repository: not initialised")
	}

	actorUID := strings.TrimSpace(cmd.ActorUID)
	if actorUID == "" {
		return repositories.SignedAssetResponse{}, errors.New("asset repository: actor uid is required")
	}
	contentType := strings.ToLower(strings.TrimSpace(cmd.ContentType))
	if contentType == "" {
		return repositories.SignedAssetResponse{}, errors.New("asset repository: content type is required")
	}
	if cmd.SizeBytes <= 0 {
		return repositories.SignedAssetResponse{}, errors.New("asset repository: size bytes must be positive")
	}

	purpose := pstorage.AssetPurpose(strings.ToLower(strings.TrimSpace(cmd.Purpose)))
	objectPath, err := pstorage.BuildObjectPath(purpose, pstorage.PathParams{
		UID:        actorUID,
		Collection: strings.TrimSpace(cmd.Collection),
		FileName:   strings.TrimSpace(cmd.FileName),
	})
	if err != nil {
		return repositories.SignedAssetResponse{}, err
	}

	signed, err := r.storage.SignedURL(ctx, r.bucket, objectPath, pstorage.SignedURLOptions{
		Upload: &pstorage.UploadOptions{
			Method:              "PUT",
			ContentType:         contentType,
			AllowedMethods:      []string{"PUT"},
			AllowedContentTypes: imageContentTypes,
			MaxSize:             cmd.SizeBytes,
			ExpiresIn:           assetUploadTTL,
			AdditionalHeaders: map[string]string{
				"x-goog-meta-owner-uid": actorUID,
			},
		},
	})
	if err != nil {
		return repositories.SignedAssetResponse{}, fmt.Errorf("asset repository: sign upload url: %w", err)
	}

	return repositories.SignedAssetResponse{
		URL:        signed.URL,
		Method:     signed.Method,
		ObjectPath: objectPath,
		ExpiresAt:  signed.ExpiresAt,
		Headers:    signed.Headers,
	}, nil
}

// CreateSignedDownload mints a short-lived GET URL for an owned object.
func (r *AssetRepository) CreateSignedDownload(ctx context.Context, cmd repositories.SignedDownloadRecord) (repositories.SignedAssetResponse, error) {
	if r == nil || r.storage == nil {
		return repositories.SignedAssetResponse{}, errors.New("asset repository: not initialised")
	}

	objectPath := strings.TrimSpace(cmd.ObjectPath)
	if objectPath == "" {
		return repositories.SignedAssetResponse{}, errors.New("asset repository: object path is required")
	}

	var identity *auth.Identity
	if actorUID := strings.TrimSpace(cmd.ActorUID); actorUID != "" {
		if stored, ok := auth.IdentityFromContext(ctx); ok && stored.UID == actorUID {
			identity = stored
		} else {
			identity = &auth.Identity{UID: actorUID}
		}
	}

	signed, err := r.storage.SignedURL(ctx, r.bucket, objectPath, pstorage.SignedURLOptions{
		Download: &pstorage.DownloadOptions{
			Method:    "GET",
			ExpiresIn: assetDownloadTTL,
			OwnerID:   strings.TrimSpace(cmd.OwnerUID),
			Identity:  identity,
		},
	})
	if err != nil {
		return repositories.SignedAssetResponse{}, fmt.Errorf("asset repository: sign download url: %w", err)
	}

	return repositories.SignedAssetResponse{
		URL:        signed.URL,
		Method:     signed.Method,
		ObjectPath: objectPath,
		ExpiresAt:  signed.ExpiresAt,
		Headers:    signed.Headers,
	}, nil
}

var _ repositories.AssetRepository = (*AssetRepository)(nil)
