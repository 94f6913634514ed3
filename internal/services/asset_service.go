package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pstorage "github.com/go-link/api/internal/platform/storage"
	"github.com/go-link/api/internal/repositories"
)

const (
	eventAssetUploadIssued   = "asset.upload.issued"
	eventAssetDownloadIssued = "asset.download.issued"

	// maxAssetSizeBytes bounds a single media upload.
	maxAssetSizeBytes = int64(10 << 20)
)

var (
	// ErrAssetInvalidInput signals the caller provided invalid arguments.
	ErrAssetInvalidInput = errors.New("asset: invalid input")
	// ErrAssetForbidden indicates the caller may not access the object.
	ErrAssetForbidden = errors.New("asset: forbidden")
	// ErrAssetUnavailable indicates the signing backend is unreachable.
	ErrAssetUnavailable = errors.New("asset: temporarily unavailable")
)

var uploadPurposes = map[pstorage.AssetPurpose]bool{
	pstorage.PurposeLogo:      true,
	pstorage.PurposeCover:     true,
	pstorage.PurposeProduct:   true,
	pstorage.PurposeGallery:   true,
	pstorage.PurposeInventory: true,
	pstorage.PurposeDirectory: true,
}

// AssetServiceDeps bundles collaborators required to construct the asset service.
type AssetServiceDeps struct {
	Assets repositories.AssetRepository
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type assetService struct {
	assets repositories.AssetRepository
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

var _ AssetService = (*assetService)(nil)

// NewAssetService wires dependencies into a concrete AssetService implementation.
func NewAssetService(deps AssetServiceDeps) (AssetService, error) {
	if deps.Assets == nil {
		return nil, errors.New("asset service: asset repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &assetService{
		assets: deps.Assets,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

func (s *assetService) IssueSignedUpload(ctx context.Context, cmd SignedUploadCommand) (SignedAssetResponse, error) {
	actorUID := strings.TrimSpace(cmd.ActorUID)
	if actorUID == "" {
		return SignedAssetResponse{}, ErrAssetInvalidInput
	}

	purpose := pstorage.AssetPurpose(strings.ToLower(strings.TrimSpace(cmd.Purpose)))
	if !uploadPurposes[purpose] {
		return SignedAssetResponse{}, fmt.Errorf("%w: unknown purpose %q", ErrAssetInvalidInput, cmd.Purpose)
	}
	// Directory images land in shared admin-curated paths.
	if purpose == pstorage.PurposeDirectory && !cmd.IsAdmin {
		return SignedAssetResponse{}, ErrAssetForbidden
	}

	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(cmd.ContentType)), "image/") {
		return SignedAssetResponse{}, fmt.Errorf("%w: only image uploads are supported", ErrAssetInvalidInput)
	}
	if cmd.SizeBytes <= 0 || cmd.SizeBytes > maxAssetSizeBytes {
		return SignedAssetResponse{}, fmt.Errorf("%w: size must be between 1 byte and %d bytes", ErrAssetInvalidInput, maxAssetSizeBytes)
	}

	response, err := s.assets.CreateSignedUpload(ctx, repositories.SignedUploadRecord{
		ActorUID:    actorUID,
		Purpose:     string(purpose),
		Collection:  strings.TrimSpace(cmd.Collection),
		FileName:    strings.TrimSpace(cmd.FileName),
		ContentType: strings.TrimSpace(cmd.ContentType),
		SizeBytes:   cmd.SizeBytes,
	})
	if err != nil {
		return SignedAssetResponse{}, s.translate(err)
	}

	s.logger(ctx, eventAssetUploadIssued, map[string]any{
		"actorUid": actorUID, "purpose": string(purpose), "path": response.ObjectPath,
	})
	return response, nil
}

func (s *assetService) IssueSignedDownload(ctx context.Context, cmd SignedDownloadCommand) (SignedAssetResponse, error) {
	actorUID := strings.TrimSpace(cmd.ActorUID)
	objectPath := strings.TrimSpace(cmd.ObjectPath)
	if actorUID == "" || objectPath == "" {
		return SignedAssetResponse{}, ErrAssetInvalidInput
	}

	ownerUID := strings.TrimSpace(cmd.OwnerUID)
	if ownerUID == "" {
		ownerUID = actorUID
	}

	response, err := s.assets.CreateSignedDownload(ctx, repositories.SignedDownloadRecord{
		ActorUID:   actorUID,
		OwnerUID:   ownerUID,
		ObjectPath: objectPath,
	})
	if err != nil {
		return SignedAssetResponse{}, s.translate(err)
	}

	s.logger(ctx, eventAssetDownloadIssued, map[string]any{"actorUid": actorUID, "path": objectPath})
	return response, nil
}

func (s *assetService) translate(err error) error {
	switch {
	case errors.Is(err, pstorage.ErrPermissionDenied):
		return ErrAssetForbidden
	case isRepoUnavailable(err):
		return ErrAssetUnavailable
	default:
		return err
	}
}
