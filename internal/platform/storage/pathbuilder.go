package storage

import (
	"fmt"
	"strings"
	"sync"
)

// AssetPurpose captures high-level intent for storage layout decisions.
type AssetPurpose string

const (
	PurposeLogo      AssetPurpose = "logo"
	PurposeCover     AssetPurpose = "cover"
	PurposeProduct   AssetPurpose = "product"
	PurposeGallery   AssetPurpose = "gallery"
	PurposeInventory AssetPurpose = "inventory"
	PurposeDirectory AssetPurpose = "directory"
)

// PathParams provide required identifiers to compose storage object keys.
type PathParams struct {
	UID        string
	Collection string
	FileName   string
}

// PathBuilder composes the object path for a given asset purpose.
type PathBuilder func(PathParams) (string, error)

var (
	pathBuilders = map[AssetPurpose]PathBuilder{
		PurposeLogo:      buildLogoPath,
		PurposeCover:     buildCoverPath,
		PurposeProduct:   buildProductPath,
		PurposeGallery:   buildGalleryPath,
		PurposeInventory: buildInventoryPath,
		PurposeDirectory: buildDirectoryPath,
	}
	pathBuildersMu sync.RWMutex
)

// RegisterPathBuilder overrides or registers a builder for a specific purpose.
func RegisterPathBuilder(purpose AssetPurpose, builder PathBuilder) {
	pathBuildersMu.Lock()
	defer pathBuildersMu.Unlock()
	if builder == nil {
		delete(pathBuilders, purpose)
		return
	}
	pathBuilders[purpose] = builder
}

// BuildObjectPath resolves the storage object path for the given purpose.
func BuildObjectPath(purpose AssetPurpose, params PathParams) (string, error) {
	pathBuildersMu.RLock()
	builder, ok := pathBuilders[purpose]
	pathBuildersMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("storage: unsupported asset purpose %q", purpose)
	}
	return builder(params)
}

// Logo and cover objects are keyed by owner so a re-upload replaces the previous image.
func buildLogoPath(params PathParams) (string, error) {
	uid, err := validateSegment("uid", params.UID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("logos/%s", uid), nil
}

func buildCoverPath(params PathParams) (string, error) {
	uid, err := validateSegment("uid", params.UID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("covers/%s", uid), nil
}

func buildProductPath(params PathParams) (string, error) {
	uid, err := validateSegment("uid", params.UID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products/%s/%s", uid, fileName), nil
}

func buildGalleryPath(params PathParams) (string, error) {
	uid, err := validateSegment("uid", params.UID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("gallery/%s/%s", uid, fileName), nil
}

func buildInventoryPath(params PathParams) (string, error) {
	uid, err := validateSegment("uid", params.UID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("users/%s/inventory/%s", uid, fileName), nil
}

func buildDirectoryPath(params PathParams) (string, error) {
	collection, err := validateSegment("collection", params.Collection)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("directories/%s/%s", collection, fileName), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

func validateFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: fileName contains invalid path characters")
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: fileName contains invalid traversal sequence")
	}
	return value, nil
}
