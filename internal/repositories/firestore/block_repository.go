package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"

	domain "github.com/go-link/api/internal/domain"
	pfirestore "github.com/go-link/api/internal/platform/firestore"
	"github.com/go-link/api/internal/repositories"
)

const blocksSubcollection = "blocks"

// BlockRepository persists the ordered block list beneath users/{uid}.
// Documents carry the payload fields inline next to type and order, so blocks
// written by builds that know other types survive untouched.
type BlockRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[map[string]any]
	clock    func() time.Time
	newID    func() string
}

// BlockRepositoryOption customises repository behaviour.
type BlockRepositoryOption func(*BlockRepository)

// WithBlockRepositoryClock overrides the clock used for timestamps.
func WithBlockRepositoryClock(clock func() time.Time) BlockRepositoryOption {
	return func(r *BlockRepository) {
		if clock != nil {
			r.clock = func() time.Time { return clock().UTC() }
		}
	}
}

// WithBlockRepositoryIDGenerator overrides the document ID generator.
func WithBlockRepositoryIDGenerator(generator func() string) BlockRepositoryOption {
	return func(r *BlockRepository) {
		if generator != nil {
			r.newID = generator
		}
	}
}

// NewBlockRepository constructs a Firestore-backed block repository.
func NewBlockRepository(provider *pfirestore.Provider, opts ...BlockRepositoryOption) (*BlockRepository, error) {
	if provider == nil {
		return nil, errors.New("block repository: firestore provider is required")
	}
	repo := &BlockRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[map[string]any](provider, usersCollection, pfirestore.MapEncoder[map[string]any](), pfirestore.MapDecoder()),
		clock:    func() time.Time { return time.Now().UTC() },
		newID:    func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

func (r *BlockRepository) scoped(uid string) (*pfirestore.BaseRepository[map[string]any], error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, errors.New("block repository: uid is required")
	}
	return r.base.Scoped(uid, blocksSubcollection)
}

// List returns the user's blocks sorted by their order field.
func (r *BlockRepository) List(ctx context.Context, uid string) ([]domain.Block, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("block repository: not initialised")
	}
	scoped, err := r.scoped(uid)
	if err != nil {
		return nil, err
	}

	docs, err := scoped.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("order", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	blocks := make([]domain.Block, 0, len(docs))
	for _, doc := range docs {
		blocks = append(blocks, blockFromData(doc.ID, doc.Data))
	}
	return blocks, nil
}

// Get fetches a single block by ID.
func (r *BlockRepository) Get(ctx context.Context, uid string, blockID string) (domain.Block, error) {
	if r == nil || r.base == nil {
		return domain.Block{}, errors.New("block repository: not initialised")
	}
	scoped, err := r.scoped(uid)
	if err != nil {
		return domain.Block{}, err
	}
	doc, err := scoped.Get(ctx, strings.TrimSpace(blockID))
	if err != nil {
		return domain.Block{}, err
	}
	return blockFromData(doc.ID, doc.Data), nil
}

// Insert creates the block document, generating an ID when none is supplied.
func (r *BlockRepository) Insert(ctx context.Context, uid string, block domain.Block) (domain.Block, error) {
	if r == nil || r.base == nil {
		return domain.Block{}, errors.New("block repository: not initialised")
	}
	scoped, err := r.scoped(uid)
	if err != nil {
		return domain.Block{}, err
	}

	now := r.clock()
	if block.CreatedAt.IsZero() {
		block.CreatedAt = now
	}
	block.UpdatedAt = now
	if strings.TrimSpace(block.ID) == "" {
		block.ID = r.newID()
	}

	if _, err := scoped.Set(ctx, block.ID, blockToData(block)); err != nil {
		return domain.Block{}, err
	}
	return block, nil
}

// Update overwrites the block payload, preserving createdAt.
func (r *BlockRepository) Update(ctx context.Context, uid string, block domain.Block) (domain.Block, error) {
	if r == nil || r.base == nil {
		return domain.Block{}, errors.New("block repository: not initialised")
	}
	scoped, err := r.scoped(uid)
	if err != nil {
		return domain.Block{}, err
	}
	blockID := strings.TrimSpace(block.ID)
	if blockID == "" {
		return domain.Block{}, errors.New("block repository: block id is required")
	}

	block.UpdatedAt = r.clock()
	result, err := scoped.Set(ctx, blockID, blockToData(block))
	if err != nil {
		return domain.Block{}, err
	}
	block.UpdatedAt = result.UpdateTime
	return block, nil
}

// Delete removes the block document.
func (r *BlockRepository) Delete(ctx context.Context, uid string, blockID string) error {
	if r == nil || r.base == nil {
		return errors.New("block repository: not initialised")
	}
	scoped, err := r.scoped(uid)
	if err != nil {
		return err
	}
	_, err = scoped.Delete(ctx, strings.TrimSpace(blockID))
	return err
}

// ReplaceOrder rewrites the order field of every listed block inside one
// transaction. Each document must exist; a missing ID aborts the whole batch
// so the previous numbering stays intact.
func (r *BlockRepository) ReplaceOrder(ctx context.Context, uid string, orderedIDs []string) error {
	if r == nil || r.provider == nil {
		return errors.New("block repository: not initialised")
	}
	scoped, err := r.scoped(uid)
	if err != nil {
		return err
	}
	if len(orderedIDs) == 0 {
		return errors.New("block repository: ordered ids are required")
	}

	refs := make([]*firestore.DocumentRef, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return errors.New("block repository: ordered ids contain an empty id")
		}
		ref, err := scoped.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	now := r.clock()
	return pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, ref := range refs {
			if _, err := tx.Get(ref); err != nil {
				return fmt.Errorf("block %s: %w", ref.ID, err)
			}
		}
		for idx, ref := range refs {
			if err := tx.Update(ref, []firestore.Update{
				{Path: "order", Value: idx},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// blockToData flattens the typed payload into the stored document shape.
func blockToData(block domain.Block) map[string]any {
	data := map[string]any{
		"type":      string(block.Type),
		"order":     block.Order,
		"createdAt": block.CreatedAt.UTC(),
		"updatedAt": block.UpdatedAt.UTC(),
	}

	switch block.Type {
	case domain.BlockTypeWhatsApp:
		if b := block.WhatsApp; b != nil {
			putNonEmpty(data, "number", b.Number)
			putNonEmpty(data, "label", b.Label)
			putNonEmpty(data, "color", b.Color)
			putNonEmpty(data, "link", b.Link)
		}
	case domain.BlockTypeCatalog:
		if b := block.Catalog; b != nil {
			putNonEmpty(data, "title", b.Title)
			putNonEmpty(data, "whatsappNumber", b.WhatsAppNumber)
			putNonEmpty(data, "layout", string(b.Layout))
			putNonEmpty(data, "buttonColor", b.ButtonColor)
			products := make([]map[string]any, 0, len(b.Products))
			for _, p := range b.Products {
				products = append(products, map[string]any{
					"name":     p.Name,
					"price":    p.Price,
					"imageUrl": p.ImageURL,
				})
			}
			data["products"] = products
		}
	case domain.BlockTypeGallery:
		if b := block.Gallery; b != nil {
			data["images"] = append([]string(nil), b.Images...)
		}
	case domain.BlockTypePromo:
		if b := block.Promo; b != nil {
			data["text"] = b.Text
			data["expiresAt"] = b.ExpiresAt.UTC()
			putNonEmpty(data, "link", b.Link)
			putNonEmpty(data, "color", b.Color)
		}
	case domain.BlockTypeProfile:
		if b := block.Profile; b != nil {
			putNonEmpty(data, "orgName", b.OrgName)
			putNonEmpty(data, "orgAddress", b.OrgAddress)
			putNonEmpty(data, "logoUrl", b.LogoURL)
			putNonEmpty(data, "coverUrl", b.CoverURL)
		}
	case domain.BlockTypeBouquet:
		if b := block.Bouquet; b != nil {
			data["flowers"] = catalogItemsToData(b.Flowers)
			data["wrappings"] = catalogItemsToData(b.Wrappings)
			putNonEmpty(data, "whatsappNumber", b.WhatsAppNumber)
			data["deliveryOptions"] = map[string]any{
				"delivery": b.DeliveryOptions.Delivery,
				"pickup":   b.DeliveryOptions.Pickup,
			}
		}
	default:
		for key, value := range block.Raw {
			switch key {
			case "type", "order", "createdAt", "updatedAt":
				continue
			}
			data[key] = value
		}
	}

	return data
}

// blockFromData hydrates the typed payload from the stored document shape.
func blockFromData(id string, data map[string]any) domain.Block {
	block := domain.Block{
		ID:        id,
		Type:      domain.BlockType(stringField(data, "type")),
		Order:     intField(data, "order"),
		CreatedAt: timeField(data, "createdAt"),
		UpdatedAt: timeField(data, "updatedAt"),
	}

	switch block.Type {
	case domain.BlockTypeWhatsApp:
		block.WhatsApp = &domain.WhatsAppBlock{
			Number: stringField(data, "number"),
			Label:  stringField(data, "label"),
			Color:  stringField(data, "color"),
			Link:   stringField(data, "link"),
		}
	case domain.BlockTypeCatalog:
		catalog := &domain.CatalogBlock{
			Title:          stringField(data, "title"),
			WhatsAppNumber: stringField(data, "whatsappNumber"),
			Layout:         domain.CatalogLayout(stringField(data, "layout")),
			ButtonColor:    stringField(data, "buttonColor"),
		}
		for _, entry := range sliceField(data, "products") {
			catalog.Products = append(catalog.Products, domain.Product{
				Name:     stringField(entry, "name"),
				Price:    int64Field(entry, "price"),
				ImageURL: stringField(entry, "imageUrl"),
			})
		}
		block.Catalog = catalog
	case domain.BlockTypeGallery:
		gallery := &domain.GalleryBlock{}
		if raw, ok := data["images"].([]any); ok {
			for _, item := range raw {
				if s, ok := item.(string); ok {
					gallery.Images = append(gallery.Images, s)
				}
			}
		}
		block.Gallery = gallery
	case domain.BlockTypePromo:
		block.Promo = &domain.PromoBlock{
			Text:      stringField(data, "text"),
			ExpiresAt: timeField(data, "expiresAt"),
			Link:      stringField(data, "link"),
			Color:     stringField(data, "color"),
		}
	case domain.BlockTypeProfile:
		block.Profile = &domain.ProfileBlock{
			OrgName:    stringField(data, "orgName"),
			OrgAddress: stringField(data, "orgAddress"),
			LogoURL:    stringField(data, "logoUrl"),
			CoverURL:   stringField(data, "coverUrl"),
		}
	case domain.BlockTypeBouquet:
		block.Bouquet = &domain.BouquetBlock{
			Flowers:        catalogItemsFromData(sliceField(data, "flowers")),
			Wrappings:      catalogItemsFromData(sliceField(data, "wrappings")),
			WhatsAppNumber: stringField(data, "whatsappNumber"),
		}
		if opts, ok := data["deliveryOptions"].(map[string]any); ok {
			block.Bouquet.DeliveryOptions = domain.DeliveryOptions{
				Delivery: boolField(opts, "delivery"),
				Pickup:   boolField(opts, "pickup"),
			}
		}
	default:
		raw := make(map[string]any, len(data))
		for key, value := range data {
			raw[key] = value
		}
		block.Raw = raw
	}

	return block
}

func catalogItemsToData(items []domain.CatalogItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{
			"id":       item.ID,
			"name":     item.Name,
			"price":    item.Price,
			"imageUrl": item.ImageURL,
		})
	}
	return out
}

func catalogItemsFromData(entries []map[string]any) []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, domain.CatalogItem{
			ID:       stringField(entry, "id"),
			Name:     stringField(entry, "name"),
			Price:    int64Field(entry, "price"),
			ImageURL: stringField(entry, "imageUrl"),
		})
	}
	return items
}

func putNonEmpty(data map[string]any, key, value string) {
	if strings.TrimSpace(value) != "" {
		data[key] = value
	}
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func int64Field(data map[string]any, key string) int64 {
	switch v := data[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func boolField(data map[string]any, key string) bool {
	v, _ := data[key].(bool)
	return v
}

func timeField(data map[string]any, key string) time.Time {
	if v, ok := data[key].(time.Time); ok {
		return v
	}
	return time.Time{}
}

func sliceField(data map[string]any, key string) []map[string]any {
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

var _ repositories.BlockRepository = (*BlockRepository)(nil)
