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
	"github.com/go-link/api/internal/platform/pagination"
	"github.com/go-link/api/internal/repositories"
)

const (
	ordersSubcollection  = "orders"
	historySubcollection = "history"
)

// OrderRepository persists Business Hub orders beneath users/{uid}/orders,
// with an append-only history subcollection per order.
type OrderRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[orderDocument]
	history  *pfirestore.BaseRepository[historyDocument]
	clock    func() time.Time
	newID    func() string
}

// OrderRepositoryOption customises repository behaviour.
type OrderRepositoryOption func(*OrderRepository)

// WithOrderRepositoryClock overrides the clock used for timestamps.
func WithOrderRepositoryClock(clock func() time.Time) OrderRepositoryOption {
	return func(r *OrderRepository) {
		if clock != nil {
			r.clock = func() time.Time { return clock().UTC() }
		}
	}
}

// WithOrderRepositoryIDGenerator overrides the document ID generator.
func WithOrderRepositoryIDGenerator(generator func() string) OrderRepositoryOption {
	return func(r *OrderRepository) {
		if generator != nil {
			r.newID = generator
		}
	}
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider, opts ...OrderRepositoryOption) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository: firestore provider is required")
	}
	repo := &OrderRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[orderDocument](provider, usersCollection, nil, nil),
		history:  pfirestore.NewBaseRepository[historyDocument](provider, usersCollection, nil, nil),
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

func (r *OrderRepository) scoped(ownerUID string) (*pfirestore.BaseRepository[orderDocument], error) {
	ownerUID = strings.TrimSpace(ownerUID)
	if ownerUID == "" {
		return nil, errors.New("order repository: owner uid is required")
	}
	return r.base.Scoped(ownerUID, ordersSubcollection)
}

func (r *OrderRepository) scopedHistory(ownerUID, orderID string) (*pfirestore.BaseRepository[historyDocument], error) {
	ownerUID = strings.TrimSpace(ownerUID)
	orderID = strings.TrimSpace(orderID)
	if ownerUID == "" || orderID == "" {
		return nil, errors.New("order repository: owner uid and order id are required")
	}
	return r.history.Scoped(ownerUID, ordersSubcollection, orderID, historySubcollection)
}

// Insert persists a new order together with its initial history entry.
func (r *OrderRepository) Insert(ctx context.Context, ownerUID string, order domain.Order) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return domain.Order{}, err
	}

	now := r.clock()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt
	if !order.Status.Valid() {
		order.Status = domain.OrderStatusNew
	}
	if strings.TrimSpace(order.ID) == "" {
		order.ID = r.newID()
	}

	ref, err := scoped.DocumentRef(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	historyRepo, err := r.scopedHistory(ownerUID, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	historyRef, err := historyRepo.DocumentRef(ctx, r.newID())
	if err != nil {
		return domain.Order{}, err
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	doc := orderDocumentFrom(order)
	entry := historyDocument{Status: string(order.Status), ChangedAt: order.CreatedAt.UTC()}
	err = pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(ref, doc); err != nil {
			return err
		}
		return tx.Create(historyRef, entry)
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, ownerUID string, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return domain.Order{}, err
	}
	doc, err := scoped.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns orders newest first, filtered and cursor-paginated.
func (r *OrderRepository) List(ctx context.Context, ownerUID string, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	pageSize := pagination.ClampPageSize(filter.Pagination.PageSize, pagination.DefaultPageSize, pagination.DefaultMaxPageSize)

	var tokenTime time.Time
	var tokenID string
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		var err error
		tokenTime, tokenID, err = decodeOrderToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("orders.list: invalid page token: %w", err)
		}
	}

	docs, err := scoped.Query(ctx, func(q firestore.Query) firestore.Query {
		if len(filter.Status) > 0 {
			statuses := make([]string, 0, len(filter.Status))
			for _, s := range filter.Status {
				statuses = append(statuses, string(s))
			}
			q = q.Where("status", "in", statuses)
		}
		if filter.Source != nil {
			q = q.Where("source", "==", string(*filter.Source))
		}
		if filter.CreatedAfter != nil {
			q = q.Where("createdAt", ">=", filter.CreatedAfter.UTC())
		}
		if filter.CreatedBefore != nil {
			q = q.Where("createdAt", "<", filter.CreatedBefore.UTC())
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if tokenID != "" {
			q = q.StartAfter(tokenTime, tokenID)
		}
		return q.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{Items: make([]domain.Order, 0, len(docs))}
	for i, doc := range docs {
		if i == pageSize {
			break
		}
		page.Items = append(page.Items, doc.Data.toDomain(doc.ID))
	}
	if len(docs) > pageSize {
		last := page.Items[len(page.Items)-1]
		page.NextPageToken = encodeOrderToken(last.CreatedAt, last.ID)
	}
	return page, nil
}

// UpdateStatus moves the order to the given status and appends the history
// entry in one transaction. Transition validity is enforced by the service.
func (r *OrderRepository) UpdateStatus(ctx context.Context, ownerUID string, orderID string, status domain.OrderStatus, changedAt time.Time) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return domain.Order{}, err
	}
	orderID = strings.TrimSpace(orderID)
	ref, err := scoped.DocumentRef(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	historyRepo, err := r.scopedHistory(ownerUID, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	historyRef, err := historyRepo.DocumentRef(ctx, r.newID())
	if err != nil {
		return domain.Order{}, err
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	changedAt = changedAt.UTC()
	var updated domain.Order
	err = pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		doc.Status = string(status)
		doc.UpdatedAt = changedAt
		updated = doc.toDomain(snap.Ref.ID)

		if err := tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(status)},
			{Path: "updatedAt", Value: changedAt},
		}); err != nil {
			return err
		}
		return tx.Create(historyRef, historyDocument{Status: string(status), ChangedAt: changedAt})
	})
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}

// AssignFlorist sets or clears the assigned florist name.
func (r *OrderRepository) AssignFlorist(ctx context.Context, ownerUID string, orderID string, floristName string, updatedAt time.Time) (domain.Order, error) {
	return r.patch(ctx, ownerUID, orderID, []firestore.Update{
		{Path: "floristName", Value: strings.TrimSpace(floristName)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	})
}

// UpdateNotes replaces the staff notes on the order.
func (r *OrderRepository) UpdateNotes(ctx context.Context, ownerUID string, orderID string, notes string, updatedAt time.Time) (domain.Order, error) {
	return r.patch(ctx, ownerUID, orderID, []firestore.Update{
		{Path: "notes", Value: strings.TrimSpace(notes)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	})
}

func (r *OrderRepository) patch(ctx context.Context, ownerUID string, orderID string, updates []firestore.Update) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository: not initialised")
	}
	scoped, err := r.scoped(ownerUID)
	if err != nil {
		return domain.Order{}, err
	}
	orderID = strings.TrimSpace(orderID)
	if _, err := scoped.Update(ctx, orderID, updates); err != nil {
		return domain.Order{}, err
	}
	doc, err := scoped.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// ListHistory returns the append-only status trail, oldest first.
func (r *OrderRepository) ListHistory(ctx context.Context, ownerUID string, orderID string) ([]domain.OrderHistoryEntry, error) {
	if r == nil || r.history == nil {
		return nil, errors.New("order repository: not initialised")
	}
	historyRepo, err := r.scopedHistory(ownerUID, orderID)
	if err != nil {
		return nil, err
	}

	docs, err := historyRepo.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("changedAt", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	entries := make([]domain.OrderHistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, domain.OrderHistoryEntry{
			ID:        doc.ID,
			Status:    domain.OrderStatus(doc.Data.Status),
			ChangedAt: doc.Data.ChangedAt,
		})
	}
	return entries, nil
}

type orderDocument struct {
	Items         []orderItemDocument `firestore:"items"`
	TotalPrice    int64               `firestore:"totalPrice"`
	CustomerPhone string              `firestore:"customerPhone,omitempty"`
	Status        string              `firestore:"status"`
	FloristName   string              `firestore:"floristName,omitempty"`
	Notes         string              `firestore:"notes,omitempty"`
	Source        string              `firestore:"source"`
	CreatedAt     time.Time           `firestore:"createdAt"`
	UpdatedAt     time.Time           `firestore:"updatedAt"`
}

type orderItemDocument struct {
	Name     string `firestore:"name"`
	Quantity int    `firestore:"quantity"`
	Price    int64  `firestore:"price"`
}

type historyDocument struct {
	Status    string    `firestore:"status"`
	ChangedAt time.Time `firestore:"changedAt"`
}

func orderDocumentFrom(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	return orderDocument{
		Items:         items,
		TotalPrice:    order.TotalPrice,
		CustomerPhone: strings.TrimSpace(order.CustomerPhone),
		Status:        string(order.Status),
		FloristName:   strings.TrimSpace(order.FloristName),
		Notes:         strings.TrimSpace(order.Notes),
		Source:        string(order.Source),
		CreatedAt:     order.CreatedAt.UTC(),
		UpdatedAt:     order.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	return domain.Order{
		ID:            id,
		Items:         items,
		TotalPrice:    d.TotalPrice,
		CustomerPhone: d.CustomerPhone,
		Status:        domain.OrderStatus(d.Status),
		FloristName:   d.FloristName,
		Notes:         d.Notes,
		Source:        domain.OrderSource(d.Source),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func encodeOrderToken(createdAt time.Time, docID string) string {
	token, err := pagination.EncodeToken(pagination.Cursor{
		StartAfter: []any{createdAt.UTC().Format(time.RFC3339Nano), docID},
	})
	if err != nil {
		return ""
	}
	return token
}

func decodeOrderToken(token string) (time.Time, string, error) {
	cursor, err := pagination.DecodeToken(token)
	if err != nil {
		return time.Time{}, "", err
	}
	if len(cursor.StartAfter) != 2 {
		return time.Time{}, "", fmt.Errorf("%w: unexpected cursor shape", pagination.ErrInvalidPageToken)
	}
	rawTime, ok := cursor.StartAfter[0].(string)
	if !ok {
		return time.Time{}, "", fmt.Errorf("%w: cursor timestamp", pagination.ErrInvalidPageToken)
	}
	ts, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: cursor timestamp", pagination.ErrInvalidPageToken)
	}
	docID, ok := cursor.StartAfter[1].(string)
	if !ok || strings.TrimSpace(docID) == "" {
		return time.Time{}, "", fmt.Errorf("%w: cursor id", pagination.ErrInvalidPageToken)
	}
	return ts, docID, nil
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
