package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/repositories"
)

const (
	orderEventStatusChanged = "order.status.changed"

	eventOrderTransitioned  = "order.status.transitioned"
	eventOrderDetailsPatch  = "order.details.updated"
	eventOrderEventDropped  = "order.event.publish.failed"
	statsPageSize           = 100
	statsScanPageLimit      = 50
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid arguments.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidTransition indicates the status machine rejects the move.
	ErrOrderInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderFloristLocked indicates florist assignment on a terminal order.
	ErrOrderFloristLocked = errors.New("order: florist can only change while the order is active")
	// ErrOrderUnavailable indicates the persistence layer is unreachable.
	ErrOrderUnavailable = errors.New("order: temporarily unavailable")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
	Events OrderEventPublisher
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders repositories.OrderRepository
	events OrderEventPublisher
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

var _ OrderService = (*orderService)(nil)

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders: deps.Orders,
		events: deps.Events,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

func (s *orderService) ListOrders(ctx context.Context, ownerUID string, filter OrderListFilter) (domain.CursorPage[Order], error) {
	ownerUID = strings.TrimSpace(ownerUID)
	if ownerUID == "" {
		return domain.CursorPage[Order]{}, ErrOrderInvalidInput
	}
	for _, status := range filter.Status {
		if !status.Valid() {
			return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
		}
	}

	page, err := s.orders.List(ctx, ownerUID, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.translate(err)
	}
	return page, nil
}

// GetOrder returns the order with its history, most recent change first.
func (s *orderService) GetOrder(ctx context.Context, ownerUID string, orderID string) (OrderDetails, error) {
	ownerUID = strings.TrimSpace(ownerUID)
	orderID = strings.TrimSpace(orderID)
	if ownerUID == "" || orderID == "" {
		return OrderDetails{}, ErrOrderInvalidInput
	}

	order, err := s.orders.FindByID(ctx, ownerUID, orderID)
	if err != nil {
		return OrderDetails{}, s.translate(err)
	}
	history, err := s.orders.ListHistory(ctx, ownerUID, orderID)
	if err != nil {
		return OrderDetails{}, s.translate(err)
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].ChangedAt.After(history[j].ChangedAt)
	})

	return OrderDetails{Order: order, History: history}, nil
}

// TransitionStatus moves the order through the status machine and appends the
// history record. Every accepted change is published as an order event.
func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderTransitionCommand) (Order, error) {
	ownerUID := strings.TrimSpace(cmd.OwnerUID)
	orderID := strings.TrimSpace(cmd.OrderID)
	if ownerUID == "" || orderID == "" {
		return Order{}, ErrOrderInvalidInput
	}
	if !cmd.Next.Valid() {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Next)
	}

	current, err := s.orders.FindByID(ctx, ownerUID, orderID)
	if err != nil {
		return Order{}, s.translate(err)
	}
	if !current.Status.CanTransitionTo(cmd.Next) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidTransition, current.Status, cmd.Next)
	}

	now := s.clock()
	updated, err := s.orders.UpdateStatus(ctx, ownerUID, orderID, cmd.Next, now)
	if err != nil {
		return Order{}, s.translate(err)
	}

	s.publish(ctx, OrderEventMessage{
		Type:       orderEventStatusChanged,
		OrderID:    orderID,
		OwnerUID:   ownerUID,
		Status:     string(cmd.Next),
		Source:     string(updated.Source),
		OccurredAt: now,
	})

	s.logger(ctx, eventOrderTransitioned, map[string]any{
		"ownerUid": ownerUID, "orderId": orderID, "from": string(current.Status), "to": string(cmd.Next),
	})
	return updated, nil
}

// UpdateDetails patches florist assignment and notes. Items, totalPrice and
// customerPhone are immutable and have no path through here.
func (s *orderService) UpdateDetails(ctx context.Context, cmd OrderDetailsCommand) (Order, error) {
	ownerUID := strings.TrimSpace(cmd.OwnerUID)
	orderID := strings.TrimSpace(cmd.OrderID)
	if ownerUID == "" || orderID == "" {
		return Order{}, ErrOrderInvalidInput
	}
	if cmd.FloristName == nil && cmd.Notes == nil {
		return Order{}, fmt.Errorf("%w: nothing to update", ErrOrderInvalidInput)
	}

	current, err := s.orders.FindByID(ctx, ownerUID, orderID)
	if err != nil {
		return Order{}, s.translate(err)
	}

	now := s.clock()
	updated := current
	if cmd.FloristName != nil {
		if current.Status.Terminal() {
			return Order{}, ErrOrderFloristLocked
		}
		updated, err = s.orders.AssignFlorist(ctx, ownerUID, orderID, *cmd.FloristName, now)
		if err != nil {
			return Order{}, s.translate(err)
		}
	}
	if cmd.Notes != nil {
		updated, err = s.orders.UpdateNotes(ctx, ownerUID, orderID, *cmd.Notes, now)
		if err != nil {
			return Order{}, s.translate(err)
		}
	}

	s.logger(ctx, eventOrderDetailsPatch, map[string]any{"ownerUid": ownerUID, "orderId": orderID})
	return updated, nil
}

// Stats aggregates the whole board: counts per terminal state, revenue from
// completed orders, and the florist leaderboard by completed count.
func (s *orderService) Stats(ctx context.Context, ownerUID string) (OrderStats, error) {
	ownerUID = strings.TrimSpace(ownerUID)
	if ownerUID == "" {
		return OrderStats{}, ErrOrderInvalidInput
	}

	stats := OrderStats{}
	completedByFlorist := map[string]int{}

	token := ""
	for page := 0; page < statsScanPageLimit; page++ {
		batch, err := s.orders.List(ctx, ownerUID, OrderListFilter{
			Pagination: Pagination{PageSize: statsPageSize, PageToken: token},
		})
		if err != nil {
			return OrderStats{}, s.translate(err)
		}
		for _, order := range batch.Items {
			stats.Total++
			switch order.Status {
			case domain.OrderStatusCompleted:
				stats.Completed++
				stats.Revenue += order.TotalPrice
				if name := strings.TrimSpace(order.FloristName); name != "" {
					completedByFlorist[name]++
				}
			case domain.OrderStatusCancelled:
				stats.Cancelled++
			default:
				stats.Active++
			}
		}
		token = batch.NextPageToken
		if token == "" {
			break
		}
	}

	if stats.Total > 0 {
		stats.CancelledRate = float64(stats.Cancelled) / float64(stats.Total)
	}

	stats.Leaderboard = make([]FloristStanding, 0, len(completedByFlorist))
	for name, completed := range completedByFlorist {
		stats.Leaderboard = append(stats.Leaderboard, FloristStanding{FloristName: name, Completed: completed})
	}
	sort.Slice(stats.Leaderboard, func(i, j int) bool {
		if stats.Leaderboard[i].Completed != stats.Leaderboard[j].Completed {
			return stats.Leaderboard[i].Completed > stats.Leaderboard[j].Completed
		}
		return stats.Leaderboard[i].FloristName < stats.Leaderboard[j].FloristName
	})

	return stats, nil
}

func (s *orderService) publish(ctx context.Context, message OrderEventMessage) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, eventOrderEventDropped, map[string]any{
			"orderId": message.OrderID, "type": message.Type, "error": err.Error(),
		})
	}
}

func (s *orderService) translate(err error) error {
	switch {
	case isRepoNotFound(err):
		return ErrOrderNotFound
	case isRepoUnavailable(err):
		return ErrOrderUnavailable
	default:
		return err
	}
}
