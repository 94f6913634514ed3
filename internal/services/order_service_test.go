package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/repositories"
)

type stubOrderEventPublisher struct {
	publish func(ctx context.Context, message OrderEventMessage) (string, error)
}

func (s *stubOrderEventPublisher) PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error) {
	if s.publish == nil {
		return "msg-1", nil
	}
	return s.publish(ctx, message)
}

func newOrderServiceForTest(t *testing.T, repo *stubOrderRepository, events OrderEventPublisher) OrderService {
	t.Helper()
	svc, err := NewOrderService(OrderServiceDeps{
		Orders: repo,
		Events: events,
		Clock:  fixedClock(time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return svc
}

func TestTransitionStatusFollowsStateMachine(t *testing.T) {
	cases := []struct {
		name    string
		current domain.OrderStatus
		next    domain.OrderStatus
		allowed bool
	}{
		{"new to inProgress", domain.OrderStatusNew, domain.OrderStatusInProgress, true},
		{"new to cancelled", domain.OrderStatusNew, domain.OrderStatusCancelled, true},
		{"new to completed skips inProgress", domain.OrderStatusNew, domain.OrderStatusCompleted, false},
		{"inProgress to completed", domain.OrderStatusInProgress, domain.OrderStatusCompleted, true},
		{"inProgress to cancelled", domain.OrderStatusInProgress, domain.OrderStatusCancelled, true},
		{"inProgress back to new", domain.OrderStatusInProgress, domain.OrderStatusNew, false},
		{"completed is terminal", domain.OrderStatusCompleted, domain.OrderStatusCancelled, false},
		{"cancelled is terminal", domain.OrderStatusCancelled, domain.OrderStatusInProgress, false},
		{"same status is rejected", domain.OrderStatusNew, domain.OrderStatusNew, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubOrderRepository{
				findByID: func(context.Context, string, string) (domain.Order, error) {
					return domain.Order{ID: "order-1", Status: tc.current}, nil
				},
				updateStatus: func(_ context.Context, _ string, _ string, status domain.OrderStatus, _ time.Time) (domain.Order, error) {
					return domain.Order{ID: "order-1", Status: status}, nil
				},
			}
			svc := newOrderServiceForTest(t, repo, nil)

			updated, err := svc.TransitionStatus(context.Background(), OrderTransitionCommand{
				OwnerUID: "uid-1", OrderID: "order-1", Next: tc.next,
			})
			if tc.allowed {
				if err != nil {
					t.Fatalf("expected transition to succeed: %v", err)
				}
				if updated.Status != tc.next {
					t.Fatalf("expected status %q got %q", tc.next, updated.Status)
				}
				return
			}
			if !errors.Is(err, ErrOrderInvalidTransition) {
				t.Fatalf("expected ErrOrderInvalidTransition got %v", err)
			}
		})
	}
}

func TestTransitionStatusPublishesEvent(t *testing.T) {
	var published OrderEventMessage
	events := &stubOrderEventPublisher{
		publish: func(_ context.Context, message OrderEventMessage) (string, error) {
			published = message
			return "msg-9", nil
		},
	}
	repo := &stubOrderRepository{
		findByID: func(context.Context, string, string) (domain.Order, error) {
			return domain.Order{ID: "order-1", Status: domain.OrderStatusNew, Source: domain.OrderSourceBouquet}, nil
		},
		updateStatus: func(_ context.Context, _ string, _ string, status domain.OrderStatus, _ time.Time) (domain.Order, error) {
			return domain.Order{ID: "order-1", Status: status, Source: domain.OrderSourceBouquet}, nil
		},
	}
	svc := newOrderServiceForTest(t, repo, events)

	if _, err := svc.TransitionStatus(context.Background(), OrderTransitionCommand{
		OwnerUID: "uid-1", OrderID: "order-1", Next: domain.OrderStatusInProgress,
	}); err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if published.Type != "order.status.changed" {
		t.Fatalf("unexpected event type %q", published.Type)
	}
	if published.OrderID != "order-1" || published.OwnerUID != "uid-1" {
		t.Fatalf("unexpected event identity: %+v", published)
	}
	if published.Status != "inProgress" || published.Source != "bouquet" {
		t.Fatalf("unexpected event payload: %+v", published)
	}
}

func TestTransitionStatusSucceedsWhenPublishFails(t *testing.T) {
	events := &stubOrderEventPublisher{
		publish: func(context.Context, OrderEventMessage) (string, error) {
			return "", errors.New("topic unavailable")
		},
	}
	repo := &stubOrderRepository{
		findByID: func(context.Context, string, string) (domain.Order, error) {
			return domain.Order{ID: "order-1", Status: domain.OrderStatusNew}, nil
		},
		updateStatus: func(_ context.Context, _ string, _ string, status domain.OrderStatus, _ time.Time) (domain.Order, error) {
			return domain.Order{ID: "order-1", Status: status}, nil
		},
	}
	svc := newOrderServiceForTest(t, repo, events)

	if _, err := svc.TransitionStatus(context.Background(), OrderTransitionCommand{
		OwnerUID: "uid-1", OrderID: "order-1", Next: domain.OrderStatusInProgress,
	}); err != nil {
		t.Fatalf("publish failure must not fail the transition: %v", err)
	}
}

func TestUpdateDetailsFloristLockedOnTerminalOrder(t *testing.T) {
	repo := &stubOrderRepository{
		findByID: func(context.Context, string, string) (domain.Order, error) {
			return domain.Order{ID: "order-1", Status: domain.OrderStatusCompleted}, nil
		},
	}
	svc := newOrderServiceForTest(t, repo, nil)

	name := "Айгуль"
	_, err := svc.UpdateDetails(context.Background(), OrderDetailsCommand{
		OwnerUID: "uid-1", OrderID: "order-1", FloristName: &name,
	})
	if !errors.Is(err, ErrOrderFloristLocked) {
		t.Fatalf("expected ErrOrderFloristLocked got %v", err)
	}
}

func TestUpdateDetailsNotesAllowedOnTerminalOrder(t *testing.T) {
	repo := &stubOrderRepository{
		findByID: func(context.Context, string, string) (domain.Order, error) {
			return domain.Order{ID: "order-1", Status: domain.OrderStatusCompleted}, nil
		},
		updateNotes: func(_ context.Context, _ string, _ string, notes string, _ time.Time) (domain.Order, error) {
			return domain.Order{ID: "order-1", Status: domain.OrderStatusCompleted, Notes: notes}, nil
		},
	}
	svc := newOrderServiceForTest(t, repo, nil)

	notes := "доставка к 18:00"
	updated, err := svc.UpdateDetails(context.Background(), OrderDetailsCommand{
		OwnerUID: "uid-1", OrderID: "order-1", Notes: &notes,
	})
	if err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}
	if updated.Notes != notes {
		t.Fatalf("expected notes %q got %q", notes, updated.Notes)
	}
}

func TestUpdateDetailsRequiresAField(t *testing.T) {
	svc := newOrderServiceForTest(t, &stubOrderRepository{}, nil)

	_, err := svc.UpdateDetails(context.Background(), OrderDetailsCommand{
		OwnerUID: "uid-1", OrderID: "order-1",
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput got %v", err)
	}
}

func TestGetOrderSortsHistoryMostRecentFirst(t *testing.T) {
	base := time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC)
	repo := &stubOrderRepository{
		findByID: func(context.Context, string, string) (domain.Order, error) {
			return domain.Order{ID: "order-1", Status: domain.OrderStatusCompleted}, nil
		},
		listHistory: func(context.Context, string, string) ([]domain.OrderHistoryEntry, error) {
			return []domain.OrderHistoryEntry{
				{Status: domain.OrderStatusNew, ChangedAt: base},
				{Status: domain.OrderStatusInProgress, ChangedAt: base.Add(time.Hour)},
				{Status: domain.OrderStatusCompleted, ChangedAt: base.Add(2 * time.Hour)},
			}, nil
		},
	}
	svc := newOrderServiceForTest(t, repo, nil)

	details, err := svc.GetOrder(context.Background(), "uid-1", "order-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	want := []domain.OrderStatus{domain.OrderStatusCompleted, domain.OrderStatusInProgress, domain.OrderStatusNew}
	for i, status := range want {
		if details.History[i].Status != status {
			t.Fatalf("history[%d] = %q want %q", i, details.History[i].Status, status)
		}
	}
}

func TestStatsAggregatesAcrossPages(t *testing.T) {
	pageOne := []domain.Order{
		{ID: "o1", Status: domain.OrderStatusCompleted, TotalPrice: 1400, FloristName: "Айгуль"},
		{ID: "o2", Status: domain.OrderStatusCompleted, TotalPrice: 7000, FloristName: "Айгуль"},
		{ID: "o3", Status: domain.OrderStatusCancelled},
	}
	pageTwo := []domain.Order{
		{ID: "o4", Status: domain.OrderStatusCompleted, TotalPrice: 12000, FloristName: "Бота"},
		{ID: "o5", Status: domain.OrderStatusNew},
		{ID: "o6", Status: domain.OrderStatusInProgress, FloristName: "Бота"},
	}
	repo := &stubOrderRepository{
		list: func(_ context.Context, _ string, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
			if filter.Pagination.PageToken == "" {
				return domain.CursorPage[domain.Order]{Items: pageOne, NextPageToken: "next"}, nil
			}
			return domain.CursorPage[domain.Order]{Items: pageTwo}, nil
		},
	}
	svc := newOrderServiceForTest(t, repo, nil)

	stats, err := svc.Stats(context.Background(), "uid-1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 6 || stats.Completed != 3 || stats.Cancelled != 1 || stats.Active != 2 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.Revenue != 20400 {
		t.Fatalf("expected revenue 20400 got %d", stats.Revenue)
	}
	wantRate := 1.0 / 6.0
	if stats.CancelledRate < wantRate-1e-9 || stats.CancelledRate > wantRate+1e-9 {
		t.Fatalf("expected cancelled rate %.4f got %.4f", wantRate, stats.CancelledRate)
	}
	if len(stats.Leaderboard) != 2 {
		t.Fatalf("expected 2 florists got %d", len(stats.Leaderboard))
	}
	if stats.Leaderboard[0].FloristName != "Айгуль" || stats.Leaderboard[0].Completed != 2 {
		t.Fatalf("unexpected leaderboard head: %+v", stats.Leaderboard[0])
	}
	if stats.Leaderboard[1].FloristName != "Бота" || stats.Leaderboard[1].Completed != 1 {
		t.Fatalf("unexpected leaderboard tail: %+v", stats.Leaderboard[1])
	}
}

func TestListOrdersRejectsUnknownStatusFilter(t *testing.T) {
	svc := newOrderServiceForTest(t, &stubOrderRepository{}, nil)

	_, err := svc.ListOrders(context.Background(), "uid-1", OrderListFilter{
		Status: []domain.OrderStatus{"archived"},
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput got %v", err)
	}
}
