package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rewear-app/rewear-api/internal/models"
	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
)

type dashboardItemRepository interface {
	StatusCounts(ctx context.Context, ownerID string) (map[models.ItemStatus]int, error)
}

type dashboardSwapRepository interface {
	CountsForUser(ctx context.Context, userID string) (pendingIncoming, ongoing, completed int, err error)
}

type dashboardNotificationCounter interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

// DashboardService aggregates a user's marketplace activity into one view.
type DashboardService struct {
	items         dashboardItemRepository
	swaps         dashboardSwapRepository
	notifications dashboardNotificationCounter
	balances      balanceReader
	logger        *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(items dashboardItemRepository, swaps dashboardSwapRepository, notifications dashboardNotificationCounter, balances balanceReader, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{items: items, swaps: swaps, notifications: notifications, balances: balances, logger: logger}
}

// Stats assembles the dashboard for a user.
func (s *DashboardService) Stats(ctx context.Context, userID string) (*models.DashboardStats, error) {
	counts, err := s.items.StatusCounts(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count items")
	}

	pendingIncoming, ongoing, completed, err := s.swaps.CountsForUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count swaps")
	}

	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}

	balance, err := s.balances.BalanceOf(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read balance")
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	return &models.DashboardStats{
		TotalItems:          total,
		ActiveItems:         counts[models.ItemStatusActive],
		PendingItems:        counts[models.ItemStatusPending],
		SwappedItems:        counts[models.ItemStatusSwapped],
		PointsBalance:       balance,
		PendingIncoming:     pendingIncoming,
		OngoingSwaps:        ongoing,
		CompletedSwaps:      completed,
		UnreadNotifications: unread,
	}, nil
}
