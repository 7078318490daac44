package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rewear-app/rewear-api/internal/models"
	"github.com/rewear-app/rewear-api/internal/repository"
	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
)

type swapRepository interface {
	Create(ctx context.Context, swap *models.Swap) error
	FindByID(ctx context.Context, id string) (*models.Swap, error)
	ListForUser(ctx context.Context, userID, direction string, page, pageSize int) ([]models.Swap, int, error)
	Transition(ctx context.Context, swap *models.Swap, from, to models.SwapStatus, releaseItem bool) error
	Complete(ctx context.Context, swap *models.Swap, completionBonus int) error
}

type swapItemReader interface {
	FindByID(ctx context.Context, id string) (*models.ItemDetail, error)
}

type balanceReader interface {
	BalanceOf(ctx context.Context, userID string) (int, error)
}

// SwapConfig tunes the swap lifecycle rewards.
type SwapConfig struct {
	CompletionBonus int
}

// SwapService drives the swap lifecycle: proposing, responding, cancelling
// and completing exchanges.
type SwapService struct {
	repo      swapRepository
	items     swapItemReader
	balances  balanceReader
	notifier  notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    SwapConfig
}

// NewSwapService constructs a SwapService.
func NewSwapService(repo swapRepository, items swapItemReader, balances balanceReader, notifier notifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config SwapConfig) *SwapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SwapService{repo: repo, items: items, balances: balances, notifier: notifier, metrics: metrics, validator: validate, logger: logger, config: config}
}

// Create proposes a swap on an active item. The requested item is reserved
// so no second swap can target it while this one is open.
func (s *SwapService) Create(ctx context.Context, requesterID string, req models.CreateSwapRequest) (*models.Swap, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid swap payload")
	}
	if req.PointsOffered != nil && *req.PointsOffered < 0 {
		return nil, appErrors.Clone(appErrors.ErrNegativePoints, "points offered must not be negative")
	}

	offersItem := req.OfferedItemID != nil && *req.OfferedItemID != ""
	offersPoints := req.PointsOffered != nil && *req.PointsOffered > 0
	if !offersItem && !offersPoints {
		return nil, appErrors.Clone(appErrors.ErrNoSettlement, "")
	}

	requested, err := s.loadItem(ctx, req.RequestedItemID)
	if err != nil {
		return nil, err
	}
	if requested.OwnerID == requesterID {
		return nil, appErrors.Clone(appErrors.ErrSameUser, "")
	}
	if requested.Status != models.ItemStatusActive {
		return nil, appErrors.Clone(appErrors.ErrItemNotActive, "")
	}
	if offersItem && !requested.AvailableForSwap {
		return nil, appErrors.Clone(appErrors.ErrValidation, "this listing only accepts points offers")
	}

	if offersItem {
		offered, err := s.loadItem(ctx, *req.OfferedItemID)
		if err != nil {
			return nil, err
		}
		if offered.OwnerID != requesterID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "offered item does not belong to you")
		}
		if offered.Status != models.ItemStatusActive {
			return nil, appErrors.Clone(appErrors.ErrItemNotActive, "offered item is not available")
		}
	}

	if offersPoints {
		balance, err := s.balances.BalanceOf(ctx, requesterID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read points balance")
		}
		if balance < *req.PointsOffered {
			return nil, appErrors.Clone(appErrors.ErrInsufficientPoints, "")
		}
	}

	swap := &models.Swap{
		RequesterID:     requesterID,
		OwnerID:         requested.OwnerID,
		RequestedItemID: requested.ID,
		Message:         req.Message,
	}
	if offersItem {
		swap.OfferedItemID = req.OfferedItemID
	}
	if offersPoints {
		swap.PointsOffered = req.PointsOffered
	}

	if err := s.repo.Create(ctx, swap); err != nil {
		if errors.Is(err, repository.ErrItemUnavailable) {
			return nil, appErrors.Clone(appErrors.ErrItemNotActive, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create swap")
	}

	if s.notifier != nil {
		s.notifier.Notify(swap.OwnerID, models.NotificationSwapRequest,
			"New swap request",
			fmt.Sprintf("Someone wants to swap for %q.", requested.Title),
			&swap.RequestedItemID, &swap.ID)
	}

	s.logger.Info("swap created",
		zap.String("swap_id", swap.ID),
		zap.String("requester_id", requesterID),
		zap.String("item_id", swap.RequestedItemID))
	return swap, nil
}

// Transition applies a lifecycle action to a swap on behalf of an actor.
func (s *SwapService) Transition(ctx context.Context, actorID string, swapID string, action models.SwapAction) (*models.Swap, error) {
	swap, err := s.load(ctx, swapID)
	if err != nil {
		return nil, err
	}

	if err := swap.Guard(actorID, action); err != nil {
		return nil, err
	}

	switch action {
	case models.SwapActionAccept:
		err = s.repo.Transition(ctx, swap, models.SwapStatusPending, models.SwapStatusAccepted, false)
	case models.SwapActionReject:
		err = s.repo.Transition(ctx, swap, models.SwapStatusPending, models.SwapStatusRejected, true)
	case models.SwapActionCancel:
		err = s.repo.Transition(ctx, swap, swap.Status, models.SwapStatusCancelled, true)
	case models.SwapActionComplete:
		err = s.repo.Complete(ctx, swap, s.config.CompletionBonus)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown swap action %q", action))
	}
	if err != nil {
		return nil, s.mapTransitionErr(err, swap, action)
	}

	s.metrics.RecordSwapTransition(string(action))
	if action == models.SwapActionComplete && swap.HasPointsSettlement() {
		s.metrics.RecordPointsIssued(*swap.PointsOffered)
	}

	s.notifyTransition(swap, action)
	s.logger.Info("swap transitioned",
		zap.String("swap_id", swap.ID),
		zap.String("action", string(action)),
		zap.String("actor_id", actorID))
	return swap, nil
}

// Get returns a swap to one of its parties.
func (s *SwapService) Get(ctx context.Context, userID, id string) (*models.Swap, error) {
	swap, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !swap.Party(userID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a party to this swap")
	}
	return swap, nil
}

// List returns the user's swaps, optionally filtered by direction ("sent"
// or "received").
func (s *SwapService) List(ctx context.Context, userID, direction string, page, pageSize int) ([]models.Swap, *models.Pagination, error) {
	swaps, total, err := s.repo.ListForUser(ctx, userID, direction, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list swaps")
	}
	return swaps, paginationFor(total, page, pageSize), nil
}

func (s *SwapService) load(ctx context.Context, id string) (*models.Swap, error) {
	swap, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "swap not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load swap")
	}
	return swap, nil
}

func (s *SwapService) loadItem(ctx context.Context, id string) (*models.ItemDetail, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	return item, nil
}

func (s *SwapService) mapTransitionErr(err error, swap *models.Swap, action models.SwapAction) error {
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		return appErrors.Clone(appErrors.ErrInsufficientPoints, "requester cannot cover the points offer")
	case errors.Is(err, repository.ErrStaleSwap):
		return appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot %s swap %s, it was changed concurrently", action, swap.ID))
	case errors.Is(err, repository.ErrItemUnavailable):
		return appErrors.Clone(appErrors.ErrItemNotActive, "")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition swap")
}

func (s *SwapService) notifyTransition(swap *models.Swap, action models.SwapAction) {
	if s.notifier == nil {
		return
	}
	switch action {
	case models.SwapActionAccept:
		s.notifier.Notify(swap.RequesterID, models.NotificationSwapAccepted,
			"Swap accepted", "Your swap request was accepted.", nil, &swap.ID)
	case models.SwapActionReject:
		s.notifier.Notify(swap.RequesterID, models.NotificationSwapRejected,
			"Swap rejected", "Your swap request was rejected.", nil, &swap.ID)
	case models.SwapActionCancel:
		s.notifier.Notify(swap.OwnerID, models.NotificationSwapCancelled,
			"Swap cancelled", "A swap request on your item was cancelled.", nil, &swap.ID)
	case models.SwapActionComplete:
		for _, userID := range []string{swap.RequesterID, swap.OwnerID} {
			s.notifier.Notify(userID, models.NotificationSwapCompleted,
				"Swap completed", "Your swap has been completed.", nil, &swap.ID)
		}
	}
}
