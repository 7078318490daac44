package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rewear-app/rewear-api/internal/catalog"
	"github.com/rewear-app/rewear-api/internal/models"
	"github.com/rewear-app/rewear-api/internal/valuation"
	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
)

const featuredCacheKey = "catalog:featured"

type itemRepository interface {
	List(ctx context.Context, q catalog.CanonicalQuery) ([]models.ItemDetail, int, error)
	ListByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]models.Item, int, error)
	Featured(ctx context.Context, limit int) ([]models.ItemDetail, error)
	FindByID(ctx context.Context, id string) (*models.ItemDetail, error)
	Create(ctx context.Context, item *models.Item) error
	Update(ctx context.Context, item *models.Item) error
	UpdateStatus(ctx context.Context, id string, status models.ItemStatus) error
}

type pointsLedger interface {
	Credit(ctx context.Context, userID string, txType models.TransactionType, amount int, description string, relatedItemID *string) error
}

// notifier dispatches best-effort user notifications.
type notifier interface {
	Notify(userID string, kind models.NotificationType, title, message string, itemID, swapID *string)
}

// catalogCache abstracts the Redis-backed cache for hot catalog reads.
type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ItemConfig tunes listing rewards and the featured shelf.
type ItemConfig struct {
	ListingBonus     int
	FeaturedLimit    int
	FeaturedCacheTTL time.Duration
}

// ItemService provides the catalog use cases: browsing, listing, editing
// and delisting items.
type ItemService struct {
	repo      itemRepository
	points    pointsLedger
	notifier  notifier
	cache     catalogCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    ItemConfig
}

// NewItemService constructs an ItemService.
func NewItemService(repo itemRepository, points pointsLedger, notifier notifier, cache catalogCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config ItemConfig) *ItemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.FeaturedLimit <= 0 {
		config.FeaturedLimit = 10
	}
	if config.FeaturedCacheTTL <= 0 {
		config.FeaturedCacheTTL = 5 * time.Minute
	}
	return &ItemService{repo: repo, points: points, notifier: notifier, cache: cache, metrics: metrics, validator: validate, logger: logger, config: config}
}

// List normalises the raw browse query and returns the matching page of
// active items.
func (s *ItemService) List(ctx context.Context, raw catalog.RawQuery) ([]models.ItemDetail, *models.Pagination, error) {
	q, err := catalog.Normalize(raw)
	if err != nil {
		return nil, nil, err
	}

	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list items")
	}
	return items, paginationFor(total, q.Page, q.PageSize), nil
}

// Get fetches one listing with its owner's name.
func (s *ItemService) Get(ctx context.Context, id string) (*models.ItemDetail, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	return item, nil
}

// Featured returns the cached shelf of recent high-condition listings.
func (s *ItemService) Featured(ctx context.Context) ([]models.ItemDetail, error) {
	var cached []models.ItemDetail
	if s.cache != nil {
		if err := s.cache.Get(ctx, featuredCacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("featured cache read failed", zap.Error(err))
		}
	}

	items, err := s.repo.Featured(ctx, s.config.FeaturedLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load featured items")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, featuredCacheKey, items, s.config.FeaturedCacheTTL); err != nil {
			s.logger.Warn("featured cache write failed", zap.Error(err))
		}
	}
	return items, nil
}

// Suggest returns the valuation for a category/condition pair without
// creating anything.
func (s *ItemService) Suggest(category, condition string) (*models.ValuationPreview, error) {
	cat := models.Category(category)
	cond := models.Condition(condition)
	points, err := valuation.SuggestPoints(cat, cond)
	if err != nil {
		return nil, err
	}
	return &models.ValuationPreview{Category: cat, Condition: cond, Points: points}, nil
}

// Create lists a new item. The points value defaults to the suggested
// valuation; an explicit override is validated but otherwise honoured.
// Listing earns the owner a bonus.
func (s *ItemService) Create(ctx context.Context, ownerID string, req models.CreateItemRequest) (*models.Item, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid item payload")
	}

	category := models.Category(req.Category)
	condition := models.Condition(req.Condition)
	points, err := valuation.SuggestPoints(category, condition)
	if err != nil {
		return nil, err
	}
	if req.PointsValue != nil {
		if err := valuation.ValidateOverride(*req.PointsValue); err != nil {
			return nil, err
		}
		points = *req.PointsValue
	}

	available := true
	if req.AvailableForSwap != nil {
		available = *req.AvailableForSwap
	}

	item := &models.Item{
		OwnerID:          ownerID,
		Title:            req.Title,
		Description:      req.Description,
		Category:         category,
		Size:             req.Size,
		Condition:        condition,
		PointsValue:      points,
		AvailableForSwap: available,
		Tags:             req.Tags,
		Status:           models.ItemStatusActive,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create item")
	}

	s.metrics.RecordItemListed()

	if s.points != nil && s.config.ListingBonus > 0 {
		if err := s.points.Credit(ctx, ownerID, models.TransactionBonus, s.config.ListingBonus,
			fmt.Sprintf("Bonus for listing %q", item.Title), &item.ID); err != nil {
			s.logger.Warn("failed to credit listing bonus", zap.String("item_id", item.ID), zap.Error(err))
		} else {
			s.metrics.RecordPointsIssued(s.config.ListingBonus)
			if s.notifier != nil {
				s.notifier.Notify(ownerID, models.NotificationPointsEarned,
					"Points earned",
					fmt.Sprintf("You earned %d points for listing %q.", s.config.ListingBonus, item.Title),
					&item.ID, nil)
			}
		}
	}

	s.invalidateFeatured(ctx)
	s.logger.Info("item listed", zap.String("item_id", item.ID), zap.String("owner_id", ownerID))
	return item, nil
}

// Update edits a listing. Only the owner may edit, and only while the item
// is still in the catalog. Changing category or condition without an
// explicit points override recomputes the valuation.
func (s *ItemService) Update(ctx context.Context, userID, id string, req models.UpdateItemRequest) (*models.Item, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid item payload")
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	item := detail.Item

	if item.OwnerID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can edit a listing")
	}
	if item.Status != models.ItemStatusActive {
		return nil, appErrors.Clone(appErrors.ErrItemNotActive, "only active listings can be edited")
	}

	revalue := false
	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Category != nil {
		item.Category = models.Category(*req.Category)
		revalue = true
	}
	if req.Condition != nil {
		item.Condition = models.Condition(*req.Condition)
		revalue = true
	}
	if req.Size != nil {
		item.Size = *req.Size
	}
	if req.Tags != nil {
		item.Tags = *req.Tags
	}
	if req.AvailableForSwap != nil {
		item.AvailableForSwap = *req.AvailableForSwap
	}

	switch {
	case req.PointsValue != nil:
		if err := valuation.ValidateOverride(*req.PointsValue); err != nil {
			return nil, err
		}
		item.PointsValue = *req.PointsValue
	case revalue:
		points, err := valuation.SuggestPoints(item.Category, item.Condition)
		if err != nil {
			return nil, err
		}
		item.PointsValue = points
	default:
		if !item.Category.Valid() {
			return nil, appErrors.Clone(appErrors.ErrInvalidCategory, "")
		}
		if !item.Condition.Valid() {
			return nil, appErrors.Clone(appErrors.ErrInvalidCondition, "")
		}
	}

	if err := s.repo.Update(ctx, &item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update item")
	}

	s.invalidateFeatured(ctx)
	return &item, nil
}

// Delist removes a listing from the catalog. The owner can always delist
// their own active items; moderators and admins can delist anyone's, which
// notifies the owner.
func (s *ItemService) Delist(ctx context.Context, actorID string, actorRole models.UserRole, id string) error {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	item := detail.Item

	moderator := actorRole == models.RoleModerator || actorRole == models.RoleAdmin
	if item.OwnerID != actorID && !moderator {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner or a moderator can delist an item")
	}
	if item.Status != models.ItemStatusActive {
		return appErrors.Clone(appErrors.ErrItemNotActive, "only active listings can be delisted")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.ItemStatusDelisted); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delist item")
	}

	if item.OwnerID != actorID && s.notifier != nil {
		s.notifier.Notify(item.OwnerID, models.NotificationItemDelisted,
			"Listing removed",
			fmt.Sprintf("Your listing %q was removed by a moderator.", item.Title),
			&item.ID, nil)
	}

	s.invalidateFeatured(ctx)
	s.logger.Info("item delisted", zap.String("item_id", id), zap.String("actor_id", actorID))
	return nil
}

// MyItems returns every listing of the calling user, newest first.
func (s *ItemService) MyItems(ctx context.Context, ownerID string, page, pageSize int) ([]models.Item, *models.Pagination, error) {
	items, total, err := s.repo.ListByOwner(ctx, ownerID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list your items")
	}
	return items, paginationFor(total, page, pageSize), nil
}

func (s *ItemService) invalidateFeatured(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, featuredCacheKey); err != nil {
		s.logger.Warn("featured cache invalidation failed", zap.Error(err))
	}
}
