package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear-app/rewear-api/internal/catalog"
	"github.com/rewear-app/rewear-api/internal/models"
	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
)

type mockItemRepo struct {
	items     map[string]models.ItemDetail
	created   *models.Item
	updated   *models.Item
	statusSet map[string]models.ItemStatus
	lastQuery *catalog.CanonicalQuery
	featured  []models.ItemDetail
	fetches   int
}

func (m *mockItemRepo) List(ctx context.Context, q catalog.CanonicalQuery) ([]models.ItemDetail, int, error) {
	m.lastQuery = &q
	return nil, 0, nil
}

func (m *mockItemRepo) ListByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]models.Item, int, error) {
	return nil, 0, nil
}

func (m *mockItemRepo) Featured(ctx context.Context, limit int) ([]models.ItemDetail, error) {
	m.fetches++
	return m.featured, nil
}

func (m *mockItemRepo) FindByID(ctx context.Context, id string) (*models.ItemDetail, error) {
	if item, ok := m.items[id]; ok {
		return &item, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockItemRepo) Create(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = "new-item"
	}
	m.created = item
	return nil
}

func (m *mockItemRepo) Update(ctx context.Context, item *models.Item) error {
	m.updated = item
	return nil
}

func (m *mockItemRepo) UpdateStatus(ctx context.Context, id string, status models.ItemStatus) error {
	if m.statusSet == nil {
		m.statusSet = make(map[string]models.ItemStatus)
	}
	m.statusSet[id] = status
	return nil
}

type creditRecord struct {
	userID string
	txType models.TransactionType
	amount int
}

type mockLedger struct {
	credits []creditRecord
}

func (m *mockLedger) Credit(ctx context.Context, userID string, txType models.TransactionType, amount int, description string, relatedItemID *string) error {
	m.credits = append(m.credits, creditRecord{userID: userID, txType: txType, amount: amount})
	return nil
}

type mockCache struct {
	entries map[string][]byte
	sets    int
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	if _, ok := m.entries[key]; !ok {
		return appErrors.ErrCacheMiss
	}
	return nil
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = []byte("cached")
	m.sets++
	return nil
}

func (m *mockCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.entries = nil
	return nil
}

func newItemFixture(repo *mockItemRepo, ledger *mockLedger, n notifier, cache catalogCache) *ItemService {
	return NewItemService(repo, ledger, n, cache, nil, nil, nil, ItemConfig{ListingBonus: 10, FeaturedLimit: 10, FeaturedCacheTTL: time.Minute})
}

func TestItemServiceCreateUsesSuggestedValuation(t *testing.T) {
	repo := &mockItemRepo{}
	ledger := &mockLedger{}
	notifier := &mockNotifier{}
	svc := newItemFixture(repo, ledger, notifier, nil)

	item, err := svc.Create(context.Background(), "owner-1", models.CreateItemRequest{
		Title:     "Wool coat",
		Category:  "outerwear",
		Size:      "M",
		Condition: "good",
	})
	require.NoError(t, err)
	assert.Equal(t, 45, item.PointsValue)
	assert.Equal(t, models.ItemStatusActive, item.Status)
	assert.True(t, item.AvailableForSwap)

	require.Len(t, ledger.credits, 1)
	assert.Equal(t, creditRecord{userID: "owner-1", txType: models.TransactionBonus, amount: 10}, ledger.credits[0])
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, models.NotificationPointsEarned, notifier.sent[0].kind)
}

func TestItemServiceCreateHonoursOverride(t *testing.T) {
	repo := &mockItemRepo{}
	svc := newItemFixture(repo, &mockLedger{}, nil, nil)

	item, err := svc.Create(context.Background(), "owner-1", models.CreateItemRequest{
		Title:       "Vintage tee",
		Category:    "tops",
		Size:        "S",
		Condition:   "fair",
		PointsValue: ptrInt(99),
	})
	require.NoError(t, err)
	assert.Equal(t, 99, item.PointsValue)
}

func TestItemServiceCreateRejectsBadInput(t *testing.T) {
	svc := newItemFixture(&mockItemRepo{}, &mockLedger{}, nil, nil)

	_, err := svc.Create(context.Background(), "owner-1", models.CreateItemRequest{
		Title:     "Mystery box",
		Category:  "gadgets",
		Size:      "M",
		Condition: "good",
	})
	assertErrorCode(t, err, "INVALID_CATEGORY")

	_, err = svc.Create(context.Background(), "owner-1", models.CreateItemRequest{
		Title:     "Torn scarf",
		Category:  "accessories",
		Size:      "M",
		Condition: "ragged",
	})
	assertErrorCode(t, err, "INVALID_CONDITION")

	_, err = svc.Create(context.Background(), "owner-1", models.CreateItemRequest{
		Title:       "Silk dress",
		Category:    "dresses",
		Size:        "S",
		Condition:   "new",
		PointsValue: ptrInt(-1),
	})
	assertErrorCode(t, err, "NEGATIVE_POINTS")
}

func TestItemServiceUpdateOwnerOnly(t *testing.T) {
	repo := &mockItemRepo{items: map[string]models.ItemDetail{
		"item-1": activeItem("item-1", "owner-1", true),
	}}
	svc := newItemFixture(repo, &mockLedger{}, nil, nil)

	_, err := svc.Update(context.Background(), "stranger", "item-1", models.UpdateItemRequest{Title: ptrStr("Nice coat")})
	assertErrorCode(t, err, "FORBIDDEN")
}

func TestItemServiceUpdateRevaluesOnConditionChange(t *testing.T) {
	repo := &mockItemRepo{items: map[string]models.ItemDetail{
		"item-1": activeItem("item-1", "owner-1", true),
	}}
	svc := newItemFixture(repo, &mockLedger{}, nil, nil)

	item, err := svc.Update(context.Background(), "owner-1", "item-1", models.UpdateItemRequest{
		Condition: ptrStr("poor"),
	})
	require.NoError(t, err)
	// outerwear base 60 at poor weight 25 rounds half up to 15.
	assert.Equal(t, 15, item.PointsValue)
	require.NotNil(t, repo.updated)
}

func TestItemServiceUpdateInactiveItem(t *testing.T) {
	swapped := activeItem("item-1", "owner-1", true)
	swapped.Status = models.ItemStatusSwapped
	repo := &mockItemRepo{items: map[string]models.ItemDetail{"item-1": swapped}}
	svc := newItemFixture(repo, &mockLedger{}, nil, nil)

	_, err := svc.Update(context.Background(), "owner-1", "item-1", models.UpdateItemRequest{Title: ptrStr("Sold coat")})
	assertErrorCode(t, err, "ITEM_NOT_ACTIVE")
}

func TestItemServiceDelist(t *testing.T) {
	repo := &mockItemRepo{items: map[string]models.ItemDetail{
		"item-1": activeItem("item-1", "owner-1", true),
	}}
	notifier := &mockNotifier{}
	svc := newItemFixture(repo, &mockLedger{}, notifier, nil)

	// Strangers cannot delist.
	err := svc.Delist(context.Background(), "stranger", models.RoleUser, "item-1")
	assertErrorCode(t, err, "FORBIDDEN")

	// Moderators can, and the owner hears about it.
	err = svc.Delist(context.Background(), "mod-1", models.RoleModerator, "item-1")
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusDelisted, repo.statusSet["item-1"])
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, sentNotification{userID: "owner-1", kind: models.NotificationItemDelisted}, notifier.sent[0])
}

func TestItemServiceDelistOwnerSilent(t *testing.T) {
	repo := &mockItemRepo{items: map[string]models.ItemDetail{
		"item-1": activeItem("item-1", "owner-1", true),
	}}
	notifier := &mockNotifier{}
	svc := newItemFixture(repo, &mockLedger{}, notifier, nil)

	require.NoError(t, svc.Delist(context.Background(), "owner-1", models.RoleUser, "item-1"))
	assert.Equal(t, models.ItemStatusDelisted, repo.statusSet["item-1"])
	assert.Empty(t, notifier.sent)
}

func TestItemServiceListNormalizesQuery(t *testing.T) {
	repo := &mockItemRepo{}
	svc := newItemFixture(repo, &mockLedger{}, nil, nil)

	_, page, err := svc.List(context.Background(), catalog.RawQuery{Category: " Tops ", SortBy: "pointsValue"})
	require.NoError(t, err)
	require.NotNil(t, repo.lastQuery)
	assert.Equal(t, "tops", repo.lastQuery.Category)
	assert.Equal(t, "points_value", repo.lastQuery.SortBy)
	assert.Equal(t, catalog.DefaultPageSize, page.PageSize)

	_, _, err = svc.List(context.Background(), catalog.RawQuery{SortBy: "price"})
	assertErrorCode(t, err, "INVALID_SORT")

	_, _, err = svc.List(context.Background(), catalog.RawQuery{MinPoints: "50", MaxPoints: "10"})
	assertErrorCode(t, err, "INVALID_RANGE")
}

func TestItemServiceFeaturedCaches(t *testing.T) {
	repo := &mockItemRepo{featured: []models.ItemDetail{activeItem("item-1", "owner-1", true)}}
	cache := &mockCache{}
	svc := newItemFixture(repo, &mockLedger{}, nil, cache)

	_, err := svc.Featured(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.fetches)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from cache.
	_, err = svc.Featured(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.fetches)
}
