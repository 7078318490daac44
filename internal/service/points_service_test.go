package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear-app/rewear-api/internal/models"
	"github.com/rewear-app/rewear-api/internal/repository"
)

type redeemCall struct {
	buyerID string
	ownerID string
	itemID  string
	price   int
}

type mockPointsRepo struct {
	transactions []models.PointsTransaction
	balance      int
	redeemErr    error
	redeems      []redeemCall
}

func (m *mockPointsRepo) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.PointsTransaction, int, error) {
	return m.transactions, len(m.transactions), nil
}

func (m *mockPointsRepo) ListAllByUser(ctx context.Context, userID string) ([]models.PointsTransaction, error) {
	return m.transactions, nil
}

func (m *mockPointsRepo) ListRedemptions(ctx context.Context, userID string, page, pageSize int) ([]models.PointsTransaction, int, error) {
	redemptions := make([]models.PointsTransaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		if tx.Type == models.TransactionRedeemed {
			redemptions = append(redemptions, tx)
		}
	}
	return redemptions, len(redemptions), nil
}

func (m *mockPointsRepo) BalanceOf(ctx context.Context, userID string) (int, error) {
	return m.balance, nil
}

func (m *mockPointsRepo) Redeem(ctx context.Context, buyerID, ownerID, itemID string, price int) error {
	if m.redeemErr != nil {
		return m.redeemErr
	}
	m.redeems = append(m.redeems, redeemCall{buyerID: buyerID, ownerID: ownerID, itemID: itemID, price: price})
	return nil
}

func newPointsFixture(repo *mockPointsRepo, items *mockItemReader, n notifier, cache catalogCache) *PointsService {
	return NewPointsService(repo, items, n, cache, nil, "Points Statement", nil)
}

func TestPointsServiceRedeem(t *testing.T) {
	repo := &mockPointsRepo{}
	items := &mockItemReader{items: map[string]models.ItemDetail{
		"item-1": activeItem("item-1", "owner-1", true),
	}}
	notifier := &mockNotifier{}
	cache := &mockCache{entries: map[string][]byte{featuredCacheKey: []byte("cached")}}
	svc := newPointsFixture(repo, items, notifier, cache)

	spent, err := svc.Redeem(context.Background(), "buyer-1", models.RedeemRequest{ItemID: "item-1"})
	require.NoError(t, err)
	assert.Equal(t, 45, spent)

	require.Len(t, repo.redeems, 1)
	assert.Equal(t, redeemCall{buyerID: "buyer-1", ownerID: "owner-1", itemID: "item-1", price: 45}, repo.redeems[0])

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "owner-1", notifier.sent[0].userID)
	assert.Equal(t, models.NotificationPointsEarned, notifier.sent[0].kind)
	assert.Empty(t, cache.entries)
}

func TestPointsServiceRedeemOwnItem(t *testing.T) {
	items := &mockItemReader{items: map[string]models.ItemDetail{
		"item-1": activeItem("item-1", "buyer-1", true),
	}}
	svc := newPointsFixture(&mockPointsRepo{}, items, nil, nil)

	_, err := svc.Redeem(context.Background(), "buyer-1", models.RedeemRequest{ItemID: "item-1"})
	assertErrorCode(t, err, "SAME_USER")
}

func TestPointsServiceRedeemMissingItem(t *testing.T) {
	svc := newPointsFixture(&mockPointsRepo{}, &mockItemReader{}, nil, nil)

	_, err := svc.Redeem(context.Background(), "buyer-1", models.RedeemRequest{ItemID: "item-9"})
	assertErrorCode(t, err, "NOT_FOUND")
}

func TestPointsServiceRedeemInactiveItem(t *testing.T) {
	reserved := activeItem("item-1", "owner-1", true)
	reserved.Status = models.ItemStatusPending
	items := &mockItemReader{items: map[string]models.ItemDetail{"item-1": reserved}}
	svc := newPointsFixture(&mockPointsRepo{}, items, nil, nil)

	_, err := svc.Redeem(context.Background(), "buyer-1", models.RedeemRequest{ItemID: "item-1"})
	assertErrorCode(t, err, "ITEM_NOT_ACTIVE")
}

func TestPointsServiceRedeemInsufficientBalance(t *testing.T) {
	repo := &mockPointsRepo{redeemErr: repository.ErrInsufficientBalance}
	items := &mockItemReader{items: map[string]models.ItemDetail{
		"item-1": activeItem("item-1", "owner-1", true),
	}}
	notifier := &mockNotifier{}
	svc := newPointsFixture(repo, items, notifier, nil)

	_, err := svc.Redeem(context.Background(), "buyer-1", models.RedeemRequest{ItemID: "item-1"})
	assertErrorCode(t, err, "INSUFFICIENT_POINTS")
	assert.Empty(t, notifier.sent)
}

func TestPointsServiceRedeemClaimedElsewhere(t *testing.T) {
	// The listing looked active when loaded but another transaction claimed
	// it before the redemption committed.
	repo := &mockPointsRepo{redeemErr: repository.ErrItemUnavailable}
	items := &mockItemReader{items: map[string]models.ItemDetail{
		"item-1": activeItem("item-1", "owner-1", true),
	}}
	svc := newPointsFixture(repo, items, nil, nil)

	_, err := svc.Redeem(context.Background(), "buyer-1", models.RedeemRequest{ItemID: "item-1"})
	assertErrorCode(t, err, "ITEM_NOT_ACTIVE")
}

func TestPointsServiceRedemptions(t *testing.T) {
	now := time.Now()
	repo := &mockPointsRepo{transactions: []models.PointsTransaction{
		{ID: "tx-1", Type: models.TransactionRedeemed, Amount: -45, CreatedAt: now},
		{ID: "tx-2", Type: models.TransactionEarned, Amount: 10, CreatedAt: now},
	}}
	svc := newPointsFixture(repo, &mockItemReader{}, nil, nil)

	entries, pagination, err := svc.Redemptions(context.Background(), "buyer-1", 1, 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tx-1", entries[0].ID)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.TotalCount)
}
