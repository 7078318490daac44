package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear-app/rewear-api/internal/models"
)

func newSwapMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func acceptedSwap(points *int, offeredItem *string) *models.Swap {
	return &models.Swap{
		ID:              "swap-1",
		RequesterID:     "user-a",
		OwnerID:         "user-b",
		RequestedItemID: "item-1",
		OfferedItemID:   offeredItem,
		PointsOffered:   points,
		Status:          models.SwapStatusAccepted,
	}
}

func TestSwapRepositoryCreateReservesItem(t *testing.T) {
	db, mock, cleanup := newSwapMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE items SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`)).
		WithArgs("item-1", string(models.ItemStatusPending), sqlmock.AnyArg(), string(models.ItemStatusActive)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO swaps").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	swap := &models.Swap{
		RequesterID:     "user-a",
		OwnerID:         "user-b",
		RequestedItemID: "item-1",
	}
	require.NoError(t, repo.Create(context.Background(), swap))
	assert.NotEmpty(t, swap.ID)
	assert.Equal(t, models.SwapStatusPending, swap.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryCreateItemTaken(t *testing.T) {
	db, mock, cleanup := newSwapMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE items SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Swap{RequestedItemID: "item-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrItemUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryCompleteWithPoints(t *testing.T) {
	db, mock, cleanup := newSwapMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	points := 50
	swap := acceptedSwap(&points, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE swaps SET status = $2, updated_at = $3, completed_at = $3 WHERE id = $1 AND status = $4`)).
		WithArgs("swap-1", string(models.SwapStatusCompleted), sqlmock.AnyArg(), string(models.SwapStatusAccepted)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Balance locks, in ID order.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT points_balance FROM users WHERE id = $1 FOR UPDATE`)).
		WithArgs("user-a").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(120))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT points_balance FROM users WHERE id = $1 FOR UPDATE`)).
		WithArgs("user-b").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(10))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT points_balance FROM users WHERE id = $1`)).
		WithArgs("user-a").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(120))

	mock.ExpectExec("UPDATE users SET points_balance").
		WithArgs("user-a", -50, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET points_balance").
		WithArgs("user-b", 50, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO points_transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO points_transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	// Completion bonus for both parties.
	mock.ExpectExec("UPDATE users SET points_balance").
		WithArgs("user-a", 25, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO points_transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET points_balance").
		WithArgs("user-b", 25, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO points_transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec("UPDATE items SET status").
		WithArgs("item-1", string(models.ItemStatusSwapped), sqlmock.AnyArg(), string(models.ItemStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Complete(context.Background(), swap, 25))
	assert.Equal(t, models.SwapStatusCompleted, swap.Status)
	require.NotNil(t, swap.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryCompleteInsufficientBalanceRollsBack(t *testing.T) {
	db, mock, cleanup := newSwapMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	points := 50
	swap := acceptedSwap(&points, nil)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE swaps SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT points_balance FROM users WHERE id = .. FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(40))
	mock.ExpectQuery("SELECT points_balance FROM users WHERE id = .. FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(10))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT points_balance FROM users WHERE id = $1`)).
		WithArgs("user-a").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(40))
	mock.ExpectRollback()

	err := repo.Complete(context.Background(), swap, 25)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	// Nothing was committed, so the in-memory swap is untouched.
	assert.Equal(t, models.SwapStatusAccepted, swap.Status)
	assert.Nil(t, swap.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryCompleteMarksOfferedItem(t *testing.T) {
	db, mock, cleanup := newSwapMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	offered := "item-2"
	swap := acceptedSwap(nil, &offered)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE swaps SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT points_balance FROM users WHERE id = .. FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(0))
	mock.ExpectQuery("SELECT points_balance FROM users WHERE id = .. FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(0))
	mock.ExpectExec("UPDATE items SET status").
		WithArgs("item-1", string(models.ItemStatusSwapped), sqlmock.AnyArg(), string(models.ItemStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE items SET status").
		WithArgs("item-2", string(models.ItemStatusSwapped), sqlmock.AnyArg(), string(models.ItemStatusActive), string(models.ItemStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Complete(context.Background(), swap, 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryTransitionStale(t *testing.T) {
	db, mock, cleanup := newSwapMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	swap := acceptedSwap(nil, nil)
	swap.Status = models.SwapStatusPending

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE swaps SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), swap, models.SwapStatusPending, models.SwapStatusAccepted, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStaleSwap))
	assert.Equal(t, models.SwapStatusPending, swap.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryTransitionReleasesItem(t *testing.T) {
	db, mock, cleanup := newSwapMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	swap := acceptedSwap(nil, nil)
	swap.Status = models.SwapStatusPending

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE swaps SET status").
		WithArgs("swap-1", string(models.SwapStatusRejected), sqlmock.AnyArg(), string(models.SwapStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE items SET status").
		WithArgs("item-1", string(models.ItemStatusActive), sqlmock.AnyArg(), string(models.ItemStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Transition(context.Background(), swap, models.SwapStatusPending, models.SwapStatusRejected, true))
	assert.Equal(t, models.SwapStatusRejected, swap.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryTransitionKeepsSwappedItem(t *testing.T) {
	db, mock, cleanup := newSwapMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	// The requested item was exchanged through another swap while this
	// one sat pending. Rejecting must not resurrect it into the catalog:
	// the release matches only a live reservation and touches no rows.
	swap := acceptedSwap(nil, nil)
	swap.Status = models.SwapStatusPending

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE swaps SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE items SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`)).
		WithArgs("item-1", string(models.ItemStatusActive), sqlmock.AnyArg(), string(models.ItemStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.Transition(context.Background(), swap, models.SwapStatusPending, models.SwapStatusRejected, true))
	assert.Equal(t, models.SwapStatusRejected, swap.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryCompleteBrokenReservationRollsBack(t *testing.T) {
	db, mock, cleanup := newSwapMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	swap := acceptedSwap(nil, nil)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE swaps SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT points_balance FROM users WHERE id = .. FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(0))
	mock.ExpectQuery("SELECT points_balance FROM users WHERE id = .. FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(0))
	mock.ExpectExec("UPDATE items SET status").
		WithArgs("item-1", string(models.ItemStatusSwapped), sqlmock.AnyArg(), string(models.ItemStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Complete(context.Background(), swap, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrItemUnavailable))
	assert.Equal(t, models.SwapStatusAccepted, swap.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
