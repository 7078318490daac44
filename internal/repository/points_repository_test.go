package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear-app/rewear-api/internal/models"
)

func TestPointsRepositoryRedeem(t *testing.T) {
	db, mock, cleanup := newSwapMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE items SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`)).
		WithArgs("item-1", string(models.ItemStatusSwapped), sqlmock.AnyArg(), string(models.ItemStatusActive)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Balance locks, in ID order.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT points_balance FROM users WHERE id = $1 FOR UPDATE`)).
		WithArgs("buyer-1").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(80))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT points_balance FROM users WHERE id = $1 FOR UPDATE`)).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(20))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT points_balance FROM users WHERE id = $1`)).
		WithArgs("buyer-1").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(80))

	mock.ExpectExec("UPDATE users SET points_balance").
		WithArgs("buyer-1", -45, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET points_balance").
		WithArgs("owner-1", 45, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO points_transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO points_transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Redeem(context.Background(), "buyer-1", "owner-1", "item-1", 45))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsRepositoryRedeemItemClaimed(t *testing.T) {
	db, mock, cleanup := newSwapMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE items SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Redeem(context.Background(), "buyer-1", "owner-1", "item-1", 45)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrItemUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsRepositoryRedeemInsufficientBalanceRollsBack(t *testing.T) {
	db, mock, cleanup := newSwapMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE items SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT points_balance FROM users WHERE id = $1 FOR UPDATE`)).
		WithArgs("buyer-1").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT points_balance FROM users WHERE id = $1 FOR UPDATE`)).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(20))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT points_balance FROM users WHERE id = $1`)).
		WithArgs("buyer-1").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(30))
	mock.ExpectRollback()

	err := repo.Redeem(context.Background(), "buyer-1", "owner-1", "item-1", 45)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	assert.NoError(t, mock.ExpectationsWereMet())
}
