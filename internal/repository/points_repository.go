package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rewear-app/rewear-api/internal/catalog"
	"github.com/rewear-app/rewear-api/internal/models"
)

// PointsRepository manages the per-user points ledger.
type PointsRepository struct {
	db *sqlx.DB
}

// NewPointsRepository constructs a PointsRepository.
func NewPointsRepository(db *sqlx.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

// ListByUser returns a user's ledger entries, newest first.
func (r *PointsRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.PointsTransaction, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > catalog.MaxPageSize {
		pageSize = catalog.DefaultPageSize
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT id, user_id, type, amount, description, related_item_id, created_at
        FROM points_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT %d OFFSET %d`, pageSize, offset)

	var entries []models.PointsTransaction
	if err := r.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, 0, fmt.Errorf("list points transactions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM points_transactions WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("count points transactions: %w", err)
	}
	return entries, total, nil
}

// ListAllByUser returns the full ledger for statement exports.
func (r *PointsRepository) ListAllByUser(ctx context.Context, userID string) ([]models.PointsTransaction, error) {
	var entries []models.PointsTransaction
	const query = `SELECT id, user_id, type, amount, description, related_item_id, created_at
        FROM points_transactions WHERE user_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("list full ledger: %w", err)
	}
	return entries, nil
}

// Credit adjusts a user's balance and records the ledger entry in one
// transaction. Amount may be negative for penalties.
func (r *PointsRepository) Credit(ctx context.Context, userID string, txType models.TransactionType, amount int, description string, relatedItemID *string) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin credit: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET points_balance = points_balance + $2, updated_at = $3 WHERE id = $1`,
		userID, amount, now); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO points_transactions (id, user_id, type, amount, description, related_item_id, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), userID, txType, amount, description, relatedItemID, now); err != nil {
		return fmt.Errorf("record ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credit: %w", err)
	}
	return nil
}

// Redeem purchases an item outright with points: the item leaves the
// catalog, the buyer is debited, the owner credited, and both ledger rows
// written, all in one transaction. Balance rows are locked in ID order,
// the same discipline the swap settlement uses.
func (r *PointsRepository) Redeem(ctx context.Context, buyerID, ownerID, itemID string, price int) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin redeem: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE items SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		itemID, models.ItemStatusSwapped, now, models.ItemStatusActive)
	if err != nil {
		return fmt.Errorf("claim item: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("claim item: %w", err)
	} else if affected == 0 {
		return ErrItemUnavailable
	}

	if err := lockBalances(ctx, tx, buyerID, ownerID); err != nil {
		return err
	}

	var balance int
	if err := tx.GetContext(ctx, &balance,
		`SELECT points_balance FROM users WHERE id = $1`, buyerID); err != nil {
		return fmt.Errorf("read buyer balance: %w", err)
	}
	if balance < price {
		return ErrInsufficientBalance
	}

	if err := adjustBalance(ctx, tx, buyerID, -price, now); err != nil {
		return err
	}
	if err := adjustBalance(ctx, tx, ownerID, price, now); err != nil {
		return err
	}
	if err := insertLedger(ctx, tx, buyerID, models.TransactionRedeemed, -price,
		"Points redeemed for item", &itemID, now); err != nil {
		return err
	}
	if err := insertLedger(ctx, tx, ownerID, models.TransactionEarned, price,
		"Points earned from item redemption", &itemID, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit redeem: %w", err)
	}
	return nil
}

// ListRedemptions returns the user's redemption entries, newest first.
func (r *PointsRepository) ListRedemptions(ctx context.Context, userID string, page, pageSize int) ([]models.PointsTransaction, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > catalog.MaxPageSize {
		pageSize = catalog.DefaultPageSize
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT id, user_id, type, amount, description, related_item_id, created_at
        FROM points_transactions WHERE user_id = $1 AND type = $2 ORDER BY created_at DESC LIMIT %d OFFSET %d`, pageSize, offset)

	var entries []models.PointsTransaction
	if err := r.db.SelectContext(ctx, &entries, query, userID, models.TransactionRedeemed); err != nil {
		return nil, 0, fmt.Errorf("list redemptions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM points_transactions WHERE user_id = $1 AND type = $2`,
		userID, models.TransactionRedeemed); err != nil {
		return nil, 0, fmt.Errorf("count redemptions: %w", err)
	}
	return entries, total, nil
}

// BalanceOf reads a user's current balance.
func (r *PointsRepository) BalanceOf(ctx context.Context, userID string) (int, error) {
	var balance int
	if err := r.db.GetContext(ctx, &balance,
		`SELECT points_balance FROM users WHERE id = $1`, userID); err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}
