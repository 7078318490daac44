package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rewear-app/rewear-api/internal/catalog"
	"github.com/rewear-app/rewear-api/internal/models"
)

// Sentinel errors surfaced by transactional swap operations. Services map
// them onto the domain error taxonomy.
var (
	// ErrInsufficientBalance marks a points settlement the requester cannot cover.
	ErrInsufficientBalance = errors.New("insufficient points balance")
	// ErrItemUnavailable marks a reservation attempt on a non-active item.
	ErrItemUnavailable = errors.New("item is not active")
	// ErrStaleSwap marks a transition raced by a concurrent one.
	ErrStaleSwap = errors.New("swap was modified concurrently")
)

// SwapRepository manages persistence for swap requests.
type SwapRepository struct {
	db *sqlx.DB
}

// NewSwapRepository constructs a SwapRepository.
func NewSwapRepository(db *sqlx.DB) *SwapRepository {
	return &SwapRepository{db: db}
}

// Create inserts a pending swap and reserves the requested item in one
// transaction. The item update is guarded on its current status, so a
// concurrent reservation loses with ErrItemUnavailable.
func (r *SwapRepository) Create(ctx context.Context, swap *models.Swap) error {
	if swap.ID == "" {
		swap.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	swap.Status = models.SwapStatusPending
	swap.CreatedAt = now
	swap.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create swap: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE items SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		swap.RequestedItemID, models.ItemStatusPending, now, models.ItemStatusActive)
	if err != nil {
		return fmt.Errorf("reserve item: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("reserve item: %w", err)
	} else if affected == 0 {
		return ErrItemUnavailable
	}

	const insert = `INSERT INTO swaps (id, requester_id, owner_id, requested_item_id, offered_item_id, points_offered, message, status, created_at, updated_at)
        VALUES (:id, :requester_id, :owner_id, :requested_item_id, :offered_item_id, :points_offered, :message, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, swap); err != nil {
		return fmt.Errorf("create swap: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create swap: %w", err)
	}
	return nil
}

// FindByID fetches a swap by ID.
func (r *SwapRepository) FindByID(ctx context.Context, id string) (*models.Swap, error) {
	var swap models.Swap
	const query = `SELECT id, requester_id, owner_id, requested_item_id, offered_item_id, points_offered, message, status, created_at, updated_at, completed_at
        FROM swaps WHERE id = $1`
	if err := r.db.GetContext(ctx, &swap, query, id); err != nil {
		return nil, err
	}
	return &swap, nil
}

// ListForUser returns swaps a user participates in. Direction is "sent",
// "received" or anything else for both.
func (r *SwapRepository) ListForUser(ctx context.Context, userID, direction string, page, pageSize int) ([]models.Swap, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > catalog.MaxPageSize {
		pageSize = catalog.DefaultPageSize
	}
	offset := (page - 1) * pageSize

	var where string
	switch direction {
	case "sent":
		where = "requester_id = $1"
	case "received":
		where = "owner_id = $1"
	default:
		where = "(requester_id = $1 OR owner_id = $1)"
	}

	query := fmt.Sprintf(`SELECT id, requester_id, owner_id, requested_item_id, offered_item_id, points_offered, message, status, created_at, updated_at, completed_at
        FROM swaps WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, pageSize, offset)

	var swaps []models.Swap
	if err := r.db.SelectContext(ctx, &swaps, query, userID); err != nil {
		return nil, 0, fmt.Errorf("list swaps: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM swaps WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count swaps: %w", err)
	}
	return swaps, total, nil
}

// Transition applies a non-completing status change, optionally releasing
// the requested item back to the catalog, in one transaction. The swap
// update is guarded on the source status.
func (r *SwapRepository) Transition(ctx context.Context, swap *models.Swap, from, to models.SwapStatus, releaseItem bool) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE swaps SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		swap.ID, to, now, from)
	if err != nil {
		return fmt.Errorf("transition swap: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("transition swap: %w", err)
	} else if affected == 0 {
		return ErrStaleSwap
	}

	if releaseItem {
		// Only a live reservation is released. The item may have been
		// swapped away through another swap in the meantime, in which
		// case its status must survive this rejection or cancellation.
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
			swap.RequestedItemID, models.ItemStatusActive, now, models.ItemStatusPending); err != nil {
			return fmt.Errorf("release item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}

	swap.Status = to
	swap.UpdatedAt = now
	return nil
}

// Complete settles an accepted swap atomically: swap status, item status,
// points transfer, completion bonuses and ledger rows either all commit or
// none do. User balance rows are locked in ID order so two concurrent
// completions cannot deadlock or double-spend.
func (r *SwapRepository) Complete(ctx context.Context, swap *models.Swap, completionBonus int) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE swaps SET status = $2, updated_at = $3, completed_at = $3 WHERE id = $1 AND status = $4`,
		swap.ID, models.SwapStatusCompleted, now, models.SwapStatusAccepted)
	if err != nil {
		return fmt.Errorf("complete swap: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("complete swap: %w", err)
	} else if affected == 0 {
		return ErrStaleSwap
	}

	if err := lockBalances(ctx, tx, swap.RequesterID, swap.OwnerID); err != nil {
		return err
	}

	if swap.HasPointsSettlement() {
		points := *swap.PointsOffered

		var balance int
		if err := tx.GetContext(ctx, &balance,
			`SELECT points_balance FROM users WHERE id = $1`, swap.RequesterID); err != nil {
			return fmt.Errorf("read requester balance: %w", err)
		}
		if balance < points {
			return ErrInsufficientBalance
		}

		if err := adjustBalance(ctx, tx, swap.RequesterID, -points, now); err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, swap.OwnerID, points, now); err != nil {
			return err
		}
		if err := insertLedger(ctx, tx, swap.RequesterID, models.TransactionRedeemed, -points,
			"Points redeemed in swap settlement", &swap.RequestedItemID, now); err != nil {
			return err
		}
		if err := insertLedger(ctx, tx, swap.OwnerID, models.TransactionEarned, points,
			"Points earned in swap settlement", &swap.RequestedItemID, now); err != nil {
			return err
		}
	}

	if completionBonus > 0 {
		for _, userID := range []string{swap.RequesterID, swap.OwnerID} {
			if err := adjustBalance(ctx, tx, userID, completionBonus, now); err != nil {
				return err
			}
			if err := insertLedger(ctx, tx, userID, models.TransactionBonus, completionBonus,
				"Bonus for completing a swap", &swap.RequestedItemID, now); err != nil {
				return err
			}
		}
	}

	// The requested item must still hold this swap's reservation; the
	// offered item must not have been traded away elsewhere.
	res, err = tx.ExecContext(ctx,
		`UPDATE items SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		swap.RequestedItemID, models.ItemStatusSwapped, now, models.ItemStatusPending)
	if err != nil {
		return fmt.Errorf("mark item swapped: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("mark item swapped: %w", err)
	} else if affected == 0 {
		return ErrItemUnavailable
	}
	if swap.OfferedItemID != nil {
		res, err = tx.ExecContext(ctx,
			`UPDATE items SET status = $2, updated_at = $3 WHERE id = $1 AND status IN ($4, $5)`,
			*swap.OfferedItemID, models.ItemStatusSwapped, now, models.ItemStatusActive, models.ItemStatusPending)
		if err != nil {
			return fmt.Errorf("mark offered item swapped: %w", err)
		}
		if affected, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("mark offered item swapped: %w", err)
		} else if affected == 0 {
			return ErrItemUnavailable
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete: %w", err)
	}

	swap.Status = models.SwapStatusCompleted
	swap.UpdatedAt = now
	swap.CompletedAt = &now
	return nil
}

// lockBalances takes row locks on both parties in a stable order.
func lockBalances(ctx context.Context, tx *sqlx.Tx, a, b string) error {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	for _, id := range []string{first, second} {
		var locked int
		if err := tx.GetContext(ctx, &locked,
			`SELECT points_balance FROM users WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lock balance: user %s not found", id)
			}
			return fmt.Errorf("lock balance: %w", err)
		}
	}
	return nil
}

func adjustBalance(ctx context.Context, tx *sqlx.Tx, userID string, delta int, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET points_balance = points_balance + $2, updated_at = $3 WHERE id = $1`,
		userID, delta, now); err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	return nil
}

func insertLedger(ctx context.Context, tx *sqlx.Tx, userID string, txType models.TransactionType, amount int, description string, itemID *string, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO points_transactions (id, user_id, type, amount, description, related_item_id, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), userID, txType, amount, description, itemID, now); err != nil {
		return fmt.Errorf("insert ledger row: %w", err)
	}
	return nil
}

// CountsForUser returns swap counters for the dashboard.
func (r *SwapRepository) CountsForUser(ctx context.Context, userID string) (pendingIncoming, ongoing, completed int, err error) {
	if err = r.db.GetContext(ctx, &pendingIncoming,
		`SELECT COUNT(*) FROM swaps WHERE owner_id = $1 AND status = $2`, userID, models.SwapStatusPending); err != nil {
		return 0, 0, 0, fmt.Errorf("count pending swaps: %w", err)
	}
	if err = r.db.GetContext(ctx, &ongoing,
		`SELECT COUNT(*) FROM swaps WHERE (requester_id = $1 OR owner_id = $1) AND status = $2`, userID, models.SwapStatusAccepted); err != nil {
		return 0, 0, 0, fmt.Errorf("count ongoing swaps: %w", err)
	}
	if err = r.db.GetContext(ctx, &completed,
		`SELECT COUNT(*) FROM swaps WHERE (requester_id = $1 OR owner_id = $1) AND status = $2`, userID, models.SwapStatusCompleted); err != nil {
		return 0, 0, 0, fmt.Errorf("count completed swaps: %w", err)
	}
	return pendingIncoming, ongoing, completed, nil
}
