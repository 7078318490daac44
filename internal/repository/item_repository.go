package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rewear-app/rewear-api/internal/catalog"
	"github.com/rewear-app/rewear-api/internal/models"
)

// ItemRepository manages persistence for listed items.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository constructs an ItemRepository.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// sortColumns maps canonical sort keys onto ORDER BY columns.
var sortColumns = map[string]string{
	"created_at":   "i.created_at",
	"title":        "i.title",
	"points_value": "i.points_value",
	"condition":    "i.condition",
}

// List returns active items matching a canonical catalog query, plus the
// total match count.
func (r *ItemRepository) List(ctx context.Context, q catalog.CanonicalQuery) ([]models.ItemDetail, int, error) {
	base := "FROM items i JOIN users u ON u.id = i.owner_id"
	args := []interface{}{models.ItemStatusActive}
	conditions := []string{"i.status = $1"}

	if q.Category != "" {
		conditions = append(conditions, fmt.Sprintf("i.category = $%d", len(args)+1))
		args = append(args, q.Category)
	}
	if q.Size != "" {
		conditions = append(conditions, fmt.Sprintf("i.size = $%d", len(args)+1))
		args = append(args, q.Size)
	}
	if q.Condition != "" {
		conditions = append(conditions, fmt.Sprintf("i.condition = $%d", len(args)+1))
		args = append(args, q.Condition)
	}
	if q.MinPoints > 0 {
		conditions = append(conditions, fmt.Sprintf("i.points_value >= $%d", len(args)+1))
		args = append(args, q.MinPoints)
	}
	if q.MaxPoints != catalog.NoMaxPoints {
		conditions = append(conditions, fmt.Sprintf("i.points_value <= $%d", len(args)+1))
		args = append(args, q.MaxPoints)
	}
	if q.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(i.title) LIKE $%d OR LOWER(i.description) LIKE $%d OR LOWER(i.tags) LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(q.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = "i.created_at"
	}
	order := "DESC"
	if q.SortOrder == "asc" {
		order = "ASC"
	}
	offset := (q.Page - 1) * q.PageSize

	query := fmt.Sprintf(`SELECT i.id, i.owner_id, i.title, i.description, i.category, i.size, i.condition, i.points_value, i.available_for_swap, i.tags, i.status, i.created_at, i.updated_at,
        u.full_name AS owner_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, q.PageSize, offset)

	var items []models.ItemDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}
	return items, total, nil
}

// ListByOwner returns every listing of one user, newest first.
func (r *ItemRepository) ListByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]models.Item, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > catalog.MaxPageSize {
		pageSize = catalog.DefaultPageSize
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT * FROM items WHERE owner_id = $1 ORDER BY created_at DESC LIMIT %d OFFSET %d`, pageSize, offset)
	var items []models.Item
	if err := r.db.SelectContext(ctx, &items, query, ownerID); err != nil {
		return nil, 0, fmt.Errorf("list owner items: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM items WHERE owner_id = $1`, ownerID); err != nil {
		return nil, 0, fmt.Errorf("count owner items: %w", err)
	}
	return items, total, nil
}

// Featured returns the most recent high-condition active listings.
func (r *ItemRepository) Featured(ctx context.Context, limit int) ([]models.ItemDetail, error) {
	if limit < 1 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT i.id, i.owner_id, i.title, i.description, i.category, i.size, i.condition, i.points_value, i.available_for_swap, i.tags, i.status, i.created_at, i.updated_at,
        u.full_name AS owner_name
        FROM items i JOIN users u ON u.id = i.owner_id
        WHERE i.status = $1 AND i.condition IN ($2, $3)
        ORDER BY i.created_at DESC LIMIT %d`, limit)

	var items []models.ItemDetail
	if err := r.db.SelectContext(ctx, &items, query, models.ItemStatusActive, models.ConditionNew, models.ConditionExcellent); err != nil {
		return nil, fmt.Errorf("featured items: %w", err)
	}
	return items, nil
}

// FindByID fetches one item with its owner's name.
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*models.ItemDetail, error) {
	const query = `SELECT i.id, i.owner_id, i.title, i.description, i.category, i.size, i.condition, i.points_value, i.available_for_swap, i.tags, i.status, i.created_at, i.updated_at,
        u.full_name AS owner_name
        FROM items i JOIN users u ON u.id = i.owner_id WHERE i.id = $1`
	var item models.ItemDetail
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new listing.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	const query = `INSERT INTO items (id, owner_id, title, description, category, size, condition, points_value, available_for_swap, tags, status, created_at, updated_at)
        VALUES (:id, :owner_id, :title, :description, :category, :size, :condition, :points_value, :available_for_swap, :tags, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// Update modifies an existing listing.
func (r *ItemRepository) Update(ctx context.Context, item *models.Item) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE items SET title = :title, description = :description, category = :category, size = :size, condition = :condition, points_value = :points_value, available_for_swap = :available_for_swap, tags = :tags, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// UpdateStatus flips a listing's lifecycle state.
func (r *ItemRepository) UpdateStatus(ctx context.Context, id string, status models.ItemStatus) error {
	const query = `UPDATE items SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update item status: %w", err)
	}
	return nil
}

// StatusCounts returns the number of a user's items per lifecycle state.
func (r *ItemRepository) StatusCounts(ctx context.Context, ownerID string) (map[models.ItemStatus]int, error) {
	rows := []struct {
		Status models.ItemStatus `db:"status"`
		Count  int               `db:"count"`
	}{}
	const query = `SELECT status, COUNT(*) AS count FROM items WHERE owner_id = $1 GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("item status counts: %w", err)
	}
	counts := make(map[models.ItemStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
