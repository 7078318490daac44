package models

import "time"

// Category enumerates the fixed clothing categories.
type Category string

const (
	CategoryTops        Category = "tops"
	CategoryBottoms     Category = "bottoms"
	CategoryDresses     Category = "dresses"
	CategoryOuterwear   Category = "outerwear"
	CategoryShoes       Category = "shoes"
	CategoryAccessories Category = "accessories"
	CategoryActivewear  Category = "activewear"
	CategoryFormal      Category = "formal"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryTops,
	CategoryBottoms,
	CategoryDresses,
	CategoryOuterwear,
	CategoryShoes,
	CategoryAccessories,
	CategoryActivewear,
	CategoryFormal,
}

// Valid reports whether the category is one of the fixed enumeration.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Condition enumerates the fixed item conditions.
type Condition string

const (
	ConditionNew       Condition = "new"
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

// conditionWeights maps each condition to its quality weight in [0,100].
var conditionWeights = map[Condition]int{
	ConditionNew:       100,
	ConditionExcellent: 90,
	ConditionGood:      75,
	ConditionFair:      50,
	ConditionPoor:      25,
}

// Weight returns the condition's quality weight and whether the condition
// is known.
func (c Condition) Weight() (int, bool) {
	w, ok := conditionWeights[c]
	return w, ok
}

// Valid reports whether the condition is one of the fixed enumeration.
func (c Condition) Valid() bool {
	_, ok := conditionWeights[c]
	return ok
}

// ItemStatus tracks the lifecycle of a listing.
type ItemStatus string

const (
	// ItemStatusActive marks a browsable, offerable listing.
	ItemStatusActive ItemStatus = "active"
	// ItemStatusPending marks a listing reserved by an open swap.
	ItemStatusPending ItemStatus = "pending"
	// ItemStatusSwapped marks a listing exchanged through a completed swap.
	ItemStatusSwapped ItemStatus = "swapped"
	// ItemStatusDelisted marks a listing removed by its owner or a moderator.
	ItemStatusDelisted ItemStatus = "delisted"
)

// Item represents a listed garment.
type Item struct {
	ID               string     `db:"id" json:"id"`
	OwnerID          string     `db:"owner_id" json:"owner_id"`
	Title            string     `db:"title" json:"title"`
	Description      string     `db:"description" json:"description"`
	Category         Category   `db:"category" json:"category"`
	Size             string     `db:"size" json:"size"`
	Condition        Condition  `db:"condition" json:"condition"`
	PointsValue      int        `db:"points_value" json:"points_value"`
	AvailableForSwap bool       `db:"available_for_swap" json:"available_for_swap"`
	Tags             string     `db:"tags" json:"tags,omitempty"`
	Status           ItemStatus `db:"status" json:"status"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// ItemDetail contains an item together with its owner's display name.
type ItemDetail struct {
	Item
	OwnerName string `db:"owner_name" json:"owner_name"`
}

// CreateItemRequest holds the payload for listing a new item. PointsValue
// is optional; when omitted the listing gets the suggested valuation.
type CreateItemRequest struct {
	Title            string `json:"title" validate:"required,min=3,max=120"`
	Description      string `json:"description" validate:"max=2000"`
	Category         string `json:"category" validate:"required"`
	Size             string `json:"size" validate:"required,max=16"`
	Condition        string `json:"condition" validate:"required"`
	PointsValue      *int   `json:"points_value,omitempty"`
	AvailableForSwap *bool  `json:"available_for_swap,omitempty"`
	Tags             string `json:"tags"`
}

// UpdateItemRequest holds the payload for editing a listing. Nil fields are
// left unchanged.
type UpdateItemRequest struct {
	Title            *string `json:"title,omitempty" validate:"omitempty,min=3,max=120"`
	Description      *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category         *string `json:"category,omitempty"`
	Size             *string `json:"size,omitempty" validate:"omitempty,max=16"`
	Condition        *string `json:"condition,omitempty"`
	PointsValue      *int    `json:"points_value,omitempty"`
	AvailableForSwap *bool   `json:"available_for_swap,omitempty"`
	Tags             *string `json:"tags,omitempty"`
}

// ValuationPreview is the suggested valuation for a category/condition pair.
type ValuationPreview struct {
	Category  Category  `json:"category"`
	Condition Condition `json:"condition"`
	Points    int       `json:"points"`
}
