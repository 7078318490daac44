// Package valuation computes suggested point values for listed items.
//
// The suggestion is a fixed per-category base scaled by the condition's
// quality weight, rounded half-up. The base table is part of the public
// contract and must stay stable.
package valuation

import (
	appErrors "github.com/rewear-app/rewear-api/pkg/errors"

	"github.com/rewear-app/rewear-api/internal/models"
)

// basePoints is the fixed per-category base value table.
var basePoints = map[models.Category]int{
	models.CategoryTops:        30,
	models.CategoryBottoms:     35,
	models.CategoryDresses:     50,
	models.CategoryOuterwear:   60,
	models.CategoryShoes:       40,
	models.CategoryAccessories: 25,
	models.CategoryActivewear:  35,
	models.CategoryFormal:      70,
}

// BasePoints returns the base value for a category.
func BasePoints(category models.Category) (int, bool) {
	base, ok := basePoints[category]
	return base, ok
}

// SuggestPoints computes the suggested point value for an item as
// round-half-up(base * weight / 100). The result is a non-negative integer
// and, for a fixed category, non-decreasing in the condition weight.
func SuggestPoints(category models.Category, condition models.Condition) (int, error) {
	base, ok := basePoints[category]
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrInvalidCategory, "unknown item category "+string(category))
	}
	weight, ok := condition.Weight()
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrInvalidCondition, "unknown item condition "+string(condition))
	}

	// Integer round-half-up; base and weight are non-negative.
	return (base*weight + 50) / 100, nil
}

// ValidateOverride checks an owner-supplied point value. Any non-negative
// integer is accepted; the suggestion is never enforced.
func ValidateOverride(proposedPoints int) error {
	if proposedPoints < 0 {
		return appErrors.ErrNegativePoints
	}
	return nil
}
