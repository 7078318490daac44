package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
)

func TestNormalizeDefaults(t *testing.T) {
	q, err := Normalize(RawQuery{})
	require.NoError(t, err)

	assert.Equal(t, "", q.Search)
	assert.Equal(t, "", q.Category)
	assert.Equal(t, "", q.Size)
	assert.Equal(t, "", q.Condition)
	assert.Equal(t, 0, q.MinPoints)
	assert.Equal(t, NoMaxPoints, q.MaxPoints)
	assert.Equal(t, "created_at", q.SortBy)
	assert.Equal(t, "desc", q.SortOrder)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultPageSize, q.PageSize)
}

func TestNormalizeTrimsAndLowercases(t *testing.T) {
	q, err := Normalize(RawQuery{Search: "  denim jacket ", Category: " Outerwear", Condition: "Good "})
	require.NoError(t, err)
	assert.Equal(t, "denim jacket", q.Search)
	assert.Equal(t, "outerwear", q.Category)
	assert.Equal(t, "good", q.Condition)
}

func TestNormalizeRejectsInvertedRange(t *testing.T) {
	_, err := Normalize(RawQuery{MinPoints: "50", MaxPoints: "20"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INVALID_RANGE", appErr.Code)
}

func TestNormalizeRejectsMalformedBounds(t *testing.T) {
	for _, raw := range []RawQuery{
		{MinPoints: "abc"},
		{MaxPoints: "-5"},
		{MinPoints: "-1"},
	} {
		_, err := Normalize(raw)
		require.Error(t, err)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "INVALID_RANGE", appErr.Code)
	}
}

func TestNormalizeSortAllowList(t *testing.T) {
	for raw, want := range map[string]string{
		"created_at":   "created_at",
		"createdAt":    "created_at",
		"title":        "title",
		"pointsValue":  "points_value",
		"points_value": "points_value",
		"condition":    "condition",
	} {
		q, err := Normalize(RawQuery{SortBy: raw})
		require.NoError(t, err)
		assert.Equal(t, want, q.SortBy)
	}

	_, err := Normalize(RawQuery{SortBy: "ownerId"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INVALID_SORT", appErr.Code)
}

func TestNormalizeClampsPaging(t *testing.T) {
	q, err := Normalize(RawQuery{Page: "0", PageSize: "500"})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, MaxPageSize, q.PageSize)

	q, err = Normalize(RawQuery{Page: "junk", PageSize: "junk"})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultPageSize, q.PageSize)
}

func TestNormalizeIdempotent(t *testing.T) {
	raws := []RawQuery{
		{},
		{Search: "wool coat", Category: "outerwear", MinPoints: "10", MaxPoints: "80", SortBy: "pointsValue", SortOrder: "asc", Page: "3", PageSize: "24"},
		{Condition: "fair", SortBy: "title"},
	}

	for _, raw := range raws {
		first, err := Normalize(raw)
		require.NoError(t, err)
		second, err := Normalize(first.Raw())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestPaginate(t *testing.T) {
	w := Paginate(25, 1, 12)
	assert.Equal(t, 3, w.TotalPages)
	assert.Equal(t, 0, w.StartIndex)
	assert.Equal(t, 12, w.EndIndex)

	w = Paginate(25, 3, 12)
	assert.Equal(t, 3, w.TotalPages)
	assert.Equal(t, 24, w.StartIndex)
	assert.Equal(t, 25, w.EndIndex)
}

func TestPaginateEmptySet(t *testing.T) {
	w := Paginate(0, 1, 12)
	assert.Equal(t, 1, w.TotalPages)
	assert.Equal(t, 0, w.StartIndex)
	assert.Equal(t, 0, w.EndIndex)
}

func TestPaginatePastTheEnd(t *testing.T) {
	w := Paginate(25, 9, 12)
	assert.Equal(t, 3, w.TotalPages)
	assert.Equal(t, w.StartIndex, w.EndIndex)
	assert.LessOrEqual(t, w.EndIndex, 25)
}

func TestPaginateGuardsDegenerateInput(t *testing.T) {
	w := Paginate(10, 0, 0)
	assert.Equal(t, 10, w.TotalPages)
	assert.Equal(t, 0, w.StartIndex)
	assert.Equal(t, 1, w.EndIndex)
}
