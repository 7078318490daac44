// Package catalog canonicalises browsing filters and computes pagination
// windows. Normalisation is pure: the same raw filter always yields the
// same canonical query, and normalising a canonical query is a no-op.
package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
)

const (
	// DefaultPageSize matches the browsing grid of the web client.
	DefaultPageSize = 12
	// MaxPageSize caps a single page.
	MaxPageSize = 100
	// NoMaxPoints marks an unbounded upper points limit.
	NoMaxPoints = math.MaxInt32

	DefaultSortBy    = "created_at"
	DefaultSortOrder = "desc"
)

// RawQuery is a loose filter as parsed from a URL query string. Empty
// strings mean "not provided". Unrecognised URL keys never reach this
// struct and are therefore ignored.
type RawQuery struct {
	Search    string
	Category  string
	Size      string
	Condition string
	MinPoints string
	MaxPoints string
	SortBy    string
	SortOrder string
	Page      string
	PageSize  string
}

// CanonicalQuery is the validated, defaulted form of a browsing filter.
type CanonicalQuery struct {
	Search    string
	Category  string
	Size      string
	Condition string
	MinPoints int
	MaxPoints int
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// Raw converts a canonical query back to its raw form. Normalize(q.Raw())
// returns q unchanged.
func (q CanonicalQuery) Raw() RawQuery {
	maxPoints := ""
	if q.MaxPoints != NoMaxPoints {
		maxPoints = strconv.Itoa(q.MaxPoints)
	}
	return RawQuery{
		Search:    q.Search,
		Category:  q.Category,
		Size:      q.Size,
		Condition: q.Condition,
		MinPoints: strconv.Itoa(q.MinPoints),
		MaxPoints: maxPoints,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      strconv.Itoa(q.Page),
		PageSize:  strconv.Itoa(q.PageSize),
	}
}

// sortAliases maps accepted sort keys (including the web client's
// camelCase spellings) to canonical column names.
var sortAliases = map[string]string{
	"created_at":   "created_at",
	"createdAt":    "created_at",
	"title":        "title",
	"points_value": "points_value",
	"pointsValue":  "points_value",
	"condition":    "condition",
}

// Normalize validates a raw filter and fills in defaults. A min/max points
// inversion is rejected with INVALID_RANGE; an unknown sort key is rejected
// with INVALID_SORT. Page and page size are clamped, not rejected.
func Normalize(raw RawQuery) (CanonicalQuery, error) {
	q := CanonicalQuery{
		Search:    strings.TrimSpace(raw.Search),
		Category:  strings.ToLower(strings.TrimSpace(raw.Category)),
		Size:      strings.TrimSpace(raw.Size),
		Condition: strings.ToLower(strings.TrimSpace(raw.Condition)),
		MinPoints: 0,
		MaxPoints: NoMaxPoints,
		SortBy:    DefaultSortBy,
		SortOrder: DefaultSortOrder,
		Page:      1,
		PageSize:  DefaultPageSize,
	}

	if raw.MinPoints != "" {
		min, err := strconv.Atoi(raw.MinPoints)
		if err != nil || min < 0 {
			return CanonicalQuery{}, appErrors.Clone(appErrors.ErrInvalidRange,
				fmt.Sprintf("invalid minPoints %q", raw.MinPoints))
		}
		q.MinPoints = min
	}
	if raw.MaxPoints != "" {
		max, err := strconv.Atoi(raw.MaxPoints)
		if err != nil || max < 0 {
			return CanonicalQuery{}, appErrors.Clone(appErrors.ErrInvalidRange,
				fmt.Sprintf("invalid maxPoints %q", raw.MaxPoints))
		}
		q.MaxPoints = max
	}
	if q.MinPoints > q.MaxPoints {
		return CanonicalQuery{}, appErrors.Clone(appErrors.ErrInvalidRange,
			fmt.Sprintf("minPoints %d exceeds maxPoints %d", q.MinPoints, q.MaxPoints))
	}

	if raw.SortBy != "" {
		column, ok := sortAliases[raw.SortBy]
		if !ok {
			return CanonicalQuery{}, appErrors.Clone(appErrors.ErrInvalidSort,
				fmt.Sprintf("unknown sort field %q", raw.SortBy))
		}
		q.SortBy = column
	}
	if order := strings.ToLower(strings.TrimSpace(raw.SortOrder)); order == "asc" {
		q.SortOrder = "asc"
	}

	if raw.Page != "" {
		if page, err := strconv.Atoi(raw.Page); err == nil && page >= 1 {
			q.Page = page
		}
	}
	if raw.PageSize != "" {
		if size, err := strconv.Atoi(raw.PageSize); err == nil && size >= 1 {
			if size > MaxPageSize {
				size = MaxPageSize
			}
			q.PageSize = size
		}
	}

	return q, nil
}

// Window describes the slice of a result set covered by one page.
type Window struct {
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`
	TotalPages int `json:"total_pages"`
}

// Paginate computes the window for a page over totalItems records. A page
// past the end yields an empty window, never an error. TotalPages is at
// least 1 even for an empty result set.
func Paginate(totalItems, page, pageSize int) Window {
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}
	if totalItems < 0 {
		totalItems = 0
	}

	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	start := (page - 1) * pageSize
	if start > totalItems {
		start = totalItems
	}
	end := start + pageSize
	if end > totalItems {
		end = totalItems
	}

	return Window{StartIndex: start, EndIndex: end, TotalPages: totalPages}
}
