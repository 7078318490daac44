package service

import (
	"github.com/rewear-app/rewear-api/internal/catalog"
	"github.com/rewear-app/rewear-api/internal/models"
)

// paginationFor builds list-response pagination metadata.
func paginationFor(total, page, pageSize int) *models.Pagination {
	window := catalog.Paginate(total, page, pageSize)
	return &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: window.TotalPages,
	}
}
