package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rewear-app/rewear-api/internal/catalog"
	"github.com/rewear-app/rewear-api/internal/models"
	"github.com/rewear-app/rewear-api/internal/valuation"
	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
	"github.com/rewear-app/rewear-api/pkg/response"
)

type itemService interface {
	List(ctx context.Context, raw catalog.RawQuery) ([]models.ItemDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ItemDetail, error)
	Featured(ctx context.Context) ([]models.ItemDetail, error)
	Suggest(category, condition string) (*models.ValuationPreview, error)
	Create(ctx context.Context, ownerID string, req models.CreateItemRequest) (*models.Item, error)
	Update(ctx context.Context, userID, id string, req models.UpdateItemRequest) (*models.Item, error)
	Delist(ctx context.Context, actorID string, actorRole models.UserRole, id string) error
	MyItems(ctx context.Context, ownerID string, page, pageSize int) ([]models.Item, *models.Pagination, error)
}

// ItemHandler wires catalog endpoints to the item service.
type ItemHandler struct {
	service itemService
}

// NewItemHandler constructs the handler.
func NewItemHandler(svc itemService) *ItemHandler {
	return &ItemHandler{service: svc}
}

// List godoc
// @Summary Browse the catalog
// @Description List active items with filtering, search, sorting and pagination
// @Tags Items
// @Produce json
// @Param category query string false "Category filter"
// @Param size query string false "Size filter"
// @Param condition query string false "Condition filter"
// @Param minPoints query int false "Minimum points value"
// @Param maxPoints query int false "Maximum points value"
// @Param search query string false "Search in title, description and tags"
// @Param sortBy query string false "Sort field (created_at, title, points_value, condition)"
// @Param sortOrder query string false "Sort order (asc or desc)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /items [get]
func (h *ItemHandler) List(c *gin.Context) {
	raw := catalog.RawQuery{
		Category:  c.Query("category"),
		Size:      c.Query("size"),
		Condition: c.Query("condition"),
		MinPoints: c.Query("minPoints"),
		MaxPoints: c.Query("maxPoints"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Page:      c.Query("page"),
		PageSize:  c.Query("pageSize"),
	}

	items, pagination, err := h.service.List(c.Request.Context(), raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Featured godoc
// @Summary Featured items
// @Description Recent high-condition listings
// @Tags Items
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /items/featured [get]
func (h *ItemHandler) Featured(c *gin.Context) {
	items, err := h.service.Featured(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Suggest godoc
// @Summary Suggest a points valuation
// @Description Preview the valuation for a category and condition pair
// @Tags Items
// @Produce json
// @Param category query string true "Item category"
// @Param condition query string true "Item condition"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /items/valuation [get]
func (h *ItemHandler) Suggest(c *gin.Context) {
	preview, err := h.service.Suggest(c.Query("category"), c.Query("condition"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Get godoc
// @Summary Get one item
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /items/{id} [get]
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary List a new item
// @Tags Items
// @Accept json
// @Produce json
// @Param payload body models.CreateItemRequest true "Item payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid item payload"))
		return
	}

	item, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Edit a listing
// @Tags Items
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body models.UpdateItemRequest true "Item payload"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /items/{id} [put]
func (h *ItemHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid item payload"))
		return
	}

	item, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delist godoc
// @Summary Remove a listing from the catalog
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Security BearerAuth
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /items/{id} [delete]
func (h *ItemHandler) Delist(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delist(c.Request.Context(), claims.UserID, claims.Role, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MyItems godoc
// @Summary List the caller's items
// @Tags Items
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /items/mine [get]
func (h *ItemHandler) MyItems(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, pageSize := pageParams(c)
	items, pagination, err := h.service.MyItems(c.Request.Context(), claims.UserID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Categories godoc
// @Summary List item categories
// @Tags Items
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *ItemHandler) Categories(c *gin.Context) {
	out := make([]gin.H, 0, len(models.Categories))
	for _, category := range models.Categories {
		base, _ := valuation.BasePoints(category)
		out = append(out, gin.H{"name": category, "base_points": base})
	}
	response.JSON(c, http.StatusOK, out, nil)
}
