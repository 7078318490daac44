package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rewear-app/rewear-api/internal/models"
	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
	"github.com/rewear-app/rewear-api/pkg/response"
)

type swapService interface {
	Create(ctx context.Context, requesterID string, req models.CreateSwapRequest) (*models.Swap, error)
	Transition(ctx context.Context, actorID string, swapID string, action models.SwapAction) (*models.Swap, error)
	Get(ctx context.Context, userID, id string) (*models.Swap, error)
	List(ctx context.Context, userID, direction string, page, pageSize int) ([]models.Swap, *models.Pagination, error)
}

// SwapHandler wires swap lifecycle endpoints to the swap service.
type SwapHandler struct {
	service swapService
}

// NewSwapHandler constructs the handler.
func NewSwapHandler(svc swapService) *SwapHandler {
	return &SwapHandler{service: svc}
}

// Create godoc
// @Summary Propose a swap
// @Description Request an item, offering one of your items, points, or both
// @Tags Swaps
// @Accept json
// @Produce json
// @Param payload body models.CreateSwapRequest true "Swap payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /swaps [post]
func (h *SwapHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid swap payload"))
		return
	}

	swap, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, swap)
}

// List godoc
// @Summary List the caller's swaps
// @Tags Swaps
// @Produce json
// @Param direction query string false "Filter: sent or received"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /swaps [get]
func (h *SwapHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, pageSize := pageParams(c)
	swaps, pagination, err := h.service.List(c.Request.Context(), claims.UserID, c.Query("direction"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, swaps, pagination)
}

// Get godoc
// @Summary Get one swap
// @Tags Swaps
// @Produce json
// @Param id path string true "Swap ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /swaps/{id} [get]
func (h *SwapHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	swap, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, swap, nil)
}

// Accept godoc
// @Summary Accept a swap request
// @Tags Swaps
// @Produce json
// @Param id path string true "Swap ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /swaps/{id}/accept [post]
func (h *SwapHandler) Accept(c *gin.Context) {
	h.transition(c, models.SwapActionAccept)
}

// Reject godoc
// @Summary Reject a swap request
// @Tags Swaps
// @Produce json
// @Param id path string true "Swap ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /swaps/{id}/reject [post]
func (h *SwapHandler) Reject(c *gin.Context) {
	h.transition(c, models.SwapActionReject)
}

// Cancel godoc
// @Summary Cancel a swap request
// @Tags Swaps
// @Produce json
// @Param id path string true "Swap ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /swaps/{id}/cancel [post]
func (h *SwapHandler) Cancel(c *gin.Context) {
	h.transition(c, models.SwapActionCancel)
}

// Complete godoc
// @Summary Complete an accepted swap
// @Description Settles the exchange: item ownership states and points transfer atomically
// @Tags Swaps
// @Produce json
// @Param id path string true "Swap ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /swaps/{id}/complete [post]
func (h *SwapHandler) Complete(c *gin.Context) {
	h.transition(c, models.SwapActionComplete)
}

func (h *SwapHandler) transition(c *gin.Context, action models.SwapAction) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	swap, err := h.service.Transition(c.Request.Context(), claims.UserID, c.Param("id"), action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, swap, nil)
}
