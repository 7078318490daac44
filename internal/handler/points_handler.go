package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rewear-app/rewear-api/internal/models"
	"github.com/rewear-app/rewear-api/internal/service"
	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
	"github.com/rewear-app/rewear-api/pkg/response"
)

type pointsService interface {
	Balance(ctx context.Context, userID string) (int, error)
	Transactions(ctx context.Context, userID string, page, pageSize int) ([]models.PointsTransaction, *models.Pagination, error)
	Redeem(ctx context.Context, userID string, req models.RedeemRequest) (int, error)
	Redemptions(ctx context.Context, userID string, page, pageSize int) ([]models.PointsTransaction, *models.Pagination, error)
	ExportStatement(ctx context.Context, userID, format string) (*service.Statement, error)
}

// PointsHandler wires points ledger endpoints to the points service.
type PointsHandler struct {
	service pointsService
}

// NewPointsHandler constructs the handler.
func NewPointsHandler(svc pointsService) *PointsHandler {
	return &PointsHandler{service: svc}
}

// Balance godoc
// @Summary Current points balance
// @Tags Points
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /points/balance [get]
func (h *PointsHandler) Balance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	balance, err := h.service.Balance(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"balance": balance}, nil)
}

// Transactions godoc
// @Summary Points ledger
// @Description List the caller's points transactions, newest first
// @Tags Points
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /points/transactions [get]
func (h *PointsHandler) Transactions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, pageSize := pageParams(c)
	transactions, pagination, err := h.service.Transactions(c.Request.Context(), claims.UserID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transactions, pagination)
}

// Redeem godoc
// @Summary Redeem an item with points
// @Description Buy an active listing outright; the owner is credited immediately
// @Tags Points
// @Accept json
// @Produce json
// @Param payload body models.RedeemRequest true "Item to redeem"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /points/redeem [post]
func (h *PointsHandler) Redeem(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	spent, err := h.service.Redeem(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"item_id": req.ItemID, "points_spent": spent})
}

// Redemptions godoc
// @Summary Redemption history
// @Description List the caller's direct item redemptions, newest first
// @Tags Points
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /points/redemptions [get]
func (h *PointsHandler) Redemptions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, pageSize := pageParams(c)
	entries, pagination, err := h.service.Redemptions(c.Request.Context(), claims.UserID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Export godoc
// @Summary Export a points statement
// @Description Download the full ledger as CSV or PDF
// @Tags Points
// @Produce octet-stream
// @Param format query string false "Export format (csv or pdf), defaults to csv"
// @Security BearerAuth
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /points/statement [get]
func (h *PointsHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	statement, err := h.service.ExportStatement(c.Request.Context(), claims.UserID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+statement.FileName+`"`)
	c.Data(http.StatusOK, statement.ContentType, statement.Content)
}
