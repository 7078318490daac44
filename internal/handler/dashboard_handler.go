package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rewear-app/rewear-api/internal/models"
	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
	"github.com/rewear-app/rewear-api/pkg/response"
)

type dashboardService interface {
	Stats(ctx context.Context, userID string) (*models.DashboardStats, error)
}

// DashboardHandler wires the dashboard endpoint to the service.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc dashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Stats godoc
// @Summary Personal dashboard
// @Description Aggregated items, swaps, points and notification counters
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
