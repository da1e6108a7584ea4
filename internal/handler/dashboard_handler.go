package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/response"
	"github.com/stemsi/leave-assessment/internal/service"
)

// DashboardService provides the admin dashboard metrics.
type DashboardService interface {
	GetDashboardData(ctx context.Context) (*service.DashboardData, error)
}

// DashboardHandler handles admin dashboard endpoints.
type DashboardHandler struct {
	dashboardService DashboardService
	log              zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService DashboardService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		log:              log.With().Str("component", "dashboard_handler").Logger(),
	}
}

// GetDashboardData godoc
// GET /api/v1/admin/dashboard
// Returns summary counters, attempt status and result distribution, and recent results.
func (h *DashboardHandler) GetDashboardData(c *gin.Context) {
	data, err := h.dashboardService.GetDashboardData(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, data)
}
