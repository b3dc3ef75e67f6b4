package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	dashboardhandler "kukuyard-system/internal/services/dashboard/handler"
)

type DashboardHTTPHandler struct {
	dashboard *dashboardhandler.DashboardHandler
}

func NewDashboardHTTPHandler(dashboard *dashboardhandler.DashboardHandler) *DashboardHTTPHandler {
	return &DashboardHTTPHandler{
		dashboard: dashboard,
	}
}

func (h *DashboardHTTPHandler) Summary(c *gin.Context) {
	summary, err := h.dashboard.Summary(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Dashboard retrieved successfully", summary))
}
