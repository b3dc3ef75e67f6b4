package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	alerthandler "kukuyard-system/internal/services/alerts/handler"
)

type AlertHTTPHandler struct {
	alerts *alerthandler.AlertHandler
}

func NewAlertHTTPHandler(alerts *alerthandler.AlertHandler) *AlertHTTPHandler {
	return &AlertHTTPHandler{
		alerts: alerts,
	}
}

// --- Rules ---

func (h *AlertHTTPHandler) CreateRule(c *gin.Context) {
	var req alerthandler.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	rule, err := h.alerts.CreateRule(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Rule created successfully", rule))
}

func (h *AlertHTTPHandler) GetRule(c *gin.Context) {
	ruleID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	rule, err := h.alerts.GetRule(c.Request.Context(), actorFrom(c), ruleID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Rule retrieved successfully", rule))
}

func (h *AlertHTTPHandler) UpdateRule(c *gin.Context) {
	ruleID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req alerthandler.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	rule, err := h.alerts.UpdateRule(c.Request.Context(), actorFrom(c), ruleID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Rule updated successfully", rule))
}

type ListRulesQuery struct {
	Page     int        `form:"page,default=1"`
	PageSize int        `form:"page_size,default=20"`
	FarmID   *uuid.UUID `form:"farm_id"`
	DeviceID *uuid.UUID `form:"device_id"`
	IsActive *bool      `form:"is_active"`
}

func (h *AlertHTTPHandler) ListRules(c *gin.Context) {
	var query ListRulesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	rules, total, err := h.alerts.ListRules(c.Request.Context(), actorFrom(c), alerthandler.ListRulesFilter{
		FarmID:   query.FarmID,
		DeviceID: query.DeviceID,
		IsActive: query.IsActive,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Rules retrieved successfully", rules, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	}))
}

func (h *AlertHTTPHandler) TestRule(c *gin.Context) {
	ruleID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	alert, err := h.alerts.TestRule(c.Request.Context(), actorFrom(c), ruleID)
	if err != nil {
		respondError(c, err)
		return
	}

	if alert == nil {
		c.JSON(http.StatusOK, successResponse("Rule is in its cooldown window, no alert created", nil))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Test alert created successfully", alert))
}

// --- Alerts ---

type ListAlertsQuery struct {
	Page     int        `form:"page,default=1"`
	PageSize int        `form:"page_size,default=20"`
	Status   string     `form:"status"`
	Severity string     `form:"severity"`
	FarmID   *uuid.UUID `form:"farm_id"`
	RuleID   *uuid.UUID `form:"rule_id"`
}

func (h *AlertHTTPHandler) ListAlerts(c *gin.Context) {
	var query ListAlertsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	alerts, total, err := h.alerts.ListAlerts(c.Request.Context(), actorFrom(c), alerthandler.ListAlertsFilter{
		Status:   query.Status,
		Severity: query.Severity,
		FarmID:   query.FarmID,
		RuleID:   query.RuleID,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Alerts retrieved successfully", alerts, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	}))
}

func (h *AlertHTTPHandler) GetAlert(c *gin.Context) {
	alertID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	alert, err := h.alerts.GetAlert(c.Request.Context(), actorFrom(c), alertID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Alert retrieved successfully", alert))
}

type AlertNotesRequest struct {
	Notes string `json:"notes"`
}

func (h *AlertHTTPHandler) AcknowledgeAlert(c *gin.Context) {
	alertID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req AlertNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	alert, err := h.alerts.Acknowledge(c.Request.Context(), actorFrom(c), alertID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Alert acknowledged successfully", alert))
}

func (h *AlertHTTPHandler) ResolveAlert(c *gin.Context) {
	alertID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req AlertNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	alert, err := h.alerts.Resolve(c.Request.Context(), actorFrom(c), alertID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Alert resolved successfully", alert))
}
