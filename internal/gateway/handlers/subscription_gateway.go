package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	subscriptionhandler "kukuyard-system/internal/services/subscription/handler"
)

type SubscriptionHTTPHandler struct {
	subscriptions *subscriptionhandler.SubscriptionHandler
}

func NewSubscriptionHTTPHandler(subscriptions *subscriptionhandler.SubscriptionHandler) *SubscriptionHTTPHandler {
	return &SubscriptionHTTPHandler{
		subscriptions: subscriptions,
	}
}

// --- Plans ---

func (h *SubscriptionHTTPHandler) ListPlans(c *gin.Context) {
	plans, err := h.subscriptions.ListPlans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Plans retrieved successfully", plans))
}

func (h *SubscriptionHTTPHandler) CreatePlan(c *gin.Context) {
	var req subscriptionhandler.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	plan, err := h.subscriptions.CreatePlan(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Plan created successfully", plan))
}

// --- Subscriptions ---

type SubscribeRequest struct {
	PlanID uuid.UUID `json:"plan_id" binding:"required"`
}

func (h *SubscriptionHTTPHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	subscription, err := h.subscriptions.Subscribe(c.Request.Context(), actorFrom(c), req.PlanID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Subscription created successfully", subscription))
}

func (h *SubscriptionHTTPHandler) CurrentSubscription(c *gin.Context) {
	subscription, err := h.subscriptions.CurrentSubscription(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Subscription retrieved successfully", subscription))
}

func (h *SubscriptionHTTPHandler) Cancel(c *gin.Context) {
	subscriptionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	subscription, err := h.subscriptions.Cancel(c.Request.Context(), actorFrom(c), subscriptionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Subscription cancelled successfully", subscription))
}

// --- Payments ---

func (h *SubscriptionHTTPHandler) RecordPayment(c *gin.Context) {
	var req subscriptionhandler.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	payment, err := h.subscriptions.RecordPayment(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Payment recorded successfully", payment))
}

func (h *SubscriptionHTTPHandler) ListPayments(c *gin.Context) {
	subscriptionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	payments, err := h.subscriptions.ListPayments(c.Request.Context(), actorFrom(c), subscriptionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Payments retrieved successfully", payments))
}
