package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	farmhandler "kukuyard-system/internal/services/farm/handler"
)

type FarmHTTPHandler struct {
	farms *farmhandler.FarmHandler
}

func NewFarmHTTPHandler(farms *farmhandler.FarmHandler) *FarmHTTPHandler {
	return &FarmHTTPHandler{
		farms: farms,
	}
}

// --- Farms ---

func (h *FarmHTTPHandler) CreateFarm(c *gin.Context) {
	var req farmhandler.CreateFarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	farm, err := h.farms.CreateFarm(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Farm created successfully", farm))
}

func (h *FarmHTTPHandler) GetFarm(c *gin.Context) {
	farmID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	farm, err := h.farms.GetFarm(c.Request.Context(), actorFrom(c), farmID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Farm retrieved successfully", farm))
}

func (h *FarmHTTPHandler) UpdateFarm(c *gin.Context) {
	farmID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req farmhandler.UpdateFarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	farm, err := h.farms.UpdateFarm(c.Request.Context(), actorFrom(c), farmID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Farm updated successfully", farm))
}

type ListFarmsQuery struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=20"`
}

func (h *FarmHTTPHandler) ListFarms(c *gin.Context) {
	var query ListFarmsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	farms, total, err := h.farms.ListFarms(c.Request.Context(), actorFrom(c), query.Page, query.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Farms retrieved successfully", farms, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	}))
}

type WorkerRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

func (h *FarmHTTPHandler) AddWorker(c *gin.Context) {
	farmID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req WorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	if err := h.farms.AddWorker(c.Request.Context(), actorFrom(c), farmID, req.UserID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Worker added successfully", nil))
}

func (h *FarmHTTPHandler) RemoveWorker(c *gin.Context) {
	farmID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}

	if err := h.farms.RemoveWorker(c.Request.Context(), actorFrom(c), farmID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Worker removed successfully", nil))
}

// --- Batches ---

func (h *FarmHTTPHandler) CreateBatch(c *gin.Context) {
	var req farmhandler.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	batch, err := h.farms.CreateBatch(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Batch created successfully", batch))
}

func (h *FarmHTTPHandler) GetBatch(c *gin.Context) {
	batchID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	batch, err := h.farms.GetBatch(c.Request.Context(), actorFrom(c), batchID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Batch retrieved successfully", batch))
}

func (h *FarmHTTPHandler) UpdateBatch(c *gin.Context) {
	batchID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req farmhandler.UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	batch, err := h.farms.UpdateBatch(c.Request.Context(), actorFrom(c), batchID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Batch updated successfully", batch))
}

type BatchStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

func (h *FarmHTTPHandler) UpdateBatchStatus(c *gin.Context) {
	batchID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req BatchStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	batch, err := h.farms.UpdateBatchStatus(c.Request.Context(), actorFrom(c), batchID, req.Status, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Batch status updated successfully", batch))
}

type ListBatchesQuery struct {
	Page     int        `form:"page,default=1"`
	PageSize int        `form:"page_size,default=20"`
	FarmID   *uuid.UUID `form:"farm_id"`
	Status   string     `form:"status"`
}

func (h *FarmHTTPHandler) ListBatches(c *gin.Context) {
	var query ListBatchesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	batches, total, err := h.farms.ListBatches(c.Request.Context(), actorFrom(c), farmhandler.ListBatchesFilter{
		FarmID:   query.FarmID,
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Batches retrieved successfully", batches, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	}))
}
