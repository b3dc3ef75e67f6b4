package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	devicehandler "kukuyard-system/internal/services/device/handler"
)

type DeviceHTTPHandler struct {
	devices *devicehandler.DeviceHandler
}

func NewDeviceHTTPHandler(devices *devicehandler.DeviceHandler) *DeviceHTTPHandler {
	return &DeviceHTTPHandler{
		devices: devices,
	}
}

// --- Devices ---

func (h *DeviceHTTPHandler) CreateDevice(c *gin.Context) {
	var req devicehandler.CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	device, err := h.devices.CreateDevice(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Device created successfully", device))
}

func (h *DeviceHTTPHandler) GetDevice(c *gin.Context) {
	deviceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	device, err := h.devices.GetDevice(c.Request.Context(), actorFrom(c), deviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Device retrieved successfully", device))
}

func (h *DeviceHTTPHandler) UpdateDevice(c *gin.Context) {
	deviceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req devicehandler.UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	device, err := h.devices.UpdateDevice(c.Request.Context(), actorFrom(c), deviceID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Device updated successfully", device))
}

type DeviceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *DeviceHTTPHandler) UpdateDeviceStatus(c *gin.Context) {
	deviceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req DeviceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	device, err := h.devices.UpdateDeviceStatus(c.Request.Context(), actorFrom(c), deviceID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Device status updated successfully", device))
}

type ListDevicesQuery struct {
	Page     int        `form:"page,default=1"`
	PageSize int        `form:"page_size,default=20"`
	FarmID   *uuid.UUID `form:"farm_id"`
	BatchID  *uuid.UUID `form:"batch_id"`
	Status   string     `form:"status"`
	Type     string     `form:"type"`
}

func (h *DeviceHTTPHandler) ListDevices(c *gin.Context) {
	var query ListDevicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	devices, total, err := h.devices.ListDevices(c.Request.Context(), actorFrom(c), devicehandler.ListDevicesFilter{
		FarmID:   query.FarmID,
		BatchID:  query.BatchID,
		Status:   query.Status,
		Type:     query.Type,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Devices retrieved successfully", devices, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	}))
}

// --- Readings ---

func (h *DeviceHTTPHandler) IngestReading(c *gin.Context) {
	var req devicehandler.IngestReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	result, err := h.devices.IngestReading(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Reading ingested successfully", map[string]interface{}{
		"reading": result.Reading,
		"alerts":  result.Alerts,
	}))
}

type ListReadingsQuery struct {
	Page     int        `form:"page,default=1"`
	PageSize int        `form:"page_size,default=20"`
	From     *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (h *DeviceHTTPHandler) ListReadings(c *gin.Context) {
	deviceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var query ListReadingsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	readings, total, err := h.devices.ListReadings(c.Request.Context(), actorFrom(c), deviceID, devicehandler.ListReadingsFilter{
		From:     query.From,
		To:       query.To,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Readings retrieved successfully", readings, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	}))
}

func (h *DeviceHTTPHandler) LatestReading(c *gin.Context) {
	deviceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	reading, err := h.devices.LatestReading(c.Request.Context(), actorFrom(c), deviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Reading retrieved successfully", reading))
}
