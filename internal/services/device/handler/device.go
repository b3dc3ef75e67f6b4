package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kukuyard-system/internal/access"
	"kukuyard-system/internal/apperr"
	"kukuyard-system/internal/database/models"
	"kukuyard-system/internal/services/alerts/engine"
)

const (
	DEVICE_CACHE_PREFIX = "device:"
	DEVICES_CACHE_KEY   = "devices:all"
	CACHE_TTL_SHORT     = 5 * time.Minute
)

type DeviceHandler struct {
	db     *gorm.DB
	redis  *redis.Client
	engine *engine.Engine
	logger *zap.Logger
}

func NewDeviceHandler(db *gorm.DB, redisClient *redis.Client, alertEngine *engine.Engine, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		db:     db,
		redis:  redisClient,
		engine: alertEngine,
		logger: logger,
	}
}

func (s *DeviceHandler) invalidateDeviceCaches(ctx context.Context, deviceID ...uuid.UUID) {
	_ = s.redis.Del(ctx, DEVICES_CACHE_KEY)
	for _, id := range deviceID {
		_ = s.redis.Del(ctx, fmt.Sprintf("%s%s", DEVICE_CACHE_PREFIX, id))
	}
}

// -- Devices --

type CreateDeviceRequest struct {
	Name       string         `json:"name" binding:"required"`
	DeviceType string         `json:"device_type" binding:"required"`
	SerialID   string         `json:"serial_id" binding:"required"`
	FarmID     uuid.UUID      `json:"farm_id" binding:"required"`
	BatchID    *uuid.UUID     `json:"batch_id"`
	Metadata   models.JSONMap `json:"metadata"`
}

func (s *DeviceHandler) CreateDevice(ctx context.Context, actor access.Actor, req CreateDeviceRequest) (*models.Device, error) {
	if err := access.RequireFarm(s.db.WithContext(ctx), actor, req.FarmID); err != nil {
		return nil, err
	}
	if !validDeviceType(req.DeviceType) {
		return nil, apperr.Validation("unknown device type %q", req.DeviceType)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Device{}).
		Where("serial_id = ?", req.SerialID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Validation("serial id %q already registered", req.SerialID)
	}

	device := models.Device{
		Name:       req.Name,
		DeviceType: req.DeviceType,
		SerialID:   req.SerialID,
		FarmID:     req.FarmID,
		BatchID:    req.BatchID,
		Status:     models.DeviceStatusActive,
		Metadata:   req.Metadata,
	}

	if err := s.db.WithContext(ctx).Create(&device).Error; err != nil {
		return nil, err
	}

	s.invalidateDeviceCaches(ctx)

	return &device, nil
}

type UpdateDeviceRequest struct {
	Name     *string        `json:"name"`
	BatchID  *uuid.UUID     `json:"batch_id"`
	Metadata models.JSONMap `json:"metadata"`
}

func (s *DeviceHandler) UpdateDevice(ctx context.Context, actor access.Actor, deviceID uuid.UUID, req UpdateDeviceRequest) (*models.Device, error) {
	device, err := s.fetchDevice(ctx, actor, deviceID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		device.Name = *req.Name
	}
	if req.BatchID != nil {
		device.BatchID = req.BatchID
	}
	if req.Metadata != nil {
		device.Metadata = req.Metadata
	}

	if err := s.db.WithContext(ctx).Save(device).Error; err != nil {
		return nil, err
	}

	s.invalidateDeviceCaches(ctx, device.ID)

	return device, nil
}

func (s *DeviceHandler) UpdateDeviceStatus(ctx context.Context, actor access.Actor, deviceID uuid.UUID, status string) (*models.Device, error) {
	switch status {
	case models.DeviceStatusActive, models.DeviceStatusInactive, models.DeviceStatusMaintenance:
	default:
		return nil, apperr.Validation("unknown device status %q", status)
	}

	device, err := s.fetchDevice(ctx, actor, deviceID)
	if err != nil {
		return nil, err
	}

	device.Status = status
	if err := s.db.WithContext(ctx).Save(device).Error; err != nil {
		return nil, err
	}

	s.invalidateDeviceCaches(ctx, device.ID)

	return device, nil
}

func (s *DeviceHandler) GetDevice(ctx context.Context, actor access.Actor, deviceID uuid.UUID) (*models.Device, error) {
	var device models.Device
	err := s.db.WithContext(ctx).
		Preload("Batch").
		First(&device, "id = ?", deviceID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("device")
		}
		return nil, err
	}
	if err := access.RequireFarm(s.db.WithContext(ctx), actor, device.FarmID); err != nil {
		return nil, err
	}
	return &device, nil
}

type ListDevicesFilter struct {
	FarmID   *uuid.UUID
	BatchID  *uuid.UUID
	Status   string
	Type     string
	Page     int
	PageSize int
}

func (s *DeviceHandler) ListDevices(ctx context.Context, actor access.Actor, filter ListDevicesFilter) ([]models.Device, int64, error) {
	farmIDs, err := access.FarmIDs(s.db.WithContext(ctx), actor)
	if err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.Device{})
	if farmIDs != nil {
		query = query.Where("farm_id IN ?", farmIDs)
	}
	if filter.FarmID != nil {
		query = query.Where("farm_id = ?", *filter.FarmID)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("device_type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var devices []models.Device
	if err := query.Order("name").Offset((page - 1) * pageSize).Limit(pageSize).Find(&devices).Error; err != nil {
		return nil, 0, err
	}

	return devices, total, nil
}

// -- Readings --

type IngestReadingRequest struct {
	SerialID     string         `json:"serial_id" binding:"required"`
	Temperature  *float64       `json:"temperature"`
	Humidity     *float64       `json:"humidity"`
	FeedLevel    *float64       `json:"feed_level"`
	WaterLevel   *float64       `json:"water_level"`
	BatteryLevel *float64       `json:"battery_level"`
	ReadingTime  *time.Time     `json:"reading_time"`
	RawData      models.JSONMap `json:"raw_data"`
}

type IngestResult struct {
	Reading *models.SensorReading
	Alerts  []models.Alert
}

// IngestReading stores one reading, refreshes the device heartbeat and runs
// the alert rules against the new values. The reading is accepted even when
// evaluation fails; alerting is best effort on top of ingestion.
func (s *DeviceHandler) IngestReading(ctx context.Context, req IngestReadingRequest) (*IngestResult, error) {
	var device models.Device
	err := s.db.WithContext(ctx).
		Where("serial_id = ?", req.SerialID).
		First(&device).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("device")
		}
		return nil, err
	}

	if device.Status != models.DeviceStatusActive {
		return nil, apperr.Validation("device %s is not active", device.SerialID)
	}

	readingTime := time.Now()
	if req.ReadingTime != nil {
		readingTime = *req.ReadingTime
	}

	reading := models.SensorReading{
		DeviceID:     device.ID,
		Temperature:  req.Temperature,
		Humidity:     req.Humidity,
		FeedLevel:    req.FeedLevel,
		WaterLevel:   req.WaterLevel,
		BatteryLevel: req.BatteryLevel,
		ReadingTime:  readingTime,
		RawData:      req.RawData,
	}

	if err := s.db.WithContext(ctx).Create(&reading).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&device).Update("last_seen", now).Error; err != nil {
		s.logger.Warn("device heartbeat update failed",
			zap.String("device_id", device.ID.String()),
			zap.Error(err),
		)
	}

	alerts, err := s.engine.Evaluate(ctx, &reading)
	if err != nil {
		s.logger.Error("alert evaluation failed",
			zap.String("device_id", device.ID.String()),
			zap.String("reading_id", reading.ID.String()),
			zap.Error(err),
		)
	}

	return &IngestResult{Reading: &reading, Alerts: alerts}, nil
}

type ListReadingsFilter struct {
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

func (s *DeviceHandler) ListReadings(ctx context.Context, actor access.Actor, deviceID uuid.UUID, filter ListReadingsFilter) ([]models.SensorReading, int64, error) {
	if _, err := s.fetchDevice(ctx, actor, deviceID); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.SensorReading{}).
		Where("device_id = ?", deviceID)
	if filter.From != nil {
		query = query.Where("reading_time >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("reading_time < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var readings []models.SensorReading
	err := query.Order("reading_time DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&readings).Error
	if err != nil {
		return nil, 0, err
	}

	return readings, total, nil
}

// LatestReading returns the most recent reading for a device, or a not
// found error when the device has never reported.
func (s *DeviceHandler) LatestReading(ctx context.Context, actor access.Actor, deviceID uuid.UUID) (*models.SensorReading, error) {
	if _, err := s.fetchDevice(ctx, actor, deviceID); err != nil {
		return nil, err
	}

	var reading models.SensorReading
	err := s.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("reading_time DESC").
		First(&reading).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("sensor reading")
		}
		return nil, err
	}

	return &reading, nil
}

// -- Internals --

func (s *DeviceHandler) fetchDevice(ctx context.Context, actor access.Actor, deviceID uuid.UUID) (*models.Device, error) {
	var device models.Device
	if err := s.db.WithContext(ctx).First(&device, "id = ?", deviceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("device")
		}
		return nil, err
	}
	if err := access.RequireFarm(s.db.WithContext(ctx), actor, device.FarmID); err != nil {
		return nil, err
	}
	return &device, nil
}

func validDeviceType(t string) bool {
	switch t {
	case models.DeviceTypeTemperature, models.DeviceTypeHumidity,
		models.DeviceTypeFeed, models.DeviceTypeWater, models.DeviceTypeCamera:
		return true
	}
	return false
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
