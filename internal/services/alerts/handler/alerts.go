package handler

import (
	"context"
	"encoding/json"
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
	ALERT_RULES_CACHE_KEY = "alerts:rules"
	ALERT_EVENTS_CHANNEL  = "alerts:events"
	CACHE_TTL_SHORT       = 5 * time.Minute
)

type AlertHandler struct {
	db     *gorm.DB
	redis  *redis.Client
	engine *engine.Engine
	logger *zap.Logger
}

func NewAlertHandler(db *gorm.DB, redisClient *redis.Client, alertEngine *engine.Engine, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		db:     db,
		redis:  redisClient,
		engine: alertEngine,
		logger: logger,
	}
}

// GormRuleSource serves active rules straight from the rules table.
type GormRuleSource struct {
	db *gorm.DB
}

func NewGormRuleSource(db *gorm.DB) *GormRuleSource {
	return &GormRuleSource{db: db}
}

func (r *GormRuleSource) ActiveRulesForDevice(ctx context.Context, deviceID uuid.UUID) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND device_id = ?", true, deviceID).
		Find(&rules).Error
	return rules, err
}

func (r *GormRuleSource) ActiveRulesForItem(ctx context.Context, itemID uuid.UUID) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND inventory_item_id = ?", true, itemID).
		Find(&rules).Error
	return rules, err
}

// GormAlertStore persists fired alerts and fans them out on the alert
// events channel. Publish failures are logged, not surfaced; the alert row
// is the source of truth.
type GormAlertStore struct {
	db     *gorm.DB
	redis  *redis.Client
	logger *zap.Logger
}

func NewGormAlertStore(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *GormAlertStore {
	return &GormAlertStore{db: db, redis: redisClient, logger: logger}
}

func (s *GormAlertStore) HasRecentTriggered(ctx context.Context, ruleID uuid.UUID, since time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Alert{}).
		Where("rule_id = ? AND status = ? AND created_at > ?", ruleID, models.AlertStatusTriggered, since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type alertEvent struct {
	EventType string    `json:"event_type"`
	AlertID   uuid.UUID `json:"alert_id"`
	RuleID    uuid.UUID `json:"rule_id"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *GormAlertStore) Create(ctx context.Context, alert *models.Alert) error {
	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		return err
	}

	event := alertEvent{
		EventType: "triggered",
		AlertID:   alert.ID,
		RuleID:    alert.RuleID,
		Severity:  alert.Severity,
		Title:     alert.Title,
		Timestamp: alert.CreatedAt,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return nil
	}
	if err := s.redis.Publish(ctx, ALERT_EVENTS_CHANNEL, eventJSON).Err(); err != nil {
		s.logger.Warn("alert event publish failed",
			zap.String("alert_id", alert.ID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// -- Rules --

type CreateRuleRequest struct {
	Name                string      `json:"name" binding:"required"`
	Description         *string     `json:"description"`
	ConditionType       string      `json:"condition_type" binding:"required"`
	ConditionValue      float64     `json:"condition_value"`
	Severity            string      `json:"severity"`
	NotificationMethods []string    `json:"notification_methods"`
	RecipientIDs        []uuid.UUID `json:"recipient_ids"`
	FarmID              *uuid.UUID  `json:"farm_id"`
	BatchID             *uuid.UUID  `json:"batch_id"`
	DeviceID            *uuid.UUID  `json:"device_id"`
	InventoryItemID     *uuid.UUID  `json:"inventory_item_id"`
	CooldownMinutes     int         `json:"cooldown_minutes"`
}

// CreateRule validates the condition/scope pairing and pins the rule to a
// farm. The farm is derived from the device or item when not given, so
// every rule is farm-scoped for access checks.
func (s *AlertHandler) CreateRule(ctx context.Context, actor access.Actor, req CreateRuleRequest) (*models.AlertRule, error) {
	if !validConditionType(req.ConditionType) {
		return nil, apperr.Validation("unknown condition type %q", req.ConditionType)
	}
	if isDeviceCondition(req.ConditionType) && req.DeviceID == nil {
		return nil, apperr.Validation("condition %q requires a device", req.ConditionType)
	}
	if isInventoryCondition(req.ConditionType) && req.InventoryItemID == nil {
		return nil, apperr.Validation("condition %q requires an inventory item", req.ConditionType)
	}

	farmID, err := s.resolveFarm(ctx, req.FarmID, req.BatchID, req.DeviceID, req.InventoryItemID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireFarm(s.db.WithContext(ctx), actor, farmID); err != nil {
		return nil, err
	}

	severity := req.Severity
	if severity == "" {
		severity = models.SeverityMedium
	}
	if !validSeverity(severity) {
		return nil, apperr.Validation("unknown severity %q", severity)
	}

	cooldown := req.CooldownMinutes
	if cooldown <= 0 {
		cooldown = 60
	}

	rule := models.AlertRule{
		Name:                req.Name,
		Description:         req.Description,
		ConditionType:       req.ConditionType,
		ConditionValue:      req.ConditionValue,
		Severity:            severity,
		IsActive:            true,
		NotificationMethods: models.StringArray(req.NotificationMethods),
		FarmID:              &farmID,
		BatchID:             req.BatchID,
		DeviceID:            req.DeviceID,
		InventoryItemID:     req.InventoryItemID,
		CooldownMinutes:     cooldown,
	}

	if len(req.RecipientIDs) > 0 {
		var recipients []models.User
		if err := s.db.WithContext(ctx).Find(&recipients, "id IN ?", req.RecipientIDs).Error; err != nil {
			return nil, err
		}
		rule.Recipients = recipients
	}

	if err := s.db.WithContext(ctx).Create(&rule).Error; err != nil {
		return nil, err
	}

	_ = s.redis.Del(ctx, ALERT_RULES_CACHE_KEY)

	return &rule, nil
}

type UpdateRuleRequest struct {
	Name                *string     `json:"name"`
	Description         *string     `json:"description"`
	ConditionValue      *float64    `json:"condition_value"`
	Severity            *string     `json:"severity"`
	IsActive            *bool       `json:"is_active"`
	NotificationMethods []string    `json:"notification_methods"`
	RecipientIDs        []uuid.UUID `json:"recipient_ids"`
	CooldownMinutes     *int        `json:"cooldown_minutes"`
}

func (s *AlertHandler) UpdateRule(ctx context.Context, actor access.Actor, ruleID uuid.UUID, req UpdateRuleRequest) (*models.AlertRule, error) {
	rule, err := s.fetchRule(ctx, actor, ruleID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = req.Description
	}
	if req.ConditionValue != nil {
		rule.ConditionValue = *req.ConditionValue
	}
	if req.Severity != nil {
		if !validSeverity(*req.Severity) {
			return nil, apperr.Validation("unknown severity %q", *req.Severity)
		}
		rule.Severity = *req.Severity
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if req.NotificationMethods != nil {
		rule.NotificationMethods = models.StringArray(req.NotificationMethods)
	}
	if req.CooldownMinutes != nil {
		if *req.CooldownMinutes <= 0 {
			return nil, apperr.Validation("cooldown must be greater than 0")
		}
		rule.CooldownMinutes = *req.CooldownMinutes
	}

	if err := s.db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, err
	}

	if req.RecipientIDs != nil {
		var recipients []models.User
		if err := s.db.WithContext(ctx).Find(&recipients, "id IN ?", req.RecipientIDs).Error; err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Model(rule).Association("Recipients").Replace(recipients); err != nil {
			return nil, err
		}
	}

	_ = s.redis.Del(ctx, ALERT_RULES_CACHE_KEY)

	return rule, nil
}

func (s *AlertHandler) GetRule(ctx context.Context, actor access.Actor, ruleID uuid.UUID) (*models.AlertRule, error) {
	var rule models.AlertRule
	err := s.db.WithContext(ctx).
		Preload("Recipients").
		First(&rule, "id = ?", ruleID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("alert rule")
		}
		return nil, err
	}
	if rule.FarmID != nil {
		if err := access.RequireFarm(s.db.WithContext(ctx), actor, *rule.FarmID); err != nil {
			return nil, err
		}
	}
	return &rule, nil
}

type ListRulesFilter struct {
	FarmID   *uuid.UUID
	DeviceID *uuid.UUID
	IsActive *bool
	Page     int
	PageSize int
}

func (s *AlertHandler) ListRules(ctx context.Context, actor access.Actor, filter ListRulesFilter) ([]models.AlertRule, int64, error) {
	farmIDs, err := access.FarmIDs(s.db.WithContext(ctx), actor)
	if err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.AlertRule{})
	if farmIDs != nil {
		query = query.Where("farm_id IN ?", farmIDs)
	}
	if filter.FarmID != nil {
		query = query.Where("farm_id = ?", *filter.FarmID)
	}
	if filter.DeviceID != nil {
		query = query.Where("device_id = ?", *filter.DeviceID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var rules []models.AlertRule
	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rules).Error; err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}

// TestRule forces a synthetic firing of the rule. A nil alert means the
// rule is still inside its cooldown window.
func (s *AlertHandler) TestRule(ctx context.Context, actor access.Actor, ruleID uuid.UUID) (*models.Alert, error) {
	rule, err := s.fetchRule(ctx, actor, ruleID)
	if err != nil {
		return nil, err
	}
	return s.engine.TestFire(ctx, *rule)
}

// -- Alerts --

type ListAlertsFilter struct {
	Status   string
	Severity string
	FarmID   *uuid.UUID
	RuleID   *uuid.UUID
	Page     int
	PageSize int
}

func (s *AlertHandler) ListAlerts(ctx context.Context, actor access.Actor, filter ListAlertsFilter) ([]models.Alert, int64, error) {
	farmIDs, err := access.FarmIDs(s.db.WithContext(ctx), actor)
	if err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.Alert{}).
		Joins("JOIN alert_rules ON alert_rules.id = alerts.rule_id")
	if farmIDs != nil {
		query = query.Where("alert_rules.farm_id IN ?", farmIDs)
	}
	if filter.Status != "" {
		query = query.Where("alerts.status = ?", filter.Status)
	}
	if filter.Severity != "" {
		query = query.Where("alerts.severity = ?", filter.Severity)
	}
	if filter.FarmID != nil {
		query = query.Where("alert_rules.farm_id = ?", *filter.FarmID)
	}
	if filter.RuleID != nil {
		query = query.Where("alerts.rule_id = ?", *filter.RuleID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var alerts []models.Alert
	err = query.Preload("Rule").
		Order("alerts.created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&alerts).Error
	if err != nil {
		return nil, 0, err
	}

	return alerts, total, nil
}

func (s *AlertHandler) GetAlert(ctx context.Context, actor access.Actor, alertID uuid.UUID) (*models.Alert, error) {
	return s.fetchAlert(ctx, actor, alertID)
}

// Acknowledge moves a triggered alert to acknowledged on behalf of the
// actor.
func (s *AlertHandler) Acknowledge(ctx context.Context, actor access.Actor, alertID uuid.UUID, notes string) (*models.Alert, error) {
	alert, err := s.fetchAlert(ctx, actor, alertID)
	if err != nil {
		return nil, err
	}

	if err := engine.Acknowledge(alert, actor.ID, notes, time.Now()); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(alert).Error; err != nil {
		return nil, err
	}

	return alert, nil
}

// Resolve closes an alert on behalf of the actor.
func (s *AlertHandler) Resolve(ctx context.Context, actor access.Actor, alertID uuid.UUID, notes string) (*models.Alert, error) {
	alert, err := s.fetchAlert(ctx, actor, alertID)
	if err != nil {
		return nil, err
	}

	if err := engine.Resolve(alert, actor.ID, notes, time.Now()); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(alert).Error; err != nil {
		return nil, err
	}

	return alert, nil
}

// -- Internals --

func (s *AlertHandler) fetchRule(ctx context.Context, actor access.Actor, ruleID uuid.UUID) (*models.AlertRule, error) {
	var rule models.AlertRule
	if err := s.db.WithContext(ctx).First(&rule, "id = ?", ruleID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("alert rule")
		}
		return nil, err
	}
	if rule.FarmID != nil {
		if err := access.RequireFarm(s.db.WithContext(ctx), actor, *rule.FarmID); err != nil {
			return nil, err
		}
	}
	return &rule, nil
}

func (s *AlertHandler) fetchAlert(ctx context.Context, actor access.Actor, alertID uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	err := s.db.WithContext(ctx).
		Preload("Rule").
		Preload("AcknowledgedBy").
		Preload("ResolvedBy").
		First(&alert, "id = ?", alertID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("alert")
		}
		return nil, err
	}
	if alert.Rule != nil && alert.Rule.FarmID != nil {
		if err := access.RequireFarm(s.db.WithContext(ctx), actor, *alert.Rule.FarmID); err != nil {
			return nil, err
		}
	}
	return &alert, nil
}

// resolveFarm pins a rule to a farm, deriving it from the batch, device or
// item scope when the farm is not given directly.
func (s *AlertHandler) resolveFarm(ctx context.Context, farmID, batchID, deviceID, itemID *uuid.UUID) (uuid.UUID, error) {
	if farmID != nil {
		return *farmID, nil
	}
	if deviceID != nil {
		var device models.Device
		if err := s.db.WithContext(ctx).First(&device, "id = ?", *deviceID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return uuid.Nil, apperr.NotFound("device")
			}
			return uuid.Nil, err
		}
		return device.FarmID, nil
	}
	if itemID != nil {
		var item models.InventoryItem
		if err := s.db.WithContext(ctx).First(&item, "id = ?", *itemID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return uuid.Nil, apperr.NotFound("inventory item")
			}
			return uuid.Nil, err
		}
		return item.FarmID, nil
	}
	if batchID != nil {
		var batch models.Batch
		if err := s.db.WithContext(ctx).First(&batch, "id = ?", *batchID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return uuid.Nil, apperr.NotFound("batch")
			}
			return uuid.Nil, err
		}
		return batch.FarmID, nil
	}
	return uuid.Nil, apperr.Validation("rule requires a farm, batch, device or inventory item scope")
}

func validConditionType(t string) bool {
	switch t {
	case models.ConditionTemperatureGT, models.ConditionTemperatureLT,
		models.ConditionHumidityGT, models.ConditionHumidityLT,
		models.ConditionFeedLevelLT, models.ConditionWaterLevelLT,
		models.ConditionInventoryLow, models.ConditionInventoryExp:
		return true
	}
	return false
}

func isDeviceCondition(t string) bool {
	switch t {
	case models.ConditionTemperatureGT, models.ConditionTemperatureLT,
		models.ConditionHumidityGT, models.ConditionHumidityLT,
		models.ConditionFeedLevelLT, models.ConditionWaterLevelLT:
		return true
	}
	return false
}

func isInventoryCondition(t string) bool {
	return t == models.ConditionInventoryLow || t == models.ConditionInventoryExp
}

func validSeverity(s string) bool {
	switch s {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
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
