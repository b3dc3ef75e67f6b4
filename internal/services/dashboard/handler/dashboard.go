package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"kukuyard-system/internal/access"
	"kukuyard-system/internal/database/models"
)

const (
	DASHBOARD_CACHE_PREFIX = "dashboard:"
	CACHE_TTL_SHORT        = 5 * time.Minute
)

type DashboardHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewDashboardHandler(db *gorm.DB, redisClient *redis.Client) *DashboardHandler {
	return &DashboardHandler{
		db:    db,
		redis: redisClient,
	}
}

type Summary struct {
	Farms          int64 `json:"farms"`
	ActiveBatches  int64 `json:"active_batches"`
	TotalBirds     int64 `json:"total_birds"`
	Devices        int64 `json:"devices"`
	OnlineDevices  int64 `json:"online_devices"`
	OpenAlerts     int64 `json:"open_alerts"`
	CriticalAlerts int64 `json:"critical_alerts"`
	LowStockItems  int64 `json:"low_stock_items"`
	InventoryItems int64 `json:"inventory_items"`
}

// Summary aggregates the actor's visible farms into one dashboard payload.
// The result is cached per user for a short window; the counts tolerate
// staleness.
func (s *DashboardHandler) Summary(ctx context.Context, actor access.Actor) (*Summary, error) {
	cacheKey := fmt.Sprintf("%s%s", DASHBOARD_CACHE_PREFIX, actor.ID)
	if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
		var summary Summary
		if json.Unmarshal([]byte(cached), &summary) == nil {
			return &summary, nil
		}
	}

	farmIDs, err := access.FarmIDs(s.db.WithContext(ctx), actor)
	if err != nil {
		return nil, err
	}

	scoped := func(db *gorm.DB, column string) *gorm.DB {
		if farmIDs != nil {
			return db.Where(column+" IN ?", farmIDs)
		}
		return db
	}

	var summary Summary

	if farmIDs != nil {
		summary.Farms = int64(len(farmIDs))
	} else {
		if err := s.db.WithContext(ctx).Model(&models.Farm{}).Count(&summary.Farms).Error; err != nil {
			return nil, err
		}
	}

	err = scoped(s.db.WithContext(ctx).Model(&models.Batch{}), "farm_id").
		Where("status = ?", models.BatchStatusActive).
		Count(&summary.ActiveBatches).Error
	if err != nil {
		return nil, err
	}

	err = scoped(s.db.WithContext(ctx).Model(&models.Batch{}), "farm_id").
		Where("status = ?", models.BatchStatusActive).
		Select("COALESCE(SUM(current_count), 0)").
		Scan(&summary.TotalBirds).Error
	if err != nil {
		return nil, err
	}

	err = scoped(s.db.WithContext(ctx).Model(&models.Device{}), "farm_id").
		Count(&summary.Devices).Error
	if err != nil {
		return nil, err
	}

	// A device reporting within the last hour counts as online.
	err = scoped(s.db.WithContext(ctx).Model(&models.Device{}), "farm_id").
		Where("last_seen > ?", time.Now().Add(-time.Hour)).
		Count(&summary.OnlineDevices).Error
	if err != nil {
		return nil, err
	}

	alertQuery := s.db.WithContext(ctx).Model(&models.Alert{}).
		Joins("JOIN alert_rules ON alert_rules.id = alerts.rule_id").
		Where("alerts.status IN ?", []string{models.AlertStatusTriggered, models.AlertStatusAcknowledged})
	if farmIDs != nil {
		alertQuery = alertQuery.Where("alert_rules.farm_id IN ?", farmIDs)
	}
	if err := alertQuery.Count(&summary.OpenAlerts).Error; err != nil {
		return nil, err
	}

	criticalQuery := s.db.WithContext(ctx).Model(&models.Alert{}).
		Joins("JOIN alert_rules ON alert_rules.id = alerts.rule_id").
		Where("alerts.status = ? AND alerts.severity = ?", models.AlertStatusTriggered, models.SeverityCritical)
	if farmIDs != nil {
		criticalQuery = criticalQuery.Where("alert_rules.farm_id IN ?", farmIDs)
	}
	if err := criticalQuery.Count(&summary.CriticalAlerts).Error; err != nil {
		return nil, err
	}

	err = scoped(s.db.WithContext(ctx).Model(&models.InventoryItem{}), "farm_id").
		Where("is_active = ?", true).
		Count(&summary.InventoryItems).Error
	if err != nil {
		return nil, err
	}

	err = scoped(s.db.WithContext(ctx).Model(&models.InventoryItem{}), "farm_id").
		Where("is_active = ? AND current_quantity <= minimum_quantity", true).
		Count(&summary.LowStockItems).Error
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(summary); err == nil {
		_ = s.redis.Set(ctx, cacheKey, data, CACHE_TTL_SHORT)
	}

	return &summary, nil
}
