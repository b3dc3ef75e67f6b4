package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kukuyard-system/internal/access"
	"kukuyard-system/internal/apperr"
	"kukuyard-system/internal/database/models"
)

const (
	FARM_CACHE_PREFIX = "farm:"
	FARMS_CACHE_KEY   = "farms:all"
	CACHE_TTL_SHORT   = 5 * time.Minute
)

type FarmHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewFarmHandler(db *gorm.DB, redisClient *redis.Client) *FarmHandler {
	return &FarmHandler{
		db:    db,
		redis: redisClient,
	}
}

func (s *FarmHandler) invalidateFarmCaches(ctx context.Context, farmID ...uuid.UUID) {
	_ = s.redis.Del(ctx, FARMS_CACHE_KEY)
	for _, id := range farmID {
		_ = s.redis.Del(ctx, fmt.Sprintf("%s%s", FARM_CACHE_PREFIX, id))
	}
}

// -- Farms --

type CreateFarmRequest struct {
	Name        string          `json:"name" binding:"required"`
	Location    string          `json:"location"`
	Size        decimal.Decimal `json:"size"`
	Description *string         `json:"description"`
}

func (s *FarmHandler) CreateFarm(ctx context.Context, actor access.Actor, req CreateFarmRequest) (*models.Farm, error) {
	if actor.Role == models.RoleWorker {
		return nil, apperr.Forbidden("workers cannot create farms")
	}

	farm := models.Farm{
		Name:        req.Name,
		OwnerID:     actor.ID,
		Location:    req.Location,
		Size:        req.Size,
		Description: req.Description,
	}

	if err := s.db.WithContext(ctx).Create(&farm).Error; err != nil {
		return nil, err
	}

	s.invalidateFarmCaches(ctx)

	return &farm, nil
}

type UpdateFarmRequest struct {
	Name        *string          `json:"name"`
	Location    *string          `json:"location"`
	Size        *decimal.Decimal `json:"size"`
	Description *string          `json:"description"`
}

func (s *FarmHandler) UpdateFarm(ctx context.Context, actor access.Actor, farmID uuid.UUID, req UpdateFarmRequest) (*models.Farm, error) {
	if err := access.RequireOwner(s.db.WithContext(ctx), actor, farmID); err != nil {
		return nil, err
	}

	farm, err := s.fetchFarm(ctx, farmID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		farm.Name = *req.Name
	}
	if req.Location != nil {
		farm.Location = *req.Location
	}
	if req.Size != nil {
		farm.Size = *req.Size
	}
	if req.Description != nil {
		farm.Description = req.Description
	}

	if err := s.db.WithContext(ctx).Save(farm).Error; err != nil {
		return nil, err
	}

	s.invalidateFarmCaches(ctx, farm.ID)

	return farm, nil
}

func (s *FarmHandler) GetFarm(ctx context.Context, actor access.Actor, farmID uuid.UUID) (*models.Farm, error) {
	if err := access.RequireFarm(s.db.WithContext(ctx), actor, farmID); err != nil {
		return nil, err
	}

	var farm models.Farm
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Workers").
		First(&farm, "id = ?", farmID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("farm")
		}
		return nil, err
	}

	return &farm, nil
}

func (s *FarmHandler) ListFarms(ctx context.Context, actor access.Actor, page, pageSize int) ([]models.Farm, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Farm{}).Scopes(access.FarmScope(actor))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize = normalizePage(page, pageSize)
	var farms []models.Farm
	err := query.Preload("Owner").
		Order("farms.created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&farms).Error
	if err != nil {
		return nil, 0, err
	}

	return farms, total, nil
}

// AddWorker attaches a worker account to the farm. Only the owner (or an
// admin) manages the roster.
func (s *FarmHandler) AddWorker(ctx context.Context, actor access.Actor, farmID, userID uuid.UUID) error {
	if err := access.RequireOwner(s.db.WithContext(ctx), actor, farmID); err != nil {
		return err
	}

	farm, err := s.fetchFarm(ctx, farmID)
	if err != nil {
		return err
	}

	var worker models.User
	if err := s.db.WithContext(ctx).First(&worker, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound("user")
		}
		return err
	}
	if worker.ID == farm.OwnerID {
		return apperr.Validation("owner is already on the farm")
	}

	if err := s.db.WithContext(ctx).Model(farm).Association("Workers").Append(&worker); err != nil {
		return err
	}

	s.invalidateFarmCaches(ctx, farm.ID)
	return nil
}

func (s *FarmHandler) RemoveWorker(ctx context.Context, actor access.Actor, farmID, userID uuid.UUID) error {
	if err := access.RequireOwner(s.db.WithContext(ctx), actor, farmID); err != nil {
		return err
	}

	farm, err := s.fetchFarm(ctx, farmID)
	if err != nil {
		return err
	}

	worker := models.User{ID: userID}
	if err := s.db.WithContext(ctx).Model(farm).Association("Workers").Delete(&worker); err != nil {
		return err
	}

	s.invalidateFarmCaches(ctx, farm.ID)
	return nil
}

// -- Batches --

type CreateBatchRequest struct {
	FarmID       uuid.UUID  `json:"farm_id" binding:"required"`
	Name         string     `json:"name" binding:"required"`
	Breed        string     `json:"breed"`
	StartDate    time.Time  `json:"start_date" binding:"required"`
	EndDate      *time.Time `json:"end_date"`
	InitialCount int        `json:"initial_count"`
	Notes        *string    `json:"notes"`
}

func (s *FarmHandler) CreateBatch(ctx context.Context, actor access.Actor, req CreateBatchRequest) (*models.Batch, error) {
	if err := access.RequireFarm(s.db.WithContext(ctx), actor, req.FarmID); err != nil {
		return nil, err
	}
	if req.InitialCount < 0 {
		return nil, apperr.Validation("initial count cannot be negative")
	}

	batch := models.Batch{
		FarmID:       req.FarmID,
		Name:         req.Name,
		Breed:        req.Breed,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		InitialCount: req.InitialCount,
		CurrentCount: req.InitialCount,
		Status:       models.BatchStatusPlanned,
		Notes:        req.Notes,
	}

	if err := s.db.WithContext(ctx).Create(&batch).Error; err != nil {
		return nil, err
	}

	return &batch, nil
}

type UpdateBatchRequest struct {
	Name         *string    `json:"name"`
	Breed        *string    `json:"breed"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	CurrentCount *int       `json:"current_count"`
	Notes        *string    `json:"notes"`
}

func (s *FarmHandler) UpdateBatch(ctx context.Context, actor access.Actor, batchID uuid.UUID, req UpdateBatchRequest) (*models.Batch, error) {
	batch, err := s.fetchBatch(ctx, actor, batchID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		batch.Name = *req.Name
	}
	if req.Breed != nil {
		batch.Breed = *req.Breed
	}
	if req.StartDate != nil {
		batch.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		batch.EndDate = req.EndDate
	}
	if req.CurrentCount != nil {
		if *req.CurrentCount < 0 {
			return nil, apperr.Validation("current count cannot be negative")
		}
		batch.CurrentCount = *req.CurrentCount
	}
	if req.Notes != nil {
		batch.Notes = req.Notes
	}

	if err := s.db.WithContext(ctx).Save(batch).Error; err != nil {
		return nil, err
	}

	return batch, nil
}

// UpdateBatchStatus moves a batch through its lifecycle. A completion or
// cancellation note is appended to the batch notes with a timestamp.
func (s *FarmHandler) UpdateBatchStatus(ctx context.Context, actor access.Actor, batchID uuid.UUID, status string, note string) (*models.Batch, error) {
	switch status {
	case models.BatchStatusPlanned, models.BatchStatusActive,
		models.BatchStatusCompleted, models.BatchStatusCancelled:
	default:
		return nil, apperr.Validation("unknown batch status %q", status)
	}

	batch, err := s.fetchBatch(ctx, actor, batchID)
	if err != nil {
		return nil, err
	}

	batch.Status = status
	if status == models.BatchStatusCompleted || status == models.BatchStatusCancelled {
		now := time.Now()
		if batch.EndDate == nil {
			batch.EndDate = &now
		}
		if note != "" {
			stamped := fmt.Sprintf("[%s] %s", now.Format("2006-01-02"), note)
			if batch.Notes != nil && *batch.Notes != "" {
				stamped = *batch.Notes + "\n" + stamped
			}
			batch.Notes = &stamped
		}
	}

	if err := s.db.WithContext(ctx).Save(batch).Error; err != nil {
		return nil, err
	}

	return batch, nil
}

func (s *FarmHandler) GetBatch(ctx context.Context, actor access.Actor, batchID uuid.UUID) (*models.Batch, error) {
	return s.fetchBatch(ctx, actor, batchID)
}

type ListBatchesFilter struct {
	FarmID   *uuid.UUID
	Status   string
	Page     int
	PageSize int
}

func (s *FarmHandler) ListBatches(ctx context.Context, actor access.Actor, filter ListBatchesFilter) ([]models.Batch, int64, error) {
	farmIDs, err := access.FarmIDs(s.db.WithContext(ctx), actor)
	if err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.Batch{})
	if farmIDs != nil {
		query = query.Where("farm_id IN ?", farmIDs)
	}
	if filter.FarmID != nil {
		query = query.Where("farm_id = ?", *filter.FarmID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var batches []models.Batch
	err = query.Order("start_date DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&batches).Error
	if err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}

// -- Internals --

func (s *FarmHandler) fetchFarm(ctx context.Context, farmID uuid.UUID) (*models.Farm, error) {
	var farm models.Farm
	if err := s.db.WithContext(ctx).First(&farm, "id = ?", farmID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("farm")
		}
		return nil, err
	}
	return &farm, nil
}

func (s *FarmHandler) fetchBatch(ctx context.Context, actor access.Actor, batchID uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	if err := s.db.WithContext(ctx).First(&batch, "id = ?", batchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("batch")
		}
		return nil, err
	}
	if err := access.RequireFarm(s.db.WithContext(ctx), actor, batch.FarmID); err != nil {
		return nil, err
	}
	return &batch, nil
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
