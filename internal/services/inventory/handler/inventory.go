package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kukuyard-system/internal/access"
	"kukuyard-system/internal/apperr"
	"kukuyard-system/internal/database/models"
	"kukuyard-system/internal/services/alerts/engine"
	"kukuyard-system/internal/services/inventory/ledger"
)

const (
	INVENTORY_CACHE_PREFIX         = "inventory:item:"
	INVENTORY_ITEMS_CACHE_KEY      = "inventory:items"
	INVENTORY_CATEGORIES_CACHE_KEY = "inventory:categories"
	INVENTORY_EVENTS_CHANNEL       = "inventory:events"
	CACHE_TTL_SHORT                = 5 * time.Minute
	CACHE_TTL_MEDIUM               = 30 * time.Minute
)

type InventoryHandler struct {
	db     *gorm.DB
	redis  *redis.Client
	engine *engine.Engine
	logger *zap.Logger
}

func NewInventoryHandler(db *gorm.DB, redisClient *redis.Client, alertEngine *engine.Engine, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		db:     db,
		redis:  redisClient,
		engine: alertEngine,
		logger: logger,
	}
}

func (s *InventoryHandler) InvalidateInventoryCaches(ctx context.Context, itemID ...uuid.UUID) {
	_ = s.redis.Del(ctx, INVENTORY_ITEMS_CACHE_KEY, INVENTORY_CATEGORIES_CACHE_KEY)

	for _, id := range itemID {
		cacheKey := fmt.Sprintf("%s%s", INVENTORY_CACHE_PREFIX, id)
		_ = s.redis.Del(ctx, cacheKey)
	}
}

type StockEvent struct {
	EventType string          `json:"event_type"`
	ItemID    uuid.UUID       `json:"item_id"`
	FarmID    uuid.UUID       `json:"farm_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp time.Time       `json:"timestamp"`
}

func (s *InventoryHandler) publishStockEvent(ctx context.Context, event StockEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := s.redis.Publish(ctx, INVENTORY_EVENTS_CHANNEL, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// -- Categories --

type CategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

func (s *InventoryHandler) CreateCategory(ctx context.Context, req CategoryRequest) (*models.InventoryCategory, error) {
	category := models.InventoryCategory{
		Name:        req.Name,
		Description: req.Description,
	}

	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}

	_ = s.redis.Del(ctx, INVENTORY_CATEGORIES_CACHE_KEY)

	return &category, nil
}

func (s *InventoryHandler) ListCategories(ctx context.Context) ([]models.InventoryCategory, error) {
	if cached, err := s.redis.Get(ctx, INVENTORY_CATEGORIES_CACHE_KEY).Result(); err == nil {
		var categories []models.InventoryCategory
		if json.Unmarshal([]byte(cached), &categories) == nil {
			return categories, nil
		}
	}

	var categories []models.InventoryCategory
	if err := s.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}

	if data, err := json.Marshal(categories); err == nil {
		_ = s.redis.Set(ctx, INVENTORY_CATEGORIES_CACHE_KEY, data, CACHE_TTL_MEDIUM)
	}

	return categories, nil
}

// -- Items --

type CreateItemRequest struct {
	Name            string          `json:"name" binding:"required"`
	Description     *string         `json:"description"`
	CategoryID      *uuid.UUID      `json:"category_id"`
	FarmID          uuid.UUID       `json:"farm_id" binding:"required"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	Unit            string          `json:"unit" binding:"required"`
	MinimumQuantity decimal.Decimal `json:"minimum_quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	ExpiryDate      *time.Time      `json:"expiry_date"`
	BatchNumber     *string         `json:"batch_number"`
	Supplier        *string         `json:"supplier"`
}

func (s *InventoryHandler) CreateItem(ctx context.Context, actor access.Actor, req CreateItemRequest) (*models.InventoryItem, error) {
	if err := access.RequireFarm(s.db.WithContext(ctx), actor, req.FarmID); err != nil {
		return nil, err
	}
	if req.CurrentQuantity.Sign() < 0 {
		return nil, apperr.Validation("current quantity cannot be negative")
	}

	item := models.InventoryItem{
		Name:            req.Name,
		Description:     req.Description,
		CategoryID:      req.CategoryID,
		FarmID:          req.FarmID,
		CurrentQuantity: req.CurrentQuantity,
		Unit:            req.Unit,
		MinimumQuantity: req.MinimumQuantity,
		UnitPrice:       req.UnitPrice,
		ExpiryDate:      req.ExpiryDate,
		BatchNumber:     req.BatchNumber,
		Supplier:        req.Supplier,
		IsActive:        true,
	}

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}

	s.InvalidateInventoryCaches(ctx)

	return &item, nil
}

type UpdateItemRequest struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	CategoryID      *uuid.UUID       `json:"category_id"`
	Unit            *string          `json:"unit"`
	MinimumQuantity *decimal.Decimal `json:"minimum_quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	ExpiryDate      *time.Time       `json:"expiry_date"`
	BatchNumber     *string          `json:"batch_number"`
	Supplier        *string          `json:"supplier"`
	IsActive        *bool            `json:"is_active"`
}

// UpdateItem edits descriptive fields. The quantity is deliberately not
// editable here; it only moves through transactions.
func (s *InventoryHandler) UpdateItem(ctx context.Context, actor access.Actor, itemID uuid.UUID, req UpdateItemRequest) (*models.InventoryItem, error) {
	item, err := s.fetchItem(ctx, actor, itemID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.CategoryID != nil {
		item.CategoryID = req.CategoryID
	}
	if req.Unit != nil {
		item.Unit = *req.Unit
	}
	if req.MinimumQuantity != nil {
		item.MinimumQuantity = *req.MinimumQuantity
	}
	if req.UnitPrice != nil {
		item.UnitPrice = *req.UnitPrice
	}
	if req.ExpiryDate != nil {
		item.ExpiryDate = req.ExpiryDate
	}
	if req.BatchNumber != nil {
		item.BatchNumber = req.BatchNumber
	}
	if req.Supplier != nil {
		item.Supplier = req.Supplier
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}

	s.InvalidateInventoryCaches(ctx, item.ID)

	return item, nil
}

func (s *InventoryHandler) GetItem(ctx context.Context, actor access.Actor, itemID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.WithContext(ctx).
		Preload("Category").
		First(&item, "id = ?", itemID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("inventory item")
		}
		return nil, err
	}

	if err := access.RequireFarm(s.db.WithContext(ctx), actor, item.FarmID); err != nil {
		return nil, err
	}

	return &item, nil
}

type ListItemsFilter struct {
	FarmID     *uuid.UUID
	CategoryID *uuid.UUID
	LowStock   bool
	SearchTerm string
	Page       int
	PageSize   int
}

func (s *InventoryHandler) ListItems(ctx context.Context, actor access.Actor, filter ListItemsFilter) ([]models.InventoryItem, int64, error) {
	farmIDs, err := access.FarmIDs(s.db.WithContext(ctx), actor)
	if err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.InventoryItem{}).Preload("Category")
	if farmIDs != nil {
		query = query.Where("farm_id IN ?", farmIDs)
	}
	if filter.FarmID != nil {
		query = query.Where("farm_id = ?", *filter.FarmID)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.LowStock {
		query = query.Where("current_quantity <= minimum_quantity")
	}
	if filter.SearchTerm != "" {
		searchTerm := "%" + filter.SearchTerm + "%"
		query = query.Where("name ILIKE ? OR supplier ILIKE ? OR batch_number ILIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var items []models.InventoryItem
	if err := query.Order("name").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// -- Transactions --

type TransactionRequest struct {
	Type            string           `json:"transaction_type" binding:"required"`
	Quantity        decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	Notes           *string          `json:"notes"`
	Reference       *string          `json:"reference"`
	TransactionDate *time.Time       `json:"transaction_date"`
}

// ApplyTransaction is the single write path for item quantities. The item
// row is locked for the read-modify-write so concurrent transactions against
// one item serialize; the mutation and its ledger record commit or roll back
// together.
func (s *InventoryHandler) ApplyTransaction(ctx context.Context, actor access.Actor, itemID uuid.UUID, req TransactionRequest) (*models.InventoryTransaction, error) {
	if _, err := s.fetchItem(ctx, actor, itemID); err != nil {
		return nil, err
	}

	txType := ledger.Type(req.Type)
	if !txType.Valid() {
		return nil, apperr.Validation("unknown transaction type %q", req.Type)
	}

	var record models.InventoryTransaction

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var locked models.InventoryItem
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&locked, "id = ?", itemID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("inventory item")
		}
		return nil, err
	}

	next, err := ledger.Apply(locked.CurrentQuantity, txType, req.Quantity)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	locked.CurrentQuantity = next
	if txType == ledger.TypePurchase && req.UnitPrice != nil {
		locked.UnitPrice = *req.UnitPrice
	}

	if err := tx.Save(&locked).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	transactionDate := time.Now()
	if req.TransactionDate != nil {
		transactionDate = *req.TransactionDate
	}

	record = models.InventoryTransaction{
		ItemID:          locked.ID,
		TransactionType: string(txType),
		Quantity:        ledger.Magnitude(req.Quantity),
		UnitPrice:       req.UnitPrice,
		TotalAmount:     ledger.TotalAmount(req.Quantity, req.UnitPrice),
		Notes:           req.Notes,
		Reference:       req.Reference,
		CreatedByID:     &actor.ID,
		TransactionDate: transactionDate,
	}

	if err := tx.Create(&record).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.InvalidateInventoryCaches(ctx, locked.ID)

	if err := s.publishStockEvent(ctx, StockEvent{
		EventType: string(txType),
		ItemID:    locked.ID,
		FarmID:    locked.FarmID,
		Quantity:  record.Quantity,
		Timestamp: transactionDate,
	}); err != nil {
		s.logger.Warn("stock event publish failed",
			zap.String("item_id", locked.ID.String()),
			zap.Error(err),
		)
	}

	// Committed state drives the inventory rules; an evaluation failure
	// never unwinds the transaction.
	if _, err := s.engine.EvaluateInventory(ctx, &locked); err != nil {
		s.logger.Error("inventory rule evaluation failed",
			zap.String("item_id", locked.ID.String()),
			zap.Error(err),
		)
	}

	record.Item = &locked
	return &record, nil
}

type StockRequest struct {
	Quantity  decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Notes     *string          `json:"notes"`
	Reference *string          `json:"reference"`
}

// AddStock records a purchase.
func (s *InventoryHandler) AddStock(ctx context.Context, actor access.Actor, itemID uuid.UUID, req StockRequest) (*models.InventoryTransaction, error) {
	return s.ApplyTransaction(ctx, actor, itemID, TransactionRequest{
		Type:      string(ledger.TypePurchase),
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Notes:     req.Notes,
		Reference: req.Reference,
	})
}

// RemoveStock records a usage.
func (s *InventoryHandler) RemoveStock(ctx context.Context, actor access.Actor, itemID uuid.UUID, req StockRequest) (*models.InventoryTransaction, error) {
	return s.ApplyTransaction(ctx, actor, itemID, TransactionRequest{
		Type:      string(ledger.TypeUsage),
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Notes:     req.Notes,
		Reference: req.Reference,
	})
}

func (s *InventoryHandler) ListTransactions(ctx context.Context, actor access.Actor, itemID uuid.UUID, page, pageSize int) ([]models.InventoryTransaction, int64, error) {
	if _, err := s.fetchItem(ctx, actor, itemID); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.InventoryTransaction{}).
		Where("item_id = ?", itemID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize = normalizePage(page, pageSize)
	var transactions []models.InventoryTransaction
	err := query.Preload("CreatedBy").
		Order("transaction_date DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&transactions).Error
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

func (s *InventoryHandler) fetchItem(ctx context.Context, actor access.Actor, itemID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("inventory item")
		}
		return nil, err
	}
	if err := access.RequireFarm(s.db.WithContext(ctx), actor, item.FarmID); err != nil {
		return nil, err
	}
	return &item, nil
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
