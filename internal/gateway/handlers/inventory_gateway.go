package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryhandler "kukuyard-system/internal/services/inventory/handler"
)

type InventoryHTTPHandler struct {
	inventory *inventoryhandler.InventoryHandler
}

func NewInventoryHTTPHandler(inventory *inventoryhandler.InventoryHandler) *InventoryHTTPHandler {
	return &InventoryHTTPHandler{
		inventory: inventory,
	}
}

// --- Categories ---

func (h *InventoryHTTPHandler) CreateCategory(c *gin.Context) {
	var req inventoryhandler.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	category, err := h.inventory.CreateCategory(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Category created successfully", category))
}

func (h *InventoryHTTPHandler) ListCategories(c *gin.Context) {
	categories, err := h.inventory.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Categories retrieved successfully", categories))
}

// --- Items ---

func (h *InventoryHTTPHandler) CreateItem(c *gin.Context) {
	var req inventoryhandler.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	item, err := h.inventory.CreateItem(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Item created successfully", item))
}

func (h *InventoryHTTPHandler) GetItem(c *gin.Context) {
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	item, err := h.inventory.GetItem(c.Request.Context(), actorFrom(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Item retrieved successfully", item))
}

func (h *InventoryHTTPHandler) UpdateItem(c *gin.Context) {
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req inventoryhandler.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	item, err := h.inventory.UpdateItem(c.Request.Context(), actorFrom(c), itemID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Item updated successfully", item))
}

type ListItemsQuery struct {
	Page       int        `form:"page,default=1"`
	PageSize   int        `form:"page_size,default=20"`
	FarmID     *uuid.UUID `form:"farm_id"`
	CategoryID *uuid.UUID `form:"category_id"`
	LowStock   bool       `form:"low_stock"`
	Search     string     `form:"search"`
}

func (h *InventoryHTTPHandler) ListItems(c *gin.Context) {
	var query ListItemsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	items, total, err := h.inventory.ListItems(c.Request.Context(), actorFrom(c), inventoryhandler.ListItemsFilter{
		FarmID:     query.FarmID,
		CategoryID: query.CategoryID,
		LowStock:   query.LowStock,
		SearchTerm: query.Search,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Items retrieved successfully", items, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	}))
}

// --- Transactions ---

func (h *InventoryHTTPHandler) ApplyTransaction(c *gin.Context) {
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req inventoryhandler.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	transaction, err := h.inventory.ApplyTransaction(c.Request.Context(), actorFrom(c), itemID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Transaction recorded successfully", transaction))
}

func (h *InventoryHTTPHandler) AddStock(c *gin.Context) {
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req inventoryhandler.StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	transaction, err := h.inventory.AddStock(c.Request.Context(), actorFrom(c), itemID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Stock added successfully", transaction))
}

func (h *InventoryHTTPHandler) RemoveStock(c *gin.Context) {
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req inventoryhandler.StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	transaction, err := h.inventory.RemoveStock(c.Request.Context(), actorFrom(c), itemID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Stock removed successfully", transaction))
}

type ListTransactionsQuery struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=20"`
}

func (h *InventoryHTTPHandler) ListTransactions(c *gin.Context) {
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var query ListTransactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	transactions, total, err := h.inventory.ListTransactions(c.Request.Context(), actorFrom(c), itemID, query.Page, query.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Transactions retrieved successfully", transactions, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	}))
}
