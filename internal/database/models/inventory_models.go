package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InventoryCategory struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:100;not null"`
	Description *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	Items []InventoryItem `gorm:"foreignKey:CategoryID"`
}

func (c *InventoryCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type InventoryItem struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name            string     `gorm:"size:255;not null"`
	Description     *string    `gorm:"type:text"`
	CategoryID      *uuid.UUID `gorm:"type:uuid;index"`
	Category        *InventoryCategory `gorm:"foreignKey:CategoryID"`
	FarmID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	Farm            *Farm      `gorm:"foreignKey:FarmID"`
	CurrentQuantity decimal.Decimal `gorm:"type:numeric(10,2)"`
	Unit            string     `gorm:"size:10"`
	MinimumQuantity decimal.Decimal `gorm:"type:numeric(10,2)"`
	UnitPrice       decimal.Decimal `gorm:"type:numeric(10,2)"`
	ExpiryDate      *time.Time `gorm:"type:date"`
	BatchNumber     *string    `gorm:"size:100"`
	Supplier        *string    `gorm:"size:255"`
	IsActive        bool       `gorm:"default:true"`
	CreatedAt       time.Time  `gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime"`

	Transactions []InventoryTransaction `gorm:"foreignKey:ItemID"`
}

func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// NeedsRestock reports whether the quantity has fallen to the reorder
// threshold.
func (i *InventoryItem) NeedsRestock() bool {
	return i.CurrentQuantity.LessThanOrEqual(i.MinimumQuantity)
}

// InventoryTransaction is an append-only ledger record. Rows are created
// together with the paired item mutation and never updated or deleted.
type InventoryTransaction struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	ItemID          uuid.UUID `gorm:"type:uuid;not null;index"`
	Item            *InventoryItem `gorm:"foreignKey:ItemID"`
	TransactionType string    `gorm:"size:20;not null"`
	Quantity        decimal.Decimal  `gorm:"type:numeric(10,2)"`
	UnitPrice       *decimal.Decimal `gorm:"type:numeric(10,2)"`
	TotalAmount     *decimal.Decimal `gorm:"type:numeric(10,2)"`
	Notes           *string    `gorm:"type:text"`
	Reference       *string    `gorm:"size:100"`
	CreatedByID     *uuid.UUID `gorm:"type:uuid"`
	CreatedBy       *User      `gorm:"foreignKey:CreatedByID"`
	TransactionDate time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (t *InventoryTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
