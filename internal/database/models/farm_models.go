package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Farm struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:255;not null"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Owner       *User     `gorm:"foreignKey:OwnerID"`
	Workers     []User    `gorm:"many2many:farm_workers"`
	Location    string    `gorm:"size:255"`
	Size        decimal.Decimal `gorm:"type:numeric(10,2)"`
	Description *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	Batches []Batch  `gorm:"foreignKey:FarmID"`
	Devices []Device `gorm:"foreignKey:FarmID"`
}

func (f *Farm) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

const (
	BatchStatusPlanned   = "planned"
	BatchStatusActive    = "active"
	BatchStatusCompleted = "completed"
	BatchStatusCancelled = "cancelled"
)

type Batch struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	FarmID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Farm         *Farm     `gorm:"foreignKey:FarmID"`
	Name         string    `gorm:"size:255;not null"`
	Breed        string    `gorm:"size:100"`
	StartDate    time.Time `gorm:"type:date"`
	EndDate      *time.Time `gorm:"type:date"`
	InitialCount int
	CurrentCount int
	Status       string  `gorm:"size:20;default:planned"`
	Notes        *string `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (b *Batch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// AgeDays is the number of whole days since the batch started.
func (b *Batch) AgeDays(now time.Time) int {
	if b.StartDate.IsZero() {
		return 0
	}
	days := int(now.Sub(b.StartDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
