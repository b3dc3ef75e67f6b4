package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PlanTypeFree       = "free"
	PlanTypeBasic      = "basic"
	PlanTypePremium    = "premium"
	PlanTypeEnterprise = "enterprise"

	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusPending   = "pending"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

type SubscriptionPlan struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"size:100;not null"`
	PlanType     string    `gorm:"size:20;uniqueIndex"`
	Description  string    `gorm:"type:text"`
	Price        decimal.Decimal `gorm:"type:numeric(10,2)"`
	DurationDays int
	MaxFarms     int
	MaxDevices   int
	Features     StringArray `gorm:"type:jsonb"`
	IsActive     bool        `gorm:"default:true"`
	CreatedAt    time.Time   `gorm:"autoCreateTime"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime"`
}

func (p *SubscriptionPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type Subscription struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	User      *User     `gorm:"foreignKey:UserID"`
	PlanID    uuid.UUID `gorm:"type:uuid;not null"`
	Plan      *SubscriptionPlan `gorm:"foreignKey:PlanID"`
	StartDate time.Time
	EndDate   time.Time
	Status    string    `gorm:"size:20;default:pending"`
	IsActive  bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Payments []Payment `gorm:"foreignKey:SubscriptionID"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *Subscription) IsValid(now time.Time) bool {
	return s.IsActive && s.Status == SubscriptionStatusActive && s.EndDate.After(now)
}

type Payment struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	SubscriptionID uuid.UUID `gorm:"type:uuid;not null;index"`
	Subscription   *Subscription   `gorm:"foreignKey:SubscriptionID"`
	Amount         decimal.Decimal `gorm:"type:numeric(10,2)"`
	PaymentMethod  string          `gorm:"size:20"`
	TransactionID  *string         `gorm:"size:255"`
	Status         string          `gorm:"size:20;default:pending"`
	PaymentDate    *time.Time
	ReceiptNumber  *string   `gorm:"size:100"`
	Notes          *string   `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
