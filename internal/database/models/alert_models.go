package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ConditionTemperatureGT = "temperature_gt"
	ConditionTemperatureLT = "temperature_lt"
	ConditionHumidityGT    = "humidity_gt"
	ConditionHumidityLT    = "humidity_lt"
	ConditionFeedLevelLT   = "feed_level_lt"
	ConditionWaterLevelLT  = "water_level_lt"
	ConditionInventoryLow  = "inventory_low"
	ConditionInventoryExp  = "inventory_expired"

	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"

	AlertStatusTriggered    = "triggered"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
	AlertStatusSuppressed   = "suppressed"
)

type AlertRule struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name                string    `gorm:"size:255;not null"`
	Description         *string   `gorm:"type:text"`
	ConditionType       string    `gorm:"size:20;not null"`
	ConditionValue      float64
	Severity            string `gorm:"size:20;default:medium"`
	IsActive            bool   `gorm:"default:true"`
	NotificationMethods StringArray `gorm:"type:jsonb"`
	Recipients          []User      `gorm:"many2many:alert_rule_recipients"`
	FarmID              *uuid.UUID  `gorm:"type:uuid;index"`
	BatchID             *uuid.UUID  `gorm:"type:uuid;index"`
	DeviceID            *uuid.UUID  `gorm:"type:uuid;index"`
	InventoryItemID     *uuid.UUID  `gorm:"type:uuid;index"`
	CooldownMinutes     int         `gorm:"default:60"`
	CreatedAt           time.Time   `gorm:"autoCreateTime"`
	UpdatedAt           time.Time   `gorm:"autoUpdateTime"`
}

func (r *AlertRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Alert is created only by the rule engine (or an explicit test trigger).
// The rule reference never changes after creation; re-triggering a resolved
// alert creates a new row instead of reopening it.
type Alert struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RuleID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	Rule            *AlertRule `gorm:"foreignKey:RuleID"`
	Status          string     `gorm:"size:20;default:triggered;index"`
	Title           string     `gorm:"size:255"`
	Message         string     `gorm:"type:text"`
	Severity        string     `gorm:"size:20"`
	TriggeredValue  float64
	AcknowledgedByID     *uuid.UUID `gorm:"type:uuid"`
	AcknowledgedBy       *User      `gorm:"foreignKey:AcknowledgedByID"`
	AcknowledgedAt       *time.Time
	AcknowledgementNotes *string `gorm:"type:text"`
	ResolvedByID         *uuid.UUID `gorm:"type:uuid"`
	ResolvedBy           *User      `gorm:"foreignKey:ResolvedByID"`
	ResolvedAt           *time.Time
	ResolutionNotes      *string   `gorm:"type:text"`
	CreatedAt            time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
