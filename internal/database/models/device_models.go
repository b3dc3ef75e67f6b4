package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StringArray []string

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = []string{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan StringArray: %v", value)
	}
	return json.Unmarshal(bytes, a)
}

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

type JSONMap map[string]interface{}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONMap: %v", value)
	}
	return json.Unmarshal(bytes, m)
}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

const (
	DeviceTypeTemperature = "temperature"
	DeviceTypeHumidity    = "humidity"
	DeviceTypeFeed        = "feed"
	DeviceTypeWater       = "water"
	DeviceTypeCamera      = "camera"

	DeviceStatusActive      = "active"
	DeviceStatusInactive    = "inactive"
	DeviceStatusMaintenance = "maintenance"
)

type Device struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name       string     `gorm:"size:255;not null"`
	DeviceType string     `gorm:"size:20"`
	SerialID   string     `gorm:"size:100;uniqueIndex"`
	FarmID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Farm       *Farm      `gorm:"foreignKey:FarmID"`
	BatchID    *uuid.UUID `gorm:"type:uuid;index"`
	Batch      *Batch     `gorm:"foreignKey:BatchID"`
	Status     string     `gorm:"size:20;default:active"`
	LastSeen   *time.Time
	Metadata   JSONMap   `gorm:"type:jsonb"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// SensorReading is immutable once written; the alert engine consumes it
// exactly once, at ingestion.
type SensorReading struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeviceID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Device       *Device   `gorm:"foreignKey:DeviceID"`
	Temperature  *float64
	Humidity     *float64
	FeedLevel    *float64
	WaterLevel   *float64
	BatteryLevel *float64
	ReadingTime  time.Time `gorm:"index"`
	RawData      JSONMap   `gorm:"type:jsonb"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (r *SensorReading) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
