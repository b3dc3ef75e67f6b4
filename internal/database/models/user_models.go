package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin  = "admin"
	RoleFarmer = "farmer"
	RoleWorker = "worker"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	Password       string    `gorm:"not null"`
	FirstName      string
	LastName       string
	PhoneNumber    *string `gorm:"size:20"`
	Role           string  `gorm:"size:20;default:farmer"`
	Address        *string `gorm:"type:text"`
	ProfilePicture *string
	IsActive       bool `gorm:"default:true"`
	LastLogin      *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
