// Package access is the capability layer: every service call receives an
// Actor and asks this package which rows the actor may see or mutate,
// instead of reapplying an implicit role filter per query.
package access

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"kukuyard-system/internal/apperr"
	"kukuyard-system/internal/database/models"
)

type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// FarmScope narrows a query over farms to those the actor owns or works on.
// Admins see everything.
func FarmScope(actor Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if actor.IsAdmin() {
			return db
		}
		return db.
			Joins("LEFT JOIN farm_workers ON farm_workers.farm_id = farms.id").
			Where("farms.owner_id = ? OR farm_workers.user_id = ?", actor.ID, actor.ID).
			Distinct()
	}
}

// FarmIDs resolves the set of farm IDs visible to the actor. A nil slice
// means unrestricted (admin).
func FarmIDs(db *gorm.DB, actor Actor) ([]uuid.UUID, error) {
	if actor.IsAdmin() {
		return nil, nil
	}
	var ids []uuid.UUID
	err := db.Model(&models.Farm{}).
		Scopes(FarmScope(actor)).
		Pluck("farms.id", &ids).Error
	return ids, err
}

// CanAccessFarm reports whether the actor may read or mutate resources
// belonging to the farm.
func CanAccessFarm(db *gorm.DB, actor Actor, farmID uuid.UUID) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	var count int64
	err := db.Model(&models.Farm{}).
		Scopes(FarmScope(actor)).
		Where("farms.id = ?", farmID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RequireFarm is CanAccessFarm with the failure mapped to a typed error.
func RequireFarm(db *gorm.DB, actor Actor, farmID uuid.UUID) error {
	ok, err := CanAccessFarm(db, actor, farmID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("no access to farm %s", farmID)
	}
	return nil
}

// RequireOwner restricts an operation to the farm owner (or an admin).
func RequireOwner(db *gorm.DB, actor Actor, farmID uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	var count int64
	err := db.Model(&models.Farm{}).
		Where("id = ? AND owner_id = ?", farmID, actor.ID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return apperr.Forbidden("only the farm owner may do this")
	}
	return nil
}
