package repository

import (
	"time"

	"github.com/yukikurage/annonest-api/internal/database"
	"github.com/yukikurage/annonest-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLockRepository is a GORM implementation of LockRepository
type GormLockRepository struct {
	db *gorm.DB
}

// NewLockRepository creates a new LockRepository
func NewLockRepository(db *gorm.DB) LockRepository {
	return &GormLockRepository{db: db}
}

func lockTarget(orgID uint64, entityType string, entityID uint64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Scopes(database.ForOrganization(orgID)).
			Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	}
}

// Acquire takes or refreshes a lock. The unique index on the target decides
// concurrent inserts: the loser's insert is a no-op and it reads back the
// winner's row.
func (r *GormLockRepository) Acquire(lock *models.EntityEditLock, staleBefore time.Time) (*models.EntityEditLock, bool, error) {
	var current models.EntityEditLock
	target := lockTarget(lock.OrganizationID, lock.EntityType, lock.EntityID)

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(target).
			Where("locked_at <= ?", staleBefore).
			Delete(&models.EntityEditLock{}).Error; err != nil {
			return err
		}

		refreshed := tx.Model(&models.EntityEditLock{}).
			Scopes(target).
			Where("locked_by = ?", lock.LockedBy).
			Updates(map[string]interface{}{
				"locked_at":      lock.LockedAt,
				"locked_by_name": lock.LockedByName,
			})
		if refreshed.Error != nil {
			return refreshed.Error
		}

		if refreshed.RowsAffected == 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(lock).Error; err != nil {
				return err
			}
		}

		return tx.Scopes(target).First(&current).Error
	})
	if err != nil {
		return nil, false, err
	}

	return &current, current.LockedBy == lock.LockedBy, nil
}

// Find returns the lock row for an entity
func (r *GormLockRepository) Find(orgID uint64, entityType string, entityID uint64) (*models.EntityEditLock, error) {
	var lock models.EntityEditLock
	if err := r.db.Scopes(lockTarget(orgID, entityType, entityID)).First(&lock).Error; err != nil {
		return nil, err
	}
	return &lock, nil
}

// Delete removes the lock row for an entity
func (r *GormLockRepository) Delete(orgID uint64, entityType string, entityID uint64) (int64, error) {
	result := r.db.Scopes(lockTarget(orgID, entityType, entityID)).Delete(&models.EntityEditLock{})
	return result.RowsAffected, result.Error
}

// DeleteStale removes every lock taken at or before staleBefore, across tenants
func (r *GormLockRepository) DeleteStale(staleBefore time.Time) (int64, error) {
	result := r.db.Where("locked_at <= ?", staleBefore).Delete(&models.EntityEditLock{})
	return result.RowsAffected, result.Error
}
