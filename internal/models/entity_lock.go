package models

import "time"

// EntityEditLock is an advisory lock on a CRM entity's edit session. It does
// not stop writes that skip the lock check.
type EntityEditLock struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	OrganizationID uint64    `gorm:"not null;uniqueIndex:idx_entity_edit_locks_target,priority:1" json:"organization_id"`
	EntityType     string    `gorm:"type:varchar(40);not null;uniqueIndex:idx_entity_edit_locks_target,priority:2" json:"entity_type"`
	EntityID       uint64    `gorm:"not null;uniqueIndex:idx_entity_edit_locks_target,priority:3" json:"entity_id"`
	LockedBy       uint64    `gorm:"not null" json:"locked_by"`
	LockedByName   string    `gorm:"type:varchar(255)" json:"locked_by_name"`
	LockedAt       time.Time `gorm:"not null;index" json:"locked_at"`
}

// ExpiresAt returns when the lock stops being honored for ttl.
func (l *EntityEditLock) ExpiresAt(ttl time.Duration) time.Time {
	return l.LockedAt.Add(ttl)
}

// Expired reports whether the lock is older than ttl at now.
func (l *EntityEditLock) Expired(now time.Time, ttl time.Duration) bool {
	return !now.Before(l.ExpiresAt(ttl))
}
