package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrLockHeld       = apierrors.Coded(apierrors.KindConflict, apierrors.ErrCodeLockHeld, "entity is being edited by another user")
	ErrLockNotFound   = apierrors.NotFound("lock not found")
	ErrNotLockOwner   = apierrors.Coded(apierrors.KindAuthorization, apierrors.ErrCodeInsufficientPermissions, "only the lock holder or a manager can release this lock")
	ErrEntityNotFound = apierrors.NotFound("entity not found")
)

// LockHolder describes who holds an edit lock and until when.
type LockHolder struct {
	EntityType   string    `json:"entity_type"`
	EntityID     uint64    `json:"entity_id"`
	LockedBy     uint64    `json:"locked_by"`
	LockedByName string    `json:"locked_by_name"`
	LockedAt     time.Time `json:"locked_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LockService manages advisory edit locks on CRM entities. A lock only gates
// edit sessions that check it; it never blocks reads or raw writes.
type LockService struct {
	lockRepo   repository.LockRepository
	entityRepo repository.EntityRepository
	ttl        time.Duration
	now        Clock
}

// NewLockService creates a new LockService with the given lock lifetime.
func NewLockService(lockRepo repository.LockRepository, entityRepo repository.EntityRepository, ttl time.Duration, now Clock) *LockService {
	if now == nil {
		now = SystemClock
	}
	return &LockService{
		lockRepo:   lockRepo,
		entityRepo: entityRepo,
		ttl:        ttl,
		now:        now,
	}
}

// TTL returns the lock lifetime.
func (s *LockService) TTL() time.Duration {
	return s.ttl
}

// Holder converts a lock row into its public description.
func (s *LockService) Holder(lock *models.EntityEditLock) LockHolder {
	return LockHolder{
		EntityType:   lock.EntityType,
		EntityID:     lock.EntityID,
		LockedBy:     lock.LockedBy,
		LockedByName: lock.LockedByName,
		LockedAt:     lock.LockedAt,
		ExpiresAt:    lock.ExpiresAt(s.ttl),
	}
}

func heldError(holder LockHolder) error {
	return ErrLockHeld.
		WithMessage(fmt.Sprintf("locked by %s, try again later", holder.LockedByName)).
		WithDetails(holder)
}

func (s *LockService) ensureEntity(actor Actor, entityType string, entityID uint64) error {
	if !models.ValidEntityType(entityType) {
		return ErrInvalidEntityType
	}
	count, err := s.entityRepo.CountExisting(actor.OrganizationID, entityType, []uint64{entityID})
	if err != nil {
		return fmt.Errorf("failed to find entity: %w", err)
	}
	if count == 0 {
		return ErrEntityNotFound
	}
	return nil
}

// Acquire takes or refreshes the actor's lock on an entity. An unexpired
// lock held by someone else fails with ErrLockHeld carrying the holder.
func (s *LockService) Acquire(actor Actor, entityType string, entityID uint64) (*LockHolder, error) {
	if err := s.ensureEntity(actor, entityType, entityID); err != nil {
		return nil, err
	}

	now := s.now()
	current, acquired, err := s.lockRepo.Acquire(&models.EntityEditLock{
		OrganizationID: actor.OrganizationID,
		EntityType:     entityType,
		EntityID:       entityID,
		LockedBy:       actor.UserID,
		LockedByName:   actor.Name,
		LockedAt:       now,
	}, now.Add(-s.ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return nil, heldError(s.Holder(current))
	}

	holder := s.Holder(current)
	return &holder, nil
}

// Release drops a lock. The holder may always release; anyone else needs
// manager tier, and an expired foreign lock counts as absent.
func (s *LockService) Release(actor Actor, entityType string, entityID uint64) error {
	if !models.ValidEntityType(entityType) {
		return ErrInvalidEntityType
	}

	lock, err := s.lockRepo.Find(actor.OrganizationID, entityType, entityID)
	if err != nil {
		return notFound(err, ErrLockNotFound, "find lock")
	}

	if lock.LockedBy != actor.UserID {
		if lock.Expired(s.now(), s.ttl) {
			return ErrLockNotFound
		}
		if !actor.ManagerTier() {
			return ErrNotLockOwner
		}
	}

	rows, err := s.lockRepo.Delete(actor.OrganizationID, entityType, entityID)
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if rows == 0 {
		return ErrLockNotFound
	}
	return nil
}

// Get returns the live lock on an entity, or nil when there is none or it
// has expired.
func (s *LockService) Get(actor Actor, entityType string, entityID uint64) (*LockHolder, error) {
	if !models.ValidEntityType(entityType) {
		return nil, ErrInvalidEntityType
	}

	lock, err := s.lockRepo.Find(actor.OrganizationID, entityType, entityID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lock: %w", err)
	}
	if lock.Expired(s.now(), s.ttl) {
		return nil, nil
	}

	holder := s.Holder(lock)
	return &holder, nil
}

// CheckEditable fails with ErrLockHeld when another user holds a live lock
// on the entity.
func (s *LockService) CheckEditable(actor Actor, entityType string, entityID uint64) error {
	holder, err := s.Get(actor, entityType, entityID)
	if err != nil {
		return err
	}
	if holder == nil || holder.LockedBy == actor.UserID {
		return nil
	}
	return heldError(*holder)
}

// Sweep deletes every expired lock.
func (s *LockService) Sweep() (int64, error) {
	return s.lockRepo.DeleteStale(s.now().Add(-s.ttl))
}

// Run sweeps expired locks every interval until ctx is cancelled.
func (s *LockService) Run(ctx context.Context, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Dur("ttl", s.ttl).Msg("lock sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("lock sweeper stopped")
			return
		case <-ticker.C:
			removed, err := s.Sweep()
			if err != nil {
				log.Error().Err(err).Msg("lock sweep failed")
				continue
			}
			if removed > 0 {
				log.Debug().Int64("removed", removed).Msg("expired locks removed")
			}
		}
	}
}
