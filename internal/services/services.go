package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/annonest-api/internal/access"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/metadata"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/workflow"
	"gorm.io/gorm"
)

// Clock returns the current time. Services take one so expiry logic can be
// tested without sleeping.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Actor is the authenticated user performing an operation. Every operation
// is scoped to the actor's organization.
type Actor struct {
	UserID         uint64
	OrganizationID uint64
	Name           string
	Role           access.Role
}

// ActorFrom builds an Actor from a loaded user.
func ActorFrom(u *models.User) Actor {
	return Actor{
		UserID:         u.ID,
		OrganizationID: u.OrganizationID,
		Name:           u.Name,
		Role:           u.Role,
	}
}

// ManagerTier reports whether the actor may assign work and approve reviews.
func (a Actor) ManagerTier() bool {
	return access.CanManageUsers(a.Role)
}

func (a Actor) caller() workflow.Caller {
	return workflow.Caller{UserID: a.UserID, ManagerTier: a.ManagerTier()}
}

var (
	ErrManagerRequired   = apierrors.Coded(apierrors.KindAuthorization, apierrors.ErrCodeInsufficientPermissions, "manager role required")
	ErrNotAssignee       = apierrors.Coded(apierrors.KindAuthorization, apierrors.ErrCodeNotAssignee, "only the assignee can perform this action")
	ErrInvalidTransition = apierrors.Coded(apierrors.KindConflict, apierrors.ErrCodeInvalidTransition, "item is not in a state that allows this action")
	ErrAlreadyClaimed    = apierrors.Coded(apierrors.KindConflict, apierrors.ErrCodeAlreadyClaimed, "item has already been claimed")
	ErrConcurrentUpdate  = apierrors.Conflict("item was modified by another request, refresh and retry")
	ErrUnknownAction     = apierrors.Coded(apierrors.KindValidation, apierrors.ErrCodeInvalidOperation, "unknown action")
)

// transitionError maps workflow sentinels to API errors.
func transitionError(err error) error {
	switch {
	case errors.Is(err, workflow.ErrNotAssignee):
		return ErrNotAssignee
	case errors.Is(err, workflow.ErrManagerRequired):
		return ErrManagerRequired
	case errors.Is(err, workflow.ErrAlreadyAssigned):
		return ErrAlreadyClaimed
	case errors.Is(err, workflow.ErrInvalidTransition):
		return ErrInvalidTransition
	case errors.Is(err, workflow.ErrUnknownAction):
		return ErrUnknownAction
	default:
		return err
	}
}

// invalidStatus lists the statuses a filter may use for items of kind k.
func invalidStatus(k workflow.Kind) error {
	return ErrInvalidStatus.WithDetails(map[string]interface{}{
		"allowed": workflow.Statuses(k),
	})
}

// metadataError maps payload validation failures to a validation error that
// keeps the underlying message.
func metadataError(err error) error {
	switch {
	case errors.Is(err, metadata.ErrInvalidPayload),
		errors.Is(err, metadata.ErrIncompleteReview),
		errors.Is(err, metadata.ErrUnknownCategory):
		return apierrors.Validation(err.Error())
	default:
		return err
	}
}

// notFound converts gorm.ErrRecordNotFound into target and wraps anything
// else as an infrastructure failure.
func notFound(err error, target *apierrors.APIError, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
