package services

import (
	"time"

	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/models"
)

func (suite *ServiceTestSuite) TestLock_ExclusiveUntilReleased() {
	gp := suite.createGP(suite.org, "Acme Capital")
	ann, other := ActorFrom(suite.annotator), ActorFrom(suite.other)

	holder, err := suite.locks.Acquire(ann, models.EntityTypeGP, gp.ID)
	suite.Require().NoError(err)
	suite.Equal(suite.annotator.ID, holder.LockedBy)
	suite.True(suite.clock.Now().Add(testLockTTL).Equal(holder.ExpiresAt))

	_, err = suite.locks.Acquire(other, models.EntityTypeGP, gp.ID)
	suite.ErrorIs(err, ErrLockHeld)
	suite.Equal(apierrors.KindConflict, apierrors.KindOf(err))
	var apiErr *apierrors.APIError
	suite.Require().ErrorAs(err, &apiErr)
	suite.Equal(suite.annotator.ID, apiErr.Details.(LockHolder).LockedBy)
	suite.Contains(apiErr.Message, suite.annotator.Name)

	suite.ErrorIs(suite.locks.Release(other, models.EntityTypeGP, gp.ID), ErrNotLockOwner)

	suite.Require().NoError(suite.locks.Release(ann, models.EntityTypeGP, gp.ID))
	suite.ErrorIs(suite.locks.Release(ann, models.EntityTypeGP, gp.ID), ErrLockNotFound)

	holder, err = suite.locks.Acquire(other, models.EntityTypeGP, gp.ID)
	suite.Require().NoError(err)
	suite.Equal(suite.other.ID, holder.LockedBy)
}

func (suite *ServiceTestSuite) TestLock_ReacquireRefreshes() {
	gp := suite.createGP(suite.org, "Acme Capital")
	ann := ActorFrom(suite.annotator)

	_, err := suite.locks.Acquire(ann, models.EntityTypeGP, gp.ID)
	suite.Require().NoError(err)

	suite.clock.Advance(7 * time.Minute)
	holder, err := suite.locks.Acquire(ann, models.EntityTypeGP, gp.ID)
	suite.Require().NoError(err)
	suite.True(suite.clock.Now().Equal(holder.LockedAt))

	// past the original expiry but inside the refreshed one
	suite.clock.Advance(5 * time.Minute)
	_, err = suite.locks.Acquire(ActorFrom(suite.other), models.EntityTypeGP, gp.ID)
	suite.ErrorIs(err, ErrLockHeld)
}

func (suite *ServiceTestSuite) TestLock_ExpiredLockIsTakenOver() {
	gp := suite.createGP(suite.org, "Acme Capital")
	ann, other := ActorFrom(suite.annotator), ActorFrom(suite.other)

	_, err := suite.locks.Acquire(ann, models.EntityTypeGP, gp.ID)
	suite.Require().NoError(err)

	suite.clock.Advance(testLockTTL - time.Second)
	holder, err := suite.locks.Get(other, models.EntityTypeGP, gp.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(holder)

	suite.clock.Advance(time.Second)
	holder, err = suite.locks.Get(other, models.EntityTypeGP, gp.ID)
	suite.Require().NoError(err)
	suite.Nil(holder)

	// an expired foreign lock reads as absent to everyone but its holder
	suite.ErrorIs(suite.locks.Release(other, models.EntityTypeGP, gp.ID), ErrLockNotFound)

	holder, err = suite.locks.Acquire(other, models.EntityTypeGP, gp.ID)
	suite.Require().NoError(err)
	suite.Equal(suite.other.ID, holder.LockedBy)
}

func (suite *ServiceTestSuite) TestLock_ManagerCanBreakLiveLock() {
	gp := suite.createGP(suite.org, "Acme Capital")

	_, err := suite.locks.Acquire(ActorFrom(suite.annotator), models.EntityTypeGP, gp.ID)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.locks.Release(ActorFrom(suite.manager), models.EntityTypeGP, gp.ID))

	holder, err := suite.locks.Get(ActorFrom(suite.annotator), models.EntityTypeGP, gp.ID)
	suite.Require().NoError(err)
	suite.Nil(holder)
}

func (suite *ServiceTestSuite) TestLock_RequiresEntityInOrganization() {
	foreign := suite.createGP(suite.otherOrg, "Rival Capital")

	_, err := suite.locks.Acquire(ActorFrom(suite.annotator), models.EntityTypeGP, foreign.ID)
	suite.ErrorIs(err, ErrEntityNotFound)

	_, err = suite.locks.Acquire(ActorFrom(suite.annotator), "investor", foreign.ID)
	suite.ErrorIs(err, ErrInvalidEntityType)
}

func (suite *ServiceTestSuite) TestLock_Sweep() {
	first := suite.createGP(suite.org, "First")
	second := suite.createGP(suite.org, "Second")

	_, err := suite.locks.Acquire(ActorFrom(suite.annotator), models.EntityTypeGP, first.ID)
	suite.Require().NoError(err)
	suite.clock.Advance(testLockTTL / 2)
	_, err = suite.locks.Acquire(ActorFrom(suite.other), models.EntityTypeGP, second.ID)
	suite.Require().NoError(err)

	suite.clock.Advance(testLockTTL / 2)
	removed, err := suite.locks.Sweep()
	suite.Require().NoError(err)
	suite.Equal(int64(1), removed)

	holder, err := suite.locks.Get(ActorFrom(suite.manager), models.EntityTypeGP, second.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(holder)
	suite.Equal(suite.other.ID, holder.LockedBy)
}

func (suite *ServiceTestSuite) TestEntityUpdate_HonorsForeignLock() {
	created, err := suite.entities.Create(ActorFrom(suite.annotator), models.EntityTypeGP, []byte(`{"name":"  Acme Capital ","headquarters":"Boston"}`))
	suite.Require().NoError(err)
	id := created.Base().ID
	suite.Equal("Acme Capital", created.Base().Name)
	suite.Equal(suite.org.ID, created.Base().OrganizationID)

	_, err = suite.locks.Acquire(ActorFrom(suite.other), models.EntityTypeGP, id)
	suite.Require().NoError(err)

	_, err = suite.entities.Update(ActorFrom(suite.annotator), models.EntityTypeGP, id, []byte(`{"headquarters":"NYC"}`))
	suite.ErrorIs(err, ErrLockHeld)
	suite.ErrorIs(suite.entities.Delete(ActorFrom(suite.manager), models.EntityTypeGP, id), ErrLockHeld)

	// the holder edits freely
	updated, err := suite.entities.Update(ActorFrom(suite.other), models.EntityTypeGP, id, []byte(`{"headquarters":"NYC"}`))
	suite.Require().NoError(err)
	suite.Equal("NYC", updated.(*models.GP).Headquarters)
	suite.Equal("Acme Capital", updated.Base().Name)
	suite.Require().NotNil(updated.Base().LastUpdatedBy)
	suite.Equal(suite.other.ID, *updated.Base().LastUpdatedBy)

	suite.clock.Advance(testLockTTL)
	_, err = suite.entities.Update(ActorFrom(suite.annotator), models.EntityTypeGP, id, []byte(`{"headquarters":"London"}`))
	suite.NoError(err)
}

func (suite *ServiceTestSuite) TestEntityUpdate_KeepsProtectedColumns() {
	created, err := suite.entities.Create(ActorFrom(suite.annotator), models.EntityTypeGP, []byte(`{"name":"Acme Capital","organization_id":999}`))
	suite.Require().NoError(err)
	suite.Equal(suite.org.ID, created.Base().OrganizationID)

	updated, err := suite.entities.Update(ActorFrom(suite.annotator), models.EntityTypeGP, created.Base().ID,
		[]byte(`{"id":12345,"organization_id":999}`))
	suite.Require().NoError(err)
	suite.Equal(created.Base().ID, updated.Base().ID)
	suite.Equal(suite.org.ID, updated.Base().OrganizationID)

	_, err = suite.entities.Update(ActorFrom(suite.annotator), models.EntityTypeGP, created.Base().ID, []byte(`{"colour":"red"}`))
	suite.Equal(apierrors.KindValidation, apierrors.KindOf(err))

	_, err = suite.entities.Update(ActorFrom(suite.annotator), models.EntityTypeGP, created.Base().ID, []byte(`{"name":"  "}`))
	suite.ErrorIs(err, ErrEntityNameRequired)
}

func (suite *ServiceTestSuite) TestEntity_TenantScopedAndManagerDelete() {
	foreign := suite.createGP(suite.otherOrg, "Rival Capital")
	_, err := suite.entities.Get(ActorFrom(suite.annotator), models.EntityTypeGP, foreign.ID)
	suite.ErrorIs(err, ErrEntityNotFound)

	own := suite.createGP(suite.org, "Acme Capital")
	suite.ErrorIs(suite.entities.Delete(ActorFrom(suite.annotator), models.EntityTypeGP, own.ID), ErrManagerRequired)
	suite.Require().NoError(suite.entities.Delete(ActorFrom(suite.manager), models.EntityTypeGP, own.ID))

	entities, total, err := suite.entities.List(ActorFrom(suite.annotator), ListEntitiesInput{EntityType: models.EntityTypeGP})
	suite.Require().NoError(err)
	suite.Zero(total)
	suite.Empty(entities)
}

func (suite *ServiceTestSuite) TestRelationships() {
	gp := suite.createGP(suite.org, "Acme Capital")
	fund, err := suite.entities.Create(ActorFrom(suite.manager), models.EntityTypeFund, []byte(`{"name":"Acme Fund IV"}`))
	suite.Require().NoError(err)

	gpRef := EntityRef{EntityType: models.EntityTypeGP, EntityID: gp.ID}
	fundRef := EntityRef{EntityType: models.EntityTypeFund, EntityID: fund.Base().ID}

	_, err = suite.relationships.Create(ActorFrom(suite.manager), CreateRelationshipInput{From: gpRef, To: gpRef, RelationshipType: "manages"})
	suite.ErrorIs(err, ErrSelfRelationship)

	_, err = suite.relationships.Create(ActorFrom(suite.manager), CreateRelationshipInput{From: gpRef, To: fundRef})
	suite.ErrorIs(err, ErrRelationshipTypeRequired)

	foreign := suite.createGP(suite.otherOrg, "Rival Capital")
	_, err = suite.relationships.Create(ActorFrom(suite.manager), CreateRelationshipInput{
		From:             gpRef,
		To:               EntityRef{EntityType: models.EntityTypeGP, EntityID: foreign.ID},
		RelationshipType: "co_invests",
	})
	suite.ErrorIs(err, ErrEntityNotFound)

	rel, err := suite.relationships.Create(ActorFrom(suite.manager), CreateRelationshipInput{From: gpRef, To: fundRef, RelationshipType: " Manages "})
	suite.Require().NoError(err)
	suite.Equal("manages", rel.RelationshipType)

	rels, total, err := suite.relationships.List(ActorFrom(suite.annotator), &fundRef, 1, 20)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(rel.ID, rels[0].ID)

	_, total, err = suite.relationships.List(ActorFrom(suite.outsider), nil, 1, 20)
	suite.Require().NoError(err)
	suite.Zero(total)

	suite.ErrorIs(suite.relationships.Delete(ActorFrom(suite.outsider), rel.ID), ErrRelationshipNotFound)
	suite.NoError(suite.relationships.Delete(ActorFrom(suite.manager), rel.ID))
}
