package services

import (
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/workflow"
)

func (suite *ServiceTestSuite) entitiesProject() *models.EntitiesProject {
	project, err := suite.projects.CreateEntitiesProject(ActorFrom(suite.manager), CreateProjectInput{Name: "GP refresh"})
	suite.Require().NoError(err)
	return project
}

func (suite *ServiceTestSuite) TestAddItems() {
	project := suite.entitiesProject()
	gp := suite.createGP(suite.org, "Acme Capital")
	foreign := suite.createGP(suite.otherOrg, "Rival Capital")
	manager := ActorFrom(suite.manager)

	_, err := suite.items.AddItems(manager, project.ID, nil, nil)
	suite.ErrorIs(err, ErrNoItemsProvided)

	_, err = suite.items.AddItems(manager, project.ID, []EntityRef{{EntityType: "investor", EntityID: gp.ID}}, nil)
	suite.ErrorIs(err, ErrInvalidEntityType)

	_, err = suite.items.AddItems(manager, project.ID, []EntityRef{
		{EntityType: models.EntityTypeGP, EntityID: gp.ID},
		{EntityType: models.EntityTypeGP, EntityID: foreign.ID},
	}, nil)
	suite.ErrorIs(err, ErrUnknownEntity)

	_, err = suite.items.AddItems(ActorFrom(suite.annotator), project.ID, []EntityRef{{EntityType: models.EntityTypeGP, EntityID: gp.ID}}, nil)
	suite.ErrorIs(err, ErrManagerRequired)

	items, err := suite.items.AddItems(manager, project.ID, []EntityRef{{EntityType: models.EntityTypeGP, EntityID: gp.ID}}, &suite.annotator.ID)
	suite.Require().NoError(err)
	suite.Require().Len(items, 1)
	suite.Equal(workflow.StatusPending, items[0].TaskStatus)
	suite.Equal(suite.annotator.ID, *items[0].AssignedTo)
}

func (suite *ServiceTestSuite) TestWorkItemLifecycle() {
	project := suite.entitiesProject()
	gp := suite.createGP(suite.org, "Acme Capital")
	items, err := suite.items.AddItems(ActorFrom(suite.manager), project.ID, []EntityRef{{EntityType: models.EntityTypeGP, EntityID: gp.ID}}, nil)
	suite.Require().NoError(err)
	id := items[0].ID

	ann, other := ActorFrom(suite.annotator), ActorFrom(suite.other)

	item, err := suite.items.Claim(ann, id)
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusInProgress, item.TaskStatus)

	_, err = suite.items.Claim(other, id)
	suite.ErrorIs(err, ErrAlreadyClaimed)

	_, err = suite.items.Transition(other, id, workflow.ActionBlock, "")
	suite.ErrorIs(err, ErrNotAssignee)

	item, err = suite.items.Transition(ann, id, workflow.ActionBlock, "website is down")
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusBlocked, item.TaskStatus)
	suite.Equal("website is down", item.Notes)

	item, err = suite.items.Transition(ann, id, workflow.ActionUnblock, "")
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusInProgress, item.TaskStatus)
	suite.Equal("website is down", item.Notes)

	// completion is a manager decision, even for the assignee
	_, err = suite.items.Transition(ann, id, workflow.ActionComplete, "")
	suite.ErrorIs(err, ErrManagerRequired)
	suite.Equal(apierrors.KindAuthorization, apierrors.KindOf(err))

	item, err = suite.items.GetItem(ann, id)
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusInProgress, item.TaskStatus)

	item, err = suite.items.Transition(ActorFrom(suite.manager), id, workflow.ActionComplete, "")
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusCompleted, item.TaskStatus)
	suite.Equal(suite.annotator.ID, *item.AssignedTo)

	_, err = suite.items.Transition(ann, id, workflow.ActionApprove, "")
	suite.ErrorIs(err, ErrUnknownAction)
	var apiErr *apierrors.APIError
	suite.Require().ErrorAs(err, &apiErr)
	suite.Equal(map[string]interface{}{"allowed": workflow.Actions(workflow.KindWorkItem)}, apiErr.Details)

	_, err = suite.items.Transition(ann, id, workflow.ActionBlock, "")
	suite.ErrorIs(err, ErrInvalidTransition)
}

func (suite *ServiceTestSuite) TestWorkItemNotesAndAssign() {
	project := suite.entitiesProject()
	gp := suite.createGP(suite.org, "Acme Capital")
	items, err := suite.items.AddItems(ActorFrom(suite.manager), project.ID, []EntityRef{{EntityType: models.EntityTypeGP, EntityID: gp.ID}}, nil)
	suite.Require().NoError(err)
	id := items[0].ID

	_, err = suite.items.UpdateNotes(ActorFrom(suite.annotator), id, "mine now")
	suite.ErrorIs(err, ErrNotAssignee)

	item, err := suite.items.Assign(ActorFrom(suite.manager), id, &suite.annotator.ID)
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusPending, item.TaskStatus)

	item, err = suite.items.UpdateNotes(ActorFrom(suite.annotator), id, "mine now")
	suite.Require().NoError(err)
	suite.Equal("mine now", item.Notes)

	_, err = suite.items.GetItem(ActorFrom(suite.outsider), id)
	suite.ErrorIs(err, ErrWorkItemNotFound)

	mine, total, err := suite.items.ListItems(ActorFrom(suite.annotator), ListTasksInput{Mine: true})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(id, mine[0].ID)
}
