package services

import (
	"context"
	"strings"
	"sync"

	"github.com/yukikurage/annonest-api/internal/access"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/metadata"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/workflow"
)

func (suite *ServiceTestSuite) TestClaim_ConcurrentClaimsHaveOneWinner() {
	task := suite.newsTask(suite.newsProject())

	claimants := []*models.User{suite.annotator, suite.other, suite.manager, suite.admin}
	errs := make([]error, len(claimants))

	var wg sync.WaitGroup
	for i, u := range claimants {
		wg.Add(1)
		go func(i int, u *models.User) {
			defer wg.Done()
			_, errs[i] = suite.tasks.Claim(ActorFrom(u), task.ID)
		}(i, u)
	}
	wg.Wait()

	var winner *models.User
	for i, err := range errs {
		if err == nil {
			suite.Nil(winner, "more than one claim succeeded")
			winner = claimants[i]
			continue
		}
		suite.ErrorIs(err, ErrAlreadyClaimed)
		suite.Equal(apierrors.KindConflict, apierrors.KindOf(err))
	}
	suite.Require().NotNil(winner)

	stored, err := suite.tasks.GetTask(ActorFrom(suite.manager), task.ID)
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusInProgress, stored.Status)
	suite.Require().NotNil(stored.AssignedTo)
	suite.Equal(winner.ID, *stored.AssignedTo)
}

func (suite *ServiceTestSuite) TestClaim_ReclaimByHolderSucceeds() {
	task := suite.newsTask(suite.newsProject())
	ann := ActorFrom(suite.annotator)

	_, err := suite.tasks.Claim(ann, task.ID)
	suite.Require().NoError(err)

	again, err := suite.tasks.Claim(ann, task.ID)
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusInProgress, again.Status)
}

func (suite *ServiceTestSuite) TestClaim_AssignedPendingTaskIsTaken() {
	task := suite.newsTask(suite.newsProject())
	_, err := suite.tasks.Assign(ActorFrom(suite.manager), task.ID, &suite.other.ID)
	suite.Require().NoError(err)

	_, err = suite.tasks.Claim(ActorFrom(suite.annotator), task.ID)
	suite.ErrorIs(err, ErrAlreadyClaimed)

	// the assignee starts it instead
	started, err := suite.tasks.Start(ActorFrom(suite.other), task.ID)
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusInProgress, started.Status)
}

func (suite *ServiceTestSuite) TestTenantIsolation() {
	task := suite.newsTask(suite.newsProject())
	outsider := ActorFrom(suite.outsider)

	_, err := suite.tasks.GetTask(outsider, task.ID)
	suite.ErrorIs(err, ErrTaskNotFound)
	suite.Equal(apierrors.KindNotFound, apierrors.KindOf(err))

	_, err = suite.tasks.Claim(outsider, task.ID)
	suite.Equal(apierrors.KindNotFound, apierrors.KindOf(err))

	_, err = suite.tasks.Assign(outsider, task.ID, &suite.outsider.ID)
	suite.Equal(apierrors.KindNotFound, apierrors.KindOf(err))

	stored, err := suite.tasks.GetTask(ActorFrom(suite.manager), task.ID)
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusPending, stored.Status)
	suite.Nil(stored.AssignedTo)
}

func (suite *ServiceTestSuite) TestApprove_RequiresManagerTier() {
	task := suite.reviewTask(`{"action_types":["fund_close"]}`)

	_, err := suite.tasks.Approve(ActorFrom(suite.annotator), task.ID)
	suite.ErrorIs(err, ErrManagerRequired)
	suite.Equal(apierrors.KindAuthorization, apierrors.KindOf(err))

	stored, err := suite.tasks.GetTask(ActorFrom(suite.manager), task.ID)
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusReview, stored.Status)

	approved, err := suite.tasks.Approve(ActorFrom(suite.manager), task.ID)
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusCompleted, approved.Status)
}

func (suite *ServiceTestSuite) TestApprove_RequiresActionType() {
	task := suite.reviewTask(`{"notes":"nothing to tag yet"}`)

	_, err := suite.tasks.Approve(ActorFrom(suite.manager), task.ID)
	suite.Equal(apierrors.KindValidation, apierrors.KindOf(err))
	suite.Contains(err.Error(), "action_type")

	rejected, err := suite.tasks.Reject(ActorFrom(suite.manager), task.ID, "tag the close")
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusInProgress, rejected.Status)
	suite.Equal("tag the close", rejected.ReviewNote)

	resubmitted, err := suite.tasks.Submit(ActorFrom(suite.annotator), task.ID, []byte(`{"action_types":["fund_close"]}`))
	suite.Require().NoError(err)
	suite.Empty(resubmitted.ReviewNote)

	approved, err := suite.tasks.Approve(ActorFrom(suite.manager), task.ID)
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusCompleted, approved.Status)

	payload, err := metadata.Decode(metadata.CategoryNewsIntelligence, approved.Metadata)
	suite.Require().NoError(err)
	news := payload.(*metadata.News)
	suite.Equal("Acme closes Fund IV", news.Headline)
	suite.Equal([]string{"fund_close"}, news.ActionTypes)
}

func (suite *ServiceTestSuite) TestApprove_EntityTagsMustExistInOrganization() {
	foreign := suite.createGP(suite.otherOrg, "Rival Capital")
	task := suite.reviewTask(`{"action_types":["fundraise"],"entity_tags":[{"entity_type":"gp","entity_id":` + uintString(foreign.ID) + `}]}`)

	_, err := suite.tasks.Approve(ActorFrom(suite.manager), task.ID)
	suite.ErrorIs(err, ErrUnknownTaggedEntity)

	own := suite.createGP(suite.org, "Acme Capital")
	task = suite.reviewTask(`{"action_types":["fundraise"],"entity_tags":[{"entity_type":"gp","entity_id":` + uintString(own.ID) + `}]}`)
	_, err = suite.tasks.Approve(ActorFrom(suite.manager), task.ID)
	suite.NoError(err)
}

func (suite *ServiceTestSuite) TestSubmit_OnlyAssignee() {
	task := suite.newsTask(suite.newsProject())
	_, err := suite.tasks.Claim(ActorFrom(suite.annotator), task.ID)
	suite.Require().NoError(err)

	_, err = suite.tasks.Submit(ActorFrom(suite.other), task.ID, nil)
	suite.ErrorIs(err, ErrNotAssignee)

	_, err = suite.tasks.Submit(ActorFrom(suite.manager), task.ID, nil)
	suite.ErrorIs(err, ErrNotAssignee)
}

func (suite *ServiceTestSuite) TestSaveProgress() {
	task := suite.newsTask(suite.newsProject())
	ann := ActorFrom(suite.annotator)

	_, err := suite.tasks.SaveProgress(ann, task.ID, []byte(`{"notes":"x"}`))
	suite.ErrorIs(err, ErrNotAssignee)

	_, err = suite.tasks.Claim(ann, task.ID)
	suite.Require().NoError(err)

	saved, err := suite.tasks.SaveProgress(ann, task.ID, []byte(`{"notes":"halfway"}`))
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusInProgress, saved.Status)
	suite.Contains(string(saved.Metadata), "halfway")
	suite.Contains(string(saved.Metadata), "Acme closes Fund IV")

	_, err = suite.tasks.SaveProgress(ann, task.ID, []byte(`{"unknown_field":1}`))
	suite.Equal(apierrors.KindValidation, apierrors.KindOf(err))
}

func (suite *ServiceTestSuite) TestAssign() {
	task := suite.newsTask(suite.newsProject())

	_, err := suite.tasks.Assign(ActorFrom(suite.annotator), task.ID, &suite.other.ID)
	suite.ErrorIs(err, ErrManagerRequired)

	_, err = suite.tasks.Assign(ActorFrom(suite.manager), task.ID, &suite.outsider.ID)
	suite.ErrorIs(err, ErrInvalidAssignee)

	assigned, err := suite.tasks.Assign(ActorFrom(suite.manager), task.ID, &suite.other.ID)
	suite.Require().NoError(err)
	suite.Equal(workflow.StatusPending, assigned.Status)
	suite.Require().NotNil(assigned.AssignedTo)
	suite.Equal(suite.other.ID, *assigned.AssignedTo)

	cleared, err := suite.tasks.Assign(ActorFrom(suite.manager), task.ID, nil)
	suite.Require().NoError(err)
	suite.Nil(cleared.AssignedTo)
}

const uploadHeader = "headline,url,source_name,publish_date,raw_text,article_state\n"

func (suite *ServiceTestSuite) countTasks() int64 {
	var count int64
	suite.db.Model(&models.AnnotationTask{}).Count(&count)
	return count
}

func (suite *ServiceTestSuite) TestBulkCreate_FanOut() {
	project := suite.newsProject()
	upload := uploadHeader +
		"A,https://n/1,Wire,2024-01-01,one,\n" +
		"B,https://n/2,Wire,2024-01-01,two,pending\n" +
		"C,https://n/3,Wire,2024-01-01,three,not_relevant\n" +
		"broken,row\n"

	result, err := suite.tasks.BulkCreateFromCSV(ActorFrom(suite.manager), project.ID, strings.NewReader(upload),
		[]uint64{suite.annotator.ID, suite.other.ID, suite.annotator.ID})
	suite.Require().NoError(err)
	suite.Equal(6, result.Created)
	suite.Equal(3, result.Articles)
	suite.Equal(1, result.Skipped)
	suite.Equal([]int{5}, result.SkippedLines)

	var pairs []struct {
		AssignedTo uint64
		Metadata   string
	}
	suite.Require().NoError(suite.db.Model(&models.AnnotationTask{}).Select("assigned_to, metadata").Scan(&pairs).Error)
	seen := map[string]bool{}
	for _, p := range pairs {
		key := uintString(p.AssignedTo) + p.Metadata
		suite.False(seen[key], "duplicate (article, assignee) pair")
		seen[key] = true
	}
	suite.Len(seen, 6)
}

func (suite *ServiceTestSuite) TestBulkCreate_NoAssigneesLeavesTasksUnassigned() {
	project := suite.newsProject()
	upload := uploadHeader + "A,https://n/1,Wire,2024-01-01,one,\nB,https://n/2,Wire,2024-01-01,two,\n"

	result, err := suite.tasks.BulkCreateFromCSV(ActorFrom(suite.manager), project.ID, strings.NewReader(upload), nil)
	suite.Require().NoError(err)
	suite.Equal(2, result.Created)

	tasks, total, err := suite.tasks.ListTasks(ActorFrom(suite.annotator), ListTasksInput{ProjectID: &project.ID, Unassigned: true})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	for _, task := range tasks {
		suite.Nil(task.AssignedTo)
		suite.Equal(workflow.StatusPending, task.Status)
	}
}

func (suite *ServiceTestSuite) TestBulkCreate_RejectedBeforeAnyWrite() {
	project := suite.newsProject()
	manager := ActorFrom(suite.manager)

	_, err := suite.tasks.BulkCreateFromCSV(manager, project.ID,
		strings.NewReader("headline,url,source_name,raw_text\nA,https://n/1,Wire,one\n"), nil)
	suite.Equal(apierrors.KindValidation, apierrors.KindOf(err))
	suite.Contains(err.Error(), "publish_date")

	_, err = suite.tasks.BulkCreateFromCSV(manager, project.ID, strings.NewReader(uploadHeader+"only,three,fields\n"), nil)
	suite.Equal(apierrors.KindValidation, apierrors.KindOf(err))

	_, err = suite.tasks.BulkCreateFromCSV(manager, project.ID,
		strings.NewReader(uploadHeader+"A,https://n/1,Wire,2024-01-01,one,\n"), []uint64{suite.outsider.ID})
	suite.ErrorIs(err, ErrInvalidAssignee)

	_, err = suite.tasks.BulkCreateFromCSV(ActorFrom(suite.annotator), project.ID,
		strings.NewReader(uploadHeader+"A,https://n/1,Wire,2024-01-01,one,\n"), nil)
	suite.ErrorIs(err, ErrManagerRequired)

	suite.Equal(int64(0), suite.countTasks())
}

func (suite *ServiceTestSuite) TestBulkCreate_RequiresNewsProject() {
	project, err := suite.projects.CreateAnnotationProject(ActorFrom(suite.manager), CreateProjectInput{
		Name:     "Images",
		Category: metadata.CategoryImage,
	})
	suite.Require().NoError(err)

	_, err = suite.tasks.BulkCreateFromCSV(ActorFrom(suite.manager), project.ID,
		strings.NewReader(uploadHeader+"A,https://n/1,Wire,2024-01-01,one,\n"), nil)
	suite.ErrorIs(err, ErrUploadNotNewsProject)
}

func (suite *ServiceTestSuite) TestListTasks_Mine() {
	project := suite.newsProject()
	first := suite.newsTask(project)
	suite.newsTask(project)

	_, err := suite.tasks.Claim(ActorFrom(suite.annotator), first.ID)
	suite.Require().NoError(err)

	tasks, total, err := suite.tasks.ListTasks(ActorFrom(suite.annotator), ListTasksInput{Mine: true, Page: 1, PageSize: 20})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(first.ID, tasks[0].ID)

	bad := workflow.StatusBlocked
	_, _, err = suite.tasks.ListTasks(ActorFrom(suite.annotator), ListTasksInput{Status: &bad})
	suite.ErrorIs(err, ErrInvalidStatus)
	suite.Contains(err.(*apierrors.APIError).Details, "allowed")
}

func (suite *ServiceTestSuite) TestSuggestTags() {
	task := suite.newsTask(suite.newsProject())

	tags, err := suite.tasks.SuggestTags(context.Background(), ActorFrom(suite.annotator), task.ID)
	suite.Require().NoError(err)
	suite.Equal([]string{"fundraise", "exit"}, tags)

	withoutAI := NewTaskService(nil, nil, nil, nil, nil)
	_, err = withoutAI.SuggestTags(context.Background(), ActorFrom(suite.annotator), task.ID)
	suite.ErrorIs(err, ErrAIServiceNotConfigured)
}

func (suite *ServiceTestSuite) TestCreateTask_ValidatesMetadata() {
	project := suite.newsProject()

	_, err := suite.tasks.CreateTask(ActorFrom(suite.manager), CreateTaskInput{
		ProjectID: project.ID,
		Metadata:  []byte(`{"article_state":"archived"}`),
	})
	suite.Equal(apierrors.KindValidation, apierrors.KindOf(err))

	_, err = suite.tasks.CreateTask(ActorFrom(suite.researcher()), CreateTaskInput{ProjectID: project.ID})
	suite.ErrorIs(err, ErrManagerRequired)
}

func (suite *ServiceTestSuite) researcher() *models.User {
	return suite.createUser(suite.org, "researcher@acme.test", access.RoleResearcher)
}
