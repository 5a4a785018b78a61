package services

import (
	"time"

	"github.com/yukikurage/annonest-api/internal/access"
	"github.com/yukikurage/annonest-api/internal/models"
)

func (suite *ServiceTestSuite) TestSignup_WithoutInviteFoundsOrganization() {
	user, err := suite.auth.Signup(SignupInput{
		Email:            " Founder@Example.test ",
		Password:         "password123",
		Name:             "Founder",
		OrganizationName: "Founder Ventures",
	})
	suite.Require().NoError(err)
	suite.Equal("founder@example.test", user.Email)
	suite.Equal(access.RoleAdmin, user.Role)
	suite.Equal(models.ApprovalApproved, user.ApprovalStatus)
	suite.Nil(user.TrialEndsAt)
	suite.NotZero(user.OrganizationID)
	suite.NotEqual("password123", user.PasswordHash)
	suite.NoError(suite.auth.CheckAccess(user))

	org, err := suite.orgs.GetOrganization(ActorFrom(user))
	suite.Require().NoError(err)
	suite.Equal("Founder Ventures", org.Name)
	suite.NotEmpty(org.InviteCode)
}

func (suite *ServiceTestSuite) TestSignup_WithInviteJoinsAsPendingTrial() {
	user, err := suite.auth.Signup(SignupInput{
		Email:      "joiner@acme.test",
		Password:   "password123",
		Name:       "Joiner",
		InviteCode: suite.org.InviteCode,
	})
	suite.Require().NoError(err)
	suite.Equal(suite.org.ID, user.OrganizationID)
	suite.Equal(access.RoleAnnotator, user.Role)
	suite.Equal(models.ApprovalPending, user.ApprovalStatus)
	suite.Require().NotNil(user.TrialEndsAt)
	suite.Equal(suite.clock.Now().Add(14*24*time.Hour), *user.TrialEndsAt)

	suite.ErrorIs(suite.auth.CheckAccess(user), ErrApprovalPending)

	approved, err := suite.orgs.SetApproval(ActorFrom(suite.manager), user.ID, models.ApprovalApproved)
	suite.Require().NoError(err)
	suite.NoError(suite.auth.CheckAccess(approved))

	suite.clock.Advance(15 * 24 * time.Hour)
	suite.ErrorIs(suite.auth.CheckAccess(approved), ErrTrialExpired)
}

func (suite *ServiceTestSuite) TestSignup_Validation() {
	_, err := suite.auth.Signup(SignupInput{Email: "not-an-email", Password: "password123", Name: "X"})
	suite.ErrorIs(err, ErrInvalidEmail)

	_, err = suite.auth.Signup(SignupInput{Email: "x@acme.test", Password: "short", Name: "X"})
	suite.ErrorIs(err, ErrPasswordTooShort)

	_, err = suite.auth.Signup(SignupInput{Email: "x@acme.test", Password: "password123", Name: " "})
	suite.ErrorIs(err, ErrNameRequired)

	_, err = suite.auth.Signup(SignupInput{Email: "x@acme.test", Password: "password123", Name: "X", InviteCode: "NOPE"})
	suite.ErrorIs(err, ErrInvalidInviteCode)

	_, err = suite.auth.Signup(SignupInput{Email: suite.annotator.Email, Password: "password123", Name: "X"})
	suite.ErrorIs(err, ErrEmailTaken)
}

func (suite *ServiceTestSuite) TestLogin() {
	_, err := suite.auth.Signup(SignupInput{Email: "login@example.test", Password: "password123", Name: "Login"})
	suite.Require().NoError(err)

	user, err := suite.auth.Login(LoginInput{Email: "LOGIN@example.test", Password: "password123"})
	suite.Require().NoError(err)
	suite.Equal("Login", user.Name)

	_, err = suite.auth.Login(LoginInput{Email: "login@example.test", Password: "wrong-password"})
	suite.ErrorIs(err, ErrInvalidCredentials)

	_, err = suite.auth.Login(LoginInput{Email: "nobody@example.test", Password: "password123"})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *ServiceTestSuite) TestCheckAccess_Rejected() {
	rejected, err := suite.orgs.SetApproval(ActorFrom(suite.manager), suite.annotator.ID, models.ApprovalRejected)
	suite.Require().NoError(err)
	suite.ErrorIs(suite.auth.CheckAccess(rejected), ErrAccountRejected)
}

func (suite *ServiceTestSuite) TestAssignableRoles() {
	roles, err := suite.orgs.AssignableRoles(ActorFrom(suite.manager))
	suite.Require().NoError(err)
	suite.Equal([]access.Role{access.RoleResearcher, access.RoleQA, access.RoleAnnotator, access.RoleGuest}, roles)

	roles, err = suite.orgs.AssignableRoles(ActorFrom(suite.admin))
	suite.Require().NoError(err)
	suite.Equal(access.RoleManager, roles[0])
	suite.NotContains(roles, access.RoleAdmin)

	_, err = suite.orgs.AssignableRoles(ActorFrom(suite.annotator))
	suite.ErrorIs(err, ErrManagerRequired)
}

func (suite *ServiceTestSuite) TestChangeRole_RankRules() {
	manager, admin := ActorFrom(suite.manager), ActorFrom(suite.admin)

	_, err := suite.orgs.ChangeRole(ActorFrom(suite.annotator), suite.other.ID, access.RoleQA)
	suite.ErrorIs(err, ErrManagerRequired)

	_, err = suite.orgs.ChangeRole(manager, suite.manager.ID, access.RoleAnnotator)
	suite.ErrorIs(err, ErrCannotManageSelf)

	_, err = suite.orgs.ChangeRole(manager, suite.annotator.ID, access.RoleAdmin)
	suite.ErrorIs(err, ErrCannotManageRole)

	_, err = suite.orgs.ChangeRole(manager, suite.admin.ID, access.RoleAnnotator)
	suite.ErrorIs(err, ErrCannotManageRole)

	_, err = suite.orgs.ChangeRole(manager, suite.annotator.ID, access.Role("owner"))
	suite.ErrorIs(err, ErrInvalidRole)

	_, err = suite.orgs.ChangeRole(manager, suite.outsider.ID, access.RoleQA)
	suite.ErrorIs(err, ErrMemberNotFound)

	updated, err := suite.orgs.ChangeRole(manager, suite.annotator.ID, access.RoleQA)
	suite.Require().NoError(err)
	suite.Equal(access.RoleQA, updated.Role)

	updated, err = suite.orgs.ChangeRole(admin, suite.manager.ID, access.RoleResearcher)
	suite.Require().NoError(err)
	suite.Equal(access.RoleResearcher, updated.Role)
}

func (suite *ServiceTestSuite) TestMembers() {
	pending := models.ApprovalPending
	_, err := suite.auth.Signup(SignupInput{Email: "joiner@acme.test", Password: "password123", Name: "Joiner", InviteCode: suite.org.InviteCode})
	suite.Require().NoError(err)

	_, _, err = suite.orgs.ListMembers(ActorFrom(suite.annotator), ListMembersInput{})
	suite.ErrorIs(err, ErrManagerRequired)

	members, total, err := suite.orgs.ListMembers(ActorFrom(suite.manager), ListMembersInput{ApprovalStatus: &pending})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("joiner@acme.test", members[0].Email)

	ends := suite.clock.Now().Add(48 * time.Hour)
	updated, err := suite.orgs.SetTrialEnd(ActorFrom(suite.manager), members[0].ID, &ends)
	suite.Require().NoError(err)
	suite.Require().NotNil(updated.TrialEndsAt)
	suite.True(ends.Equal(*updated.TrialEndsAt))

	suite.Require().NoError(suite.orgs.RemoveMember(ActorFrom(suite.manager), members[0].ID))
	_, total, err = suite.orgs.ListMembers(ActorFrom(suite.manager), ListMembersInput{ApprovalStatus: &pending})
	suite.Require().NoError(err)
	suite.Zero(total)
}

func (suite *ServiceTestSuite) TestOrganizationSettings_AdminOnly() {
	_, err := suite.orgs.UpdateOrganizationName(ActorFrom(suite.manager), "Renamed")
	suite.ErrorIs(err, ErrAdminRequired)

	org, err := suite.orgs.UpdateOrganizationName(ActorFrom(suite.admin), " Renamed ")
	suite.Require().NoError(err)
	suite.Equal("Renamed", org.Name)

	org, err = suite.orgs.RegenerateInviteCode(ActorFrom(suite.admin))
	suite.Require().NoError(err)
	suite.NotEqual(suite.org.InviteCode, org.InviteCode)
}
