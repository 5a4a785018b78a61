package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/yukikurage/annonest-api/internal/access"
	"github.com/yukikurage/annonest-api/internal/constants"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/repository"
	"github.com/yukikurage/annonest-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken           = apierrors.Coded(apierrors.KindConflict, apierrors.ErrCodeAlreadyExists, "email already registered")
	ErrInvalidCredentials   = apierrors.Coded(apierrors.KindUnauthenticated, apierrors.ErrCodeInvalidCredentials, "invalid email or password")
	ErrPasswordTooShort     = apierrors.Validation(fmt.Sprintf("password must be at least %d characters", constants.MinPasswordLength))
	ErrInvalidEmail         = apierrors.Validation("a valid email is required")
	ErrNameRequired         = apierrors.Validation("name is required")
	ErrInvalidInviteCode    = apierrors.Validation("invalid invite code")
	ErrUserNotFound         = apierrors.Unauthenticated("user no longer exists")
	ErrApprovalPending      = apierrors.Coded(apierrors.KindAuthorization, apierrors.ErrCodeApprovalPending, "account is awaiting approval")
	ErrAccountRejected      = apierrors.Coded(apierrors.KindAuthorization, apierrors.ErrCodeForbidden, "account was not approved")
	ErrTrialExpired         = apierrors.Coded(apierrors.KindAuthorization, apierrors.ErrCodeTrialExpired, "trial period has ended")
	ErrFailedToCreateOrg    = errors.New("failed to create organization")
	ErrFailedToCreateUser   = errors.New("failed to create user")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo  repository.UserRepository
	orgRepo   repository.OrganizationRepository
	trialDays int
	now       Clock
}

// NewAuthService creates a new AuthService. trialDays <= 0 disables trials
// for invited users.
func NewAuthService(userRepo repository.UserRepository, orgRepo repository.OrganizationRepository, trialDays int, now Clock) *AuthService {
	if now == nil {
		now = SystemClock
	}
	return &AuthService{
		userRepo:  userRepo,
		orgRepo:   orgRepo,
		trialDays: trialDays,
		now:       now,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Email            string
	Password         string
	Name             string
	InviteCode       string
	OrganizationName string
}

// Signup creates a user. Without an invite code the user founds a new
// organization as its approved admin; with one the user joins that
// organization as a pending annotator on a trial.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hashedPassword),
	}

	if code := strings.TrimSpace(input.InviteCode); code != "" {
		return s.joinByInvite(user, code)
	}

	orgName := strings.TrimSpace(input.OrganizationName)
	if orgName == "" {
		orgName = fmt.Sprintf("%s's organization", name)
	}
	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrFailedToCreateOrg
	}
	org := &models.Organization{
		Name:       orgName,
		InviteCode: inviteCode,
	}

	user.Role = access.RoleAdmin
	user.ApprovalStatus = models.ApprovalApproved

	if err := s.userRepo.CreateWithOrganization(user, org); err != nil {
		switch {
		case errors.Is(err, repository.ErrCreateUser):
			return nil, ErrFailedToCreateUser
		case errors.Is(err, repository.ErrCreateOrganization):
			return nil, ErrFailedToCreateOrg
		default:
			return nil, fmt.Errorf("failed to complete signup: %w", err)
		}
	}

	return user, nil
}

func (s *AuthService) joinByInvite(user *models.User, code string) (*models.User, error) {
	org, err := s.orgRepo.FindByInviteCode(code)
	if err != nil {
		return nil, notFound(err, ErrInvalidInviteCode, "find organization by invite code")
	}

	user.OrganizationID = org.ID
	user.Role = access.RoleAnnotator
	user.ApprovalStatus = models.ApprovalPending
	if s.trialDays > 0 {
		ends := s.now().Add(time.Duration(s.trialDays) * 24 * time.Hour)
		user.TrialEndsAt = &ends
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateUser, err)
	}
	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user. Pending
// users may log in; CheckAccess gates everything beyond their own profile.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return nil, notFound(err, ErrInvalidCredentials, "find user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound, "find user")
	}

	return user, nil
}

// CheckAccess reports whether user may use the API beyond their own profile:
// the account must be approved and any trial unexpired.
func (s *AuthService) CheckAccess(user *models.User) error {
	switch user.ApprovalStatus {
	case models.ApprovalApproved:
	case models.ApprovalRejected:
		return ErrAccountRejected
	default:
		return ErrApprovalPending
	}

	if user.TrialExpired(s.now()) {
		return ErrTrialExpired
	}
	return nil
}
