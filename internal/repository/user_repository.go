package repository

import (
	"errors"
	"fmt"

	"github.com/yukikurage/annonest-api/internal/database"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/utils"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

var (
	// ErrCreateUser is returned when creating a user fails inside the signup transaction.
	ErrCreateUser = errors.New("user repository: create user failed")
	// ErrCreateOrganization is returned when creating an organization fails inside the signup transaction.
	ErrCreateOrganization = errors.New("user repository: create organization failed")
)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// CreateWithOrganization creates the organization first so the user row can
// reference it, all inside one transaction.
func (r *GormUserRepository) CreateWithOrganization(user *models.User, org *models.Organization) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateOrganization, err)
		}

		user.OrganizationID = org.ID
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateUser, err)
		}

		return nil
	})
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindInOrganization finds a user by ID within one organization
func (r *GormUserRepository) FindInOrganization(orgID, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.Scopes(database.ForOrganization(orgID)).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List lists the members of an organization, newest first
func (r *GormUserRepository) List(filter UserFilter) ([]models.User, int64, error) {
	query := r.db.Model(&models.User{}).Scopes(database.ForOrganization(filter.OrganizationID))

	if filter.ApprovalStatus != nil {
		query = query.Where("approval_status = ?", *filter.ApprovalStatus)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := paginate(query.Order("created_at DESC"), filter.Page, filter.PageSize).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// UpdateFields updates the given columns of a member
func (r *GormUserRepository) UpdateFields(orgID, id uint64, fields map[string]interface{}) error {
	result := r.db.Model(&models.User{}).
		Scopes(database.ForOrganization(orgID)).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete soft deletes a member
func (r *GormUserRepository) Delete(orgID, id uint64) error {
	result := r.db.Scopes(database.ForOrganization(orgID)).Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountApproved counts how many of ids are approved members of the organization
func (r *GormUserRepository) CountApproved(orgID uint64, ids []uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Scopes(database.ForOrganization(orgID)).
		Where("id IN ? AND approval_status = ?", ids, models.ApprovalApproved).
		Count(&count).Error
	return count, err
}

// paginate applies page/pageSize when both are set
func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if page > 0 && pageSize > 0 {
		return query.Scopes(database.Paginate(utils.NewPaginationParams(page, pageSize)))
	}
	return query
}
