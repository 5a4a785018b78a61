package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DataNest entity type names, as used in URLs, locks, work items and
// relationship edges.
const (
	EntityTypeGP               = "gp"
	EntityTypeLP               = "lp"
	EntityTypeFund             = "fund"
	EntityTypePortfolioCompany = "portfolio_company"
	EntityTypeServiceProvider  = "service_provider"
	EntityTypeContact          = "contact"
	EntityTypeDeal             = "deal"
)

var entityTypes = []string{
	EntityTypeGP, EntityTypeLP, EntityTypeFund, EntityTypePortfolioCompany,
	EntityTypeServiceProvider, EntityTypeContact, EntityTypeDeal,
}

// EntityTypes lists every DataNest entity type.
func EntityTypes() []string {
	return append([]string(nil), entityTypes...)
}

// ValidEntityType reports whether t names a DataNest entity type.
func ValidEntityType(t string) bool {
	for _, v := range entityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Entity is implemented by every DataNest record.
type Entity interface {
	EntityType() string
	Base() *EntityBase
}

// EntityBase carries the columns shared by all DataNest records: tenant,
// provenance and audit fields.
type EntityBase struct {
	ID             uint64                      `gorm:"primarykey" json:"id"`
	OrganizationID uint64                      `gorm:"not null;index" json:"organization_id"`
	Name           string                      `gorm:"type:varchar(255);not null;index" json:"name"`
	Website        string                      `gorm:"type:varchar(512)" json:"website,omitempty"`
	Description    string                      `gorm:"type:text" json:"description,omitempty"`
	SourcesUsed    datatypes.JSONSlice[string] `json:"sources_used"`
	SourceURLs     datatypes.JSONSlice[string] `json:"source_urls"`
	LastUpdatedBy  *uint64                     `json:"last_updated_by"`
	LastUpdatedOn  *time.Time                  `json:"last_updated_on"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	DeletedAt      gorm.DeletedAt              `gorm:"index" json:"-"`
}

func (b *EntityBase) Base() *EntityBase { return b }

// GP is a general partner firm.
type GP struct {
	EntityBase
	Headquarters    string   `gorm:"type:varchar(255)" json:"headquarters,omitempty"`
	AUMMillions     *float64 `json:"aum_millions,omitempty"`
	InvestmentFocus string   `gorm:"type:text" json:"investment_focus,omitempty"`
}

func (*GP) EntityType() string { return EntityTypeGP }

// LP is a limited partner.
type LP struct {
	EntityBase
	LPType       string   `gorm:"type:varchar(80)" json:"lp_type,omitempty"`
	Headquarters string   `gorm:"type:varchar(255)" json:"headquarters,omitempty"`
	AUMMillions  *float64 `json:"aum_millions,omitempty"`
}

func (*LP) EntityType() string { return EntityTypeLP }

// Fund is a fund managed by a GP.
type Fund struct {
	EntityBase
	GPID             *uint64  `gorm:"index" json:"gp_id,omitempty"`
	Vintage          *int     `json:"vintage,omitempty"`
	FundSizeMillions *float64 `json:"fund_size_millions,omitempty"`
	Strategy         string   `gorm:"type:varchar(120)" json:"strategy,omitempty"`
	FundStatus       string   `gorm:"type:varchar(40)" json:"fund_status,omitempty"`
}

func (*Fund) EntityType() string { return EntityTypeFund }

// PortfolioCompany is a company held by one or more funds.
type PortfolioCompany struct {
	EntityBase
	Sector       string  `gorm:"type:varchar(120)" json:"sector,omitempty"`
	Headquarters string  `gorm:"type:varchar(255)" json:"headquarters,omitempty"`
	FoundedYear  *int    `json:"founded_year,omitempty"`
	GPID         *uint64 `gorm:"index" json:"gp_id,omitempty"`
}

func (*PortfolioCompany) EntityType() string { return EntityTypePortfolioCompany }

// ServiceProvider is a law firm, auditor, placement agent and the like.
type ServiceProvider struct {
	EntityBase
	ProviderType string `gorm:"type:varchar(80)" json:"provider_type,omitempty"`
}

func (*ServiceProvider) EntityType() string { return EntityTypeServiceProvider }

// Contact is a person working at one of the other entities.
type Contact struct {
	EntityBase
	Email    string  `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone    string  `gorm:"type:varchar(60)" json:"phone,omitempty"`
	Title    string  `gorm:"type:varchar(120)" json:"title,omitempty"`
	FirmType string  `gorm:"type:varchar(40)" json:"firm_type,omitempty"`
	FirmID   *uint64 `gorm:"index" json:"firm_id,omitempty"`
}

func (*Contact) EntityType() string { return EntityTypeContact }

// Deal is a transaction involving a portfolio company.
type Deal struct {
	EntityBase
	PortfolioCompanyID *uint64  `gorm:"index" json:"portfolio_company_id,omitempty"`
	GPID               *uint64  `gorm:"index" json:"gp_id,omitempty"`
	FundID             *uint64  `gorm:"index" json:"fund_id,omitempty"`
	DealType           string   `gorm:"type:varchar(60)" json:"deal_type,omitempty"`
	AmountMillions     *float64 `json:"amount_millions,omitempty"`
	AnnouncedOn        string   `gorm:"type:varchar(20)" json:"announced_on,omitempty"`
}

func (*Deal) EntityType() string { return EntityTypeDeal }

// Relationship is a typed edge between two DataNest entities.
type Relationship struct {
	ID               uint64         `gorm:"primarykey" json:"id"`
	OrganizationID   uint64         `gorm:"not null;index" json:"organization_id"`
	FromEntityType   string         `gorm:"type:varchar(40);not null;index:idx_relationships_from,priority:1" json:"from_entity_type"`
	FromEntityID     uint64         `gorm:"not null;index:idx_relationships_from,priority:2" json:"from_entity_id"`
	ToEntityType     string         `gorm:"type:varchar(40);not null;index:idx_relationships_to,priority:1" json:"to_entity_type"`
	ToEntityID       uint64         `gorm:"not null;index:idx_relationships_to,priority:2" json:"to_entity_id"`
	RelationshipType string         `gorm:"type:varchar(60);not null" json:"relationship_type"`
	CreatedBy        uint64         `gorm:"not null" json:"created_by"`
	CreatedAt        time.Time      `json:"created_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// NewEntity returns an empty record for entity type t.
func NewEntity(t string) (Entity, bool) {
	switch t {
	case EntityTypeGP:
		return &GP{}, true
	case EntityTypeLP:
		return &LP{}, true
	case EntityTypeFund:
		return &Fund{}, true
	case EntityTypePortfolioCompany:
		return &PortfolioCompany{}, true
	case EntityTypeServiceProvider:
		return &ServiceProvider{}, true
	case EntityTypeContact:
		return &Contact{}, true
	case EntityTypeDeal:
		return &Deal{}, true
	default:
		return nil, false
	}
}

// AllModels lists every table for auto-migration.
func AllModels() []interface{} {
	return []interface{}{
		&Organization{},
		&User{},
		&AnnotationProject{},
		&AnnotationTask{},
		&EntitiesProject{},
		&EntitiesProjectItem{},
		&EntityEditLock{},
		&GP{},
		&LP{},
		&Fund{},
		&PortfolioCompany{},
		&ServiceProvider{},
		&Contact{},
		&Deal{},
		&Relationship{},
	}
}
