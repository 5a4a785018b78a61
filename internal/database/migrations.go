package database

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// tenantIndexes are the composite indexes behind the org-scoped list queries.
var tenantIndexes = []struct {
	table   string
	name    string
	columns string
}{
	// Task queues: project board and "my tasks"
	{"annotation_tasks", "idx_annotation_tasks_org_project_status", "organization_id, project_id, status"},
	{"annotation_tasks", "idx_annotation_tasks_org_assignee_status", "organization_id, assigned_to, status"},

	// DataNest work items
	{"entities_project_items", "idx_entities_items_org_project_status", "organization_id, project_id, task_status"},
	{"entities_project_items", "idx_entities_items_org_entity", "organization_id, entity_type, entity_id"},

	// Entity name search per tenant
	{"gps", "idx_gps_org_name", "organization_id, name"},
	{"lps", "idx_lps_org_name", "organization_id, name"},
	{"funds", "idx_funds_org_name", "organization_id, name"},
	{"portfolio_companies", "idx_portfolio_companies_org_name", "organization_id, name"},
	{"service_providers", "idx_service_providers_org_name", "organization_id, name"},
	{"contacts", "idx_contacts_org_name", "organization_id, name"},
	{"deals", "idx_deals_org_name", "organization_id, name"},

	// Members listing and approval queue
	{"users", "idx_users_org_approval", "organization_id, approval_status"},
}

// AddIndexes creates the composite indexes that are not declared on the
// models. Existing indexes are skipped, so the call is repeatable.
func AddIndexes(db *gorm.DB, log zerolog.Logger) error {
	migrator := db.Migrator()

	for _, idx := range tenantIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.Debug().Str("index", idx.name).Msg("index already exists, skipping")
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info().Str("index", idx.name).Str("table", idx.table).Msg("created index")
	}

	return nil
}
