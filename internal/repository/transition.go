package repository

import (
	"github.com/yukikurage/annonest-api/internal/database"
	"gorm.io/gorm"
)

// applyTransition issues t as a single UPDATE against model. statusColumn is
// the column holding the workflow status. The WHERE clause carries every
// precondition so concurrent callers cannot both succeed.
func applyTransition(db *gorm.DB, model interface{}, statusColumn string, t Transition) (int64, error) {
	query := db.Model(model).
		Scopes(database.ForOrganization(t.OrganizationID)).
		Where("id = ?", t.ID).
		Where(statusColumn+" IN ?", t.From)

	switch {
	case t.RequireUnassigned:
		query = query.Where("assigned_to IS NULL")
	case t.ExpectedAssignee != nil:
		query = query.Where("assigned_to = ?", *t.ExpectedAssignee)
	}

	updates := map[string]interface{}{statusColumn: t.To}
	for k, v := range t.Set {
		updates[k] = v
	}

	result := query.Updates(updates)
	return result.RowsAffected, result.Error
}

func assign(db *gorm.DB, model interface{}, orgID, id uint64, assignee *uint64) (int64, error) {
	result := db.Model(model).
		Scopes(database.ForOrganization(orgID)).
		Where("id = ?", id).
		Update("assigned_to", assignee)
	return result.RowsAffected, result.Error
}
