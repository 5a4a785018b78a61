// Package access holds the role hierarchy and the role to module table. Both
// tables are built once at init and only exposed through query functions.
package access

import "sort"

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleResearcher Role = "researcher"
	RoleQA         Role = "qa"
	RoleAnnotator  Role = "annotator"
	RoleGuest      Role = "guest"
)

type Module string

const (
	ModuleDashboard          Module = "dashboard"
	ModuleAnnotationProjects Module = "annotation_projects"
	ModuleAnnotationTasks    Module = "annotation_tasks"
	ModuleNewsTagging        Module = "news_tagging"
	ModuleReview             Module = "review"
	ModuleDataNestEntities   Module = "datanest_entities"
	ModuleDataNestProjects   Module = "datanest_projects"
	ModuleRelationships      Module = "relationships"
	ModuleUserManagement     Module = "user_management"
	ModuleOrgSettings        Module = "org_settings"
)

var roleRanks = map[Role]int{
	RoleSuperAdmin: 100,
	RoleAdmin:      90,
	RoleManager:    70,
	RoleResearcher: 50,
	RoleQA:         40,
	RoleAnnotator:  30,
	RoleGuest:      10,
}

var moduleAccessByRole = buildModuleAccess()

func buildModuleAccess() map[Role]map[Module]struct{} {
	all := []Module{
		ModuleDashboard, ModuleAnnotationProjects, ModuleAnnotationTasks, ModuleNewsTagging,
		ModuleReview, ModuleDataNestEntities, ModuleDataNestProjects, ModuleRelationships,
		ModuleUserManagement, ModuleOrgSettings,
	}

	table := map[Role][]Module{
		RoleSuperAdmin: all,
		RoleAdmin:      all,
		RoleManager: {
			ModuleDashboard, ModuleAnnotationProjects, ModuleAnnotationTasks, ModuleNewsTagging,
			ModuleReview, ModuleDataNestEntities, ModuleDataNestProjects, ModuleRelationships,
			ModuleUserManagement,
		},
		RoleResearcher: {
			ModuleDashboard, ModuleDataNestEntities, ModuleDataNestProjects, ModuleRelationships,
			ModuleNewsTagging,
		},
		RoleQA: {
			ModuleDashboard, ModuleAnnotationTasks, ModuleNewsTagging, ModuleReview,
		},
		RoleAnnotator: {
			ModuleDashboard, ModuleAnnotationTasks, ModuleNewsTagging,
		},
		RoleGuest: {
			ModuleDashboard,
		},
	}

	out := make(map[Role]map[Module]struct{}, len(table))
	for role, modules := range table {
		set := make(map[Module]struct{}, len(modules))
		for _, m := range modules {
			set[m] = struct{}{}
		}
		out[role] = set
	}
	return out
}

// ParseRole returns the role for s and whether it is a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleRanks[r]
	return r, ok
}

// Rank returns the numeric rank of a role; unknown roles rank 0.
func Rank(r Role) int {
	return roleRanks[r]
}

// ModuleAccess returns the modules visible to a role, sorted by name.
// Unknown roles see nothing.
func ModuleAccess(r Role) []Module {
	set := moduleAccessByRole[r]
	out := make([]Module, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CanAccessModule reports whether role r may use module m.
func CanAccessModule(r Role, m Module) bool {
	_, ok := moduleAccessByRole[r][m]
	return ok
}

// CanManageRole is true iff actor strictly outranks target. A role never
// manages its peers or itself.
func CanManageRole(actor, target Role) bool {
	actorRank := Rank(actor)
	if actorRank == 0 {
		return false
	}
	return actorRank > Rank(target)
}

// CanManageUsers reports whether r is manager-tier.
func CanManageUsers(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleManager:
		return true
	default:
		return false
	}
}

// IsAdminTier reports whether r may change organization settings.
func IsAdminTier(r Role) bool {
	return Rank(r) >= Rank(RoleAdmin)
}

// Roles returns every known role ordered from highest to lowest rank.
func Roles() []Role {
	out := make([]Role, 0, len(roleRanks))
	for r := range roleRanks {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return roleRanks[out[i]] > roleRanks[out[j]] })
	return out
}
