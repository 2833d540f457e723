package authz

import (
	"fieldtasks/internal/model"

	"gorm.io/gorm"
)

// The scope resolver translates {role, home region} into visibility
// predicates, one per resource kind. Each predicate exists twice: as a
// plain Go function over a loaded row (instance checks) and as a GORM
// scope pushing the same restriction into the query (list endpoints).
// Both must be rebuilt per request — an admin's region binding can change
// between requests, so identities are never cached.
//
// An admin with no region assignment gets the empty scope, not an error:
// a misconfigured admin account leaks nothing.

// UserVisible reports whether the target user row is inside the caller's
// scope. Admins see clients of their own region; clients see themselves.
func UserVisible(id Identity, u *model.User) bool {
	switch id.Role {
	case model.RoleSuperAdmin:
		return true
	case model.RoleAdmin:
		if u.ID == id.ID {
			return true
		}
		if id.RegionID == nil {
			return false
		}
		return u.Role == model.RoleClient && u.Region == id.Region
	case model.RoleClient:
		return u.ID == id.ID
	}
	return false
}

// TaskVisible reports whether a task is inside the caller's scope.
func TaskVisible(id Identity, t *model.Task) bool {
	switch id.Role {
	case model.RoleSuperAdmin:
		return true
	case model.RoleAdmin:
		if id.RegionID == nil {
			return false
		}
		return t.RegionID == *id.RegionID
	case model.RoleClient:
		return t.AssignedToID == id.ID
	}
	return false
}

// ReportVisible reports whether a report is inside the caller's scope. The
// parent task carries the region an admin's visibility derives from.
func ReportVisible(id Identity, r *model.TaskReport, t *model.Task) bool {
	switch id.Role {
	case model.RoleSuperAdmin:
		return true
	case model.RoleAdmin:
		if id.RegionID == nil {
			return false
		}
		return t != nil && t.RegionID == *id.RegionID
	case model.RoleClient:
		return r.SubmittedBy == id.ID
	}
	return false
}

// denyAll is the fail-closed empty scope.
func denyAll(db *gorm.DB) *gorm.DB {
	return db.Where("1 = 0")
}

// UserScope returns the SQL-level visibility restriction for user listings.
func UserScope(id Identity) func(*gorm.DB) *gorm.DB {
	switch id.Role {
	case model.RoleSuperAdmin:
		return func(db *gorm.DB) *gorm.DB { return db }
	case model.RoleAdmin:
		region := id.Region
		if id.RegionID == nil {
			return denyAll
		}
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("role = ? AND region = ?", model.RoleClient, region)
		}
	case model.RoleClient:
		callerID := id.ID
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("id = ?", callerID)
		}
	}
	return denyAll
}

// TaskScope returns the SQL-level visibility restriction for task listings.
func TaskScope(id Identity) func(*gorm.DB) *gorm.DB {
	switch id.Role {
	case model.RoleSuperAdmin:
		return func(db *gorm.DB) *gorm.DB { return db }
	case model.RoleAdmin:
		if id.RegionID == nil {
			return denyAll
		}
		regionID := *id.RegionID
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("tasks.region_id = ?", regionID)
		}
	case model.RoleClient:
		callerID := id.ID
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("tasks.assigned_to_id = ?", callerID)
		}
	}
	return denyAll
}

// ReportScope returns the SQL-level visibility restriction for report
// listings. Admin scope joins the parent task to restrict by region.
func ReportScope(id Identity) func(*gorm.DB) *gorm.DB {
	switch id.Role {
	case model.RoleSuperAdmin:
		return func(db *gorm.DB) *gorm.DB { return db }
	case model.RoleAdmin:
		if id.RegionID == nil {
			return denyAll
		}
		regionID := *id.RegionID
		return func(db *gorm.DB) *gorm.DB {
			return db.Joins("JOIN tasks ON tasks.id = task_reports.task_id").
				Where("tasks.region_id = ?", regionID)
		}
	case model.RoleClient:
		callerID := id.ID
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("task_reports.submitted_by = ?", callerID)
		}
	}
	return denyAll
}
