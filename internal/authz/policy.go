package authz

import (
	"fieldtasks/internal/model"
)

// Resource kinds the policy engine knows about.
type Resource string

const (
	ResourceUser   Resource = "user"
	ResourceRegion Resource = "region"
	ResourceTask   Resource = "task"
	ResourceReport Resource = "report"
)

// Action is a role-level operation on a resource kind. Lifecycle
// transitions (mark in-progress, approve, ...) carry their own guards in
// the task service; they rely on ActionUpdate/ActionReview here only for
// the role-level gate.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
	ActionReview Action = "review"
)

type matrixKey struct {
	role     model.Role
	resource Resource
	action   Action
}

// allowed is the static role×resource×action matrix. Entries absent from
// the map are denied. Instance-level restrictions (own region, own rows)
// are applied afterwards by the scope resolver.
var allowed = map[matrixKey]bool{
	{model.RoleSuperAdmin, ResourceUser, ActionCreate}: true,
	{model.RoleSuperAdmin, ResourceUser, ActionList}:   true,
	{model.RoleSuperAdmin, ResourceUser, ActionRead}:   true,
	{model.RoleSuperAdmin, ResourceUser, ActionUpdate}: true,
	{model.RoleSuperAdmin, ResourceUser, ActionDelete}: true,
	{model.RoleAdmin, ResourceUser, ActionList}:        true,
	{model.RoleAdmin, ResourceUser, ActionRead}:        true,
	{model.RoleAdmin, ResourceUser, ActionUpdate}:      true, // self only, enforced per instance
	{model.RoleClient, ResourceUser, ActionRead}:       true, // self only
	{model.RoleClient, ResourceUser, ActionUpdate}:     true, // self only

	{model.RoleSuperAdmin, ResourceRegion, ActionCreate}: true,
	{model.RoleSuperAdmin, ResourceRegion, ActionUpdate}: true,
	{model.RoleSuperAdmin, ResourceRegion, ActionDelete}: true,
	{model.RoleSuperAdmin, ResourceRegion, ActionRead}:   true,
	{model.RoleSuperAdmin, ResourceRegion, ActionList}:   true,
	{model.RoleAdmin, ResourceRegion, ActionRead}:        true,
	{model.RoleAdmin, ResourceRegion, ActionList}:        true,
	{model.RoleClient, ResourceRegion, ActionRead}:       true,
	{model.RoleClient, ResourceRegion, ActionList}:       true,

	{model.RoleSuperAdmin, ResourceTask, ActionCreate}: true,
	{model.RoleSuperAdmin, ResourceTask, ActionUpdate}: true,
	{model.RoleSuperAdmin, ResourceTask, ActionDelete}: true,
	{model.RoleSuperAdmin, ResourceTask, ActionRead}:   true,
	{model.RoleSuperAdmin, ResourceTask, ActionList}:   true,
	{model.RoleAdmin, ResourceTask, ActionCreate}:      true, // own region only
	{model.RoleAdmin, ResourceTask, ActionUpdate}:      true, // own region only
	{model.RoleAdmin, ResourceTask, ActionDelete}:      true, // own region only
	{model.RoleAdmin, ResourceTask, ActionRead}:        true,
	{model.RoleAdmin, ResourceTask, ActionList}:        true,
	{model.RoleClient, ResourceTask, ActionRead}:       true, // assigned tasks only
	{model.RoleClient, ResourceTask, ActionList}:       true,

	{model.RoleClient, ResourceReport, ActionCreate}:     true, // assignee only
	{model.RoleClient, ResourceReport, ActionRead}:       true,
	{model.RoleClient, ResourceReport, ActionList}:       true,
	{model.RoleSuperAdmin, ResourceReport, ActionReview}: true,
	{model.RoleSuperAdmin, ResourceReport, ActionRead}:   true,
	{model.RoleSuperAdmin, ResourceReport, ActionList}:   true,
	{model.RoleAdmin, ResourceReport, ActionReview}:      true, // own region only
	{model.RoleAdmin, ResourceReport, ActionRead}:        true,
	{model.RoleAdmin, ResourceReport, ActionList}:        true,
}

// Can evaluates the role-level matrix only.
func Can(role model.Role, resource Resource, action Action) bool {
	return allowed[matrixKey{role, resource, action}]
}

// Authorize is the role-level gate: it fails fast with ErrRoleNotPermitted
// when the caller's tier lacks the action entirely, before any instance is
// inspected.
func Authorize(id Identity, action Action, resource Resource) error {
	if !Can(id.Role, resource, action) {
		return ErrRoleNotPermitted
	}
	return nil
}

// AuthorizeUser gates an instance-level action on another user's row:
// matrix first, then the visibility predicate. Non-superadmins may update
// only themselves regardless of scope.
func AuthorizeUser(id Identity, action Action, target *model.User) error {
	if err := Authorize(id, action, ResourceUser); err != nil {
		return err
	}
	if action == ActionUpdate && !id.IsSuperAdmin() && target.ID != id.ID {
		return ErrOutOfScope
	}
	if !UserVisible(id, target) {
		return ErrOutOfScope
	}
	return nil
}

// AuthorizeTask gates an instance-level action on a task.
func AuthorizeTask(id Identity, action Action, task *model.Task) error {
	if err := Authorize(id, action, ResourceTask); err != nil {
		return err
	}
	if !TaskVisible(id, task) {
		return ErrOutOfScope
	}
	return nil
}

// AuthorizeReport gates an instance-level action on a report. The parent
// task is required because report visibility for admins is derived from
// the task's region.
func AuthorizeReport(id Identity, action Action, report *model.TaskReport, task *model.Task) error {
	if err := Authorize(id, action, ResourceReport); err != nil {
		return err
	}
	if !ReportVisible(id, report, task) {
		return ErrOutOfScope
	}
	return nil
}
