// Package authz is the authorization core: it decides, per identity and
// per resource, which records a caller may see or mutate. Everything in
// this package is pure and stateless; callers resolve an Identity per
// request and pass it explicitly, there is no ambient current-user state.
package authz

import (
	"fieldtasks/internal/model"

	"github.com/google/uuid"
)

// Identity is the resolved caller of a request: who they are, which tier
// they belong to, and which region they are bound to.
//
// RegionID is set only for admins with a live RegionAssignment; an admin
// without one keeps RegionID nil and falls into the fail-closed empty
// scope. Region carries the free-text home-region label (clients get it
// copied at creation, admins get their assigned region's display name).
type Identity struct {
	ID       uuid.UUID
	Role     model.Role
	RegionID *uuid.UUID
	Region   string
}

// IsSuperAdmin reports whether the caller holds the top tier.
func (id Identity) IsSuperAdmin() bool { return id.Role == model.RoleSuperAdmin }

// IsAdmin reports whether the caller is a regional administrator.
func (id Identity) IsAdmin() bool { return id.Role == model.RoleAdmin }

// IsClient reports whether the caller is a client.
func (id Identity) IsClient() bool { return id.Role == model.RoleClient }
