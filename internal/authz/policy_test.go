package authz

import (
	"testing"

	"fieldtasks/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func superadmin() Identity {
	return Identity{ID: uuid.New(), Role: model.RoleSuperAdmin}
}

func adminOf(regionID uuid.UUID, label string) Identity {
	return Identity{ID: uuid.New(), Role: model.RoleAdmin, RegionID: &regionID, Region: label}
}

func unassignedAdmin() Identity {
	return Identity{ID: uuid.New(), Role: model.RoleAdmin}
}

func client() Identity {
	return Identity{ID: uuid.New(), Role: model.RoleClient, Region: "Tamil Nadu"}
}

func TestMatrix(t *testing.T) {
	cases := []struct {
		name     string
		role     model.Role
		resource Resource
		action   Action
		want     bool
	}{
		{"superadmin creates users", model.RoleSuperAdmin, ResourceUser, ActionCreate, true},
		{"admin cannot create users", model.RoleAdmin, ResourceUser, ActionCreate, false},
		{"client cannot list users", model.RoleClient, ResourceUser, ActionList, false},
		{"admin creates tasks", model.RoleAdmin, ResourceTask, ActionCreate, true},
		{"client cannot create tasks", model.RoleClient, ResourceTask, ActionCreate, false},
		{"client cannot delete tasks", model.RoleClient, ResourceTask, ActionDelete, false},
		{"client submits reports", model.RoleClient, ResourceReport, ActionCreate, true},
		{"client cannot review reports", model.RoleClient, ResourceReport, ActionReview, false},
		{"admin reviews reports", model.RoleAdmin, ResourceReport, ActionReview, true},
		{"superadmin reviews reports", model.RoleSuperAdmin, ResourceReport, ActionReview, true},
		{"admin cannot create regions", model.RoleAdmin, ResourceRegion, ActionCreate, false},
		{"admin cannot delete regions", model.RoleAdmin, ResourceRegion, ActionDelete, false},
		{"superadmin deletes regions", model.RoleSuperAdmin, ResourceRegion, ActionDelete, true},
		{"everyone reads regions", model.RoleClient, ResourceRegion, ActionRead, true},
		{"unknown role denied", model.Role("INTERN"), ResourceTask, ActionRead, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Can(tc.role, tc.resource, tc.action))
		})
	}
}

func TestAuthorizeFailsFastOnRole(t *testing.T) {
	// A client asking to review must be told the role is the problem,
	// not scope, even when the instance would also be out of scope.
	err := Authorize(client(), ActionReview, ResourceReport)
	assert.ErrorIs(t, err, ErrRoleNotPermitted)
	assert.Equal(t, "ROLE_NOT_PERMITTED", ReasonCode(err))
}

func TestAuthorizeTaskOutOfScope(t *testing.T) {
	tn := uuid.New()
	ap := uuid.New()
	admin := adminOf(tn, "Tamil Nadu")

	inRegion := &model.Task{RegionID: tn}
	outRegion := &model.Task{RegionID: ap}

	assert.NoError(t, AuthorizeTask(admin, ActionRead, inRegion))

	err := AuthorizeTask(admin, ActionRead, outRegion)
	assert.ErrorIs(t, err, ErrOutOfScope)
	assert.Equal(t, "OUT_OF_SCOPE", ReasonCode(err))
}

func TestAuthorizeTaskUnassignedAdminSeesNothing(t *testing.T) {
	task := &model.Task{RegionID: uuid.New()}
	err := AuthorizeTask(unassignedAdmin(), ActionRead, task)
	assert.ErrorIs(t, err, ErrOutOfScope)
}

func TestAuthorizeUserSelfUpdateOnly(t *testing.T) {
	tn := uuid.New()
	admin := adminOf(tn, "Tamil Nadu")
	self := &model.User{ID: admin.ID, Role: model.RoleAdmin, Region: "Tamil Nadu"}
	other := &model.User{ID: uuid.New(), Role: model.RoleClient, Region: "Tamil Nadu"}

	assert.NoError(t, AuthorizeUser(admin, ActionUpdate, self))
	// The client is visible to the admin but still not updatable.
	assert.NoError(t, AuthorizeUser(admin, ActionRead, other))
	assert.ErrorIs(t, AuthorizeUser(admin, ActionUpdate, other), ErrOutOfScope)

	sa := superadmin()
	assert.NoError(t, AuthorizeUser(sa, ActionUpdate, other))
}

func TestAuthorizeReportDerivesFromTaskRegion(t *testing.T) {
	tn := uuid.New()
	ap := uuid.New()
	admin := adminOf(tn, "Tamil Nadu")

	report := &model.TaskReport{ID: uuid.New(), SubmittedBy: uuid.New()}
	assert.NoError(t, AuthorizeReport(admin, ActionReview, report, &model.Task{RegionID: tn}))
	assert.ErrorIs(t, AuthorizeReport(admin, ActionReview, report, &model.Task{RegionID: ap}), ErrOutOfScope)
}

func TestReasonCodeUnknownError(t *testing.T) {
	assert.Equal(t, "", ReasonCode(assert.AnError))
}
