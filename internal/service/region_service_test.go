package service

import (
	"context"
	"testing"

	"fieldtasks/internal/authz"
	"fieldtasks/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRegion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	region, err := f.regions.ResolveRegion(ctx, model.RegionTamilNadu)
	require.NoError(t, err)
	assert.Equal(t, "TAMIL_NADU", region.Code)
	assert.Equal(t, "Tamil Nadu", region.DisplayName)

	// Codes outside the enumeration and unregistered codes both read as
	// missing.
	_, err = f.regions.ResolveRegion(ctx, model.RegionCode("KERALA"))
	assert.ErrorIs(t, err, authz.ErrNotFound)
	_, err = f.regions.ResolveRegion(ctx, model.RegionTelangana)
	assert.ErrorIs(t, err, authz.ErrNotFound)
}

func TestCreateRegionEnumOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	region, err := f.regions.CreateRegion(ctx, f.sa, CreateRegionRequest{Code: "ODISHA"})
	require.NoError(t, err)
	assert.Equal(t, "Odisha", region.DisplayName)

	_, err = f.regions.CreateRegion(ctx, f.sa, CreateRegionRequest{Code: "KERALA"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the region enumeration")

	_, err = f.regions.CreateRegion(ctx, f.sa, CreateRegionRequest{Code: "ODISHA"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = f.regions.CreateRegion(ctx, f.tnAdmin, CreateRegionRequest{Code: "TELANGANA"})
	assert.ErrorIs(t, err, authz.ErrRoleNotPermitted)
}

func TestRegionForAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	region, err := f.regions.RegionForAdmin(ctx, f.tnAdmin.ID)
	require.NoError(t, err)
	assert.Equal(t, "TAMIL_NADU", region.Code)

	limbo := f.unassignedAdmin(t)
	_, err = f.regions.RegionForAdmin(ctx, limbo.ID)
	assert.ErrorIs(t, err, authz.ErrUnassigned)
}

func TestAssignAdminReplacesOwnBinding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Move tnadmin to Andhra Pradesh; Tamil Nadu frees up.
	err := f.regions.AssignAdmin(ctx, f.sa, AssignAdminRequest{
		AdminID:    f.tnAdmin.ID.String(),
		RegionCode: string(model.RegionAndhraPradesh),
	})
	require.NoError(t, err)

	region, err := f.regions.RegionForAdmin(ctx, f.tnAdmin.ID)
	require.NoError(t, err)
	assert.Equal(t, "ANDHRA_PRADESH", region.Code)

	var user model.User
	require.NoError(t, f.db.First(&user, "id = ?", f.tnAdmin.ID).Error)
	assert.Equal(t, "Andhra Pradesh", user.Region)

	var tnAssignments int64
	require.NoError(t, f.db.Model(&model.RegionAssignment{}).Where("region_id = ?", f.tn.ID).Count(&tnAssignments).Error)
	assert.EqualValues(t, 0, tnAssignments)
}

func TestAssignAdminRegionTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := f.createUser(t, "spareadmin", model.RoleAdmin, "")
	err := f.regions.AssignAdmin(ctx, f.sa, AssignAdminRequest{
		AdminID:    other.ID.String(),
		RegionCode: string(model.RegionTamilNadu),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has an administrator")

	// Re-asserting the current holder is a no-op, not a conflict.
	err = f.regions.AssignAdmin(ctx, f.sa, AssignAdminRequest{
		AdminID:    f.tnAdmin.ID.String(),
		RegionCode: string(model.RegionTamilNadu),
	})
	assert.NoError(t, err)
}

func TestAssignAdminRejectsNonAdmins(t *testing.T) {
	f := newFixture(t)

	err := f.regions.AssignAdmin(context.Background(), f.sa, AssignAdminRequest{
		AdminID:    f.tnClient.ID.String(),
		RegionCode: string(model.RegionAndhraPradesh),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not an admin")
}

func TestDeleteRegionBlockedByTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.newTask(t, f.sa, model.RegionTamilNadu, f.tnClient)

	err := f.regions.DeleteRegion(ctx, f.sa, model.RegionTamilNadu)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still has")

	// An empty region deletes, taking its assignment with it.
	err = f.regions.AssignAdmin(ctx, f.sa, AssignAdminRequest{
		AdminID:    f.tnAdmin.ID.String(),
		RegionCode: string(model.RegionAndhraPradesh),
	})
	require.NoError(t, err)
	require.NoError(t, f.regions.DeleteRegion(ctx, f.sa, model.RegionAndhraPradesh))

	_, err = f.regions.RegionForAdmin(ctx, f.tnAdmin.ID)
	assert.ErrorIs(t, err, authz.ErrUnassigned)
}
