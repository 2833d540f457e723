package service

import (
	"context"
	"testing"

	"fieldtasks/internal/authz"
	"fieldtasks/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAdminBindsRegion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.users.CreateUser(ctx, f.sa, CreateUserRequest{
		Username:   "apadmin",
		Email:      "apadmin@example.com",
		Password:   "secret123",
		Role:       string(model.RoleAdmin),
		RegionCode: string(model.RegionAndhraPradesh),
	})
	require.NoError(t, err)
	assert.Equal(t, "Andhra Pradesh", admin.Region)

	var assignment model.RegionAssignment
	require.NoError(t, f.db.First(&assignment, "admin_id = ?", admin.ID).Error)
	assert.Equal(t, f.ap.ID, assignment.RegionID)

	// One admin per region: the fixture's tnadmin already holds Tamil Nadu.
	_, err = f.users.CreateUser(ctx, f.sa, CreateUserRequest{
		Username:   "tnadmin2",
		Email:      "tnadmin2@example.com",
		Password:   "secret123",
		Role:       string(model.RoleAdmin),
		RegionCode: string(model.RegionTamilNadu),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has an administrator")
}

func TestCreateAdminRequiresRegion(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.CreateUser(context.Background(), f.sa, CreateUserRequest{
		Username: "nowhereadmin",
		Email:    "nowhereadmin@example.com",
		Password: "secret123",
		Role:     string(model.RoleAdmin),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region_code is required")
}

func TestOnlySuperAdminCreatesUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := CreateUserRequest{
		Username:   "tamilclient9",
		Email:      "tamilclient9@example.com",
		Password:   "secret123",
		Role:       string(model.RoleClient),
		RegionCode: string(model.RegionTamilNadu),
	}

	_, err := f.users.CreateUser(ctx, f.tnAdmin, req)
	assert.ErrorIs(t, err, authz.ErrRoleNotPermitted)
	_, err = f.users.CreateUser(ctx, f.tnClient, req)
	assert.ErrorIs(t, err, authz.ErrRoleNotPermitted)

	created, err := f.users.CreateUser(ctx, f.sa, req)
	require.NoError(t, err)
	assert.Equal(t, "Tamil Nadu", created.Region)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.CreateUser(context.Background(), f.sa, CreateUserRequest{
		Username: "tamilclient1", // exists in the fixture
		Email:    "fresh@example.com",
		Password: "secret123",
		Role:     string(model.RoleClient),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username already exists")
}

func TestUserVisibilityCollapsesToNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Same-region client: visible.
	_, err := f.users.GetUser(ctx, f.tnAdmin, f.tnClient.ID)
	assert.NoError(t, err)

	// Foreign client: reads as missing, not as forbidden.
	_, err = f.users.GetUser(ctx, f.tnAdmin, f.apClient.ID)
	assert.ErrorIs(t, err, authz.ErrNotFound)

	// Clients see only themselves.
	_, err = f.users.GetUser(ctx, f.tnClient, f.tnClient.ID)
	assert.NoError(t, err)
	_, err = f.users.GetUser(ctx, f.tnClient, f.tnAdmin.ID)
	assert.ErrorIs(t, err, authz.ErrNotFound)
}

func TestListUsersScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, _, err := f.users.ListUsers(ctx, f.sa, 1, 50)
	require.NoError(t, err)
	assert.Len(t, all, 4) // superadmin, tnadmin, two clients

	tn, _, err := f.users.ListUsers(ctx, f.tnAdmin, 1, 50)
	require.NoError(t, err)
	require.Len(t, tn, 1)
	assert.Equal(t, "tamilclient1", tn[0].Username)

	_, _, err = f.users.ListUsers(ctx, f.tnClient, 1, 50)
	assert.ErrorIs(t, err, authz.ErrRoleNotPermitted)
}

func TestSelfUpdateOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	updated, err := f.users.UpdateUser(ctx, f.tnClient, f.tnClient.ID, UpdateUserRequest{Phone: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, "9876543210", updated.Phone)

	_, err = f.users.UpdateUser(ctx, f.tnAdmin, f.tnClient.ID, UpdateUserRequest{Phone: "0000000000"})
	assert.ErrorIs(t, err, authz.ErrOutOfScope)

	_, err = f.users.UpdateUser(ctx, f.sa, f.tnClient.ID, UpdateUserRequest{Phone: "1112223334"})
	assert.NoError(t, err)
}

func TestDeleteClientCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.newTask(t, f.tnAdmin, model.RegionTamilNadu, f.tnClient)
	_, err := f.tasks.MarkCompleted(ctx, f.tnClient, task.ID)
	require.NoError(t, err)
	f.submitReport(t, f.tnClient, task.ID.String())

	require.NoError(t, f.users.DeleteUser(ctx, f.sa, f.tnClient.ID))

	var tasks, reports int64
	require.NoError(t, f.db.Model(&model.Task{}).Count(&tasks).Error)
	require.NoError(t, f.db.Model(&model.TaskReport{}).Count(&reports).Error)
	assert.EqualValues(t, 0, tasks)
	assert.EqualValues(t, 0, reports)

	// Soft-deleted account no longer resolves.
	_, err = f.users.GetUser(ctx, f.sa, f.tnClient.ID)
	assert.ErrorIs(t, err, authz.ErrNotFound)
}

func TestDeleteAdminFreesRegion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.DeleteUser(ctx, f.sa, f.tnAdmin.ID))

	var assignments int64
	require.NoError(t, f.db.Model(&model.RegionAssignment{}).Where("region_id = ?", f.tn.ID).Count(&assignments).Error)
	assert.EqualValues(t, 0, assignments)

	// The region is claimable again.
	_, err := f.users.CreateUser(ctx, f.sa, CreateUserRequest{
		Username:   "tnadmin2",
		Email:      "tnadmin2@example.com",
		Password:   "secret123",
		Role:       string(model.RoleAdmin),
		RegionCode: string(model.RegionTamilNadu),
	})
	assert.NoError(t, err)
}
