package service

import (
	"context"
	"testing"

	"fieldtasks/internal/authz"
	"fieldtasks/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperAdminDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tnTask := f.newTask(t, f.sa, model.RegionTamilNadu, f.tnClient)
	f.newTask(t, f.sa, model.RegionAndhraPradesh, f.apClient)
	_, err := f.tasks.MarkCompleted(ctx, f.tnClient, tnTask.ID)
	require.NoError(t, err)
	f.submitReport(t, f.tnClient, tnTask.ID.String())

	dash, err := f.dashboard.ForSuperAdmin(ctx, f.sa)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dash.Admins)
	assert.EqualValues(t, 2, dash.Clients)
	assert.EqualValues(t, 2, dash.Tasks.Total)
	assert.EqualValues(t, 1, dash.Tasks.Pending)
	assert.EqualValues(t, 1, dash.Tasks.Completed)
	assert.Len(t, dash.RecentTasks, 2)

	require.Len(t, dash.Regions, 2)
	for _, region := range dash.Regions {
		switch region.Code {
		case model.RegionTamilNadu:
			assert.Equal(t, "tnadmin", region.AdminUsername)
			assert.EqualValues(t, 1, region.Clients)
			assert.EqualValues(t, 1, region.Tasks)
			assert.EqualValues(t, 1, region.PendingReview)
		case model.RegionAndhraPradesh:
			assert.Empty(t, region.AdminUsername)
			assert.EqualValues(t, 1, region.Clients)
			assert.EqualValues(t, 1, region.Tasks)
			assert.EqualValues(t, 0, region.PendingReview)
		}
	}

	_, err = f.dashboard.ForSuperAdmin(ctx, f.tnAdmin)
	assert.ErrorIs(t, err, authz.ErrRoleNotPermitted)
}

func TestAdminDashboardScopedToRegion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.newTask(t, f.sa, model.RegionTamilNadu, f.tnClient)
	f.newTask(t, f.sa, model.RegionAndhraPradesh, f.apClient)

	dash, err := f.dashboard.ForAdmin(ctx, f.tnAdmin)
	require.NoError(t, err)
	assert.Equal(t, "Tamil Nadu", dash.Region)
	assert.EqualValues(t, 1, dash.Clients)
	assert.EqualValues(t, 1, dash.Tasks.Total)
	require.Len(t, dash.RecentTasks, 1)
	assert.Equal(t, "TAMIL_NADU", dash.RecentTasks[0].RegionCode)

	limbo := f.unassignedAdmin(t)
	_, err = f.dashboard.ForAdmin(ctx, limbo)
	assert.ErrorIs(t, err, authz.ErrUnassigned)
}

func TestClientDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.newTask(t, f.sa, model.RegionTamilNadu, f.tnClient)
	f.newTask(t, f.sa, model.RegionTamilNadu, f.tnClient)
	f.newTask(t, f.sa, model.RegionAndhraPradesh, f.apClient)

	dash, err := f.dashboard.ForClient(ctx, f.tnClient)
	require.NoError(t, err)
	assert.EqualValues(t, 2, dash.Tasks.Total)
	assert.EqualValues(t, 2, dash.Tasks.Pending)
	assert.Len(t, dash.Upcoming, 2)

	_, err = f.dashboard.ForClient(ctx, f.tnAdmin)
	assert.ErrorIs(t, err, authz.ErrRoleNotPermitted)
}
