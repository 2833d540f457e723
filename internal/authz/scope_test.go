package authz

import (
	"testing"

	"fieldtasks/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserVisible(t *testing.T) {
	tn := uuid.New()
	admin := adminOf(tn, "Tamil Nadu")
	cl := client()

	tnClient := &model.User{ID: cl.ID, Role: model.RoleClient, Region: "Tamil Nadu"}
	apClient := &model.User{ID: uuid.New(), Role: model.RoleClient, Region: "Andhra Pradesh"}
	otherAdmin := &model.User{ID: uuid.New(), Role: model.RoleAdmin, Region: "Tamil Nadu"}

	assert.True(t, UserVisible(superadmin(), apClient))
	assert.True(t, UserVisible(admin, tnClient))
	assert.False(t, UserVisible(admin, apClient))
	// Peers are invisible even in the same region; admins see clients only.
	assert.False(t, UserVisible(admin, otherAdmin))
	// Everyone sees their own row.
	assert.True(t, UserVisible(admin, &model.User{ID: admin.ID, Role: model.RoleAdmin}))
	assert.True(t, UserVisible(cl, tnClient))
	assert.False(t, UserVisible(cl, apClient))
}

func TestTaskVisible(t *testing.T) {
	tn := uuid.New()
	cl := client()
	mine := &model.Task{RegionID: tn, AssignedToID: cl.ID}
	theirs := &model.Task{RegionID: tn, AssignedToID: uuid.New()}

	assert.True(t, TaskVisible(cl, mine))
	assert.False(t, TaskVisible(cl, theirs))
	assert.True(t, TaskVisible(adminOf(tn, "Tamil Nadu"), theirs))
	assert.False(t, TaskVisible(unassignedAdmin(), theirs))
}

func TestReportVisible(t *testing.T) {
	tn := uuid.New()
	cl := client()
	own := &model.TaskReport{SubmittedBy: cl.ID}
	foreign := &model.TaskReport{SubmittedBy: uuid.New()}
	task := &model.Task{RegionID: tn}

	assert.True(t, ReportVisible(cl, own, task))
	assert.False(t, ReportVisible(cl, foreign, task))
	assert.True(t, ReportVisible(adminOf(tn, "Tamil Nadu"), foreign, task))
	assert.False(t, ReportVisible(adminOf(uuid.New(), "Odisha"), foreign, task))
	assert.False(t, ReportVisible(unassignedAdmin(), foreign, task))
}
