package service

import (
	"context"
	"testing"

	"fieldtasks/internal/authz"
	"fieldtasks/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) submitReport(t *testing.T, caller authz.Identity, taskID string) *ReportResponse {
	t.Helper()
	report, err := f.reports.SubmitReport(context.Background(), caller, SubmitReportRequest{
		TaskID:     taskID,
		ReportText: "work done, photos attached",
	})
	require.NoError(t, err)
	return report
}

func TestSubmitReportAssigneeOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.newTask(t, f.tnAdmin, model.RegionTamilNadu, f.tnClient)

	// The admin fails at the role gate; a foreign client cannot see the task.
	_, err := f.reports.SubmitReport(ctx, f.tnAdmin, SubmitReportRequest{TaskID: task.ID.String(), ReportText: "x"})
	assert.ErrorIs(t, err, authz.ErrRoleNotPermitted)
	_, err = f.reports.SubmitReport(ctx, f.apClient, SubmitReportRequest{TaskID: task.ID.String(), ReportText: "x"})
	assert.ErrorIs(t, err, authz.ErrNotFound)

	report := f.submitReport(t, f.tnClient, task.ID.String())
	assert.Equal(t, f.tnClient.ID, report.SubmittedBy)
	assert.Nil(t, report.ReviewedAt)
	assert.EqualValues(t, 1, f.auditCount(t, model.ActionSubmitReport))
}

func TestReviewApprovesReportAndTaskAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.newTask(t, f.tnAdmin, model.RegionTamilNadu, f.tnClient)
	_, err := f.tasks.MarkCompleted(ctx, f.tnClient, task.ID)
	require.NoError(t, err)
	report := f.submitReport(t, f.tnClient, task.ID.String())

	reviewed, err := f.reports.ReviewReport(ctx, f.tnAdmin, report.ID, ReviewReportRequest{
		Approved: true,
		Feedback: "good work",
	})
	require.NoError(t, err)
	require.NotNil(t, reviewed.ReviewedAt)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, f.tnAdmin.ID, *reviewed.ReviewedBy)
	assert.Equal(t, "good work", reviewed.Feedback)

	var taskRow model.Task
	require.NoError(t, f.db.First(&taskRow, "id = ?", task.ID).Error)
	assert.Equal(t, model.TaskStatusApproved, taskRow.Status)
}

func TestReviewIsWriteOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.newTask(t, f.tnAdmin, model.RegionTamilNadu, f.tnClient)
	_, err := f.tasks.MarkCompleted(ctx, f.tnClient, task.ID)
	require.NoError(t, err)
	report := f.submitReport(t, f.tnClient, task.ID.String())

	_, err = f.reports.ReviewReport(ctx, f.tnAdmin, report.ID, ReviewReportRequest{Approved: false, Feedback: "redo"})
	require.NoError(t, err)

	// A second verdict on the same report loses the reviewed_at
	// compare-and-set, and the rollback leaves the task untouched.
	_, err = f.reports.ReviewReport(ctx, f.tnAdmin, report.ID, ReviewReportRequest{Approved: true})
	assert.ErrorIs(t, err, authz.ErrInvalidTransition)

	var taskRow model.Task
	require.NoError(t, f.db.First(&taskRow, "id = ?", task.ID).Error)
	assert.Equal(t, model.TaskStatusRejected, taskRow.Status)
}

func TestRejectedTaskAcceptsFreshReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.newTask(t, f.tnAdmin, model.RegionTamilNadu, f.tnClient)
	_, err := f.tasks.MarkCompleted(ctx, f.tnClient, task.ID)
	require.NoError(t, err)
	first := f.submitReport(t, f.tnClient, task.ID.String())

	_, err = f.reports.ReviewReport(ctx, f.tnAdmin, first.ID, ReviewReportRequest{Approved: false, Feedback: "missing photos"})
	require.NoError(t, err)

	second := f.submitReport(t, f.tnClient, task.ID.String())
	_, err = f.reports.ReviewReport(ctx, f.tnAdmin, second.ID, ReviewReportRequest{Approved: true})
	require.NoError(t, err)

	detail, err := f.tasks.GetTask(ctx, f.tnAdmin, task.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.TaskStatusApproved), detail.Status)
	assert.Len(t, detail.Reports, 2)
}

func TestApprovedTaskRefusesReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.newTask(t, f.tnAdmin, model.RegionTamilNadu, f.tnClient)
	_, err := f.tasks.MarkCompleted(ctx, f.tnClient, task.ID)
	require.NoError(t, err)
	_, err = f.tasks.Approve(ctx, f.tnAdmin, task.ID)
	require.NoError(t, err)

	_, err = f.reports.SubmitReport(ctx, f.tnClient, SubmitReportRequest{TaskID: task.ID.String(), ReportText: "late"})
	assert.ErrorIs(t, err, authz.ErrInvalidTransition)
}

func TestReviewScopedToRegion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.newTask(t, f.sa, model.RegionAndhraPradesh, f.apClient)
	_, err := f.tasks.MarkCompleted(ctx, f.apClient, task.ID)
	require.NoError(t, err)
	report := f.submitReport(t, f.apClient, task.ID.String())

	// Out-of-region report is invisible to the Tamil Nadu admin.
	_, err = f.reports.ReviewReport(ctx, f.tnAdmin, report.ID, ReviewReportRequest{Approved: true})
	assert.ErrorIs(t, err, authz.ErrNotFound)

	// Clients never review, even their own reports.
	_, err = f.reports.ReviewReport(ctx, f.apClient, report.ID, ReviewReportRequest{Approved: true})
	assert.ErrorIs(t, err, authz.ErrRoleNotPermitted)

	// Superadmin reviews anywhere.
	_, err = f.reports.ReviewReport(ctx, f.sa, report.ID, ReviewReportRequest{Approved: true})
	assert.NoError(t, err)
}

func TestListReportsScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tnTask := f.newTask(t, f.sa, model.RegionTamilNadu, f.tnClient)
	apTask := f.newTask(t, f.sa, model.RegionAndhraPradesh, f.apClient)
	f.submitReport(t, f.tnClient, tnTask.ID.String())
	f.submitReport(t, f.apClient, apTask.ID.String())

	all, total, err := f.reports.ListReports(ctx, f.sa, nil, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	tn, total, err := f.reports.ListReports(ctx, f.tnAdmin, nil, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, tn, 1)
	assert.Equal(t, tnTask.ID, tn[0].TaskID)

	own, total, err := f.reports.ListReports(ctx, f.apClient, nil, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, f.apClient.ID, own[0].SubmittedBy)
}
