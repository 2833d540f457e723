package service

import (
	"context"
	"errors"
	"time"

	"fieldtasks/internal/authz"
	"fieldtasks/internal/model"
	"fieldtasks/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatusCounts struct {
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Approved   int64 `json:"approved"`
	Rejected   int64 `json:"rejected"`
	Total      int64 `json:"total"`
}

type RegionStats struct {
	Code          model.RegionCode `json:"code"`
	Name          string           `json:"name"`
	AdminUsername string           `json:"admin_username,omitempty"`
	Clients       int64            `json:"clients"`
	Tasks         int64            `json:"tasks"`
	PendingReview int64            `json:"pending_review"`
}

type SuperAdminDashboard struct {
	Admins      int64          `json:"admins"`
	Clients     int64          `json:"clients"`
	Tasks       StatusCounts   `json:"tasks"`
	Regions     []RegionStats  `json:"regions"`
	RecentTasks []TaskResponse `json:"recent_tasks"`
}

type AdminDashboard struct {
	Region        string         `json:"region"`
	Clients       int64          `json:"clients"`
	Tasks         StatusCounts   `json:"tasks"`
	PendingReview int64          `json:"pending_review"`
	RecentTasks   []TaskResponse `json:"recent_tasks"`
}

type ClientDashboard struct {
	Tasks    StatusCounts   `json:"tasks"`
	Overdue  int64          `json:"overdue"`
	Upcoming []TaskResponse `json:"upcoming"`
}

// DashboardService assembles the per-role landing views. Each role gets a
// different shape and the data is already cut to the caller's scope, so
// the handlers expose a single /dashboard endpoint that fans out here.
type DashboardService interface {
	ForSuperAdmin(ctx context.Context, caller authz.Identity) (*SuperAdminDashboard, error)
	ForAdmin(ctx context.Context, caller authz.Identity) (*AdminDashboard, error)
	ForClient(ctx context.Context, caller authz.Identity) (*ClientDashboard, error)
}

type dashboardService struct {
	users   repository.UserRepository
	regions repository.RegionRepository
	tasks   repository.TaskRepository
	reports repository.ReportRepository
}

// NewDashboardService returns a new instance of DashboardService
func NewDashboardService(
	users repository.UserRepository,
	regions repository.RegionRepository,
	tasks repository.TaskRepository,
	reports repository.ReportRepository,
) DashboardService {
	return &dashboardService{users: users, regions: regions, tasks: tasks, reports: reports}
}

func (s *dashboardService) statusCounts(ctx context.Context, regionID *uuid.UUID) (StatusCounts, error) {
	var counts StatusCounts
	for _, st := range []struct {
		status model.TaskStatus
		dest   *int64
	}{
		{model.TaskStatusPending, &counts.Pending},
		{model.TaskStatusInProgress, &counts.InProgress},
		{model.TaskStatusCompleted, &counts.Completed},
		{model.TaskStatusApproved, &counts.Approved},
		{model.TaskStatusRejected, &counts.Rejected},
	} {
		n, err := s.tasks.CountByStatus(ctx, []model.TaskStatus{st.status}, regionID)
		if err != nil {
			return counts, err
		}
		*st.dest = n
	}
	counts.Total = counts.Pending + counts.InProgress + counts.Completed + counts.Approved + counts.Rejected
	return counts, nil
}

func (s *dashboardService) ForSuperAdmin(ctx context.Context, caller authz.Identity) (*SuperAdminDashboard, error) {
	if !caller.IsSuperAdmin() {
		return nil, authz.ErrRoleNotPermitted
	}

	dash := &SuperAdminDashboard{}

	var err error
	if dash.Admins, err = s.users.CountByRole(ctx, model.RoleAdmin); err != nil {
		return nil, err
	}
	if dash.Clients, err = s.users.CountByRole(ctx, model.RoleClient); err != nil {
		return nil, err
	}
	if dash.Tasks, err = s.statusCounts(ctx, nil); err != nil {
		return nil, err
	}

	regions, err := s.regions.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range regions {
		region := &regions[i]
		stats := RegionStats{Code: region.Code, Name: region.Code.DisplayName()}

		assignment, err := s.regions.AssignmentForRegion(ctx, region.ID)
		switch {
		case err == nil:
			admin, aerr := s.users.GetByID(ctx, assignment.AdminID)
			if aerr == nil {
				stats.AdminUsername = admin.Username
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}

		if stats.Clients, err = s.users.CountClientsByRegion(ctx, region.Code.DisplayName()); err != nil {
			return nil, err
		}
		if stats.Tasks, err = s.tasks.CountByRegion(ctx, region.ID); err != nil {
			return nil, err
		}
		if stats.PendingReview, err = s.reports.CountPendingReview(ctx, region.ID); err != nil {
			return nil, err
		}
		dash.Regions = append(dash.Regions, stats)
	}

	recent, err := s.tasks.Recent(ctx, authz.TaskScope(caller), 10)
	if err != nil {
		return nil, err
	}
	dash.RecentTasks = taskResponses(recent)
	return dash, nil
}

func (s *dashboardService) ForAdmin(ctx context.Context, caller authz.Identity) (*AdminDashboard, error) {
	if !caller.IsAdmin() {
		return nil, authz.ErrRoleNotPermitted
	}
	if caller.RegionID == nil {
		return nil, authz.ErrUnassigned
	}

	dash := &AdminDashboard{Region: caller.Region}

	var err error
	if dash.Clients, err = s.users.CountClientsByRegion(ctx, caller.Region); err != nil {
		return nil, err
	}
	if dash.Tasks, err = s.statusCounts(ctx, caller.RegionID); err != nil {
		return nil, err
	}
	if dash.PendingReview, err = s.reports.CountPendingReview(ctx, *caller.RegionID); err != nil {
		return nil, err
	}

	recent, err := s.tasks.Recent(ctx, authz.TaskScope(caller), 10)
	if err != nil {
		return nil, err
	}
	dash.RecentTasks = taskResponses(recent)
	return dash, nil
}

func (s *dashboardService) ForClient(ctx context.Context, caller authz.Identity) (*ClientDashboard, error) {
	if !caller.IsClient() {
		return nil, authz.ErrRoleNotPermitted
	}

	dash := &ClientDashboard{}

	for _, st := range []struct {
		status model.TaskStatus
		dest   *int64
	}{
		{model.TaskStatusPending, &dash.Tasks.Pending},
		{model.TaskStatusInProgress, &dash.Tasks.InProgress},
		{model.TaskStatusCompleted, &dash.Tasks.Completed},
		{model.TaskStatusApproved, &dash.Tasks.Approved},
		{model.TaskStatusRejected, &dash.Tasks.Rejected},
	} {
		n, err := s.tasks.CountAssignedTo(ctx, caller.ID, []model.TaskStatus{st.status})
		if err != nil {
			return nil, err
		}
		*st.dest = n
	}
	dash.Tasks.Total = dash.Tasks.Pending + dash.Tasks.InProgress + dash.Tasks.Completed +
		dash.Tasks.Approved + dash.Tasks.Rejected

	upcoming, err := s.tasks.UpcomingForClient(ctx, caller.ID, 5)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range upcoming {
		if upcoming[i].Overdue(now) {
			dash.Overdue++
		}
	}
	dash.Upcoming = taskResponses(upcoming)
	return dash, nil
}
