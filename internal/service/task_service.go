package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fieldtasks/internal/authz"
	"fieldtasks/internal/model"
	"fieldtasks/internal/repository"
	ws "fieldtasks/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateTaskRequest struct {
	Title           string    `json:"title" binding:"required"`
	Description     string    `json:"description"`
	RegionCode      string    `json:"region_code" binding:"required"`
	GroupID         string    `json:"group_id"`
	SiteName        string    `json:"site_name"`
	Cluster         string    `json:"cluster"`
	ServiceEngineer string    `json:"service_engineer"`
	ServiceTypes    []string  `json:"service_types"`
	Required        *bool     `json:"required"`
	AssignedTo      string    `json:"assigned_to" binding:"required"`
	Deadline        time.Time `json:"deadline" binding:"required"`
}

type UpdateTaskRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	GroupID         string     `json:"group_id"`
	SiteName        string     `json:"site_name"`
	Cluster         string     `json:"cluster"`
	ServiceEngineer string     `json:"service_engineer"`
	ServiceTypes    []string   `json:"service_types"`
	Deadline        *time.Time `json:"deadline"`
}

type TaskListFilter struct {
	Status     string
	RegionCode string
	Page       int
	Limit      int
}

type TaskResponse struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	RegionCode      string    `json:"region_code"`
	RegionName      string    `json:"region_name"`
	GroupID         string    `json:"group_id"`
	SiteName        string    `json:"site_name"`
	Cluster         string    `json:"cluster"`
	ServiceEngineer string    `json:"service_engineer"`
	ServiceTypes    []string  `json:"service_types"`
	Required        bool      `json:"required"`
	AssignedByID    uuid.UUID `json:"assigned_by_id"`
	AssignedByName  string    `json:"assigned_by_name"`
	AssignedToID    uuid.UUID `json:"assigned_to_id"`
	AssignedToName  string    `json:"assigned_to_name"`
	Deadline        string    `json:"deadline"`
	CompletedAt     *string   `json:"completed_at"`
	Status          string    `json:"status"`
	Overdue         bool      `json:"overdue"`
	CreatedAt       string    `json:"created_at"`
	UpdatedAt       string    `json:"updated_at"`
}

type TaskDetailResponse struct {
	TaskResponse
	Reports []ReportResponse `json:"reports"`
}

// TaskService owns the task state machine:
//
//	Pending -> InProgress -> Completed -> Approved (terminal)
//	                                   -> Rejected (resubmission allowed)
//
// Every transition is a compare-and-set: the status precondition rides in
// the UPDATE's WHERE clause, so concurrent callers race safely and the
// loser observes InvalidTransition.
type TaskService interface {
	CreateTask(ctx context.Context, caller authz.Identity, req CreateTaskRequest) (*TaskResponse, error)
	GetTask(ctx context.Context, caller authz.Identity, id uuid.UUID) (*TaskDetailResponse, error)
	ListTasks(ctx context.Context, caller authz.Identity, filter TaskListFilter) ([]TaskResponse, int64, error)
	UpdateTask(ctx context.Context, caller authz.Identity, id uuid.UUID, req UpdateTaskRequest) (*TaskResponse, error)
	DeleteTask(ctx context.Context, caller authz.Identity, id uuid.UUID) error
	MarkInProgress(ctx context.Context, caller authz.Identity, id uuid.UUID) (*TaskResponse, error)
	MarkCompleted(ctx context.Context, caller authz.Identity, id uuid.UUID) (*TaskResponse, error)
	Approve(ctx context.Context, caller authz.Identity, id uuid.UUID) (*TaskResponse, error)
	Reject(ctx context.Context, caller authz.Identity, id uuid.UUID) (*TaskResponse, error)
}

type taskService struct {
	tasks   repository.TaskRepository
	users   repository.UserRepository
	regions repository.RegionRepository
	audit   repository.AuditRepository
	txm     repository.TransactionManager
	hub     *ws.Hub // optional, nil in tests
}

// NewTaskService returns a new instance of TaskService
func NewTaskService(
	tasks repository.TaskRepository,
	users repository.UserRepository,
	regions repository.RegionRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	hub *ws.Hub,
) TaskService {
	return &taskService{tasks: tasks, users: users, regions: regions, audit: audit, txm: txm, hub: hub}
}

func toTaskResponse(t *model.Task) *TaskResponse {
	resp := &TaskResponse{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		RegionCode:      string(t.Region.Code),
		RegionName:      t.Region.Code.DisplayName(),
		GroupID:         t.GroupID,
		SiteName:        t.SiteName,
		Cluster:         t.Cluster,
		ServiceEngineer: t.ServiceEngineer,
		ServiceTypes:    t.ServiceTypes,
		Required:        t.Required,
		AssignedByID:    t.AssignedByID,
		AssignedByName:  t.AssignedBy.Username,
		AssignedToID:    t.AssignedToID,
		AssignedToName:  t.AssignedTo.Username,
		Deadline:        t.Deadline.Format(time.RFC3339),
		Status:          string(t.Status),
		Overdue:         t.Overdue(time.Now()),
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       t.UpdatedAt.Format(time.RFC3339),
	}
	if t.CompletedAt != nil {
		s := t.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

func taskResponses(tasks []model.Task) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		responses = append(responses, *toTaskResponse(&tasks[i]))
	}
	return responses
}

// notify broadcasts a task lifecycle event to connected dashboards.
func (s *taskService) notify(event string, t *model.Task) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":    "task_event",
		"event":   event,
		"task_id": t.ID.String(),
		"title":   t.Title,
		"status":  t.Status,
		"region":  t.Region.Code,
	})
	if err != nil {
		return
	}
	select {
	case s.hub.Broadcast <- payload:
	default:
	}
}

// loadVisible fetches a task and applies the caller's visibility
// predicate. Hidden and missing tasks are indistinguishable: both yield
// NotFound.
func (s *taskService) loadVisible(ctx context.Context, caller authz.Identity, id uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.ErrNotFound
		}
		return nil, err
	}
	if !authz.TaskVisible(caller, task) {
		return nil, authz.ErrNotFound
	}
	return task, nil
}

func (s *taskService) CreateTask(ctx context.Context, caller authz.Identity, req CreateTaskRequest) (*TaskResponse, error) {
	if err := authz.Authorize(caller, authz.ActionCreate, authz.ResourceTask); err != nil {
		return nil, err
	}

	code := model.RegionCode(req.RegionCode)
	if !code.Valid() {
		return nil, authz.ErrNotFound
	}
	region, err := s.regions.GetByCode(ctx, code)
	if err != nil {
		return nil, authz.ErrNotFound
	}

	// Admins create tasks only inside their own region, rejected before
	// any row is written.
	if caller.IsAdmin() {
		if caller.RegionID == nil || *caller.RegionID != region.ID {
			return nil, authz.ErrOutOfScope
		}
	}

	assigneeID, err := uuid.Parse(req.AssignedTo)
	if err != nil {
		return nil, fmt.Errorf("invalid assigned_to: %w", err)
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, authz.ErrNotFound
	}
	if assignee.Role != model.RoleClient {
		return nil, fmt.Errorf("tasks can only be assigned to clients")
	}
	// Region match between assignee and task is enforced for admins, not
	// for the superadmin.
	if caller.IsAdmin() && assignee.Region != region.Code.DisplayName() {
		return nil, authz.ErrOutOfScope
	}

	required := true
	if req.Required != nil {
		required = *req.Required
	}

	task := &model.Task{
		Title:           req.Title,
		Description:     req.Description,
		RegionID:        region.ID,
		Region:          *region,
		GroupID:         req.GroupID,
		SiteName:        req.SiteName,
		Cluster:         req.Cluster,
		ServiceEngineer: req.ServiceEngineer,
		ServiceTypes:    req.ServiceTypes,
		Required:        required,
		AssignedByID:    caller.ID,
		AssignedToID:    assignee.ID,
		AssignedTo:      *assignee,
		Deadline:        req.Deadline,
		Status:          model.TaskStatusPending,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tasks.Create(txCtx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		details, _ := json.Marshal(map[string]interface{}{
			"region":      region.Code,
			"assigned_to": assignee.Username,
			"deadline":    req.Deadline,
		})
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     model.ActionCreateTask,
			EntityID:   task.ID.String(),
			EntityName: task.Title,
			Details:    string(details),
		}
		return s.audit.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.notify("assigned", task)
	return toTaskResponse(task), nil
}

func (s *taskService) GetTask(ctx context.Context, caller authz.Identity, id uuid.UUID) (*TaskDetailResponse, error) {
	task, err := s.tasks.GetByIDWithReports(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.ErrNotFound
		}
		return nil, err
	}
	if !authz.TaskVisible(caller, task) {
		return nil, authz.ErrNotFound
	}

	detail := &TaskDetailResponse{TaskResponse: *toTaskResponse(task)}
	detail.Reports = make([]ReportResponse, 0, len(task.Reports))
	for i := range task.Reports {
		detail.Reports = append(detail.Reports, *toReportResponse(&task.Reports[i]))
	}
	return detail, nil
}

func (s *taskService) ListTasks(ctx context.Context, caller authz.Identity, filter TaskListFilter) ([]TaskResponse, int64, error) {
	if err := authz.Authorize(caller, authz.ActionList, authz.ResourceTask); err != nil {
		return nil, 0, err
	}

	repoFilter := repository.TaskFilter{
		Status: model.TaskStatus(filter.Status),
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if repoFilter.Page <= 0 {
		repoFilter.Page = 1
	}
	if repoFilter.Limit <= 0 {
		repoFilter.Limit = 20
	}
	if filter.RegionCode != "" {
		region, err := s.regions.GetByCode(ctx, model.RegionCode(filter.RegionCode))
		if err != nil {
			return nil, 0, authz.ErrNotFound
		}
		repoFilter.RegionID = &region.ID
	}

	tasks, total, err := s.tasks.List(ctx, authz.TaskScope(caller), repoFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		responses = append(responses, *toTaskResponse(&tasks[i]))
	}
	return responses, total, nil
}

func (s *taskService) UpdateTask(ctx context.Context, caller authz.Identity, id uuid.UUID, req UpdateTaskRequest) (*TaskResponse, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.ErrNotFound
		}
		return nil, err
	}
	if err := authz.AuthorizeTask(caller, authz.ActionUpdate, task); err != nil {
		return nil, err
	}

	if req.Title != "" {
		task.Title = req.Title
	}
	if req.Description != "" {
		task.Description = req.Description
	}
	if req.GroupID != "" {
		task.GroupID = req.GroupID
	}
	if req.SiteName != "" {
		task.SiteName = req.SiteName
	}
	if req.Cluster != "" {
		task.Cluster = req.Cluster
	}
	if req.ServiceEngineer != "" {
		task.ServiceEngineer = req.ServiceEngineer
	}
	if req.ServiceTypes != nil {
		task.ServiceTypes = req.ServiceTypes
	}
	if req.Deadline != nil {
		task.Deadline = *req.Deadline
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tasks.Update(txCtx, task); err != nil {
			return err
		}
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     model.ActionUpdateTask,
			EntityID:   task.ID.String(),
			EntityName: task.Title,
		}
		return s.audit.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}
	return toTaskResponse(task), nil
}

func (s *taskService) DeleteTask(ctx context.Context, caller authz.Identity, id uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.ErrNotFound
		}
		return err
	}
	if err := authz.AuthorizeTask(caller, authz.ActionDelete, task); err != nil {
		return err
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tasks.Delete(txCtx, task.ID); err != nil {
			return err
		}
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     model.ActionDeleteTask,
			EntityID:   task.ID.String(),
			EntityName: task.Title,
		}
		return s.audit.Log(txCtx, entry)
	})
}

// transition applies one compare-and-set status change together with its
// audit entry in a single transaction, then reloads the task.
func (s *taskService) transition(ctx context.Context, caller authz.Identity, task *model.Task, from []model.TaskStatus, to model.TaskStatus, action string, completedAt *time.Time) (*model.Task, error) {
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		moved, err := s.tasks.UpdateStatus(txCtx, task.ID, from, to, completedAt)
		if err != nil {
			return err
		}
		if !moved {
			return authz.ErrInvalidTransition
		}
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     action,
			EntityID:   task.ID.String(),
			EntityName: task.Title,
		}
		return s.audit.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}
	return s.tasks.GetByID(ctx, task.ID)
}

// MarkInProgress: assignee or an admin/superadmin holding the task in
// scope; re-entry is permitted from every non-terminal status.
func (s *taskService) MarkInProgress(ctx context.Context, caller authz.Identity, id uuid.UUID) (*TaskResponse, error) {
	task, err := s.loadVisible(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case model.RoleSuperAdmin, model.RoleAdmin:
		// in scope, permitted
	case model.RoleClient:
		if task.AssignedToID != caller.ID {
			return nil, authz.ErrNotAssignee
		}
	default:
		return nil, authz.ErrRoleNotPermitted
	}

	from := []model.TaskStatus{
		model.TaskStatusPending,
		model.TaskStatusInProgress,
		model.TaskStatusCompleted,
		model.TaskStatusRejected,
	}
	updated, err := s.transition(ctx, caller, task, from, model.TaskStatusInProgress, model.ActionTaskInProgress, nil)
	if err != nil {
		return nil, err
	}
	s.notify("in_progress", updated)
	return toTaskResponse(updated), nil
}

// MarkCompleted: only the assignee, from Pending, InProgress or Rejected.
// Stamps completed_at in the same write as the status change.
func (s *taskService) MarkCompleted(ctx context.Context, caller authz.Identity, id uuid.UUID) (*TaskResponse, error) {
	task, err := s.loadVisible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if task.AssignedToID != caller.ID {
		return nil, authz.ErrNotAssignee
	}

	now := time.Now()
	from := []model.TaskStatus{
		model.TaskStatusPending,
		model.TaskStatusInProgress,
		model.TaskStatusRejected,
	}
	updated, err := s.transition(ctx, caller, task, from, model.TaskStatusCompleted, model.ActionTaskCompleted, &now)
	if err != nil {
		return nil, err
	}
	s.notify("completed", updated)
	return toTaskResponse(updated), nil
}

// reviewGuard gates approve/reject: admin with the task in scope, or the
// superadmin. Clients are denied at the role level.
func reviewGuard(caller authz.Identity, task *model.Task) error {
	switch caller.Role {
	case model.RoleSuperAdmin:
		return nil
	case model.RoleAdmin:
		if !authz.TaskVisible(caller, task) {
			return authz.ErrOutOfScope
		}
		return nil
	case model.RoleClient:
		return authz.ErrRoleNotPermitted
	}
	return authz.ErrRoleNotPermitted
}

// Approve: Completed -> Approved, the terminal state.
func (s *taskService) Approve(ctx context.Context, caller authz.Identity, id uuid.UUID) (*TaskResponse, error) {
	task, err := s.loadVisible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := reviewGuard(caller, task); err != nil {
		return nil, err
	}

	from := []model.TaskStatus{model.TaskStatusCompleted}
	updated, err := s.transition(ctx, caller, task, from, model.TaskStatusApproved, model.ActionTaskApproved, nil)
	if err != nil {
		return nil, err
	}
	s.notify("approved", updated)
	return toTaskResponse(updated), nil
}

// Reject: Completed -> Rejected. The assignee may resubmit afterwards.
func (s *taskService) Reject(ctx context.Context, caller authz.Identity, id uuid.UUID) (*TaskResponse, error) {
	task, err := s.loadVisible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := reviewGuard(caller, task); err != nil {
		return nil, err
	}

	from := []model.TaskStatus{model.TaskStatusCompleted}
	updated, err := s.transition(ctx, caller, task, from, model.TaskStatusRejected, model.ActionTaskRejected, nil)
	if err != nil {
		return nil, err
	}
	s.notify("rejected", updated)
	return toTaskResponse(updated), nil
}
