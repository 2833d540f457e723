package repository

import (
	"context"
	"time"

	"fieldtasks/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskFilter narrows task listings on top of the caller's scope.
type TaskFilter struct {
	Status   model.TaskStatus
	RegionID *uuid.UUID
	Page     int
	Limit    int
}

// TaskRepository defines data access for tasks. UpdateStatus implements
// the compare-and-set discipline: the expected statuses sit in the WHERE
// clause and the caller checks the reported row count, so two concurrent
// transitions on the same task cannot both win.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	GetByIDWithReports(ctx context.Context, id uuid.UUID) (*model.Task, error)
	List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter TaskFilter) ([]model.Task, int64, error)
	Update(ctx context.Context, task *model.Task) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from []model.TaskStatus, to model.TaskStatus, completedAt *time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAssignedTo(ctx context.Context, clientID uuid.UUID) error
	CountByStatus(ctx context.Context, statuses []model.TaskStatus, regionID *uuid.UUID) (int64, error)
	CountAssignedTo(ctx context.Context, clientID uuid.UUID, statuses []model.TaskStatus) (int64, error)
	CountByRegion(ctx context.Context, regionID uuid.UUID) (int64, error)
	Recent(ctx context.Context, scope func(*gorm.DB) *gorm.DB, limit int) ([]model.Task, error)
	UpcomingForClient(ctx context.Context, clientID uuid.UUID, limit int) ([]model.Task, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository returns a new instance of TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return GetDB(ctx, r.db).Create(task).Error
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := GetDB(ctx, r.db).Preload("Region").Preload("AssignedBy").Preload("AssignedTo").
		First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) GetByIDWithReports(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := GetDB(ctx, r.db).Preload("Region").Preload("AssignedBy").Preload("AssignedTo").
		Preload("Reports", func(db *gorm.DB) *gorm.DB {
			return db.Order("submitted_at DESC")
		}).
		First(&task, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter TaskFilter) ([]model.Task, int64, error) {
	var tasks []model.Task
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Task{}).Scopes(scope)
	if filter.Status != "" {
		query = query.Where("tasks.status = ?", filter.Status)
	}
	if filter.RegionID != nil {
		query = query.Where("tasks.region_id = ?", *filter.RegionID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	fetch := db.Preload("Region").Preload("AssignedBy").Preload("AssignedTo").Scopes(scope)
	if filter.Status != "" {
		fetch = fetch.Where("tasks.status = ?", filter.Status)
	}
	if filter.RegionID != nil {
		fetch = fetch.Where("tasks.region_id = ?", *filter.RegionID)
	}
	if err := fetch.Order("tasks.created_at DESC").Offset(offset).Limit(filter.Limit).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	return GetDB(ctx, r.db).Save(task).Error
}

// UpdateStatus transitions the task only if its current status is one of
// from. Returns false when the precondition failed (status already moved,
// or the row is gone).
func (r *taskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []model.TaskStatus, to model.TaskStatus, completedAt *time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}

	res := GetDB(ctx, r.db).Model(&model.Task{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes the task and its reports. Cascade order: reports first.
func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("task_id = ?", id).Delete(&model.TaskReport{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Task{}).Error
}

// DeleteAssignedTo removes every task assigned to a client together with
// the tasks' reports. Used by the user-deletion cascade.
func (r *taskRepository) DeleteAssignedTo(ctx context.Context, clientID uuid.UUID) error {
	db := GetDB(ctx, r.db)
	var ids []uuid.UUID
	if err := db.Model(&model.Task{}).Where("assigned_to_id = ?", clientID).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := db.Where("task_id IN ?", ids).Delete(&model.TaskReport{}).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", ids).Delete(&model.Task{}).Error
}

func (r *taskRepository) CountByStatus(ctx context.Context, statuses []model.TaskStatus, regionID *uuid.UUID) (int64, error) {
	var count int64
	query := GetDB(ctx, r.db).Model(&model.Task{}).Where("status IN ?", statuses)
	if regionID != nil {
		query = query.Where("region_id = ?", *regionID)
	}
	err := query.Count(&count).Error
	return count, err
}

func (r *taskRepository) CountAssignedTo(ctx context.Context, clientID uuid.UUID, statuses []model.TaskStatus) (int64, error) {
	var count int64
	query := GetDB(ctx, r.db).Model(&model.Task{}).Where("assigned_to_id = ?", clientID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	err := query.Count(&count).Error
	return count, err
}

func (r *taskRepository) CountByRegion(ctx context.Context, regionID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Task{}).Where("region_id = ?", regionID).Count(&count).Error
	return count, err
}

func (r *taskRepository) Recent(ctx context.Context, scope func(*gorm.DB) *gorm.DB, limit int) ([]model.Task, error) {
	var tasks []model.Task
	err := GetDB(ctx, r.db).Preload("Region").Scopes(scope).
		Order("tasks.updated_at DESC").Limit(limit).Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) UpcomingForClient(ctx context.Context, clientID uuid.UUID, limit int) ([]model.Task, error) {
	var tasks []model.Task
	err := GetDB(ctx, r.db).
		Where("assigned_to_id = ? AND status IN ?", clientID,
			[]model.TaskStatus{model.TaskStatusPending, model.TaskStatusInProgress}).
		Order("deadline ASC").Limit(limit).Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
