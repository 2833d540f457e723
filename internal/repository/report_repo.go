package repository

import (
	"context"
	"time"

	"fieldtasks/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportRepository defines data access for task reports. MarkReviewed is
// write-once: the reviewed_at IS NULL guard sits in the WHERE clause, so
// a second review of the same report affects zero rows.
type ReportRepository interface {
	Create(ctx context.Context, report *model.TaskReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.TaskReport, error)
	List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, taskID *uuid.UUID, page, limit int) ([]model.TaskReport, int64, error)
	MarkReviewed(ctx context.Context, id uuid.UUID, reviewerID uuid.UUID, reviewedAt time.Time, feedback string) (bool, error)
	CountPendingReview(ctx context.Context, regionID uuid.UUID) (int64, error)
	Recent(ctx context.Context, scope func(*gorm.DB) *gorm.DB, limit int) ([]model.TaskReport, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository returns a new instance of ReportRepository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.TaskReport) error {
	return GetDB(ctx, r.db).Create(report).Error
}

func (r *reportRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TaskReport, error) {
	var report model.TaskReport
	if err := GetDB(ctx, r.db).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, taskID *uuid.UUID, page, limit int) ([]model.TaskReport, int64, error) {
	var reports []model.TaskReport
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.TaskReport{}).Scopes(scope)
	if taskID != nil {
		query = query.Where("task_reports.task_id = ?", *taskID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Scopes(scope)
	if taskID != nil {
		fetch = fetch.Where("task_reports.task_id = ?", *taskID)
	}
	if err := fetch.Order("task_reports.submitted_at DESC").Offset(offset).Limit(limit).Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

// MarkReviewed stamps the review fields only when the report has not been
// reviewed yet. Returns false when another review already won.
func (r *reportRepository) MarkReviewed(ctx context.Context, id uuid.UUID, reviewerID uuid.UUID, reviewedAt time.Time, feedback string) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.TaskReport{}).
		Where("id = ? AND reviewed_at IS NULL", id).
		Updates(map[string]interface{}{
			"reviewed_by": reviewerID,
			"reviewed_at": reviewedAt,
			"feedback":    feedback,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *reportRepository) CountPendingReview(ctx context.Context, regionID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.TaskReport{}).
		Joins("JOIN tasks ON tasks.id = task_reports.task_id").
		Where("tasks.region_id = ? AND task_reports.reviewed_at IS NULL", regionID).
		Count(&count).Error
	return count, err
}

func (r *reportRepository) Recent(ctx context.Context, scope func(*gorm.DB) *gorm.DB, limit int) ([]model.TaskReport, error) {
	var reports []model.TaskReport
	err := GetDB(ctx, r.db).Scopes(scope).
		Order("task_reports.submitted_at DESC").Limit(limit).Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}
