package repository

import (
	"context"

	"fieldtasks/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegionRepository defines data access for the region directory and the
// admin-region assignments.
type RegionRepository interface {
	Create(ctx context.Context, region *model.Region) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Region, error)
	GetByCode(ctx context.Context, code model.RegionCode) (*model.Region, error)
	List(ctx context.Context) ([]model.Region, error)
	Update(ctx context.Context, region *model.Region) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateAssignment(ctx context.Context, assignment *model.RegionAssignment) error
	AssignmentForAdmin(ctx context.Context, adminID uuid.UUID) (*model.RegionAssignment, error)
	AssignmentForRegion(ctx context.Context, regionID uuid.UUID) (*model.RegionAssignment, error)
	DeleteAssignmentForAdmin(ctx context.Context, adminID uuid.UUID) error
	CountAssignmentsForRegion(ctx context.Context, regionID uuid.UUID) (int64, error)
}

type regionRepository struct {
	db *gorm.DB
}

// NewRegionRepository returns a new instance of RegionRepository
func NewRegionRepository(db *gorm.DB) RegionRepository {
	return &regionRepository{db: db}
}

func (r *regionRepository) Create(ctx context.Context, region *model.Region) error {
	return GetDB(ctx, r.db).Create(region).Error
}

func (r *regionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Region, error) {
	var region model.Region
	if err := GetDB(ctx, r.db).First(&region, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

func (r *regionRepository) GetByCode(ctx context.Context, code model.RegionCode) (*model.Region, error) {
	var region model.Region
	if err := GetDB(ctx, r.db).First(&region, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

func (r *regionRepository) List(ctx context.Context) ([]model.Region, error) {
	var regions []model.Region
	if err := GetDB(ctx, r.db).Order("created_at ASC").Find(&regions).Error; err != nil {
		return nil, err
	}
	return regions, nil
}

func (r *regionRepository) Update(ctx context.Context, region *model.Region) error {
	return GetDB(ctx, r.db).Save(region).Error
}

// Delete removes a region. Cascade order: assignments first, then the
// region row itself. Tasks referencing the region block deletion at the
// service layer.
func (r *regionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("region_id = ?", id).Delete(&model.RegionAssignment{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Region{}).Error
}

func (r *regionRepository) CreateAssignment(ctx context.Context, assignment *model.RegionAssignment) error {
	return GetDB(ctx, r.db).Create(assignment).Error
}

func (r *regionRepository) AssignmentForAdmin(ctx context.Context, adminID uuid.UUID) (*model.RegionAssignment, error) {
	var assignment model.RegionAssignment
	err := GetDB(ctx, r.db).Preload("Region").First(&assignment, "admin_id = ?", adminID).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *regionRepository) AssignmentForRegion(ctx context.Context, regionID uuid.UUID) (*model.RegionAssignment, error) {
	var assignment model.RegionAssignment
	err := GetDB(ctx, r.db).Preload("Region").First(&assignment, "region_id = ?", regionID).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *regionRepository) DeleteAssignmentForAdmin(ctx context.Context, adminID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("admin_id = ?", adminID).Delete(&model.RegionAssignment{}).Error
}

func (r *regionRepository) CountAssignmentsForRegion(ctx context.Context, regionID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.RegionAssignment{}).
		Where("region_id = ?", regionID).Count(&count).Error
	return count, err
}
