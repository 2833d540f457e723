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

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateRegionRequest struct {
	Code        string `json:"code" binding:"required"`
	Description string `json:"description"`
}

type UpdateRegionRequest struct {
	Description string `json:"description" binding:"required"`
}

type AssignAdminRequest struct {
	AdminID    string `json:"admin_id" binding:"required"`
	RegionCode string `json:"region_code" binding:"required"`
}

type RegionResponse struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	CreatedAt   string    `json:"created_at"`
}

// RegionService is the region directory: the canonical list of regions and
// the one administrator bound to each. ResolveRegion fails with NotFound
// for codes outside the fixed enumeration; RegionForAdmin fails with
// Unassigned when the admin has no binding — the two outcomes are distinct.
type RegionService interface {
	ListRegions(ctx context.Context) ([]RegionResponse, error)
	ResolveRegion(ctx context.Context, code model.RegionCode) (*RegionResponse, error)
	RegionForAdmin(ctx context.Context, adminID uuid.UUID) (*RegionResponse, error)
	CreateRegion(ctx context.Context, caller authz.Identity, req CreateRegionRequest) (*RegionResponse, error)
	UpdateRegion(ctx context.Context, caller authz.Identity, code model.RegionCode, req UpdateRegionRequest) (*RegionResponse, error)
	DeleteRegion(ctx context.Context, caller authz.Identity, code model.RegionCode) error
	AssignAdmin(ctx context.Context, caller authz.Identity, req AssignAdminRequest) error
}

type regionService struct {
	regions repository.RegionRepository
	users   repository.UserRepository
	tasks   repository.TaskRepository
	audit   repository.AuditRepository
	txm     repository.TransactionManager
}

// NewRegionService returns a new instance of RegionService
func NewRegionService(
	regions repository.RegionRepository,
	users repository.UserRepository,
	tasks repository.TaskRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
) RegionService {
	return &regionService{regions: regions, users: users, tasks: tasks, audit: audit, txm: txm}
}

func toRegionResponse(region *model.Region) *RegionResponse {
	return &RegionResponse{
		ID:          region.ID,
		Code:        string(region.Code),
		DisplayName: region.Code.DisplayName(),
		Description: region.Description,
		CreatedAt:   region.CreatedAt.Format(time.RFC3339),
	}
}

func (s *regionService) ListRegions(ctx context.Context) ([]RegionResponse, error) {
	regions, err := s.regions.List(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]RegionResponse, 0, len(regions))
	for i := range regions {
		responses = append(responses, *toRegionResponse(&regions[i]))
	}
	return responses, nil
}

func (s *regionService) ResolveRegion(ctx context.Context, code model.RegionCode) (*RegionResponse, error) {
	if !code.Valid() {
		return nil, authz.ErrNotFound
	}
	region, err := s.regions.GetByCode(ctx, code)
	if err != nil {
		return nil, authz.ErrNotFound
	}
	return toRegionResponse(region), nil
}

func (s *regionService) RegionForAdmin(ctx context.Context, adminID uuid.UUID) (*RegionResponse, error) {
	assignment, err := s.regions.AssignmentForAdmin(ctx, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.ErrUnassigned
		}
		return nil, err
	}
	return toRegionResponse(&assignment.Region), nil
}

func (s *regionService) CreateRegion(ctx context.Context, caller authz.Identity, req CreateRegionRequest) (*RegionResponse, error) {
	if err := authz.Authorize(caller, authz.ActionCreate, authz.ResourceRegion); err != nil {
		return nil, err
	}

	code := model.RegionCode(req.Code)
	if !code.Valid() {
		return nil, fmt.Errorf("code %q is outside the region enumeration", req.Code)
	}
	if _, err := s.regions.GetByCode(ctx, code); err == nil {
		return nil, fmt.Errorf("region %s already exists", code)
	}

	region := &model.Region{Code: code, Description: req.Description}
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.regions.Create(txCtx, region); err != nil {
			return err
		}
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     model.ActionCreateRegion,
			EntityID:   string(code),
			EntityName: code.DisplayName(),
		}
		return s.audit.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}
	return toRegionResponse(region), nil
}

func (s *regionService) UpdateRegion(ctx context.Context, caller authz.Identity, code model.RegionCode, req UpdateRegionRequest) (*RegionResponse, error) {
	if err := authz.Authorize(caller, authz.ActionUpdate, authz.ResourceRegion); err != nil {
		return nil, err
	}

	region, err := s.regions.GetByCode(ctx, code)
	if err != nil {
		return nil, authz.ErrNotFound
	}

	region.Description = req.Description
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.regions.Update(txCtx, region); err != nil {
			return err
		}
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     model.ActionUpdateRegion,
			EntityID:   string(code),
			EntityName: code.DisplayName(),
		}
		return s.audit.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}
	return toRegionResponse(region), nil
}

// DeleteRegion removes a region after its assignments. Regions that still
// carry tasks cannot be deleted.
func (s *regionService) DeleteRegion(ctx context.Context, caller authz.Identity, code model.RegionCode) error {
	if err := authz.Authorize(caller, authz.ActionDelete, authz.ResourceRegion); err != nil {
		return err
	}

	region, err := s.regions.GetByCode(ctx, code)
	if err != nil {
		return authz.ErrNotFound
	}

	taskCount, err := s.tasks.CountByRegion(ctx, region.ID)
	if err != nil {
		return err
	}
	if taskCount > 0 {
		return fmt.Errorf("region %s still has %d tasks", code, taskCount)
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.regions.Delete(txCtx, region.ID); err != nil {
			return err
		}
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     model.ActionDeleteRegion,
			EntityID:   string(code),
			EntityName: code.DisplayName(),
		}
		return s.audit.Log(txCtx, entry)
	})
}

// AssignAdmin binds an admin to a region, strictly 1:1 in both directions.
// Re-assigning an admin replaces their previous binding; a region that
// already has a different admin rejects the assignment.
func (s *regionService) AssignAdmin(ctx context.Context, caller authz.Identity, req AssignAdminRequest) error {
	if err := authz.Authorize(caller, authz.ActionCreate, authz.ResourceRegion); err != nil {
		return err
	}

	adminID, err := uuid.Parse(req.AdminID)
	if err != nil {
		return fmt.Errorf("invalid admin id: %w", err)
	}

	admin, err := s.users.GetByID(ctx, adminID)
	if err != nil {
		return authz.ErrNotFound
	}
	if admin.Role != model.RoleAdmin {
		return fmt.Errorf("user %s is not an admin", admin.Username)
	}

	code := model.RegionCode(req.RegionCode)
	if !code.Valid() {
		return authz.ErrNotFound
	}
	region, err := s.regions.GetByCode(ctx, code)
	if err != nil {
		return authz.ErrNotFound
	}

	if existing, err := s.regions.AssignmentForRegion(ctx, region.ID); err == nil && existing.AdminID != adminID {
		return fmt.Errorf("region %s already has an administrator", code)
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.regions.DeleteAssignmentForAdmin(txCtx, adminID); err != nil {
			return err
		}
		assignment := &model.RegionAssignment{AdminID: adminID, RegionID: region.ID}
		if err := s.regions.CreateAssignment(txCtx, assignment); err != nil {
			return err
		}

		admin.Region = code.DisplayName()
		if err := s.users.Update(txCtx, admin); err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{
			"admin":  admin.Username,
			"region": code,
		})
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     model.ActionAssignRegion,
			EntityID:   adminID.String(),
			EntityName: admin.Username,
			Details:    string(details),
		}
		return s.audit.Log(txCtx, entry)
	})
}
