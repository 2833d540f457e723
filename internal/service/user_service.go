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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation

type CreateUserRequest struct {
	Username   string `json:"username" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone"`
	Password   string `json:"password" binding:"required,min=6"`
	Role       string `json:"role" binding:"required,oneof=SUPERADMIN ADMIN CLIENT"`
	RegionCode string `json:"region_code"` // required for ADMIN, region label source for CLIENT
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	Region    string    `json:"region"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// UserService owns account provisioning and role-scoped account queries.
// Every method takes the caller's Identity explicitly; there is no ambient
// current-user state.
type UserService interface {
	CreateUser(ctx context.Context, caller authz.Identity, req CreateUserRequest) (*UserResponse, error)
	GetUser(ctx context.Context, caller authz.Identity, id uuid.UUID) (*UserResponse, error)
	GetMe(ctx context.Context, caller authz.Identity) (*UserResponse, error)
	ListUsers(ctx context.Context, caller authz.Identity, page, limit int) ([]UserResponse, int64, error)
	ListClients(ctx context.Context, caller authz.Identity) ([]UserResponse, error)
	UpdateUser(ctx context.Context, caller authz.Identity, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, caller authz.Identity, id uuid.UUID) error
}

type userService struct {
	users   repository.UserRepository
	regions repository.RegionRepository
	tasks   repository.TaskRepository
	audit   repository.AuditRepository
	txm     repository.TransactionManager
}

// NewUserService returns a new instance of UserService
func NewUserService(
	users repository.UserRepository,
	regions repository.RegionRepository,
	tasks repository.TaskRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
) UserService {
	return &userService{users: users, regions: regions, tasks: tasks, audit: audit, txm: txm}
}

// Helper: parse model to standard json API response
func toUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      string(user.Role),
		Region:    user.Region,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *userService) CreateUser(ctx context.Context, caller authz.Identity, req CreateUserRequest) (*UserResponse, error) {
	if err := authz.Authorize(caller, authz.ActionCreate, authz.ResourceUser); err != nil {
		return nil, err
	}

	role := model.Role(req.Role)
	if !role.Valid() {
		return nil, errors.New("invalid role: must be SUPERADMIN, ADMIN, or CLIENT")
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, errors.New("username already exists")
	}
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already exists")
	}

	var region *model.Region
	if req.RegionCode != "" {
		code := model.RegionCode(req.RegionCode)
		if !code.Valid() {
			return nil, authz.ErrNotFound
		}
		var err error
		region, err = s.regions.GetByCode(ctx, code)
		if err != nil {
			return nil, authz.ErrNotFound
		}
	}
	if role == model.RoleAdmin && region == nil {
		return nil, errors.New("region_code is required for admin accounts")
	}

	// One admin per region, enforced before provisioning the account.
	if role == model.RoleAdmin {
		if taken, err := s.regions.CountAssignmentsForRegion(ctx, region.ID); err != nil {
			return nil, err
		} else if taken > 0 {
			return nil, fmt.Errorf("region %s already has an administrator", region.Code)
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashedPassword),
		Role:     role,
	}
	if region != nil {
		user.Region = region.Code.DisplayName()
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		if role == model.RoleAdmin {
			assignment := &model.RegionAssignment{AdminID: user.ID, RegionID: region.ID}
			if err := s.regions.CreateAssignment(txCtx, assignment); err != nil {
				return fmt.Errorf("failed to assign region: %w", err)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"username": user.Username,
			"role":     user.Role,
			"region":   user.Region,
		})
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     model.ActionCreateUser,
			EntityID:   user.ID.String(),
			EntityName: user.Username,
			Details:    string(details),
		}
		return s.audit.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	return toUserResponse(user), nil
}

func (s *userService) GetUser(ctx context.Context, caller authz.Identity, id uuid.UUID) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, authz.ErrNotFound
	}
	// Hidden and missing rows are indistinguishable to the caller.
	if err := authz.AuthorizeUser(caller, authz.ActionRead, user); err != nil {
		if errors.Is(err, authz.ErrOutOfScope) {
			return nil, authz.ErrNotFound
		}
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *userService) GetMe(ctx context.Context, caller authz.Identity) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, authz.ErrNotFound
	}
	return toUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, caller authz.Identity, page, limit int) ([]UserResponse, int64, error) {
	if err := authz.Authorize(caller, authz.ActionList, authz.ResourceUser); err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	users, total, err := s.users.List(ctx, authz.UserScope(caller), page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *toUserResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) ListClients(ctx context.Context, caller authz.Identity) ([]UserResponse, error) {
	if err := authz.Authorize(caller, authz.ActionList, authz.ResourceUser); err != nil {
		return nil, err
	}

	clients, err := s.users.ListClients(ctx, authz.UserScope(caller))
	if err != nil {
		return nil, err
	}

	responses := make([]UserResponse, 0, len(clients))
	for i := range clients {
		responses = append(responses, *toUserResponse(&clients[i]))
	}
	return responses, nil
}

func (s *userService) UpdateUser(ctx context.Context, caller authz.Identity, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, authz.ErrNotFound
	}
	if err := authz.AuthorizeUser(caller, authz.ActionUpdate, user); err != nil {
		return nil, err
	}

	if req.Username != "" && req.Username != user.Username {
		if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
			return nil, errors.New("username already exists")
		}
		user.Username = req.Username
	}
	if req.Email != "" && req.Email != user.Email {
		if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
			return nil, errors.New("email already exists")
		}
		user.Email = req.Email
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return err
		}
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     model.ActionUpdateUser,
			EntityID:   user.ID.String(),
			EntityName: user.Username,
		}
		return s.audit.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	return toUserResponse(user), nil
}

// DeleteUser removes an account with its documented cascade: region
// assignment, then the client's tasks and their reports, then the user
// row itself (soft delete). All inside one transaction.
func (s *userService) DeleteUser(ctx context.Context, caller authz.Identity, id uuid.UUID) error {
	if err := authz.Authorize(caller, authz.ActionDelete, authz.ResourceUser); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.ErrNotFound
		}
		return err
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if user.Role == model.RoleClient {
			if err := s.tasks.DeleteAssignedTo(txCtx, user.ID); err != nil {
				return fmt.Errorf("failed to cascade tasks: %w", err)
			}
		}
		if err := s.users.Delete(txCtx, user.ID); err != nil {
			return err
		}
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     model.ActionDeleteUser,
			EntityID:   user.ID.String(),
			EntityName: user.Username,
		}
		return s.audit.Log(txCtx, entry)
	})
}
