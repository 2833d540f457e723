package service

import (
	"context"
	"testing"
	"time"

	"fieldtasks/internal/authz"
	"fieldtasks/internal/database"
	"fieldtasks/internal/model"
	"fieldtasks/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// fixture wires the full service stack onto an in-memory database with two
// regions, one admin, and a client on each side of the region boundary.
type fixture struct {
	db        *gorm.DB
	users     UserService
	tasks     TaskService
	reports   ReportService
	regions   RegionService
	auth      AuthService
	dashboard DashboardService

	tn *model.Region
	ap *model.Region

	sa       authz.Identity
	tnAdmin  authz.Identity
	tnClient authz.Identity
	apClient authz.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	userRepo := repository.NewUserRepository(db)
	regionRepo := repository.NewRegionRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txm := repository.NewTransactionManager(db)

	f := &fixture{db: db}
	f.users = NewUserService(userRepo, regionRepo, taskRepo, auditRepo, txm)
	f.regions = NewRegionService(regionRepo, userRepo, taskRepo, auditRepo, txm)
	f.tasks = NewTaskService(taskRepo, userRepo, regionRepo, auditRepo, txm, nil)
	f.reports = NewReportService(reportRepo, taskRepo, auditRepo, txm, nil)
	f.dashboard = NewDashboardService(userRepo, regionRepo, taskRepo, reportRepo)
	f.auth = NewAuthService(userRepo, db, []byte("test-secret"))

	f.tn = f.createRegion(t, model.RegionTamilNadu)
	f.ap = f.createRegion(t, model.RegionAndhraPradesh)

	f.sa = f.createUser(t, "superadmin", model.RoleSuperAdmin, "")
	f.tnAdmin = f.createAdmin(t, "tnadmin", f.tn)
	f.tnClient = f.createUser(t, "tamilclient1", model.RoleClient, f.tn.Code.DisplayName())
	f.apClient = f.createUser(t, "andhraclient1", model.RoleClient, f.ap.Code.DisplayName())
	return f
}

func (f *fixture) createRegion(t *testing.T, code model.RegionCode) *model.Region {
	t.Helper()
	region := &model.Region{Code: code}
	require.NoError(t, f.db.Create(region).Error)
	return region
}

func (f *fixture) createUser(t *testing.T, username string, role model.Role, region string) authz.Identity {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
		Role:     role,
		Region:   region,
	}
	require.NoError(t, f.db.Create(user).Error)
	return authz.Identity{ID: user.ID, Role: role, Region: region}
}

func (f *fixture) createAdmin(t *testing.T, username string, region *model.Region) authz.Identity {
	t.Helper()
	id := f.createUser(t, username, model.RoleAdmin, region.Code.DisplayName())
	require.NoError(t, f.db.Create(&model.RegionAssignment{
		AdminID:  id.ID,
		RegionID: region.ID,
	}).Error)
	id.RegionID = &region.ID
	return id
}

// unassignedAdmin is an admin account with no region binding.
func (f *fixture) unassignedAdmin(t *testing.T) authz.Identity {
	t.Helper()
	return f.createUser(t, "limboadmin", model.RoleAdmin, "")
}

// newTask creates a pending task through the service as the given caller.
func (f *fixture) newTask(t *testing.T, caller authz.Identity, region model.RegionCode, assignee authz.Identity) *TaskResponse {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), caller, CreateTaskRequest{
		Title:      "Fiber splice at site",
		RegionCode: string(region),
		AssignedTo: assignee.ID.String(),
		Deadline:   time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	return task
}

func (f *fixture) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.AuditLog{}).Where("action = ?", action).Count(&n).Error)
	return n
}
