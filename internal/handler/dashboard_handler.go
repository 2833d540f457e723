package handler

import (
	"net/http"

	"fieldtasks/internal/middleware"
	"fieldtasks/internal/service"
	"fieldtasks/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

// NewDashboardHandler sets up the routing dependencies for dashboard endpoints
func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard", middleware.RequireAuth(), h.GetDashboard)
}

// GetDashboard fans out to the role-specific view
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	ctx := c.Request.Context()

	var (
		data interface{}
		err  error
	)
	switch {
	case identity.IsSuperAdmin():
		data, err = h.dashboardService.ForSuperAdmin(ctx, identity)
	case identity.IsAdmin():
		data, err = h.dashboardService.ForAdmin(ctx, identity)
	default:
		data, err = h.dashboardService.ForClient(ctx, identity)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, data))
}
