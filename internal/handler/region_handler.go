package handler

import (
	"net/http"

	"fieldtasks/internal/middleware"
	"fieldtasks/internal/model"
	"fieldtasks/internal/service"
	"fieldtasks/pkg/response"

	"github.com/gin-gonic/gin"
)

type RegionHandler struct {
	regionService service.RegionService
}

// NewRegionHandler sets up the routing dependencies for Region endpoints
func NewRegionHandler(regionService service.RegionService) *RegionHandler {
	return &RegionHandler{regionService: regionService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *RegionHandler) RegisterRoutes(router *gin.RouterGroup) {
	regions := router.Group("/regions", middleware.RequireAuth())
	{
		regions.GET("", h.ListRegions)
		regions.GET("/mine", middleware.RequireRole(model.RoleAdmin), h.GetMyRegion)
		regions.GET("/:code", h.GetRegion)
		regions.POST("", middleware.RequireRole(model.RoleSuperAdmin), h.CreateRegion)
		regions.PUT("/:code", middleware.RequireRole(model.RoleSuperAdmin), h.UpdateRegion)
		regions.DELETE("/:code", middleware.RequireRole(model.RoleSuperAdmin), h.DeleteRegion)
		regions.POST("/assign", middleware.RequireRole(model.RoleSuperAdmin), h.AssignAdmin)
	}
}

// ListRegions returns the region directory. Every authenticated role may read it.
func (h *RegionHandler) ListRegions(c *gin.Context) {
	regions, err := h.regionService.ListRegions(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, regions))
}

// GetMyRegion returns the calling admin's own region binding
func (h *RegionHandler) GetMyRegion(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	region, err := h.regionService.RegionForAdmin(c.Request.Context(), identity.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, region))
}

// GetRegion resolves one region by code
func (h *RegionHandler) GetRegion(c *gin.Context) {
	region, err := h.regionService.ResolveRegion(c.Request.Context(), model.RegionCode(c.Param("code")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, region))
}

// CreateRegion registers a region from the known catalogue
func (h *RegionHandler) CreateRegion(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.CreateRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	region, err := h.regionService.CreateRegion(c.Request.Context(), identity, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, region))
}

// UpdateRegion changes a region's description. The code is immutable.
func (h *RegionHandler) UpdateRegion(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.UpdateRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	region, err := h.regionService.UpdateRegion(c.Request.Context(), identity, model.RegionCode(c.Param("code")), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, region))
}

// DeleteRegion removes a region that has no tasks
func (h *RegionHandler) DeleteRegion(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	if err := h.regionService.DeleteRegion(c.Request.Context(), identity, model.RegionCode(c.Param("code"))); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "region deleted"}))
}

// AssignAdmin binds an admin to a region, replacing any previous binding of that admin
// @Summary      Assign admin to region
// @Description  One admin per region and one region per admin; assigning replaces the admin's old binding.
// @Tags         regions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.AssignAdminRequest  true  "Assignment"
// @Success      200      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /regions/assign [post]
func (h *RegionHandler) AssignAdmin(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.AssignAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	if err := h.regionService.AssignAdmin(c.Request.Context(), identity, req); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "admin assigned"}))
}
