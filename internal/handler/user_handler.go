package handler

import (
	"net/http"

	"fieldtasks/internal/middleware"
	"fieldtasks/internal/model"
	"fieldtasks/internal/service"
	"fieldtasks/pkg/pagination"
	"fieldtasks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserHandler struct {
	userService service.UserService
}

// NewUserHandler sets up the routing dependencies for User endpoints
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users", middleware.RequireAuth())
	{
		users.POST("", middleware.RequireRole(model.RoleSuperAdmin), h.CreateUser)
		users.GET("", middleware.RequireRole(model.RoleSuperAdmin, model.RoleAdmin), h.ListUsers)
		users.GET("/clients", middleware.RequireRole(model.RoleSuperAdmin, model.RoleAdmin), h.ListClients)
		users.GET("/:id", h.GetUserByID)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", middleware.RequireRole(model.RoleSuperAdmin), h.DeleteUser)
	}
}

// CreateUser handles POST /users requests mapping
// @Summary      Create a new user
// @Description  Creates a superadmin, admin, or client. Admins require a free region.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateUserRequest  true  "Create User Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), identity, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// ListUsers returns the users visible to the caller
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Page size"
// @Success      200    {object}  response.Response
// @Router       /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	params := pagination.Parse(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), identity, params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   users,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// ListClients returns the clients in the caller's scope, for task assignment pickers
func (h *UserHandler) ListClients(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	clients, err := h.userService.ListClients(c.Request.Context(), identity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, clients))
}

// GetUserByID returns one user if the caller may see them
func (h *UserHandler) GetUserByID(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid user id")
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), identity, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// UpdateUser updates profile fields. Non-superadmins may only update themselves.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid user id")
		return
	}

	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), identity, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// DeleteUser removes a user; deleting a client takes their tasks and reports with them
// @Summary      Delete user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid user id")
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), identity, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "user deleted"}))
}
