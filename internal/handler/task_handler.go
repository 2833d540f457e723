package handler

import (
	"net/http"

	"fieldtasks/internal/middleware"
	"fieldtasks/internal/service"
	"fieldtasks/pkg/pagination"
	"fieldtasks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskHandler struct {
	taskService service.TaskService
}

// NewTaskHandler sets up the routing dependencies for Task endpoints
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup.
// Role gates live in the services; routes only require authentication so
// every deny carries its reason code instead of a generic 403.
func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	tasks := router.Group("/tasks", middleware.RequireAuth())
	{
		tasks.POST("", h.CreateTask)
		tasks.GET("", h.ListTasks)
		tasks.GET("/:id", h.GetTask)
		tasks.PUT("/:id", h.UpdateTask)
		tasks.DELETE("/:id", h.DeleteTask)

		tasks.PUT("/:id/start", h.MarkInProgress)
		tasks.PUT("/:id/complete", h.MarkCompleted)
		tasks.PUT("/:id/approve", h.Approve)
		tasks.PUT("/:id/reject", h.Reject)
	}
}

// CreateTask assigns a new task to a client
// @Summary      Create task
// @Description  Superadmin may target any region; an admin only their own, and only clients of that region.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateTaskRequest  true  "Task"
// @Success      201      {object}  response.Response{data=service.TaskResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), identity, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, task))
}

// ListTasks returns tasks in the caller's scope, optionally filtered
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Status filter"
// @Param        region  query     string  false  "Region code filter (superadmin)"
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response
// @Router       /tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	params := pagination.Parse(c)

	filter := service.TaskListFilter{
		Status:     c.Query("status"),
		RegionCode: c.Query("region"),
		Page:       params.Page,
		Limit:      params.Limit,
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), identity, filter)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   tasks,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// GetTask returns one task with its report history
func (h *TaskHandler) GetTask(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid task id")
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), identity, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// UpdateTask edits task fields without touching its status
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid task id")
		return
	}

	var req service.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), identity, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// DeleteTask removes a task and its reports
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid task id")
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), identity, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "task deleted"}))
}

func (h *TaskHandler) transition(c *gin.Context, do func(*gin.Context, uuid.UUID) (*service.TaskResponse, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid task id")
		return
	}

	task, err := do(c, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// MarkInProgress moves a task to IN_PROGRESS
// @Summary      Start task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response{data=service.TaskResponse}
// @Failure      409  {object}  response.Response
// @Router       /tasks/{id}/start [put]
func (h *TaskHandler) MarkInProgress(c *gin.Context) {
	h.transition(c, func(c *gin.Context, id uuid.UUID) (*service.TaskResponse, error) {
		identity, _ := middleware.CurrentIdentity(c)
		return h.taskService.MarkInProgress(c.Request.Context(), identity, id)
	})
}

// MarkCompleted moves a task to COMPLETED. Assignee only.
func (h *TaskHandler) MarkCompleted(c *gin.Context) {
	h.transition(c, func(c *gin.Context, id uuid.UUID) (*service.TaskResponse, error) {
		identity, _ := middleware.CurrentIdentity(c)
		return h.taskService.MarkCompleted(c.Request.Context(), identity, id)
	})
}

// Approve accepts a completed task
func (h *TaskHandler) Approve(c *gin.Context) {
	h.transition(c, func(c *gin.Context, id uuid.UUID) (*service.TaskResponse, error) {
		identity, _ := middleware.CurrentIdentity(c)
		return h.taskService.Approve(c.Request.Context(), identity, id)
	})
}

// Reject sends a completed task back to its assignee
func (h *TaskHandler) Reject(c *gin.Context) {
	h.transition(c, func(c *gin.Context, id uuid.UUID) (*service.TaskResponse, error) {
		identity, _ := middleware.CurrentIdentity(c)
		return h.taskService.Reject(c.Request.Context(), identity, id)
	})
}
