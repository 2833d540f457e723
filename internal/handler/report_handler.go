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

type ReportHandler struct {
	reportService service.ReportService
}

// NewReportHandler sets up the routing dependencies for TaskReport endpoints
func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/reports", middleware.RequireAuth())
	{
		reports.POST("", h.SubmitReport)
		reports.GET("", h.ListReports)
		reports.GET("/:id", h.GetReport)
		reports.PUT("/:id/review", h.ReviewReport)
	}
}

// SubmitReport files a completion report against a task
// @Summary      Submit report
// @Description  Assignee files a completion attempt; rejected tasks accept a fresh report.
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SubmitReportRequest  true  "Report"
// @Success      201      {object}  response.Response{data=service.ReportResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /reports [post]
func (h *ReportHandler) SubmitReport(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	report, err := h.reportService.SubmitReport(c.Request.Context(), identity, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, report))
}

// ListReports returns reports in the caller's scope, optionally for one task
func (h *ReportHandler) ListReports(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	params := pagination.Parse(c)

	var taskID *uuid.UUID
	if raw := c.Query("task_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid task_id filter")
			return
		}
		taskID = &id
	}

	reports, total, err := h.reportService.ListReports(c.Request.Context(), identity, taskID, params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   reports,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// GetReport returns one report if its parent task is visible to the caller
func (h *ReportHandler) GetReport(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid report id")
		return
	}

	report, err := h.reportService.GetReport(c.Request.Context(), identity, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// ReviewReport approves or rejects a report and its parent task in one step
// @Summary      Review report
// @Description  Stamps the review fields and moves the task to APPROVED or REJECTED atomically. Write-once.
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Report ID"
// @Param        payload  body      service.ReviewReportRequest  true  "Verdict"
// @Success      200      {object}  response.Response{data=service.ReportResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /reports/{id}/review [put]
func (h *ReportHandler) ReviewReport(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid report id")
		return
	}

	var req service.ReviewReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	report, err := h.reportService.ReviewReport(c.Request.Context(), identity, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
