package handler

import (
	"net/http"

	"fieldtasks/internal/middleware"
	"fieldtasks/internal/model"
	"fieldtasks/internal/service"
	"fieldtasks/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

// NewAuditHandler sets up the routing dependencies for audit log endpoints
func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit-logs",
		middleware.RequireAuth(),
		middleware.RequireRole(model.RoleSuperAdmin),
		h.ListAuditLogs)
}

// ListAuditLogs returns audit entries, newest first, optionally filtered by action
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	params := pagination.Parse(c)

	logs, total, err := h.auditService.ListLogs(c.Request.Context(), identity, c.Query("action"), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   logs,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}
