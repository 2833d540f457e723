package handler

import (
	"errors"
	"net/http"

	"fieldtasks/internal/authz"
	"fieldtasks/internal/middleware"
	"fieldtasks/internal/model"
	"fieldtasks/pkg/response"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// fail maps a service error to an HTTP status and a stable reason code.
// Every deny from the authz taxonomy carries its code in the envelope;
// anything else is a plain 500. Role and scope denials are additionally
// logged under their own action tags: the client sees a generic 403 (or
// a collapsed 404), the log keeps the distinction.
func fail(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, authz.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, authz.ErrRoleNotPermitted),
		errors.Is(err, authz.ErrOutOfScope),
		errors.Is(err, authz.ErrNotAssignee),
		errors.Is(err, authz.ErrUnassigned):
		status = http.StatusForbidden
	case errors.Is(err, authz.ErrInvalidTransition):
		status = http.StatusConflict
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	switch {
	case errors.Is(err, authz.ErrRoleNotPermitted):
		logDeny(c, model.ActionDenyRole)
	case errors.Is(err, authz.ErrOutOfScope):
		logDeny(c, model.ActionDenyScope)
	}

	c.JSON(status, response.Deny(status, err.Error(), authz.ReasonCode(err)))
}

func logDeny(c *gin.Context, action string) {
	fields := log.Fields{"action": action, "path": c.FullPath(), "method": c.Request.Method}
	if identity, ok := middleware.CurrentIdentity(c); ok {
		fields["user_id"] = identity.ID
		fields["role"] = identity.Role
	}
	log.WithFields(fields).Warn("request denied")
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}
