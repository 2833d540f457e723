package service

import (
	"context"

	"fieldtasks/internal/authz"
	"fieldtasks/internal/model"
	"fieldtasks/internal/repository"
)

// AuditService exposes the audit trail. Entries are written by the other
// services inside their own transactions; this one only reads, and only
// for the superadmin.
type AuditService interface {
	ListLogs(ctx context.Context, caller authz.Identity, action string, page, limit int) ([]model.AuditLog, int64, error)
}

type auditService struct {
	audit repository.AuditRepository
}

// NewAuditService returns a new instance of AuditService
func NewAuditService(audit repository.AuditRepository) AuditService {
	return &auditService{audit: audit}
}

func (s *auditService) ListLogs(ctx context.Context, caller authz.Identity, action string, page, limit int) ([]model.AuditLog, int64, error) {
	if !caller.IsSuperAdmin() {
		return nil, 0, authz.ErrRoleNotPermitted
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.audit.List(ctx, action, page, limit)
}
