package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateUser   = "CREATE_USER"
	ActionUpdateUser   = "UPDATE_USER"
	ActionDeleteUser   = "DELETE_USER"
	ActionAssignRegion = "ASSIGN_REGION"
	ActionCreateRegion = "CREATE_REGION"
	ActionUpdateRegion = "UPDATE_REGION"
	ActionDeleteRegion = "DELETE_REGION"

	// Task lifecycle actions
	ActionCreateTask     = "CREATE_TASK"
	ActionUpdateTask     = "UPDATE_TASK"
	ActionDeleteTask     = "DELETE_TASK"
	ActionTaskInProgress = "TASK_IN_PROGRESS"
	ActionTaskCompleted  = "TASK_COMPLETED"
	ActionTaskApproved   = "TASK_APPROVED"
	ActionTaskRejected   = "TASK_REJECTED"
	ActionSubmitReport   = "SUBMIT_REPORT"
	ActionReviewReport   = "REVIEW_REPORT"

	// Authorization outcomes worth auditing. The API surface collapses
	// these to a generic forbidden/not-found; the audit trail keeps the
	// distinction.
	ActionDenyRole  = "DENY_ROLE_NOT_PERMITTED"
	ActionDenyScope = "DENY_OUT_OF_SCOPE"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for system-initiated actions
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
