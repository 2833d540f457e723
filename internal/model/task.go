package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskStatus enum constants. Approved is terminal. Rejected accepts report
// resubmission without an explicit status change.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusApproved   TaskStatus = "APPROVED"
	TaskStatusRejected   TaskStatus = "REJECTED"
)

// ServiceTypes stores an ordered list of service tags as a JSON column.
type ServiceTypes []string

func (s ServiceTypes) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *ServiceTypes) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ServiceTypes", value)
	}
	if len(b) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(b, (*[]string)(s))
}

// Task is a field-service assignment bound to a region. AssignedBy must be
// an admin or the superadmin, AssignedTo must be a client; when the creator
// is an admin the client's region must match the task's region.
type Task struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string       `gorm:"type:varchar(200);not null" json:"title"`
	Description     string       `gorm:"type:text" json:"description"`
	RegionID        uuid.UUID    `gorm:"type:uuid;not null;index" json:"region_id"`
	Region          Region       `gorm:"foreignKey:RegionID" json:"region"`
	GroupID         string       `gorm:"type:varchar(100)" json:"group_id"`
	SiteName        string       `gorm:"type:varchar(200)" json:"site_name"`
	Cluster         string       `gorm:"type:varchar(100)" json:"cluster"`
	ServiceEngineer string       `gorm:"type:varchar(200)" json:"service_engineer"`
	ServiceTypes    ServiceTypes `gorm:"type:jsonb" json:"service_types"`
	Required        bool         `gorm:"default:true" json:"required"`
	AssignedByID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"assigned_by_id"`
	AssignedBy      User         `gorm:"foreignKey:AssignedByID" json:"-"`
	AssignedToID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"assigned_to_id"`
	AssignedTo      User         `gorm:"foreignKey:AssignedToID" json:"-"`
	Deadline        time.Time    `gorm:"not null" json:"deadline"`
	CompletedAt     *time.Time   `json:"completed_at"`
	Status          TaskStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CreatedAt       time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
	Reports         []TaskReport `gorm:"foreignKey:TaskID" json:"reports,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Overdue reports whether the deadline has passed while the task is still
// open. Completed and approved tasks are never overdue.
func (t *Task) Overdue(now time.Time) bool {
	switch t.Status {
	case TaskStatusCompleted, TaskStatusApproved:
		return false
	}
	return now.After(t.Deadline)
}

// TaskReport is one completion attempt by the assignee. A task accumulates
// a report per reject/resubmit cycle. Review fields are write-once.
type TaskReport struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"task_id"`
	Task        Task       `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE;" json:"-"`
	SubmittedBy uuid.UUID  `gorm:"type:uuid;not null;index" json:"submitted_by"`
	Submitter   User       `gorm:"foreignKey:SubmittedBy" json:"-"`
	ReportText  string     `gorm:"type:text;not null" json:"report_text"`
	Attachment  string     `gorm:"type:varchar(500)" json:"attachment"`
	SubmittedAt time.Time  `gorm:"autoCreateTime;index" json:"submitted_at"`
	ReviewedBy  *uuid.UUID `gorm:"type:uuid" json:"reviewed_by"`
	Reviewer    *User      `gorm:"foreignKey:ReviewedBy" json:"-"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	Feedback    string     `gorm:"type:text" json:"feedback"`
}

func (r *TaskReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
