package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fieldtasks/internal/authz"
	"fieldtasks/internal/model"
	"fieldtasks/internal/repository"
	ws "fieldtasks/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type SubmitReportRequest struct {
	TaskID     string `json:"task_id" binding:"required"`
	ReportText string `json:"report_text" binding:"required"`
	Attachment string `json:"attachment"`
}

type ReviewReportRequest struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback"`
}

type ReportResponse struct {
	ID          uuid.UUID  `json:"id"`
	TaskID      uuid.UUID  `json:"task_id"`
	SubmittedBy uuid.UUID  `json:"submitted_by"`
	ReportText  string     `json:"report_text"`
	Attachment  string     `json:"attachment,omitempty"`
	SubmittedAt string     `json:"submitted_at"`
	ReviewedBy  *uuid.UUID `json:"reviewed_by"`
	ReviewedAt  *string    `json:"reviewed_at"`
	Feedback    string     `json:"feedback,omitempty"`
}

// ReportService owns the report-review sub-workflow. ReviewReport is the
// coupling point of the system: one call stamps the report's review
// fields and drives the parent task to Approved or Rejected, committed as
// a single transaction so a crash between the two writes cannot leave
// them inconsistent.
type ReportService interface {
	SubmitReport(ctx context.Context, caller authz.Identity, req SubmitReportRequest) (*ReportResponse, error)
	GetReport(ctx context.Context, caller authz.Identity, id uuid.UUID) (*ReportResponse, error)
	ListReports(ctx context.Context, caller authz.Identity, taskID *uuid.UUID, page, limit int) ([]ReportResponse, int64, error)
	ReviewReport(ctx context.Context, caller authz.Identity, id uuid.UUID, req ReviewReportRequest) (*ReportResponse, error)
}

type reportService struct {
	reports repository.ReportRepository
	tasks   repository.TaskRepository
	audit   repository.AuditRepository
	txm     repository.TransactionManager
	hub     *ws.Hub // optional, nil in tests
}

// NewReportService returns a new instance of ReportService
func NewReportService(
	reports repository.ReportRepository,
	tasks repository.TaskRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	hub *ws.Hub,
) ReportService {
	return &reportService{reports: reports, tasks: tasks, audit: audit, txm: txm, hub: hub}
}

func toReportResponse(r *model.TaskReport) *ReportResponse {
	resp := &ReportResponse{
		ID:          r.ID,
		TaskID:      r.TaskID,
		SubmittedBy: r.SubmittedBy,
		ReportText:  r.ReportText,
		Attachment:  r.Attachment,
		SubmittedAt: r.SubmittedAt.Format(time.RFC3339),
		ReviewedBy:  r.ReviewedBy,
		Feedback:    r.Feedback,
	}
	if r.ReviewedAt != nil {
		s := r.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &s
	}
	return resp
}

// SubmitReport creates one completion attempt. Only the task's assignee
// may submit; a Rejected task accepts a fresh report without a status
// transition; Approved is terminal and accepts nothing.
func (s *reportService) SubmitReport(ctx context.Context, caller authz.Identity, req SubmitReportRequest) (*ReportResponse, error) {
	if err := authz.Authorize(caller, authz.ActionCreate, authz.ResourceReport); err != nil {
		return nil, err
	}

	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		return nil, authz.ErrNotFound
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.ErrNotFound
		}
		return nil, err
	}
	if !authz.TaskVisible(caller, task) {
		return nil, authz.ErrNotFound
	}
	if task.AssignedToID != caller.ID {
		return nil, authz.ErrNotAssignee
	}
	if task.Status == model.TaskStatusApproved {
		return nil, authz.ErrInvalidTransition
	}

	report := &model.TaskReport{
		TaskID:      task.ID,
		SubmittedBy: caller.ID,
		ReportText:  req.ReportText,
		Attachment:  req.Attachment,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.reports.Create(txCtx, report); err != nil {
			return err
		}
		details, _ := json.Marshal(map[string]interface{}{
			"task":        task.Title,
			"task_status": task.Status,
		})
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     model.ActionSubmitReport,
			EntityID:   report.ID.String(),
			EntityName: task.Title,
			Details:    string(details),
		}
		return s.audit.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	return toReportResponse(report), nil
}

func (s *reportService) GetReport(ctx context.Context, caller authz.Identity, id uuid.UUID) (*ReportResponse, error) {
	report, _, err := s.loadVisible(ctx, caller, id, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return toReportResponse(report), nil
}

// loadVisible fetches a report with its parent task and applies the
// matrix plus the caller's visibility predicate. Hidden rows surface as
// NotFound.
func (s *reportService) loadVisible(ctx context.Context, caller authz.Identity, id uuid.UUID, action authz.Action) (*model.TaskReport, *model.Task, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, authz.ErrNotFound
		}
		return nil, nil, err
	}
	task, err := s.tasks.GetByID(ctx, report.TaskID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.AuthorizeReport(caller, action, report, task); err != nil {
		if errors.Is(err, authz.ErrOutOfScope) {
			return nil, nil, authz.ErrNotFound
		}
		return nil, nil, err
	}
	return report, task, nil
}

func (s *reportService) ListReports(ctx context.Context, caller authz.Identity, taskID *uuid.UUID, page, limit int) ([]ReportResponse, int64, error) {
	if err := authz.Authorize(caller, authz.ActionList, authz.ResourceReport); err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	reports, total, err := s.reports.List(ctx, authz.ReportScope(caller), taskID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ReportResponse, 0, len(reports))
	for i := range reports {
		responses = append(responses, *toReportResponse(&reports[i]))
	}
	return responses, total, nil
}

// ReviewReport stamps the review fields and transitions the parent task in
// one atomic unit. Review is write-once: a report that has already been
// reviewed fails with InvalidTransition, and a concurrent second review
// loses the compare-and-set race on reviewed_at.
func (s *reportService) ReviewReport(ctx context.Context, caller authz.Identity, id uuid.UUID, req ReviewReportRequest) (*ReportResponse, error) {
	report, task, err := s.loadVisible(ctx, caller, id, authz.ActionReview)
	if err != nil {
		return nil, err
	}

	target := model.TaskStatusRejected
	action := model.ActionTaskRejected
	if req.Approved {
		target = model.TaskStatusApproved
		action = model.ActionTaskApproved
	}

	now := time.Now()
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		reviewed, err := s.reports.MarkReviewed(txCtx, report.ID, caller.ID, now, req.Feedback)
		if err != nil {
			return err
		}
		if !reviewed {
			return authz.ErrInvalidTransition
		}

		// A review concludes a Completed cycle, or re-concludes a
		// Rejected task whose assignee resubmitted.
		from := []model.TaskStatus{model.TaskStatusCompleted, model.TaskStatusRejected}
		moved, err := s.tasks.UpdateStatus(txCtx, task.ID, from, target, nil)
		if err != nil {
			return err
		}
		if !moved {
			return authz.ErrInvalidTransition
		}

		details, _ := json.Marshal(map[string]interface{}{
			"report_id": report.ID.String(),
			"approved":  req.Approved,
			"feedback":  req.Feedback,
		})
		entry := &model.AuditLog{
			UserID:     &caller.ID,
			Action:     action,
			EntityID:   report.ID.String(),
			EntityName: task.Title,
			Details:    string(details),
		}
		return s.audit.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		task.Status = target
		payload, merr := json.Marshal(map[string]interface{}{
			"type":    "task_event",
			"event":   "report_reviewed",
			"task_id": task.ID.String(),
			"status":  target,
			"region":  task.Region.Code,
		})
		if merr == nil {
			select {
			case s.hub.Broadcast <- payload:
			default:
			}
		}
	}

	updated, err := s.reports.GetByID(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	return toReportResponse(updated), nil
}
