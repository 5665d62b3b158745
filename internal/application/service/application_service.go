package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/domain/apperr"
	"github.com/garyjia/approval-center/internal/domain/entity"
	"github.com/garyjia/approval-center/internal/domain/event"
	"github.com/garyjia/approval-center/internal/domain/workflow"
)

// EventPublisher hands committed lifecycle events to background handlers
type EventPublisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

// ApplicationService creates and withdraws applications
type ApplicationService interface {
	CreateLeaveApplication(ctx context.Context, req CreateLeaveRequest, userID int64) (int64, error)
	CreateReimburseApplication(ctx context.Context, req CreateReimburseRequest, userID int64) (int64, error)
	WithdrawApplication(ctx context.Context, appID, userID int64) error
}

type applicationServiceImpl struct {
	appRepo    port.ApplicationRepository
	detailRepo port.DetailRepository
	sequences  port.SequenceRepository
	directory  port.Directory
	validator  ApproverValidator
	router     TaskRouter
	txManager  port.TransactionManager
	publisher  EventPublisher
	now        Clock
	logger     Logger
}

// ApplicationDeps groups the collaborators of ApplicationService
type ApplicationDeps struct {
	Applications port.ApplicationRepository
	Details      port.DetailRepository
	Sequences    port.SequenceRepository
	Directory    port.Directory
	Validator    ApproverValidator
	Router       TaskRouter
	TxManager    port.TransactionManager
	Publisher    EventPublisher
	Clock        Clock
	Logger       Logger
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(deps ApplicationDeps) ApplicationService {
	return &applicationServiceImpl{
		appRepo:    deps.Applications,
		detailRepo: deps.Details,
		sequences:  deps.Sequences,
		directory:  deps.Directory,
		validator:  deps.Validator,
		router:     deps.Router,
		txManager:  deps.TxManager,
		publisher:  deps.Publisher,
		now:        orNow(deps.Clock),
		logger:     deps.Logger,
	}
}

func (s *applicationServiceImpl) CreateLeaveApplication(ctx context.Context, req CreateLeaveRequest, userID int64) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	detail := entity.NewLeaveApplicationDetail(&entity.LeaveDetail{
		LeaveType:  req.LeaveType,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Days:       req.Days,
		Reason:     req.Reason,
		Attachment: req.Attachment,
	})
	return s.submit(ctx, userID, req.Reason, req.ApproverID, detail)
}

func (s *applicationServiceImpl) CreateReimburseApplication(ctx context.Context, req CreateReimburseRequest, userID int64) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	detail := entity.NewReimburseApplicationDetail(&entity.ReimburseDetail{
		ExpenseType:       req.ExpenseType,
		Amount:            req.Amount,
		Reason:            req.Reason,
		InvoiceAttachment: req.InvoiceAttachment,
		OccurDate:         req.OccurDate,
	})
	return s.submit(ctx, userID, req.Reason, req.ApproverID, detail)
}

// submit runs the checks shared by both application types, then persists the
// application, its detail and the open task as one unit
func (s *applicationServiceImpl) submit(ctx context.Context, userID int64, reason string, approverID *int64, detail *entity.ApplicationDetail) (int64, error) {
	applicant, err := s.directory.GetUserByID(ctx, userID)
	if err != nil {
		return 0, apperr.Wrap(err, "load applicant")
	}
	if applicant == nil {
		return 0, apperr.NotFound("用户不存在")
	}
	if applicant.DeptID == nil {
		return 0, apperr.Validation("您尚未分配部门，暂时无法提交申请")
	}

	approver, err := s.validator.Validate(ctx, applicant, approverID)
	if err != nil {
		return 0, err
	}

	dept, err := s.directory.GetDeptByID(ctx, *applicant.DeptID)
	if err != nil {
		return 0, apperr.Wrap(err, "load applicant department")
	}

	now := s.now()
	app := &entity.Application{
		AppType:     detail.Type,
		Title:       entity.BuildTitle(detail.Type, reason),
		ApplicantID: applicant.ID,
		DeptID:      *applicant.DeptID,
		Status:      entity.StatusPending,
		CurrentNode: entity.NodeNameForDept(dept),
		SubmitTime:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		seq, err := s.sequences.Next(txCtx, now.Format("20060102"))
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		app.AppNo = entity.FormatAppNo(now, seq)

		if err := s.appRepo.Create(txCtx, app); err != nil {
			return fmt.Errorf("create application: %w", err)
		}

		switch detail.Type {
		case entity.AppTypeLeave:
			detail.Leave.AppID = app.ID
		case entity.AppTypeReimburse:
			detail.Reimburse.AppID = app.ID
		}
		if err := s.detailRepo.Create(txCtx, detail); err != nil {
			return fmt.Errorf("create %s detail: %w", detail.Type, err)
		}

		if _, err := s.router.CreateTask(txCtx, app, approver.ID, approver.RealName); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit application", "error", err, "user_id", userID, "app_type", detail.Type)
		return 0, asUnexpected(err, "submit application")
	}

	s.logger.Info("Application submitted", "app_id", app.ID, "app_no", app.AppNo, "approver_id", approver.ID)
	s.publish(ctx, event.NewEvent(event.TypeApplicationSubmitted, app.ID, app.AppNo, map[string]interface{}{
		event.KeyApplicantID:  applicant.ID,
		event.KeyAssigneeID:   approver.ID,
		event.KeyAssigneeName: approver.RealName,
		event.KeyTitle:        app.Title,
	}))
	return app.ID, nil
}

func (s *applicationServiceImpl) WithdrawApplication(ctx context.Context, appID, userID int64) error {
	app, err := s.appRepo.GetByID(ctx, appID)
	if err != nil {
		return apperr.Wrap(err, "load application")
	}
	if app == nil {
		return apperr.NotFound("申请不存在")
	}
	if app.ApplicantID != userID {
		return apperr.Forbidden("只能撤回自己的申请")
	}

	next, err := workflow.Next(ctx, app.Status, workflow.TriggerWithdraw)
	if err != nil {
		return apperr.Validation("只能撤回待审批状态的申请")
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		changed, err := s.appRepo.UpdateStatus(txCtx, app.ID, app.Status, next, s.now())
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !changed {
			return apperr.Validation("只能撤回待审批状态的申请")
		}
		_, err = s.router.RemoveOpenTasks(txCtx, app.ID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to withdraw application", "error", err, "app_id", appID)
		return asUnexpected(err, "withdraw application")
	}

	s.logger.Info("Application withdrawn", "app_id", app.ID, "app_no", app.AppNo)
	s.publish(ctx, event.NewEvent(event.TypeApplicationWithdrawn, app.ID, app.AppNo, map[string]interface{}{
		event.KeyApplicantID: app.ApplicantID,
		event.KeyTitle:       app.Title,
	}))
	return nil
}

func (s *applicationServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.publisher != nil {
		s.publisher.DispatchAsync(ctx, evt)
	}
}

// asUnexpected keeps business errors raised inside a transaction and wraps everything else
func asUnexpected(err error, msg string) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Wrap(err, msg)
}
