package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/domain/apperr"
	"github.com/garyjia/approval-center/internal/domain/entity"
	"github.com/garyjia/approval-center/internal/domain/event"
	"github.com/garyjia/approval-center/internal/domain/workflow"
)

// TaskView is a task joined with the application it routes
type TaskView struct {
	*entity.Task
	AppNo         string         `json:"app_no"`
	AppType       entity.AppType `json:"app_type"`
	TypeLabel     string         `json:"type_label"`
	Title         string         `json:"title"`
	ApplicantID   int64          `json:"applicant_id"`
	ApplicantName string         `json:"applicant_name"`
	AppStatus     entity.Status  `json:"app_status"`
	SubmitTime    time.Time      `json:"submit_time"`
}

// DecisionService lets an assignee approve or reject the applications routed to them
type DecisionService interface {
	DecideTask(ctx context.Context, taskID, approverID int64, req DecisionRequest) error
	ListTodoTasks(ctx context.Context, approverID int64, page, size int) (*Page[*TaskView], error)
	ListDoneTasks(ctx context.Context, approverID int64, page, size int) (*Page[*TaskView], error)
}

type decisionServiceImpl struct {
	appRepo   port.ApplicationRepository
	taskRepo  port.TaskRepository
	directory port.Directory
	router    TaskRouter
	ledger    HistoryLedger
	txManager port.TransactionManager
	publisher EventPublisher
	now       Clock
	logger    Logger
}

// DecisionDeps groups the collaborators of DecisionService
type DecisionDeps struct {
	Applications port.ApplicationRepository
	Tasks        port.TaskRepository
	Directory    port.Directory
	Router       TaskRouter
	Ledger       HistoryLedger
	TxManager    port.TransactionManager
	Publisher    EventPublisher
	Clock        Clock
	Logger       Logger
}

// NewDecisionService creates a new DecisionService
func NewDecisionService(deps DecisionDeps) DecisionService {
	return &decisionServiceImpl{
		appRepo:   deps.Applications,
		taskRepo:  deps.Tasks,
		directory: deps.Directory,
		router:    deps.Router,
		ledger:    deps.Ledger,
		txManager: deps.TxManager,
		publisher: deps.Publisher,
		now:       orNow(deps.Clock),
		logger:    deps.Logger,
	}
}

func (s *decisionServiceImpl) DecideTask(ctx context.Context, taskID, approverID int64, req DecisionRequest) error {
	if !req.Action.IsValid() {
		return apperr.Validation("审批操作无效")
	}

	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return apperr.Wrap(err, "load task")
	}
	if task == nil {
		return apperr.NotFound("任务不存在")
	}
	if task.AssigneeID != approverID {
		return apperr.Forbidden("只能处理分配给自己的任务")
	}
	if !task.IsOpen() {
		return apperr.Validation("该任务已处理")
	}

	app, err := s.appRepo.GetByID(ctx, task.AppID)
	if err != nil {
		return apperr.Wrap(err, "load application")
	}
	if app == nil {
		return apperr.NotFound("申请不存在")
	}

	next, err := workflow.Next(ctx, app.Status, workflow.TriggerFor(req.Action))
	if err != nil {
		return apperr.Validation("申请已结束，无法审批")
	}

	now := s.now()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.router.CompleteTask(txCtx, task, req.Action, req.Comment); err != nil {
			return err
		}

		entry := &entity.HistoryEntry{
			AppID:        app.ID,
			TaskID:       task.ID,
			NodeName:     task.NodeName,
			ApproverID:   approverID,
			ApproverName: task.AssigneeName,
			Action:       req.Action,
			Comment:      req.Comment,
			ApproveTime:  now,
		}
		if err := s.ledger.Record(txCtx, entry); err != nil {
			return err
		}

		changed, err := s.appRepo.UpdateStatus(txCtx, app.ID, app.Status, next, now)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !changed {
			return apperr.Validation("申请已结束，无法审批")
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to decide task", "error", err, "task_id", taskID, "approver_id", approverID)
		return asUnexpected(err, "decide task")
	}

	s.logger.Info("Task decided", "task_id", task.ID, "app_id", app.ID, "action", req.Action.Label())

	eventType := event.TypeApplicationApproved
	if req.Action == entity.ActionReject {
		eventType = event.TypeApplicationRejected
	}
	if s.publisher != nil {
		s.publisher.DispatchAsync(ctx, event.NewEvent(eventType, app.ID, app.AppNo, map[string]interface{}{
			event.KeyApplicantID:  app.ApplicantID,
			event.KeyApproverName: task.AssigneeName,
			event.KeyTitle:        app.Title,
			event.KeyComment:      req.Comment,
		}))
	}
	return nil
}

func (s *decisionServiceImpl) ListTodoTasks(ctx context.Context, approverID int64, page, size int) (*Page[*TaskView], error) {
	return s.listTasks(ctx, approverID, entity.TaskStatusOpen, page, size)
}

func (s *decisionServiceImpl) ListDoneTasks(ctx context.Context, approverID int64, page, size int) (*Page[*TaskView], error) {
	return s.listTasks(ctx, approverID, entity.TaskStatusDone, page, size)
}

func (s *decisionServiceImpl) listTasks(ctx context.Context, approverID int64, status, page, size int) (*Page[*TaskView], error) {
	page, size = normalizePage(page, size)

	tasks, total, err := s.taskRepo.ListByAssignee(ctx, approverID, status, size, (page-1)*size)
	if err != nil {
		return nil, apperr.Wrap(err, "list tasks")
	}

	appIDs := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		appIDs = append(appIDs, t.AppID)
	}
	apps, err := s.appRepo.GetByIDs(ctx, appIDs)
	if err != nil {
		return nil, apperr.Wrap(err, "load task applications")
	}

	applicantIDs := make([]int64, 0, len(apps))
	for _, app := range apps {
		applicantIDs = append(applicantIDs, app.ApplicantID)
	}
	applicants, err := s.directory.GetUsersByIDs(ctx, applicantIDs)
	if err != nil {
		return nil, apperr.Wrap(err, "load applicants")
	}

	views := make([]*TaskView, 0, len(tasks))
	for _, t := range tasks {
		view := &TaskView{Task: t}
		if app, ok := apps[t.AppID]; ok {
			view.AppNo = app.AppNo
			view.AppType = app.AppType
			view.TypeLabel = app.AppType.Label()
			view.Title = app.Title
			view.ApplicantID = app.ApplicantID
			view.AppStatus = app.Status
			view.SubmitTime = app.SubmitTime
			if u, ok := applicants[app.ApplicantID]; ok {
				view.ApplicantName = u.RealName
			}
		}
		views = append(views, view)
	}

	return &Page[*TaskView]{Records: views, Total: total, Page: page, Size: size}, nil
}
