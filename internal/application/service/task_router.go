package service

import (
	"context"
	"fmt"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/domain/apperr"
	"github.com/garyjia/approval-center/internal/domain/entity"
)

// TaskRouter owns the open task that points at an application's approver
type TaskRouter interface {
	// CreateTask opens a task on the application's current node. Callers validate the assignee first.
	CreateTask(ctx context.Context, app *entity.Application, assigneeID int64, assigneeName string) (*entity.Task, error)
	// RemoveOpenTasks deletes open tasks of an application; closed tasks are kept
	RemoveOpenTasks(ctx context.Context, appID int64) (int64, error)
	// CompleteTask records the decision on an open task
	CompleteTask(ctx context.Context, task *entity.Task, action entity.Action, comment string) error
}

type taskRouterImpl struct {
	taskRepo port.TaskRepository
	now      Clock
	logger   Logger
}

// NewTaskRouter creates a new TaskRouter
func NewTaskRouter(taskRepo port.TaskRepository, clock Clock, logger Logger) TaskRouter {
	return &taskRouterImpl{
		taskRepo: taskRepo,
		now:      orNow(clock),
		logger:   logger,
	}
}

func (r *taskRouterImpl) CreateTask(ctx context.Context, app *entity.Application, assigneeID int64, assigneeName string) (*entity.Task, error) {
	task := &entity.Task{
		AppID:        app.ID,
		NodeName:     app.CurrentNode,
		AssigneeID:   assigneeID,
		AssigneeName: assigneeName,
		Status:       entity.TaskStatusOpen,
		CreatedAt:    r.now(),
	}
	if err := r.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	r.logger.Info("Task created", "task_id", task.ID, "app_id", app.ID, "assignee_id", assigneeID)
	return task, nil
}

func (r *taskRouterImpl) RemoveOpenTasks(ctx context.Context, appID int64) (int64, error) {
	removed, err := r.taskRepo.DeleteOpenByAppID(ctx, appID)
	if err != nil {
		return 0, fmt.Errorf("remove open tasks: %w", err)
	}
	r.logger.Info("Open tasks removed", "app_id", appID, "count", removed)
	return removed, nil
}

func (r *taskRouterImpl) CompleteTask(ctx context.Context, task *entity.Task, action entity.Action, comment string) error {
	finished := r.now()
	changed, err := r.taskRepo.Complete(ctx, task.ID, action, comment, finished)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	if !changed {
		return apperr.Validation("该任务已处理")
	}

	task.Status = entity.TaskStatusDone
	task.Action = action
	task.Comment = comment
	task.FinishTime = &finished
	return nil
}
