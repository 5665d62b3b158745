package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/domain/entity"
	"github.com/garyjia/approval-center/internal/infrastructure/persistence/sqlite"
)

const taskColumns = `task_id, app_id, node_name, assignee_id, assignee_name, status,
	action, comment, create_time, finish_time`

// TaskRepository implements port.TaskRepository
type TaskRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlite.DB, logger *zap.Logger) port.TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a task. A second open task for the same application violates
// idx_tasks_open_per_app.
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	var action sql.NullInt64
	if task.Action.IsValid() {
		action = sql.NullInt64{Int64: int64(task.Action), Valid: true}
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO tasks (
			app_id, node_name, assignee_id, assignee_name, status,
			action, comment, create_time, finish_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		task.AppID,
		task.NodeName,
		task.AssigneeID,
		task.AssigneeName,
		task.Status,
		action,
		nullString(task.Comment),
		formatTime(task.CreatedAt),
		nullTime(task.FinishTime),
	)
	if err != nil {
		r.logger.Error("Failed to create task",
			zap.Int64("app_id", task.AppID),
			zap.Int64("assignee_id", task.AssigneeID),
			zap.Error(err))
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	return nil
}

// GetByID retrieves a task, nil when absent
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*entity.Task, error) {
	return r.getOne(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, id)
}

// GetOpenByAppID retrieves the open task of an application, nil when none
func (r *TaskRepository) GetOpenByAppID(ctx context.Context, appID int64) (*entity.Task, error) {
	return r.getOne(ctx, `SELECT `+taskColumns+` FROM tasks WHERE app_id = ? AND status = ?`,
		appID, entity.TaskStatusOpen)
}

func (r *TaskRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entity.Task, error) {
	task, err := scanTask(r.db.Executor(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get task", zap.Error(err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// DeleteOpenByAppID removes open tasks of an application
func (r *TaskRepository) DeleteOpenByAppID(ctx context.Context, appID int64) (int64, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`DELETE FROM tasks WHERE app_id = ? AND status = ?`, appID, entity.TaskStatusOpen)
	if err != nil {
		r.logger.Error("Failed to delete open tasks", zap.Int64("app_id", appID), zap.Error(err))
		return 0, fmt.Errorf("failed to delete open tasks: %w", err)
	}
	return result.RowsAffected()
}

// Complete closes the task if it is still open
func (r *TaskRepository) Complete(ctx context.Context, id int64, action entity.Action, comment string, finishTime time.Time) (bool, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, action = ?, comment = ?, finish_time = ?
		WHERE task_id = ? AND status = ?
	`, entity.TaskStatusDone, int(action), nullString(comment), formatTime(finishTime), id, entity.TaskStatusOpen)
	if err != nil {
		r.logger.Error("Failed to complete task", zap.Int64("task_id", id), zap.Error(err))
		return false, fmt.Errorf("failed to complete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// ListByAssignee pages an assignee's tasks, newest first
func (r *TaskRepository) ListByAssignee(ctx context.Context, assigneeID int64, status int, limit, offset int) ([]*entity.Task, int64, error) {
	var total int64
	if err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE assignee_id = ? AND status = ?`, assigneeID, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assignee_id = ? AND status = ?
		ORDER BY COALESCE(finish_time, create_time) DESC, task_id DESC`
	args := []interface{}{assigneeID, status}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.Int64("assignee_id", assigneeID), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*entity.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, total, rows.Err()
}

func scanTask(row rowScanner) (*entity.Task, error) {
	var (
		task       entity.Task
		action     sql.NullInt64
		comment    sql.NullString
		createTime string
		finishTime sql.NullString
	)
	if err := row.Scan(&task.ID, &task.AppID, &task.NodeName, &task.AssigneeID, &task.AssigneeName,
		&task.Status, &action, &comment, &createTime, &finishTime); err != nil {
		return nil, err
	}

	task.Action = entity.Action(action.Int64)
	task.Comment = comment.String

	var err error
	if task.CreatedAt, err = parseTime(createTime); err != nil {
		return nil, err
	}
	if task.FinishTime, err = parseNullTime(finishTime); err != nil {
		return nil, err
	}
	return &task, nil
}

// Verify interface compliance
var _ port.TaskRepository = (*TaskRepository)(nil)
