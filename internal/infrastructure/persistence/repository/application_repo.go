package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/domain/entity"
	"github.com/garyjia/approval-center/internal/infrastructure/persistence/sqlite"
)

const applicationColumns = `app_id, app_no, app_type, title, applicant_id, dept_id, status,
	current_node, submit_time, finish_time, create_time, update_time`

// ApplicationRepository implements port.ApplicationRepository
type ApplicationRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sqlite.DB, logger *zap.Logger) port.ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an application and sets its ID
func (r *ApplicationRepository) Create(ctx context.Context, app *entity.Application) error {
	query := `
		INSERT INTO applications (
			app_no, app_type, title, applicant_id, dept_id, status,
			current_node, submit_time, finish_time, create_time, update_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		app.AppNo,
		string(app.AppType),
		app.Title,
		app.ApplicantID,
		app.DeptID,
		int(app.Status),
		app.CurrentNode,
		formatTime(app.SubmitTime),
		nullTime(app.FinishTime),
		formatTime(app.CreatedAt),
		formatTime(app.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create application",
			zap.String("app_no", app.AppNo),
			zap.Int64("applicant_id", app.ApplicantID),
			zap.Error(err))
		return fmt.Errorf("failed to create application: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	app.ID = id
	return nil
}

// GetByID retrieves an application, nil when absent
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*entity.Application, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE app_id = ?`, id)

	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get application", zap.Int64("app_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// GetByIDs retrieves applications keyed by ID; missing IDs are skipped
func (r *ApplicationRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Application, error) {
	apps := make(map[int64]*entity.Application, len(ids))
	if len(ids) == 0 {
		return apps, nil
	}

	in, args := inClause(ids)
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE app_id IN `+in, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get applications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps[app.ID] = app
	}
	return apps, rows.Err()
}

// UpdateStatus performs a compare-and-set on the status column
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id int64, from, to entity.Status, finishTime time.Time) (bool, error) {
	var finish sql.NullString
	if to.IsTerminal() {
		finish = nullTime(&finishTime)
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE applications
		SET status = ?, finish_time = ?, update_time = ?
		WHERE app_id = ? AND status = ?
	`, int(to), finish, formatTime(finishTime), id, int(from))
	if err != nil {
		r.logger.Error("Failed to update application status",
			zap.Int64("app_id", id),
			zap.Int("to", int(to)),
			zap.Error(err))
		return false, fmt.Errorf("failed to update application status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// List filters by applicant and the optional criteria, newest submission first
func (r *ApplicationRepository) List(ctx context.Context, filter port.ApplicationFilter) ([]*entity.Application, int64, error) {
	where := []string{"applicant_id = ?"}
	args := []interface{}{filter.ApplicantID}

	if filter.AppType != "" {
		where = append(where, "app_type = ?")
		args = append(args, string(filter.AppType))
	}
	if len(filter.Statuses) > 0 {
		in, statusArgs := inClause(filter.Statuses)
		where = append(where, "status IN "+in)
		args = append(args, statusArgs...)
	}
	if filter.SubmitFrom != nil {
		where = append(where, "submit_time >= ?")
		args = append(args, formatTime(*filter.SubmitFrom))
	}
	if filter.SubmitTo != nil {
		where = append(where, "submit_time <= ?")
		args = append(args, formatTime(*filter.SubmitTo))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	query := `SELECT ` + applicationColumns + ` FROM applications WHERE ` + clause +
		` ORDER BY submit_time DESC, app_id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list applications", zap.Int64("applicant_id", filter.ApplicantID), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	apps := []*entity.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*entity.Application, error) {
	var (
		app                                entity.Application
		appType                            string
		status                             int
		submitTime, createTime, updateTime string
		finishTime                         sql.NullString
	)
	if err := row.Scan(
		&app.ID, &app.AppNo, &appType, &app.Title, &app.ApplicantID, &app.DeptID, &status,
		&app.CurrentNode, &submitTime, &finishTime, &createTime, &updateTime,
	); err != nil {
		return nil, err
	}

	app.AppType = entity.AppType(appType)
	app.Status = entity.Status(status)

	var err error
	if app.SubmitTime, err = parseTime(submitTime); err != nil {
		return nil, err
	}
	if app.FinishTime, err = parseNullTime(finishTime); err != nil {
		return nil, err
	}
	if app.CreatedAt, err = parseTime(createTime); err != nil {
		return nil, err
	}
	if app.UpdatedAt, err = parseTime(updateTime); err != nil {
		return nil, err
	}
	return &app, nil
}

// Verify interface compliance
var _ port.ApplicationRepository = (*ApplicationRepository)(nil)
