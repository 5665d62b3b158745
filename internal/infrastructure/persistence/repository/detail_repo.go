package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/domain/entity"
	"github.com/garyjia/approval-center/internal/infrastructure/persistence/sqlite"
)

// DetailRepository implements port.DetailRepository over the leave and
// reimbursement tables
type DetailRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewDetailRepository creates a new detail repository
func NewDetailRepository(db *sqlite.DB, logger *zap.Logger) port.DetailRepository {
	return &DetailRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the populated variant of detail
func (r *DetailRepository) Create(ctx context.Context, detail *entity.ApplicationDetail) error {
	if err := detail.Validate(); err != nil {
		return err
	}

	switch detail.Type {
	case entity.AppTypeLeave:
		return r.createLeave(ctx, detail.Leave)
	default:
		return r.createReimburse(ctx, detail.Reimburse)
	}
}

func (r *DetailRepository) createLeave(ctx context.Context, leave *entity.LeaveDetail) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO leave_applications (
			app_id, leave_type, start_time, end_time, days, reason, attachment
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		leave.AppID,
		leave.LeaveType,
		formatTime(leave.StartTime),
		formatTime(leave.EndTime),
		leave.Days.String(),
		leave.Reason,
		nullString(leave.Attachment),
	)
	if err != nil {
		r.logger.Error("Failed to create leave detail", zap.Int64("app_id", leave.AppID), zap.Error(err))
		return fmt.Errorf("failed to create leave detail: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	leave.ID = id
	return nil
}

func (r *DetailRepository) createReimburse(ctx context.Context, reimburse *entity.ReimburseDetail) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO reimburse_applications (
			app_id, expense_type, amount, reason, invoice_attachment, occur_date
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		reimburse.AppID,
		reimburse.ExpenseType,
		reimburse.Amount.String(),
		reimburse.Reason,
		nullString(reimburse.InvoiceAttachment),
		formatTime(reimburse.OccurDate),
	)
	if err != nil {
		r.logger.Error("Failed to create reimburse detail", zap.Int64("app_id", reimburse.AppID), zap.Error(err))
		return fmt.Errorf("failed to create reimburse detail: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	reimburse.ID = id
	return nil
}

// GetByApplication loads the detail variant selected by the application's type
func (r *DetailRepository) GetByApplication(ctx context.Context, app *entity.Application) (*entity.ApplicationDetail, error) {
	details, err := r.ListByApplications(ctx, []*entity.Application{app})
	if err != nil {
		return nil, err
	}
	return details[app.ID], nil
}

// ListByApplications loads details for a batch, keyed by application ID.
// A detail stored under the wrong application type is an error.
func (r *DetailRepository) ListByApplications(ctx context.Context, apps []*entity.Application) (map[int64]*entity.ApplicationDetail, error) {
	appIDs := make([]int64, 0, len(apps))
	for _, app := range apps {
		appIDs = append(appIDs, app.ID)
	}

	loaded := make(map[int64][]*entity.ApplicationDetail, len(apps))
	if err := r.loadLeaves(ctx, appIDs, loaded); err != nil {
		return nil, err
	}
	if err := r.loadReimbursements(ctx, appIDs, loaded); err != nil {
		return nil, err
	}

	details := make(map[int64]*entity.ApplicationDetail, len(apps))
	for _, app := range apps {
		for _, detail := range loaded[app.ID] {
			if !detail.Matches(app) {
				r.logger.Error("Detail does not match application type",
					zap.Int64("app_id", app.ID),
					zap.String("app_type", string(app.AppType)),
					zap.String("detail_type", string(detail.Type)))
				return nil, fmt.Errorf("application %d of type %s has a %s detail", app.ID, app.AppType, detail.Type)
			}
			details[app.ID] = detail
		}
	}
	return details, nil
}

func (r *DetailRepository) loadLeaves(ctx context.Context, appIDs []int64, into map[int64][]*entity.ApplicationDetail) error {
	if len(appIDs) == 0 {
		return nil
	}

	in, args := inClause(appIDs)
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT leave_id, app_id, leave_type, start_time, end_time, days, reason, attachment
		FROM leave_applications
		WHERE app_id IN `+in, args...)
	if err != nil {
		return fmt.Errorf("failed to query leave details: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			leave      entity.LeaveDetail
			start, end string
			attachment sql.NullString
		)
		if err := rows.Scan(&leave.ID, &leave.AppID, &leave.LeaveType, &start, &end,
			&leave.Days, &leave.Reason, &attachment); err != nil {
			return fmt.Errorf("failed to scan leave detail: %w", err)
		}
		if leave.StartTime, err = parseTime(start); err != nil {
			return err
		}
		if leave.EndTime, err = parseTime(end); err != nil {
			return err
		}
		leave.Attachment = attachment.String
		into[leave.AppID] = append(into[leave.AppID], entity.NewLeaveApplicationDetail(&leave))
	}
	return rows.Err()
}

func (r *DetailRepository) loadReimbursements(ctx context.Context, appIDs []int64, into map[int64][]*entity.ApplicationDetail) error {
	if len(appIDs) == 0 {
		return nil
	}

	in, args := inClause(appIDs)
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT reimburse_id, app_id, expense_type, amount, reason, invoice_attachment, occur_date
		FROM reimburse_applications
		WHERE app_id IN `+in, args...)
	if err != nil {
		return fmt.Errorf("failed to query reimburse details: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			reimburse entity.ReimburseDetail
			invoice   sql.NullString
			occurDate string
		)
		if err := rows.Scan(&reimburse.ID, &reimburse.AppID, &reimburse.ExpenseType, &reimburse.Amount,
			&reimburse.Reason, &invoice, &occurDate); err != nil {
			return fmt.Errorf("failed to scan reimburse detail: %w", err)
		}
		if reimburse.OccurDate, err = parseTime(occurDate); err != nil {
			return err
		}
		reimburse.InvoiceAttachment = invoice.String
		into[reimburse.AppID] = append(into[reimburse.AppID], entity.NewReimburseApplicationDetail(&reimburse))
	}
	return rows.Err()
}

// Verify interface compliance
var _ port.DetailRepository = (*DetailRepository)(nil)
