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

const historyColumns = `history_id, app_id, task_id, node_name, approver_id, approver_name,
	action, comment, approve_time, create_time`

// HistoryRepository implements port.HistoryRepository. Rows are never updated
// or deleted; the schema enforces this with triggers.
type HistoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqlite.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a history entry and sets its ID
func (r *HistoryRepository) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	var taskID sql.NullInt64
	if entry.TaskID != 0 {
		taskID = sql.NullInt64{Int64: entry.TaskID, Valid: true}
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO approval_history (
			app_id, task_id, node_name, approver_id, approver_name,
			action, comment, approve_time, create_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.AppID,
		taskID,
		entry.NodeName,
		entry.ApproverID,
		entry.ApproverName,
		int(entry.Action),
		nullString(entry.Comment),
		formatTime(entry.ApproveTime),
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to append history",
			zap.Int64("app_id", entry.AppID),
			zap.Int64("approver_id", entry.ApproverID),
			zap.Error(err))
		return fmt.Errorf("failed to append history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListByAppID returns an application's entries, newest first
func (r *HistoryRepository) ListByAppID(ctx context.Context, appID int64) ([]*entity.HistoryEntry, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT `+historyColumns+`
		FROM approval_history
		WHERE app_id = ?
		ORDER BY create_time DESC, history_id DESC
	`, appID)
	if err != nil {
		r.logger.Error("Failed to list history", zap.Int64("app_id", appID), zap.Error(err))
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := []*entity.HistoryEntry{}
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// LatestByAppIDs returns the latest entry per application in one query
func (r *HistoryRepository) LatestByAppIDs(ctx context.Context, appIDs []int64) (map[int64]*entity.HistoryEntry, error) {
	latest := make(map[int64]*entity.HistoryEntry, len(appIDs))
	if len(appIDs) == 0 {
		return latest, nil
	}

	in, args := inClause(appIDs)
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT `+historyColumns+` FROM (
			SELECT *, ROW_NUMBER() OVER (
				PARTITION BY app_id ORDER BY approve_time DESC, history_id DESC
			) AS rn
			FROM approval_history
			WHERE app_id IN `+in+`
		) WHERE rn = 1
	`, args...)
	if err != nil {
		r.logger.Error("Failed to get latest history batch", zap.Int("count", len(appIDs)), zap.Error(err))
		return nil, fmt.Errorf("failed to get latest history batch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		latest[entry.AppID] = entry
	}
	return latest, rows.Err()
}

func scanHistory(row rowScanner) (*entity.HistoryEntry, error) {
	var (
		entry                   entity.HistoryEntry
		taskID                  sql.NullInt64
		action                  int
		comment                 sql.NullString
		approveTime, createTime string
	)
	if err := row.Scan(&entry.ID, &entry.AppID, &taskID, &entry.NodeName, &entry.ApproverID,
		&entry.ApproverName, &action, &comment, &approveTime, &createTime); err != nil {
		return nil, err
	}

	entry.TaskID = taskID.Int64
	entry.Action = entity.Action(action)
	entry.Comment = comment.String

	var err error
	if entry.ApproveTime, err = parseTime(approveTime); err != nil {
		return nil, err
	}
	if entry.CreatedAt, err = parseTime(createTime); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
