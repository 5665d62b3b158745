package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/approval-center/internal/domain/entity"
)

const historySheet = "审批历史"

var historyHeader = []interface{}{
	"申请编号", "申请类型", "标题", "类型明细", "请假天数", "报销金额",
	"状态", "审批人", "审批意见", "提交时间", "审批时间", "完成时间",
}

// ExportService renders query results as spreadsheets
type ExportService interface {
	// ExportMyHistory writes every history record matching filter to an xlsx workbook
	ExportMyHistory(ctx context.Context, userID int64, filter HistoryFilter) ([]byte, error)
}

type exportServiceImpl struct {
	queries QueryService
	logger  Logger
}

// NewExportService creates a new ExportService
func NewExportService(queries QueryService, logger Logger) ExportService {
	return &exportServiceImpl{queries: queries, logger: logger}
}

func (s *exportServiceImpl) ExportMyHistory(ctx context.Context, userID int64, filter HistoryFilter) ([]byte, error) {
	records, err := s.queries.SearchMyHistory(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", historySheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := file.SetSheetRow(historySheet, "A1", &historyHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := historyRow(record)
		if err := file.SetSheetRow(historySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("History exported", "user_id", userID, "rows", len(records))
	return buf.Bytes(), nil
}

func historyRow(r *HistoryView) []interface{} {
	var subtype, days, amount, action string
	if r.LeaveType != nil {
		subtype = entity.LeaveTypeLabel(*r.LeaveType)
	}
	if r.ExpenseType != nil {
		subtype = entity.ExpenseTypeLabel(*r.ExpenseType)
	}
	if r.LeaveDays != nil {
		days = r.LeaveDays.String()
	}
	if r.ExpenseAmount != nil {
		amount = r.ExpenseAmount.StringFixed(2)
	}
	if r.Action != nil {
		action = r.Action.Label()
	}
	comment := r.Comment
	if action != "" && comment == "" {
		comment = action
	}

	return []interface{}{
		r.AppNo,
		r.AppType.Label(),
		r.Title,
		subtype,
		days,
		amount,
		r.Status.Label(),
		r.ApproverName,
		comment,
		formatTime(&r.SubmitTime),
		formatTime(r.ApproveTime),
		formatTime(r.FinishTime),
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
