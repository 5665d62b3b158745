package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/approval-center/internal/domain/apperr"
	"github.com/garyjia/approval-center/internal/domain/entity"
)

// CreateLeaveRequest is the input of CreateLeaveApplication
type CreateLeaveRequest struct {
	LeaveType  int             `json:"leave_type"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	Days       decimal.Decimal `json:"days"`
	Reason     string          `json:"reason"`
	Attachment string          `json:"attachment"`
	ApproverID *int64          `json:"approver_id"`
}

// Validate checks the request fields before any lookup
func (r *CreateLeaveRequest) Validate() error {
	if !entity.IsValidLeaveType(r.LeaveType) {
		return apperr.Validation("请选择请假类型")
	}
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return apperr.Validation("请选择请假时间")
	}
	if r.EndTime.Before(r.StartTime) {
		return apperr.Validation("结束时间不能早于开始时间")
	}
	if !r.Days.IsPositive() {
		return apperr.Validation("请假天数必须大于0")
	}
	if strings.TrimSpace(r.Reason) == "" {
		return apperr.Validation("请填写申请事由")
	}
	return nil
}

// CreateReimburseRequest is the input of CreateReimburseApplication
type CreateReimburseRequest struct {
	ExpenseType       int             `json:"expense_type"`
	Amount            decimal.Decimal `json:"amount"`
	Reason            string          `json:"reason"`
	InvoiceAttachment string          `json:"invoice_attachment"`
	OccurDate         time.Time       `json:"occur_date"`
	ApproverID        *int64          `json:"approver_id"`
}

// Validate checks the request fields before any lookup
func (r *CreateReimburseRequest) Validate() error {
	if !entity.IsValidExpenseType(r.ExpenseType) {
		return apperr.Validation("请选择费用类型")
	}
	if !r.Amount.IsPositive() {
		return apperr.Validation("报销金额必须大于0")
	}
	if r.OccurDate.IsZero() {
		return apperr.Validation("请选择费用发生日期")
	}
	if strings.TrimSpace(r.Reason) == "" {
		return apperr.Validation("请填写申请事由")
	}
	return nil
}

// DecisionRequest is an approver's verdict on an open task
type DecisionRequest struct {
	Action  entity.Action `json:"action"`
	Comment string        `json:"comment"`
}

// HistoryFilter selects records of an applicant's finished applications.
// Nil pointers disable a criterion.
type HistoryFilter struct {
	Page         int            `form:"page"`
	Size         int            `form:"size"`
	AppType      entity.AppType `form:"app_type"`
	StartTime    *time.Time     `form:"start_time" time_format:"2006-01-02 15:04:05"`
	EndTime      *time.Time     `form:"end_time" time_format:"2006-01-02 15:04:05"`
	ApproverName string         `form:"approver_name"`
	LeaveType    *int           `form:"leave_type"`
	ExpenseType  *int           `form:"expense_type"`
	Status       *int           `form:"status"`
}

// statuses returns the storage-level status set of the filter
func (f HistoryFilter) statuses() []entity.Status {
	if f.Status != nil {
		return []entity.Status{entity.Status(*f.Status)}
	}
	return entity.HistoryStatuses
}
