package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LeaveDetail carries the leave specifics of a leave application
type LeaveDetail struct {
	ID         int64           `json:"leave_id"`
	AppID      int64           `json:"app_id"`
	LeaveType  int             `json:"leave_type"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	Days       decimal.Decimal `json:"days"`
	Reason     string          `json:"reason"`
	Attachment string          `json:"attachment,omitempty"`
}

// ReimburseDetail carries the expense specifics of a reimbursement application
type ReimburseDetail struct {
	ID                int64           `json:"reimburse_id"`
	AppID             int64           `json:"app_id"`
	ExpenseType       int             `json:"expense_type"`
	Amount            decimal.Decimal `json:"amount"`
	Reason            string          `json:"reason"`
	InvoiceAttachment string          `json:"invoice_attachment,omitempty"`
	OccurDate         time.Time       `json:"occur_date"`
}

// ApplicationDetail is the type-specific payload of an Application.
// Exactly one of Leave or Reimburse is set, selected by Type.
type ApplicationDetail struct {
	Type      AppType          `json:"type"`
	Leave     *LeaveDetail     `json:"leave,omitempty"`
	Reimburse *ReimburseDetail `json:"reimburse,omitempty"`
}

// NewLeaveApplicationDetail wraps a leave detail
func NewLeaveApplicationDetail(leave *LeaveDetail) *ApplicationDetail {
	return &ApplicationDetail{Type: AppTypeLeave, Leave: leave}
}

// NewReimburseApplicationDetail wraps a reimbursement detail
func NewReimburseApplicationDetail(reimburse *ReimburseDetail) *ApplicationDetail {
	return &ApplicationDetail{Type: AppTypeReimburse, Reimburse: reimburse}
}

// Validate checks that the populated variant matches the tag
func (d *ApplicationDetail) Validate() error {
	if d == nil {
		return fmt.Errorf("detail is nil")
	}
	switch d.Type {
	case AppTypeLeave:
		if d.Leave == nil || d.Reimburse != nil {
			return fmt.Errorf("leave detail must carry exactly the leave variant")
		}
	case AppTypeReimburse:
		if d.Reimburse == nil || d.Leave != nil {
			return fmt.Errorf("reimburse detail must carry exactly the reimburse variant")
		}
	default:
		return fmt.Errorf("unknown application type: %q", d.Type)
	}
	return nil
}

// Matches reports whether the detail belongs to the given application
func (d *ApplicationDetail) Matches(app *Application) bool {
	if d == nil || app == nil || d.Type != app.AppType {
		return false
	}
	switch d.Type {
	case AppTypeLeave:
		return d.Leave != nil && d.Leave.AppID == app.ID
	case AppTypeReimburse:
		return d.Reimburse != nil && d.Reimburse.AppID == app.ID
	}
	return false
}
