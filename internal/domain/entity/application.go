package entity

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// AppType selects the detail record attached to an Application
type AppType string

// IsValid returns true for the supported application types
func (t AppType) IsValid() bool {
	return t == AppTypeLeave || t == AppTypeReimburse
}

// Label returns the display label of the type
func (t AppType) Label() string {
	switch t {
	case AppTypeLeave:
		return "请假"
	case AppTypeReimburse:
		return "报销"
	default:
		return string(t)
	}
}

// String returns the string representation of the type
func (t AppType) String() string {
	return string(t)
}

// Status is the lifecycle status of an Application
type Status int

// IsValid returns true for the four effective statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// IsTerminal returns true once no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusWithdrawn
}

// Label returns the display label of the status
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "待审批"
	case StatusApproved:
		return "已通过"
	case StatusRejected:
		return "已驳回"
	case StatusWithdrawn:
		return "已撤回"
	default:
		return "未知"
	}
}

// HistoryStatuses are the statuses listed in an applicant's history by default
var HistoryStatuses = []Status{StatusApproved, StatusRejected, StatusWithdrawn}

// Application represents one leave or reimbursement request
type Application struct {
	ID          int64      `json:"app_id"`
	AppNo       string     `json:"app_no"`
	AppType     AppType    `json:"app_type"`
	Title       string     `json:"title"`
	ApplicantID int64      `json:"applicant_id"`
	DeptID      int64      `json:"dept_id"`
	Status      Status     `json:"status"`
	CurrentNode string     `json:"current_node"`
	SubmitTime  time.Time  `json:"submit_time"`
	FinishTime  *time.Time `json:"finish_time,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

const titleReasonLimit = 10

// BuildTitle derives the application title from its type and reason
func BuildTitle(appType AppType, reason string) string {
	if utf8.RuneCountInString(reason) > titleReasonLimit {
		reason = string([]rune(reason)[:titleReasonLimit]) + "..."
	}
	return fmt.Sprintf("%s申请-%s", appType.Label(), reason)
}

// FormatAppNo formats the human readable application number: AP + yyyyMMdd + 6-digit sequence
func FormatAppNo(day time.Time, seq int64) string {
	return fmt.Sprintf("AP%s%06d", day.Format("20060102"), seq)
}

// NodeNameForDept returns the approval stage label for a department
func NodeNameForDept(dept *Dept) string {
	if dept == nil || dept.Name == "" {
		return DefaultNodeName
	}
	return dept.Name + "审批"
}
