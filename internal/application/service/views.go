package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/approval-center/internal/domain/entity"
)

// ApplicationView is one row of an applicant's application list
type ApplicationView struct {
	AppID         int64          `json:"app_id"`
	AppNo         string         `json:"app_no"`
	AppType       entity.AppType `json:"app_type"`
	Title         string         `json:"title"`
	ApplicantID   int64          `json:"applicant_id"`
	ApplicantName string         `json:"applicant_name"`
	DeptID        int64          `json:"dept_id"`
	DeptName      string         `json:"dept_name"`
	Status        entity.Status  `json:"status"`
	CurrentNode   string         `json:"current_node"`
	LeaveType     *int           `json:"leave_type,omitempty"`
	ExpenseType   *int           `json:"expense_type,omitempty"`
	SubmitTime    time.Time      `json:"submit_time"`
	FinishTime    *time.Time     `json:"finish_time,omitempty"`
}

// HistoryView is one finished application with its latest decision
type HistoryView struct {
	AppID         int64            `json:"app_id"`
	AppNo         string           `json:"app_no"`
	AppType       entity.AppType   `json:"app_type"`
	Title         string           `json:"title"`
	Status        entity.Status    `json:"status"`
	ApplicantName string           `json:"applicant_name"`
	DeptName      string           `json:"dept_name"`
	CurrentNode   string           `json:"current_node"`
	ApproverName  string           `json:"approver_name,omitempty"`
	Action        *entity.Action   `json:"action,omitempty"`
	Comment       string           `json:"comment,omitempty"`
	LeaveType     *int             `json:"leave_type,omitempty"`
	LeaveDays     *decimal.Decimal `json:"leave_days,omitempty"`
	ExpenseType   *int             `json:"expense_type,omitempty"`
	ExpenseAmount *decimal.Decimal `json:"expense_amount,omitempty"`
	SubmitTime    time.Time        `json:"submit_time"`
	ApproveTime   *time.Time       `json:"approve_time,omitempty"`
	FinishTime    *time.Time       `json:"finish_time,omitempty"`
}

// ApplicationDetailView is an application with its detail and full decision history
type ApplicationDetailView struct {
	Application *entity.Application       `json:"application"`
	Detail      *entity.ApplicationDetail `json:"detail"`
	History     []*entity.HistoryEntry    `json:"history"`
}

// Summary aggregates every application of one applicant
type Summary struct {
	UserID               int64           `json:"user_id"`
	RealName             string          `json:"real_name"`
	DeptName             string          `json:"dept_name"`
	PostName             string          `json:"post_name"`
	TotalCount           int64           `json:"total_count"`
	PendingCount         int64           `json:"pending_count"`
	ApprovedCount        int64           `json:"approved_count"`
	RejectedCount        int64           `json:"rejected_count"`
	WithdrawnCount       int64           `json:"withdrawn_count"`
	LeaveCount           int64           `json:"leave_count"`
	ReimburseCount       int64           `json:"reimburse_count"`
	TotalLeaveDays       decimal.Decimal `json:"total_leave_days"`
	TotalReimburseAmount decimal.Decimal `json:"total_reimburse_amount"`
	ApprovalRate         decimal.Decimal `json:"approval_rate"`
	LastSubmitTime       *time.Time      `json:"last_submit_time"`
}

// ApproverOption is an eligible approver offered to an applicant
type ApproverOption struct {
	UserID   int64  `json:"user_id"`
	RealName string `json:"real_name"`
	DeptID   int64  `json:"dept_id"`
	DeptName string `json:"dept_name,omitempty"`
	PostID   int64  `json:"post_id,omitempty"`
	PostName string `json:"post_name,omitempty"`
}

// TypeStat counts decided tasks per application type
type TypeStat struct {
	AppType   entity.AppType `json:"app_type"`
	TypeLabel string         `json:"type_label"`
	Count     int64          `json:"count"`
}

// DailyStat counts decided tasks on one day (yyyy-MM-dd)
type DailyStat struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// MonthlyStat counts decided tasks in one month (yyyy-MM)
type MonthlyStat struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// ApproverDashboard aggregates the decisions of one approver
type ApproverDashboard struct {
	RealName      string        `json:"real_name"`
	DeptName      string        `json:"dept_name"`
	PostName      string        `json:"post_name"`
	PendingCount  int64         `json:"pending_count"`
	TotalCount    int64         `json:"total_count"`
	ApprovedCount int64         `json:"approved_count"`
	RejectedCount int64         `json:"rejected_count"`
	TypeStats     []TypeStat    `json:"type_stats"`
	DailyStats    []DailyStat   `json:"daily_stats"`
	MonthlyStats  []MonthlyStat `json:"monthly_stats"`
}
