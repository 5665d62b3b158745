package entity

// Application status constants. Value 2 is reserved and never assigned.
const (
	StatusPending   Status = 1
	StatusApproved  Status = 3
	StatusRejected  Status = 4
	StatusWithdrawn Status = 5
)

// Application type constants
const (
	AppTypeLeave     AppType = "leave"
	AppTypeReimburse AppType = "reimburse"
)

// Leave type constants for LeaveDetail
const (
	LeaveTypePersonal     = 1 // 事假
	LeaveTypeSick         = 2 // 病假
	LeaveTypeAnnual       = 3 // 年假
	LeaveTypeCompensatory = 4 // 调休
)

// Expense type constants for ReimburseDetail
const (
	ExpenseTypeTravel        = 1 // 差旅交通费
	ExpenseTypeEntertainment = 2 // 餐饮招待费
	ExpenseTypeOffice        = 3 // 办公用品费
	ExpenseTypeTraining      = 4 // 培训学习费
	ExpenseTypeService       = 5 // 服务采购费
	ExpenseTypeOther         = 6 // 其他
)

// Task status constants
const (
	TaskStatusOpen = 0
	TaskStatusDone = 1
)

// Decision action constants shared by tasks and history entries
const (
	ActionApprove Action = 1
	ActionReject  Action = 2
)

// User status constants
const (
	UserStatusDisabled = 0
	UserStatusActive   = 1
)

// PermissionApprovalReview is the capability code a post must carry for its holders to approve
const PermissionApprovalReview = "APPROVAL_REVIEW"

// DefaultNodeName is used when the applicant's department cannot be resolved
const DefaultNodeName = "部门审批"

// UnassignedDeptName is displayed for applicants without a resolvable department
const UnassignedDeptName = "未分配"

var leaveTypeLabels = map[int]string{
	LeaveTypePersonal:     "事假",
	LeaveTypeSick:         "病假",
	LeaveTypeAnnual:       "年假",
	LeaveTypeCompensatory: "调休",
}

var expenseTypeLabels = map[int]string{
	ExpenseTypeTravel:        "差旅交通费",
	ExpenseTypeEntertainment: "餐饮招待费",
	ExpenseTypeOffice:        "办公用品费",
	ExpenseTypeTraining:      "培训学习费",
	ExpenseTypeService:       "服务采购费",
	ExpenseTypeOther:         "其他",
}

// LeaveTypeLabel returns the display label of a leave type
func LeaveTypeLabel(leaveType int) string {
	if label, ok := leaveTypeLabels[leaveType]; ok {
		return label
	}
	return "请假"
}

// ExpenseTypeLabel returns the display label of an expense type
func ExpenseTypeLabel(expenseType int) string {
	if label, ok := expenseTypeLabels[expenseType]; ok {
		return label
	}
	return "报销"
}

// IsValidLeaveType reports whether leaveType is a known leave type
func IsValidLeaveType(leaveType int) bool {
	_, ok := leaveTypeLabels[leaveType]
	return ok
}

// IsValidExpenseType reports whether expenseType is a known expense type
func IsValidExpenseType(expenseType int) bool {
	_, ok := expenseTypeLabels[expenseType]
	return ok
}
