package entity

import "time"

// Action is an approval decision
type Action int

// IsValid returns true for approve and reject
func (a Action) IsValid() bool {
	return a == ActionApprove || a == ActionReject
}

// Label returns the display label of the action
func (a Action) Label() string {
	switch a {
	case ActionApprove:
		return "同意"
	case ActionReject:
		return "拒绝"
	default:
		return "处理中"
	}
}

// ResultStatus maps the decision to the application status it produces
func (a Action) ResultStatus() Status {
	if a == ActionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// Task is the routing record pointing at the approver responsible for a decision.
// At most one task per application has Status == TaskStatusOpen.
type Task struct {
	ID           int64      `json:"task_id"`
	AppID        int64      `json:"app_id"`
	NodeName     string     `json:"node_name"`
	AssigneeID   int64      `json:"assignee_id"`
	AssigneeName string     `json:"assignee_name"`
	Status       int        `json:"status"`
	Action       Action     `json:"action,omitempty"`
	Comment      string     `json:"comment,omitempty"`
	CreatedAt    time.Time  `json:"create_time"`
	FinishTime   *time.Time `json:"finish_time,omitempty"`
}

// IsOpen returns true while the task awaits a decision
func (t *Task) IsOpen() bool {
	return t.Status == TaskStatusOpen
}
