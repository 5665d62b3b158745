package entity

import "time"

// HistoryEntry is an immutable record of an approval decision
type HistoryEntry struct {
	ID           int64     `json:"history_id"`
	AppID        int64     `json:"app_id"`
	TaskID       int64     `json:"task_id"`
	NodeName     string    `json:"node_name"`
	ApproverID   int64     `json:"approver_id"`
	ApproverName string    `json:"approver_name"`
	Action       Action    `json:"action"`
	Comment      string    `json:"comment,omitempty"`
	ApproveTime  time.Time `json:"approve_time"`
	CreatedAt    time.Time `json:"create_time"`
}
