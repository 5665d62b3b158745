package workflow

import "github.com/garyjia/approval-center/internal/domain/entity"

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerApprove  Trigger = "APPROVE"
	TriggerReject   Trigger = "REJECT"
	TriggerWithdraw Trigger = "WITHDRAW"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// TriggerFor maps a decision action to its trigger
func TriggerFor(action entity.Action) Trigger {
	if action == entity.ActionApprove {
		return TriggerApprove
	}
	return TriggerReject
}
