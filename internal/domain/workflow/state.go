package workflow

import "github.com/garyjia/approval-center/internal/domain/entity"

// State represents a workflow state in the application lifecycle
type State string

const (
	StatePending   State = "PENDING"
	StateApproved  State = "APPROVED"
	StateRejected  State = "REJECTED"
	StateWithdrawn State = "WITHDRAWN"
)

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return s.Status() != 0
}

// Status returns the persisted application status for the state, 0 for an unknown state
func (s State) Status() entity.Status {
	switch s {
	case StatePending:
		return entity.StatusPending
	case StateApproved:
		return entity.StatusApproved
	case StateRejected:
		return entity.StatusRejected
	case StateWithdrawn:
		return entity.StatusWithdrawn
	}
	return 0
}

// StateOf maps a persisted application status to its workflow state
func StateOf(status entity.Status) (State, error) {
	switch status {
	case entity.StatusPending:
		return StatePending, nil
	case entity.StatusApproved:
		return StateApproved, nil
	case entity.StatusRejected:
		return StateRejected, nil
	case entity.StatusWithdrawn:
		return StateWithdrawn, nil
	}
	return "", ErrInvalidState
}
