package workflow

import (
	"context"
	"sync"

	"github.com/garyjia/approval-center/internal/domain/entity"
)

var (
	lifecycleOnce sync.Once
	lifecycle     StateMachineBuilder
)

func lifecycleBuilder() StateMachineBuilder {
	lifecycleOnce.Do(func() {
		lifecycle = newLifecycleBuilder()
	})
	return lifecycle
}

// newLifecycleBuilder configures the single-step approval lifecycle:
// a pending application is approved, rejected or withdrawn exactly once.
func newLifecycleBuilder() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerWithdraw, StateWithdrawn)
	b.Configure(StateApproved)
	b.Configure(StateRejected)
	b.Configure(StateWithdrawn)
	return b
}

// NewApplicationMachine builds a lifecycle machine positioned at the application's status
func NewApplicationMachine(status entity.Status) (StateMachine, error) {
	state, err := StateOf(status)
	if err != nil {
		return nil, err
	}
	return lifecycleBuilder().Build(state), nil
}

// Next returns the status reached by firing trigger from status
func Next(ctx context.Context, status entity.Status, trigger Trigger) (entity.Status, error) {
	machine, err := NewApplicationMachine(status)
	if err != nil {
		return 0, err
	}
	if err := machine.Fire(ctx, trigger); err != nil {
		return 0, err
	}
	return machine.State().Status(), nil
}
