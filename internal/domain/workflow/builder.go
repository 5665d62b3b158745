package workflow

import (
	"context"
	"fmt"
)

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration
}

// StateMachine tracks the current state of one application and validates transitions
type StateMachine interface {
	State() State
	Fire(ctx context.Context, trigger Trigger) error
}

type transitionTable map[State]map[Trigger]State

type stateConfig struct {
	table transitionTable
	from  State
}

type stateMachineBuilder struct {
	table transitionTable
}

type stateMachine struct {
	current State
	table   transitionTable
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{table: make(transitionTable)}
}

func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if _, ok := b.table[state]; !ok {
		b.table[state] = make(map[Trigger]State)
	}
	return &stateConfig{table: b.table, from: state}
}

// Build copies the transition table so later Configure calls do not leak into built machines
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}
	table := make(transitionTable, len(b.table))
	for state, triggers := range b.table {
		copied := make(map[Trigger]State, len(triggers))
		for trigger, to := range triggers {
			copied[trigger] = to
		}
		table[state] = copied
	}
	return &stateMachine{current: initialState, table: table}
}

func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	c.table[c.from][trigger] = toState
	return c
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	to, ok := m.table[m.current][trigger]
	if !ok {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = to
	return nil
}
