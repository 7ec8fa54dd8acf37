package dsl

import "github.com/aretw0/transito/pkg/domain"

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	node    domain.StateNode
	builder *Builder
}

// On handles event by moving to target.
func (s *StateBuilder) On(event, target string) *StateBuilder {
	if s.node.On == nil {
		s.node.On = make(map[string]domain.Transition)
	}
	s.node.On[event] = domain.Transition{Target: target}
	return s
}

// Entry sets the action run every time the state is entered.
func (s *StateBuilder) Entry(action domain.Action) *StateBuilder {
	s.node.Entry = action
	return s
}

// OnSuccess sets where to go after the entry action succeeds.
func (s *StateBuilder) OnSuccess(target string) *StateBuilder {
	s.node.OnSuccess = &domain.Transition{Target: target}
	return s
}

// OnError sets where to go after the entry action fails.
func (s *StateBuilder) OnError(target string) *StateBuilder {
	s.node.OnError = &domain.Transition{Target: target}
	return s
}

// Add starts the next state; it allows chaining the whole machine in one expression.
func (s *StateBuilder) Add(name string) *StateBuilder {
	return s.builder.Add(name)
}

// Build returns the underlying domain.StateNode.
func (s *StateBuilder) Build() domain.StateNode {
	return s.node
}
