package domain

import (
	"context"
	"maps"
	"slices"
)

// Action is the code run when a state with an entry is entered.
// It receives a private copy of the current context and the payload of the event
// that started the transition, and returns the context that replaces it.
// Returning an error (including ctx.Err()) takes the state's OnError branch.
type Action func(ctx context.Context, current map[string]any, payload any) (map[string]any, error)

// Transition names the state to move to.
type Transition struct {
	Target string `json:"target" yaml:"target"`
}

// StateNode describes one state of the graph.
type StateNode struct {
	// On maps event names to transitions. Events missing here are unhandled in this state.
	On map[string]Transition

	// Entry runs every time the state is entered.
	Entry Action

	// OnSuccess and OnError are taken after Entry settles. Only valid together with Entry.
	OnSuccess *Transition
	OnError   *Transition
}

// Config is the user-supplied description of a machine, validated by NewDefinition.
type Config struct {
	Initial string
	States  map[string]StateNode
}

// Definition is a validated, immutable state graph.
// It performs no I/O and is safe to share between any number of actors and goroutines.
type Definition struct {
	initial string
	states  map[string]StateNode
}

// Initial returns the name of the starting state.
func (d *Definition) Initial() string {
	return d.initial
}

// States returns the declared state names in lexical order.
func (d *Definition) States() []string {
	return slices.Sorted(maps.Keys(d.states))
}

// HasState reports whether name is a declared state.
func (d *Definition) HasState(name string) bool {
	_, ok := d.states[name]
	return ok
}

// Node returns a copy of the named state node.
func (d *Definition) Node(name string) (StateNode, bool) {
	node, ok := d.states[name]
	if !ok {
		return StateNode{}, false
	}
	return cloneNode(node), true
}

// Transition looks up the transition taken when event is delivered in state.
func (d *Definition) Transition(state, event string) (Transition, bool) {
	node, ok := d.states[state]
	if !ok {
		return Transition{}, false
	}
	t, ok := node.On[event]
	return t, ok
}

// Events returns the events handled in state, in lexical order.
func (d *Definition) Events(state string) []string {
	node, ok := d.states[state]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(node.On))
}

func cloneNode(n StateNode) StateNode {
	out := StateNode{
		On:    maps.Clone(n.On),
		Entry: n.Entry,
	}
	if n.OnSuccess != nil {
		t := *n.OnSuccess
		out.OnSuccess = &t
	}
	if n.OnError != nil {
		t := *n.OnError
		out.OnError = &t
	}
	return out
}
