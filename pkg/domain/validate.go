package domain

import (
	"fmt"
	"maps"
	"slices"
)

// NewDefinition validates cfg and returns an immutable Definition.
//
// Structural problems are reported together in a *DefinitionError. A loop made only of
// OnSuccess edges where no member declares OnError can never settle, so it is rejected
// with a *MachineCycleError.
func NewDefinition(cfg Config) (*Definition, error) {
	var problems []string

	if len(cfg.States) == 0 {
		problems = append(problems, "no states declared")
	}
	if cfg.Initial == "" {
		problems = append(problems, "initial state is required")
	} else if _, ok := cfg.States[cfg.Initial]; !ok {
		problems = append(problems, fmt.Sprintf("initial state %q is not declared", cfg.Initial))
	}

	for _, name := range slices.Sorted(maps.Keys(cfg.States)) {
		problems = append(problems, checkNode(name, cfg.States[name], cfg.States)...)
	}

	if len(problems) > 0 {
		return nil, &DefinitionError{Problems: problems}
	}

	states := make(map[string]StateNode, len(cfg.States))
	for name, node := range cfg.States {
		states[name] = cloneNode(node)
	}
	def := &Definition{initial: cfg.Initial, states: states}

	if err := checkSuccessCycles(def); err != nil {
		return nil, err
	}
	return def, nil
}

func checkNode(name string, node StateNode, states map[string]StateNode) []string {
	var problems []string
	if name == "" {
		problems = append(problems, "state name must not be empty")
	}

	for _, event := range slices.Sorted(maps.Keys(node.On)) {
		target := node.On[event].Target
		switch {
		case event == "":
			problems = append(problems, fmt.Sprintf("state %q: event name must not be empty", name))
		case target == "":
			problems = append(problems, fmt.Sprintf("state %q: event %q has no target", name, event))
		default:
			if _, ok := states[target]; !ok {
				problems = append(problems, fmt.Sprintf("state %q: event %q targets undeclared state %q", name, event, target))
			}
		}
	}

	for _, branch := range []struct {
		label string
		t     *Transition
	}{{"onSuccess", node.OnSuccess}, {"onError", node.OnError}} {
		if branch.t == nil {
			continue
		}
		if node.Entry == nil {
			problems = append(problems, fmt.Sprintf("state %q: %s requires an entry action", name, branch.label))
		}
		if branch.t.Target == "" {
			problems = append(problems, fmt.Sprintf("state %q: %s has no target", name, branch.label))
		} else if _, ok := states[branch.t.Target]; !ok {
			problems = append(problems, fmt.Sprintf("state %q: %s targets undeclared state %q", name, branch.label, branch.t.Target))
		}
	}
	return problems
}

// checkSuccessCycles walks the OnSuccess edges. Each state has at most one, so every walk
// either ends or closes a loop.
func checkSuccessCycles(def *Definition) error {
	done := make(map[string]bool, len(def.states))
	for _, start := range def.States() {
		if done[start] {
			continue
		}
		var path []string
		onPath := make(map[string]int)
		cur := start
		for {
			if done[cur] {
				break
			}
			if idx, seen := onPath[cur]; seen {
				loop := path[idx:]
				if !anyHasOnError(def, loop) {
					return &MachineCycleError{Path: append(slices.Clone(loop), cur)}
				}
				break
			}
			onPath[cur] = len(path)
			path = append(path, cur)
			next := def.states[cur].OnSuccess
			if next == nil {
				break
			}
			cur = next.Target
		}
		for _, s := range path {
			done[s] = true
		}
	}
	return nil
}

func anyHasOnError(def *Definition, states []string) bool {
	for _, s := range states {
		if def.states[s].OnError != nil {
			return true
		}
	}
	return false
}
