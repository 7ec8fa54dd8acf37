package dsl

import (
	"github.com/aretw0/transito/pkg/domain"
)

// Builder manages the machine construction.
type Builder struct {
	initial string
	order   []string
	states  map[string]*StateBuilder
}

// New creates a new machine builder.
func New() *Builder {
	return &Builder{
		states: make(map[string]*StateBuilder),
	}
}

// Initial sets the starting state. Without it the first state added is the initial one.
func (b *Builder) Initial(name string) *Builder {
	b.initial = name
	return b
}

// Add creates a new state in the machine.
// If the state already exists, it returns the existing builder.
func (b *Builder) Add(name string) *StateBuilder {
	if sb, ok := b.states[name]; ok {
		return sb
	}
	sb := &StateBuilder{builder: b}
	b.states[name] = sb
	b.order = append(b.order, name)
	return sb
}

// Config returns the machine as an unvalidated domain.Config.
func (b *Builder) Config() domain.Config {
	cfg := domain.Config{
		Initial: b.initial,
		States:  make(map[string]domain.StateNode, len(b.states)),
	}
	if cfg.Initial == "" && len(b.order) > 0 {
		cfg.Initial = b.order[0]
	}
	for name, sb := range b.states {
		cfg.States[name] = sb.node
	}
	return cfg
}

// Build validates the machine and returns its Definition.
func (b *Builder) Build() (*domain.Definition, error) {
	return domain.NewDefinition(b.Config())
}

// MustBuild is like Build but panics on an invalid machine. Intended for package-level
// definitions whose validity is covered by tests.
func (b *Builder) MustBuild() *domain.Definition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}
