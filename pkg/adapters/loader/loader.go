package loader

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/registry"
	"github.com/aretw0/transito/pkg/schema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Document is a loaded definition together with the context schema it declares.
type Document struct {
	Definition *domain.Definition
	// Schema is nil when the file declares no context section.
	Schema schema.Schema
}

// Loader turns YAML documents into definitions, resolving entry actions through a registry.
type Loader struct {
	registry *registry.Registry
}

// New creates a loader. A nil registry is allowed for machines without entry actions.
func New(reg *registry.Registry) *Loader {
	return &Loader{registry: reg}
}

// LoadFile reads and parses the definition stored at path.
func (l *Loader) LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition %s: %w", path, err)
	}
	doc, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a YAML document. Malformed YAML is returned as a plain parse error;
// everything else is a *domain.DefinitionError.
func (l *Loader) Parse(data []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}

	meta, problems := decode(raw)
	if meta == nil {
		return nil, &domain.DefinitionError{Problems: problems}
	}

	cfg := domain.Config{
		Initial: meta.Initial,
		States:  make(map[string]domain.StateNode, len(meta.States)),
	}
	for _, name := range slices.Sorted(maps.Keys(meta.States)) {
		node, nodeProblems := l.buildNode(name, meta.States[name])
		problems = append(problems, nodeProblems...)
		cfg.States[name] = node
	}

	var sch schema.Schema
	if meta.Context != nil {
		var err error
		if sch, err = schema.ParseTypeMap(meta.Context); err != nil {
			problems = append(problems, fmt.Sprintf("context: %v", err))
		}
	}

	if len(problems) > 0 {
		return nil, &domain.DefinitionError{Problems: problems}
	}

	def, err := domain.NewDefinition(cfg)
	if err != nil {
		return nil, err
	}
	return &Document{Definition: def, Schema: sch}, nil
}

func decode(raw map[string]any) (*DocumentMetadata, []string) {
	var meta DocumentMetadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &meta,
	})
	if err != nil {
		return nil, []string{err.Error()}
	}
	if err := decoder.Decode(raw); err != nil {
		var merr *mapstructure.Error
		if errors.As(err, &merr) {
			problems := slices.Clone(merr.Errors)
			slices.Sort(problems)
			return nil, problems
		}
		return nil, []string{err.Error()}
	}
	return &meta, nil
}

func (l *Loader) buildNode(name string, meta StateMetadata) (domain.StateNode, []string) {
	var (
		node     domain.StateNode
		problems []string
	)

	if len(meta.On) > 0 {
		node.On = make(map[string]domain.Transition, len(meta.On))
		for event, target := range meta.On {
			node.On[event] = domain.Transition{Target: target}
		}
	}

	if meta.Entry != "" {
		action, err := l.lookup(meta.Entry)
		if err != nil {
			problems = append(problems, fmt.Sprintf("state %q: %v", name, err))
		}
		node.Entry = action
	}
	if meta.OnSuccess != "" {
		node.OnSuccess = &domain.Transition{Target: meta.OnSuccess}
	}
	if meta.OnError != "" {
		node.OnError = &domain.Transition{Target: meta.OnError}
	}
	return node, problems
}

func (l *Loader) lookup(name string) (domain.Action, error) {
	if l.registry == nil {
		return nil, fmt.Errorf("%w: %s", registry.ErrActionNotFound, name)
	}
	return l.registry.Lookup(name)
}
