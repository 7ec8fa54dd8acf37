package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/transito"
	"github.com/aretw0/transito/pkg/adapters/loader"
	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/persistence/middleware"
	"github.com/aretw0/transito/pkg/registry"
)

// Runtime is a machine bound to the configured backend.
type Runtime struct {
	Machine  *transito.Machine
	Document *loader.Document
	close    func() error
}

// Close releases the backend connections.
func (r *Runtime) Close() error {
	return r.close()
}

// LoadDefinition reads a definition file, resolving entry actions against the builtin registry.
func LoadDefinition(path string) (*loader.Document, error) {
	return loader.New(registry.NewDefaultRegistry()).LoadFile(path)
}

// NewRuntime loads cfg.Definition, opens cfg.Backend wrapped in mws and binds them.
func NewRuntime(ctx context.Context, cfg Config, logger *slog.Logger, hooks domain.LifecycleHooks, mws ...middleware.Middleware) (*Runtime, error) {
	doc, err := LoadDefinition(cfg.Definition)
	if err != nil {
		return nil, err
	}
	policy, err := transito.ParseUnhandledEventPolicy(cfg.Unhandled)
	if err != nil {
		return nil, err
	}

	adapter, closeAdapter, err := OpenAdapter(ctx, cfg, doc.Schema, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", cfg.Backend, err)
	}

	opts := []transito.Option{
		transito.WithLogger(logger),
		transito.WithLifecycleHooks(hooks),
		transito.WithUnhandledEventPolicy(policy),
	}
	if doc.Schema != nil {
		opts = append(opts, transito.WithSchema(doc.Schema))
	}
	machine, err := transito.Bind(doc.Definition, middleware.Chain(adapter, mws...), opts...)
	if err != nil {
		closeAdapter()
		return nil, err
	}
	logger.Debug("machine bound", "definition", cfg.Definition, "backend", cfg.Backend, "states", len(doc.Definition.States()))
	return &Runtime{Machine: machine, Document: doc, close: closeAdapter}, nil
}
