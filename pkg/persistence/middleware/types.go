package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/transito/pkg/ports"
)

// Middleware allows wrapping an Adapter to add behavior.
type Middleware func(ports.Adapter) ports.Adapter

// Chain wraps adapter with mws. The first middleware is the outermost.
func Chain(adapter ports.Adapter, mws ...Middleware) ports.Adapter {
	for i := len(mws) - 1; i >= 0; i-- {
		adapter = mws[i](adapter)
	}
	return adapter
}

// passthrough forwards the optional capabilities of the wrapped adapter.
// Wrappers embed it so List and Delete survive wrapping; when the wrapped adapter
// lacks the capability the call fails with errors.ErrUnsupported.
type passthrough struct {
	next ports.Adapter
}

func (p passthrough) List(ctx context.Context) ([]string, error) {
	lister, ok := p.next.(ports.Lister)
	if !ok {
		return nil, fmt.Errorf("list: %w", errors.ErrUnsupported)
	}
	return lister.List(ctx)
}

func (p passthrough) Delete(ctx context.Context, id string) error {
	deleter, ok := p.next.(ports.Deleter)
	if !ok {
		return fmt.Errorf("delete: %w", errors.ErrUnsupported)
	}
	return deleter.Delete(ctx, id)
}
