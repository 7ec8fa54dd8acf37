package registry

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/aretw0/transito/pkg/domain"
)

// ErrFailAction is returned by the "fail" builtin.
var ErrFailAction = errors.New("fail action invoked")

// Builtins returns the generic actions available to definition files without Go code:
//
//   - merge: copies the keys of a map payload into the context; any other payload fails.
//   - count: increments the numeric "count" field.
//   - fail: always fails, to drive on_error branches.
func Builtins() map[string]domain.Action {
	return map[string]domain.Action{
		"merge": merge,
		"count": count,
		"fail":  fail,
	}
}

// NewDefaultRegistry creates a registry preloaded with Builtins.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for name, fn := range Builtins() {
		r.Register(name, fn)
	}
	return r
}

func merge(_ context.Context, current map[string]any, payload any) (map[string]any, error) {
	fields, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("merge: payload must be an object, got %T", payload)
	}
	maps.Copy(current, fields)
	return current, nil
}

func count(_ context.Context, current map[string]any, _ any) (map[string]any, error) {
	switch n := current["count"].(type) {
	case nil:
		current["count"] = int64(1)
	case int:
		current["count"] = int64(n) + 1
	case int64:
		current["count"] = n + 1
	case float64:
		current["count"] = n + 1
	default:
		return nil, fmt.Errorf("count: field is %T, not a number", n)
	}
	return current, nil
}

func fail(ctx context.Context, _ map[string]any, _ any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrFailAction
}
