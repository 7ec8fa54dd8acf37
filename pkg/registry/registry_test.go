package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/transito/pkg/registry"
)

func TestRegistry(t *testing.T) {
	r := registry.NewRegistry()
	r.Register("b", func(_ context.Context, c map[string]any, _ any) (map[string]any, error) { return c, nil })
	r.Register("a", func(_ context.Context, _ map[string]any, _ any) (map[string]any, error) {
		return map[string]any{"v": 1}, nil
	})

	assert.Equal(t, []string{"a", "b"}, r.Names())

	fn, err := r.Lookup("a")
	require.NoError(t, err)
	out, err := fn(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": 1}, out)

	_, err = r.Lookup("missing")
	assert.ErrorIs(t, err, registry.ErrActionNotFound)
}

func TestBuiltins(t *testing.T) {
	r := registry.NewDefaultRegistry()
	assert.Equal(t, []string{"count", "fail", "merge"}, r.Names())
	ctx := context.Background()

	merge, err := r.Lookup("merge")
	require.NoError(t, err)
	out, err := merge(ctx, map[string]any{"a": 1}, map[string]any{"b": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": "x"}, out)
	_, err = merge(ctx, map[string]any{}, "not an object")
	assert.ErrorContains(t, err, "payload must be an object")

	count, err := r.Lookup("count")
	require.NoError(t, err)
	out, err = count(ctx, map[string]any{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out["count"])
	out, err = count(ctx, map[string]any{"count": float64(2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(3), out["count"])
	_, err = count(ctx, map[string]any{"count": "two"}, nil)
	assert.Error(t, err)

	fail, err := r.Lookup("fail")
	require.NoError(t, err)
	_, err = fail(ctx, map[string]any{}, nil)
	assert.ErrorIs(t, err, registry.ErrFailAction)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = fail(cancelled, map[string]any{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
