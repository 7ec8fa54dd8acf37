package dsl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/transito/pkg/domain"
)

func noop(_ context.Context, c map[string]any, _ any) (map[string]any, error) { return c, nil }

func TestBuilder_SimpleMachine(t *testing.T) {
	def, err := New().
		Add("inactive").On("activate", "activating").
		Add("activating").Entry(noop).OnSuccess("active").OnError("failed").
		Add("active").On("deactivate", "inactive").
		Add("failed").On("retry", "activating").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "inactive", def.Initial())
	assert.Equal(t, []string{"active", "activating", "failed", "inactive"}, def.States())

	node, ok := def.Node("activating")
	require.True(t, ok)
	assert.NotNil(t, node.Entry)
	assert.Equal(t, "active", node.OnSuccess.Target)
	assert.Equal(t, "failed", node.OnError.Target)

	tr, ok := def.Transition("failed", "retry")
	require.True(t, ok)
	assert.Equal(t, "activating", tr.Target)
}

func TestBuilder_ExplicitInitialAndReuse(t *testing.T) {
	b := New().Initial("b")
	b.Add("a").On("next", "b")
	b.Add("b").On("back", "a")
	b.Add("a").On("stay", "a")

	def, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "b", def.Initial())
	assert.Equal(t, []string{"next", "stay"}, def.Events("a"))
}

func TestBuilder_InvalidMachine(t *testing.T) {
	_, err := New().
		Add("a").On("go", "nowhere").OnSuccess("a").
		Build()

	var defErr *domain.DefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.Len(t, defErr.Problems, 2)
	assert.True(t, errors.Is(err, domain.ErrInvalidDefinition))

	assert.Panics(t, func() { New().MustBuild() })
}

type counter struct {
	Count int     `json:"count"`
	Name  *string `json:"name"`
	Temp  string  `json:"-"`
}

type activation struct {
	Name string `json:"name"`
}

func TestTyped(t *testing.T) {
	action := Typed(func(_ context.Context, c counter, p activation) (counter, error) {
		c.Count++
		c.Name = &p.Name
		c.Temp = "not persisted"
		return c, nil
	})

	out, err := action(context.Background(),
		map[string]any{"count": float64(2), "name": nil},
		map[string]any{"name": "X"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": float64(3), "name": "X"}, out)
}

func TestTyped_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	action := Typed(func(context.Context, counter, activation) (counter, error) {
		return counter{}, boom
	})

	_, err := action(context.Background(), map[string]any{}, nil)
	assert.ErrorIs(t, err, boom)

	_, err = action(context.Background(), map[string]any{"count": "many"}, nil)
	assert.Error(t, err)
}
